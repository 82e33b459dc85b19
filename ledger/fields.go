package ledger

import (
	"google.golang.org/protobuf/types/known/structpb"
)

// Struct field accessors. Missing fields read as zero values; the server
// validates presence where it matters.

func fieldString(s *structpb.Struct, key string) string {
	if s == nil {
		return ""
	}
	if v, ok := s.GetFields()[key]; ok {
		return v.GetStringValue()
	}
	return ""
}

func fieldNumber(s *structpb.Struct, key string) float64 {
	if s == nil {
		return 0
	}
	if v, ok := s.GetFields()[key]; ok {
		return v.GetNumberValue()
	}
	return 0
}

func fieldBool(s *structpb.Struct, key string) bool {
	if s == nil {
		return false
	}
	if v, ok := s.GetFields()[key]; ok {
		return v.GetBoolValue()
	}
	return false
}

func fieldStrings(s *structpb.Struct, key string) []string {
	if s == nil {
		return nil
	}
	v, ok := s.GetFields()[key]
	if !ok {
		return nil
	}
	list := v.GetListValue()
	if list == nil {
		return nil
	}
	out := make([]string, 0, len(list.GetValues()))
	for _, item := range list.GetValues() {
		out = append(out, item.GetStringValue())
	}
	return out
}

func newStruct(fields map[string]any) (*structpb.Struct, error) {
	return structpb.NewStruct(fields)
}

func stringsToAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}

// commitMessage is the byte string a single-issue signature covers.
// The NUL separator keeps (name, hash) pairs unambiguous.
func commitMessage(name, contentHash string) []byte {
	return []byte(name + "\x00" + contentHash)
}

// batchMessage covers an ordered pair list: pair fields separated by NUL,
// pairs separated by 0x01.
func batchMessage(names, hashes []string) []byte {
	var out []byte
	for i := range names {
		if i > 0 {
			out = append(out, 0x01)
		}
		out = append(out, names[i]...)
		out = append(out, 0x00)
		out = append(out, hashes[i]...)
	}
	return out
}
