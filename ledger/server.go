package ledger

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	"certledger.dev/certledger/keys"
)

// Server is an in-memory ledger, the reference implementation of the
// Ledger service. Certificate ids come from a monotonic counter; commits
// are rejected unless their signature verifies against the issuer key in
// the request. Used by certledgerd and by tests.
type Server struct {
	UnimplementedLedgerServer

	mu       sync.Mutex
	counter  int64
	records  map[string]*record
	byIssuer map[string][]string

	// Now is the clock for record timestamps; defaults to time.Now.
	Now func() time.Time
}

type record struct {
	name      string
	hash      string
	issuer    string
	timestamp int64
	valid     bool
}

func NewServer() *Server {
	return &Server{
		records:  make(map[string]*record),
		byIssuer: make(map[string][]string),
	}
}

func (s *Server) now() int64 {
	if s.Now != nil {
		return s.Now().Unix()
	}
	return time.Now().Unix()
}

func (s *Server) authenticate(in *structpb.Struct, message []byte) (issuer string, err error) {
	issuer = fieldString(in, "issuer_key")
	hashAlg := fieldString(in, "hash_alg")
	sig := fieldString(in, "signature")
	if issuer == "" || hashAlg == "" || sig == "" {
		return "", status.Error(codes.InvalidArgument, "commit is missing issuer_key, hash_alg, or signature")
	}
	if err := keys.VerifyIssuerSignature(issuer, hashAlg, message, sig); err != nil {
		return "", status.Error(codes.PermissionDenied, "commit signature rejected: "+err.Error())
	}
	return issuer, nil
}

// transactionID derives a stable id from the commit content and the
// counter position it landed at.
func transactionID(issuer string, message []byte, counter int64) string {
	h := sha256.New()
	h.Write([]byte(issuer))
	h.Write([]byte{0})
	h.Write(message)
	h.Write([]byte{0})
	h.Write([]byte(strconv.FormatInt(counter, 10)))
	return "0x" + hex.EncodeToString(h.Sum(nil))
}

func (s *Server) Issue(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_ = ctx
	name := fieldString(in, "name")
	hash := fieldString(in, "content_hash")
	if name == "" || hash == "" {
		return nil, status.Error(codes.InvalidArgument, "commit is missing name or content_hash")
	}
	issuer, err := s.authenticate(in, commitMessage(name, hash))
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.counter++
	id := strconv.FormatInt(s.counter, 10)
	s.records[id] = &record{name: name, hash: hash, issuer: issuer, timestamp: s.now(), valid: true}
	s.byIssuer[issuer] = append(s.byIssuer[issuer], id)
	tx := transactionID(issuer, commitMessage(name, hash), s.counter)
	block := strconv.FormatInt(s.counter, 10)
	s.mu.Unlock()

	out, err := newStruct(map[string]any{
		"certificate_id": id,
		"transaction_id": tx,
		"block_ref":      block,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) BulkIssue(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_ = ctx
	names := fieldStrings(in, "names")
	hashes := fieldStrings(in, "content_hashes")
	if len(names) == 0 || len(names) != len(hashes) {
		return nil, status.Error(codes.InvalidArgument, "names and content_hashes must be non-empty and equal length")
	}
	for i := range names {
		if names[i] == "" || hashes[i] == "" {
			return nil, status.Error(codes.InvalidArgument, "commit entry is missing name or content_hash")
		}
	}
	msg := batchMessage(names, hashes)
	issuer, err := s.authenticate(in, msg)
	if err != nil {
		return nil, err
	}

	// One transaction: every entry lands under the same tx id, or the
	// request fails before any state change.
	s.mu.Lock()
	tx := transactionID(issuer, msg, s.counter+1)
	block := strconv.FormatInt(s.counter+1, 10)
	ids := make([]string, len(names))
	ts := s.now()
	for i := range names {
		s.counter++
		id := strconv.FormatInt(s.counter, 10)
		s.records[id] = &record{name: names[i], hash: hashes[i], issuer: issuer, timestamp: ts, valid: true}
		s.byIssuer[issuer] = append(s.byIssuer[issuer], id)
		ids[i] = id
	}
	s.mu.Unlock()

	out, err := newStruct(map[string]any{
		"certificate_ids": stringsToAny(ids),
		"transaction_id":  tx,
		"block_ref":       block,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) GetCertificate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_ = ctx
	id := fieldString(in, "certificate_id")
	s.mu.Lock()
	rec, ok := s.records[id]
	s.mu.Unlock()
	if !ok {
		return nil, status.Error(codes.NotFound, "certificate "+id+" not found")
	}
	out, err := newStruct(map[string]any{
		"student_name": rec.name,
		"content_hash": rec.hash,
		"issuer":       rec.issuer,
		"timestamp":    rec.timestamp,
		"is_valid":     rec.valid,
	})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) VerifyCertificate(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_ = ctx
	id := fieldString(in, "certificate_id")
	s.mu.Lock()
	rec, ok := s.records[id]
	valid := ok && rec.valid
	s.mu.Unlock()
	out, err := newStruct(map[string]any{"valid": valid})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) GetCertificatesByIssuer(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_ = ctx
	issuer := fieldString(in, "issuer_key")
	s.mu.Lock()
	ids := append([]string(nil), s.byIssuer[issuer]...)
	s.mu.Unlock()
	out, err := newStruct(map[string]any{"certificate_ids": stringsToAny(ids)})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

func (s *Server) GetCurrentCounter(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	_, _ = ctx, in
	s.mu.Lock()
	counter := s.counter
	s.mu.Unlock()
	out, err := newStruct(map[string]any{"counter": counter})
	if err != nil {
		return nil, status.Error(codes.Internal, err.Error())
	}
	return out, nil
}

// SetValidity flips a record's validity flag. Returns false when the id
// is unknown.
func (s *Server) SetValidity(id string, valid bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[id]
	if !ok {
		return false
	}
	rec.valid = valid
	return true
}
