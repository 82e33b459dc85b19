package ledger

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strconv"
)

// snapshot is the JSON form of the server's state. Records are keyed by
// certificate id; the issuer index is rebuilt on load.
type snapshot struct {
	Counter int64                     `json:"counter"`
	Records map[string]snapshotRecord `json:"records"`
}

type snapshotRecord struct {
	StudentName string `json:"student_name"`
	ContentHash string `json:"content_hash"`
	Issuer      string `json:"issuer"`
	Timestamp   int64  `json:"timestamp"`
	IsValid     bool   `json:"is_valid"`
}

// SaveSnapshot writes the server state to path as JSON, via a temp file
// and rename so a crash mid-write leaves the previous snapshot intact.
func (s *Server) SaveSnapshot(path string) error {
	s.mu.Lock()
	snap := snapshot{Counter: s.counter, Records: make(map[string]snapshotRecord, len(s.records))}
	for id, rec := range s.records {
		snap.Records[id] = snapshotRecord{
			StudentName: rec.name,
			ContentHash: rec.hash,
			Issuer:      rec.issuer,
			Timestamp:   rec.timestamp,
			IsValid:     rec.valid,
		}
	}
	s.mu.Unlock()

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), ".snapshot-*")
	if err != nil {
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return err
	}
	return os.Rename(tmp.Name(), path)
}

// LoadSnapshot replaces the server state with the snapshot at path. A
// missing file is not an error: the server starts empty.
func (s *Server) LoadSnapshot(path string) error {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return err
	}
	var snap snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return err
	}

	records := make(map[string]*record, len(snap.Records))
	byIssuer := make(map[string][]string)
	for id, sr := range snap.Records {
		records[id] = &record{
			name:      sr.StudentName,
			hash:      sr.ContentHash,
			issuer:    sr.Issuer,
			timestamp: sr.Timestamp,
			valid:     sr.IsValid,
		}
		byIssuer[sr.Issuer] = append(byIssuer[sr.Issuer], id)
	}
	// Ids are decimal counter values; restore commit order numerically.
	for _, ids := range byIssuer {
		sort.Slice(ids, func(i, j int) bool {
			a, _ := strconv.ParseInt(ids[i], 10, 64)
			b, _ := strconv.ParseInt(ids[j], 10, 64)
			return a < b
		})
	}

	s.mu.Lock()
	s.counter = snap.Counter
	s.records = records
	s.byIssuer = byIssuer
	s.mu.Unlock()
	return nil
}
