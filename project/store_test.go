package project

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"certledger.dev/certledger/model"
)

// testStore returns a Store with a deterministic clock and id sequence.
// Each call to the clock advances one second so UpdatedAt ordering is
// observable.
func testStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	tick := 0
	s.now = func() time.Time {
		tick++
		return time.Date(2026, 3, 1, 12, 0, tick, 0, time.UTC)
	}
	seq := 0
	s.newID = func() string {
		seq++
		return fmt.Sprintf("id-%04d", seq)
	}
	return s
}

func TestCreateGetDelete(t *testing.T) {
	s := testStore(t)

	p, err := s.Create("Spring Cohort", "CS graduates")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if p.ID == "" || p.CreatedAt.IsZero() || !p.CreatedAt.Equal(p.UpdatedAt) {
		t.Fatalf("project = %+v", p)
	}

	got, err := s.Get(p.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Name != "Spring Cohort" || got.Description != "CS graduates" {
		t.Errorf("got = %+v", got)
	}

	if err := s.Delete(p.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	_, err = s.Get(p.ID)
	if !model.IsKind(err, model.KindNotFound) || model.ErrCode(err) != "CERT-PRJ-001" {
		t.Fatalf("err after delete = %v", err)
	}
	if err := s.Delete(p.ID); !model.IsKind(err, model.KindNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestListOrdersByUpdatedAt(t *testing.T) {
	s := testStore(t)

	a, _ := s.Create("A", "")
	b, _ := s.Create("B", "")
	if _, err := s.SaveRoster(a.ID, []model.RecipientRecord{{ID: 1, StudentName: "Ann"}}); err != nil {
		t.Fatalf("SaveRoster: %v", err)
	}

	list, err := s.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != a.ID || list[1].ID != b.ID {
		t.Fatalf("list order = %v, %v", list[0].Name, list[1].Name)
	}
}

func TestSaveRosterAndTemplate(t *testing.T) {
	s := testStore(t)
	p, _ := s.Create("A", "")

	recipients := []model.RecipientRecord{
		{ID: 1, StudentName: "Ann", RegistrationNumber: "R1", SchoolName: "X", CourseName: "CS"},
	}
	updated, err := s.SaveRoster(p.ID, recipients)
	if err != nil {
		t.Fatalf("SaveRoster: %v", err)
	}
	if len(updated.Recipients) != 1 || !updated.UpdatedAt.After(p.UpdatedAt) {
		t.Errorf("updated = %+v", updated)
	}

	tpl := model.TemplateConfig{Width: 1000, Height: 700}
	updated, err = s.SaveTemplate(p.ID, tpl)
	if err != nil {
		t.Fatalf("SaveTemplate: %v", err)
	}
	if updated.Template == nil || updated.Template.Width != 1000 {
		t.Errorf("template = %+v", updated.Template)
	}
	// The stored template is a copy, not an alias of the caller's value.
	tpl.Width = 1
	got, _ := s.Get(p.ID)
	if got.Template.Width != 1000 {
		t.Error("template aliased caller memory")
	}
}

func TestAddCertificateAppendOnly(t *testing.T) {
	s := testStore(t)
	p, _ := s.Create("A", "")

	c1, err := s.AddCertificate(p.ID, model.Certificate{
		RecipientRecord: model.RecipientRecord{ID: 1, StudentName: "Ann"},
		ContentHash:     "QmA",
		CertificateID:   "1",
		TransactionID:   "0xaa",
	})
	if err != nil {
		t.Fatalf("AddCertificate: %v", err)
	}
	if c1.LocalID == "" || c1.CreatedAt.IsZero() {
		t.Fatalf("cert = %+v", c1)
	}

	c2, err := s.AddCertificate(p.ID, model.Certificate{
		RecipientRecord: model.RecipientRecord{ID: 2, StudentName: "Ben"},
		ContentHash:     "QmB",
		CertificateID:   "2",
		TransactionID:   "0xbb",
	})
	if err != nil {
		t.Fatalf("AddCertificate: %v", err)
	}
	if c2.LocalID == c1.LocalID {
		t.Error("local ids collide")
	}

	certs, err := s.Certificates(p.ID)
	if err != nil {
		t.Fatalf("Certificates: %v", err)
	}
	if len(certs) != 2 || certs[0].StudentName != "Ann" || certs[1].StudentName != "Ben" {
		t.Errorf("certs = %+v", certs)
	}
}

func TestStoreSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	p, err := s.Create("Persistent", "")
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	s2, err := Open(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got, err := s2.Get(p.ID)
	if err != nil {
		t.Fatalf("Get after reopen: %v", err)
	}
	if got.Name != "Persistent" {
		t.Errorf("got = %+v", got)
	}

	info, err := os.Stat(filepath.Join(dir, "projects.json"))
	if err != nil {
		t.Fatalf("Stat: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0o600 {
		t.Errorf("projects.json mode = %o, want 600", perm)
	}
}

func TestSessionLifecycle(t *testing.T) {
	s := testStore(t)

	_, ok, err := s.CurrentSession()
	if err != nil || ok {
		t.Fatalf("CurrentSession empty = %v, %v", ok, err)
	}

	if err := s.SaveSession(model.Session{Address: "0xabc", Network: "sepolia"}); err != nil {
		t.Fatalf("SaveSession: %v", err)
	}
	sess, ok, err := s.CurrentSession()
	if err != nil || !ok {
		t.Fatalf("CurrentSession = %v, %v", ok, err)
	}
	if sess.Address != "0xabc" || sess.Network != "sepolia" || sess.SavedAt.IsZero() {
		t.Errorf("session = %+v", sess)
	}

	if err := s.ClearSession(); err != nil {
		t.Fatalf("ClearSession: %v", err)
	}
	if err := s.ClearSession(); err != nil {
		t.Fatalf("ClearSession twice: %v", err)
	}
	_, ok, _ = s.CurrentSession()
	if ok {
		t.Error("session survived clear")
	}
}

func TestExportImport(t *testing.T) {
	s := testStore(t)
	p, _ := s.Create("Original", "cohort")
	if _, err := s.SaveRoster(p.ID, []model.RecipientRecord{{ID: 1, StudentName: "Ann"}}); err != nil {
		t.Fatalf("SaveRoster: %v", err)
	}
	if _, err := s.AddCertificate(p.ID, model.Certificate{CertificateID: "7", ContentHash: "QmA"}); err != nil {
		t.Fatalf("AddCertificate: %v", err)
	}

	data, err := s.Export(p.ID)
	if err != nil {
		t.Fatalf("Export: %v", err)
	}

	imported, err := s.Import(data)
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if imported.ID == p.ID {
		t.Error("import reused the original id")
	}
	if imported.Name != "Original (Imported)" {
		t.Errorf("name = %q", imported.Name)
	}
	if len(imported.Recipients) != 1 || len(imported.Certificates) != 1 {
		t.Errorf("imported = %+v", imported)
	}
	if imported.Certificates[0].CertificateID != "7" {
		t.Errorf("ledger id lost: %+v", imported.Certificates[0])
	}

	list, _ := s.List()
	if len(list) != 2 {
		t.Errorf("projects = %d, want 2", len(list))
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	s := testStore(t)
	for _, data := range []string{"not json", "{}"} {
		if _, err := s.Import([]byte(data)); !model.IsKind(err, model.KindValidation) {
			t.Errorf("Import(%q) err = %v, want KindValidation", data, err)
		}
	}
}

func TestStats(t *testing.T) {
	s := testStore(t)

	var first model.Project
	for i := 0; i < 7; i++ {
		p, err := s.Create(fmt.Sprintf("P%d", i), "")
		if err != nil {
			t.Fatalf("Create: %v", err)
		}
		if i == 0 {
			first = p
		}
	}
	for j := 0; j < 3; j++ {
		if _, err := s.AddCertificate(first.ID, model.Certificate{CertificateID: fmt.Sprint(j)}); err != nil {
			t.Fatalf("AddCertificate: %v", err)
		}
	}

	st, err := s.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalProjects != 7 || st.TotalCertificates != 3 {
		t.Errorf("stats = %+v", st)
	}
	if len(st.Recent) != 5 {
		t.Fatalf("recent = %d, want 5", len(st.Recent))
	}
	// P0 was mutated last (certificates added), so it leads.
	if st.Recent[0].Name != "P0" {
		t.Errorf("recent[0] = %q", st.Recent[0].Name)
	}
	for i := 1; i < len(st.Recent); i++ {
		if st.Recent[i].UpdatedAt.After(st.Recent[i-1].UpdatedAt) {
			t.Errorf("recent not ordered at %d", i)
		}
	}
}

func TestCorruptStoreSurfaces(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "projects.json"), []byte("{{{"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	_, err = s.List()
	if err == nil || !strings.Contains(err.Error(), "corrupt") {
		t.Fatalf("err = %v", err)
	}
}
