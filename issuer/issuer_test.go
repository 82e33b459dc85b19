package issuer

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/png"
	"testing"

	"certledger.dev/certledger/contentref"
	"certledger.dev/certledger/model"
	"certledger.dev/certledger/pin"
)

// fakeUploader pins into memory and can be told to fail on the nth call.
type fakeUploader struct {
	calls  int
	failOn int // 1-based; 0 disables
	pinned map[string][]byte
}

func (u *fakeUploader) UploadFile(ctx context.Context, name string, data []byte, meta pin.Metadata) (model.ContentReference, error) {
	u.calls++
	if u.failOn != 0 && u.calls == u.failOn {
		return model.ContentReference{}, model.NewError(model.KindUpload, "CERT-UP-001", "pinning service rejected request: quota exceeded")
	}
	if u.pinned == nil {
		u.pinned = make(map[string][]byte)
	}
	hash := contentref.CIDv1RawSHA256(data)
	u.pinned[hash] = data
	return model.ContentReference{Hash: hash, URL: "gw/" + hash, SizeBytes: int64(len(data))}, nil
}

// fakeLedger hands out sequential ids and records commit calls.
type fakeLedger struct {
	counter       int
	batchCalls    int
	failCommit    bool
	truncateBatch bool     // confirm the batch but drop the last receipt
	committed     []string // names in commit order
	lastBatchLen  int
}

func (l *fakeLedger) CommitOne(ctx context.Context, name, contentHash string) (model.LedgerReceipt, error) {
	if l.failCommit {
		return model.LedgerReceipt{}, model.NewError(model.KindLedger, "CERT-LED-005", "ledger unreachable")
	}
	l.counter++
	l.committed = append(l.committed, name)
	return model.LedgerReceipt{
		CertificateID: fmt.Sprint(l.counter),
		TransactionID: fmt.Sprintf("0x%04d", l.counter),
	}, nil
}

func (l *fakeLedger) CommitBatch(ctx context.Context, names, contentHashes []string) ([]model.LedgerReceipt, error) {
	l.batchCalls++
	l.lastBatchLen = len(names)
	if l.failCommit {
		return nil, model.NewError(model.KindLedger, "CERT-LED-005", "ledger unreachable")
	}
	receipts := make([]model.LedgerReceipt, len(names))
	for i, name := range names {
		l.counter++
		l.committed = append(l.committed, name)
		receipts[i] = model.LedgerReceipt{
			CertificateID: fmt.Sprint(l.counter),
			TransactionID: "0xbatch",
		}
	}
	if l.truncateBatch && len(receipts) > 0 {
		receipts = receipts[:len(receipts)-1]
	}
	return receipts, nil
}

// fakeStore records AddCertificate calls in memory.
type fakeStore struct {
	seq   int
	certs []model.Certificate
}

func (s *fakeStore) AddCertificate(projectID string, cert model.Certificate) (model.Certificate, error) {
	s.seq++
	cert.LocalID = fmt.Sprintf("local-%d", s.seq)
	s.certs = append(s.certs, cert)
	return cert, nil
}

func testBackground(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 40, 30))
	for i := range img.Pix {
		img.Pix[i] = 0xff
	}
	img.Set(5, 5, color.RGBA{0, 0, 255, 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode: %v", err)
	}
	return buf.Bytes()
}

func fullTemplate() *model.TemplateConfig {
	fields := make(map[model.FieldKey]model.FieldStyle, len(model.FieldKeys))
	for i, k := range model.FieldKeys {
		fields[k] = model.FieldStyle{Left: 20, Top: float64(40 + i*60), FontSize: 18, FillColor: "#000000"}
	}
	return &model.TemplateConfig{Fields: fields}
}

func testProject(recipients ...model.RecipientRecord) model.Project {
	return model.Project{
		ID:         "proj-1",
		Name:       "Cohort",
		Recipients: recipients,
		Template:   fullTemplate(),
	}
}

func recipients3() []model.RecipientRecord {
	return []model.RecipientRecord{
		{ID: 1, StudentName: "Ann", RegistrationNumber: "R1", SchoolName: "X", CourseName: "CS"},
		{ID: 2, StudentName: "Ben", RegistrationNumber: "R2", SchoolName: "X", CourseName: "CS"},
		{ID: 3, StudentName: "Cal", RegistrationNumber: "R3", SchoolName: "X", CourseName: "CS"},
	}
}

func TestNewRejectsDrafts(t *testing.T) {
	// No recipients.
	_, err := New(Config{Project: model.Project{ID: "p", Template: fullTemplate()}})
	if model.ErrCode(err) != "CERT-ISS-001" {
		t.Errorf("err = %v, want CERT-ISS-001", err)
	}

	// Incomplete template.
	p := testProject(recipients3()...)
	delete(p.Template.Fields, model.FieldCourseName)
	_, err = New(Config{Project: p})
	if model.ErrCode(err) != "CERT-ISS-002" {
		t.Errorf("err = %v, want CERT-ISS-002", err)
	}

	// Nil template.
	p = testProject(recipients3()...)
	p.Template = nil
	_, err = New(Config{Project: p})
	if !model.IsKind(err, model.KindValidation) {
		t.Errorf("err = %v, want KindValidation", err)
	}
}

func TestPreviewSteppingHasNoSideEffects(t *testing.T) {
	up := &fakeUploader{}
	led := &fakeLedger{}
	st := &fakeStore{}
	iss, err := New(Config{Project: testProject(recipients3()...), Background: testBackground(t), Uploader: up, Ledger: led, Store: st})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if iss.State() != TemplateReady {
		t.Fatalf("state = %v", iss.State())
	}

	first, err := iss.Render(0)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if iss.State() != Previewing {
		t.Errorf("state = %v, want Previewing", iss.State())
	}
	if _, err := iss.Render(2); err != nil {
		t.Fatalf("Render(2): %v", err)
	}
	again, err := iss.Render(0)
	if err != nil {
		t.Fatalf("Render(0) again: %v", err)
	}
	if !bytes.Equal(first, again) {
		t.Error("preview not deterministic")
	}

	if iss.Next() != 1 || iss.Next() != 2 || iss.Next() != 2 {
		t.Error("Next does not clamp at the last recipient")
	}
	if iss.Prev() != 1 || iss.Prev() != 0 || iss.Prev() != 0 {
		t.Error("Prev does not clamp at zero")
	}

	if up.calls != 0 || led.counter != 0 || len(st.certs) != 0 {
		t.Error("previewing caused side effects")
	}
	if _, err := iss.Render(3); !model.IsKind(err, model.KindValidation) {
		t.Errorf("Render(3) err = %v", err)
	}
}

func TestIssueCurrentSingleRecipient(t *testing.T) {
	// Scenario: one row, single-issue path.
	up := &fakeUploader{}
	led := &fakeLedger{}
	st := &fakeStore{}
	rec := model.RecipientRecord{ID: 1, StudentName: "Ann", RegistrationNumber: "R1", SchoolName: "X", CourseName: "CS"}
	iss, err := New(Config{Project: testProject(rec), Background: testBackground(t), Uploader: up, Ledger: led, Store: st})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	cert, err := iss.IssueCurrent(context.Background())
	if err != nil {
		t.Fatalf("IssueCurrent: %v", err)
	}
	if cert.LocalID == "" || cert.CertificateID != "1" || cert.ContentHash == "" {
		t.Errorf("cert = %+v", cert)
	}
	if cert.StudentName != "Ann" {
		t.Errorf("student = %q", cert.StudentName)
	}
	if len(st.certs) != 1 {
		t.Fatalf("stored = %d, want 1", len(st.certs))
	}
	if iss.State() != Complete {
		t.Errorf("state = %v, want Complete", iss.State())
	}

	// Double issue of the same recipient is rejected.
	iss2, _ := New(Config{Project: model.Project{
		ID:           "proj-1",
		Recipients:   []model.RecipientRecord{rec},
		Template:     fullTemplate(),
		Certificates: []model.Certificate{cert},
	}, Background: testBackground(t), Uploader: up, Ledger: led, Store: st})
	if _, err := iss2.IssueCurrent(context.Background()); model.ErrCode(err) != "CERT-ISS-004" {
		t.Errorf("err = %v, want CERT-ISS-004", err)
	}
}

func TestIssueCurrentPersistsEachSuccess(t *testing.T) {
	up := &fakeUploader{}
	led := &fakeLedger{}
	st := &fakeStore{}
	iss, err := New(Config{Project: testProject(recipients3()...), Background: testBackground(t), Uploader: up, Ledger: led, Store: st})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if _, err := iss.IssueCurrent(context.Background()); err != nil {
		t.Fatalf("issue 1: %v", err)
	}
	// Ledger goes down mid-run; the first certificate survives.
	led.failCommit = true
	if _, err := iss.IssueCurrent(context.Background()); !model.IsKind(err, model.KindLedger) {
		t.Fatalf("issue 2 err = %v, want KindLedger", err)
	}
	if len(st.certs) != 1 || st.certs[0].StudentName != "Ann" {
		t.Errorf("stored = %+v", st.certs)
	}
	// Cursor stayed on the failed recipient for a manual retry.
	if iss.Current().StudentName != "Ben" {
		t.Errorf("cursor on %q, want Ben", iss.Current().StudentName)
	}
	led.failCommit = false
	if _, err := iss.IssueCurrent(context.Background()); err != nil {
		t.Fatalf("retry: %v", err)
	}
	if len(st.certs) != 2 {
		t.Errorf("stored = %d, want 2", len(st.certs))
	}
}

func TestIssueAll(t *testing.T) {
	up := &fakeUploader{}
	led := &fakeLedger{}
	st := &fakeStore{}
	var progress []model.Progress
	iss, err := New(Config{
		Project:    testProject(recipients3()...),
		Background: testBackground(t),
		Uploader:   up,
		Ledger:     led,
		Store:      st,
		OnProgress: func(p model.Progress) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	certs, err := iss.IssueAll(context.Background())
	if err != nil {
		t.Fatalf("IssueAll: %v", err)
	}
	if len(certs) != 3 {
		t.Fatalf("certs = %d, want 3", len(certs))
	}
	for i, c := range certs {
		if c.LocalID == "" || c.CertificateID == "" || c.TransactionID != "0xbatch" {
			t.Errorf("cert[%d] = %+v", i, c)
		}
	}
	if led.batchCalls != 1 || led.lastBatchLen != 3 {
		t.Errorf("batch calls = %d len %d, want one call of 3", led.batchCalls, led.lastBatchLen)
	}
	want := []model.Progress{{Current: 1, Total: 3}, {Current: 2, Total: 3}, {Current: 3, Total: 3}}
	if len(progress) != len(want) {
		t.Fatalf("progress = %v", progress)
	}
	for i := range want {
		if progress[i] != want[i] {
			t.Errorf("progress[%d] = %v, want %v", i, progress[i], want[i])
		}
	}
	if iss.State() != Complete {
		t.Errorf("state = %v", iss.State())
	}
}

func TestIssueAllRejectsShortConfirmation(t *testing.T) {
	// The ledger confirms the batch but returns one receipt too few.
	// Nothing may be recorded locally from an unattributable commit.
	up := &fakeUploader{}
	led := &fakeLedger{truncateBatch: true}
	st := &fakeStore{}
	iss, err := New(Config{
		Project:    testProject(recipients3()...),
		Background: testBackground(t),
		Uploader:   up,
		Ledger:     led,
		Store:      st,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = iss.IssueAll(context.Background())
	if !model.IsKind(err, model.KindLedger) || model.ErrCode(err) != "CERT-LED-002" {
		t.Fatalf("err = %v, want KindLedger CERT-LED-002", err)
	}
	if len(st.certs) != 0 {
		t.Errorf("stored %d certificates from a short confirmation", len(st.certs))
	}
	if iss.State() != Failed {
		t.Errorf("state = %v, want Failed", iss.State())
	}
}

func TestIssueAllAbortsOnUploadFailure(t *testing.T) {
	// Scenario: 3 recipients, uploader fails on the 2nd.
	up := &fakeUploader{failOn: 2}
	led := &fakeLedger{}
	st := &fakeStore{}
	var progress []model.Progress
	iss, err := New(Config{
		Project:    testProject(recipients3()...),
		Background: testBackground(t),
		Uploader:   up,
		Ledger:     led,
		Store:      st,
		OnProgress: func(p model.Progress) { progress = append(progress, p) },
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = iss.IssueAll(context.Background())
	if !model.IsKind(err, model.KindUpload) {
		t.Fatalf("err = %v, want KindUpload", err)
	}
	if len(st.certs) != 0 {
		t.Errorf("partial certificates persisted: %+v", st.certs)
	}
	if led.batchCalls != 0 {
		t.Error("commit attempted despite upload failure")
	}
	// Exactly one artifact (item 1) was pinned before the abort.
	if len(up.pinned) != 1 {
		t.Errorf("pinned = %d, want 1 orphan", len(up.pinned))
	}
	last := progress[len(progress)-1]
	if last != (model.Progress{Current: 2, Total: 3}) {
		t.Errorf("last progress = %v, want {2 3}", last)
	}
	if iss.State() != Failed {
		t.Errorf("state = %v, want Failed", iss.State())
	}
	if iss.Err() == nil {
		t.Error("Err() lost the abort cause")
	}
}

func TestIssueAllAbortsOnCommitFailure(t *testing.T) {
	up := &fakeUploader{}
	led := &fakeLedger{failCommit: true}
	st := &fakeStore{}
	iss, err := New(Config{Project: testProject(recipients3()...), Background: testBackground(t), Uploader: up, Ledger: led, Store: st})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	_, err = iss.IssueAll(context.Background())
	if !model.IsKind(err, model.KindLedger) {
		t.Fatalf("err = %v, want KindLedger", err)
	}
	if len(st.certs) != 0 {
		t.Errorf("partial certificates persisted: %+v", st.certs)
	}
	// All three artifacts were pinned, none has a local record.
	if len(up.pinned) != 3 {
		t.Errorf("pinned = %d, want 3 orphans", len(up.pinned))
	}
}
