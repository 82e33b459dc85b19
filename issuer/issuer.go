// Package issuer orchestrates batch certificate issuance: render each
// recipient's artifact, pin it, commit the batch to the ledger, and
// record the results locally.
package issuer

import (
	"context"
	"fmt"

	"certledger.dev/certledger/model"
	"certledger.dev/certledger/pin"
	"certledger.dev/certledger/render"
)

// State is the orchestrator's position in the issuance flow.
type State int

const (
	// CollectingInput: the project has no validated roster or template yet.
	CollectingInput State = iota
	// TemplateReady: inputs validated, previews available.
	TemplateReady
	// Previewing: stepping through per-recipient previews.
	Previewing
	// Issuing: an issuance run is in flight.
	Issuing
	// Complete: every recipient has an issued certificate.
	Complete
	// Failed: the last run aborted; inspect the returned error.
	Failed
)

func (s State) String() string {
	switch s {
	case CollectingInput:
		return "collecting-input"
	case TemplateReady:
		return "template-ready"
	case Previewing:
		return "previewing"
	case Issuing:
		return "issuing"
	case Complete:
		return "complete"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Uploader pins rendered artifacts. Satisfied by *pin.Client.
type Uploader interface {
	UploadFile(ctx context.Context, name string, data []byte, meta pin.Metadata) (model.ContentReference, error)
}

// Committer records certificates on the ledger. Satisfied by *ledger.Client.
type Committer interface {
	CommitOne(ctx context.Context, name, contentHash string) (model.LedgerReceipt, error)
	CommitBatch(ctx context.Context, names, contentHashes []string) ([]model.LedgerReceipt, error)
}

// Recorder persists issued certificates. Satisfied by *project.Store.
type Recorder interface {
	AddCertificate(projectID string, cert model.Certificate) (model.Certificate, error)
}

// Config wires an Issuer's collaborators.
type Config struct {
	Project    model.Project
	Background []byte

	Renderer *render.Renderer
	Uploader Uploader
	Ledger   Committer
	Store    Recorder

	// OnProgress, when set, is called as IssueAll takes up each
	// recipient, before that recipient's render and pin.
	OnProgress func(model.Progress)
}

// Issuer drives one project through preview and issuance.
//
// Not safe for concurrent use; it models a single operator's session.
type Issuer struct {
	cfg      Config
	template model.TemplateConfig
	state    State
	cursor   int
	issued   map[int]bool // recipient index -> already committed
	lastErr  error
}

// New validates the project's inputs and returns an Issuer in the
// TemplateReady state. A draft project (no roster, or an incomplete
// template) cannot issue.
func New(cfg Config) (*Issuer, error) {
	if len(cfg.Project.Recipients) == 0 {
		return nil, model.NewError(model.KindValidation, "CERT-ISS-001", "project has no recipients; normalize a roster first")
	}
	if cfg.Project.Template == nil || !cfg.Project.Template.Complete() {
		return nil, model.NewError(model.KindValidation, "CERT-ISS-002", "template is missing field placements")
	}
	if cfg.Renderer == nil {
		cfg.Renderer = render.New(nil)
	}
	iss := &Issuer{
		cfg:      cfg,
		template: *cfg.Project.Template,
		state:    TemplateReady,
		issued:   make(map[int]bool),
	}
	for _, c := range cfg.Project.Certificates {
		for i, rec := range cfg.Project.Recipients {
			if c.RecipientRecord.ID == rec.ID {
				iss.issued[i] = true
			}
		}
	}
	return iss, nil
}

// State reports the current flow position.
func (iss *Issuer) State() State { return iss.state }

// Err returns the error that moved the Issuer to Failed, if any.
func (iss *Issuer) Err() error { return iss.lastErr }

// Cursor is the index of the recipient currently previewed.
func (iss *Issuer) Cursor() int { return iss.cursor }

// Current returns the recipient under the cursor.
func (iss *Issuer) Current() model.RecipientRecord {
	return iss.cfg.Project.Recipients[iss.cursor]
}

// Render produces the preview artifact for recipient i.
func (iss *Issuer) Render(i int) ([]byte, error) {
	if i < 0 || i >= len(iss.cfg.Project.Recipients) {
		return nil, model.NewError(model.KindValidation, "CERT-ISS-003", "recipient index out of range")
	}
	if iss.state == TemplateReady {
		iss.state = Previewing
	}
	iss.cursor = i
	return iss.cfg.Renderer.Render(iss.cfg.Background, iss.template, iss.cfg.Project.Recipients[i])
}

// Next advances the preview cursor, clamping at the last recipient.
func (iss *Issuer) Next() int {
	if iss.cursor < len(iss.cfg.Project.Recipients)-1 {
		iss.cursor++
	}
	return iss.cursor
}

// Prev moves the preview cursor back, clamping at zero.
func (iss *Issuer) Prev() int {
	if iss.cursor > 0 {
		iss.cursor--
	}
	return iss.cursor
}

// renderAndPin produces and pins one recipient's artifact.
func (iss *Issuer) renderAndPin(ctx context.Context, rec model.RecipientRecord) (model.ContentReference, error) {
	art, err := iss.cfg.Renderer.Render(iss.cfg.Background, iss.template, rec)
	if err != nil {
		return model.ContentReference{}, err
	}
	return iss.cfg.Uploader.UploadFile(ctx, render.ArtifactName(rec.StudentName), art, pin.Metadata{
		Name:        rec.StudentName,
		Description: "Certificate for " + rec.StudentName + " - " + rec.CourseName,
	})
}

// IssueCurrent issues a certificate for the recipient under the cursor:
// render, pin, commit, record. A failure leaves the cursor and every
// other recipient untouched, so the operator can retry or skip.
func (iss *Issuer) IssueCurrent(ctx context.Context) (model.Certificate, error) {
	rec := iss.Current()
	if iss.issued[iss.cursor] {
		return model.Certificate{}, model.NewError(model.KindValidation, "CERT-ISS-004",
			"recipient "+rec.StudentName+" already has a certificate in this project")
	}

	ref, err := iss.renderAndPin(ctx, rec)
	if err != nil {
		return model.Certificate{}, err
	}
	receipt, err := iss.cfg.Ledger.CommitOne(ctx, rec.StudentName, ref.Hash)
	if err != nil {
		return model.Certificate{}, err
	}
	cert := model.Certificate{
		RecipientRecord: rec,
		ContentHash:     ref.Hash,
		CertificateID:   receipt.CertificateID,
		TransactionID:   receipt.TransactionID,
	}
	if iss.cfg.Store != nil {
		stored, serr := iss.cfg.Store.AddCertificate(iss.cfg.Project.ID, cert)
		if serr != nil {
			// The ledger commit stands; surface the local bookkeeping
			// failure without discarding the receipt.
			return cert, serr
		}
		cert = stored
	}
	iss.issued[iss.cursor] = true
	iss.Next()
	if len(iss.issued) == len(iss.cfg.Project.Recipients) {
		iss.state = Complete
	}
	return cert, nil
}

// IssueAll issues certificates for every recipient in roster order:
// artifacts are rendered and pinned one by one, then a single batch
// commit records all of them in one ledger transaction.
//
// Fail-fast: the first render or pin failure aborts the whole run before
// the commit, and a commit failure aborts before anything is recorded
// locally. Artifacts pinned before an abort stay pinned; they are
// harmless orphans and the next run simply re-pins.
func (iss *Issuer) IssueAll(ctx context.Context) ([]model.Certificate, error) {
	recipients := iss.cfg.Project.Recipients
	iss.state = Issuing

	names := make([]string, 0, len(recipients))
	refs := make([]model.ContentReference, 0, len(recipients))
	for i, rec := range recipients {
		// The counter reports the item being worked on, so a failed item
		// is still visible in the last reported progress.
		if iss.cfg.OnProgress != nil {
			iss.cfg.OnProgress(model.Progress{Current: i + 1, Total: len(recipients)})
		}
		ref, err := iss.renderAndPin(ctx, rec)
		if err != nil {
			iss.state = Failed
			iss.lastErr = err
			return nil, err
		}
		names = append(names, rec.StudentName)
		refs = append(refs, ref)
	}

	hashes := make([]string, len(refs))
	for i, ref := range refs {
		hashes[i] = ref.Hash
	}
	receipts, err := iss.cfg.Ledger.CommitBatch(ctx, names, hashes)
	if err != nil {
		iss.state = Failed
		iss.lastErr = err
		return nil, err
	}
	if len(receipts) != len(recipients) {
		err := model.NewError(model.KindLedger, "CERT-LED-002",
			fmt.Sprintf("ledger confirmed %d of %d batch entries; the commit may have landed without usable ids", len(receipts), len(recipients)))
		iss.state = Failed
		iss.lastErr = err
		return nil, err
	}

	certs := make([]model.Certificate, 0, len(recipients))
	for i, rec := range recipients {
		cert := model.Certificate{
			RecipientRecord: rec,
			ContentHash:     refs[i].Hash,
			CertificateID:   receipts[i].CertificateID,
			TransactionID:   receipts[i].TransactionID,
		}
		if iss.cfg.Store != nil {
			stored, serr := iss.cfg.Store.AddCertificate(iss.cfg.Project.ID, cert)
			if serr != nil {
				iss.state = Failed
				iss.lastErr = serr
				return certs, serr
			}
			cert = stored
		}
		iss.issued[i] = true
		certs = append(certs, cert)
	}
	iss.state = Complete
	iss.lastErr = nil
	return certs, nil
}
