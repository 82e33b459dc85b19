package model

import "time"

// RecipientRecord is one normalized row of recipient data.
//
// ID is the 1-based position in the source sequence. It is stable for the
// lifetime of one normalization pass and is NOT unique across separate
// uploads. Records are immutable once produced.
type RecipientRecord struct {
	ID                 int    `json:"id"`
	StudentName        string `json:"studentName"`
	RegistrationNumber string `json:"registrationNumber"`
	SchoolName         string `json:"schoolName"`
	CourseName         string `json:"courseName"`
}

// FieldKey names one of the four semantic template fields.
type FieldKey string

const (
	FieldStudentName        FieldKey = "studentName"
	FieldRegistrationNumber FieldKey = "registrationNumber"
	FieldSchoolName         FieldKey = "schoolName"
	FieldCourseName         FieldKey = "courseName"
)

// FieldKeys is the canonical field order used for rendering and validation.
var FieldKeys = []FieldKey{
	FieldStudentName,
	FieldRegistrationNumber,
	FieldSchoolName,
	FieldCourseName,
}

// Value returns the record value for the field, or "" for an unknown key.
func (k FieldKey) Value(rec RecipientRecord) string {
	switch k {
	case FieldStudentName:
		return rec.StudentName
	case FieldRegistrationNumber:
		return rec.RegistrationNumber
	case FieldSchoolName:
		return rec.SchoolName
	case FieldCourseName:
		return rec.CourseName
	}
	return ""
}

// FieldStyle positions and styles one overlaid text field.
// Coordinates are pixels with a top-left origin.
type FieldStyle struct {
	Left       float64 `json:"left"`
	Top        float64 `json:"top"`
	FontSize   float64 `json:"fontSize"`
	FontFamily string  `json:"fontFamily"`
	FillColor  string  `json:"fillColor"`
}

// Default canvas dimensions when a template leaves them unset.
const (
	DefaultTemplateWidth  = 800
	DefaultTemplateHeight = 600
)

// TemplateConfig is the output of template authoring: canvas dimensions plus
// a position/style per semantic field. A config missing any of the four
// field keys is a draft; drafts must never reach the renderer or the
// orchestrator.
type TemplateConfig struct {
	Width  int                     `json:"width"`
	Height int                     `json:"height"`
	Fields map[FieldKey]FieldStyle `json:"fields"`
}

// Complete reports whether all four semantic fields are configured.
func (t TemplateConfig) Complete() bool {
	for _, k := range FieldKeys {
		if _, ok := t.Fields[k]; !ok {
			return false
		}
	}
	return true
}

// ContentReference identifies a pinned artifact. Hash is the durable,
// globally unique identity; URL is a gateway convenience derived from it.
type ContentReference struct {
	Hash      string    `json:"hash"`
	URL       string    `json:"url"`
	SizeBytes int64     `json:"sizeBytes"`
	PinnedAt  time.Time `json:"pinnedAt"`
}

// LedgerReceipt is the confirmation returned by a ledger commit.
// CertificateID is assigned by the ledger and is the only externally
// verifiable identity of an issuance.
type LedgerReceipt struct {
	CertificateID string `json:"certificateId"`
	TransactionID string `json:"transactionId"`
	BlockRef      string `json:"blockRef,omitempty"`
}

// LedgerRecord is a committed certificate as read back from the ledger.
type LedgerRecord struct {
	StudentName string `json:"studentName"`
	ContentHash string `json:"contentHash"`
	Issuer      string `json:"issuer"`
	Timestamp   int64  `json:"timestamp"`
	IsValid     bool   `json:"isValid"`
}

// Certificate is the local projection of one successful issuance: the
// recipient data plus the remote identities. Created only after a
// successful ledger commit, never speculatively.
type Certificate struct {
	RecipientRecord
	ContentHash   string    `json:"contentHash"`
	CertificateID string    `json:"certificateId"`
	TransactionID string    `json:"transactionId"`
	LocalID       string    `json:"localId"`
	CreatedAt     time.Time `json:"createdAt"`
}

// Project groups one cohort's recipients, template, and resulting
// certificates. UpdatedAt refreshes on every mutation to any nested
// collection. The certificate list is append-only from the orchestrator's
// perspective; deletion is a whole-project operation.
type Project struct {
	ID           string            `json:"id"`
	Name         string            `json:"name"`
	Description  string            `json:"description"`
	CreatedAt    time.Time         `json:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt"`
	Recipients   []RecipientRecord `json:"recipients,omitempty"`
	Template     *TemplateConfig   `json:"template,omitempty"`
	Certificates []Certificate     `json:"certificates"`
}

// Session is the locally persisted signer identity for the current operator.
type Session struct {
	Address string    `json:"address"`
	Network string    `json:"network"`
	SavedAt time.Time `json:"savedAt"`
}

// Progress is the monotone {current, total} counter surfaced by the
// orchestrator across its suspension points.
type Progress struct {
	Current int `json:"current"`
	Total   int `json:"total"`
}
