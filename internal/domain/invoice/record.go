package invoice

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Record is the persisted invoice: canonical form, verbatim source and archive state.
// It is created once and afterwards only the archive fields change.
type Record struct {
	id             string
	issuer         string
	recipient      string
	sourceFormat   string
	internalFormat string
	createdAt      time.Time
	archived       bool
	archivedAt     *time.Time
	archivedBy     string
}

// NewRecord builds a fresh record with a generated id.
func NewRecord(issuer, recipient, rawSource string, canonical *Canonical, now time.Time) (Record, error) {
	if issuer == "" {
		return Record{}, fmt.Errorf("issuer is required")
	}
	if recipient == "" {
		return Record{}, fmt.Errorf("recipient is required")
	}
	internal, err := canonical.Marshal()
	if err != nil {
		return Record{}, err
	}
	return Record{
		id:             uuid.NewString(),
		issuer:         issuer,
		recipient:      recipient,
		sourceFormat:   rawSource,
		internalFormat: internal,
		createdAt:      now.UTC(),
	}, nil
}

// Reconstruct hydrates a record from storage without validation.
func Reconstruct(
	id, issuer, recipient, sourceFormat, internalFormat string, createdAt time.Time,
	archived bool, archivedAt *time.Time, archivedBy string,
) Record {
	return Record{
		id: id, issuer: issuer, recipient: recipient,
		sourceFormat: sourceFormat, internalFormat: internalFormat, createdAt: createdAt,
		archived: archived, archivedAt: archivedAt, archivedBy: archivedBy,
	}
}

// ID returns the record identifier.
func (r *Record) ID() string { return r.id }

// Issuer returns the supplier id.
func (r *Record) Issuer() string { return r.issuer }

// Recipient returns the organization id.
func (r *Record) Recipient() string { return r.recipient }

// SourceFormat returns the raw payload verbatim.
func (r *Record) SourceFormat() string { return r.sourceFormat }

// InternalFormat returns the serialized canonical invoice.
func (r *Record) InternalFormat() string { return r.internalFormat }

// CreatedAt returns the creation time.
func (r *Record) CreatedAt() time.Time { return r.createdAt }

// Archived reports the archive flag.
func (r *Record) Archived() bool { return r.archived }

// ArchivedAt returns when the record was archived, nil when active.
func (r *Record) ArchivedAt() *time.Time { return r.archivedAt }

// ArchivedBy returns who archived the record.
func (r *Record) ArchivedBy() string { return r.archivedBy }

// Canonical decodes the internal format.
func (r *Record) Canonical() (Canonical, error) { return Unmarshal(r.internalFormat) }

// IsParty reports whether userID is the issuer or the recipient.
func (r *Record) IsParty(userID string) bool {
	return userID != "" && (userID == r.issuer || userID == r.recipient)
}

// Archive sets the archive flag and stamps who and when.
func (r *Record) Archive(userID string, now time.Time) {
	at := now.UTC()
	r.archived = true
	r.archivedAt = &at
	r.archivedBy = userID
}

// Restore clears the archive flag and its audit stamp.
func (r *Record) Restore() {
	r.archived = false
	r.archivedAt = nil
	r.archivedBy = ""
}
