package domain

import (
	"fmt"
	"time"
)

// Kind distinguishes the two record types the matcher operates on.
type Kind string

// Record kinds.
const (
	KindResume Kind = "resume"
	KindJob    Kind = "job"
)

// Valid reports whether k is a known record kind.
func (k Kind) Valid() bool {
	return k == KindResume || k == KindJob
}

// TextRecord is a stored text with its embedding and metadata.
// Records are immutable once embedded; a resume resubmission overwrites
// the record for the same owner.
type TextRecord struct {
	ID        string
	Kind      Kind
	OwnerID   string // set for resumes, empty for jobs
	Text      string
	Embedding []float32
	CreatedAt time.Time
	Source    map[string]string // export message id, date, session
}

// Validate checks the persistence invariants: a known kind, non-empty text,
// and a non-empty embedding of the canonical dimension.
func (r *TextRecord) Validate(wantDim int) error {
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown record kind %q: %w", r.Kind, ErrInvalidInput)
	}
	if r.Text == "" {
		return fmt.Errorf("empty record text: %w", ErrInvalidInput)
	}
	if len(r.Embedding) == 0 {
		return fmt.Errorf("record %s has no embedding: %w", r.ID, ErrVectorDimMismatch)
	}
	if wantDim > 0 && len(r.Embedding) != wantDim {
		return fmt.Errorf("record %s embedding has %d dimensions, want %d: %w",
			r.ID, len(r.Embedding), wantDim, ErrVectorDimMismatch)
	}
	return nil
}

// Session returns the import session tag of a job record, if any.
func (r *TextRecord) Session() string {
	return r.Source["session"]
}
