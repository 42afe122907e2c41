package domain

import (
	"fmt"
	"time"
)

// Verdict is a user's opinion on one match.
type Verdict string

// Feedback verdicts.
const (
	VerdictAccept Verdict = "accept"
	VerdictReject Verdict = "reject"
	VerdictRating Verdict = "rating"
)

// Valid reports whether v is a known verdict.
func (v Verdict) Valid() bool {
	return v == VerdictAccept || v == VerdictReject || v == VerdictRating
}

// Feedback is one append-only user feedback entry for a (resume, job) pair.
// Entries are never mutated; multiple entries per pair are allowed and the
// latest wins for any "current opinion" read.
type Feedback struct {
	ID          string
	ResumeID    string
	JobID       string
	Verdict     Verdict
	Rating      int // 1..5, set only when Verdict == VerdictRating
	Comment     string
	SubmittedAt time.Time
}

// Validate checks that identifiers are well-formed and the verdict is known.
// It deliberately does not check that a MatchResult exists for the pair.
func (f *Feedback) Validate() error {
	if f.ResumeID == "" || f.JobID == "" {
		return fmt.Errorf("feedback requires resume_id and job_id: %w", ErrInvalidInput)
	}
	if !f.Verdict.Valid() {
		return fmt.Errorf("unknown verdict %q: %w", f.Verdict, ErrInvalidInput)
	}
	if f.Verdict == VerdictRating && (f.Rating < 1 || f.Rating > 5) {
		return fmt.Errorf("rating must be 1..5, got %d: %w", f.Rating, ErrInvalidInput)
	}
	return nil
}
