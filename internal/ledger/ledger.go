// Package ledger holds the practice tracker's pure rules: log entry
// validation, write-time derivation, and per-practice aggregation.
// It owns no storage; callers feed it resolved records.
package ledger

import (
	"errors"

	"github.com/drupchen/dupr-server/internal/models"
)

// MantrasPerMala converts malas to mantras. One mala is 108
// repetitions; the multiplier is fixed rather than per-definition.
const MantrasPerMala = 108

// Validation error codes surfaced to the submitting user
const (
	CodeNoActivityRecorded = "NO_ACTIVITY_RECORDED"
	CodeMinutesOutOfRange  = "MINUTES_OUT_OF_RANGE"
)

// ErrOwnershipMismatch indicates a stored entry whose denormalized
// owner disagrees with its tracked practice. PrepareForStorage makes
// this unreachable through normal writes, so an observation means a
// caller bug and is treated as fatal, not corrected.
var ErrOwnershipMismatch = errors.New("log entry owner does not match tracked practice owner")

// ValidationError is a user-input rejection, recoverable by
// resubmission.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Candidate is a parsed, type-checked entry submission. Nil fields
// were absent from the input; explicit zeros stay zeros.
type Candidate struct {
	Malas   *int
	Hours   *int
	Minutes *int
}

// ValidatedEntry is a normalized candidate: all three quantities
// defined, with hours and minutes defaulted to 0 where only one time
// component was supplied.
type ValidatedEntry struct {
	Malas   int
	Hours   int
	Minutes int
}

// Validate normalizes a candidate and rejects entries that record
// nothing. A submission with every field explicitly zero is rejected,
// not silently accepted: zero is valid input that never satisfies
// "positive". Minutes outside [0,59] are rejected even though the
// input layer should already constrain them.
func Validate(c Candidate) (ValidatedEntry, error) {
	var entry ValidatedEntry
	if c.Malas != nil {
		entry.Malas = *c.Malas
	}
	if c.Hours != nil {
		entry.Hours = *c.Hours
	}
	if c.Minutes != nil {
		entry.Minutes = *c.Minutes
	}

	if entry.Malas <= 0 && entry.Hours <= 0 && entry.Minutes <= 0 {
		return ValidatedEntry{}, &ValidationError{
			Code:    CodeNoActivityRecorded,
			Message: "at least one of malas, hours or minutes must be positive",
		}
	}

	if c.Minutes != nil && (*c.Minutes < 0 || *c.Minutes > 59) {
		return ValidatedEntry{}, &ValidationError{
			Code:    CodeMinutesOutOfRange,
			Message: "minutes must be between 0 and 59",
		}
	}

	return entry, nil
}

// PrepareForStorage derives the stored form of an entry from its
// tracked practice. The owner and tracked practice reference are
// always taken from the TrackedPractice, never from the input entry,
// so a tampered foreign key cannot attribute an entry to another
// user. Mantras is recomputed from malas.
func PrepareForStorage(entry models.LogEntry, tracked models.TrackedPractice) models.LogEntry {
	entry.TrackedPracticeID = tracked.ID
	entry.UserID = tracked.UserID
	entry.Mantras = entry.Malas * MantrasPerMala
	return entry
}

// VerifyOwner checks the denormalized-owner invariant on a stored
// entry. See ErrOwnershipMismatch.
func VerifyOwner(entry models.LogEntry, tracked models.TrackedPractice) error {
	if entry.UserID != tracked.UserID {
		return ErrOwnershipMismatch
	}
	return nil
}

// Summary is the running total for one tracked practice. Time totals
// are the grand total of entry minutes split for display: TotalHours
// holds whole hours, TotalMinutes the 0-59 remainder.
type Summary struct {
	TotalMalas   int
	TotalMantras int
	TotalHours   int
	TotalMinutes int
	HasEntries   bool
}

// Summarize folds a practice's log entries into running totals.
// Summation order is irrelevant; the hour/minute split uses integer
// division throughout, never rounding partial hours.
func Summarize(entries []models.LogEntry) Summary {
	var s Summary

	totalMinutes := 0
	for _, e := range entries {
		s.TotalMalas += e.Malas
		totalMinutes += e.Hours*60 + e.Minutes
	}

	s.TotalMantras = s.TotalMalas * MantrasPerMala
	s.TotalHours = totalMinutes / 60
	s.TotalMinutes = totalMinutes % 60
	s.HasEntries = len(entries) > 0

	return s
}
