package models

import (
	"time"
)

// Practice kinds, as assigned by admins on a PracticeDefinition
const (
	KindCollectiveAccumulation = "collective_accumulation"
	KindPractice               = "practice"
)

// User represents a site account in the system
type User struct {
	ID        string    `db:"id" json:"id"`
	Email     string    `db:"email" json:"email"`
	Name      string    `db:"name" json:"name"`
	Password  string    `db:"password" json:"-"` // Password hash, not returned in JSON
	IsStaff   bool      `db:"is_staff" json:"isStaff"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// Category is an access-control tag attachable to both users and teachings
type Category struct {
	ID   string `db:"id" json:"id"`
	Slug string `db:"slug" json:"slug"`
	Name string `db:"name" json:"name"`
}

// Teaching is a content page gated by zero or more categories.
// An empty category set means the teaching is public.
type Teaching struct {
	ID        string    `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	Title     string    `db:"title" json:"title"`
	Body      string    `db:"body" json:"body"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`

	// Category slugs assigned to this teaching, loaded separately
	Categories []string `db:"-" json:"categories"`
}

// PracticeDefinition is an admin-managed activity users may track
type PracticeDefinition struct {
	ID        string    `db:"id" json:"id"`
	Slug      string    `db:"slug" json:"slug"`
	Name      string    `db:"name" json:"name"`
	Kind      string    `db:"kind" json:"kind"` // collective_accumulation or practice
	IsActive  bool      `db:"is_active" json:"isActive"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt time.Time `db:"updated_at" json:"updatedAt"`
}

// TrackedPractice is a user's subscription to a PracticeDefinition.
// At most one exists per (user, definition) pair. Archiving flips
// IsActive off; log entries are kept and still counted.
type TrackedPractice struct {
	ID           string    `db:"id" json:"id"`
	UserID       string    `db:"user_id" json:"userId"`
	DefinitionID string    `db:"definition_id" json:"definitionId"`
	IsActive     bool      `db:"is_active" json:"isActive"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}

// LogEntry is one quantified submission against a tracked practice.
// UserID is denormalized from the TrackedPractice and always re-derived
// at write time. Mantras is derived (malas x 108), never user-supplied.
type LogEntry struct {
	ID                string    `db:"id" json:"id"`
	TrackedPracticeID string    `db:"tracked_practice_id" json:"trackedPracticeId"`
	UserID            string    `db:"user_id" json:"userId"`
	Malas             int       `db:"malas" json:"malas"`
	Hours             int       `db:"hours" json:"hours"`
	Minutes           int       `db:"minutes" json:"minutes"`
	Mantras           int       `db:"mantras" json:"mantras"`
	EntryDate         time.Time `db:"entry_date" json:"entryDate"`
	Notes             string    `db:"notes" json:"notes"`
	CreatedAt         time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt         time.Time `db:"updated_at" json:"updatedAt"`
}
