// Package visa contains the change-detection decision logic for interview
// slot availability, plus the types shared with the notification dispatcher.
package visa

import (
	"context"
	"time"

	"visawatch/internal/catalog"
)

// Record is the last-known availability state for a (visa type, post) pair,
// as handed over by the persistence layer. Available is nil when no slot was
// published at write time.
type Record struct {
	Available *time.Time
	WrittenAt time.Time
}

// ChangeEvent is a detected improvement, ready for fan-out. Produced by the
// Detector, consumed exactly once by the dispatcher, never persisted.
type ChangeEvent struct {
	Visa catalog.VisaType
	Post catalog.Post

	// Prev is the previously known earliest date; nil when there was none.
	Prev *time.Time
	// Curr is the newly observed earliest date.
	Curr time.Time

	// Receivers is the resolved subscriber list for this exact pair.
	// May be empty; the email channel is then skipped.
	Receivers []string
}

// Subscription is one email subscription entry as the external subscription
// store reports it.
type Subscription struct {
	Visa catalog.VisaType
	Code string
	// Till bounds the subscription window. The zero value (or any year
	// >= 9999) means unbounded.
	Till    time.Time
	Expired bool
}

// Forever reports whether the subscription window is unbounded.
func (s Subscription) Forever() bool {
	return s.Till.IsZero() || s.Till.Year() >= 9999
}

// Directory is the external subscription lookup. Implementations live in the
// persistence layer; this package only consumes the interface.
type Directory interface {
	// EffectiveEmails returns the subscriber addresses for the pair whose
	// subscription window still includes available ("effective-only"
	// inclusion: a subscription till T matches only if available <= T).
	EffectiveEmails(ctx context.Context, visa catalog.VisaType, code string, available time.Time) ([]string, error)

	// ByEmail returns every subscription registered for one address.
	ByEmail(ctx context.Context, email string) ([]Subscription, error)
}

// EmptyDirectory returns a Directory with no subscribers. Used when no
// subscription store is wired; the email channel is then always skipped
// while the push and bot channels keep firing.
func EmptyDirectory() Directory { return emptyDirectory{} }

type emptyDirectory struct{}

func (emptyDirectory) EffectiveEmails(context.Context, catalog.VisaType, string, time.Time) ([]string, error) {
	return nil, nil
}

func (emptyDirectory) ByEmail(context.Context, string) ([]Subscription, error) {
	return nil, nil
}
