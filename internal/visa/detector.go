package visa

import (
	"context"
	"time"

	"visawatch/internal/catalog"
	"visawatch/pkg/logx"
)

// Detector decides whether a newly observed availability date is an
// improvement worth broadcasting.
//
// The decision is a pure function of (history, available); the Detector
// itself holds no per-pair state. Callers must serialize calls for the same
// (visa type, post) pair — the Detector provides no ordering of its own.
type Detector struct {
	dir Directory
	log logx.Logger
}

func NewDetector(dir Directory, log logx.Logger) *Detector {
	if dir == nil {
		dir = EmptyDirectory()
	}
	return &Detector{dir: dir, log: log}
}

// Check applies the notification rule and, on a qualifying improvement,
// resolves the effective subscriber list and returns the ChangeEvent to
// dispatch. The boolean mirrors the event: true iff a notification is due.
//
// Rules:
//  1. Empty history (first run after deployment) never notifies; a cold
//     start must not cause a notification storm.
//  2. A nil available date (slot disappeared) never notifies.
//  3. Otherwise notify iff the most recent recorded date is nil, or the new
//     date is strictly earlier than it.
func (d *Detector) Check(
	ctx context.Context,
	visa catalog.VisaType,
	post catalog.Post,
	available *time.Time,
	history []Record,
) (*ChangeEvent, bool) {
	if len(history) == 0 {
		return nil, false
	}
	if available == nil {
		return nil, false
	}

	last := history[0].Available
	if last != nil && !available.Before(*last) {
		return nil, false
	}

	ev := &ChangeEvent{
		Visa: visa,
		Post: post,
		Prev: last,
		Curr: *available,
	}

	emails, err := d.dir.EffectiveEmails(ctx, visa, post.Code, *available)
	if err != nil {
		// Subscriber resolution failing must not suppress the other
		// channels; dispatch proceeds with an empty receiver list.
		d.log.Warn("subscriber lookup failed",
			logx.String("visa_type", string(visa)),
			logx.String("post", post.Code),
			logx.Err(err))
	} else {
		ev.Receivers = emails
	}

	return ev, true
}
