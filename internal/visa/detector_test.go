package visa

import (
	"context"
	"errors"
	"testing"
	"time"

	"visawatch/internal/catalog"
	"visawatch/pkg/logx"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateP(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

type fakeDirectory struct {
	emails []string
	err    error
	calls  int
}

func (f *fakeDirectory) EffectiveEmails(_ context.Context, _ catalog.VisaType, _ string, _ time.Time) ([]string, error) {
	f.calls++
	return f.emails, f.err
}

func (f *fakeDirectory) ByEmail(context.Context, string) ([]Subscription, error) {
	return nil, nil
}

func testPost() catalog.Post {
	return catalog.Post{
		Code: "bj", NameCN: "北京", NameEN: "Beijing",
		Backend: catalog.BackendCGI, Region: "DOMESTIC",
		Country: "CHN", UTCOffset: 8, CrawlerCode: "北京",
	}
}

func TestCheckDecision(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name      string
		available *time.Time
		history   []Record
		notify    bool
	}{
		{
			name:      "cold start never notifies",
			available: dateP(2024, 5, 1),
			history:   nil,
			notify:    false,
		},
		{
			name:      "slot disappearing never notifies",
			available: nil,
			history:   []Record{{Available: dateP(2024, 5, 1)}},
			notify:    false,
		},
		{
			name:      "no previous slot notifies",
			available: dateP(2024, 6, 1),
			history:   []Record{{Available: nil}},
			notify:    true,
		},
		{
			name:      "earlier date notifies",
			available: dateP(2024, 5, 1),
			history:   []Record{{Available: dateP(2024, 5, 10)}},
			notify:    true,
		},
		{
			name:      "equal date does not notify",
			available: dateP(2024, 5, 10),
			history:   []Record{{Available: dateP(2024, 5, 10)}},
			notify:    false,
		},
		{
			name:      "later date does not notify",
			available: dateP(2024, 5, 10),
			history:   []Record{{Available: dateP(2024, 5, 1)}},
			notify:    false,
		},
		{
			name:      "only newest record counts",
			available: dateP(2024, 5, 8),
			history: []Record{
				{Available: dateP(2024, 5, 10)},
				{Available: dateP(2024, 5, 5)},
			},
			notify: true,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			det := NewDetector(&fakeDirectory{emails: []string{"a@b.c"}}, logx.Nop())
			ev, notified := det.Check(context.Background(), catalog.VisaF, testPost(), tt.available, tt.history)
			if notified != tt.notify {
				t.Fatalf("notified = %v, want %v", notified, tt.notify)
			}
			if notified && ev == nil {
				t.Fatal("notified but event is nil")
			}
			if !notified && ev != nil {
				t.Fatalf("not notified but event = %+v", ev)
			}
		})
	}
}

func TestCheckIsIdempotent(t *testing.T) {
	t.Parallel()
	det := NewDetector(&fakeDirectory{}, logx.Nop())
	hist := []Record{{Available: dateP(2024, 5, 10)}}
	avail := dateP(2024, 5, 1)

	_, first := det.Check(context.Background(), catalog.VisaJ, testPost(), avail, hist)
	_, second := det.Check(context.Background(), catalog.VisaJ, testPost(), avail, hist)
	if first != second {
		t.Fatalf("decision changed across identical calls: %v then %v", first, second)
	}
}

func TestCheckEventContents(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{emails: []string{"x@example.com", "y@example.com"}}
	det := NewDetector(dir, logx.Nop())

	ev, ok := det.Check(context.Background(), catalog.VisaF, testPost(),
		dateP(2024, 5, 1), []Record{{Available: dateP(2024, 5, 10)}})
	if !ok {
		t.Fatal("expected notification")
	}
	if ev.Prev == nil || !ev.Prev.Equal(date(2024, 5, 10)) {
		t.Fatalf("Prev = %v", ev.Prev)
	}
	if !ev.Curr.Equal(date(2024, 5, 1)) {
		t.Fatalf("Curr = %v", ev.Curr)
	}
	if len(ev.Receivers) != 2 {
		t.Fatalf("Receivers = %v", ev.Receivers)
	}
	if dir.calls != 1 {
		t.Fatalf("directory called %d times, want 1", dir.calls)
	}
}

func TestCheckLookupNotCalledWithoutImprovement(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{emails: []string{"x@example.com"}}
	det := NewDetector(dir, logx.Nop())

	_, ok := det.Check(context.Background(), catalog.VisaF, testPost(),
		dateP(2024, 5, 10), []Record{{Available: dateP(2024, 5, 1)}})
	if ok {
		t.Fatal("unexpected notification")
	}
	if dir.calls != 0 {
		t.Fatalf("directory called %d times, want 0", dir.calls)
	}
}

func TestCheckLookupFailureStillNotifies(t *testing.T) {
	t.Parallel()
	dir := &fakeDirectory{err: errors.New("store down")}
	det := NewDetector(dir, logx.Nop())

	ev, ok := det.Check(context.Background(), catalog.VisaF, testPost(),
		dateP(2024, 5, 1), []Record{{Available: dateP(2024, 5, 10)}})
	if !ok {
		t.Fatal("lookup failure must not suppress the event")
	}
	if len(ev.Receivers) != 0 {
		t.Fatalf("Receivers = %v, want empty", ev.Receivers)
	}
}

func TestSubscriptionForever(t *testing.T) {
	t.Parallel()
	if !(Subscription{}).Forever() {
		t.Fatal("zero Till should be forever")
	}
	if !(Subscription{Till: date(9999, 12, 31)}).Forever() {
		t.Fatal("year 9999 should be forever")
	}
	if (Subscription{Till: date(2024, 12, 31)}).Forever() {
		t.Fatal("bounded Till should not be forever")
	}
}
