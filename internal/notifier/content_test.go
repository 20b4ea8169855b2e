package notifier

import (
	"strings"
	"testing"
	"time"

	"visawatch/internal/catalog"
	"visawatch/internal/visa"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dateP(y int, m time.Month, d int) *time.Time {
	t := date(y, m, d)
	return &t
}

func beijing() catalog.Post {
	return catalog.Post{
		Code: "bj", NameCN: "北京", NameEN: "Beijing",
		Backend: catalog.BackendCGI, Region: "DOMESTIC",
		Country: "CHN", UTCOffset: 8, CrawlerCode: "北京",
	}
}

func TestStatusDate(t *testing.T) {
	t.Parallel()
	if got := statusDate(nil); got != "/" {
		t.Fatalf("statusDate(nil) = %q, want /", got)
	}
	if got := statusDate(dateP(2024, 5, 1)); got != "2024/05/01" {
		t.Fatalf("statusDate = %q", got)
	}
}

func TestBotDate(t *testing.T) {
	t.Parallel()
	now := date(2024, 7, 15)
	tests := []struct {
		in   *time.Time
		want string
	}{
		{nil, "/"},
		{dateP(2024, 5, 1), "5/1"},
		{dateP(2025, 5, 1), "2025/5/1"},
	}
	for _, tt := range tests {
		if got := botDate(tt.in, now); got != tt.want {
			t.Fatalf("botDate(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestBotText(t *testing.T) {
	t.Parallel()
	ev := visa.ChangeEvent{
		Visa: catalog.VisaF,
		Post: beijing(),
		Prev: dateP(2024, 5, 10),
		Curr: date(2024, 5, 1),
	}
	got := botText(ev, date(2024, 6, 1))
	if got != "北京 F: 5/10 -> 5/1" {
		t.Fatalf("botText = %q", got)
	}
}

func TestStatusChangeMail(t *testing.T) {
	t.Parallel()
	ev := visa.ChangeEvent{
		Visa:      catalog.VisaF,
		Post:      beijing(),
		Prev:      dateP(2024, 5, 10),
		Curr:      date(2024, 5, 1),
		Receivers: []string{"a@example.com"},
	}
	m := statusChangeMail(ev, "visa.example.org", time.Now())

	if !strings.Contains(m.Title, "F1/F2 Visa Status Change") {
		t.Fatalf("title = %q", m.Title)
	}
	if !strings.Contains(m.Content, "changed from 2024/05/10 to 2024/05/01") {
		t.Fatalf("content missing status strings:\n%s", m.Content)
	}
	if !strings.Contains(m.Content, "https://visa.example.org/visa") {
		t.Fatalf("content missing status page link:\n%s", m.Content)
	}
	if len(m.Receivers) != 1 {
		t.Fatalf("receivers = %v", m.Receivers)
	}
}

func TestStatusChangeMailNoPriorSlot(t *testing.T) {
	t.Parallel()
	ev := visa.ChangeEvent{
		Visa: catalog.VisaJ,
		Post: beijing(),
		Prev: nil,
		Curr: date(2024, 6, 1),
	}
	m := statusChangeMail(ev, "visa.example.org", time.Now())
	if !strings.Contains(m.Content, "changed from / to 2024/06/01") {
		t.Fatalf("old status should render as /:\n%s", m.Content)
	}
}
