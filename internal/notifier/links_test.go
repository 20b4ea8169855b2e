package notifier

import (
	"net/url"
	"testing"

	"visawatch/internal/catalog"
	"visawatch/internal/visa"
)

func TestSubscriptionURL(t *testing.T) {
	t.Parallel()
	subs := []visa.Subscription{
		{Visa: catalog.VisaF, Code: "bj", Till: date(2024, 12, 31)},
		{Visa: catalog.VisaJ, Code: "sh"},
	}
	raw := subscriptionURL("visa.example.org", "who@example.com", subs)

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Parse(%q): %v", raw, err)
	}
	if u.Scheme != "https" || u.Host != "visa.example.org" || u.Path != "/visa/email/subscription" {
		t.Fatalf("unexpected base: %s", raw)
	}

	q := u.Query()
	if got := q.Get("email"); got != "who@example.com" {
		t.Fatalf("email = %q", got)
	}
	if got := q["visa_type"]; len(got) != 2 || got[0] != "F" || got[1] != "J" {
		t.Fatalf("visa_type = %v", got)
	}
	if got := q["code"]; len(got) != 2 || got[0] != "bj" || got[1] != "sh" {
		t.Fatalf("code = %v", got)
	}
	till := q["till"]
	if len(till) != 2 || till[0] != "2024/12/31" || till[1] != "FOREVER" {
		t.Fatalf("till = %v", till)
	}
}

func TestUnsubscriptionURLSingle(t *testing.T) {
	t.Parallel()
	raw := unsubscriptionURL("visa.example.org", "who@example.com",
		[]visa.Subscription{{Visa: catalog.VisaF, Code: "bj", Till: date(2025, 1, 2)}})

	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if u.Path != "/visa/email/unsubscription" {
		t.Fatalf("path = %q", u.Path)
	}
	q := u.Query()
	if q.Get("visa_type") != "F" || q.Get("code") != "bj" || q.Get("till") != "2025/01/02" {
		t.Fatalf("query = %v", q)
	}
}

func TestTillToken(t *testing.T) {
	t.Parallel()
	if got := tillToken(visa.Subscription{}); got != "FOREVER" {
		t.Fatalf("zero till = %q", got)
	}
	if got := tillToken(visa.Subscription{Till: date(9999, 12, 31)}); got != "FOREVER" {
		t.Fatalf("year 9999 = %q", got)
	}
	if got := tillToken(visa.Subscription{Till: date(2024, 5, 1)}); got != "2024/05/01" {
		t.Fatalf("bounded till = %q", got)
	}
}
