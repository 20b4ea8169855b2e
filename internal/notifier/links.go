package notifier

import (
	"net/url"

	"visawatch/internal/visa"
)

const (
	subscriptionPath   = "/visa/email/subscription"
	unsubscriptionPath = "/visa/email/unsubscription"

	// foreverToken marks an unbounded subscription expiry in links and
	// email bodies.
	foreverToken = "FOREVER"
)

// tillToken renders a subscription expiry for URLs and bodies.
func tillToken(s visa.Subscription) string {
	if s.Forever() {
		return foreverToken
	}
	return s.Till.Format("2006/01/02")
}

// subscriptionURL is the confirmation link for newly created subscriptions:
// `email` once, then one visa_type/code/till triple per subscription item.
// Replaying the link is harmless; confirmation is idempotent on the
// frontend side.
func subscriptionURL(frontend, email string, subs []visa.Subscription) string {
	return buildLink(frontend, subscriptionPath, email, subs)
}

// unsubscriptionURL aggregates every given subscription into one
// unsubscribe link. With a single element it doubles as the per-
// subscription unsubscribe link.
func unsubscriptionURL(frontend, email string, subs []visa.Subscription) string {
	return buildLink(frontend, unsubscriptionPath, email, subs)
}

func buildLink(frontend, path, email string, subs []visa.Subscription) string {
	q := url.Values{}
	q.Set("email", email)
	for _, s := range subs {
		q.Add("visa_type", string(s.Visa))
		q.Add("code", s.Code)
		q.Add("till", tillToken(s))
	}
	u := url.URL{Scheme: "https", Host: frontend, Path: path, RawQuery: q.Encode()}
	return u.String()
}
