package notifier

import (
	"context"
	"fmt"
	"strings"

	"visawatch/internal/catalog"
	"visawatch/internal/visa"
	"visawatch/pkg/logx"
)

const subscriptionConfirmTitle = "(PLEASE CONFIRM) - Your Subscription at %s"

const subscriptionConfirmContent = `
    Dear %s:<br>
    <br>
    This email is to confirm the subscription request from %s for the
    following visa types and embassies/consulates.<br>
    <b>Please confirm by following <a href="%s">this link</a></b>.
    Otherwise, the request above will be cleared.<br>
    %s
    <br>
    Sincerely,<br>
    %s<br>
    <br>
    Please note: this message was sent from a notification-only address that
    cannot accept incoming email. Please do not reply.<br>
`

const unsubscriptionConfirmTitle = "(PLEASE CONFIRM) - Your Unsubscription from %s"

const unsubscriptionConfirmContent = `
    Dear %s:<br>
    <br>
    This email is to confirm %s for unsubscription of the following visa
    types and embassies/consulates.<br>
    <ul>
    <li>ALL: Click <a href="%s">this link</a> to unsubscribe all subscriptions.</li>
    %s
    </ul>
    <br>
    Sincerely,<br>
    %s<br>
    <br>
    Please note: this message was sent from a notification-only address that
    cannot accept incoming email. Please do not reply.<br>
`

const unsubscriptionEmptyTitle = "You don't have any subscription in %s"

const unsubscriptionEmptyContent = `
    Dear %s:<br>
    <br>
    The email address %s has no subscription at %s.
    <br>
    Feel free to check out <a href="https://%s/visa">our website</a> for U.S.
    visa interview appointment info around the globe!<br>
    <br>
    Sincerely,<br>
    %s<br>
`

// ConfirmationMailer builds and sends the subscription/unsubscription
// confirmation emails. It shares the Mailer (and so its 10-attempt retry
// budget) with the status-change flow.
type ConfirmationMailer struct {
	mailer   Mailer
	dir      visa.Directory
	cat      *catalog.Catalog
	frontend string
	log      logx.Logger
}

func NewConfirmationMailer(mailer Mailer, dir visa.Directory, cat *catalog.Catalog, frontend string, log logx.Logger) *ConfirmationMailer {
	if dir == nil {
		dir = visa.EmptyDirectory()
	}
	return &ConfirmationMailer{mailer: mailer, dir: dir, cat: cat, frontend: frontend, log: log}
}

// SendSubscriptionConfirmation emails one confirmation link covering every
// newly created subscription. Returns whether the mail was delivered.
func (c *ConfirmationMailer) SendSubscriptionConfirmation(ctx context.Context, email string, subs []visa.Subscription) (bool, error) {
	confirmURL := subscriptionURL(c.frontend, email, subs)

	items := make([]string, 0, len(subs))
	for _, s := range subs {
		items = append(items, fmt.Sprintf("<li>%s Visa at %s till %s.</li>",
			s.Visa.Detail(), c.postName(s.Code), tillToken(s)))
	}
	listing := fmt.Sprintf("<ul>\n%s\n</ul>", strings.Join(items, "\n"))

	attempts, err := c.mailer.Send(ctx, Mail{
		Title: fmt.Sprintf(subscriptionConfirmTitle, c.frontend),
		Content: fmt.Sprintf(subscriptionConfirmContent,
			localPart(email), email, confirmURL, listing, c.frontend),
		Receivers: []string{email},
	})
	if err != nil {
		c.log.Warn("subscription confirmation not delivered",
			logx.String("email", email), logx.Int("attempts", attempts), logx.Err(err))
		return false, err
	}
	return true, nil
}

// SendUnsubscriptionConfirmation emails per-subscription unsubscribe links
// plus one unsubscribe-all link. An address with zero active subscriptions
// gets the distinct "nothing to unsubscribe" template instead.
func (c *ConfirmationMailer) SendUnsubscriptionConfirmation(ctx context.Context, email string) (bool, error) {
	subs, err := c.dir.ByEmail(ctx, email)
	if err != nil {
		return false, fmt.Errorf("subscription lookup: %w", err)
	}

	var m Mail
	if len(subs) == 0 {
		m = Mail{
			Title: fmt.Sprintf(unsubscriptionEmptyTitle, email),
			Content: fmt.Sprintf(unsubscriptionEmptyContent,
				localPart(email), email, c.frontend, c.frontend, c.frontend),
			Receivers: []string{email},
		}
	} else {
		items := make([]string, 0, len(subs))
		for _, s := range subs {
			status := "expiring"
			if s.Expired {
				status = "expired"
			}
			items = append(items, fmt.Sprintf(
				`<li>%s Visa at %s %s on %s: click <a href="%s">this link</a> to unsubscribe.</li>`,
				s.Visa.Detail(), c.postName(s.Code), status, tillToken(s),
				unsubscriptionURL(c.frontend, email, []visa.Subscription{s})))
		}
		m = Mail{
			Title: fmt.Sprintf(unsubscriptionConfirmTitle, c.frontend),
			Content: fmt.Sprintf(unsubscriptionConfirmContent,
				localPart(email), email,
				unsubscriptionURL(c.frontend, email, subs),
				strings.Join(items, "\n"), c.frontend),
			Receivers: []string{email},
		}
	}

	attempts, err := c.mailer.Send(ctx, m)
	if err != nil {
		c.log.Warn("unsubscription confirmation not delivered",
			logx.String("email", email), logx.Int("attempts", attempts), logx.Err(err))
		return false, err
	}
	return true, nil
}

func (c *ConfirmationMailer) postName(code string) string {
	if c.cat != nil {
		if p, ok := c.cat.ByCode(code); ok {
			return p.NameEN
		}
	}
	return "None"
}

func localPart(email string) string {
	if i := strings.IndexByte(email, '@'); i > 0 {
		return email[:i]
	}
	return email
}
