package notifier

import (
	"fmt"
	"time"

	"visawatch/internal/visa"
)

// statusDate renders an availability date for email bodies: "YYYY/MM/DD",
// or "/" when no slot was known.
func statusDate(t *time.Time) string {
	if t == nil {
		return "/"
	}
	return t.Format("2006/01/02")
}

// botDate renders an availability date for chat messages. Current-year
// dates drop the year, and there is no zero padding.
func botDate(t *time.Time, now time.Time) string {
	if t == nil {
		return "/"
	}
	if t.Year() == now.Year() {
		return fmt.Sprintf("%d/%d", int(t.Month()), t.Day())
	}
	return fmt.Sprintf("%d/%d/%d", t.Year(), int(t.Month()), t.Day())
}

// botText is the one-line message sent to QQ groups and Telegram chats,
// e.g. "北京 F: 5/10 -> 5/1".
func botText(ev visa.ChangeEvent, now time.Time) string {
	curr := ev.Curr
	return fmt.Sprintf("%s %s: %s -> %s",
		ev.Post.NameCN, ev.Visa, botDate(ev.Prev, now), botDate(&curr, now))
}

const statusChangeTitle = "[%s] %s Visa Status Change"

const statusChangeContent = `
    %s<br>
    %s changed from %s to %s.<br>
    <br>
    See <a href="https://%s/visa">https://%s/visa</a> for more detail.<br>
    If you want to change your subscribe option, please re-submit a request over
    <a href="https://%s/visa">https://%s/visa</a>.
`

// statusChangeMail builds the localized status-change notification for the
// email channel. The send time is rendered in the post's local zone.
func statusChangeMail(ev visa.ChangeEvent, frontend string, now time.Time) Mail {
	curr := ev.Curr
	return Mail{
		Title: fmt.Sprintf(statusChangeTitle, frontend, ev.Visa.Detail()),
		Content: fmt.Sprintf(statusChangeContent,
			now.In(ev.Post.TimeZone()).Format("2006/01/02 15:04:05"),
			ev.Post.NameEN,
			statusDate(ev.Prev),
			statusDate(&curr),
			frontend, frontend, frontend, frontend,
		),
		Receivers: ev.Receivers,
	}
}
