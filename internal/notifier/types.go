// Package notifier fans a detected availability change out to the email,
// websocket-push, and chat-bot channels.
//
// Channel contract: the three channels are fully isolated. A slow or failing
// channel affects only its own outcome and never escalates out of Dispatch.
// The dispatcher performs no deduplication of its own; deciding whether an
// event is worth sending at all is the change detector's job.
package notifier

import (
	"context"
	"time"

	"visawatch/internal/visa"
)

const (
	ChannelEmail     = "email"
	ChannelWebsocket = "websocket"
	ChannelBot       = "bot"
)

// Mail is one transactional email submission.
type Mail struct {
	Title     string
	Content   string
	Receivers []string
}

// Mailer submits a Mail to the transactional-email endpoint, retrying up to
// its budget. Returns the number of attempts actually made.
type Mailer interface {
	Send(ctx context.Context, m Mail) (attempts int, err error)
}

// Pusher delivers one change event to the websocket relay. Best-effort:
// callers discard the error beyond logging/recording it.
type Pusher interface {
	Push(ctx context.Context, ev visa.ChangeEvent) error
}

// Bot delivers one change event to the chat-bot targets (QQ groups,
// Telegram chats). One attempt, no retry.
type Bot interface {
	Send(ctx context.Context, ev visa.ChangeEvent) error
}

// ChannelResult is the per-channel outcome of one dispatch.
type ChannelResult struct {
	Channel  string
	OK       bool
	Skipped  bool
	Attempts int
	Err      error
	Took     time.Duration
}

// Outcome aggregates the three independent channel results.
type Outcome struct {
	Email     ChannelResult
	Websocket ChannelResult
	Bot       ChannelResult
}

// DispatchEvent is the bus payload published once per channel per dispatch.
type DispatchEvent struct {
	Channel  string
	Visa     string
	Code     string
	Prev     *time.Time
	Curr     *time.Time
	OK       bool
	Skipped  bool
	Attempts int
	Error    string
	TookMS   int64
}
