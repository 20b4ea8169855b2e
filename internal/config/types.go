package config

// Config is the full runtime configuration. Channel sections (websocket,
// qq, telegram) are pointers; a nil section leaves that channel unwired.
//
// All durations are Go duration strings (e.g. "500ms", "8s", "2m").
type Config struct {
	Logging LoggingConfig `json:"logging"`

	// Frontend is the public status-page host (no scheme), used for links
	// in emails and bot messages.
	Frontend string `json:"frontend"`

	Email     EmailConfig      `json:"email"`
	Websocket *WebsocketConfig `json:"websocket,omitempty"`
	QQ        *QQConfig        `json:"qq,omitempty"`
	Telegram  *TelegramConfig  `json:"telegram,omitempty"`

	Bot     BotConfig      `json:"bot"`
	Poll    PollConfig     `json:"poll"`
	Journal *JournalConfig `json:"journal,omitempty"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// EmailConfig points at the outbound mail relay. An empty endpoint
// disables the email channel.
type EmailConfig struct {
	Endpoint   string `json:"endpoint"`
	SendFrom   string `json:"sendfrom"`
	SendTo     string `json:"sendto,omitempty"`
	RatePerSec int    `json:"rate_per_sec,omitempty"`
	Timeout    string `json:"timeout,omitempty"`
}

type WebsocketConfig struct {
	URL   string `json:"url"`
	Token string `json:"token,omitempty"`
	// HandshakeTimeout/WriteTimeout default to 5s each.
	HandshakeTimeout string `json:"handshake_timeout,omitempty"`
	WriteTimeout     string `json:"write_timeout,omitempty"`
}

type QQConfig struct {
	BaseURL string `json:"base_url"`
	AuthKey string `json:"auth_key"`
	Account int64  `json:"account"`

	DomesticGroups    []int64 `json:"domestic_groups,omitempty"`
	NonDomesticGroups []int64 `json:"non_domestic_groups,omitempty"`

	// Filters override the default post-code routing sets when non-empty.
	DomesticFilter    []string `json:"domestic_filter,omitempty"`
	NonDomesticFilter []string `json:"non_domestic_filter,omitempty"`

	Timeout string `json:"timeout,omitempty"`
}

type TelegramConfig struct {
	Token string `json:"token"`
	// Proxy is an outbound HTTP(S) proxy URL; empty means direct.
	Proxy string `json:"proxy,omitempty"`

	DomesticChat int64 `json:"domestic_chat"`
	OtherChat    int64 `json:"other_chat"`

	Timeout string `json:"timeout,omitempty"`
}

// BotConfig gates the combined QQ/Telegram channel.
type BotConfig struct {
	// VisaTypes is the allow-list of types forwarded to the bot channel.
	// Defaults to ["F", "J"].
	VisaTypes []string `json:"visa_types,omitempty"`
	// ChannelTimeout bounds one dispatcher channel attempt. Default "30s".
	ChannelTimeout string `json:"channel_timeout,omitempty"`
}

// PollConfig controls the availability sweep.
type PollConfig struct {
	Enabled bool `json:"enabled"`
	// Intervals maps visa type to a sweep interval, e.g. {"F": "60s"}.
	// Types without an entry use built-in defaults.
	Intervals map[string]string `json:"intervals,omitempty"`
}

// JournalConfig controls the dispatch-outcome journal.
//
// Example:
//
//	"journal": { "driver": "file", "path": "./dispatch.jsonl" }
type JournalConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // Go duration string (sqlite)
}
