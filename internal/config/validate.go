package config

import (
	"fmt"
	"strings"

	"visawatch/internal/catalog"
)

// Validate rejects configs with values that would only fail later at
// dispatch time. Called on every load and reload.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}

	if strings.Contains(cfg.Frontend, "://") {
		return fmt.Errorf("frontend: host only, no scheme: %q", cfg.Frontend)
	}

	durations := []struct{ path, raw string }{
		{"email.timeout", cfg.Email.Timeout},
		{"bot.channel_timeout", cfg.Bot.ChannelTimeout},
	}
	if cfg.Websocket != nil {
		durations = append(durations,
			struct{ path, raw string }{"websocket.handshake_timeout", cfg.Websocket.HandshakeTimeout},
			struct{ path, raw string }{"websocket.write_timeout", cfg.Websocket.WriteTimeout})
	}
	if cfg.QQ != nil {
		durations = append(durations, struct{ path, raw string }{"qq.timeout", cfg.QQ.Timeout})
	}
	if cfg.Telegram != nil {
		durations = append(durations, struct{ path, raw string }{"telegram.timeout", cfg.Telegram.Timeout})
	}
	if cfg.Journal != nil {
		durations = append(durations, struct{ path, raw string }{"journal.busy_timeout", cfg.Journal.BusyTimeout})
	}
	for _, d := range durations {
		if _, err := ParseDurationField(d.path, d.raw); err != nil {
			return err
		}
	}

	for _, s := range cfg.Bot.VisaTypes {
		if _, ok := catalog.ParseVisaType(s); !ok {
			return fmt.Errorf("bot.visa_types: unknown visa type %q", s)
		}
	}
	for typ, raw := range cfg.Poll.Intervals {
		if _, ok := catalog.ParseVisaType(typ); !ok {
			return fmt.Errorf("poll.intervals: unknown visa type %q", typ)
		}
		d, err := ParseDurationField("poll.intervals."+typ, raw)
		if err != nil {
			return err
		}
		if d <= 0 {
			return fmt.Errorf("poll.intervals.%s: interval must be > 0", typ)
		}
	}

	if cfg.QQ != nil && strings.TrimSpace(cfg.QQ.BaseURL) == "" {
		return fmt.Errorf("qq.base_url: required when the qq section is present")
	}
	if cfg.Telegram != nil && strings.TrimSpace(cfg.Telegram.Token) == "" {
		return fmt.Errorf("telegram.token: required when the telegram section is present")
	}
	if cfg.Websocket != nil && strings.TrimSpace(cfg.Websocket.URL) == "" {
		return fmt.Errorf("websocket.url: required when the websocket section is present")
	}
	if cfg.Journal != nil {
		switch strings.TrimSpace(cfg.Journal.Driver) {
		case "", "none", "file", "sqlite":
		default:
			return fmt.Errorf("journal.driver: unknown driver %q", cfg.Journal.Driver)
		}
	}
	return nil
}
