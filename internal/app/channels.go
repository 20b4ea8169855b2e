package app

import (
	"strings"
	"time"

	"visawatch/internal/catalog"
	"visawatch/internal/config"
	"visawatch/internal/journal"
	"visawatch/internal/notifier"
	"visawatch/pkg/logx"
)

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapDispatcher(cfg *config.Config) notifier.Config {
	// Durations were validated at load time; a parse failure here falls
	// back to the default.
	timeout, _ := config.ParseDurationOrDefault("bot.channel_timeout", cfg.Bot.ChannelTimeout, 30*time.Second)
	return notifier.Config{
		Frontend:       cfg.Frontend,
		BotVisaTypes:   cfg.Bot.VisaTypes,
		ChannelTimeout: timeout,
	}
}

func mapJournal(cfg *config.Config) journal.Config {
	if cfg.Journal == nil {
		return journal.Config{}
	}
	busy, _ := config.ParseDurationField("journal.busy_timeout", cfg.Journal.BusyTimeout)
	return journal.Config{
		Driver:      cfg.Journal.Driver,
		Path:        cfg.Journal.Path,
		BusyTimeout: busy,
	}
}

func mapIntervals(cfg *config.Config) map[catalog.VisaType]time.Duration {
	out := make(map[catalog.VisaType]time.Duration, len(cfg.Poll.Intervals))
	for typ, raw := range cfg.Poll.Intervals {
		v, ok := catalog.ParseVisaType(typ)
		if !ok {
			continue
		}
		d, err := config.ParseDurationField("poll.intervals."+typ, raw)
		if err != nil || d <= 0 {
			continue
		}
		out[v] = d
	}
	return out
}

// buildChannels constructs the delivery channels the config enables. A nil
// return for a channel leaves it skipped at dispatch time.
func buildChannels(cfg *config.Config, log logx.Logger) (notifier.Mailer, notifier.Pusher, notifier.Bot, error) {
	var mailer notifier.Mailer
	if strings.TrimSpace(cfg.Email.Endpoint) != "" {
		timeout, _ := config.ParseDurationField("email.timeout", cfg.Email.Timeout)
		mailer = notifier.NewEmailEndpoint(notifier.EmailConfig{
			Endpoint:   cfg.Email.Endpoint,
			SendFrom:   cfg.Email.SendFrom,
			SendTo:     cfg.Email.SendTo,
			RatePerSec: cfg.Email.RatePerSec,
			Timeout:    timeout,
		}, log.With(logx.String("comp", "email")))
	}

	var pusher notifier.Pusher
	if cfg.Websocket != nil {
		handshake, _ := config.ParseDurationField("websocket.handshake_timeout", cfg.Websocket.HandshakeTimeout)
		write, _ := config.ParseDurationField("websocket.write_timeout", cfg.Websocket.WriteTimeout)
		pusher = notifier.NewWebsocketPusher(notifier.WebsocketConfig{
			URL:              cfg.Websocket.URL,
			Token:            cfg.Websocket.Token,
			HandshakeTimeout: handshake,
			WriteTimeout:     write,
		}, log.With(logx.String("comp", "websocket")))
	}

	var qq *notifier.QQGateway
	if cfg.QQ != nil {
		timeout, _ := config.ParseDurationField("qq.timeout", cfg.QQ.Timeout)
		qq = notifier.NewQQGateway(notifier.QQConfig{
			BaseURL:           cfg.QQ.BaseURL,
			AuthKey:           cfg.QQ.AuthKey,
			Account:           cfg.QQ.Account,
			DomesticGroups:    cfg.QQ.DomesticGroups,
			NonDomesticGroups: cfg.QQ.NonDomesticGroups,
			DomesticFilter:    cfg.QQ.DomesticFilter,
			NonDomesticFilter: cfg.QQ.NonDomesticFilter,
			Timeout:           timeout,
		}, cfg.Frontend, log.With(logx.String("comp", "qq")))
	}

	var tg *notifier.TelegramBot
	if cfg.Telegram != nil {
		timeout, _ := config.ParseDurationField("telegram.timeout", cfg.Telegram.Timeout)
		t, err := notifier.NewTelegramBot(notifier.TelegramConfig{
			Token:        cfg.Telegram.Token,
			Proxy:        cfg.Telegram.Proxy,
			DomesticChat: cfg.Telegram.DomesticChat,
			OtherChat:    cfg.Telegram.OtherChat,
			Timeout:      timeout,
		}, log.With(logx.String("comp", "telegram")))
		if err != nil {
			return nil, nil, nil, err
		}
		tg = t
	}

	var bot notifier.Bot
	if qq != nil || tg != nil {
		bot = notifier.NewBotChannel(qq, tg, log.With(logx.String("comp", "bot")))
	}
	return mailer, pusher, bot, nil
}
