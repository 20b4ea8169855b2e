package notifier

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	tele "gopkg.in/telebot.v4"

	"visawatch/internal/visa"
	"visawatch/pkg/logx"
)

type TelegramConfig struct {
	Token string
	// Proxy is the outbound HTTP(S) proxy URL; empty means direct.
	Proxy string

	// DomesticChat receives events for domestic-region posts, OtherChat
	// everything else.
	DomesticChat int64
	OtherChat    int64

	// Timeout bounds one API call. Defaults to 8s.
	Timeout time.Duration
	// APIURL overrides the Bot API host (tests).
	APIURL string
}

// TelegramBot posts one message per event to the routed chat. One attempt,
// no retry; the outcome is checked and logged rather than silently dropped.
type TelegramBot struct {
	cfg TelegramConfig
	bot *tele.Bot
	log logx.Logger
}

func NewTelegramBot(cfg TelegramConfig, log logx.Logger) (*TelegramBot, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}

	client := &http.Client{Timeout: cfg.Timeout}
	if cfg.Proxy != "" {
		pu, err := url.Parse(cfg.Proxy)
		if err != nil {
			return nil, fmt.Errorf("telegram proxy url: %w", err)
		}
		client.Transport = &http.Transport{Proxy: http.ProxyURL(pu)}
	}

	// Offline settings: this is a send-only bot, so skip the getMe probe
	// at construction time (it would dial through the proxy on startup).
	b, err := tele.NewBot(tele.Settings{
		Token:   cfg.Token,
		URL:     cfg.APIURL,
		Client:  client,
		Offline: true,
	})
	if err != nil {
		return nil, err
	}
	return &TelegramBot{cfg: cfg, bot: b, log: log}, nil
}

func (t *TelegramBot) Send(ctx context.Context, ev visa.ChangeEvent) error {
	_ = ctx // telebot bounds the call via the client timeout

	chat := t.cfg.OtherChat
	if ev.Post.Domestic() {
		chat = t.cfg.DomesticChat
	}

	_, err := t.bot.Send(tele.ChatID(chat), botText(ev, time.Now()))
	if err != nil {
		t.log.Warn("telegram send failed",
			logx.Int64("chat_id", chat),
			logx.String("post", ev.Post.Code),
			logx.Err(err))
		return err
	}
	return nil
}
