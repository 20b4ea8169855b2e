package notifier

import (
	"context"
	"net/url"
	"time"

	"github.com/gorilla/websocket"

	"visawatch/internal/visa"
	"visawatch/pkg/logx"
)

type WebsocketConfig struct {
	// URL is the push-relay endpoint (ws:// or wss://).
	URL string
	// Token is appended as a bearer-style query parameter.
	Token string
	// HandshakeTimeout defaults to 5s, WriteTimeout to 5s.
	HandshakeTimeout time.Duration
	WriteTimeout     time.Duration
}

// wsPayload is the single JSON text frame pushed per event. Dates are
// encoded in the encoder's standard format, null when absent.
type wsPayload struct {
	VisaType    string     `json:"visa_type"`
	EmbassyCode string     `json:"embassy_code"`
	Prev        *time.Time `json:"prev_avai_date"`
	Curr        time.Time  `json:"curr_avai_date"`
}

// WebsocketPusher opens one short-lived authenticated connection per event,
// sends one frame and closes. Best-effort by contract: the dispatcher
// records the returned error but never propagates it.
type WebsocketPusher struct {
	cfg    WebsocketConfig
	dialer *websocket.Dialer
	log    logx.Logger
}

func NewWebsocketPusher(cfg WebsocketConfig, log logx.Logger) *WebsocketPusher {
	if cfg.HandshakeTimeout <= 0 {
		cfg.HandshakeTimeout = 5 * time.Second
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = 5 * time.Second
	}
	return &WebsocketPusher{
		cfg:    cfg,
		dialer: &websocket.Dialer{HandshakeTimeout: cfg.HandshakeTimeout},
		log:    log,
	}
}

func (p *WebsocketPusher) Push(ctx context.Context, ev visa.ChangeEvent) error {
	endpoint := p.cfg.URL
	if p.cfg.Token != "" {
		endpoint += "?token=" + url.QueryEscape(p.cfg.Token)
	}

	conn, _, err := p.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return err
	}
	defer conn.Close()

	_ = conn.SetWriteDeadline(time.Now().Add(p.cfg.WriteTimeout))
	err = conn.WriteJSON(wsPayload{
		VisaType:    string(ev.Visa),
		EmbassyCode: ev.Post.Code,
		Prev:        ev.Prev,
		Curr:        ev.Curr,
	})
	if err != nil {
		return err
	}

	// Polite close; the frame is already on the wire.
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return nil
}
