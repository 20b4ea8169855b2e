package notifier

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"visawatch/pkg/logx"
)

// emailMaxAttempts is the fixed retry budget shared by every email flow
// (status change, subscription and unsubscription confirmations).
const emailMaxAttempts = 10

// receiverSeparator joins all recipient addresses into the single
// `receivers` form field. One POST covers every recipient of an event.
const receiverSeparator = "@@@"

// successMarker signals delivery acceptance anywhere in the response body.
// Any other body, status, timeout or connection error is a failed attempt.
const successMarker = "success"

type EmailConfig struct {
	// Endpoint is the transactional-email submission URL.
	Endpoint string
	SendFrom string
	SendTo   string
	// RatePerSec throttles submissions across flows. Defaults to 5.
	RatePerSec int
	// Timeout bounds one POST. Defaults to 8s.
	Timeout time.Duration
}

// EmailEndpoint submits mails to the external transactional-email service.
// Safe for concurrent use; the underlying http.Client carries no per-request
// state.
type EmailEndpoint struct {
	cfg    EmailConfig
	client *http.Client
	lim    *rate.Limiter
	log    logx.Logger
}

func NewEmailEndpoint(cfg EmailConfig, log logx.Logger) *EmailEndpoint {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if cfg.RatePerSec <= 0 {
		cfg.RatePerSec = 5
	}
	return &EmailEndpoint{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		lim:    rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec),
		log:    log,
	}
}

// Send submits m, retrying failed attempts up to the budget and stopping at
// the first success. Returns how many attempts were made; err is non-nil
// only when every attempt failed. Failure is not escalated beyond that:
// the caller logs or records it, subscribers never see it.
func (e *EmailEndpoint) Send(ctx context.Context, m Mail) (int, error) {
	if len(m.Receivers) == 0 {
		return 0, nil
	}

	var lastErr error
	for attempt := 1; attempt <= emailMaxAttempts; attempt++ {
		if err := e.lim.Wait(ctx); err != nil {
			return attempt, err
		}

		err := e.post(ctx, m)
		if err == nil {
			return attempt, nil
		}
		lastErr = err
		e.log.Debug("email submit failed",
			logx.Int("attempt", attempt),
			logx.Int("max", emailMaxAttempts),
			logx.Err(err))

		if attempt == emailMaxAttempts {
			break
		}
		delay := time.Duration(200+100*attempt) * time.Millisecond
		t := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			if !t.Stop() {
				<-t.C
			}
			return attempt, ctx.Err()
		case <-t.C:
		}
	}
	return emailMaxAttempts, lastErr
}

func (e *EmailEndpoint) post(ctx context.Context, m Mail) error {
	form := url.Values{}
	form.Set("title", m.Title)
	form.Set("content", m.Content)
	form.Set("receivers", strings.Join(m.Receivers, receiverSeparator))
	form.Set("sendfrom", e.cfg.SendFrom)
	form.Set("sendto", e.cfg.SendTo)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.cfg.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := e.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return err
	}
	if !strings.Contains(string(body), successMarker) {
		return fmt.Errorf("no success marker in response (status %d)", resp.StatusCode)
	}
	return nil
}
