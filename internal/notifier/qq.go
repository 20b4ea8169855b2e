package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"visawatch/internal/visa"
	"visawatch/pkg/logx"
)

// Default routing filters: posts in the domestic set route to the domestic
// group list, posts in the non-domestic set to the non-domestic list, all
// other posts get no QQ groups at all.
var (
	defaultDomesticFilter    = []string{"bj", "sh", "gz", "sy", "bju", "shu", "gzu", "syu"}
	defaultNonDomesticFilter = []string{"sg", "gye", "lcy"}
)

type QQConfig struct {
	// BaseURL is the mirai-style group-messaging gateway.
	BaseURL string
	AuthKey string
	// Account is the bot's QQ number.
	Account int64

	DomesticGroups    []int64
	NonDomesticGroups []int64

	// DomesticFilter/NonDomesticFilter override the default post-code
	// routing sets when non-empty.
	DomesticFilter    []string
	NonDomesticFilter []string

	// Timeout bounds each gateway call. Defaults to 8s.
	Timeout time.Duration
}

// QQGateway drives the stateful gateway session: auth, verify, one group
// message per routed target (in parallel), then release. One attempt per
// event, failures swallowed by the caller.
type QQGateway struct {
	cfg         QQConfig
	domestic    map[string]struct{}
	nonDomestic map[string]struct{}
	client      *http.Client
	frontend    string
	log         logx.Logger
}

func NewQQGateway(cfg QQConfig, frontend string, log logx.Logger) *QQGateway {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 8 * time.Second
	}
	if len(cfg.DomesticFilter) == 0 {
		cfg.DomesticFilter = defaultDomesticFilter
	}
	if len(cfg.NonDomesticFilter) == 0 {
		cfg.NonDomesticFilter = defaultNonDomesticFilter
	}
	return &QQGateway{
		cfg:         cfg,
		domestic:    toSet(cfg.DomesticFilter),
		nonDomestic: toSet(cfg.NonDomesticFilter),
		client:      &http.Client{Timeout: cfg.Timeout},
		frontend:    frontend,
		log:         log,
	}
}

func toSet(codes []string) map[string]struct{} {
	m := make(map[string]struct{}, len(codes))
	for _, c := range codes {
		m[c] = struct{}{}
	}
	return m
}

func (g *QQGateway) groupsFor(code string) []int64 {
	if _, ok := g.domestic[code]; ok {
		return g.cfg.DomesticGroups
	}
	if _, ok := g.nonDomestic[code]; ok {
		return g.cfg.NonDomesticGroups
	}
	return nil
}

func (g *QQGateway) Send(ctx context.Context, ev visa.ChangeEvent) error {
	groups := g.groupsFor(ev.Post.Code)
	if len(groups) == 0 {
		return nil
	}

	session, err := g.auth(ctx)
	if err != nil {
		return fmt.Errorf("qq auth: %w", err)
	}
	// Join the per-group sends before releasing the session.
	defer g.release(ctx, session)

	if err := g.verify(ctx, session); err != nil {
		return fmt.Errorf("qq verify: %w", err)
	}

	text := fmt.Sprintf("%s\n详情: https://%s/visa/", botText(ev, time.Now()), g.frontend)

	// One task per target group; a failed group must not abort siblings,
	// so no shared cancellation here.
	var eg errgroup.Group
	for _, target := range groups {
		target := target
		eg.Go(func() error {
			if err := g.sendGroup(ctx, session, target, text); err != nil {
				g.log.Warn("qq group send failed",
					logx.Int64("group", target),
					logx.String("post", ev.Post.Code),
					logx.Err(err))
				return err
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return fmt.Errorf("qq group send: %w", err)
	}
	return nil
}

func (g *QQGateway) auth(ctx context.Context) (string, error) {
	var resp struct {
		Session string `json:"session"`
	}
	err := g.postJSON(ctx, "/auth", map[string]any{"authKey": g.cfg.AuthKey}, &resp)
	if err != nil {
		return "", err
	}
	if resp.Session == "" {
		return "", errors.New("gateway returned empty session")
	}
	return resp.Session, nil
}

func (g *QQGateway) verify(ctx context.Context, session string) error {
	return g.postJSON(ctx, "/verify", map[string]any{
		"sessionKey": session,
		"qq":         g.cfg.Account,
	}, nil)
}

func (g *QQGateway) sendGroup(ctx context.Context, session string, target int64, text string) error {
	return g.postJSON(ctx, "/sendGroupMessage", map[string]any{
		"sessionKey": session,
		"target":     target,
		"messageChain": []map[string]any{
			{"type": "Plain", "text": text},
		},
	}, nil)
}

func (g *QQGateway) release(ctx context.Context, session string) {
	err := g.postJSON(ctx, "/release", map[string]any{
		"sessionKey": session,
		"qq":         g.cfg.Account,
	}, nil)
	if err != nil {
		g.log.Debug("qq session release failed", logx.Err(err))
	}
}

func (g *QQGateway) postJSON(ctx context.Context, path string, body any, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
