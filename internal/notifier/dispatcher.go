package notifier

import (
	"context"
	"fmt"
	"sync"
	"time"

	"visawatch/internal/catalog"
	"visawatch/internal/eventbus"
	"visawatch/internal/visa"
	"visawatch/pkg/logx"
)

// Config controls dispatcher behavior. Zero values get defaults.
type Config struct {
	// Frontend is the public status-page host, used in email bodies.
	Frontend string
	// BotVisaTypes is the allow-list of visa types forwarded to the bot
	// channel. Defaults to F and J.
	BotVisaTypes []string
	// ChannelTimeout bounds each channel attempt, internal retries
	// included. Defaults to 30s.
	ChannelTimeout time.Duration
}

// Dispatcher fans one ChangeEvent out to the three channels concurrently.
//
// Idempotence note: the dispatcher sends whatever it is handed. Callers
// must not dispatch the same event twice; the change detector's decision
// rules are the only dedup layer.
type Dispatcher struct {
	mu     sync.Mutex
	cfg    Config
	allow  map[catalog.VisaType]struct{}
	mailer Mailer
	pusher Pusher
	bot    Bot

	bus eventbus.Bus
	log logx.Logger
}

// New builds a Dispatcher. Any of mailer/pusher/bot may be nil; the matching
// channel is then reported as skipped.
func New(cfg Config, mailer Mailer, pusher Pusher, bot Bot, bus eventbus.Bus, log logx.Logger) *Dispatcher {
	d := &Dispatcher{mailer: mailer, pusher: pusher, bot: bot, bus: bus, log: log}
	d.applyLocked(cfg)
	return d
}

// Apply swaps config at runtime (bot allow-list, timeouts). Safe for
// concurrent use with Dispatch.
func (d *Dispatcher) Apply(cfg Config) {
	d.mu.Lock()
	d.applyLocked(cfg)
	d.mu.Unlock()
}

func (d *Dispatcher) applyLocked(cfg Config) {
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = 30 * time.Second
	}
	if len(cfg.BotVisaTypes) == 0 {
		cfg.BotVisaTypes = []string{"F", "J"}
	}
	allow := make(map[catalog.VisaType]struct{}, len(cfg.BotVisaTypes))
	for _, s := range cfg.BotVisaTypes {
		if v, ok := catalog.ParseVisaType(s); ok {
			allow[v] = struct{}{}
		}
	}
	d.cfg = cfg
	d.allow = allow
}

// Dispatch attempts all three channels concurrently and returns their
// independent outcomes. It never returns an error and never panics out;
// the slowest channel determines only its own latency.
func (d *Dispatcher) Dispatch(ctx context.Context, ev visa.ChangeEvent) Outcome {
	d.mu.Lock()
	cfg := d.cfg
	allow := d.allow
	mailer := d.mailer
	pusher := d.pusher
	bot := d.bot
	d.mu.Unlock()

	var out Outcome
	var wg sync.WaitGroup

	run := func(res *ChannelResult, name string, attempt func(context.Context) (int, bool, error)) {
		defer wg.Done()
		start := time.Now()
		res.Channel = name

		cctx, cancel := context.WithTimeout(ctx, cfg.ChannelTimeout)
		defer cancel()

		func() {
			defer func() {
				if r := recover(); r != nil {
					res.Err = fmt.Errorf("panic in %s channel: %v", name, r)
					d.log.Error("channel panicked", logx.String("channel", name), logx.Any("panic", r))
				}
			}()
			attempts, skipped, err := attempt(cctx)
			res.Attempts = attempts
			res.Skipped = skipped
			res.Err = err
			res.OK = err == nil && !skipped
		}()

		res.Took = time.Since(start)
		d.report(ev, *res)
	}

	wg.Add(3)
	go run(&out.Email, ChannelEmail, func(cctx context.Context) (int, bool, error) {
		if mailer == nil || len(ev.Receivers) == 0 {
			return 0, true, nil
		}
		attempts, err := mailer.Send(cctx, statusChangeMail(ev, cfg.Frontend, time.Now()))
		return attempts, false, err
	})
	go run(&out.Websocket, ChannelWebsocket, func(cctx context.Context) (int, bool, error) {
		if pusher == nil {
			return 0, true, nil
		}
		return 1, false, pusher.Push(cctx, ev)
	})
	go run(&out.Bot, ChannelBot, func(cctx context.Context) (int, bool, error) {
		if bot == nil {
			return 0, true, nil
		}
		if _, ok := allow[ev.Visa]; !ok {
			return 0, true, nil
		}
		return 1, false, bot.Send(cctx, ev)
	})
	wg.Wait()

	return out
}

func (d *Dispatcher) report(ev visa.ChangeEvent, res ChannelResult) {
	if res.Err != nil {
		d.log.Warn("channel delivery failed",
			logx.String("channel", res.Channel),
			logx.String("visa_type", string(ev.Visa)),
			logx.String("post", ev.Post.Code),
			logx.Int("attempts", res.Attempts),
			logx.Duration("took", res.Took),
			logx.Err(res.Err))
	} else if !res.Skipped {
		d.log.Info("channel delivered",
			logx.String("channel", res.Channel),
			logx.String("visa_type", string(ev.Visa)),
			logx.String("post", ev.Post.Code),
			logx.Int("attempts", res.Attempts),
			logx.Duration("took", res.Took))
	}

	if d.bus == nil {
		return
	}
	typ := "dispatch.sent"
	if res.Skipped {
		typ = "dispatch.skipped"
	} else if res.Err != nil {
		typ = "dispatch.failed"
	}
	curr := ev.Curr
	payload := DispatchEvent{
		Channel:  res.Channel,
		Visa:     string(ev.Visa),
		Code:     ev.Post.Code,
		Prev:     ev.Prev,
		Curr:     &curr,
		OK:       res.OK,
		Skipped:  res.Skipped,
		Attempts: res.Attempts,
		TookMS:   res.Took.Milliseconds(),
	}
	if res.Err != nil {
		payload.Error = res.Err.Error()
	}
	d.bus.Publish(eventbus.Event{Type: typ, Data: payload})
}
