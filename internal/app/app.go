// Package app wires the catalog, detector, dispatcher and poller together
// from one config file and keeps them running.
package app

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"visawatch/internal/catalog"
	"visawatch/internal/config"
	"visawatch/internal/eventbus"
	"visawatch/internal/journal"
	"visawatch/internal/notifier"
	"visawatch/internal/poller"
	"visawatch/internal/state"
	"visawatch/internal/visa"
	"visawatch/pkg/logx"
)

// Options carries the external collaborators this module depends on but
// does not implement. Both are optional: without a Fetcher no sweeps run,
// without a Directory the email channel has no subscribers.
type Options struct {
	Fetcher   poller.Fetcher
	Directory visa.Directory
}

type App struct {
	cfgPath string
	cfgm    *config.Manager

	logs *logx.Service
	log  logx.Logger

	cat   *catalog.Catalog
	bus   eventbus.Bus
	jrnl  journal.Store
	store state.Store

	det     *visa.Detector
	disp    *notifier.Dispatcher
	confirm *notifier.ConfirmationMailer
	poll    *poller.Poller

	cancel context.CancelFunc
	eg     *errgroup.Group
}

func New(cfgPath string, opts Options) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, err
	}

	logSvc, log := logx.New(mapLogging(cfg))
	log = log.With(logx.String("comp", "app"))
	cfgm.SetLogger(log.With(logx.String("comp", "config")))

	cat, err := catalog.Load()
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	bus := eventbus.New()

	jrnl, err := journal.Open(mapJournal(cfg), log.With(logx.String("comp", "journal")))
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	dir := opts.Directory
	if dir == nil {
		dir = visa.EmptyDirectory()
	}

	mailer, pusher, bot, err := buildChannels(cfg, log)
	if err != nil {
		logSvc.Close()
		return nil, err
	}

	disp := notifier.New(mapDispatcher(cfg), mailer, pusher, bot, bus,
		log.With(logx.String("comp", "dispatcher")))

	var confirm *notifier.ConfirmationMailer
	if mailer != nil {
		confirm = notifier.NewConfirmationMailer(mailer, dir, cat, cfg.Frontend,
			log.With(logx.String("comp", "confirm")))
	}

	store := state.NewStore()
	det := visa.NewDetector(dir, log.With(logx.String("comp", "detector")))

	a := &App{
		cfgPath: cfgPath,
		cfgm:    cfgm,
		logs:    logSvc,
		log:     log,
		cat:     cat,
		bus:     bus,
		jrnl:    jrnl,
		store:   store,
		det:     det,
		disp:    disp,
		confirm: confirm,
	}

	if opts.Fetcher != nil && cfg.Poll.Enabled {
		src := poller.NewMemorySource(store)
		a.poll = poller.New(cat, opts.Fetcher, src, det,
			func(ctx context.Context, ev visa.ChangeEvent) { disp.Dispatch(ctx, ev) },
			poller.Options{Intervals: mapIntervals(cfg)},
			log.With(logx.String("comp", "poller")))
	}

	return a, nil
}

// Start launches the config watcher, the journal consumer and the sweeps.
// It returns immediately; Stop unwinds everything.
func (a *App) Start(ctx context.Context) error {
	runCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	eg, ectx := errgroup.WithContext(runCtx)
	a.eg = eg

	eg.Go(func() error { return a.cfgm.Watch(ectx) })

	sub := a.cfgm.Subscribe(8)
	eg.Go(func() error {
		defer a.cfgm.Unsubscribe(sub)
		a.reloadLoop(ectx, sub)
		return nil
	})

	if a.jrnl != nil {
		events, unsub := a.bus.Subscribe(128)
		eg.Go(func() error {
			defer unsub()
			a.journalLoop(ectx, events)
			return nil
		})
	}

	if a.poll != nil {
		a.poll.Start(ectx)
	}

	a.log.Info("started",
		logx.String("config", a.cfgPath),
		logx.Int("posts", len(a.cat.All())),
		logx.Bool("polling", a.poll != nil),
		logx.Bool("journal", a.jrnl != nil))
	return nil
}

func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.poll != nil {
		a.poll.Stop()
	}
	if a.eg != nil {
		_ = a.eg.Wait()
	}
	if a.jrnl != nil {
		if err := a.jrnl.Close(); err != nil {
			a.log.Warn("journal close failed", logx.Err(err))
		}
	}
	a.log.Info("stopped")
	if a.logs != nil {
		_ = a.logs.Close()
	}
}

// Dispatch fans one change event out to the channels. Exposed for callers
// that detect changes outside the built-in poller.
func (a *App) Dispatch(ctx context.Context, ev visa.ChangeEvent) notifier.Outcome {
	return a.disp.Dispatch(ctx, ev)
}

// Confirmations returns the confirmation-mail sender, nil when the email
// channel is not configured.
func (a *App) Confirmations() *notifier.ConfirmationMailer { return a.confirm }

func (a *App) Catalog() *catalog.Catalog { return a.cat }

func (a *App) Detector() *visa.Detector { return a.det }

// reloadLoop applies hot-reloadable sections of each committed config.
// Channel endpoints (email, websocket, qq, telegram) and the journal are
// constructed once; changing those requires a restart.
func (a *App) reloadLoop(ctx context.Context, sub chan *config.Config) {
	lastApplied := a.cfgm.Get()
	for {
		select {
		case <-ctx.Done():
			return
		case newCfg, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts: only the newest snapshot matters.
			for {
				select {
				case newer := <-sub:
					if newer != nil {
						newCfg = newer
					}
				default:
					goto apply
				}
			}
		apply:
			sections := config.SummarizeChange(lastApplied, newCfg)
			lastApplied = newCfg

			a.logs.Apply(mapLogging(newCfg))
			a.disp.Apply(mapDispatcher(newCfg))

			for _, s := range sections {
				switch s {
				case "email", "websocket", "qq", "telegram", "journal", "poll":
					a.log.Warn("config section needs a restart to take effect",
						logx.String("section", s))
				}
			}
		}
	}
}

func (a *App) journalLoop(ctx context.Context, events <-chan eventbus.Event) {
	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			de, ok := e.Data.(notifier.DispatchEvent)
			if !ok {
				continue
			}
			entry := journal.Entry{
				At:       e.Time,
				Visa:     de.Visa,
				Code:     de.Code,
				Prev:     de.Prev,
				Curr:     de.Curr,
				Channel:  de.Channel,
				OK:       de.OK,
				Skipped:  de.Skipped,
				Attempts: de.Attempts,
				Error:    de.Error,
				TookMS:   de.TookMS,
			}
			actx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := a.jrnl.Append(actx, entry); err != nil {
				a.log.Warn("journal append failed", logx.Err(err))
			}
			cancel()
		}
	}
}
