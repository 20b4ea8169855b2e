package poller

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"visawatch/internal/catalog"
	"visawatch/internal/visa"
	"visawatch/pkg/logx"
)

// Fetcher is the external availability crawler. Implementations live
// outside this module.
type Fetcher interface {
	// EarliestAvailable returns the earliest published interview date for
	// the pair, nil when no slot is currently published.
	EarliestAvailable(ctx context.Context, v catalog.VisaType, post catalog.Post) (*time.Time, error)
}

// DispatchFunc receives each detected improvement exactly once.
type DispatchFunc func(ctx context.Context, ev visa.ChangeEvent)

// defaultIntervals spaces the sweep per visa type. F/J move fastest and
// matter most to subscribers, so they get the tightest cadence.
var defaultIntervals = map[catalog.VisaType]time.Duration{
	catalog.VisaF: 60 * time.Second,
	catalog.VisaJ: 60 * time.Second,
	catalog.VisaB: 2 * time.Minute,
	catalog.VisaH: 3 * time.Minute,
	catalog.VisaO: 3 * time.Minute,
	catalog.VisaL: 3 * time.Minute,
}

type Options struct {
	// Intervals overrides the default per-type cadence for the listed
	// types; unlisted types keep their defaults.
	Intervals map[catalog.VisaType]time.Duration
}

// Poller owns one cron entry per visa type. Each tick sweeps every post of
// the catalog sequentially, so observations for one pair are naturally
// serialized and the detector never races itself.
type Poller struct {
	cat      *catalog.Catalog
	fetch    Fetcher
	src      Source
	det      *visa.Detector
	dispatch DispatchFunc
	log      logx.Logger

	intervals map[catalog.VisaType]time.Duration
	// sweeping holds one mutex per visa type; a tick that finds the
	// previous sweep still running is skipped rather than queued.
	sweeping map[catalog.VisaType]*sync.Mutex

	mu sync.Mutex
	c  *cron.Cron

	baseCtx context.Context
}

func New(cat *catalog.Catalog, fetch Fetcher, src Source, det *visa.Detector, dispatch DispatchFunc, opts Options, log logx.Logger) *Poller {
	intervals := make(map[catalog.VisaType]time.Duration, len(defaultIntervals))
	for v, d := range defaultIntervals {
		intervals[v] = d
	}
	for v, d := range opts.Intervals {
		if d > 0 {
			intervals[v] = d
		}
	}

	sweeping := make(map[catalog.VisaType]*sync.Mutex, len(intervals))
	for v := range intervals {
		sweeping[v] = &sync.Mutex{}
	}

	return &Poller{
		cat:       cat,
		fetch:     fetch,
		src:       src,
		det:       det,
		dispatch:  dispatch,
		log:       log,
		intervals: intervals,
		sweeping:  sweeping,
	}
}

// Start schedules the sweeps. The ctx bounds every fetch and dispatch made
// from the cron entries; Stop (or ctx cancellation) ends them.
func (p *Poller) Start(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.c != nil {
		return
	}
	p.baseCtx = ctx

	c := cron.New()
	for _, v := range catalog.VisaTypes() {
		v := v
		iv, ok := p.intervals[v]
		if !ok {
			continue
		}
		c.Schedule(cron.Every(iv), cron.FuncJob(func() { p.Sweep(p.baseCtx, v) }))
		p.log.Debug("sweep scheduled",
			logx.String("visa_type", string(v)),
			logx.Duration("every", iv))
	}
	c.Start()
	p.c = c

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
}

// Stop halts scheduling and waits for running sweeps to finish.
func (p *Poller) Stop() {
	p.mu.Lock()
	c := p.c
	p.c = nil
	p.mu.Unlock()
	if c == nil {
		return
	}
	<-c.Stop().Done()
}

// Sweep checks every catalog post for one visa type. Overlapping sweeps of
// the same type are skipped, not queued.
func (p *Poller) Sweep(ctx context.Context, v catalog.VisaType) {
	mu := p.sweeping[v]
	if mu == nil || !mu.TryLock() {
		p.log.Debug("sweep still running; tick skipped", logx.String("visa_type", string(v)))
		return
	}
	defer mu.Unlock()

	start := time.Now()
	checked, changed := 0, 0
	for _, post := range p.cat.All() {
		if ctx.Err() != nil {
			return
		}
		if p.sweepPair(ctx, v, post) {
			changed++
		}
		checked++
	}
	p.log.Debug("sweep finished",
		logx.String("visa_type", string(v)),
		logx.Int("posts", checked),
		logx.Int("changes", changed),
		logx.Duration("took", time.Since(start)))
}

func (p *Poller) sweepPair(ctx context.Context, v catalog.VisaType, post catalog.Post) bool {
	available, err := p.fetch.EarliestAvailable(ctx, v, post)
	if err != nil {
		p.log.Warn("availability fetch failed",
			logx.String("visa_type", string(v)),
			logx.String("post", post.Code),
			logx.Err(err))
		return false
	}

	hist, err := p.src.LatestWritten(ctx, v, post.Code)
	if err != nil {
		p.log.Warn("history read failed",
			logx.String("visa_type", string(v)),
			logx.String("post", post.Code),
			logx.Err(err))
		return false
	}

	ev, notify := p.det.Check(ctx, v, post, available, hist)

	// The observation becomes the new baseline regardless of the decision;
	// a cold-started pair starts notifying from its second observation.
	if err := p.src.Append(ctx, v, post.Code, visa.Record{Available: available, WrittenAt: time.Now()}); err != nil {
		p.log.Warn("history append failed",
			logx.String("visa_type", string(v)),
			logx.String("post", post.Code),
			logx.Err(err))
	}

	if !notify {
		return false
	}
	p.dispatch(ctx, *ev)
	return true
}
