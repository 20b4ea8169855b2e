// Package poller periodically sweeps every (visa type, post) pair through
// the external availability fetcher and hands detected improvements to the
// notification dispatcher.
package poller

import (
	"context"
	"fmt"
	"sync"

	"visawatch/internal/catalog"
	"visawatch/internal/state"
	"visawatch/internal/visa"
)

// Source is the availability history the change detector reads from and the
// poller appends to. The durable implementation lives outside this module;
// MemorySource keeps a process-local history for single-instance runs.
type Source interface {
	// LatestWritten returns the newest-first history for one pair. An
	// unknown pair returns an empty slice, not an error.
	LatestWritten(ctx context.Context, v catalog.VisaType, code string) ([]visa.Record, error)

	// Append records one observation as the new head of the history.
	Append(ctx context.Context, v catalog.VisaType, code string, rec visa.Record) error
}

// historyKeep bounds the per-pair history length. The detector only reads
// the head; the tail exists for operator inspection.
const historyKeep = 64

type pairHistory struct {
	mu   sync.Mutex
	recs []visa.Record // newest first
}

// MemorySource stores per-pair histories in a shared state store, one entry
// per (visa type, post) key.
type MemorySource struct {
	store state.Store
}

func NewMemorySource(store state.Store) *MemorySource {
	return &MemorySource{store: store}
}

func historyKey(v catalog.VisaType, code string) string {
	return fmt.Sprintf("history/%s/%s", v, code)
}

func (s *MemorySource) pair(v catalog.VisaType, code string) *pairHistory {
	return s.store.GetOrInit(historyKey(v, code), &pairHistory{}).(*pairHistory)
}

func (s *MemorySource) LatestWritten(_ context.Context, v catalog.VisaType, code string) ([]visa.Record, error) {
	p := s.pair(v, code)
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]visa.Record, len(p.recs))
	copy(out, p.recs)
	return out, nil
}

func (s *MemorySource) Append(_ context.Context, v catalog.VisaType, code string, rec visa.Record) error {
	p := s.pair(v, code)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.recs = append([]visa.Record{rec}, p.recs...)
	if len(p.recs) > historyKeep {
		p.recs = p.recs[:historyKeep]
	}
	return nil
}
