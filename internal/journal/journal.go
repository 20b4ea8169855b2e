// Package journal records the outcome of every notification dispatch.
//
// The journal is write-only from the dispatcher's point of view: nothing in
// the notification path ever reads it back, so it can never influence a
// notify/no-notify decision. It exists for operators digging into delivery
// behavior after the fact.
//
// Drivers:
//   - "file": dependency-free JSON Lines append log
//   - "sqlite": SQLite database file (build with -tags sqlite)
package journal

import (
	"context"
	"errors"
	"strings"
	"time"

	"visawatch/pkg/logx"
)

var ErrDisabled = errors.New("journal disabled")

// Config configures the journal. An empty or "none" driver disables it.
type Config struct {
	Driver      string
	Path        string
	BusyTimeout time.Duration // sqlite only; 0 means default
}

// Entry is one per-channel dispatch outcome. Keep it compact and
// schema-stable.
type Entry struct {
	At       time.Time  `json:"at"`
	Visa     string     `json:"visa_type"`
	Code     string     `json:"embassy_code"`
	Prev     *time.Time `json:"prev_avai_date"`
	Curr     *time.Time `json:"curr_avai_date"`
	Channel  string     `json:"channel"`
	OK       bool       `json:"ok"`
	Skipped  bool       `json:"skipped,omitempty"`
	Attempts int        `json:"attempts,omitempty"`
	Error    string     `json:"err,omitempty"`
	TookMS   int64      `json:"took_ms"`
}

// Store is the append-only journal API.
type Store interface {
	Append(ctx context.Context, e Entry) error
	Close() error
}

// Open initializes the configured store. It returns (nil, nil) if the
// journal is disabled.
func Open(cfg Config, log logx.Logger) (Store, error) {
	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	if driver == "" || driver == "none" {
		return nil, nil
	}
	if log.IsZero() {
		log = logx.Nop()
	}

	switch driver {
	case "file":
		return openFile(cfg, log)
	case "sqlite", "sqlite3":
		return openSQLite(cfg, log)
	default:
		return nil, errors.New("unknown journal driver: " + driver)
	}
}
