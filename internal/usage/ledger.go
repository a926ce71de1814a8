package usage

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/wagiedev/subagent-go/internal/message"
	"github.com/wagiedev/subagent-go/internal/task"
)

// Entry is one folded task in the ledger.
type Entry struct {
	TaskID    string        `json:"taskId"`
	Model     string        `json:"model"`
	Outcome   string        `json:"outcome"`
	Usage     message.Usage `json:"usage"`
	Timestamp time.Time     `json:"timestamp"`
}

// Store persists ledger entries across sessions.
type Store interface {
	// Append persists one entry.
	Append(ctx context.Context, entry Entry) error

	// Load returns every persisted entry in append order.
	Load(ctx context.Context) ([]Entry, error)
}

// Config configures a Ledger. Every field is optional.
type Config struct {
	// Logger receives debug output. If nil, logging is disabled.
	Logger *slog.Logger

	// Store persists entries. If nil, the ledger lives in memory only.
	Store Store

	// Registerer receives the ledger's Prometheus counters.
	Registerer prometheus.Registerer

	// OnFold is called with the running total after every applied fold.
	// It runs with the ledger locked and must not call back into it.
	OnFold func(total message.Usage)
}

const (
	outcomeSucceeded = "succeeded"
	outcomeFailed    = "failed"
	outcomeAborted   = "aborted"
)

// Ledger accumulates usage over a session. Each task is counted at most
// once, keyed by its state ID.
type Ledger struct {
	log     *slog.Logger
	store   Store
	metrics *metricsProvider
	onFold  func(message.Usage)

	mu       sync.Mutex
	total    message.Usage
	folded   map[string]struct{}
	restored bool
}

// NewLedger creates an empty ledger.
func NewLedger(cfg *Config) *Ledger {
	if cfg == nil {
		cfg = &Config{}
	}

	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	log = log.With("component", "ledger")

	metrics, err := newMetricsProvider(cfg.Registerer)
	if err != nil {
		log.Warn("Usage metrics disabled", "error", err)
	}

	return &Ledger{
		log:     log,
		store:   cfg.Store,
		metrics: metrics,
		onFold:  cfg.OnFold,
		folded:  make(map[string]struct{}),
	}
}

// Restore loads persisted entries into the running total. Only the first
// call reads the store; later calls return nil.
func (l *Ledger) Restore(ctx context.Context) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.restored {
		return nil
	}

	l.restored = true

	if l.store == nil {
		return nil
	}

	entries, err := l.store.Load(ctx)
	if err != nil {
		return err
	}

	for _, entry := range entries {
		if _, seen := l.folded[entry.TaskID]; seen && entry.TaskID != "" {
			continue
		}

		if entry.TaskID != "" {
			l.folded[entry.TaskID] = struct{}{}
		}

		l.total.Add(entry.Usage)
	}

	l.log.Debug("Restored ledger", "entries", len(entries), "cost", l.total.Cost)

	return nil
}

// Fold adds the state's usage to the ledger and reports whether it was
// applied. States with zero usage and states already folded are skipped.
//
// A store failure is logged; the in-memory total still includes the task.
func (l *Ledger) Fold(ctx context.Context, state *task.State) bool {
	if state == nil || state.Usage.IsZero() {
		return false
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if _, seen := l.folded[state.ID]; seen {
		return false
	}

	l.folded[state.ID] = struct{}{}
	l.total.Add(state.Usage)

	entry := Entry{
		TaskID:    state.ID,
		Model:     state.Model,
		Outcome:   outcome(state),
		Usage:     state.Usage,
		Timestamp: time.Now().UTC(),
	}

	l.metrics.Observe(entry.Model, entry.Outcome, entry.Usage)

	if l.store != nil {
		if err := l.store.Append(ctx, entry); err != nil {
			l.log.Warn("Failed to persist ledger entry", "task_id", state.ID, "error", err)
		}
	}

	l.log.Debug("Folded task usage", "task_id", state.ID, "model", state.Model, "total_cost", l.total.Cost)

	if l.onFold != nil {
		l.onFold(l.total)
	}

	return true
}

// Total returns the running total.
func (l *Ledger) Total() message.Usage {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.total
}

func outcome(state *task.State) string {
	switch {
	case task.Aborted(state):
		return outcomeAborted
	case task.Failed(state):
		return outcomeFailed
	default:
		return outcomeSucceeded
	}
}

// Summary is a per-model breakdown of ledger entries.
type Summary struct {
	Total   message.Usage            `json:"total"`
	ByModel map[string]message.Usage `json:"byModel"`
	Tasks   int                      `json:"tasks"`
}

// Summarize totals entries overall and per model.
func Summarize(entries []Entry) Summary {
	s := Summary{ByModel: make(map[string]message.Usage)}

	for _, entry := range entries {
		s.Total.Add(entry.Usage)

		u := s.ByModel[entry.Model]
		u.Add(entry.Usage)
		s.ByModel[entry.Model] = u
		s.Tasks++
	}

	return s
}
