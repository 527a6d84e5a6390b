package refresher

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
)

// Syncer — то, что умеет пересинхронизироваться с бэкендом
// (зеркало заявок, справочник механиков).
type Syncer interface {
	Refresh(ctx context.Context) error
}

// Refresher гоняет периодическую пересинхронизацию зеркал.
// Trigger даёт внеочередной цикл: его дёргает store при NotFound
// (запись могла быть удалена другим оператором) и debug-ручка.
type Refresher struct {
	syncers  []Syncer
	interval time.Duration

	triggerCh chan struct{}

	startedAtUnixNano   int64
	lastCycleUnixNano   atomic.Int64
	lastTriggerUnixNano atomic.Int64
	totalCycles         atomic.Int64
	totalErrors         atomic.Int64
	lastErrorMu         sync.Mutex
	lastError           string
}

func New(interval time.Duration, syncers ...Syncer) *Refresher {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Refresher{
		syncers:           syncers,
		interval:          interval,
		triggerCh:         make(chan struct{}, 1),
		startedAtUnixNano: time.Now().UTC().UnixNano(),
	}
}

// Trigger форсирует цикл (best-effort, неблокирующий).
func (r *Refresher) Trigger() {
	r.lastTriggerUnixNano.Store(time.Now().UTC().UnixNano())
	select {
	case r.triggerCh <- struct{}{}:
	default:
	}
}

type Stats struct {
	StartedAt     time.Time  `json:"startedAt"`
	LastCycleAt   *time.Time `json:"lastCycleAt,omitempty"`
	LastTriggerAt *time.Time `json:"lastTriggerAt,omitempty"`
	TotalCycles   int64      `json:"totalCycles"`
	TotalErrors   int64      `json:"totalErrors"`
	LastError     string     `json:"lastError,omitempty"`
}

func (r *Refresher) Stats() Stats {
	st := Stats{
		StartedAt:   time.Unix(0, r.startedAtUnixNano).UTC(),
		TotalCycles: r.totalCycles.Load(),
		TotalErrors: r.totalErrors.Load(),
	}
	if n := r.lastCycleUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastCycleAt = &t
	}
	if n := r.lastTriggerUnixNano.Load(); n > 0 {
		t := time.Unix(0, n).UTC()
		st.LastTriggerAt = &t
	}
	r.lastErrorMu.Lock()
	st.LastError = r.lastError
	r.lastErrorMu.Unlock()
	return st
}

func (r *Refresher) Run(ctx context.Context) error {
	// Первый цикл сразу: зеркала должны наполниться до прихода UI.
	r.runOnce(ctx)

	t := time.NewTicker(r.interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.C:
			r.runOnce(ctx)
		case <-r.triggerCh:
			r.runOnce(ctx)
		}
	}
}

func (r *Refresher) runOnce(ctx context.Context) {
	r.lastCycleUnixNano.Store(time.Now().UTC().UnixNano())
	r.totalCycles.Add(1)

	for _, s := range r.syncers {
		if err := s.Refresh(ctx); err != nil {
			r.totalErrors.Add(1)
			r.lastErrorMu.Lock()
			r.lastError = err.Error()
			r.lastErrorMu.Unlock()
			slog.Error("refresh cycle", "error", err.Error())
		}
	}
}
