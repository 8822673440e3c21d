// Package usecase contains application business logic.
package usecase

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"screentime/internal/domain"
)

// EngineConfig holds timer engine configuration.
type EngineConfig struct {
	// TickPeriod is the accrual re-evaluation period per running app.
	// Zero disables background ticks; Tick must then be called
	// explicitly (used by tests).
	TickPeriod time.Duration
}

// DefaultEngineConfig returns the default engine configuration.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{TickPeriod: time.Second}
}

// Engine is the usage-timer and limit-enforcement state machine. It
// owns the ledger for the process lifetime: every mutation goes
// through an Engine operation, and every mutation is persisted
// best-effort before the operation returns.
//
// One mutex serializes user operations and accrual ticks. Each
// running app has its own ticker goroutine; the goroutine only ever
// calls Tick, which re-derives usage from BaseUsed/StartedAt under
// the mutex, so a tick firing "simultaneously" with Stop can never
// double-count or resurrect a stopped app.
type Engine struct {
	mu       sync.Mutex
	ledger   *domain.Ledger
	store    domain.LedgerStore
	clock    domain.Clock
	notifier domain.Notifier
	defaults func() *domain.Ledger
	logger   *zap.Logger

	config  EngineConfig
	tickers map[string]chan struct{}
	wg      sync.WaitGroup
}

// NewEngine builds the engine and rehydrates its ledger: from the
// store if a usable snapshot exists, from defaults otherwise. Apps
// persisted as running are treated as having kept running in the
// background; their usage is recomputed from the persisted start
// time, limit crossing is evaluated immediately, and their accrual
// ticks are re-armed.
func NewEngine(
	config EngineConfig,
	store domain.LedgerStore,
	clock domain.Clock,
	notifier domain.Notifier,
	defaults func() *domain.Ledger,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}

	e := &Engine{
		store:    store,
		clock:    clock,
		notifier: notifier,
		defaults: defaults,
		logger:   logger,
		config:   config,
		tickers:  make(map[string]chan struct{}),
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	ledger, err := store.Load()
	if err != nil {
		if !errors.Is(err, domain.ErrSnapshotNotFound) {
			logger.Warn("snapshot unreadable, starting from defaults", zap.Error(err))
		}
		ledger = defaults()
	}
	e.ledger = ledger

	e.resumeLocked()
	return e
}

// resumeLocked re-evaluates every app persisted as running.
func (e *Engine) resumeLocked() {
	now := e.clock.Now()
	changed := false

	for _, a := range e.ledger.Apps {
		if !a.Running {
			continue
		}
		changed = true

		if a.StartedAt == nil {
			// Inconsistent snapshot; settle the app as stopped.
			a.Running = false
			a.BaseUsed = a.UsedSeconds
			continue
		}

		if e.accrueLocked(a, now) {
			e.logger.Info("app crossed its limit while away",
				zap.String("app", a.ID),
				zap.Int64("used_seconds", a.UsedSeconds))
			continue
		}

		e.armTickerLocked(a.ID)
		e.logger.Info("resumed running app",
			zap.String("app", a.ID),
			zap.Int64("used_seconds", a.UsedSeconds))
	}

	if changed {
		e.persistLocked()
	}
}

// Start begins accrual for the app. Starting an app already at or
// over its limit fails with domain.ErrLimitReached and changes
// nothing; starting an app that is already running is a no-op.
func (e *Engine) Start(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.ledger.App(id)
	if a == nil {
		return fmt.Errorf("start %q: %w", id, domain.ErrAppNotFound)
	}
	if a.Running {
		return nil
	}
	if !a.Unlimited() && a.UsedSeconds >= a.LimitSeconds {
		return fmt.Errorf("start %q: %w", id, domain.ErrLimitReached)
	}

	now := e.clock.Now()
	started := now
	a.Running = true
	a.StartedAt = &started
	a.BaseUsed = a.UsedSeconds
	e.ledger.EventLog = append(e.ledger.EventLog,
		domain.NewEvent(domain.EventStart, id, now, false))

	e.armTickerLocked(id)
	e.persistLocked()
	e.notify(domain.Notification{
		Kind:    domain.NoticeUpdate,
		AppID:   id,
		Message: fmt.Sprintf("%s timer started", a.Label),
	})
	return nil
}

// Stop ends accrual for the app, finalizing its usage. Stopping an
// app that is not running is a no-op, not an error.
func (e *Engine) Stop(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.ledger.App(id)
	if a == nil {
		return fmt.Errorf("stop %q: %w", id, domain.ErrAppNotFound)
	}
	if !a.Running {
		return nil
	}

	now := e.clock.Now()
	a.UsedSeconds = a.BaseUsed + e.elapsedSeconds(a, now)
	if !a.Unlimited() && a.UsedSeconds > a.LimitSeconds {
		a.UsedSeconds = a.LimitSeconds
	}
	e.finishLocked(a, now, false)

	e.persistLocked()
	e.notify(domain.Notification{
		Kind:    domain.NoticeUpdate,
		AppID:   id,
		Message: fmt.Sprintf("%s timer stopped", a.Label),
	})
	return nil
}

// Tick re-evaluates accrual and limit status for one app. Invoked by
// the per-app scheduler, not by external callers. Idempotent: with no
// elapsed time it produces no observable change. A stale tick for an
// app that was stopped in the meantime is a no-op.
func (e *Engine) Tick(id string) {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.ledger.App(id)
	if a == nil || !a.Running || a.StartedAt == nil {
		return
	}

	now := e.clock.Now()
	if e.accrueLocked(a, now) {
		e.persistLocked()
		e.notify(domain.Notification{
			Kind:    domain.NoticeLimitReached,
			AppID:   id,
			Message: fmt.Sprintf("%s limit reached and locked", a.Label),
		})
		return
	}

	e.persistLocked()
	e.notify(domain.Notification{Kind: domain.NoticeUpdate, AppID: id})
}

// SetLimit updates the per-app limit from a minutes value (rounded to
// whole seconds). It never retroactively stops a running app, even if
// it is newly over the limit; the next tick settles that. A stopped
// app over the new limit is clamped immediately.
func (e *Engine) SetLimit(id string, minutes float64) error {
	if minutes < 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return fmt.Errorf("limit %v minutes: %w", minutes, domain.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.ledger.App(id)
	if a == nil {
		return fmt.Errorf("set limit %q: %w", id, domain.ErrAppNotFound)
	}

	a.LimitSeconds = int64(math.Round(minutes * 60))
	if !a.Running && !a.Unlimited() && a.UsedSeconds > a.LimitSeconds {
		a.UsedSeconds = a.LimitSeconds
		a.BaseUsed = a.UsedSeconds
	}

	e.persistLocked()
	e.notify(domain.Notification{
		Kind:    domain.NoticeUpdate,
		AppID:   id,
		Message: fmt.Sprintf("%s limit updated to %g minutes", a.Label, minutes),
	})
	return nil
}

// SetTotalLimit updates the aggregate limit. Purely advisory for the
// dashboard; it never auto-stops apps.
func (e *Engine) SetTotalLimit(minutes float64) error {
	if minutes < 0 || math.IsNaN(minutes) || math.IsInf(minutes, 0) {
		return fmt.Errorf("total limit %v minutes: %w", minutes, domain.ErrInvalidInput)
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	e.ledger.TotalLimitSeconds = int64(math.Round(minutes * 60))
	e.persistLocked()
	e.notify(domain.Notification{
		Kind:    domain.NoticeUpdate,
		Message: fmt.Sprintf("total daily limit set to %g minutes", minutes),
	})
	return nil
}

// ResetUsage zeroes one app's usage, stopping it first if running.
func (e *Engine) ResetUsage(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	a := e.ledger.App(id)
	if a == nil {
		return fmt.Errorf("reset %q: %w", id, domain.ErrAppNotFound)
	}

	e.resetAppLocked(a)
	e.persistLocked()
	e.notify(domain.Notification{
		Kind:    domain.NoticeUpdate,
		AppID:   id,
		Message: fmt.Sprintf("%s usage reset", a.Label),
	})
	return nil
}

// ResetAllUsage zeroes every app's usage, stopping running ones first.
// Limits and the ledger identity are untouched.
func (e *Engine) ResetAllUsage() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, a := range e.ledger.Apps {
		e.resetAppLocked(a)
	}
	e.persistLocked()
	e.notify(domain.Notification{Kind: domain.NoticeUpdate, Message: "all app usage reset"})
}

func (e *Engine) resetAppLocked(a *domain.App) {
	if a.Running {
		now := e.clock.Now()
		a.UsedSeconds = a.BaseUsed + e.elapsedSeconds(a, now)
		if !a.Unlimited() && a.UsedSeconds > a.LimitSeconds {
			a.UsedSeconds = a.LimitSeconds
		}
		e.finishLocked(a, now, false)
	}
	a.UsedSeconds = 0
	a.BaseUsed = 0
	a.StartedAt = nil
}

// ResetAll discards the ledger and the durable snapshot and starts
// over from the default configuration. This is the only operation
// that replaces the ledger identity rather than mutating it.
func (e *Engine) ResetAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	for id := range e.tickers {
		e.cancelTickerLocked(id)
	}
	if err := e.store.Clear(); err != nil {
		e.logger.Warn("failed to clear snapshot", zap.Error(err))
	}

	e.ledger = e.defaults()
	e.persistLocked()
	e.notify(domain.Notification{Kind: domain.NoticeUpdate, Message: "all data reset to defaults"})
}

// LockAll stops every running app and pins every limited app's usage
// to its limit, locking it. Apps without a limit cannot be locked and
// are unaffected.
func (e *Engine) LockAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	for _, a := range e.ledger.Apps {
		if a.Running {
			a.UsedSeconds = a.BaseUsed + e.elapsedSeconds(a, now)
			e.finishLocked(a, now, false)
		}
		if !a.Unlimited() {
			a.UsedSeconds = a.LimitSeconds
			a.BaseUsed = a.UsedSeconds
		}
	}

	e.persistLocked()
	e.notify(domain.Notification{Kind: domain.NoticeUpdate, Message: "all applications locked"})
}

// UnlockAll stops every running app and clamps usage to at most the
// limit. It does not reduce usage below the limit, so an app locked
// by reaching its limit stays exactly at it; unlock by raising the
// limit or resetting usage.
func (e *Engine) UnlockAll() {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock.Now()
	for _, a := range e.ledger.Apps {
		if a.Running {
			a.UsedSeconds = a.BaseUsed + e.elapsedSeconds(a, now)
			e.finishLocked(a, now, false)
		}
		if !a.Unlimited() && a.UsedSeconds > a.LimitSeconds {
			a.UsedSeconds = a.LimitSeconds
		}
		a.BaseUsed = a.UsedSeconds
	}

	e.persistLocked()
	e.notify(domain.Notification{Kind: domain.NoticeUpdate, Message: "all applications unlocked"})
}

// Snapshot returns a read-only deep copy of the ledger, settled as of
// now. Safe to call at any rate.
func (e *Engine) Snapshot() *domain.Ledger {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ledger.Clone()
}

// Shutdown stops every running app, persists the final state and
// waits for all tick goroutines to exit. Used by the dashboard
// session so no running=true app is left with a stale start time.
func (e *Engine) Shutdown() {
	e.mu.Lock()

	now := e.clock.Now()
	for _, a := range e.ledger.Apps {
		if !a.Running {
			continue
		}
		a.UsedSeconds = a.BaseUsed + e.elapsedSeconds(a, now)
		if !a.Unlimited() && a.UsedSeconds > a.LimitSeconds {
			a.UsedSeconds = a.LimitSeconds
		}
		e.finishLocked(a, now, false)
	}
	e.persistLocked()
	e.mu.Unlock()

	e.wg.Wait()
}

// Close cancels tick goroutines without finalizing usage. Running
// apps stay running in the snapshot; the next engine picks them up
// via rehydration. Used by one-shot CLI commands.
func (e *Engine) Close() {
	e.mu.Lock()
	for id := range e.tickers {
		e.cancelTickerLocked(id)
	}
	e.mu.Unlock()

	e.wg.Wait()
}

// accrueLocked recomputes usage from the accrual base and reports
// whether the limit was crossed; crossing stops and locks the app.
func (e *Engine) accrueLocked(a *domain.App, now time.Time) bool {
	a.UsedSeconds = a.BaseUsed + e.elapsedSeconds(a, now)
	if !a.Unlimited() && a.UsedSeconds >= a.LimitSeconds {
		a.UsedSeconds = a.LimitSeconds
		e.finishLocked(a, now, true)
		return true
	}
	return false
}

// finishLocked flips the app to stopped, records the stop event and
// cancels its accrual ticks. Usage must already be settled.
func (e *Engine) finishLocked(a *domain.App, now time.Time, reachedLimit bool) {
	a.Running = false
	a.StartedAt = nil
	a.BaseUsed = a.UsedSeconds
	e.ledger.EventLog = append(e.ledger.EventLog,
		domain.NewEvent(domain.EventStop, a.ID, now, reachedLimit))
	e.cancelTickerLocked(a.ID)
}

func (e *Engine) elapsedSeconds(a *domain.App, now time.Time) int64 {
	if a.StartedAt == nil {
		return 0
	}
	elapsed := int64(now.Sub(*a.StartedAt) / time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

func (e *Engine) armTickerLocked(id string) {
	if e.config.TickPeriod <= 0 {
		return
	}
	if _, ok := e.tickers[id]; ok {
		return
	}

	stop := make(chan struct{})
	e.tickers[id] = stop

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		ticker := time.NewTicker(e.config.TickPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				e.Tick(id)
			}
		}
	}()
}

func (e *Engine) cancelTickerLocked(id string) {
	if stop, ok := e.tickers[id]; ok {
		close(stop)
		delete(e.tickers, id)
	}
}

// persistLocked saves the snapshot best-effort. A failed save is a
// warning, never a rollback: in-memory state stays authoritative and
// the next successful save captures it.
func (e *Engine) persistLocked() {
	if err := e.store.Save(e.ledger); err != nil {
		e.logger.Warn("failed to persist snapshot", zap.Error(err))
		e.notify(domain.Notification{
			Kind:    domain.NoticeWarning,
			Message: "could not save usage data",
		})
	}
}

func (e *Engine) notify(n domain.Notification) {
	if e.notifier != nil {
		e.notifier.Notify(n)
	}
}
