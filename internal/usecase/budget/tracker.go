// Package budget caps the chat-model tokens spent by the generative fallback.
package budget

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/quizdex/internal/domain"
	"github.com/kailas-cloud/quizdex/internal/domain/usage"
)

// Action defines behavior when the token budget is exceeded.
type Action string

const (
	// ActionWarn logs a warning but allows the request.
	ActionWarn Action = "warn"
	// ActionReject blocks the request with domain.ErrGenerationQuotaExceeded.
	ActionReject Action = "reject"
)

// ParseAction accepts "warn" and "reject". An empty string means reject.
func ParseAction(s string) (Action, error) {
	switch Action(s) {
	case "", ActionReject:
		return ActionReject, nil
	case ActionWarn:
		return ActionWarn, nil
	}
	return "", fmt.Errorf("unknown budget action %q", s)
}

// Options configures a Tracker. A zero limit is unlimited.
type Options struct {
	Scope        string
	KeyPrefix    string
	DailyLimit   int64
	MonthlyLimit int64
	Action       Action
}

// persistTimeout bounds each background store write.
const persistTimeout = 2 * time.Second

// Tracker counts tokens per UTC day and month. Check reads memory only;
// Record updates memory and writes behind to the store, if any.
// Close waits for pending writes.
type Tracker struct {
	mu          sync.Mutex
	dailyUsed   int64
	monthlyUsed int64
	dayStart    time.Time
	monthStart  time.Time

	opts    Options
	store   Store
	logger  *zap.Logger
	now     func() time.Time
	pending sync.WaitGroup
}

// NewTracker creates a tracker with empty counters.
func NewTracker(opts Options, logger *zap.Logger) *Tracker {
	return newTracker(opts, logger, time.Now)
}

func newTracker(opts Options, logger *zap.Logger, now func() time.Time) *Tracker {
	if opts.Action == "" {
		opts.Action = ActionReject
	}
	t := &Tracker{opts: opts, logger: logger, now: now}
	t.dayStart, _ = usage.PeriodDay.Bounds(now())
	t.monthStart, _ = usage.PeriodMonth.Bounds(now())
	return t
}

// WithStore attaches a persistence store and loads the current counters from it.
func (t *Tracker) WithStore(ctx context.Context, store Store) *Tracker {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.store = store
	now := t.now()
	if v, err := store.Get(ctx, t.key(usage.PeriodDay, now)); err == nil {
		t.dailyUsed = v
	} else {
		t.logger.Warn("Failed to load daily budget from store", zap.Error(err))
	}
	if v, err := store.Get(ctx, t.key(usage.PeriodMonth, now)); err == nil {
		t.monthlyUsed = v
	} else {
		t.logger.Warn("Failed to load monthly budget from store", zap.Error(err))
	}

	t.logger.Info("Budget loaded from store",
		zap.String("scope", t.opts.Scope),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("monthly_used", t.monthlyUsed),
	)
	return t
}

func (t *Tracker) key(p usage.Period, at time.Time) string {
	start, _ := p.Bounds(at)
	layout := "2006-01-02"
	if p == usage.PeriodMonth {
		layout = "2006-01"
	}
	return fmt.Sprintf("%sbudget:%s:%s:%s", t.opts.KeyPrefix, t.opts.Scope, p, start.Format(layout))
}

// Check reports whether a new request may spend tokens.
func (t *Tracker) Check(_ context.Context) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()

	dailyExceeded := t.opts.DailyLimit > 0 && t.dailyUsed >= t.opts.DailyLimit
	monthlyExceeded := t.opts.MonthlyLimit > 0 && t.monthlyUsed >= t.opts.MonthlyLimit
	if !dailyExceeded && !monthlyExceeded {
		return nil
	}

	if t.opts.Action == ActionReject {
		return fmt.Errorf("%w: %s", domain.ErrGenerationQuotaExceeded, t.opts.Scope)
	}

	t.logger.Warn("Token budget exceeded",
		zap.String("scope", t.opts.Scope),
		zap.Int64("daily_used", t.dailyUsed),
		zap.Int64("daily_limit", t.opts.DailyLimit),
		zap.Int64("monthly_used", t.monthlyUsed),
		zap.Int64("monthly_limit", t.opts.MonthlyLimit),
	)
	return nil
}

// Record adds consumed tokens. The store write runs in the background;
// failures are logged, never returned.
func (t *Tracker) Record(tokens int64) {
	if tokens <= 0 {
		return
	}

	t.mu.Lock()
	t.rollover()
	t.dailyUsed += tokens
	t.monthlyUsed += tokens
	store := t.store
	now := t.now()
	t.mu.Unlock()

	if store == nil {
		return
	}

	t.pending.Add(1)
	go func() {
		defer t.pending.Done()
		t.persist(store, tokens, now)
	}()
}

func (t *Tracker) persist(store Store, tokens int64, now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()

	for _, p := range []usage.Period{usage.PeriodDay, usage.PeriodMonth} {
		key := t.key(p, now)
		if err := store.IncrBy(ctx, key, tokens, p); err != nil {
			t.logger.Warn("Failed to persist budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// Close blocks until every background store write has finished.
func (t *Tracker) Close() {
	t.pending.Wait()
}

// Report returns usage for the period containing the current time.
func (t *Tracker) Report(period usage.Period) usage.Report {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.rollover()
	start, end := period.Bounds(t.now())
	r := usage.Report{Period: period, PeriodStart: start, PeriodEnd: end}
	if period == usage.PeriodMonth {
		r.Tokens, r.Limit = t.monthlyUsed, t.opts.MonthlyLimit
	} else {
		r.Tokens, r.Limit = t.dailyUsed, t.opts.DailyLimit
	}
	return r
}

// rollover zeroes counters when the day or month changes. Caller holds mu.
func (t *Tracker) rollover() {
	now := t.now()
	today, _ := usage.PeriodDay.Bounds(now)
	thisMonth, _ := usage.PeriodMonth.Bounds(now)

	if today.After(t.dayStart) {
		t.dailyUsed = 0
		t.dayStart = today
	}
	if thisMonth.After(t.monthStart) {
		t.monthlyUsed = 0
		t.monthStart = thisMonth
	}
}
