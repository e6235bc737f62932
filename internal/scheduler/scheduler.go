// Package scheduler drives periodic and reactive re-aggregation of the
// canonical transaction snapshot. Three triggers request a refresh: a fixed
// cron interval, a manual one-shot, and ledger change notifications coalesced
// through a debounce window. All of them serialize through one buffered
// request channel consumed by a single run-loop goroutine, so consumers never
// observe a half-merged snapshot; the apply policy is last-complete-write-wins
// per full refresh cycle.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"tally/internal/alerts"
	"tally/internal/budget"
	"tally/internal/currency"
	apperrors "tally/internal/errors"
	"tally/internal/feed"
	"tally/internal/ledger"
	"tally/internal/models"
	"tally/internal/reconcile"
)

// State of the scheduler's poll cycle. Errors transition back to idle; there
// is no terminal failure state.
type State string

const (
	StateStopped State = "stopped"
	StateIdle    State = "idle"
	StatePolling State = "polling"
)

// FeedPoller is the external feed adapter contract.
type FeedPoller interface {
	Poll(ctx context.Context, userID string) ([]feed.Record, error)
}

// LedgerSource is the slice of the ledger store the scheduler needs.
type LedgerSource interface {
	List(userID string) ([]models.Transaction, error)
	UserIDs() ([]string, error)
	Subscribe(fn func(userID string)) ledger.Unsubscribe
}

// RateSource provides the current exchange-rate table.
type RateSource interface {
	Refresh(ctx context.Context) error
	Table() currency.Table
}

// CapSource provides per-user cap tables.
type CapSource interface {
	Table(userID string) (map[string]decimal.Decimal, error)
	UserIDs() ([]string, error)
}

// AlertSink persists alert drafts with deduplication.
type AlertSink interface {
	CreateIfNotExists(userID string, draft alerts.Draft) (*alerts.Result, error)
}

// Config holds the scheduler's timing knobs.
type Config struct {
	BaseCurrency string
	Interval     time.Duration // periodic refresh interval
	Debounce     time.Duration // quiet window for reactive triggers
	PollTimeout  time.Duration // per-cycle network budget
}

// Status is a point-in-time view of the scheduler for consumers.
type Status struct {
	State      State     `json:"state"`
	LastRun    time.Time `json:"last_run"`
	LastReason string    `json:"last_reason,omitempty"`
	LastNotice string    `json:"last_notice,omitempty"`
}

// Scheduler owns its lifecycle explicitly: Start arms the triggers, Stop
// cancels every pending timer. Nothing here relies on garbage collection for
// resource release.
type Scheduler struct {
	feed   FeedPoller
	ledger LedgerSource
	rates  RateSource
	caps   CapSource
	alerts AlertSink
	cfg    Config
	log    *zap.SugaredLogger

	cron     *cron.Cron
	requests chan string
	cancel   context.CancelFunc
	unsub    ledger.Unsubscribe
	wg       sync.WaitGroup

	debounceMu sync.Mutex
	debounce   *time.Timer

	mu        sync.RWMutex
	running   bool
	snapshots map[string][]models.Transaction
	lastFeed  map[string][]models.Transaction // most recent successful poll per user
	status    Status
}

// New creates a scheduler. Call Start to begin syncing.
func New(feedAdapter FeedPoller, ledgerStore LedgerSource, rateSource RateSource, capSource CapSource, alertSink AlertSink, cfg Config, log *zap.SugaredLogger) *Scheduler {
	return &Scheduler{
		feed:      feedAdapter,
		ledger:    ledgerStore,
		rates:     rateSource,
		caps:      capSource,
		alerts:    alertSink,
		cfg:       cfg,
		log:       log,
		requests:  make(chan string, 1),
		snapshots: make(map[string][]models.Transaction),
		lastFeed:  make(map[string][]models.Transaction),
		status:    Status{State: StateStopped},
	}
}

// Start runs one immediate refresh, arms the interval timer, and subscribes
// to ledger change notifications. Starting a running scheduler is a no-op.
func (s *Scheduler) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.status.State = StateIdle
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel

	s.wg.Add(1)
	go s.run(ctx)

	s.unsub = s.ledger.Subscribe(func(userID string) {
		s.onChange(userID)
	})

	s.cron = cron.New()
	s.cron.Schedule(cron.Every(s.cfg.Interval), cron.FuncJob(func() {
		s.request("interval")
	}))
	s.cron.Start()

	s.request("startup")
	s.log.Infow("sync scheduler started", "interval", s.cfg.Interval, "debounce", s.cfg.Debounce)
}

// Stop tears the scheduler down: the cron entry, the run loop, the ledger
// subscription, and any pending debounce timer are all released before Stop
// returns. Stopping a stopped scheduler is a no-op.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	s.running = false
	s.mu.Unlock()

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}
	if s.unsub != nil {
		s.unsub()
	}

	s.debounceMu.Lock()
	if s.debounce != nil {
		s.debounce.Stop()
		s.debounce = nil
	}
	s.debounceMu.Unlock()

	s.cancel()
	s.wg.Wait()

	s.mu.Lock()
	s.status.State = StateStopped
	s.mu.Unlock()
	s.log.Info("sync scheduler stopped")
}

// TriggerRefresh requests a one-shot refresh. It never blocks: if a refresh
// request is already pending, the manual trigger coalesces into it, so the
// manual path can neither starve nor be starved by the timer.
func (s *Scheduler) TriggerRefresh() {
	s.request("manual")
}

// Transactions returns a copy of the current merged snapshot for a user.
func (s *Scheduler) Transactions(userID string) []models.Transaction {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.snapshots[userID]
	out := make([]models.Transaction, len(snap))
	copy(out, snap)
	return out
}

// Status returns the current scheduler status.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// request enqueues a refresh without blocking. A full channel means a
// refresh is already pending; the new trigger coalesces into it.
func (s *Scheduler) request(reason string) {
	select {
	case s.requests <- reason:
	default:
	}
}

// onChange coalesces bursts of ledger change notifications: each event
// resets the debounce timer, and only the quiet period fires a refresh.
func (s *Scheduler) onChange(userID string) {
	s.debounceMu.Lock()
	defer s.debounceMu.Unlock()
	if s.debounce != nil {
		s.debounce.Stop()
	}
	s.debounce = time.AfterFunc(s.cfg.Debounce, func() {
		s.request("change:" + userID)
	})
}

// run is the single consumer of refresh requests.
func (s *Scheduler) run(ctx context.Context) {
	defer s.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case reason := <-s.requests:
			s.refresh(ctx, reason)
		}
	}
}

// refresh executes one full cycle: poll, normalize, merge, evaluate,
// persist alert drafts, and swap the snapshot. Failures degrade to
// retain-last-known-good plus a notice; nothing escalates past a log line.
func (s *Scheduler) refresh(ctx context.Context, reason string) {
	s.setState(StatePolling)
	notice := ""

	rateCtx, cancelRates := context.WithTimeout(ctx, s.cfg.PollTimeout)
	err := s.rates.Refresh(rateCtx)
	cancelRates()
	if err != nil {
		s.log.Warnw("rate refresh failed, retaining last table", "error", err)
	}
	table := s.rates.Table()

	users, err := s.userIDs()
	if err != nil {
		s.log.Errorw("listing sync users failed", "error", err)
		s.finish(reason, "sync skipped: user listing failed")
		return
	}

	now := time.Now()
	for _, userID := range users {
		ledgerRows, err := s.ledger.List(userID)
		if err != nil {
			// Retain this user's previous snapshot untouched.
			s.log.Errorw("ledger list failed", "user_id", userID, "error", err)
			notice = "ledger unavailable for some users"
			continue
		}

		feedBatch, feedNotice := s.pollFeed(ctx, userID, table, now)
		if feedNotice != "" {
			notice = feedNotice
		}
		if ctx.Err() != nil {
			// Aborted mid-cycle: leave existing state untouched.
			return
		}

		merged := reconcile.Merge(reconcile.FromLedger(ledgerRows), feedBatch)
		s.evaluateBudgets(userID, merged)

		s.mu.Lock()
		s.snapshots[userID] = merged
		s.mu.Unlock()
	}

	s.finish(reason, notice)
}

// pollFeed polls the external feed for one user and normalizes the batch. A
// failed or timed-out poll is "no new data": the batch from the most recent
// successful poll is reused, so the snapshot is never corrupted by a partial
// result.
func (s *Scheduler) pollFeed(ctx context.Context, userID string, table currency.Table, now time.Time) ([]models.Transaction, string) {
	pollCtx, cancel := context.WithTimeout(ctx, s.cfg.PollTimeout)
	defer cancel()

	records, err := s.feed.Poll(pollCtx, userID)
	if err != nil {
		s.log.Warnw("feed poll failed, reusing last successful batch", "user_id", userID, "error", err)
		s.mu.RLock()
		prev := s.lastFeed[userID]
		s.mu.RUnlock()
		return prev, apperrors.ErrFeedUnavailable.Message
	}

	batch, warnings := reconcile.FromFeed(userID, records, s.cfg.BaseCurrency, table, now)
	for _, w := range warnings {
		s.log.Warnw("feed record dropped", "user_id", userID, "reason", w.Reason, "index", w.Index)
	}

	s.mu.Lock()
	s.lastFeed[userID] = batch
	s.mu.Unlock()
	return batch, ""
}

// evaluateBudgets computes spending against the user's caps and persists the
// resulting drafts through the deduplicating alert store.
func (s *Scheduler) evaluateBudgets(userID string, txs []models.Transaction) {
	capTable, err := s.caps.Table(userID)
	if err != nil {
		s.log.Errorw("cap lookup failed", "user_id", userID, "error", err)
		return
	}
	if len(capTable) == 0 {
		return
	}

	spending := budget.CategorySpending(txs)
	for _, draft := range budget.Evaluate(spending, capTable) {
		result, err := s.alerts.CreateIfNotExists(userID, alerts.Draft{
			Type:    draft.Severity,
			Title:   draft.Title,
			Message: draft.Message,
			Icon:    "⚠️",
		})
		if err != nil {
			s.log.Errorw("alert persist failed", "user_id", userID, "title", draft.Title, "error", err)
			continue
		}
		if result.Created {
			s.log.Infow("budget alert created", "user_id", userID, "title", draft.Title, "severity", draft.Severity)
		}
	}
}

// userIDs unions the users known to the ledger and the cap store.
func (s *Scheduler) userIDs() ([]string, error) {
	fromLedger, err := s.ledger.UserIDs()
	if err != nil {
		return nil, err
	}
	fromCaps, err := s.caps.UserIDs()
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{}, len(fromLedger)+len(fromCaps))
	var users []string
	for _, id := range append(fromLedger, fromCaps...) {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		users = append(users, id)
	}
	return users, nil
}

func (s *Scheduler) setState(state State) {
	s.mu.Lock()
	s.status.State = state
	s.mu.Unlock()
}

func (s *Scheduler) finish(reason, notice string) {
	s.mu.Lock()
	s.status = Status{
		State:      StateIdle,
		LastRun:    time.Now(),
		LastReason: reason,
		LastNotice: notice,
	}
	s.mu.Unlock()
}
