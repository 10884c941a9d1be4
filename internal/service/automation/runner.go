package automation

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/llevisouza/gestao-cobrancas/internal/messenger"
	"github.com/llevisouza/gestao-cobrancas/internal/model"
	"github.com/llevisouza/gestao-cobrancas/internal/repository"
	pkgerrors "github.com/llevisouza/gestao-cobrancas/pkg/errors"
	"github.com/llevisouza/gestao-cobrancas/pkg/logger"
	"github.com/llevisouza/gestao-cobrancas/pkg/messaging"
	"github.com/llevisouza/gestao-cobrancas/pkg/metrics"
)

// StatusChannel is the broker channel status snapshots are published to on
// every state change.
const StatusChannel = "automation:status"

// Status is the observable snapshot served to pollers and pushed to the
// status stream.
type Status struct {
	IsRunning        bool                        `json:"is_running"`
	Config           model.AutomationConfig      `json:"config"`
	Stats            model.AutomationStats       `json:"stats"`
	ConnectionStatus *messenger.ConnectionStatus `json:"connection_status,omitempty"`
}

// Runner owns the automation state machine: a single repeating timer per
// process driving compute-dedup-dispatch cycles, with the state persisted
// so a restart resumes where the process left off.
type Runner struct {
	source     DataSource
	catalog    *Catalog
	ledger     Ledger
	dispatcher *Dispatcher
	channel    messenger.Messenger
	stateRepo  repository.AutomationStateRepository
	runLogs    repository.RunLogRepository
	deliveries repository.DeliveryLogRepository
	broker     messaging.Broker
	logger     *logger.Logger
	metrics    *metrics.Metrics

	// mu guards state and the loop handle; cycleMu serializes cycles so two
	// can never pass the dedup check concurrently.
	mu      sync.RWMutex
	cycleMu sync.Mutex
	state   model.AutomationState

	loopCancel context.CancelFunc
	loopDone   chan struct{}
	rearm      chan time.Duration

	stopRequested atomic.Bool

	// injectable clock and delay for tests
	now   func() time.Time
	sleep func(ctx context.Context, d time.Duration) error
}

func NewRunner(
	source DataSource,
	ledger Ledger,
	dispatcher *Dispatcher,
	channel messenger.Messenger,
	stateRepo repository.AutomationStateRepository,
	runLogs repository.RunLogRepository,
	deliveries repository.DeliveryLogRepository,
	broker messaging.Broker,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	defaults model.AutomationConfig,
) *Runner {
	return &Runner{
		source:     source,
		catalog:    NewCatalog(),
		ledger:     ledger,
		dispatcher: dispatcher,
		channel:    channel,
		stateRepo:  stateRepo,
		runLogs:    runLogs,
		deliveries: deliveries,
		broker:     broker,
		logger:     logger,
		metrics:    metrics,
		state: model.AutomationState{
			Config: defaults,
		},
		rearm: make(chan time.Duration, 1),
		now:   time.Now,
		sleep: sleepCtx,
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Restore resumes a previously running automation after a process restart.
// If the persisted state says IsRunning, the timer is re-armed without an
// explicit start call.
func (r *Runner) Restore(ctx context.Context) error {
	persisted, err := r.stateRepo.Get(ctx)
	if err != nil {
		return fmt.Errorf("failed to load persisted automation state: %w", err)
	}
	if persisted == nil {
		return nil
	}
	if err := persisted.Config.Validate(); err != nil {
		r.logger.Error(err, "persisted config invalid, keeping defaults")
		persisted.Config = r.state.Config
	}

	r.mu.Lock()
	r.state.Config = persisted.Config
	r.state.Stats = persisted.Stats
	r.state.IsRunning = persisted.IsRunning
	running := persisted.IsRunning
	interval := persisted.Config.CheckInterval
	r.mu.Unlock()

	if running {
		r.stopRequested.Store(false)
		r.startLoop(interval)
		r.logger.Info("automation resumed from persisted state",
			"check_interval", interval.String())
		r.publishStatus(ctx)
	}
	return nil
}

// Start transitions Stopped to Running: the send channel must be reachable,
// one cycle executes immediately, then the repeating timer is armed.
func (r *Runner) Start(ctx context.Context) error {
	conn, err := r.channel.CheckConnection(ctx)
	if err != nil {
		return pkgerrors.Precondition("send channel connection check failed", err)
	}
	if !conn.Connected {
		return pkgerrors.Precondition(
			fmt.Sprintf("send channel not connected (state %s)", conn.State), nil)
	}

	r.mu.Lock()
	if r.state.IsRunning {
		r.mu.Unlock()
		return pkgerrors.BadRequest("automation already running", nil)
	}
	now := r.now()
	r.state.IsRunning = true
	r.state.Stats.StartTime = &now
	interval := r.state.Config.CheckInterval
	r.mu.Unlock()

	r.stopRequested.Store(false)
	if err := r.persistState(ctx); err != nil {
		r.mu.Lock()
		r.state.IsRunning = false
		r.mu.Unlock()
		return fmt.Errorf("failed to persist automation state: %w", err)
	}

	// First cycle fires immediately on a fresh context, same as the ticker
	// path: the caller's request deadline must not truncate dispatches.
	r.ExecuteCycle(context.Background())
	r.startLoop(interval)

	r.logger.Info("automation started", "check_interval", interval.String())
	r.publishStatus(ctx)
	return nil
}

// Stop cancels the timer and persists the stopped state synchronously so
// observers see the change before this returns. An in-flight cycle drains
// gracefully: it finishes its current dispatch and aborts the rest.
func (r *Runner) Stop(ctx context.Context) error {
	r.mu.Lock()
	if !r.state.IsRunning {
		r.mu.Unlock()
		return pkgerrors.BadRequest("automation is not running", nil)
	}
	r.state.IsRunning = false
	r.mu.Unlock()

	r.stopRequested.Store(true)
	r.stopLoop()
	r.stopRequested.Store(false)

	if err := r.persistState(ctx); err != nil {
		return fmt.Errorf("failed to persist automation state: %w", err)
	}
	r.logger.Info("automation stopped")
	r.publishStatus(ctx)
	return nil
}

// Shutdown halts the run loop for process exit without touching the
// persisted state, so a running automation resumes on the next boot.
func (r *Runner) Shutdown(ctx context.Context) {
	r.mu.RLock()
	running := r.state.IsRunning
	r.mu.RUnlock()
	if !running {
		return
	}

	r.stopRequested.Store(true)
	r.stopLoop()
	r.stopRequested.Store(false)
	r.logger.Info("automation loop halted for shutdown")
}

// RunManualCycle executes exactly one cycle outside the timer schedule. It
// does not change IsRunning and waits for any in-flight cycle to finish
// first.
func (r *Runner) RunManualCycle(ctx context.Context) model.CycleResult {
	return r.runCycle(ctx, false)
}

// UpdateConfig validates and merges a partial config. Changing the check
// interval while running re-arms the timer in place without toggling
// IsRunning.
func (r *Runner) UpdateConfig(ctx context.Context, patch model.AutomationConfigPatch) (model.AutomationConfig, error) {
	r.mu.Lock()
	merged := patch.Apply(r.state.Config)
	if err := merged.Validate(); err != nil {
		prev := r.state.Config
		r.mu.Unlock()
		return prev, pkgerrors.Validation(err.Error(), err)
	}
	intervalChanged := merged.CheckInterval != r.state.Config.CheckInterval
	r.state.Config = merged
	running := r.state.IsRunning
	r.mu.Unlock()

	if err := r.persistState(ctx); err != nil {
		return merged, fmt.Errorf("failed to persist automation state: %w", err)
	}

	if running && intervalChanged {
		// An undelivered re-arm from an earlier update is superseded by this
		// one; drain it so the channel always holds the latest interval.
		select {
		case <-r.rearm:
		default:
		}
		select {
		case r.rearm <- merged.CheckInterval:
		default:
		}
		r.logger.Info("check interval re-armed", "check_interval", merged.CheckInterval.String())
	}
	r.publishStatus(ctx)
	return merged, nil
}

// Reset forces Stopped, clears stats and both logs, and restores the
// default configuration.
func (r *Runner) Reset(ctx context.Context) error {
	r.mu.Lock()
	wasRunning := r.state.IsRunning
	r.state.IsRunning = false
	r.mu.Unlock()

	if wasRunning {
		r.stopRequested.Store(true)
		r.stopLoop()
		r.stopRequested.Store(false)
	}

	if err := r.deliveries.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear delivery log: %w", err)
	}
	if err := r.runLogs.DeleteAll(ctx); err != nil {
		return fmt.Errorf("failed to clear run log: %w", err)
	}

	r.mu.Lock()
	r.state.Config = model.DefaultAutomationConfig()
	r.state.Stats = model.AutomationStats{}
	r.mu.Unlock()

	if err := r.persistState(ctx); err != nil {
		return fmt.Errorf("failed to persist automation state: %w", err)
	}
	r.logger.Info("automation reset to defaults")
	r.publishStatus(ctx)
	return nil
}

// Status returns a snapshot; it is servable while a cycle is mid-flight.
func (r *Runner) Status(ctx context.Context) Status {
	r.mu.RLock()
	snapshot := Status{
		IsRunning: r.state.IsRunning,
		Config:    r.state.Config,
		Stats:     r.state.Stats,
	}
	r.mu.RUnlock()

	if conn, err := r.channel.CheckConnection(ctx); err == nil {
		snapshot.ConnectionStatus = conn
	}
	return snapshot
}

// ExecuteCycle is the timer-tick entry point: a tick that fires while a
// previous cycle is still running is dropped, never run in parallel.
func (r *Runner) ExecuteCycle(ctx context.Context) model.CycleResult {
	return r.runCycle(ctx, true)
}

func (r *Runner) startLoop(interval time.Duration) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})

	r.mu.Lock()
	r.loopCancel = cancel
	r.loopDone = done
	r.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case d := <-r.rearm:
				ticker.Reset(d)
			case <-ticker.C:
				// Cycles run on a fresh context: cancelling the loop stops
				// future ticks while the stop flag drains the current cycle
				// between candidates instead of killing an in-flight send.
				r.ExecuteCycle(context.Background())
			}
		}
	}()
}

func (r *Runner) stopLoop() {
	r.mu.Lock()
	cancel := r.loopCancel
	done := r.loopDone
	r.loopCancel = nil
	r.loopDone = nil
	r.mu.Unlock()

	if cancel != nil {
		cancel()
		<-done
	}
}

func (r *Runner) runCycle(ctx context.Context, droppable bool) model.CycleResult {
	if droppable {
		if !r.cycleMu.TryLock() {
			r.logger.Warn("cycle tick dropped, previous cycle still running")
			return model.CycleResult{Skipped: true, SkipReason: "previous cycle still running"}
		}
	} else {
		r.cycleMu.Lock()
	}
	defer r.cycleMu.Unlock()

	started := r.now()
	timer := prometheus.NewTimer(r.metrics.CycleDuration)
	result := r.cycle(ctx)
	timer.ObserveDuration()

	switch {
	case result.Skipped:
		r.metrics.CyclesTotal.WithLabelValues("skipped").Inc()
	case result.Errors > 0:
		r.metrics.CyclesTotal.WithLabelValues("error").Inc()
	default:
		r.metrics.CyclesTotal.WithLabelValues("completed").Inc()
	}

	r.recordRun(ctx, started, result)
	r.publishStatus(ctx)
	return result
}

// cycle runs the pipeline: business-hours gate, connectivity gate, fresh
// data snapshot, candidate computation, ledger dedup, capped sequential
// dispatch with inter-message delay. Every error is converted into the
// result here; nothing escapes to crash the loop.
func (r *Runner) cycle(ctx context.Context) model.CycleResult {
	r.mu.RLock()
	cfg := r.state.Config
	r.mu.RUnlock()

	now := r.now()
	if !cfg.Enabled {
		return model.CycleResult{Skipped: true, SkipReason: "automation disabled in config"}
	}
	if !cfg.BusinessHours.Contains(now) {
		return model.CycleResult{Skipped: true, SkipReason: "outside business hours"}
	}

	conn, err := r.channel.CheckConnection(ctx)
	if err != nil {
		return r.cycleFailed(ctx, fmt.Errorf("connection check failed: %w", err))
	}
	if !conn.Connected {
		return r.cycleFailed(ctx, fmt.Errorf("send channel not connected (state %s)", conn.State))
	}

	clients, err := r.source.Clients(ctx)
	if err != nil {
		return r.cycleFailed(ctx, err)
	}
	invoices, err := r.source.OpenInvoices(ctx)
	if err != nil {
		return r.cycleFailed(ctx, err)
	}
	subs, err := r.source.Subscriptions(ctx)
	if err != nil {
		return r.cycleFailed(ctx, err)
	}

	candidates := r.catalog.ComputeCandidates(invoices, clients, subs, now, cfg)
	r.metrics.CandidatesComputed.Add(float64(len(candidates)))

	// Dedup against the persisted ledger immediately before dispatch; a
	// failed ledger query aborts the cycle, since dispatching without the
	// answer risks a double-send.
	pending := make([]*model.NotificationCandidate, 0, len(candidates))
	for _, c := range candidates {
		sent, err := r.ledger.WasSentToday(ctx, c.Client.ID, c.Type, now)
		if err != nil {
			return r.cycleFailed(ctx, err)
		}
		if sent {
			r.metrics.CandidatesDeduplicated.Inc()
			continue
		}
		pending = append(pending, c)
	}

	result := model.CycleResult{Processed: len(candidates)}
	dispatched := 0
	for i, c := range pending {
		if dispatched >= cfg.MaxMessagesPerDay {
			break
		}
		if r.stopRequested.Load() {
			r.logger.Info("stop requested, draining cycle",
				"remaining", len(pending)-i)
			break
		}

		dr := r.dispatcher.Dispatch(ctx, c)
		dispatched++
		r.mu.Lock()
		if dr.Success {
			r.state.Stats.MessagesSent++
			result.Sent++
		} else {
			r.state.Stats.Errors++
			result.Errors++
		}
		r.mu.Unlock()

		// Stats snapshot persists after every attempt so a crash right
		// after a send does not lose the count.
		if err := r.persistState(ctx); err != nil {
			r.logger.Error(err, "failed to persist stats mid-cycle")
		}

		if i < len(pending)-1 && dispatched < cfg.MaxMessagesPerDay {
			if err := r.sleep(ctx, cfg.DelayBetweenMessages); err != nil {
				break
			}
		}
	}

	finished := r.now()
	r.mu.Lock()
	r.state.Stats.LastCycle = &finished
	r.mu.Unlock()
	if err := r.persistState(ctx); err != nil {
		r.logger.Error(err, "failed to persist cycle completion")
	}
	return result
}

// cycleFailed aborts the remainder of the cycle; the loop itself keeps
// running and tries again on the next tick.
func (r *Runner) cycleFailed(ctx context.Context, err error) model.CycleResult {
	r.logger.Error(err, "automation cycle failed")
	r.mu.Lock()
	r.state.Stats.Errors++
	r.mu.Unlock()
	if perr := r.persistState(ctx); perr != nil {
		r.logger.Error(perr, "failed to persist state after cycle error")
	}
	return model.CycleResult{Errors: 1, SkipReason: err.Error()}
}

func (r *Runner) persistState(ctx context.Context) error {
	r.mu.RLock()
	snapshot := r.state
	r.mu.RUnlock()
	return r.stateRepo.Save(ctx, &snapshot)
}

func (r *Runner) recordRun(ctx context.Context, started time.Time, result model.CycleResult) {
	entry := &model.AutomationRunLog{
		StartedAt:  started,
		FinishedAt: r.now(),
		Processed:  result.Processed,
		Sent:       result.Sent,
		Errors:     result.Errors,
		Skipped:    result.Skipped,
	}
	if result.SkipReason != "" {
		if result.Skipped {
			entry.SkipReason = &result.SkipReason
		} else {
			entry.Error = &result.SkipReason
		}
	}
	if err := r.runLogs.Create(ctx, entry); err != nil {
		r.logger.Error(err, "failed to record run log entry")
	}
}

func (r *Runner) publishStatus(ctx context.Context) {
	if r.broker == nil {
		return
	}
	if err := r.broker.Publish(ctx, StatusChannel, r.Status(ctx)); err != nil {
		r.logger.Error(err, "failed to publish status update")
	}
}
