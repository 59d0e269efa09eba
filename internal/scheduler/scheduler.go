// Package scheduler drives the recurring-transfer evaluation loop on a fixed
// tick.
package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/interfaces"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/models"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/recurrence"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/transfer"
)

// DefaultInterval is one tick per minute, matching the minute granularity of
// rule execution times.
const DefaultInterval = time.Minute

// Scheduler fetches active rules every tick, filters them through the
// recurrence evaluator and dispatches the due ones to the executor. A single
// instance must be running against a given rule set; nothing here prevents
// two instances from firing the same rule in the same minute.
type Scheduler struct {
	store    interfaces.LedgerStore
	executor *transfer.Executor
	logger   *zap.Logger
	interval time.Duration
	now      func() time.Time
}

// New builds a scheduler. A non-positive interval falls back to
// DefaultInterval.
func New(store interfaces.LedgerStore, executor *transfer.Executor, logger *zap.Logger, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Scheduler{
		store:    store,
		executor: executor,
		logger:   logger,
		interval: interval,
		now:      time.Now,
	}
}

// Run ticks until ctx is canceled. The tick in flight when cancellation
// arrives finishes before Run returns; no new ticks start.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.logger.Info("scheduler started", zap.Duration("interval", s.interval))
	for {
		select {
		case <-ctx.Done():
			s.logger.Info("scheduler stopped")
			return
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

// Tick runs one evaluation pass over all active rules. Failures are isolated
// per rule: an error or panic while processing one rule never prevents the
// others from being evaluated in the same tick.
func (s *Scheduler) Tick(ctx context.Context) {
	now := s.now()

	rules, err := s.store.ListActiveRules(ctx)
	if err != nil {
		s.logger.Error("listing active rules", zap.Error(err))
		return
	}
	s.logger.Debug("tick",
		zap.Time("now", now),
		zap.Int("active_rules", len(rules)),
	)

	for _, rule := range rules {
		s.processRule(ctx, rule, now)
	}
}

func (s *Scheduler) processRule(ctx context.Context, rule models.RecurringRule, now time.Time) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("rule processing panicked",
				zap.String("rule_id", rule.ID),
				zap.Any("panic", r),
			)
		}
	}()

	if err := rule.Validate(); err != nil {
		s.logger.Warn("skipping malformed rule",
			zap.String("rule_id", rule.ID),
			zap.Error(err),
		)
		return
	}

	if !recurrence.ShouldFire(rule, now) {
		return
	}

	record := s.executor.Execute(ctx, rule)
	s.logger.Info("rule fired",
		zap.String("rule_id", rule.ID),
		zap.String("status", string(record.Status)),
	)

	// Advance lastExecuted whatever the outcome, so an immediately-following
	// tick in the same minute cannot fire the rule again.
	if err := s.store.SetLastExecuted(ctx, rule.ID, now); err != nil {
		s.logger.Error("updating last executed",
			zap.String("rule_id", rule.ID),
			zap.Error(err),
		)
	}
}
