// Package transfer executes due recurring rules and re-attempts or cancels
// the transactions they produce.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/interfaces"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/models"
)

// Executor performs one fire attempt for a due rule: resolve the recipient,
// run the atomic check-and-transfer, and persist the outcome.
type Executor struct {
	store    interfaces.LedgerStore
	notifier interfaces.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewExecutor wires an executor against a store and a notifier.
func NewExecutor(store interfaces.LedgerStore, notifier interfaces.Notifier, logger *zap.Logger) *Executor {
	return &Executor{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Execute runs one transfer attempt and always returns a record describing
// the outcome. It never returns an error: every failure is persisted as a
// failed transaction and reported to the rule owner, so one rule's trouble
// cannot leak into the scheduler tick.
func (e *Executor) Execute(ctx context.Context, rule models.RecurringRule) models.TransactionRecord {
	toAccount, err := e.store.ResolveAccountByContact(ctx, rule.ToContact)
	if err != nil {
		reason := err.Error()
		if errors.Is(err, interfaces.ErrContactNotFound) {
			reason = "recipient not found"
		}
		// No balance mutation has happened; record and stop.
		return e.fail(ctx, rule, "", reason)
	}

	record := models.NewSuccessTransaction(rule, toAccount, e.now())
	if err := e.store.AtomicTransfer(ctx, record); err != nil {
		reason := err.Error()
		if errors.Is(err, interfaces.ErrInsufficientFunds) {
			reason = "insufficient funds"
		}
		return e.fail(ctx, rule, toAccount, reason)
	}

	e.logger.Info("transfer executed",
		zap.String("rule_id", rule.ID),
		zap.String("from_account", rule.FromAccount),
		zap.String("to_account", toAccount),
		zap.String("amount", rule.Amount.String()),
	)
	return record
}

// fail persists a failed record and notifies the rule owner. Store errors
// while doing so are logged and swallowed; the returned record still reflects
// the attempt's outcome.
func (e *Executor) fail(ctx context.Context, rule models.RecurringRule, toAccount, reason string) models.TransactionRecord {
	record := models.NewFailedTransaction(rule, toAccount, reason, e.now())
	if err := e.store.SaveFailedTransaction(ctx, record); err != nil {
		e.logger.Error("saving failed transaction",
			zap.String("rule_id", rule.ID),
			zap.Error(err),
		)
	}

	notifyFailure(ctx, e.notifier, e.logger, rule.FromAccount, rule.ToContact, rule.Amount, reason)

	e.logger.Warn("transfer failed",
		zap.String("rule_id", rule.ID),
		zap.String("from_account", rule.FromAccount),
		zap.String("reason", reason),
	)
	return record
}

// notifyFailure tells the sender their transfer did not go through. Delivery
// errors are logged only; notifications are fire-and-forget.
func notifyFailure(ctx context.Context, notifier interfaces.Notifier, logger *zap.Logger, ownerID, contact string, amount decimal.Decimal, reason string) {
	message := fmt.Sprintf("The transfer of %s to %s failed: %s",
		amount.StringFixed(2), contact, reason)
	if err := notifier.Notify(ctx, ownerID, "Recurring transfer failed", message); err != nil {
		logger.Error("sending failure notification",
			zap.String("owner_id", ownerID),
			zap.Error(err),
		)
	}
}
