package transfer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/interfaces"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/models"
)

var (
	// ErrInvalidRetryState is returned when a retry is requested for a record
	// that is missing its retryable mark, has exhausted its attempts, or is
	// already terminal.
	ErrInvalidRetryState = errors.New("transaction is not in a retryable state")

	// ErrNotCancelable is returned when a record cannot (or can no longer) be
	// canceled.
	ErrNotCancelable = errors.New("transaction cannot be canceled")
)

// RetryController re-attempts failed transactions on demand and cancels
// pending ones. Unlike the scheduler loop, its errors surface to the caller.
type RetryController struct {
	store    interfaces.LedgerStore
	notifier interfaces.Notifier
	logger   *zap.Logger
	now      func() time.Time
}

// NewRetryController wires a controller against a store and a notifier.
func NewRetryController(store interfaces.LedgerStore, notifier interfaces.Notifier, logger *zap.Logger) *RetryController {
	return &RetryController{
		store:    store,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

// Retry re-attempts a failed transfer against current balances. The recipient
// contact is resolved afresh, since it may have changed or vanished since the
// original failure. The record must be marked retryable with fewer than
// models.MaxRetries attempts recorded; otherwise ErrInvalidRetryState is
// returned and nothing is mutated.
func (c *RetryController) Retry(ctx context.Context, txID string) error {
	record, err := c.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}

	if !record.IsRetryable || record.RetryCount >= models.MaxRetries || record.Status.Terminal() {
		return ErrInvalidRetryState
	}

	if err := c.store.UpdateTransactionStatus(ctx, txID, models.StatusRetrying, models.RetryMetadata{}); err != nil {
		return fmt.Errorf("marking transaction retrying: %w", err)
	}

	toAccount, err := c.store.ResolveAccountByContact(ctx, record.ToContact)
	if err != nil {
		if !errors.Is(err, interfaces.ErrContactNotFound) {
			return fmt.Errorf("resolving recipient: %w", err)
		}
		// The recipient no longer exists; the record is failed for good.
		retryable := false
		meta := models.RetryMetadata{
			FailureReason: "recipient not found",
			IsRetryable:   &retryable,
		}
		if err := c.store.UpdateTransactionStatus(ctx, txID, models.StatusFailed, meta); err != nil {
			return fmt.Errorf("recording retry failure: %w", err)
		}
		notifyFailure(ctx, c.notifier, c.logger, record.FromAccount, record.ToContact, record.Amount, "recipient not found")
		return nil
	}

	lastRetryAt := c.now()
	attempt := record
	attempt.ToAccount = toAccount
	attempt.Status = models.StatusSuccess
	attempt.FailureReason = ""
	attempt.RetryCount = record.RetryCount + 1
	attempt.LastRetryAt = &lastRetryAt

	if err := c.store.AtomicTransfer(ctx, attempt); err != nil {
		reason := err.Error()
		if errors.Is(err, interfaces.ErrInsufficientFunds) {
			reason = "insufficient funds"
		}
		meta := models.RetryMetadata{
			RetryCount:    attempt.RetryCount,
			LastRetryAt:   &lastRetryAt,
			FailureReason: reason,
		}
		if err := c.store.UpdateTransactionStatus(ctx, txID, models.StatusFailed, meta); err != nil {
			return fmt.Errorf("recording retry failure: %w", err)
		}
		c.logger.Warn("retry failed",
			zap.String("transaction_id", txID),
			zap.Int("retry_count", attempt.RetryCount),
			zap.String("reason", reason),
		)
		notifyFailure(ctx, c.notifier, c.logger, record.FromAccount, record.ToContact, record.Amount, reason)
		return nil
	}

	c.logger.Info("retry succeeded",
		zap.String("transaction_id", txID),
		zap.Int("retry_count", attempt.RetryCount),
	)

	message := fmt.Sprintf("The transfer of %s to %s went through",
		record.Amount.StringFixed(2), record.ToContact)
	if err := c.notifier.Notify(ctx, record.FromAccount, "Transfer retried successfully", message); err != nil {
		c.logger.Error("sending retry notification",
			zap.String("owner_id", record.FromAccount),
			zap.Error(err),
		)
	}
	return nil
}

// Cancel transitions a non-terminal record to canceled. Canceling an already
// canceled record is a no-op; a completed transfer cannot be canceled, nor
// can a record outside its cancellation window.
func (c *RetryController) Cancel(ctx context.Context, txID string) error {
	record, err := c.store.GetTransaction(ctx, txID)
	if err != nil {
		return err
	}

	if record.Status == models.StatusCanceled {
		return nil
	}
	if record.Status == models.StatusSuccess {
		return fmt.Errorf("%w: transfer already completed", ErrNotCancelable)
	}
	if !record.IsCancelable {
		return ErrNotCancelable
	}
	if record.CancelableUntil != nil && c.now().After(*record.CancelableUntil) {
		return fmt.Errorf("%w: cancellation window elapsed", ErrNotCancelable)
	}

	canceledAt := c.now()
	meta := models.RetryMetadata{CanceledAt: &canceledAt}
	if err := c.store.UpdateTransactionStatus(ctx, txID, models.StatusCanceled, meta); err != nil {
		return err
	}

	c.logger.Info("transaction canceled", zap.String("transaction_id", txID))
	return nil
}
