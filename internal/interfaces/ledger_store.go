package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/models"
)

// Sentinel errors every LedgerStore implementation translates its own
// failures into, so callers can branch with errors.Is.
var (
	ErrContactNotFound     = errors.New("recipient not found")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrTransactionNotFound = errors.New("transaction not found")
)

// LedgerStore is the only component that touches durable state. Balances are
// never cached by callers: every check and mutation is a fresh operation
// against the store.
type LedgerStore interface {
	// ListActiveRules returns all rules with IsActive set. A consistent
	// read, not necessarily transactional.
	ListActiveRules(ctx context.Context) ([]models.RecurringRule, error)

	// SetLastExecuted advances a rule's last-fire instant after an attempt,
	// successful or not.
	SetLastExecuted(ctx context.Context, ruleID string, at time.Time) error

	// ResolveAccountByContact maps a user-entered contact to an account id,
	// or ErrContactNotFound.
	ResolveAccountByContact(ctx context.Context, contact string) (string, error)

	// AtomicTransfer debits record.FromAccount, credits record.ToAccount and
	// persists record as a single all-or-nothing unit. It returns
	// ErrInsufficientFunds, with no balance change, when the source balance
	// does not cover record.Amount. Concurrent transfers touching the same
	// account must serialize here.
	AtomicTransfer(ctx context.Context, record models.TransactionRecord) error

	// SaveFailedTransaction persists a failed attempt. No balances change.
	SaveFailedTransaction(ctx context.Context, record models.TransactionRecord) error

	// UpdateTransactionStatus transitions a record's status and applies the
	// metadata fields that are set. ErrTransactionNotFound if txID is
	// unknown.
	UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus, meta models.RetryMetadata) error

	// GetTransaction fetches a record by id, or ErrTransactionNotFound.
	GetTransaction(ctx context.Context, txID string) (models.TransactionRecord, error)
}
