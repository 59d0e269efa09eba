package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/interfaces"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/models"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/storage/memory"
)

// captureNotifier records every notification for assertions.
type captureNotifier struct {
	mu    sync.Mutex
	notes []capturedNote
}

type capturedNote struct {
	OwnerID string
	Title   string
	Message string
}

func (n *captureNotifier) Notify(ctx context.Context, ownerID, title, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notes = append(n.notes, capturedNote{OwnerID: ownerID, Title: title, Message: message})
	return nil
}

func (n *captureNotifier) all() []capturedNote {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]capturedNote(nil), n.notes...)
}

// brokenStore simulates infrastructure failure on the transfer path.
type brokenStore struct {
	*memory.Store
	transferErr error
}

func (s *brokenStore) AtomicTransfer(ctx context.Context, record models.TransactionRecord) error {
	if s.transferErr != nil {
		return s.transferErr
	}
	return s.Store.AtomicTransfer(ctx, record)
}

func testRule() models.RecurringRule {
	return models.RecurringRule{
		ID:            "rule-1",
		FromAccount:   "acct-sender",
		ToContact:     "+15550001111",
		Amount:        decimal.NewFromInt(100),
		Frequency:     models.FrequencyDaily,
		StartDate:     time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
		ExecutionTime: models.ExecutionTime{Hour: 9, Minute: 0},
		Description:   "rent share",
		IsActive:      true,
	}
}

func seededStore(senderBalance int64) *memory.Store {
	store := memory.NewStore()
	store.AddAccount("acct-sender", "+15550009999", decimal.NewFromInt(senderBalance))
	store.AddAccount("acct-recipient", "+15550001111", decimal.NewFromInt(50))
	return store
}

func TestExecuteSuccess(t *testing.T) {
	store := seededStore(500)
	notifier := &captureNotifier{}
	executor := NewExecutor(store, notifier, zap.NewNop())

	rec := executor.Execute(context.Background(), testRule())

	assert.Equal(t, models.StatusSuccess, rec.Status)
	assert.Equal(t, "acct-recipient", rec.ToAccount)
	assert.Equal(t, models.TypeRecurringTransfer, rec.Type)

	assert.True(t, store.Balance("acct-sender").Equal(decimal.NewFromInt(400)))
	assert.True(t, store.Balance("acct-recipient").Equal(decimal.NewFromInt(150)))

	saved, err := store.GetTransaction(context.Background(), "rule-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusSuccess, saved.Status)

	assert.Empty(t, notifier.all(), "success raises no notification")
}

func TestExecuteRecipientNotFound(t *testing.T) {
	store := seededStore(500)
	notifier := &captureNotifier{}
	executor := NewExecutor(store, notifier, zap.NewNop())

	rule := testRule()
	rule.ToContact = "+15550000000"
	rec := executor.Execute(context.Background(), rule)

	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.Equal(t, "recipient not found", rec.FailureReason)
	assert.False(t, rec.IsCancelable)
	assert.Empty(t, rec.ToAccount)

	// No balance mutation on either side.
	assert.True(t, store.Balance("acct-sender").Equal(decimal.NewFromInt(500)))
	assert.True(t, store.Balance("acct-recipient").Equal(decimal.NewFromInt(50)))

	saved, err := store.GetTransaction(context.Background(), "rule-1")
	require.NoError(t, err)
	assert.Equal(t, models.StatusFailed, saved.Status)
	assert.True(t, saved.IsRetryable)

	notes := notifier.all()
	require.Len(t, notes, 1)
	assert.Equal(t, "acct-sender", notes[0].OwnerID)
	assert.Contains(t, notes[0].Message, "recipient not found")
	assert.Contains(t, notes[0].Message, "100.00")
}

func TestExecuteInsufficientFunds(t *testing.T) {
	store := seededStore(40)
	notifier := &captureNotifier{}
	executor := NewExecutor(store, notifier, zap.NewNop())

	rec := executor.Execute(context.Background(), testRule())

	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.Equal(t, "insufficient funds", rec.FailureReason)
	assert.True(t, rec.IsRetryable)

	assert.True(t, store.Balance("acct-sender").Equal(decimal.NewFromInt(40)))
	assert.True(t, store.Balance("acct-recipient").Equal(decimal.NewFromInt(50)))

	notes := notifier.all()
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "insufficient funds")
}

func TestExecuteInfrastructureError(t *testing.T) {
	store := &brokenStore{
		Store:       seededStore(500),
		transferErr: errors.New("store unavailable"),
	}
	notifier := &captureNotifier{}
	executor := NewExecutor(store, notifier, zap.NewNop())

	rec := executor.Execute(context.Background(), testRule())

	assert.Equal(t, models.StatusFailed, rec.Status)
	assert.Equal(t, "store unavailable", rec.FailureReason)
	assert.True(t, rec.IsRetryable)

	notes := notifier.all()
	require.Len(t, notes, 1)
	assert.Contains(t, notes[0].Message, "store unavailable")
}

var _ interfaces.Notifier = (*captureNotifier)(nil)
var _ interfaces.LedgerStore = (*brokenStore)(nil)
