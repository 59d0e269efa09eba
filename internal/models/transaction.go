package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TransactionStatus is the lifecycle state of a transaction record.
// success and canceled are terminal; failed is terminal once retries are
// exhausted.
type TransactionStatus string

const (
	StatusPending  TransactionStatus = "pending"
	StatusSuccess  TransactionStatus = "success"
	StatusFailed   TransactionStatus = "failed"
	StatusRetrying TransactionStatus = "retrying"
	StatusCanceled TransactionStatus = "canceled"
)

// Terminal reports whether no further transition is allowed from s.
func (s TransactionStatus) Terminal() bool {
	return s == StatusSuccess || s == StatusCanceled
}

// TypeRecurringTransfer is the only transaction type this service produces.
const TypeRecurringTransfer = "recurring-transfer"

// MaxRetries caps how many times a failed transaction may be re-attempted.
const MaxRetries = 3

// TransactionRecord is the durable outcome of one transfer attempt. A
// scheduled fire shares its id with the originating rule; retries mutate the
// same record.
type TransactionRecord struct {
	ID              string
	FromAccount     string
	ToAccount       string
	ToContact       string
	Amount          decimal.Decimal
	Type            string
	Status          TransactionStatus
	Description     string
	CreatedAt       time.Time
	IsCancelable    bool
	CancelableUntil *time.Time
	CanceledAt      *time.Time
	FailureReason   string
	IsRetryable     bool
	RetryCount      int
	LastRetryAt     *time.Time
}

// RetryMetadata carries the optional field updates that accompany a status
// transition. Zero values leave the stored field untouched.
type RetryMetadata struct {
	RetryCount    int
	LastRetryAt   *time.Time
	CanceledAt    *time.Time
	FailureReason string
	IsRetryable   *bool
}

// NewSuccessTransaction builds the record the store persists together with a
// completed balance movement.
func NewSuccessTransaction(rule RecurringRule, toAccount string, at time.Time) TransactionRecord {
	return TransactionRecord{
		ID:           rule.ID,
		FromAccount:  rule.FromAccount,
		ToAccount:    toAccount,
		ToContact:    rule.ToContact,
		Amount:       rule.Amount,
		Type:         TypeRecurringTransfer,
		Status:       StatusSuccess,
		Description:  rule.Description,
		CreatedAt:    at,
		IsCancelable: true,
	}
}

// NewFailedTransaction builds the record for an attempt that moved no money.
// toAccount is empty when the recipient could not be resolved.
func NewFailedTransaction(rule RecurringRule, toAccount, reason string, at time.Time) TransactionRecord {
	return TransactionRecord{
		ID:            rule.ID,
		FromAccount:   rule.FromAccount,
		ToAccount:     toAccount,
		ToContact:     rule.ToContact,
		Amount:        rule.Amount,
		Type:          TypeRecurringTransfer,
		Status:        StatusFailed,
		Description:   rule.Description,
		CreatedAt:     at,
		IsCancelable:  false,
		FailureReason: reason,
		IsRetryable:   true,
	}
}
