package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/interfaces"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/models"
)

// Store is an in-memory implementation of interfaces.LedgerStore. It backs
// tests and local runs without a database; the transfer path serializes per
// account the same way the Postgres row lock does.
type Store struct {
	mu           sync.Mutex // protects the maps below
	accounts     map[string]decimal.Decimal
	contacts     map[string]string // contact -> account id
	rules        map[string]models.RecurringRule
	transactions map[string]models.TransactionRecord

	lockMu       sync.Mutex // protects accountLocks itself
	accountLocks map[string]*sync.Mutex
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		accounts:     make(map[string]decimal.Decimal),
		contacts:     make(map[string]string),
		rules:        make(map[string]models.RecurringRule),
		transactions: make(map[string]models.TransactionRecord),
		accountLocks: make(map[string]*sync.Mutex),
	}
}

// AddAccount registers an account with its contact and opening balance.
func (s *Store) AddAccount(id, contact string, balance decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.accounts[id] = balance
	if contact != "" {
		s.contacts[contact] = id
	}
}

// AddRule registers a recurring rule.
func (s *Store) AddRule(rule models.RecurringRule) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.rules[rule.ID] = rule
}

// PutTransaction stores a record directly, bypassing the transfer path.
func (s *Store) PutTransaction(record models.TransactionRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[record.ID] = record
}

// Balance returns the current balance of an account, zero if unknown.
func (s *Store) Balance(accountID string) decimal.Decimal {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.accounts[accountID]
}

// Rule returns a rule by id.
func (s *Store) Rule(ruleID string) (models.RecurringRule, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[ruleID]
	return rule, ok
}

func (s *Store) ListActiveRules(ctx context.Context) ([]models.RecurringRule, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var active []models.RecurringRule
	for _, rule := range s.rules {
		if rule.IsActive {
			active = append(active, rule)
		}
	}
	return active, nil
}

func (s *Store) SetLastExecuted(ctx context.Context, ruleID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rule, ok := s.rules[ruleID]
	if !ok {
		return fmt.Errorf("rule %s not found", ruleID)
	}
	rule.LastExecuted = &at
	s.rules[ruleID] = rule
	return nil
}

func (s *Store) ResolveAccountByContact(ctx context.Context, contact string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	accountID, ok := s.contacts[contact]
	if !ok {
		return "", interfaces.ErrContactNotFound
	}
	return accountID, nil
}

// accountLock returns the mutex guarding one account, creating it on first
// use.
func (s *Store) accountLock(accountID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()

	if _, ok := s.accountLocks[accountID]; !ok {
		s.accountLocks[accountID] = &sync.Mutex{}
	}
	return s.accountLocks[accountID]
}

// AtomicTransfer moves record.Amount between the two accounts and persists
// the record as one unit. Both account locks are held for the whole
// check-and-transfer so no interleaving can double-debit or lose an update.
func (s *Store) AtomicTransfer(ctx context.Context, record models.TransactionRecord) error {
	from := s.accountLock(record.FromAccount)
	to := s.accountLock(record.ToAccount)

	// Lock in a fixed order to avoid deadlocks between opposing transfers.
	switch {
	case record.FromAccount == record.ToAccount:
		from.Lock()
		defer from.Unlock()
	case record.FromAccount < record.ToAccount:
		from.Lock()
		to.Lock()
		defer from.Unlock()
		defer to.Unlock()
	default:
		to.Lock()
		from.Lock()
		defer to.Unlock()
		defer from.Unlock()
	}

	// The account locks make the read-check-write below atomic; s.mu only
	// guards individual map accesses.
	s.mu.Lock()
	balance, ok := s.accounts[record.FromAccount]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("account %s not found", record.FromAccount)
	}
	if balance.Cmp(record.Amount) < 0 {
		return interfaces.ErrInsufficientFunds
	}

	s.mu.Lock()
	s.accounts[record.FromAccount] = balance.Sub(record.Amount)
	s.accounts[record.ToAccount] = s.accounts[record.ToAccount].Add(record.Amount)
	s.transactions[record.ID] = record
	s.mu.Unlock()
	return nil
}

func (s *Store) SaveFailedTransaction(ctx context.Context, record models.TransactionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.transactions[record.ID] = record
	return nil
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus, meta models.RetryMetadata) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.transactions[txID]
	if !ok {
		return interfaces.ErrTransactionNotFound
	}

	record.Status = status
	if meta.RetryCount > 0 {
		record.RetryCount = meta.RetryCount
	}
	if meta.LastRetryAt != nil {
		record.LastRetryAt = meta.LastRetryAt
	}
	if meta.CanceledAt != nil {
		record.CanceledAt = meta.CanceledAt
	}
	if meta.FailureReason != "" {
		record.FailureReason = meta.FailureReason
	}
	if meta.IsRetryable != nil {
		record.IsRetryable = *meta.IsRetryable
	}

	s.transactions[txID] = record
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, txID string) (models.TransactionRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.transactions[txID]
	if !ok {
		return models.TransactionRecord{}, interfaces.ErrTransactionNotFound
	}
	return record, nil
}

// Compile-time check: Store implements the LedgerStore port.
var _ interfaces.LedgerStore = (*Store)(nil)
