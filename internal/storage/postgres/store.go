package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/interfaces"
	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/models"
)

// Store is the Postgres implementation of interfaces.LedgerStore.
//
// AtomicTransfer runs inside a single SQL transaction with SELECT ... FOR
// UPDATE on the sender row, so concurrent transfers on the same account
// serialize at the database and the balance check can never race the debit.
type Store struct {
	db *sql.DB
}

// NewStore wraps an open database handle. The caller owns the handle's
// lifecycle.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) ListActiveRules(ctx context.Context) ([]models.RecurringRule, error) {
	const query = `SELECT id, from_account, to_contact, amount, frequency, start_date,
		execution_hour, execution_minute, end_date, description, last_executed, is_active
	FROM recurring_rules
	WHERE is_active = true`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []models.RecurringRule
	for rows.Next() {
		var (
			rule         models.RecurringRule
			frequency    string
			endDate      sql.NullTime
			description  sql.NullString
			lastExecuted sql.NullTime
		)
		err := rows.Scan(
			&rule.ID,
			&rule.FromAccount,
			&rule.ToContact,
			&rule.Amount,
			&frequency,
			&rule.StartDate,
			&rule.ExecutionTime.Hour,
			&rule.ExecutionTime.Minute,
			&endDate,
			&description,
			&lastExecuted,
			&rule.IsActive,
		)
		if err != nil {
			return nil, err
		}

		// Frequency is carried raw; the scheduler's Validate pass rejects
		// unknown values as malformed rules instead of coercing them.
		rule.Frequency = models.Frequency(frequency)
		rule.Description = description.String
		if endDate.Valid {
			rule.EndDate = &endDate.Time
		}
		if lastExecuted.Valid {
			rule.LastExecuted = &lastExecuted.Time
		}
		rules = append(rules, rule)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return rules, nil
}

func (s *Store) SetLastExecuted(ctx context.Context, ruleID string, at time.Time) error {
	const query = `UPDATE recurring_rules SET last_executed = $2 WHERE id = $1`

	_, err := s.db.ExecContext(ctx, query, ruleID, at)
	return err
}

func (s *Store) ResolveAccountByContact(ctx context.Context, contact string) (string, error) {
	const query = `SELECT id FROM accounts WHERE contact = $1`

	var accountID string
	err := s.db.QueryRowContext(ctx, query, contact).Scan(&accountID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", interfaces.ErrContactNotFound
	}
	if err != nil {
		return "", err
	}
	return accountID, nil
}

func (s *Store) AtomicTransfer(ctx context.Context, record models.TransactionRecord) error {
	dbTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			dbTx.Rollback()
		}
	}()

	var balance decimal.Decimal
	err = dbTx.QueryRowContext(ctx,
		`SELECT balance FROM accounts WHERE id = $1 FOR UPDATE`,
		record.FromAccount,
	).Scan(&balance)
	if err != nil {
		return err
	}

	if balance.Cmp(record.Amount) < 0 {
		err = interfaces.ErrInsufficientFunds
		return err
	}

	_, err = dbTx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance - $2 WHERE id = $1`,
		record.FromAccount, record.Amount,
	)
	if err != nil {
		return err
	}

	_, err = dbTx.ExecContext(ctx,
		`UPDATE accounts SET balance = balance + $2 WHERE id = $1`,
		record.ToAccount, record.Amount,
	)
	if err != nil {
		return err
	}

	err = upsertTransaction(ctx, dbTx, record)
	if err != nil {
		return err
	}

	err = dbTx.Commit()
	return err
}

func (s *Store) SaveFailedTransaction(ctx context.Context, record models.TransactionRecord) error {
	return upsertTransaction(ctx, s.db, record)
}

// execer is satisfied by both *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// upsertTransaction inserts or replaces a record by id. Retries reuse the
// original id, so a re-attempt overwrites the failed row in place.
func upsertTransaction(ctx context.Context, db execer, record models.TransactionRecord) error {
	const query = `INSERT INTO transactions (
		id, from_account, to_account, to_contact, amount, type, status,
		description, created_at, is_cancelable, cancelable_until, canceled_at,
		failure_reason, is_retryable, retry_count, last_retry_at
	) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)
	ON CONFLICT (id) DO UPDATE SET
		to_account = EXCLUDED.to_account,
		status = EXCLUDED.status,
		is_cancelable = EXCLUDED.is_cancelable,
		failure_reason = EXCLUDED.failure_reason,
		is_retryable = EXCLUDED.is_retryable,
		retry_count = EXCLUDED.retry_count,
		last_retry_at = EXCLUDED.last_retry_at`

	_, err := db.ExecContext(ctx, query,
		record.ID,
		record.FromAccount,
		nullString(record.ToAccount),
		record.ToContact,
		record.Amount,
		record.Type,
		string(record.Status),
		record.Description,
		record.CreatedAt,
		record.IsCancelable,
		record.CancelableUntil,
		record.CanceledAt,
		nullString(record.FailureReason),
		record.IsRetryable,
		record.RetryCount,
		record.LastRetryAt,
	)
	return err
}

func (s *Store) UpdateTransactionStatus(ctx context.Context, txID string, status models.TransactionStatus, meta models.RetryMetadata) error {
	const query = `UPDATE transactions SET
		status = $2,
		retry_count = CASE WHEN $3 > 0 THEN $3 ELSE retry_count END,
		last_retry_at = COALESCE($4, last_retry_at),
		canceled_at = COALESCE($5, canceled_at),
		failure_reason = CASE WHEN $6 <> '' THEN $6 ELSE failure_reason END,
		is_retryable = COALESCE($7, is_retryable)
	WHERE id = $1`

	result, err := s.db.ExecContext(ctx, query,
		txID,
		string(status),
		meta.RetryCount,
		meta.LastRetryAt,
		meta.CanceledAt,
		meta.FailureReason,
		meta.IsRetryable,
	)
	if err != nil {
		return err
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return interfaces.ErrTransactionNotFound
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, txID string) (models.TransactionRecord, error) {
	const query = `SELECT id, from_account, to_account, to_contact, amount, type, status,
		description, created_at, is_cancelable, cancelable_until, canceled_at,
		failure_reason, is_retryable, retry_count, last_retry_at
	FROM transactions
	WHERE id = $1`

	var (
		record          models.TransactionRecord
		toAccount       sql.NullString
		status          string
		description     sql.NullString
		cancelableUntil sql.NullTime
		canceledAt      sql.NullTime
		failureReason   sql.NullString
		lastRetryAt     sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, query, txID).Scan(
		&record.ID,
		&record.FromAccount,
		&toAccount,
		&record.ToContact,
		&record.Amount,
		&record.Type,
		&status,
		&description,
		&record.CreatedAt,
		&record.IsCancelable,
		&cancelableUntil,
		&canceledAt,
		&failureReason,
		&record.IsRetryable,
		&record.RetryCount,
		&lastRetryAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.TransactionRecord{}, interfaces.ErrTransactionNotFound
	}
	if err != nil {
		return models.TransactionRecord{}, err
	}

	record.ToAccount = toAccount.String
	record.Status = models.TransactionStatus(status)
	record.Description = description.String
	record.FailureReason = failureReason.String
	if cancelableUntil.Valid {
		record.CancelableUntil = &cancelableUntil.Time
	}
	if canceledAt.Valid {
		record.CanceledAt = &canceledAt.Time
	}
	if lastRetryAt.Valid {
		record.LastRetryAt = &lastRetryAt.Time
	}
	return record, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

var _ interfaces.LedgerStore = (*Store)(nil)
