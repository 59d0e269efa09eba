package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Frequency is how often a recurring rule fires.
type Frequency string

const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// ParseFrequency validates a raw frequency value. An unknown value is an
// error rather than a default: a rule carrying one is malformed and gets
// skipped by the scheduler, never silently coerced.
func ParseFrequency(raw string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(raw)))
	if !f.Valid() {
		return "", fmt.Errorf("unknown frequency %q", raw)
	}
	return f, nil
}

// Valid reports whether f is one of the four supported cadences.
func (f Frequency) Valid() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// ExecutionTime is the time of day a rule fires, compared at minute
// granularity only.
type ExecutionTime struct {
	Hour   int
	Minute int
}

// RecurringRule is a user-defined recurring money transfer. The recipient is
// kept as the contact the user entered (e.g. a phone number) and resolved to
// an account id only at execution time.
type RecurringRule struct {
	ID            string
	FromAccount   string
	ToContact     string
	Amount        decimal.Decimal
	Frequency     Frequency
	StartDate     time.Time
	ExecutionTime ExecutionTime
	EndDate       *time.Time
	Description   string
	LastExecuted  *time.Time
	IsActive      bool
}

// Validate reports whether the rule is well formed enough to evaluate.
// The scheduler skips rules that fail validation and logs them; they are
// never retried automatically.
func (r RecurringRule) Validate() error {
	if r.ID == "" {
		return errors.New("rule id is required")
	}
	if r.FromAccount == "" {
		return errors.New("fromAccount is required")
	}
	if r.ToContact == "" {
		return errors.New("toContact is required")
	}
	if r.Amount.Cmp(decimal.Zero) <= 0 {
		return fmt.Errorf("amount must be positive, got %s", r.Amount)
	}
	if !r.Frequency.Valid() {
		return fmt.Errorf("unknown frequency %q", r.Frequency)
	}
	if r.StartDate.IsZero() {
		return errors.New("startDate is required")
	}
	if r.ExecutionTime.Hour < 0 || r.ExecutionTime.Hour > 23 {
		return fmt.Errorf("executionTime hour out of range: %d", r.ExecutionTime.Hour)
	}
	if r.ExecutionTime.Minute < 0 || r.ExecutionTime.Minute > 59 {
		return fmt.Errorf("executionTime minute out of range: %d", r.ExecutionTime.Minute)
	}
	return nil
}
