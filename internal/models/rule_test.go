package models

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFrequency(t *testing.T) {
	tests := []struct {
		raw     string
		want    Frequency
		wantErr bool
	}{
		{raw: "daily", want: FrequencyDaily},
		{raw: "weekly", want: FrequencyWeekly},
		{raw: "monthly", want: FrequencyMonthly},
		{raw: "yearly", want: FrequencyYearly},
		{raw: "MONTHLY", want: FrequencyMonthly},
		{raw: " daily ", want: FrequencyDaily},
		{raw: "fortnightly", wantErr: true},
		{raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, err := ParseFrequency(tt.raw)
			if tt.wantErr {
				// Unknown values must error out, never default to a cadence.
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func validRule() RecurringRule {
	return RecurringRule{
		ID:            "rule-1",
		FromAccount:   "acct-sender",
		ToContact:     "+15550001111",
		Amount:        decimal.NewFromInt(100),
		Frequency:     FrequencyDaily,
		StartDate:     time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC),
		ExecutionTime: ExecutionTime{Hour: 9, Minute: 0},
		IsActive:      true,
	}
}

func TestRuleValidate(t *testing.T) {
	assert.NoError(t, validRule().Validate())

	tests := []struct {
		name   string
		mutate func(*RecurringRule)
	}{
		{"missing id", func(r *RecurringRule) { r.ID = "" }},
		{"missing from account", func(r *RecurringRule) { r.FromAccount = "" }},
		{"missing contact", func(r *RecurringRule) { r.ToContact = "" }},
		{"zero amount", func(r *RecurringRule) { r.Amount = decimal.Zero }},
		{"negative amount", func(r *RecurringRule) { r.Amount = decimal.NewFromInt(-5) }},
		{"unknown frequency", func(r *RecurringRule) { r.Frequency = "fortnightly" }},
		{"zero start date", func(r *RecurringRule) { r.StartDate = time.Time{} }},
		{"hour out of range", func(r *RecurringRule) { r.ExecutionTime.Hour = 24 }},
		{"minute out of range", func(r *RecurringRule) { r.ExecutionTime.Minute = 60 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := validRule()
			tt.mutate(&rule)
			assert.Error(t, rule.Validate())
		})
	}
}

func TestTransactionStatusTerminal(t *testing.T) {
	assert.True(t, StatusSuccess.Terminal())
	assert.True(t, StatusCanceled.Terminal())
	assert.False(t, StatusPending.Terminal())
	assert.False(t, StatusFailed.Terminal())
	assert.False(t, StatusRetrying.Terminal())
}

func TestNewTransactionBuilders(t *testing.T) {
	rule := validRule()
	now := time.Date(2024, time.January, 1, 9, 0, 0, 0, time.UTC)

	success := NewSuccessTransaction(rule, "acct-recipient", now)
	assert.Equal(t, rule.ID, success.ID, "a scheduled fire shares its id with the rule")
	assert.Equal(t, StatusSuccess, success.Status)
	assert.Equal(t, TypeRecurringTransfer, success.Type)
	assert.True(t, success.IsCancelable)
	assert.False(t, success.IsRetryable)

	failed := NewFailedTransaction(rule, "", "recipient not found", now)
	assert.Equal(t, StatusFailed, failed.Status)
	assert.Equal(t, "recipient not found", failed.FailureReason)
	assert.False(t, failed.IsCancelable)
	assert.True(t, failed.IsRetryable)
	assert.Zero(t, failed.RetryCount)
}
