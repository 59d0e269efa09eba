// Package recurrence decides whether a recurring rule is due at a given
// instant. Evaluation is pure: no clock, no store, no side effects.
package recurrence

import (
	"time"

	"github.com/sheikh-saqib/recurring-transfer-scheduler/internal/models"
)

// ShouldFire reports whether rule is due at now.
//
// A rule only fires when it is active, now is inside [StartDate, EndDate],
// and now matches ExecutionTime to the minute, which limits it to at most one
// scheduler tick per calendar day. The cadence check then compares calendar
// dates against the last execution (or StartDate minus one day for a rule
// that has never fired).
func ShouldFire(rule models.RecurringRule, now time.Time) bool {
	if !rule.IsActive || now.Before(rule.StartDate) {
		return false
	}
	if rule.EndDate != nil && now.After(*rule.EndDate) {
		return false
	}
	if now.Hour() != rule.ExecutionTime.Hour || now.Minute() != rule.ExecutionTime.Minute {
		return false
	}

	reference := rule.StartDate.AddDate(0, 0, -1)
	if rule.LastExecuted != nil {
		reference = *rule.LastExecuted
	}

	switch rule.Frequency {
	case models.FrequencyDaily:
		return dateOf(now).After(dateOf(reference))
	case models.FrequencyWeekly:
		return dateOf(now.AddDate(0, 0, -7)).After(dateOf(reference)) &&
			now.Weekday() == rule.StartDate.Weekday()
	case models.FrequencyMonthly:
		// A start day that does not exist in the current month (31 in a
		// 30-day month) never matches, so the rule skips that month.
		return yearMonthAfter(now, reference) && now.Day() == rule.StartDate.Day()
	case models.FrequencyYearly:
		return now.Year() > reference.Year() &&
			now.Month() == rule.StartDate.Month() &&
			now.Day() == rule.StartDate.Day()
	}
	return false
}

// dateOf truncates t to its calendar date.
func dateOf(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func yearMonthAfter(now, ref time.Time) bool {
	if now.Year() != ref.Year() {
		return now.Year() > ref.Year()
	}
	return now.Month() > ref.Month()
}
