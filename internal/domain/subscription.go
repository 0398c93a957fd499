package domain

import (
	"fmt"
	"strings"
	"time"
)

// SubscriptionState is the outcome of a subscription evaluation
type SubscriptionState string

const (
	SubscriptionActive  SubscriptionState = "ACTIVE"
	SubscriptionOverdue SubscriptionState = "OVERDUE"
)

// Due day bounds
const (
	MinDueDay     = 1
	MaxDueDay     = 31
	DefaultDueDay = 30
)

// Payment dates outside these years are rejected as invalid
const (
	MinPaymentYear = 1900
	MaxPaymentYear = 2200
)

const secondsPerDay = 24 * 60 * 60

// SubscriptionStatus is derived from a student's last payment and due day.
// It is never stored.
type SubscriptionStatus struct {
	Access               bool              `json:"access"`
	State                SubscriptionState `json:"state"`
	DaysRemaining        int               `json:"days_remaining"`          // signed; negative when overdue
	DaysOverdueThisMonth int               `json:"days_overdue_this_month"` // 0 while active
	CycleDueDate         time.Time         `json:"-"`                       // occurrence the last payment satisfied
	NextDueDate          time.Time         `json:"-"`
	Message              string            `json:"message"`
}

// ComputeSubscriptionStatus evaluates a subscription as of today.
//
// All dates are reduced to their UTC calendar day before comparing. A payment
// made before its own month's due date counts toward the previous month's
// cycle; a payment on or after it counts toward its own month. The next due
// date is the due day of the month following that cycle, clamped to the
// month's last day. Months are never advanced automatically: once the next
// due date has passed the subscription stays overdue until a new payment is
// recorded. A zero today means "now".
func ComputeSubscriptionStatus(lastPayment time.Time, dueDay int, today time.Time) (*SubscriptionStatus, error) {
	if lastPayment.IsZero() {
		return nil, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	if err := checkPaymentYear(lastPayment); err != nil {
		return nil, err
	}
	if dueDay < MinDueDay || dueDay > MaxDueDay {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidDueDay, dueDay)
	}
	if today.IsZero() {
		today = time.Now()
	}

	paid := CivilDate(lastPayment)
	now := CivilDate(today)

	cycle := DueDateIn(paid.Year(), paid.Month(), dueDay)
	if paid.Before(cycle) {
		cycle = DueDateIn(paid.Year(), paid.Month()-1, dueDay)
	}
	next := DueDateIn(cycle.Year(), cycle.Month()+1, dueDay)

	// Both sides are UTC midnights, so the difference is a whole number of days.
	// Unix seconds avoid the ~292 year range of time.Duration.
	daysRemaining := int((next.Unix() - now.Unix()) / secondsPerDay)
	access := daysRemaining >= 0

	status := &SubscriptionStatus{
		Access:        access,
		DaysRemaining: daysRemaining,
		CycleDueDate:  cycle,
		NextDueDate:   next,
	}
	if access {
		status.State = SubscriptionActive
		status.Message = fmt.Sprintf("Suscripción activa. %d días restantes.", daysRemaining)
		return status, nil
	}

	// Resets with each calendar month: the 1st of a new month reads "1".
	status.State = SubscriptionOverdue
	status.DaysOverdueThisMonth = now.Day()
	status.Message = "Suscripción vencida. " + overdueLabel(status.DaysOverdueThisMonth) + "."
	return status, nil
}

// CivilDate truncates t to midnight UTC of its UTC calendar day.
func CivilDate(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DaysIn returns the number of days in the given month. Out-of-range months
// are normalized the way time.Date does (month 0 is December of year-1).
func DaysIn(year int, month time.Month) int {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return time.Date(first.Year(), first.Month()+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// DueDateIn returns the due day within the given month, clamped to the
// month's last day.
func DueDateIn(year int, month time.Month, dueDay int) time.Time {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	day := dueDay
	if last := DaysIn(first.Year(), first.Month()); day > last {
		day = last
	}
	return time.Date(first.Year(), first.Month(), day, 0, 0, 0, 0, time.UTC)
}

// ParseDueDay validates a due day value.
func ParseDueDay(day int) (int, error) {
	if day < MinDueDay || day > MaxDueDay {
		return 0, fmt.Errorf("%w: got %d", ErrInvalidDueDay, day)
	}
	return day, nil
}

// ParsePaymentDate accepts YYYY-MM-DD or RFC 3339 and returns the UTC
// calendar day it names. For RFC 3339 input the UTC day is used. Years
// outside MinPaymentYear..MaxPaymentYear are rejected.
func ParsePaymentDate(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, fmt.Errorf("%w: empty date", ErrInvalidDate)
	}
	t, err := time.Parse(DateLayout, raw)
	if err != nil {
		rfc, rfcErr := time.Parse(time.RFC3339, raw)
		if rfcErr != nil {
			return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, raw)
		}
		t = CivilDate(rfc)
	}
	if err := checkPaymentYear(t); err != nil {
		return time.Time{}, err
	}
	return t, nil
}

func checkPaymentYear(t time.Time) error {
	if y := t.UTC().Year(); y < MinPaymentYear || y > MaxPaymentYear {
		return fmt.Errorf("%w: year %d outside %d-%d", ErrInvalidDate, y, MinPaymentYear, MaxPaymentYear)
	}
	return nil
}

// DateLayout is the date-only wire format
const DateLayout = "2006-01-02"

func overdueLabel(days int) string {
	if days == 1 {
		return "1 día de atraso"
	}
	return fmt.Sprintf("%d días de atraso", days)
}
