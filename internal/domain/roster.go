package domain

import (
	"errors"
	"fmt"
	"time"
)

// StatusCategory is a display grouping layered over the access decision.
// It never changes whether access is granted.
type StatusCategory string

const (
	CategoryUpToDate  StatusCategory = "up_to_date"
	CategoryDueSoon   StatusCategory = "due_soon"
	CategoryOverdue   StatusCategory = "overdue"
	CategoryNoPayment StatusCategory = "no_payment"
	CategoryError     StatusCategory = "error"
)

// DueSoonDays is the window in which an active subscription is flagged as due soon
const DueSoonDays = 7

// StatusError describes why a student's status could not be computed
type StatusError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RosterEntry is one student together with its evaluated status
type RosterEntry struct {
	Student  *Student            `json:"student"`
	Status   *SubscriptionStatus `json:"status,omitempty"`
	Error    *StatusError        `json:"status_error,omitempty"`
	Category StatusCategory      `json:"category"`
	Label    string              `json:"label"`
}

// RosterSummary counts students per category
type RosterSummary struct {
	GeneratedAt time.Time              `json:"generated_at"`
	Today       string                 `json:"today"`
	Total       int                    `json:"total"`
	Counts      map[StatusCategory]int `json:"counts"`
	OverdueIDs  []string               `json:"overdue_ids"`
}

// BuildRosterEntry evaluates a student and classifies the result.
// Calculation failures are captured in the entry instead of being returned.
func BuildRosterEntry(student *Student, today time.Time) RosterEntry {
	entry := RosterEntry{Student: student}

	status, err := student.SubscriptionStatus(today)
	if err != nil {
		entry.Error = &StatusError{Code: ErrorCode(err), Message: err.Error()}
		if errors.Is(err, ErrMissingPaymentData) {
			entry.Category = CategoryNoPayment
			entry.Label = "Sin pago registrado"
		} else {
			entry.Category = CategoryError
			entry.Label = "Sin datos"
		}
		return entry
	}

	entry.Status = status
	entry.Category, entry.Label = Classify(status)
	return entry
}

// Classify maps a status to its display category and label
func Classify(status *SubscriptionStatus) (StatusCategory, string) {
	switch {
	case !status.Access:
		return CategoryOverdue, overdueLabel(status.DaysOverdueThisMonth)
	case status.DaysRemaining == 0:
		return CategoryDueSoon, "Vence hoy"
	case status.DaysRemaining <= DueSoonDays:
		return CategoryDueSoon, fmt.Sprintf("%d días restantes", status.DaysRemaining)
	default:
		return CategoryUpToDate, fmt.Sprintf("%d días restantes", status.DaysRemaining)
	}
}

// Summarize counts roster entries per category
func Summarize(entries []RosterEntry, generatedAt, today time.Time) *RosterSummary {
	summary := &RosterSummary{
		GeneratedAt: generatedAt,
		Today:       today.Format(DateLayout),
		Total:       len(entries),
		Counts: map[StatusCategory]int{
			CategoryUpToDate:  0,
			CategoryDueSoon:   0,
			CategoryOverdue:   0,
			CategoryNoPayment: 0,
			CategoryError:     0,
		},
		OverdueIDs: []string{},
	}
	for _, e := range entries {
		summary.Counts[e.Category]++
		if e.Category == CategoryOverdue {
			summary.OverdueIDs = append(summary.OverdueIDs, e.Student.ID)
		}
	}
	return summary
}

// ErrorCode returns the stable machine code for a subscription calculation error
func ErrorCode(err error) string {
	switch {
	case errors.Is(err, ErrMissingPaymentData):
		return "missing_payment_data"
	case errors.Is(err, ErrInvalidDate):
		return "invalid_payment_date"
	case errors.Is(err, ErrInvalidDueDay):
		return "invalid_due_day"
	default:
		return "status_error"
	}
}
