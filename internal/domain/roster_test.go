package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		status   SubscriptionStatus
		category StatusCategory
		label    string
	}{
		{SubscriptionStatus{Access: true, DaysRemaining: 0}, CategoryDueSoon, "Vence hoy"},
		{SubscriptionStatus{Access: true, DaysRemaining: 1}, CategoryDueSoon, "1 días restantes"},
		{SubscriptionStatus{Access: true, DaysRemaining: 7}, CategoryDueSoon, "7 días restantes"},
		{SubscriptionStatus{Access: true, DaysRemaining: 8}, CategoryUpToDate, "8 días restantes"},
		{SubscriptionStatus{Access: false, DaysRemaining: -1, DaysOverdueThisMonth: 1}, CategoryOverdue, "1 día de atraso"},
		{SubscriptionStatus{Access: false, DaysRemaining: -40, DaysOverdueThisMonth: 9}, CategoryOverdue, "9 días de atraso"},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			category, label := Classify(&tt.status)
			assert.Equal(t, tt.category, category)
			assert.Equal(t, tt.label, label)
		})
	}
}

func TestClassify_DueSoonNeverChangesAccess(t *testing.T) {
	paid := date(2024, 1, 30)
	for i := 0; i < 60; i++ {
		today := paid.AddDate(0, 0, i)
		status, err := ComputeSubscriptionStatus(paid, 30, today)
		if !assert.NoError(t, err) {
			return
		}
		category, _ := Classify(status)
		assert.Equal(t, status.Access, category != CategoryOverdue, "day %s", today.Format(DateLayout))
	}
}

func TestBuildRosterEntry(t *testing.T) {
	today := date(2024, 3, 2)

	noPayment := BuildRosterEntry(&Student{ID: "A", DueDay: 30}, today)
	assert.Equal(t, CategoryNoPayment, noPayment.Category)
	assert.Equal(t, "Sin pago registrado", noPayment.Label)
	assert.Equal(t, "missing_payment_data", noPayment.Error.Code)
	assert.Nil(t, noPayment.Status)

	paid := date(2024, 1, 30)
	broken := BuildRosterEntry(&Student{ID: "B", DueDay: 45, LastPaymentDate: &paid}, today)
	assert.Equal(t, CategoryError, broken.Category)
	assert.Equal(t, "Sin datos", broken.Label)
	assert.Equal(t, "invalid_due_day", broken.Error.Code)

	overdue := BuildRosterEntry(&Student{ID: "C", DueDay: 30, LastPaymentDate: &paid}, today)
	assert.Equal(t, CategoryOverdue, overdue.Category)
	assert.Equal(t, "2 días de atraso", overdue.Label)
	assert.Nil(t, overdue.Error)
	assert.Equal(t, -2, overdue.Status.DaysRemaining)
}

func TestSummarize(t *testing.T) {
	entries := []RosterEntry{
		{Student: &Student{ID: "A"}, Category: CategoryOverdue},
		{Student: &Student{ID: "B"}, Category: CategoryUpToDate},
		{Student: &Student{ID: "C"}, Category: CategoryOverdue},
		{Student: &Student{ID: "D"}, Category: CategoryNoPayment},
	}
	generated := time.Date(2024, 3, 2, 6, 0, 0, 0, time.UTC)

	summary := Summarize(entries, generated, date(2024, 3, 2))
	assert.Equal(t, 4, summary.Total)
	assert.Equal(t, "2024-03-02", summary.Today)
	assert.Equal(t, []string{"A", "C"}, summary.OverdueIDs)
	assert.Equal(t, 2, summary.Counts[CategoryOverdue])
	assert.Equal(t, 0, summary.Counts[CategoryDueSoon])
	assert.Len(t, summary.Counts, 5)

	empty := Summarize(nil, generated, date(2024, 3, 2))
	assert.Zero(t, empty.Total)
	assert.NotNil(t, empty.OverdueIDs)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, "missing_payment_data", ErrorCode(ErrMissingPaymentData))
	assert.Equal(t, "invalid_payment_date", ErrorCode(fmt.Errorf("wrap: %w", ErrInvalidDate)))
	assert.Equal(t, "invalid_due_day", ErrorCode(ErrInvalidDueDay))
	assert.Equal(t, "status_error", ErrorCode(ErrNotFound))
}
