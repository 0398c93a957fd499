package domain

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Student represents a gym member ("alumno")
type Student struct {
	ID              string     `bson:"_id" json:"id"`
	Name            string     `bson:"name" json:"name"`
	Email           string     `bson:"email,omitempty" json:"email,omitempty"`
	Phone           string     `bson:"phone,omitempty" json:"phone,omitempty"`
	RUT             string     `bson:"rut,omitempty" json:"rut,omitempty"`
	Amount          float64    `bson:"amount" json:"amount"`
	LastPaymentDate *time.Time `bson:"last_payment_date,omitempty" json:"last_payment_date"`
	DueDay          int        `bson:"due_day" json:"due_day"`
	CreatedAt       time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt       time.Time  `bson:"updated_at" json:"updated_at"`
}

// SubscriptionStatus evaluates the student's subscription as of today.
// Returns ErrMissingPaymentData when no payment was ever recorded.
func (s *Student) SubscriptionStatus(today time.Time) (*SubscriptionStatus, error) {
	if s.LastPaymentDate == nil || s.LastPaymentDate.IsZero() {
		return nil, ErrMissingPaymentData
	}
	return ComputeSubscriptionStatus(*s.LastPaymentDate, s.DueDay, today)
}

// StudentRepository defines operations for managing students
type StudentRepository interface {
	Create(ctx context.Context, student *Student) error
	GetByID(ctx context.Context, id string) (*Student, error)
	Exists(ctx context.Context, id string) (bool, error)
	List(ctx context.Context) ([]*Student, error)
	// Upsert replaces the student with the same ID or inserts it. Returns true when inserted.
	Upsert(ctx context.Context, student *Student) (bool, error)
	Delete(ctx context.Context, id string) error
	RecordPayment(ctx context.Context, id string, paidOn time.Time) error
}

var rutPattern = regexp.MustCompile(`^(\d{1,8})-?([0-9K])$`)

// NormalizeRUT formats a Chilean RUT as NNNNNNNN-D. Dots and spaces are
// dropped and the check digit is upper-cased. Returns "" when raw is not a RUT.
func NormalizeRUT(raw string) string {
	cleaned := strings.ToUpper(strings.TrimSpace(raw))
	cleaned = strings.NewReplacer(".", "", " ", "").Replace(cleaned)
	m := rutPattern.FindStringSubmatch(cleaned)
	if m == nil {
		return ""
	}
	return m[1] + "-" + m[2]
}

// StudentInput carries editable student fields as received from clients
type StudentInput struct {
	ID              string   `json:"id"`
	Name            string   `json:"name" validate:"required,max=120"`
	Email           string   `json:"email" validate:"omitempty,email"`
	Phone           string   `json:"phone" validate:"omitempty,max=32"`
	RUT             string   `json:"rut"`
	Amount          *float64 `json:"amount"`
	LastPaymentDate string   `json:"last_payment_date"`
	DueDay          *int     `json:"due_day"`
}

// ToStudent validates the input and builds a Student. A missing due day
// becomes DefaultDueDay; an out-of-range one is rejected.
func (in StudentInput) ToStudent() (*Student, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	student := &Student{
		ID:     strings.TrimSpace(in.ID),
		Name:   name,
		Email:  strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:  strings.TrimSpace(in.Phone),
		DueDay: DefaultDueDay,
	}
	if in.RUT != "" {
		rut := NormalizeRUT(in.RUT)
		if rut == "" {
			return nil, fmt.Errorf("%w: rut %q is not valid", ErrInvalidInput, in.RUT)
		}
		student.RUT = rut
	}
	if in.Amount != nil {
		if *in.Amount < 0 {
			return nil, fmt.Errorf("%w: amount cannot be negative", ErrInvalidInput)
		}
		student.Amount = *in.Amount
	}
	if in.DueDay != nil {
		day, err := ParseDueDay(*in.DueDay)
		if err != nil {
			return nil, err
		}
		student.DueDay = day
	}
	if strings.TrimSpace(in.LastPaymentDate) != "" {
		paid, err := ParsePaymentDate(in.LastPaymentDate)
		if err != nil {
			return nil, err
		}
		student.LastPaymentDate = &paid
	}
	return student, nil
}
