package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/oklog/ulid/v2"
)

const (
	studentIDPrefix   = "ALU-"
	studentIDAttempts = 20
	csvDateLayout     = "02/01/2006"
	csvPlaceholder    = "---"
)

// SweepReportStore keeps the most recent scheduled sweep
type SweepReportStore interface {
	SaveSweepReport(ctx context.Context, summary *domain.RosterSummary) error
	GetSweepReport(ctx context.Context) (*domain.RosterSummary, error)
}

// StudentEvaluation is a student together with its status as of Today
type StudentEvaluation struct {
	Student *domain.Student
	Status  *domain.SubscriptionStatus
	Today   time.Time
}

// StudentService manages students. Every status it reports comes from
// domain.ComputeSubscriptionStatus evaluated against the service clock.
type StudentService struct {
	repo     domain.StudentRepository
	clock    *domain.Clock
	qr       *QRService
	notifier *NotificationService
	reports  SweepReportStore
}

// NewStudentService creates a new student service
func NewStudentService(
	repo domain.StudentRepository,
	clock *domain.Clock,
	qr *QRService,
	notifier *NotificationService,
	reports SweepReportStore,
) *StudentService {
	return &StudentService{
		repo:     repo,
		clock:    clock,
		qr:       qr,
		notifier: notifier,
		reports:  reports,
	}
}

// Today returns the current calendar day used for evaluations
func (s *StudentService) Today() time.Time {
	return s.clock.Today()
}

// Evaluate computes a student's subscription status. It fails with
// domain.ErrNotFound for unknown students and with the calculator's errors
// when the stored payment data cannot be evaluated.
func (s *StudentService) Evaluate(ctx context.Context, id string) (*StudentEvaluation, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: student id is required", domain.ErrInvalidInput)
	}

	student, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	today := s.clock.Today()
	status, err := student.SubscriptionStatus(today)
	if err != nil {
		return nil, fmt.Errorf("student %s: %w", id, err)
	}
	return &StudentEvaluation{Student: student, Status: status, Today: today}, nil
}

// Roster evaluates every student, sorted by name. Per-student failures are
// reported inside the entries.
func (s *StudentService) Roster(ctx context.Context) ([]domain.RosterEntry, time.Time, error) {
	students, err := s.repo.List(ctx)
	if err != nil {
		return nil, time.Time{}, err
	}

	today := s.clock.Today()
	entries := make([]domain.RosterEntry, 0, len(students))
	for _, student := range students {
		entries = append(entries, domain.BuildRosterEntry(student, today))
	}
	return entries, today, nil
}

// Summary counts students per status category as of today
func (s *StudentService) Summary(ctx context.Context) (*domain.RosterSummary, error) {
	entries, today, err := s.Roster(ctx)
	if err != nil {
		return nil, err
	}
	return domain.Summarize(entries, s.clock.Now(), today), nil
}

// Sweep evaluates all students and stores the resulting summary. Payment
// data is only read.
func (s *StudentService) Sweep(ctx context.Context) (*domain.RosterSummary, error) {
	summary, err := s.Summary(ctx)
	if err != nil {
		return nil, fmt.Errorf("sweep failed: %w", err)
	}
	if err := s.reports.SaveSweepReport(ctx, summary); err != nil {
		return nil, fmt.Errorf("failed to store sweep report: %w", err)
	}

	log.Printf("✓ Status sweep %s: %d students, %d overdue, %d due soon, %d without payment",
		summary.Today, summary.Total,
		summary.Counts[domain.CategoryOverdue],
		summary.Counts[domain.CategoryDueSoon],
		summary.Counts[domain.CategoryNoPayment],
	)
	return summary, nil
}

// LatestSweep returns the last stored sweep, or domain.ErrNotFound
func (s *StudentService) LatestSweep(ctx context.Context) (*domain.RosterSummary, error) {
	return s.reports.GetSweepReport(ctx)
}

// Get returns a student record
func (s *StudentService) Get(ctx context.Context, id string) (*domain.Student, error) {
	return s.repo.GetByID(ctx, strings.TrimSpace(id))
}

// Create validates and stores a new student, generating an ID when none is given
func (s *StudentService) Create(ctx context.Context, in domain.StudentInput) (*domain.Student, error) {
	student, err := in.ToStudent()
	if err != nil {
		return nil, err
	}

	if student.ID == "" {
		student.ID, err = s.generateID(ctx)
		if err != nil {
			return nil, err
		}
	} else {
		exists, err := s.repo.Exists(ctx, student.ID)
		if err != nil {
			return nil, err
		}
		if exists {
			return nil, fmt.Errorf("student %s: %w", student.ID, domain.ErrConflict)
		}
	}

	if err := s.repo.Create(ctx, student); err != nil {
		return nil, err
	}

	log.Printf("✓ Student created: %s (%s)", student.ID, student.Name)
	s.sendWelcome(ctx, student)
	return student, nil
}

// Upsert replaces or inserts the student with the given ID. Reports whether
// the student was inserted.
func (s *StudentService) Upsert(ctx context.Context, id string, in domain.StudentInput) (*domain.Student, bool, error) {
	in.ID = strings.TrimSpace(id)
	if in.ID == "" {
		return nil, false, fmt.Errorf("%w: student id is required", domain.ErrInvalidInput)
	}
	student, err := in.ToStudent()
	if err != nil {
		return nil, false, err
	}

	inserted, err := s.repo.Upsert(ctx, student)
	if err != nil {
		return nil, false, err
	}

	stored, err := s.repo.GetByID(ctx, student.ID)
	if err != nil {
		return nil, false, err
	}
	s.sendWelcome(ctx, stored)
	return stored, inserted, nil
}

// Delete removes a student
func (s *StudentService) Delete(ctx context.Context, id string) error {
	return s.repo.Delete(ctx, strings.TrimSpace(id))
}

// RecordPayment stores a new last payment date and returns the updated student
func (s *StudentService) RecordPayment(ctx context.Context, id string, rawDate string) (*domain.Student, error) {
	paidOn, err := domain.ParsePaymentDate(rawDate)
	if err != nil {
		return nil, err
	}
	id = strings.TrimSpace(id)
	if err := s.repo.RecordPayment(ctx, id, paidOn); err != nil {
		return nil, err
	}
	log.Printf("✓ Payment recorded: %s on %s", id, paidOn.Format(domain.DateLayout))
	return s.repo.GetByID(ctx, id)
}

// QRCode returns the PNG QR code of a student's status link
func (s *StudentService) QRCode(ctx context.Context, id string) ([]byte, error) {
	student, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	return s.qr.StudentQR(student)
}

// SendQR emails a student's QR code
func (s *StudentService) SendQR(ctx context.Context, id string) (*domain.Student, error) {
	if !s.notifier.Enabled() {
		return nil, domain.ErrEmailDisabled
	}
	student, err := s.repo.GetByID(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, err
	}
	if err := s.notifier.SendStudentQR(ctx, student); err != nil {
		return nil, err
	}
	return student, nil
}

// ExportCSV renders the roster as a UTF-8 CSV with BOM and returns it with
// its download file name
func (s *StudentService) ExportCSV(ctx context.Context) ([]byte, string, error) {
	entries, today, err := s.Roster(ctx)
	if err != nil {
		return nil, "", err
	}

	var buf bytes.Buffer
	buf.WriteString("\ufeff") // UTF-8 BOM
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"Nombre", "Email", "Teléfono", "Fecha Último Pago", "Día de Pago", "Monto", "Estado", "Próximo Vencimiento", "ID"}); err != nil {
		return nil, "", fmt.Errorf("failed to write csv header: %w", err)
	}
	for _, e := range entries {
		st := e.Student
		paid, next := csvPlaceholder, csvPlaceholder
		if st.LastPaymentDate != nil {
			paid = st.LastPaymentDate.UTC().Format(csvDateLayout)
		}
		if e.Status != nil {
			next = e.Status.NextDueDate.Format(csvDateLayout)
		}
		dueDay := csvPlaceholder
		if st.DueDay > 0 {
			dueDay = strconv.Itoa(st.DueDay)
		}
		amount := csvPlaceholder
		if st.Amount > 0 {
			amount = fmt.Sprintf("$%.2f", st.Amount)
		}
		if err := w.Write([]string{st.Name, st.Email, st.Phone, paid, dueDay, amount, e.Label, next, st.ID}); err != nil {
			return nil, "", fmt.Errorf("failed to write csv row for %s: %w", st.ID, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, "", fmt.Errorf("failed to write csv: %w", err)
	}

	return buf.Bytes(), "alumnos_cohab_" + today.Format(domain.DateLayout) + ".csv", nil
}

// generateID picks a free ALU-NNNN code, falling back to a ULID suffix
// when the random space looks crowded
func (s *StudentService) generateID(ctx context.Context) (string, error) {
	for i := 0; i < studentIDAttempts; i++ {
		id := fmt.Sprintf("%s%04d", studentIDPrefix, rand.IntN(10000))
		exists, err := s.repo.Exists(ctx, id)
		if err != nil {
			return "", err
		}
		if !exists {
			return id, nil
		}
	}
	u := ulid.Make().String()
	return studentIDPrefix + u[len(u)-8:], nil
}

func (s *StudentService) sendWelcome(ctx context.Context, student *domain.Student) {
	if !s.notifier.Enabled() || student.Email == "" {
		return
	}
	if err := s.notifier.SendStudentQR(ctx, student); err != nil {
		log.Printf("⚠️  Failed to send QR email to %s: %v", student.ID, err)
		return
	}
	log.Printf("📧 QR email sent to %s", student.Email)
}
