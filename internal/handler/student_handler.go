package handler

import (
	"fmt"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/mansoorceksport/cohab/internal/service"
)

const noStore = "no-store, no-cache, must-revalidate, max-age=0"

// StudentHandler handles student management and the public status check
type StudentHandler struct {
	studentService *service.StudentService
}

// NewStudentHandler creates a new student handler
func NewStudentHandler(studentService *service.StudentService) *StudentHandler {
	return &StudentHandler{studentService: studentService}
}

// StudentView is a student as returned by the admin API
type StudentView struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email,omitempty"`
	Phone           string    `json:"phone,omitempty"`
	RUT             string    `json:"rut,omitempty"`
	Amount          float64   `json:"amount"`
	LastPaymentDate *string   `json:"last_payment_date"`
	DueDay          int       `json:"due_day"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// PublicStudentView is the subset of a student shown on the public status page
type PublicStudentView struct {
	ID              string  `json:"id"`
	Name            string  `json:"name"`
	Email           *string `json:"email"`
	Phone           *string `json:"phone"`
	Amount          float64 `json:"amount"`
	LastPaymentDate *string `json:"last_payment_date"`
	RUT             *string `json:"rut"`
}

// StatusView is a computed subscription status with its next due date
type StatusView struct {
	Access               bool   `json:"access"`
	State                string `json:"state"`
	DaysRemaining        int    `json:"days_remaining"`
	DaysOverdueThisMonth int    `json:"days_overdue_this_month"`
	NextDueDate          string `json:"next_due_date"`
	Message              string `json:"message"`
}

// RosterRow is one line of the admin student list
type RosterRow struct {
	StudentView
	Status      *StatusView         `json:"status"`
	StatusError *domain.StatusError `json:"status_error,omitempty"`
	Category    string              `json:"category"`
	Label       string              `json:"label"`
	Debug       *RosterDebug        `json:"debug,omitempty"`
}

// RosterDebug exposes the raw calculator inputs and outputs of a row
type RosterDebug struct {
	PaymentDate   *string `json:"payment_date"`
	NextDueDate   *string `json:"next_due_date"`
	DaysRemaining *int    `json:"days_remaining"`
	DueDay        int     `json:"due_day"`
	Today         string  `json:"today"`
	Error         string  `json:"error,omitempty"`
}

type paymentRequest struct {
	PaymentDate string `json:"payment_date" validate:"required"`
}

// Validate handles GET /v1/students/:id/validate (public)
func (h *StudentHandler) Validate(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, noStore)
	c.Set("Pragma", "no-cache")

	eval, err := h.studentService.Evaluate(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}

	st := eval.Student
	return c.JSON(fiber.Map{
		"access":                  eval.Status.Access,
		"state":                   eval.Status.State,
		"days_remaining":          eval.Status.DaysRemaining,
		"days_overdue_this_month": eval.Status.DaysOverdueThisMonth,
		"next_due_date":           eval.Status.NextDueDate.Format(domain.DateLayout),
		"message":                 eval.Status.Message,
		"today":                   eval.Today.Format(domain.DateLayout),
		"student": PublicStudentView{
			ID:              st.ID,
			Name:            st.Name,
			Email:           optional(st.Email),
			Phone:           optional(st.Phone),
			Amount:          st.Amount,
			LastPaymentDate: formatDate(st.LastPaymentDate),
			RUT:             optional(st.RUT),
		},
	})
}

// List handles GET /v1/students
// Query params: debug=1 adds calculator details to every row
func (h *StudentHandler) List(c *fiber.Ctx) error {
	c.Set(fiber.HeaderCacheControl, noStore)
	c.Set("Pragma", "no-cache")
	debug := c.Query("debug") == "1" || c.Query("debug") == "true"

	entries, today, err := h.studentService.Roster(c.UserContext())
	if err != nil {
		return handleError(c, err)
	}

	rows := make([]RosterRow, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, newRosterRow(e, today, debug))
	}

	response := fiber.Map{"students": rows, "total": len(rows)}
	if debug {
		response["today"] = today.Format(domain.DateLayout)
	}
	return c.JSON(response)
}

// Summary handles GET /v1/students/summary
func (h *StudentHandler) Summary(c *fiber.Ctx) error {
	summary, err := h.studentService.Summary(c.UserContext())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(summary)
}

// LatestSweep handles GET /v1/students/sweep
func (h *StudentHandler) LatestSweep(c *fiber.Ctx) error {
	summary, err := h.studentService.LatestSweep(c.UserContext())
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(summary)
}

// ExportCSV handles GET /v1/students/export.csv
func (h *StudentHandler) ExportCSV(c *fiber.Ctx) error {
	data, filename, err := h.studentService.ExportCSV(c.UserContext())
	if err != nil {
		return handleError(c, err)
	}
	c.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Set(fiber.HeaderCacheControl, noStore)
	return c.Send(data)
}

// Create handles POST /v1/students
func (h *StudentHandler) Create(c *fiber.Ctx) error {
	var in domain.StudentInput
	if err := parseAndValidate(c, &in); err != nil {
		return handleError(c, err)
	}

	student, err := h.studentService.Create(c.UserContext(), in)
	if err != nil {
		return handleError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"student": newStudentView(student)})
}

// Upsert handles PUT /v1/students/:id
func (h *StudentHandler) Upsert(c *fiber.Ctx) error {
	var in domain.StudentInput
	if err := parseAndValidate(c, &in); err != nil {
		return handleError(c, err)
	}

	student, inserted, err := h.studentService.Upsert(c.UserContext(), c.Params("id"), in)
	if err != nil {
		return handleError(c, err)
	}

	status := fiber.StatusOK
	if inserted {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(fiber.Map{"student": newStudentView(student), "created": inserted})
}

// Delete handles DELETE /v1/students/:id
func (h *StudentHandler) Delete(c *fiber.Ctx) error {
	if err := h.studentService.Delete(c.UserContext(), c.Params("id")); err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"message": "Alumno eliminado"})
}

// RecordPayment handles PATCH /v1/students/:id/payment
func (h *StudentHandler) RecordPayment(c *fiber.Ctx) error {
	var req paymentRequest
	if err := parseAndValidate(c, &req); err != nil {
		return handleError(c, err)
	}

	student, err := h.studentService.RecordPayment(c.UserContext(), c.Params("id"), req.PaymentDate)
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{"student": newStudentView(student)})
}

// QRCode handles GET /v1/students/:id/qr
func (h *StudentHandler) QRCode(c *fiber.Ctx) error {
	png, err := h.studentService.QRCode(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	c.Set(fiber.HeaderContentType, domain.ContentTypePNG)
	return c.Send(png)
}

// SendQR handles POST /v1/students/:id/send-qr
func (h *StudentHandler) SendQR(c *fiber.Ctx) error {
	student, err := h.studentService.SendQR(c.UserContext(), c.Params("id"))
	if err != nil {
		return handleError(c, err)
	}
	return c.JSON(fiber.Map{
		"success": true,
		"message": "QR enviado a " + student.Email,
	})
}

func newStudentView(s *domain.Student) StudentView {
	return StudentView{
		ID:              s.ID,
		Name:            s.Name,
		Email:           s.Email,
		Phone:           s.Phone,
		RUT:             s.RUT,
		Amount:          s.Amount,
		LastPaymentDate: formatDate(s.LastPaymentDate),
		DueDay:          s.DueDay,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

func newStatusView(s *domain.SubscriptionStatus) *StatusView {
	if s == nil {
		return nil
	}
	return &StatusView{
		Access:               s.Access,
		State:                string(s.State),
		DaysRemaining:        s.DaysRemaining,
		DaysOverdueThisMonth: s.DaysOverdueThisMonth,
		NextDueDate:          s.NextDueDate.Format(domain.DateLayout),
		Message:              s.Message,
	}
}

func newRosterRow(e domain.RosterEntry, today time.Time, debug bool) RosterRow {
	row := RosterRow{
		StudentView: newStudentView(e.Student),
		Status:      newStatusView(e.Status),
		StatusError: e.Error,
		Category:    string(e.Category),
		Label:       e.Label,
	}
	if !debug {
		return row
	}

	row.Debug = &RosterDebug{
		PaymentDate: formatDate(e.Student.LastPaymentDate),
		DueDay:      e.Student.DueDay,
		Today:       today.Format(domain.DateLayout),
	}
	if e.Status != nil {
		next := e.Status.NextDueDate.Format(domain.DateLayout)
		days := e.Status.DaysRemaining
		row.Debug.NextDueDate = &next
		row.Debug.DaysRemaining = &days
	}
	if e.Error != nil {
		row.Debug.Error = e.Error.Message
	}
	return row
}

func formatDate(t *time.Time) *string {
	if t == nil || t.IsZero() {
		return nil
	}
	s := t.UTC().Format(domain.DateLayout)
	return &s
}

func optional(s string) *string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return &s
}
