package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/mansoorceksport/cohab/internal/infrastructure/mailer"
	"github.com/mansoorceksport/cohab/internal/repository"
	"github.com/mansoorceksport/cohab/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStudentRepo struct {
	mu       sync.Mutex
	students map[string]domain.Student
}

func (r *memStudentRepo) Create(_ context.Context, s *domain.Student) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[s.ID]; ok {
		return domain.ErrConflict
	}
	r.students[s.ID] = *s
	return nil
}

func (r *memStudentRepo) GetByID(_ context.Context, id string) (*domain.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &s, nil
}

func (r *memStudentRepo) Exists(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.students[id]
	return ok, nil
}

func (r *memStudentRepo) List(_ context.Context) ([]*domain.Student, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*domain.Student, 0, len(r.students))
	for _, s := range r.students {
		s := s
		out = append(out, &s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *memStudentRepo) Upsert(_ context.Context, s *domain.Student) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.students[s.ID]
	next := *s
	if ok && next.LastPaymentDate == nil {
		next.LastPaymentDate = existing.LastPaymentDate
	}
	r.students[s.ID] = next
	return !ok, nil
}

func (r *memStudentRepo) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.students[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.students, id)
	return nil
}

func (r *memStudentRepo) RecordPayment(_ context.Context, id string, paidOn time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.students[id]
	if !ok {
		return domain.ErrNotFound
	}
	s.LastPaymentDate = &paidOn
	r.students[id] = s
	return nil
}

func day(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}

type testEnv struct {
	app     *fiber.App
	service *service.StudentService
	outbox  *mailer.LogSender
}

// newTestEnv mounts the student routes without auth. Today is 2024-02-28.
func newTestEnv(t *testing.T, withEmail bool) *testEnv {
	t.Helper()

	repo := &memStudentRepo{students: map[string]domain.Student{
		"ALU-0001": {ID: "ALU-0001", Name: "Ana", Email: "ana@example.com", Amount: 30000, DueDay: 30, LastPaymentDate: day(2024, 1, 30)},
		"ALU-0002": {ID: "ALU-0002", Name: "Bruno", DueDay: 30, LastPaymentDate: day(2023, 12, 30)},
		"ALU-0003": {ID: "ALU-0003", Name: "Carla", DueDay: 30},
	}}

	mr := miniredis.RunT(t)
	reports := repository.NewRedisCacheRepository(redis.NewClient(&redis.Options{Addr: mr.Addr()}))

	qr := service.NewQRService("https://cohab.example/")
	env := &testEnv{}
	var notifier *service.NotificationService
	if withEmail {
		env.outbox = mailer.NewLogSender()
		notifier = service.NewNotificationService(env.outbox, qr, nil)
	} else {
		notifier = service.NewNotificationService(nil, qr, nil)
	}

	clock := domain.FixedClock(time.Date(2024, 2, 28, 15, 0, 0, 0, time.UTC))
	env.service = service.NewStudentService(repo, clock, qr, notifier, reports)
	h := NewStudentHandler(env.service)

	app := fiber.New()
	students := app.Group("/v1/students")
	students.Get("/", h.List)
	students.Get("/summary", h.Summary)
	students.Get("/sweep", h.LatestSweep)
	students.Get("/export.csv", h.ExportCSV)
	students.Post("/", h.Create)
	students.Get("/:id/validate", h.Validate)
	students.Put("/:id", h.Upsert)
	students.Delete("/:id", h.Delete)
	students.Patch("/:id/payment", h.RecordPayment)
	students.Get("/:id/qr", h.QRCode)
	students.Post("/:id/send-qr", h.SendQR)
	env.app = app
	return env
}

func (e *testEnv) do(t *testing.T, method, path, body string) (*http.Response, []byte) {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, data
}

func decode(t *testing.T, data []byte) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &out), string(data))
	return out
}

func TestStudentHandler_Validate(t *testing.T) {
	env := newTestEnv(t, false)

	resp, data := env.do(t, http.MethodGet, "/v1/students/ALU-0001/validate", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.Contains(t, resp.Header.Get(fiber.HeaderCacheControl), "no-store")

	body := decode(t, data)
	assert.Equal(t, true, body["access"])
	assert.Equal(t, float64(1), body["days_remaining"])
	assert.Equal(t, "2024-02-29", body["next_due_date"])
	assert.Equal(t, "Suscripción activa. 1 días restantes.", body["message"])
	student := body["student"].(map[string]interface{})
	assert.Equal(t, "2024-01-30", student["last_payment_date"])
	assert.Nil(t, student["phone"])

	resp, data = env.do(t, http.MethodGet, "/v1/students/ALU-0002/validate", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body = decode(t, data)
	assert.Equal(t, false, body["access"])
	assert.Equal(t, float64(28), body["days_overdue_this_month"])
	assert.Equal(t, "Suscripción vencida. 28 días de atraso.", body["message"])

	resp, data = env.do(t, http.MethodGet, "/v1/students/ALU-0003/validate", "")
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "missing_payment_data", decode(t, data)["code"])

	resp, data = env.do(t, http.MethodGet, "/v1/students/ALU-9999/validate", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "not_found", decode(t, data)["code"])
}

func TestStudentHandler_List(t *testing.T) {
	env := newTestEnv(t, false)

	resp, data := env.do(t, http.MethodGet, "/v1/students", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	body := decode(t, data)
	assert.Nil(t, body["today"])

	rows := body["students"].([]interface{})
	require.Len(t, rows, 3)

	ana := rows[0].(map[string]interface{})
	assert.Equal(t, "Ana", ana["name"])
	assert.Equal(t, "due_soon", ana["category"])
	assert.Equal(t, "1 días restantes", ana["label"])
	assert.Nil(t, ana["debug"])

	bruno := rows[1].(map[string]interface{})
	assert.Equal(t, "overdue", bruno["category"])
	assert.Equal(t, "28 días de atraso", bruno["label"])

	carla := rows[2].(map[string]interface{})
	assert.Equal(t, "no_payment", carla["category"])
	assert.Equal(t, "Sin pago registrado", carla["label"])
	assert.Nil(t, carla["status"])
	assert.Equal(t, "missing_payment_data", carla["status_error"].(map[string]interface{})["code"])

	_, data = env.do(t, http.MethodGet, "/v1/students?debug=1", "")
	body = decode(t, data)
	assert.Equal(t, "2024-02-28", body["today"])
	debug := body["students"].([]interface{})[0].(map[string]interface{})["debug"].(map[string]interface{})
	assert.Equal(t, "2024-01-30", debug["payment_date"])
	assert.Equal(t, "2024-02-29", debug["next_due_date"])
	assert.Equal(t, float64(30), debug["due_day"])
}

func TestStudentHandler_CreateAndUpsert(t *testing.T) {
	env := newTestEnv(t, false)

	resp, data := env.do(t, http.MethodPost, "/v1/students", `{"name":"Diego","last_payment_date":"2024-02-30"}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid_payment_date", decode(t, data)["code"])

	resp, data = env.do(t, http.MethodPost, "/v1/students", `{"name":"Diego","due_day":0}`)
	assert.Equal(t, fiber.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, "invalid_due_day", decode(t, data)["code"])

	resp, data = env.do(t, http.MethodPost, "/v1/students", `{"name":"Diego","email":"not-an-email"}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decode(t, data)["code"])

	resp, data = env.do(t, http.MethodPost, "/v1/students", `{"name":"Diego","last_payment_date":"2024-02-10"}`)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode, string(data))
	created := decode(t, data)["student"].(map[string]interface{})
	assert.True(t, strings.HasPrefix(created["id"].(string), "ALU-"))
	assert.Equal(t, float64(domain.DefaultDueDay), created["due_day"])

	resp, _ = env.do(t, http.MethodPost, "/v1/students", `{"id":"ALU-0001","name":"Otra Ana"}`)
	assert.Equal(t, fiber.StatusConflict, resp.StatusCode)

	resp, data = env.do(t, http.MethodPut, "/v1/students/ALU-0001", `{"name":"Ana María","due_day":5}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	updated := decode(t, data)
	assert.Equal(t, false, updated["created"])
	student := updated["student"].(map[string]interface{})
	assert.Equal(t, "Ana María", student["name"])
	assert.Equal(t, "2024-01-30", student["last_payment_date"])

	resp, _ = env.do(t, http.MethodPut, "/v1/students/ALU-0100", `{"name":"Nuevo"}`)
	assert.Equal(t, fiber.StatusCreated, resp.StatusCode)
}

func TestStudentHandler_PaymentAndDelete(t *testing.T) {
	env := newTestEnv(t, false)

	resp, data := env.do(t, http.MethodPatch, "/v1/students/ALU-0002/payment", `{}`)
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "invalid_input", decode(t, data)["code"])

	resp, data = env.do(t, http.MethodPatch, "/v1/students/ALU-0002/payment", `{"payment_date":"2024-02-28"}`)
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "2024-02-28", decode(t, data)["student"].(map[string]interface{})["last_payment_date"])

	_, data = env.do(t, http.MethodGet, "/v1/students/ALU-0002/validate", "")
	assert.Equal(t, true, decode(t, data)["access"])

	resp, _ = env.do(t, http.MethodPatch, "/v1/students/ALU-9999/payment", `{"payment_date":"2024-02-28"}`)
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, _ = env.do(t, http.MethodDelete, "/v1/students/ALU-0003", "")
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	resp, _ = env.do(t, http.MethodDelete, "/v1/students/ALU-0003", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStudentHandler_SummaryAndSweep(t *testing.T) {
	env := newTestEnv(t, false)

	resp, data := env.do(t, http.MethodGet, "/v1/students/summary", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	summary := decode(t, data)
	assert.Equal(t, float64(3), summary["total"])
	assert.Equal(t, []interface{}{"ALU-0002"}, summary["overdue_ids"])

	resp, _ = env.do(t, http.MethodGet, "/v1/students/sweep", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	_, err := env.service.Sweep(context.Background())
	require.NoError(t, err)

	resp, data = env.do(t, http.MethodGet, "/v1/students/sweep", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "2024-02-28", decode(t, data)["today"])
}

func TestStudentHandler_ExportAndQR(t *testing.T) {
	env := newTestEnv(t, false)

	resp, data := env.do(t, http.MethodGet, "/v1/students/export.csv", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentType), "text/csv")
	assert.Contains(t, resp.Header.Get(fiber.HeaderContentDisposition), "alumnos_cohab_2024-02-28.csv")
	assert.True(t, strings.HasPrefix(string(data), "\ufeffNombre,"))

	resp, data = env.do(t, http.MethodGet, "/v1/students/ALU-0001/qr", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	assert.Equal(t, "image/png", resp.Header.Get(fiber.HeaderContentType))
	assert.True(t, strings.HasPrefix(string(data), "\x89PNG"))

	resp, _ = env.do(t, http.MethodGet, "/v1/students/ALU-9999/qr", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)
}

func TestStudentHandler_SendQR(t *testing.T) {
	disabled := newTestEnv(t, false)
	resp, data := disabled.do(t, http.MethodPost, "/v1/students/ALU-0001/send-qr", "")
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)
	assert.Equal(t, "email_disabled", decode(t, data)["code"])

	env := newTestEnv(t, true)
	resp, data = env.do(t, http.MethodPost, "/v1/students/ALU-0003/send-qr", "")
	assert.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "student_without_email", decode(t, data)["code"])

	resp, _ = env.do(t, http.MethodPost, "/v1/students/ALU-9999/send-qr", "")
	assert.Equal(t, fiber.StatusNotFound, resp.StatusCode)

	resp, data = env.do(t, http.MethodPost, "/v1/students/ALU-0001/send-qr", "")
	require.Equal(t, fiber.StatusOK, resp.StatusCode, string(data))
	assert.Equal(t, "QR enviado a ana@example.com", decode(t, data)["message"])

	sent := env.outbox.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].Email.To)
}

func TestHealthHandler(t *testing.T) {
	healthy := NewHealthHandler(map[string]HealthCheck{
		"mongodb": func(context.Context) error { return nil },
		"redis":   func(context.Context) error { return nil },
	})
	app := fiber.New()
	app.Get("/", healthy.Info)
	app.Get("/health", healthy.Health)

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	degraded := NewHealthHandler(map[string]HealthCheck{
		"mongodb": func(context.Context) error { return nil },
		"redis":   func(context.Context) error { return errors.New("connection refused") },
	})
	app = fiber.New()
	app.Get("/health", degraded.Health)

	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	assert.Equal(t, fiber.StatusServiceUnavailable, resp.StatusCode)

	data, _ := io.ReadAll(resp.Body)
	body := decode(t, data)
	assert.Equal(t, "degraded", body["status"])
	checks := body["checks"].(map[string]interface{})
	assert.Equal(t, "connected", checks["mongodb"])
	assert.Contains(t, checks["redis"], "connection refused")
}
