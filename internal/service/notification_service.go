package service

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"html/template"
	"log"
	"strings"

	"github.com/mansoorceksport/cohab/internal/domain"
)

var studentQRTemplate = template.Must(template.New("student_qr").Parse(`<!DOCTYPE html>
<html lang="es">
<head><meta charset="UTF-8"><title>Tu acceso a COHAB</title></head>
<body style="margin:0;padding:20px 0;font-family:Arial,sans-serif;background-color:#0d0d0d;">
  <table role="presentation" width="600" cellpadding="0" cellspacing="0" align="center" style="max-width:600px;background-color:#1a1a1a;border-radius:12px;">
    <tr><td style="background-color:#dc2626;padding:30px 40px;text-align:center;">
      <h1 style="margin:0;color:#ffffff;font-size:28px;">COHAB BJJ</h1>
      <p style="margin:8px 0 0 0;color:#ffffff;font-size:14px;">Tu acceso personal</p>
    </td></tr>
    <tr><td style="padding:40px;color:#e5e5e5;">
      <h2 style="margin:0 0 20px 0;color:#dc2626;">Hola {{.Name}},</h2>
      <p>Te enviamos tu código QR personal para consultar el estado de tus pagos en cualquier momento.</p>
      <div style="background-color:#ffffff;border-radius:12px;padding:30px;text-align:center;">
        <img src="{{.QRSrc}}" alt="QR {{.Name}}" style="max-width:280px;width:100%;" />
        <p style="color:#666;font-family:monospace;">ID: {{.ID}}</p>
      </div>
      <table role="presentation" width="100%" style="margin:20px 0;color:#ffffff;">
        <tr><td>Nombre</td><td align="right">{{.Name}}</td></tr>
        <tr><td>Último pago</td><td align="right">{{.LastPayment}}</td></tr>
        <tr><td>Monto mensual</td><td align="right">{{.Amount}}</td></tr>
        <tr><td>ID de alumno</td><td align="right">{{.ID}}</td></tr>
      </table>
      <p style="text-align:center;"><a href="{{.Link}}" style="background-color:#dc2626;color:#ffffff;padding:16px 32px;border-radius:8px;text-decoration:none;">Ver mi estado de pago</a></p>
      <p style="font-size:12px;color:#666;text-align:center;">O copia este enlace: <a href="{{.Link}}" style="color:#dc2626;">{{.Link}}</a></p>
    </td></tr>
    <tr><td style="padding:30px 40px;text-align:center;color:#666;font-size:12px;">Academia COHAB BJJ</td></tr>
  </table>
</body>
</html>`))

type studentQRView struct {
	Name        string
	ID          string
	Link        string
	QRSrc       template.URL
	LastPayment string
	Amount      string
}

// NotificationService emails students their personal QR code
type NotificationService struct {
	sender domain.EmailSender
	qr     *QRService
	files  domain.FileRepository
}

// NewNotificationService creates a notification service. A nil sender
// disables delivery; a nil files repository keeps the QR inline.
func NewNotificationService(sender domain.EmailSender, qr *QRService, files domain.FileRepository) *NotificationService {
	return &NotificationService{
		sender: sender,
		qr:     qr,
		files:  files,
	}
}

// Enabled reports whether email delivery is configured
func (s *NotificationService) Enabled() bool {
	return s != nil && s.sender != nil
}

// SendStudentQR emails the student's status link and QR image
func (s *NotificationService) SendStudentQR(ctx context.Context, student *domain.Student) error {
	if !s.Enabled() {
		return domain.ErrEmailDisabled
	}
	if strings.TrimSpace(student.Email) == "" {
		return domain.ErrStudentWithoutEmail
	}

	link, err := s.qr.StudentLink(student)
	if err != nil {
		return err
	}
	png, err := s.qr.StudentQR(student)
	if err != nil {
		return err
	}

	qrSrc := template.URL("data:image/png;base64," + base64.StdEncoding.EncodeToString(png))
	if s.files != nil {
		hosted, err := s.files.Upload(ctx, png, domain.QRObjectKey(student.ID), domain.ContentTypePNG)
		if err != nil {
			log.Printf("QR upload failed for %s, embedding inline: %v", student.ID, err)
		} else {
			qrSrc = template.URL(hosted)
		}
	}

	view := studentQRView{
		Name:        student.Name,
		ID:          student.ID,
		Link:        link,
		QRSrc:       qrSrc,
		LastPayment: "No registrada",
		Amount:      fmt.Sprintf("$%.2f", student.Amount),
	}
	if student.LastPaymentDate != nil {
		view.LastPayment = student.LastPaymentDate.UTC().Format("02-01-2006")
	}

	var body bytes.Buffer
	if err := studentQRTemplate.Execute(&body, view); err != nil {
		return fmt.Errorf("failed to render email: %w", err)
	}

	return s.sender.SendEmail(ctx, domain.Email{
		To:       student.Email,
		Subject:  "Tu acceso a COHAB - " + student.Name,
		Tag:      "student-qr",
		HTMLBody: body.String(),
		Attachments: []domain.Attachment{{
			Name:        "qr-" + student.ID + ".png",
			ContentType: domain.ContentTypePNG,
			Content:     png,
		}},
	})
}
