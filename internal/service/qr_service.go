package service

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/mansoorceksport/cohab/internal/domain"
	skipqrcode "github.com/skip2/go-qrcode"
)

// QRSize is the edge length in pixels of generated QR images
const QRSize = 400

// QRService builds the public status link of a student and its QR image
type QRService struct {
	baseURL string
}

// NewQRService creates a QR service. baseURL is the public frontend root.
func NewQRService(baseURL string) *QRService {
	base := strings.TrimSpace(baseURL)
	base = strings.TrimSuffix(base, "/") + "/"
	return &QRService{baseURL: base}
}

// StudentLink returns <base>alumno.html?id=<ID>[&rut=<RUT>]
func (s *QRService) StudentLink(student *domain.Student) (string, error) {
	if student == nil || strings.TrimSpace(student.ID) == "" {
		return "", fmt.Errorf("%w: student id is required for a status link", domain.ErrInvalidInput)
	}
	link := s.baseURL + "alumno.html?id=" + url.QueryEscape(student.ID)
	if rut := domain.NormalizeRUT(student.RUT); rut != "" {
		link += "&rut=" + url.QueryEscape(rut)
	}
	return link, nil
}

// StudentQR renders the student's status link as a PNG
func (s *QRService) StudentQR(student *domain.Student) ([]byte, error) {
	link, err := s.StudentLink(student)
	if err != nil {
		return nil, err
	}
	png, err := skipqrcode.Encode(link, skipqrcode.Medium, QRSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate QR code: %w", err)
	}
	return png, nil
}
