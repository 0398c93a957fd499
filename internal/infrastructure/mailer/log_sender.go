package mailer

import (
	"context"
	"log"
	"sync"

	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/oklog/ulid/v2"
)

// SentEmail is a message captured by LogSender
type SentEmail struct {
	ID    string
	Email domain.Email
}

// LogSender logs outgoing email instead of delivering it. Used in
// development and tests; it keeps every message it was given.
type LogSender struct {
	mu   sync.Mutex
	sent []SentEmail
}

// NewLogSender creates a sender that only logs
func NewLogSender() *LogSender {
	return &LogSender{}
}

// SendEmail implements domain.EmailSender
func (s *LogSender) SendEmail(_ context.Context, email domain.Email) error {
	id := ulid.Make().String()
	log.Printf("📧 [mail %s] to=%s subject=%q attachments=%d", id, email.To, email.Subject, len(email.Attachments))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, SentEmail{ID: id, Email: email})
	return nil
}

// Sent returns a copy of the captured messages
func (s *LogSender) Sent() []SentEmail {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]SentEmail, len(s.sent))
	copy(out, s.sent)
	return out
}
