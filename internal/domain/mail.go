package domain

import "context"

// Attachment is a file sent along with an email
type Attachment struct {
	Name        string
	ContentType string
	Content     []byte
}

// Email is a single outgoing message
type Email struct {
	To          string
	Subject     string
	Tag         string
	HTMLBody    string
	Attachments []Attachment
}

// EmailSender delivers transactional email
type EmailSender interface {
	SendEmail(ctx context.Context, email Email) error
}
