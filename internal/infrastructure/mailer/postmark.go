package mailer

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/mansoorceksport/cohab/internal/config"
	"github.com/mansoorceksport/cohab/internal/domain"
	"github.com/mrz1836/postmark"
)

// ErrFailedToSendEmail wraps every delivery failure
var ErrFailedToSendEmail = errors.New("failed to send email")

// PostmarkSender delivers email through Postmark's transactional API
type PostmarkSender struct {
	client  *postmark.Client
	from    string
	replyTo string
}

// NewPostmarkSender creates a Postmark-backed sender
func NewPostmarkSender(cfg config.EmailConfig) (*PostmarkSender, error) {
	if cfg.ServerToken == "" {
		return nil, fmt.Errorf("POSTMARK_SERVER_TOKEN is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("EMAIL_FROM is required")
	}
	return &PostmarkSender{
		client:  postmark.NewClient(cfg.ServerToken, cfg.AccountToken),
		from:    cfg.From,
		replyTo: cfg.ReplyTo,
	}, nil
}

// SendEmail implements domain.EmailSender
func (s *PostmarkSender) SendEmail(ctx context.Context, email domain.Email) error {
	if email.To == "" {
		return fmt.Errorf("%w: recipient is required", ErrFailedToSendEmail)
	}

	attachments := make([]postmark.Attachment, 0, len(email.Attachments))
	for _, a := range email.Attachments {
		attachments = append(attachments, postmark.Attachment{
			Name:        a.Name,
			Content:     base64.StdEncoding.EncodeToString(a.Content),
			ContentType: a.ContentType,
		})
	}

	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:        s.from,
		ReplyTo:     s.replyTo,
		To:          email.To,
		Subject:     email.Subject,
		Tag:         email.Tag,
		HTMLBody:    email.HTMLBody,
		TrackOpens:  true,
		Attachments: attachments,
	})
	if err != nil {
		return errors.Join(ErrFailedToSendEmail, err)
	}
	if resp.ErrorCode > 0 {
		return errors.Join(
			ErrFailedToSendEmail,
			fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message),
		)
	}
	return nil
}
