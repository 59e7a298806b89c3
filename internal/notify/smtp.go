package notify

import (
	"context"

	"github.com/google/uuid"

	"github.com/charlesng35/lifeadmin/pkg/mail"
)

// SMTPEmailSender delivers email through an SMTP mailer.
type SMTPEmailSender struct {
	mailer mail.Mailer
	from   string
	newID  func() string
}

// NewSMTPEmailSender wraps mailer. from may be empty when the mailer has a default sender.
func NewSMTPEmailSender(mailer mail.Mailer, from string) *SMTPEmailSender {
	return &SMTPEmailSender{
		mailer: mailer,
		from:   from,
		newID:  uuid.NewString,
	}
}

// SendEmail renders msg and hands it to the mailer.
func (s *SMTPEmailSender) SendEmail(ctx context.Context, to string, msg Message, branding Branding) *Result {
	rendered, err := RenderEmail(msg, branding)
	if err != nil {
		return Failed(err)
	}

	messageID := s.newID() + "@lifeadmin"
	if err := s.mailer.Send(ctx, mail.Message{
		From:      s.from,
		To:        []string{to},
		Subject:   rendered.Subject,
		Body:      rendered.Text,
		HTMLBody:  rendered.HTML,
		MessageID: messageID,
	}); err != nil {
		return Failed(err)
	}
	return Delivered(messageID)
}
