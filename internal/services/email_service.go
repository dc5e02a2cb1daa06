package services

import (
	"context"
	"fmt"
	"html"
	"strings"

	"github.com/piwcasokwa/backend/internal/models"
	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// MailSender is the interface that wraps SMTP delivery. *mail.Dialer implements it.
type MailSender interface {
	DialAndSend(m ...*mail.Message) error
}

type emailService struct {
	sender MailSender
	from   string
	inbox  string
	logger *zap.Logger
}

// NewEmailService creates the contact form service.
// A nil sender means SMTP is not configured and every send fails with models.ErrMailNotConfigured.
func NewEmailService(sender MailSender, from, inbox string, logger *zap.Logger) *emailService {
	return &emailService{
		sender: sender,
		from:   from,
		inbox:  inbox,
		logger: logger,
	}
}

// SendContactMessage delivers a contact form submission to the association inbox
func (s *emailService) SendContactMessage(ctx context.Context, msg models.ContactMessage) error {
	if s.sender == nil {
		s.logger.Error("email transport is not configured")
		return models.ErrMailNotConfigured
	}

	msg.Name = strings.TrimSpace(msg.Name)
	msg.Email = strings.TrimSpace(msg.Email)
	msg.Subject = strings.TrimSpace(msg.Subject)
	msg.Phone = strings.TrimSpace(msg.Phone)
	if msg.Name == "" || msg.Email == "" || strings.TrimSpace(msg.Message) == "" {
		return models.ErrMissingContactFields
	}
	if msg.Subject == "" {
		msg.Subject = models.DefaultContactSubject
	}

	m := s.buildMessage(msg)
	if err := s.sender.DialAndSend(m); err != nil {
		s.logger.Error("failed to send contact email", zap.Error(err), zap.String("replyTo", msg.Email))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("contact email sent", zap.String("subject", msg.Subject))
	return nil
}

func (s *emailService) buildMessage(msg models.ContactMessage) *mail.Message {
	m := mail.NewMessage()
	m.SetAddressHeader("From", s.from, msg.Name)
	m.SetHeader("Reply-To", m.FormatAddress(msg.Email, msg.Name))
	m.SetHeader("To", s.inbox)
	m.SetHeader("Subject", "New Contact Form Submission: "+msg.Subject)
	m.SetBody("text/html", contactBody(msg))
	return m
}

func contactBody(msg models.ContactMessage) string {
	phone := msg.Phone
	if phone == "" {
		phone = "Not provided"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<p><strong>Name:</strong> %s</p>\n", html.EscapeString(msg.Name))
	fmt.Fprintf(&b, "<p><strong>Email:</strong> %s</p>\n", html.EscapeString(msg.Email))
	fmt.Fprintf(&b, "<p><strong>Phone:</strong> %s</p>\n", html.EscapeString(phone))
	fmt.Fprintf(&b, "<p><strong>Subject:</strong> %s</p>\n", html.EscapeString(msg.Subject))
	b.WriteString("<p><strong>Message:</strong></p>\n")
	fmt.Fprintf(&b, "<p>%s</p>\n", strings.ReplaceAll(html.EscapeString(msg.Message), "\n", "<br>"))
	return b.String()
}
