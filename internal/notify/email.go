package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

const defaultFromName = "GoBarber"

// EmailSender sends one email. SendGrid and SES implementations share it.
type EmailSender interface {
	Send(ctx context.Context, msg EmailMessage) error
}

// EmailMessage is a single outbound email.
type EmailMessage struct {
	To      string
	ToName  string
	Subject string
	Body    string
	HTML    string
}

// SendGridSender sends emails via the SendGrid API.
type SendGridSender struct {
	client    *sendgrid.Client
	fromEmail string
	fromName  string
	logger    *logging.Logger
}

// SendGridConfig holds configuration for SendGrid.
type SendGridConfig struct {
	APIKey    string
	FromEmail string
	FromName  string
}

// NewSendGridSender returns nil when no API key is configured.
func NewSendGridSender(cfg SendGridConfig, logger *logging.Logger) *SendGridSender {
	if cfg.APIKey == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if cfg.FromName == "" {
		cfg.FromName = defaultFromName
	}
	return &SendGridSender{
		client:    sendgrid.NewSendClient(cfg.APIKey),
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		logger:    logger,
	}
}

func (s *SendGridSender) Send(ctx context.Context, msg EmailMessage) error {
	if s.client == nil {
		return fmt.Errorf("notify: sendgrid client not configured")
	}

	from := mail.NewEmail(s.fromName, s.fromEmail)
	to := mail.NewEmail(msg.ToName, msg.To)
	html := msg.HTML
	if html == "" {
		html = msg.Body
	}
	message := mail.NewSingleEmail(from, msg.Subject, to, msg.Body, html)

	response, err := s.client.SendWithContext(ctx, message)
	if err != nil {
		s.logger.Error("sendgrid send failed", "error", err, "to", msg.To)
		return fmt.Errorf("notify: sendgrid send: %w", err)
	}
	if response.StatusCode >= 400 {
		s.logger.Error("sendgrid returned error status", "status", response.StatusCode, "to", msg.To)
		return fmt.Errorf("notify: sendgrid returned status %d", response.StatusCode)
	}

	s.logger.Info("email sent via sendgrid", "to", msg.To, "subject", msg.Subject, "status", response.StatusCode)
	return nil
}

// StubEmailSender logs instead of sending.
type StubEmailSender struct {
	logger *logging.Logger
}

func NewStubEmailSender(logger *logging.Logger) *StubEmailSender {
	if logger == nil {
		logger = logging.Default()
	}
	return &StubEmailSender{logger: logger}
}

func (s *StubEmailSender) Send(ctx context.Context, msg EmailMessage) error {
	s.logger.Info("stub email sender: would send email", "to", msg.To, "subject", msg.Subject)
	return nil
}

// Recipient resolves who receives a booking confirmation. ok is false when
// nobody is signed in or the user has no email.
type Recipient func(ctx context.Context) (email, name string, ok bool)

// EmailSink mails a confirmation to the signed-in client whenever a booking
// succeeds. Other notifications are ignored. Sends run in the background so
// the booking flow never waits on the mail provider.
type EmailSink struct {
	sender    EmailSender
	recipient Recipient
	timeout   time.Duration
	logger    *logging.Logger
	wg        sync.WaitGroup
}

func NewEmailSink(sender EmailSender, recipient Recipient, logger *logging.Logger) *EmailSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &EmailSink{sender: sender, recipient: recipient, timeout: 10 * time.Second, logger: logger}
}

func (s *EmailSink) Notify(ctx context.Context, n Notification) {
	if s == nil || s.sender == nil || s.recipient == nil || n.Topic != TopicBookingCreated {
		return
	}
	to, name, ok := s.recipient(ctx)
	if !ok || strings.TrimSpace(to) == "" {
		return
	}
	msg := ConfirmationEmail(to, name, n)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()
		if err := s.sender.Send(sendCtx, msg); err != nil {
			s.logger.Warn("booking confirmation email failed", "error", err, "to", to)
		}
	}()
}

// Wait blocks until in-flight sends finish.
func (s *EmailSink) Wait() {
	if s == nil {
		return
	}
	s.wg.Wait()
}

// ConfirmationEmail renders the booking confirmation.
func ConfirmationEmail(to, name string, n Notification) EmailMessage {
	greeting := "Olá"
	if name != "" {
		greeting = "Olá, " + name
	}
	lines := []string{greeting + "!", "", n.Description}
	if n.Detail != "" {
		lines = append(lines, "", n.Detail)
	}
	return EmailMessage{
		To:      to,
		ToName:  name,
		Subject: n.Title,
		Body:    strings.Join(lines, "\n"),
	}
}
