package notify

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/wolfman30/barbershop-scheduler/pkg/logging"
)

func TestNewSendGridSender_NilWithoutAPIKey(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{FromEmail: "agenda@gobarber.test"}, nil)
	if sender != nil {
		t.Error("expected nil sender when API key is empty")
	}
}

func TestNewSendGridSender_DefaultFromName(t *testing.T) {
	sender := NewSendGridSender(SendGridConfig{APIKey: "test-key", FromEmail: "agenda@gobarber.test"}, nil)
	if sender == nil {
		t.Fatal("expected non-nil sender")
	}
	if sender.fromName != "GoBarber" {
		t.Errorf("expected default from name 'GoBarber', got %q", sender.fromName)
	}
}

func TestSendGridSender_Send_NilClient(t *testing.T) {
	sender := &SendGridSender{}
	err := sender.Send(context.Background(), EmailMessage{To: "cliente@example.com", Subject: "x"})
	if err == nil {
		t.Error("expected error when client is nil")
	}
}

func TestNewSESSender_NilClient(t *testing.T) {
	if NewSESSender(nil, SESConfig{FromEmail: "agenda@gobarber.test"}, nil) != nil {
		t.Error("expected nil sender without client")
	}
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	api := &fakeSES{}
	sender := NewSESSender(api, SESConfig{FromEmail: "agenda@gobarber.test"}, logging.Discard())
	err := sender.Send(context.Background(), EmailMessage{To: "ana@example.com", ToName: "Ana", Subject: "Agendamento realizado", Body: "texto"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := aws.ToString(api.input.FromEmailAddress); !strings.Contains(got, "GoBarber") || !strings.Contains(got, "<agenda@gobarber.test>") {
		t.Errorf("unexpected from address %q", got)
	}
	if to := api.input.Destination.ToAddresses; len(to) != 1 || !strings.Contains(to[0], "<ana@example.com>") {
		t.Errorf("unexpected destination %v", to)
	}
	body := api.input.Content.Simple.Body
	if body.Text == nil || aws.ToString(body.Text.Data) != "texto" || body.Html != nil {
		t.Errorf("expected text-only body, got %+v", body)
	}
}

func TestSESSender_SendError(t *testing.T) {
	api := &fakeSES{err: errors.New("throttled")}
	sender := NewSESSender(api, SESConfig{FromEmail: "agenda@gobarber.test"}, logging.Discard())
	err := sender.Send(context.Background(), EmailMessage{To: "ana@example.com", Subject: "x"})
	if err == nil || !strings.Contains(err.Error(), "throttled") {
		t.Fatalf("expected wrapped ses error, got %v", err)
	}
}

type captureSender struct {
	mu   sync.Mutex
	sent []EmailMessage
	err  error
}

func (c *captureSender) Send(_ context.Context, msg EmailMessage) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, msg)
	return c.err
}

func (c *captureSender) messages() []EmailMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]EmailMessage(nil), c.sent...)
}

func signedIn(ctx context.Context) (string, string, bool) {
	return "ana@example.com", "Ana", true
}

func TestEmailSink_SendsOnlyBookingConfirmations(t *testing.T) {
	sender := &captureSender{}
	sink := NewEmailSink(sender, signedIn, nil)
	msgs := Messages("pt-BR")

	sink.Notify(context.Background(), Failure(TopicBookingFailed, msgs.BookingFailed))
	sink.Notify(context.Background(), Success(TopicAppointmentCancelled, msgs.AppointmentCancelled))

	created := Success(TopicBookingCreated, msgs.BookingCreated)
	created.Detail = "06/05/2024 às 9h"
	sink.Notify(context.Background(), created)
	sink.Wait()

	sent := sender.messages()
	if len(sent) != 1 {
		t.Fatalf("expected 1 email, got %d", len(sent))
	}
	if sent[0].To != "ana@example.com" || sent[0].Subject != "Agendamento realizado!" {
		t.Errorf("unexpected email: %+v", sent[0])
	}
	if !strings.Contains(sent[0].Body, "06/05/2024 às 9h") || !strings.HasPrefix(sent[0].Body, "Olá, Ana!") {
		t.Errorf("unexpected body: %q", sent[0].Body)
	}
}

func TestEmailSink_NoRecipient(t *testing.T) {
	sender := &captureSender{}
	sink := NewEmailSink(sender, func(context.Context) (string, string, bool) { return "", "", false }, nil)
	sink.Notify(context.Background(), Success(TopicBookingCreated, Messages("en").BookingCreated))
	sink.Wait()
	if len(sender.messages()) != 0 {
		t.Error("expected no email without a recipient")
	}
}

func TestEmailSink_SendErrorIsSwallowed(t *testing.T) {
	sender := &captureSender{err: errors.New("smtp down")}
	sink := NewEmailSink(sender, signedIn, nil)
	sink.Notify(context.Background(), Success(TopicBookingCreated, Messages("en").BookingCreated))
	sink.Wait()
	if len(sender.messages()) != 1 {
		t.Error("expected one attempt")
	}
}

func TestStubEmailSender_Send(t *testing.T) {
	if err := NewStubEmailSender(nil).Send(context.Background(), EmailMessage{To: "a@b.c"}); err != nil {
		t.Errorf("stub sender should not return error, got: %v", err)
	}
}
