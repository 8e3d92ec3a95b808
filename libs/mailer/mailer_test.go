package mailer

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
)

type recordingProvider struct {
	sent []Message
	err  error
}

func (p *recordingProvider) Name() string { return "recording" }

func (p *recordingProvider) Send(_ context.Context, msg Message) (SendResult, error) {
	if p.err != nil {
		return SendResult{}, p.err
	}
	p.sent = append(p.sent, msg)
	return SendResult{ProviderMessageID: "rec-1"}, nil
}

func TestLogProviderSend(t *testing.T) {
	var buf bytes.Buffer
	provider := NewLogProvider(slog.New(slog.NewTextHandler(&buf, nil)))

	result, err := provider.Send(context.Background(), Message{
		From:    "alerts@example.com",
		To:      []string{"ops@example.com"},
		Subject: "Directory load failed",
		Text:    "decode directory: unexpected EOF",
	})
	if err != nil {
		t.Fatalf("LogProvider.Send() error = %v", err)
	}
	if !strings.HasPrefix(result.ProviderMessageID, "log-") {
		t.Errorf("LogProvider.Send() message ID = %v, want prefix 'log-'", result.ProviderMessageID)
	}
	if !strings.Contains(buf.String(), "Directory load failed") {
		t.Errorf("expected subject in log output, got %q", buf.String())
	}
}

func TestMailerSendUsesDefaultFrom(t *testing.T) {
	provider := &recordingProvider{}
	m := New(provider, "default@test.com")

	if _, err := m.Send(context.Background(), Message{To: []string{"ops@example.com"}, Subject: "x"}); err != nil {
		t.Fatalf("Mailer.Send() error = %v", err)
	}
	if len(provider.sent) != 1 || provider.sent[0].From != "default@test.com" {
		t.Fatalf("expected default from address, got %+v", provider.sent)
	}

	if _, err := m.Send(context.Background(), Message{From: "other@test.com", To: []string{"ops@example.com"}}); err != nil {
		t.Fatalf("Mailer.Send() error = %v", err)
	}
	if provider.sent[1].From != "other@test.com" {
		t.Fatalf("explicit from was overwritten: %q", provider.sent[1].From)
	}
}

func TestMailerSendRejectsBlankRecipients(t *testing.T) {
	provider := &recordingProvider{}
	m := New(provider, "default@test.com")

	_, err := m.Send(context.Background(), Message{To: []string{"", "  "}})
	if !errors.Is(err, ErrNoRecipients) {
		t.Fatalf("expected ErrNoRecipients, got %v", err)
	}
	if len(provider.sent) != 0 {
		t.Fatal("provider must not be called without recipients")
	}
}

func TestMailerSendPropagatesProviderError(t *testing.T) {
	boom := errors.New("boom")
	m := New(&recordingProvider{err: boom}, "default@test.com")

	if _, err := m.Send(context.Background(), Message{To: []string{"ops@example.com"}}); !errors.Is(err, boom) {
		t.Fatalf("expected provider error, got %v", err)
	}
}

func TestNewFromKeySelectsProvider(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	from := map[string]string{"resend": "noreply@mail.example", "log": "noreply@local"}

	if got := NewFromKey("", from, logger).ProviderName(); got != "log" {
		t.Errorf("expected log provider without key, got %v", got)
	}
	if got := NewFromKey("re_fake", from, logger).ProviderName(); got != "resend" {
		t.Errorf("expected resend provider with key, got %v", got)
	}
}
