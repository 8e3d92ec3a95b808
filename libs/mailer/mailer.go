// Package mailer sends operational email through a pluggable provider.
package mailer

import (
	"context"
	"errors"
	"log/slog"
	"strings"
)

var ErrNoRecipients = errors.New("mailer: message has no recipients")

// Message represents an email to send.
type Message struct {
	From    string
	To      []string
	Subject string
	HTML    string
	Text    string
}

// SendResult contains the response from the provider.
type SendResult struct {
	ProviderMessageID string
}

// Provider sends emails via a specific backend.
type Provider interface {
	Name() string
	Send(ctx context.Context, msg Message) (SendResult, error)
}

// Mailer is the top-level entry point for sending emails.
type Mailer struct {
	provider    Provider
	fromAddress string
}

// New creates a new Mailer with the given provider and default sender address.
func New(provider Provider, fromAddress string) *Mailer {
	return &Mailer{
		provider:    provider,
		fromAddress: fromAddress,
	}
}

// NewFromKey picks Resend when an API key is configured and the log provider otherwise.
// fromAddresses is keyed by provider name.
func NewFromKey(resendAPIKey string, fromAddresses map[string]string, logger *slog.Logger) *Mailer {
	var provider Provider
	if strings.TrimSpace(resendAPIKey) != "" {
		provider = NewResendProvider(resendAPIKey)
	} else {
		provider = NewLogProvider(logger)
	}
	return New(provider, fromAddresses[provider.Name()])
}

// Send sends an email message via the configured provider.
// If msg.From is empty, the default fromAddress is used. Blank recipients are dropped.
func (m *Mailer) Send(ctx context.Context, msg Message) (SendResult, error) {
	if msg.From == "" {
		msg.From = m.fromAddress
	}
	recipients := make([]string, 0, len(msg.To))
	for _, to := range msg.To {
		if to = strings.TrimSpace(to); to != "" {
			recipients = append(recipients, to)
		}
	}
	if len(recipients) == 0 {
		return SendResult{}, ErrNoRecipients
	}
	msg.To = recipients
	return m.provider.Send(ctx, msg)
}

// ProviderName returns the name of the configured provider.
func (m *Mailer) ProviderName() string {
	return m.provider.Name()
}
