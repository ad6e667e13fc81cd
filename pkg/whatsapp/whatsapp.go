// Package whatsapp normalizes outbound messaging providers behind a single
// Sender interface.
package whatsapp

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"
)

// ErrNotConfigured is returned by the stub sender when no provider
// credentials are set.
var ErrNotConfigured = eris.New("whatsapp: no provider configured")

// SendResult is the normalized provider reply.
type SendResult struct {
	OK                bool           `json:"ok"`
	ProviderMessageID string         `json:"provider_message_id,omitempty"`
	Raw               map[string]any `json:"raw,omitempty"`
}

// Sender sends one message to one recipient.
type Sender interface {
	Send(ctx context.Context, to, text, mediaURL string) (*SendResult, error)
	Provider() string
}

// NormalizePhone strips spaces, dashes and parentheses and prefixes the
// default country code when the number carries no +.
func NormalizePhone(number, defaultCountryCode string) string {
	cleaned := strings.NewReplacer(" ", "", "-", "", "(", "", ")", "").Replace(number)
	if cleaned == "" {
		return cleaned
	}
	if strings.HasPrefix(cleaned, "+") {
		return cleaned
	}
	// Leading 00 is the international dialing prefix.
	if strings.HasPrefix(cleaned, "00") {
		return "+" + cleaned[2:]
	}
	if strings.HasPrefix(cleaned, "0") {
		return defaultCountryCode + cleaned[1:]
	}
	return defaultCountryCode + cleaned
}

// StubSender is used when no provider credentials exist. Every send fails
// with ErrNotConfigured so callers degrade instead of crashing.
type StubSender struct{}

func (StubSender) Send(ctx context.Context, to, text, mediaURL string) (*SendResult, error) {
	return nil, ErrNotConfigured
}

func (StubSender) Provider() string { return "stub" }
