package whatsapp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// TwilioSender sends WhatsApp messages through the Twilio Messaging API.
type TwilioSender struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	http       *http.Client
}

// TwilioOption configures the Twilio sender.
type TwilioOption func(*TwilioSender)

// WithTwilioBaseURL sets a custom base URL (for testing).
func WithTwilioBaseURL(u string) TwilioOption {
	return func(s *TwilioSender) { s.baseURL = u }
}

// WithTwilioHTTPClient sets a custom HTTP client.
func WithTwilioHTTPClient(hc *http.Client) TwilioOption {
	return func(s *TwilioSender) { s.http = hc }
}

// NewTwilio creates a Twilio-backed sender. from is the WhatsApp-enabled
// Twilio number.
func NewTwilio(accountSID, authToken, from string, opts ...TwilioOption) *TwilioSender {
	s := &TwilioSender{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    "https://api.twilio.com",
		http:       &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *TwilioSender) Provider() string { return "twilio" }

// Send posts a message through the Twilio Messages resource, addressing
// both ends via the whatsapp: channel prefix.
func (s *TwilioSender) Send(ctx context.Context, to, text, mediaURL string) (*SendResult, error) {
	form := url.Values{
		"To":   {"whatsapp:" + to},
		"From": {"whatsapp:" + s.from},
		"Body": {text},
	}
	if mediaURL != "" {
		form.Set("MediaUrl", mediaURL)
	}

	endpoint := s.baseURL + "/2010-04-01/Accounts/" + s.accountSID + "/Messages.json"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "twilio: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(s.accountSID, s.authToken)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "twilio: send")
	}
	defer resp.Body.Close()

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, eris.Wrapf(err, "twilio: decode response (status %d)", resp.StatusCode)
	}

	result := &SendResult{Raw: raw}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		result.OK = true
		result.ProviderMessageID, _ = raw["sid"].(string)
		return result, nil
	}
	return result, eris.Errorf("twilio: send failed (status %d)", resp.StatusCode)
}
