package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// Dialog360Sender sends messages through the 360dialog WhatsApp Business
// API.
type Dialog360Sender struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// Dialog360Option configures the 360dialog sender.
type Dialog360Option func(*Dialog360Sender)

// WithDialog360BaseURL sets a custom base URL (for testing).
func WithDialog360BaseURL(u string) Dialog360Option {
	return func(s *Dialog360Sender) { s.baseURL = u }
}

// WithDialog360HTTPClient sets a custom HTTP client.
func WithDialog360HTTPClient(hc *http.Client) Dialog360Option {
	return func(s *Dialog360Sender) { s.http = hc }
}

// NewDialog360 creates a 360dialog-backed sender.
func NewDialog360(apiKey string, opts ...Dialog360Option) *Dialog360Sender {
	s := &Dialog360Sender{
		apiKey:  apiKey,
		baseURL: "https://waba.360dialog.io",
		http:    &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Dialog360Sender) Provider() string { return "360dialog" }

// Send posts a text or image message through the WABA messages endpoint.
func (s *Dialog360Sender) Send(ctx context.Context, to, text, mediaURL string) (*SendResult, error) {
	payload := map[string]any{
		"recipient_type": "individual",
		"to":             to,
		"type":           "text",
		"text":           map[string]string{"body": text},
	}
	if mediaURL != "" {
		payload["type"] = "image"
		delete(payload, "text")
		payload["image"] = map[string]string{"link": mediaURL, "caption": text}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, eris.Wrap(err, "360dialog: marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "360dialog: build request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("D360-API-KEY", s.apiKey)

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "360dialog: send")
	}
	defer resp.Body.Close()

	var rawMap map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&rawMap); err != nil {
		return nil, eris.Wrapf(err, "360dialog: decode response (status %d)", resp.StatusCode)
	}

	result := &SendResult{Raw: rawMap}
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if msgs, ok := rawMap["messages"].([]any); ok && len(msgs) > 0 {
			if msg, ok := msgs[0].(map[string]any); ok {
				result.ProviderMessageID, _ = msg["id"].(string)
				result.OK = true
				return result, nil
			}
		}
	}
	return result, eris.Errorf("360dialog: send failed (status %d)", resp.StatusCode)
}
