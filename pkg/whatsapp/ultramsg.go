package whatsapp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// UltramsgSender sends messages through the Ultramsg WhatsApp API.
type UltramsgSender struct {
	instance string
	token    string
	baseURL  string
	http     *http.Client
}

// UltramsgOption configures the Ultramsg sender.
type UltramsgOption func(*UltramsgSender)

// WithUltramsgBaseURL sets a custom base URL (for testing).
func WithUltramsgBaseURL(u string) UltramsgOption {
	return func(s *UltramsgSender) { s.baseURL = u }
}

// WithUltramsgHTTPClient sets a custom HTTP client.
func WithUltramsgHTTPClient(hc *http.Client) UltramsgOption {
	return func(s *UltramsgSender) { s.http = hc }
}

// NewUltramsg creates an Ultramsg-backed sender.
func NewUltramsg(instance, token string, opts ...UltramsgOption) *UltramsgSender {
	s := &UltramsgSender{
		instance: instance,
		token:    token,
		baseURL:  "https://api.ultramsg.com",
		http:     &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *UltramsgSender) Provider() string { return "ultramsg" }

// Send posts a chat or image message to the Ultramsg instance.
func (s *UltramsgSender) Send(ctx context.Context, to, text, mediaURL string) (*SendResult, error) {
	endpoint := s.baseURL + "/" + s.instance + "/messages/chat"
	form := url.Values{
		"token": {s.token},
		"to":    {to},
		"body":  {text},
	}
	if mediaURL != "" {
		endpoint = s.baseURL + "/" + s.instance + "/messages/image"
		form = url.Values{
			"token":   {s.token},
			"to":      {to},
			"image":   {mediaURL},
			"caption": {text},
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, eris.Wrap(err, "ultramsg: build request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "ultramsg: send")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "ultramsg: read response")
	}

	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, eris.Wrapf(err, "ultramsg: decode response (status %d)", resp.StatusCode)
	}

	result := &SendResult{Raw: raw}
	if resp.StatusCode == http.StatusOK {
		if sent, ok := raw["sent"].(string); ok && sent == "true" {
			result.OK = true
		}
		if id, ok := raw["id"].(float64); ok {
			result.ProviderMessageID = strconv.FormatInt(int64(id), 10)
		}
	}
	if !result.OK {
		return result, eris.Errorf("ultramsg: send failed (status %d)", resp.StatusCode)
	}
	return result, nil
}
