package whatsapp

import "go.uber.org/zap"

// Credentials carries provider settings; unused fields stay empty.
type Credentials struct {
	Provider string

	UltramsgInstance string
	UltramsgToken    string

	DialogAPIKey string

	TwilioAccountSID string
	TwilioAuthToken  string
	TwilioFromNumber string
}

// NewSender builds the configured provider. Missing credentials yield the
// stub sender so the rest of the system keeps running.
func NewSender(creds Credentials) Sender {
	switch creds.Provider {
	case "ultramsg":
		if creds.UltramsgInstance != "" && creds.UltramsgToken != "" {
			return NewUltramsg(creds.UltramsgInstance, creds.UltramsgToken)
		}
	case "360dialog":
		if creds.DialogAPIKey != "" {
			return NewDialog360(creds.DialogAPIKey)
		}
	case "twilio":
		if creds.TwilioAccountSID != "" && creds.TwilioAuthToken != "" {
			return NewTwilio(creds.TwilioAccountSID, creds.TwilioAuthToken, creds.TwilioFromNumber)
		}
	}
	zap.L().Warn("whatsapp provider not configured, sends disabled",
		zap.String("provider", creds.Provider))
	return StubSender{}
}
