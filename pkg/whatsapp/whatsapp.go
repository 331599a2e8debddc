package whatsapp

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"bookline/agent/contract"
)

const defaultTimeout = 15 * time.Second

// IncomingMessage is one inbound customer text, normalized across
// providers.
type IncomingMessage struct {
	From      string
	Body      string
	ID        string
	Timestamp string
}

// Option customizes Messenger.
type Option func(*Messenger)

func WithHTTPClient(client *http.Client) Option {
	return func(m *Messenger) {
		if client != nil {
			m.httpClient = client
		}
	}
}

func WithGraphBaseURL(baseURL string) Option {
	return func(m *Messenger) {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed != "" {
			m.graphBase = trimmed
		}
	}
}

func WithTwilioBaseURL(baseURL string) Option {
	return func(m *Messenger) {
		trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
		if trimmed != "" {
			m.twilioBase = trimmed
		}
	}
}

// Messenger sends outbound WhatsApp texts over whichever provider a
// business channel is connected to.
type Messenger struct {
	httpClient *http.Client
	graphBase  string
	twilioBase string
}

var _ contract.Messenger = (*Messenger)(nil)

func New(opts ...Option) *Messenger {
	m := &Messenger{
		httpClient: &http.Client{Timeout: defaultTimeout},
		graphBase:  "https://graph.facebook.com",
		twilioBase: "https://api.twilio.com",
	}
	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}
	return m
}

func (m *Messenger) Send(ctx context.Context, channel *contract.ChannelConfig, customerPhone, text string) error {
	if channel == nil {
		return fmt.Errorf("%w: channel config is nil", contract.ErrNotConfigured)
	}

	switch channel.Provider {
	case contract.MessagingMeta:
		return m.sendMeta(ctx, channel, customerPhone, text)
	case contract.MessagingTwilio:
		return m.sendTwilio(ctx, channel, customerPhone, text)
	default:
		return fmt.Errorf("%w: unknown messaging provider %q", contract.ErrNotConfigured, channel.Provider)
	}
}
