package whatsapp

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"bookline/agent/contract"
)

func (m *Messenger) sendTwilio(ctx context.Context, channel *contract.ChannelConfig, to, text string) error {
	if channel.TwilioAccountSID == "" || channel.TwilioAuthToken == "" || channel.TwilioPhoneNumber == "" {
		return fmt.Errorf("%w: twilio channel credentials missing", contract.ErrNotConfigured)
	}

	form := url.Values{}
	form.Set("Body", text)
	form.Set("From", "whatsapp:"+channel.TwilioPhoneNumber)
	form.Set("To", "whatsapp:"+to)

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", m.twilioBase, channel.TwilioAccountSID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(channel.TwilioAccountSID, channel.TwilioAuthToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: twilio: %v", contract.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: twilio status=%d body=%s", contract.ErrDeliveryFailed, resp.StatusCode, string(body))
	}
	return nil
}

// TwilioInbound is one inbound message from a Twilio webhook form post.
type TwilioInbound struct {
	From       string
	To         string
	Body       string
	MessageSID string
}

// ParseTwilioForm extracts the message from Twilio's form-encoded
// webhook. The whatsapp: prefix is stripped from both numbers.
func ParseTwilioForm(form url.Values) *TwilioInbound {
	inbound := &TwilioInbound{
		From:       strings.TrimPrefix(form.Get("From"), "whatsapp:"),
		To:         strings.TrimPrefix(form.Get("To"), "whatsapp:"),
		Body:       form.Get("Body"),
		MessageSID: form.Get("MessageSid"),
	}
	if inbound.From == "" || inbound.Body == "" {
		return nil
	}
	return inbound
}
