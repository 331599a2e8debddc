package whatsapp

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"bookline/agent/contract"
)

const graphAPIVersion = "v21.0"

type metaSendRequest struct {
	MessagingProduct string       `json:"messaging_product"`
	To               string       `json:"to"`
	Type             string       `json:"type"`
	Text             metaSendText `json:"text"`
}

type metaSendText struct {
	Body string `json:"body"`
}

func (m *Messenger) sendMeta(ctx context.Context, channel *contract.ChannelConfig, to, text string) error {
	if channel.PhoneNumberID == "" || channel.MetaAccessToken == "" {
		return fmt.Errorf("%w: meta channel credentials missing", contract.ErrNotConfigured)
	}

	payload, err := json.Marshal(metaSendRequest{
		MessagingProduct: "whatsapp",
		To:               to,
		Type:             "text",
		Text:             metaSendText{Body: text},
	})
	if err != nil {
		return fmt.Errorf("marshal meta message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", m.graphBase, graphAPIVersion, channel.PhoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build meta request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+channel.MetaAccessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: meta: %v", contract.ErrDeliveryFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: meta status=%d body=%s", contract.ErrDeliveryFailed, resp.StatusCode, string(body))
	}
	return nil
}

// VerifyMetaSignature checks the X-Hub-Signature-256 header Meta sends
// with webhook deliveries.
func VerifyMetaSignature(payload []byte, signature, appSecret string) bool {
	mac := hmac.New(sha256.New, []byte(appSecret))
	mac.Write(payload)
	expected := "sha256=" + hex.EncodeToString(mac.Sum(nil))
	return hmac.Equal([]byte(expected), []byte(signature))
}

// MetaInbound is the text content of one Meta webhook delivery.
type MetaInbound struct {
	PhoneNumberID string
	Messages      []IncomingMessage
}

type metaWebhook struct {
	Object string `json:"object"`
	Entry  []struct {
		Changes []struct {
			Value struct {
				Metadata struct {
					PhoneNumberID string `json:"phone_number_id"`
				} `json:"metadata"`
				Messages []struct {
					From      string `json:"from"`
					ID        string `json:"id"`
					Timestamp string `json:"timestamp"`
					Type      string `json:"type"`
					Text      struct {
						Body string `json:"body"`
					} `json:"text"`
				} `json:"messages"`
			} `json:"value"`
		} `json:"changes"`
	} `json:"entry"`
}

// ParseMetaPayload extracts text messages from a Meta webhook body.
// Non-message deliveries such as status updates return nil.
func ParseMetaPayload(raw []byte) *MetaInbound {
	var payload metaWebhook
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil
	}
	if payload.Object != "whatsapp_business_account" {
		return nil
	}
	if len(payload.Entry) == 0 || len(payload.Entry[0].Changes) == 0 {
		return nil
	}

	value := payload.Entry[0].Changes[0].Value
	inbound := &MetaInbound{PhoneNumberID: value.Metadata.PhoneNumberID}
	for _, msg := range value.Messages {
		if msg.Type != "text" {
			continue
		}
		inbound.Messages = append(inbound.Messages, IncomingMessage{
			From:      msg.From,
			Body:      msg.Text.Body,
			ID:        msg.ID,
			Timestamp: msg.Timestamp,
		})
	}

	if inbound.PhoneNumberID == "" || len(inbound.Messages) == 0 {
		return nil
	}
	return inbound
}
