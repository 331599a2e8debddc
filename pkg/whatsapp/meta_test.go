package whatsapp

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"bookline/agent/contract"
)

const metaSamplePayload = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "id": "entry-1",
    "changes": [{
      "value": {
        "metadata": {"display_phone_number": "15550009999", "phone_number_id": "pnid-1"},
        "messages": [
          {"from": "15550001111", "id": "wamid.1", "timestamp": "1735000000", "type": "text", "text": {"body": "hi there"}},
          {"from": "15550001111", "id": "wamid.2", "timestamp": "1735000001", "type": "image"}
        ]
      },
      "field": "messages"
    }]
  }]
}`

func TestParseMetaPayload(t *testing.T) {
	t.Parallel()

	inbound := ParseMetaPayload([]byte(metaSamplePayload))
	if inbound == nil {
		t.Fatal("ParseMetaPayload() = nil")
	}
	if inbound.PhoneNumberID != "pnid-1" {
		t.Fatalf("PhoneNumberID = %q", inbound.PhoneNumberID)
	}
	if len(inbound.Messages) != 1 {
		t.Fatalf("expected only the text message, got %d", len(inbound.Messages))
	}
	msg := inbound.Messages[0]
	if msg.From != "15550001111" || msg.Body != "hi there" || msg.ID != "wamid.1" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestParseMetaPayloadStatusUpdate(t *testing.T) {
	t.Parallel()

	payload := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"metadata":{"phone_number_id":"pnid-1"},"statuses":[{"id":"wamid.1","status":"delivered"}]}}]}]}`
	if inbound := ParseMetaPayload([]byte(payload)); inbound != nil {
		t.Fatalf("status update must parse to nil, got %+v", inbound)
	}
}

func TestParseMetaPayloadWrongObject(t *testing.T) {
	t.Parallel()

	if inbound := ParseMetaPayload([]byte(`{"object":"page","entry":[]}`)); inbound != nil {
		t.Fatalf("non whatsapp object must parse to nil, got %+v", inbound)
	}
	if inbound := ParseMetaPayload([]byte(`not json`)); inbound != nil {
		t.Fatalf("garbage must parse to nil, got %+v", inbound)
	}
}

func TestVerifyMetaSignature(t *testing.T) {
	t.Parallel()

	payload := []byte(`{"object":"whatsapp_business_account"}`)
	secret := "app-secret"

	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(payload)
	good := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	if !VerifyMetaSignature(payload, good, secret) {
		t.Fatal("valid signature rejected")
	}
	if VerifyMetaSignature(payload, good, "other-secret") {
		t.Fatal("signature for another secret accepted")
	}
	if VerifyMetaSignature(payload, "sha256=deadbeef", secret) {
		t.Fatal("forged signature accepted")
	}
}

func TestSendMeta(t *testing.T) {
	t.Parallel()

	var gotPath, gotAuth string
	var gotBody metaSendRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode send body: %v", err)
		}
		fmt.Fprint(w, `{"messages":[{"id":"wamid.out"}]}`)
	}))
	t.Cleanup(server.Close)

	m := New(WithHTTPClient(server.Client()), WithGraphBaseURL(server.URL))
	channel := &contract.ChannelConfig{
		Provider:        contract.MessagingMeta,
		PhoneNumberID:   "pnid-1",
		MetaAccessToken: "token-1",
		Active:          true,
	}

	if err := m.Send(context.Background(), channel, "15550001111", "see you at 2 PM"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotPath != "/v21.0/pnid-1/messages" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotAuth != "Bearer token-1" {
		t.Fatalf("auth = %q", gotAuth)
	}
	if gotBody.MessagingProduct != "whatsapp" || gotBody.To != "15550001111" || gotBody.Text.Body != "see you at 2 PM" {
		t.Fatalf("unexpected body: %+v", gotBody)
	}
}

func TestSendMetaUpstreamError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"bad token"}}`, http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	m := New(WithHTTPClient(server.Client()), WithGraphBaseURL(server.URL))
	channel := &contract.ChannelConfig{
		Provider:        contract.MessagingMeta,
		PhoneNumberID:   "pnid-1",
		MetaAccessToken: "token-1",
	}

	err := m.Send(context.Background(), channel, "15550001111", "hello")
	if !errors.Is(err, contract.ErrDeliveryFailed) {
		t.Fatalf("error = %v, want ErrDeliveryFailed", err)
	}
}

func TestSendTwilio(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotForm url.Values
	var gotUser, gotPass string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.WriteHeader(http.StatusCreated)
		fmt.Fprint(w, `{"sid":"SM1"}`)
	}))
	t.Cleanup(server.Close)

	m := New(WithHTTPClient(server.Client()), WithTwilioBaseURL(server.URL))
	channel := &contract.ChannelConfig{
		Provider:          contract.MessagingTwilio,
		TwilioAccountSID:  "AC123",
		TwilioAuthToken:   "secret",
		TwilioPhoneNumber: "+15550009999",
		Active:            true,
	}

	if err := m.Send(context.Background(), channel, "+15550001111", "booked!"); err != nil {
		t.Fatalf("Send() error = %v", err)
	}

	if gotPath != "/2010-04-01/Accounts/AC123/Messages.json" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotUser != "AC123" || gotPass != "secret" {
		t.Fatalf("basic auth = %q %q", gotUser, gotPass)
	}
	if gotForm.Get("From") != "whatsapp:+15550009999" || gotForm.Get("To") != "whatsapp:+15550001111" {
		t.Fatalf("form numbers = %q -> %q", gotForm.Get("From"), gotForm.Get("To"))
	}
	if gotForm.Get("Body") != "booked!" {
		t.Fatalf("form body = %q", gotForm.Get("Body"))
	}
}

func TestParseTwilioForm(t *testing.T) {
	t.Parallel()

	form := url.Values{}
	form.Set("From", "whatsapp:+15550001111")
	form.Set("To", "whatsapp:+15550009999")
	form.Set("Body", "can I book a cleaning?")
	form.Set("MessageSid", "SM2")

	inbound := ParseTwilioForm(form)
	if inbound == nil {
		t.Fatal("ParseTwilioForm() = nil")
	}
	if inbound.From != "+15550001111" || inbound.To != "+15550009999" {
		t.Fatalf("numbers = %q -> %q", inbound.From, inbound.To)
	}
	if inbound.Body != "can I book a cleaning?" || inbound.MessageSID != "SM2" {
		t.Fatalf("unexpected inbound: %+v", inbound)
	}

	if ParseTwilioForm(url.Values{"From": {"whatsapp:+1555"}}) != nil {
		t.Fatal("missing body must parse to nil")
	}
}

func TestSendUnknownProvider(t *testing.T) {
	t.Parallel()

	m := New()
	err := m.Send(context.Background(), &contract.ChannelConfig{Provider: "SMOKE"}, "+1555", "hi")
	if !errors.Is(err, contract.ErrNotConfigured) {
		t.Fatalf("error = %v, want ErrNotConfigured", err)
	}
}
