package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"bookline/agent/contract"
)

type handledTurn struct {
	businessID    string
	customerPhone string
	text          string
}

type fakeHandler struct {
	mu      sync.Mutex
	turns   []handledTurn
	done    chan struct{}
	handled int
}

func newFakeHandler(expect int) *fakeHandler {
	return &fakeHandler{done: make(chan struct{}, expect)}
}

func (f *fakeHandler) HandleMessage(ctx context.Context, businessID, customerPhone, text string) (string, error) {
	f.mu.Lock()
	f.turns = append(f.turns, handledTurn{businessID, customerPhone, text})
	f.handled++
	f.mu.Unlock()
	f.done <- struct{}{}
	return "ok", nil
}

func (f *fakeHandler) waitForTurn(t *testing.T) handledTurn {
	t.Helper()
	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for dispatched turn")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.turns[len(f.turns)-1]
}

type fakeChannels struct {
	meta   *contract.ChannelConfig
	twilio *contract.ChannelConfig
}

func (f *fakeChannels) FindChannelByPhoneNumberID(ctx context.Context, phoneNumberID string) (*contract.ChannelConfig, error) {
	if f.meta == nil || f.meta.PhoneNumberID != phoneNumberID {
		return nil, fmt.Errorf("%w: no meta channel", contract.ErrNotConfigured)
	}
	return f.meta, nil
}

func (f *fakeChannels) FindChannelByTwilioNumber(ctx context.Context, twilioNumber string) (*contract.ChannelConfig, error) {
	if f.twilio == nil || f.twilio.TwilioPhoneNumber != twilioNumber {
		return nil, fmt.Errorf("%w: no twilio channel", contract.ErrNotConfigured)
	}
	return f.twilio, nil
}

const metaWebhookBody = `{
  "object": "whatsapp_business_account",
  "entry": [{
    "changes": [{
      "value": {
        "metadata": {"phone_number_id": "pnid-1"},
        "messages": [{"from": "15550001111", "id": "wamid.1", "timestamp": "1735000000", "type": "text", "text": {"body": "book me a cleaning"}}]
      }
    }]
  }]
}`

func newTestServer(cfg Config, channels ChannelResolver, handler MessageHandler) *Server {
	cfg.Debug = false
	return New(cfg, channels, nil, handler)
}

func TestMetaVerifyHandshake(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{MetaVerifyToken: "verify-1"}, &fakeChannels{}, newFakeHandler(0))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=verify-1&hub.challenge=12345", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "12345" {
		t.Fatalf("body = %q, want challenge echoed", rec.Body.String())
	}
}

func TestMetaVerifyRejectsBadToken(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{MetaVerifyToken: "verify-1"}, &fakeChannels{}, newFakeHandler(0))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/webhooks/whatsapp?hub.mode=subscribe&hub.verify_token=wrong&hub.challenge=12345", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestMetaWebhookDispatches(t *testing.T) {
	t.Parallel()

	handler := newFakeHandler(1)
	channels := &fakeChannels{meta: &contract.ChannelConfig{
		BusinessID:    "biz-1",
		Provider:      contract.MessagingMeta,
		PhoneNumberID: "pnid-1",
		Active:        true,
	}}
	srv := newTestServer(Config{}, channels, handler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(metaWebhookBody))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	turn := handler.waitForTurn(t)
	if turn.businessID != "biz-1" || turn.customerPhone != "15550001111" || turn.text != "book me a cleaning" {
		t.Fatalf("unexpected turn: %+v", turn)
	}
}

func TestMetaWebhookSignature(t *testing.T) {
	t.Parallel()

	handler := newFakeHandler(1)
	channels := &fakeChannels{meta: &contract.ChannelConfig{
		BusinessID:    "biz-1",
		PhoneNumberID: "pnid-1",
	}}
	srv := newTestServer(Config{MetaAppSecret: "app-secret"}, channels, handler)

	// Wrong signature is rejected.
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(metaWebhookBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", "sha256=deadbeef")
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("forged signature: status = %d, want 403", rec.Code)
	}

	// Correct signature passes.
	mac := hmac.New(sha256.New, []byte("app-secret"))
	mac.Write([]byte(metaWebhookBody))
	good := "sha256=" + hex.EncodeToString(mac.Sum(nil))

	rec = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(metaWebhookBody))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Hub-Signature-256", good)
	srv.Handler().ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("valid signature: status = %d, want 200", rec.Code)
	}
	handler.waitForTurn(t)
}

func TestMetaWebhookUnknownChannelStillAcks(t *testing.T) {
	t.Parallel()

	handler := newFakeHandler(0)
	srv := newTestServer(Config{}, &fakeChannels{}, handler)

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(metaWebhookBody))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if handler.handled != 0 {
		t.Fatalf("nothing should be dispatched, got %d", handler.handled)
	}
}

func TestMetaWebhookIgnoresStatusUpdates(t *testing.T) {
	t.Parallel()

	handler := newFakeHandler(0)
	srv := newTestServer(Config{}, &fakeChannels{}, handler)

	body := `{"object":"whatsapp_business_account","entry":[{"changes":[{"value":{"metadata":{"phone_number_id":"pnid-1"},"statuses":[{"status":"read"}]}}]}]}`
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestTwilioWebhookDispatches(t *testing.T) {
	t.Parallel()

	handler := newFakeHandler(1)
	channels := &fakeChannels{twilio: &contract.ChannelConfig{
		BusinessID:        "biz-2",
		Provider:          contract.MessagingTwilio,
		TwilioPhoneNumber: "+15550009999",
		Active:            true,
	}}
	srv := newTestServer(Config{}, channels, handler)

	form := url.Values{}
	form.Set("From", "whatsapp:+15550001111")
	form.Set("To", "whatsapp:+15550009999")
	form.Set("Body", "cancel my appointment")
	form.Set("MessageSid", "SM1")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Body.String(); got != "<Response></Response>" {
		t.Fatalf("body = %q, want empty TwiML", got)
	}
	if ct := rec.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/xml") {
		t.Fatalf("content type = %q, want text/xml", ct)
	}

	turn := handler.waitForTurn(t)
	if turn.businessID != "biz-2" || turn.customerPhone != "+15550001111" || turn.text != "cancel my appointment" {
		t.Fatalf("unexpected turn: %+v", turn)
	}
}

func TestWebhookUnknownContentType(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{}, &fakeChannels{}, newFakeHandler(0))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/webhooks/whatsapp", strings.NewReader("<xml/>"))
	req.Header.Set("Content-Type", "application/xml")
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHealthz(t *testing.T) {
	t.Parallel()

	srv := newTestServer(Config{}, &fakeChannels{}, newFakeHandler(0))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

type fakeAppointments struct {
	appts        []contract.Appointment
	err          error
	lastBusiness string
	lastStatus   contract.AppointmentStatus
	lastUpcoming bool
}

func (f *fakeAppointments) ListAppointments(ctx context.Context, businessID string, status contract.AppointmentStatus, upcomingOnly bool) ([]contract.Appointment, error) {
	f.lastBusiness = businessID
	f.lastStatus = status
	f.lastUpcoming = upcomingOnly
	if f.err != nil {
		return nil, f.err
	}
	return f.appts, nil
}

func TestListAppointmentsEndpoint(t *testing.T) {
	t.Parallel()

	lister := &fakeAppointments{appts: []contract.Appointment{
		{ID: "appt-1", BusinessID: "biz-1", Status: contract.StatusScheduled},
	}}
	srv := New(Config{}, &fakeChannels{}, lister, newFakeHandler(0))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/businesses/biz-1/appointments?status=scheduled&upcoming=true", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if lister.lastBusiness != "biz-1" {
		t.Fatalf("business = %q, want biz-1", lister.lastBusiness)
	}
	if lister.lastStatus != contract.StatusScheduled {
		t.Fatalf("status filter = %q, want %q", lister.lastStatus, contract.StatusScheduled)
	}
	if !lister.lastUpcoming {
		t.Fatal("upcoming filter not passed through")
	}

	var body struct {
		Appointments []contract.Appointment `json:"appointments"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(body.Appointments) != 1 || body.Appointments[0].ID != "appt-1" {
		t.Fatalf("body appointments = %+v", body.Appointments)
	}
}

func TestListAppointmentsEndpointError(t *testing.T) {
	t.Parallel()

	lister := &fakeAppointments{err: fmt.Errorf("db down")}
	srv := New(Config{}, &fakeChannels{}, lister, newFakeHandler(0))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/businesses/biz-1/appointments", nil)
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
}
