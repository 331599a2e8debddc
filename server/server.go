package server

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"bookline/agent/contract"
	"bookline/pkg/whatsapp"
)

// ChannelResolver maps inbound webhook identifiers to the business
// channel they belong to.
type ChannelResolver interface {
	FindChannelByPhoneNumberID(ctx context.Context, phoneNumberID string) (*contract.ChannelConfig, error)
	FindChannelByTwilioNumber(ctx context.Context, twilioNumber string) (*contract.ChannelConfig, error)
}

// AppointmentLister reads a business's appointment book for the
// operator-facing endpoint.
type AppointmentLister interface {
	ListAppointments(ctx context.Context, businessID string, status contract.AppointmentStatus, upcomingOnly bool) ([]contract.Appointment, error)
}

type Config struct {
	Addr               string        `envconfig:"ADDR" split_words:"true" default:":8080"`
	MetaVerifyToken    string        `envconfig:"META_VERIFY_TOKEN" split_words:"true"`
	MetaAppSecret      string        `envconfig:"META_APP_SECRET" split_words:"true"`
	TurnTimeout        time.Duration `envconfig:"TURN_TIMEOUT" split_words:"true" default:"2m"`
	MaxConcurrentTurns int           `envconfig:"MAX_CONCURRENT_TURNS" split_words:"true" default:"32"`
	Debug              bool          `envconfig:"DEBUG" split_words:"true" default:"false"`
}

type Server struct {
	cfg          Config
	engine       *gin.Engine
	channels     ChannelResolver
	appointments AppointmentLister
	dispatcher   *Dispatcher
}

func New(cfg Config, channels ChannelResolver, appointments AppointmentLister, handler MessageHandler) *Server {
	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:          cfg,
		engine:       gin.New(),
		channels:     channels,
		appointments: appointments,
		dispatcher:   NewDispatcher(handler, cfg.TurnTimeout, cfg.MaxConcurrentTurns),
	}

	s.engine.Use(gin.Recovery())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.handleHealth)
	s.engine.GET("/webhooks/whatsapp", s.handleMetaVerify)
	s.engine.POST("/webhooks/whatsapp", s.handleWebhook)
	if s.appointments != nil {
		s.engine.GET("/businesses/:businessID/appointments", s.handleListAppointments)
	}
}

func (s *Server) Run() error {
	log.Info().Str("addr", s.cfg.Addr).Msg("listening")
	return s.engine.Run(s.cfg.Addr)
}

// Handler exposes the router, used by tests.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Drain waits for in-flight turns during shutdown.
func (s *Server) Drain(ctx context.Context) error {
	return s.dispatcher.Wait(ctx)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleListAppointments serves the read side of the appointment book:
// ?status=SCHEDULED|CANCELLED filters by status, ?upcoming=true keeps
// only appointments that have not started yet.
func (s *Server) handleListAppointments(c *gin.Context) {
	businessID := c.Param("businessID")
	status := contract.AppointmentStatus(strings.ToUpper(strings.TrimSpace(c.Query("status"))))
	upcoming := c.Query("upcoming") == "true"

	appts, err := s.appointments.ListAppointments(c.Request.Context(), businessID, status, upcoming)
	if err != nil {
		log.Error().Err(err).Str("business_id", businessID).Msg("list appointments failed")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal error"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"appointments": appts})
}

// handleMetaVerify answers Meta's webhook subscription handshake.
func (s *Server) handleMetaVerify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	if mode == "subscribe" && token != "" && token == s.cfg.MetaVerifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
}

// handleWebhook accepts deliveries from both providers, telling them
// apart by content type. Providers always get their ack even when a
// payload cannot be used, retries would not help.
func (s *Server) handleWebhook(c *gin.Context) {
	contentType := c.ContentType()

	switch {
	case contentType == gin.MIMEJSON:
		s.handleMetaWebhook(c)
	case contentType == gin.MIMEPOSTForm:
		s.handleTwilioWebhook(c)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown provider"})
	}
}

func (s *Server) handleMetaWebhook(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	if s.cfg.MetaAppSecret != "" {
		signature := c.GetHeader("X-Hub-Signature-256")
		if !whatsapp.VerifyMetaSignature(body, signature, s.cfg.MetaAppSecret) {
			log.Warn().Msg("meta webhook signature mismatch")
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
			return
		}
	}

	inbound := whatsapp.ParseMetaPayload(body)
	if inbound == nil {
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	channel, err := s.channels.FindChannelByPhoneNumberID(c.Request.Context(), inbound.PhoneNumberID)
	if err != nil {
		log.Warn().Err(err).Str("phone_number_id", inbound.PhoneNumberID).Msg("meta webhook for unknown channel")
		c.JSON(http.StatusOK, gin.H{"received": true})
		return
	}

	for _, msg := range inbound.Messages {
		s.dispatcher.Dispatch(channel.BusinessID, msg.From, msg.Body)
	}
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) handleTwilioWebhook(c *gin.Context) {
	if err := c.Request.ParseForm(); err != nil {
		c.Data(http.StatusOK, "text/xml", []byte("<Response></Response>"))
		return
	}

	inbound := whatsapp.ParseTwilioForm(c.Request.PostForm)
	if inbound == nil {
		c.Data(http.StatusOK, "text/xml", []byte("<Response></Response>"))
		return
	}

	channel, err := s.channels.FindChannelByTwilioNumber(c.Request.Context(), inbound.To)
	if err != nil {
		log.Warn().Err(err).Str("twilio_number", inbound.To).Msg("twilio webhook for unknown channel")
		c.Data(http.StatusOK, "text/xml", []byte("<Response></Response>"))
		return
	}

	s.dispatcher.Dispatch(channel.BusinessID, inbound.From, inbound.Body)
	c.Data(http.StatusOK, "text/xml", []byte("<Response></Response>"))
}
