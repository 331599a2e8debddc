package contract

import (
	"context"
	"time"

	"github.com/cloudwego/eino/schema"
)

// ModelDriver abstracts one interchangeable language-model backend. Backend
// SDK types never cross this boundary.
type ModelDriver interface {
	// Open starts a model session for one orchestration turn. History is the
	// prior conversation (already trimmed); tools are the fixed registry the
	// model may call.
	Open(system string, history []Turn, tools []*schema.ToolInfo) (ModelSession, error)
	Provider() ModelProvider
}

// ModelSession is the per-turn exchange with a backend: one Send with the
// customer message, then zero or more Resume rounds feeding tool results
// back, each returning the next Reply.
type ModelSession interface {
	Send(ctx context.Context, text string) (Reply, error)
	Resume(ctx context.Context, results []ToolResult) (Reply, error)
}

// CalendarGateway is the external calendar collaborator. It owns credential
// refresh for the business identified by each call.
type CalendarGateway interface {
	ListBusy(ctx context.Context, businessID string, from, to time.Time) ([]BusyInterval, error)
	CreateEvent(ctx context.Context, businessID string, ev EventInput) (string, error)
	// DeleteEvent tolerates an already-removed event without error.
	DeleteEvent(ctx context.Context, businessID string, eventID string) error
}

// Repository persists the business-owned records the agent reads and writes.
type Repository interface {
	GetProfile(ctx context.Context, businessID string) (*BusinessProfile, error)
	GetChannel(ctx context.Context, businessID string) (*ChannelConfig, error)

	ListActiveServices(ctx context.Context, businessID string) ([]Service, error)
	GetService(ctx context.Context, businessID, serviceID string) (*Service, error)

	CreateAppointment(ctx context.Context, appt *Appointment) error
	GetAppointment(ctx context.Context, businessID, appointmentID string) (*Appointment, error)
	UpdateAppointmentStatus(ctx context.Context, businessID, appointmentID string, status AppointmentStatus) error
}

// ConversationStore loads and saves the bounded transcript for one
// (business, customer) pair. Implementations must serialize updates per pair.
type ConversationStore interface {
	Load(ctx context.Context, businessID, customerPhone string) ([]Turn, error)
	Save(ctx context.Context, businessID, customerPhone string, turns []Turn, lastActivity time.Time) error
}

// Messenger delivers the final reply to the customer.
type Messenger interface {
	Send(ctx context.Context, channel *ChannelConfig, customerPhone, text string) error
}
