package contract

import (
	"time"
)

// ModelProvider selects which language-model backend drives a business's
// conversations.
type ModelProvider string

const (
	ProviderOpenAI ModelProvider = "OPENAI"
	ProviderGemini ModelProvider = "GEMINI"
)

// MessagingProvider selects the WhatsApp transport for a business.
type MessagingProvider string

const (
	MessagingMeta   MessagingProvider = "META"
	MessagingTwilio MessagingProvider = "TWILIO"
)

// Service is one bookable offering owned by a business. Read-only from the
// agent's perspective.
type Service struct {
	ID          string  `json:"id"`
	BusinessID  string  `json:"business_id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Duration    int     `json:"duration"` // minutes
	Active      bool    `json:"active"`
}

// DayHours is the open/close window for one weekday, local "HH:MM" strings.
// A nil Open or Close means closed that day.
type DayHours struct {
	Open  *string `json:"open,omitempty"`
	Close *string `json:"close,omitempty"`
}

func (d DayHours) Closed() bool {
	return d.Open == nil || d.Close == nil
}

// WeekHours maps each weekday to its hours.
type WeekHours struct {
	Monday    DayHours `json:"monday"`
	Tuesday   DayHours `json:"tuesday"`
	Wednesday DayHours `json:"wednesday"`
	Thursday  DayHours `json:"thursday"`
	Friday    DayHours `json:"friday"`
	Saturday  DayHours `json:"saturday"`
	Sunday    DayHours `json:"sunday"`
}

// ForWeekday returns the hours for a time.Weekday.
func (w WeekHours) ForWeekday(day time.Weekday) DayHours {
	switch day {
	case time.Monday:
		return w.Monday
	case time.Tuesday:
		return w.Tuesday
	case time.Wednesday:
		return w.Wednesday
	case time.Thursday:
		return w.Thursday
	case time.Friday:
		return w.Friday
	case time.Saturday:
		return w.Saturday
	default:
		return w.Sunday
	}
}

// BusinessProfile holds what the agent needs to speak for a business.
type BusinessProfile struct {
	BusinessID   string        `json:"business_id"`
	BusinessName string        `json:"business_name"`
	Profession   string        `json:"profession"`
	Timezone     string        `json:"timezone"`
	Hours        WeekHours     `json:"hours"`
	AIProvider   ModelProvider `json:"ai_provider"`
}

// ChannelConfig is a business's connected WhatsApp channel.
type ChannelConfig struct {
	BusinessID        string            `json:"business_id"`
	Provider          MessagingProvider `json:"provider"`
	PhoneNumberID     string            `json:"phone_number_id,omitempty"`
	MetaAccessToken   string            `json:"meta_access_token,omitempty"`
	TwilioAccountSID  string            `json:"twilio_account_sid,omitempty"`
	TwilioAuthToken   string            `json:"twilio_auth_token,omitempty"`
	TwilioPhoneNumber string            `json:"twilio_phone_number,omitempty"`
	Active            bool              `json:"active"`
}

// CalendarCredentials are a business's Google Calendar OAuth tokens.
type CalendarCredentials struct {
	BusinessID   string    `json:"business_id"`
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	Expiry       time.Time `json:"expiry"`
}

// BusyInterval is a half-open [Start, End) occupied range on the external
// calendar, UTC instants. Never persisted.
type BusyInterval struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Slot is a bookable candidate window: inside business hours and disjoint
// from every busy interval. Ephemeral, computed on demand.
type Slot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

type AppointmentStatus string

const (
	StatusScheduled AppointmentStatus = "SCHEDULED"
	StatusConfirmed AppointmentStatus = "CONFIRMED"
	StatusCompleted AppointmentStatus = "COMPLETED"
	StatusCancelled AppointmentStatus = "CANCELLED"
	StatusNoShow    AppointmentStatus = "NO_SHOW"
)

// Appointment is a booked service occurrence. The agent creates it with
// status SCHEDULED and only ever moves it to CANCELLED; other transitions
// belong to the dashboard.
type Appointment struct {
	ID              string            `json:"id"`
	BusinessID      string            `json:"business_id"`
	ServiceID       string            `json:"service_id"`
	CustomerName    string            `json:"customer_name"`
	CustomerPhone   string            `json:"customer_phone"`
	StartTime       time.Time         `json:"start_time"`
	EndTime         time.Time         `json:"end_time"`
	Status          AppointmentStatus `json:"status"`
	CalendarEventID string            `json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
}

type Role string

const (
	RoleCustomer  Role = "customer"
	RoleAssistant Role = "assistant"
)

// Turn is one message in a conversation's ordered history.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// ToolCall is a structured request from the driving model to execute one
// named operation. Args are the decoded JSON arguments.
type ToolCall struct {
	ID   string         `json:"id"`
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

// ToolResult is the structured outcome of one tool call. Content is a JSON
// payload; failures are encoded as {"error": reason} rather than Go errors so
// the model can react in natural language.
type ToolResult struct {
	CallID  string `json:"call_id"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Reply is the tagged model response: either a final text or one-or-more tool
// calls to execute, never both.
type Reply struct {
	Text      string     `json:"text,omitempty"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// IsToolCalls reports whether the reply requests tool execution.
func (r Reply) IsToolCalls() bool {
	return len(r.ToolCalls) > 0
}

// EventInput describes an external calendar event to create for a booking.
type EventInput struct {
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Timezone    string    `json:"timezone"`
}
