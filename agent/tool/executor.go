package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"bookline/agent/contract"
	"bookline/agent/schedule"
)

// Executor runs tool calls for one business. Every failure is folded into a
// structured {"error": ...} result so the orchestration loop stays total; the
// model decides how to phrase problems to the customer.
type Executor struct {
	repo     contract.Repository
	calendar contract.CalendarGateway
	profile  *contract.BusinessProfile
	loc      *time.Location

	newID func() string
	now   func() time.Time
}

func NewExecutor(
	repo contract.Repository,
	calendar contract.CalendarGateway,
	profile *contract.BusinessProfile,
	loc *time.Location,
) *Executor {
	if loc == nil {
		loc = time.UTC
	}
	return &Executor{
		repo:     repo,
		calendar: calendar,
		profile:  profile,
		loc:      loc,
		newID:    uuid.NewString,
		now:      time.Now,
	}
}

// Execute dispatches one tool call. It never returns a Go error.
func (e *Executor) Execute(ctx context.Context, call contract.ToolCall) contract.ToolResult {
	var payload any
	switch call.Name {
	case ToolGetServices:
		payload = e.getServices(ctx)
	case ToolGetAvailability:
		payload = e.getAvailability(ctx, call.Args)
	case ToolBookAppointment:
		payload = e.bookAppointment(ctx, call.Args)
	case ToolCancelAppointment:
		payload = e.cancelAppointment(ctx, call.Args)
	case ToolGetBusinessHours:
		payload = e.getBusinessHours()
	default:
		payload = errorPayload(fmt.Sprintf("unknown tool: %s", call.Name))
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		log.Error().Err(err).Str("tool", call.Name).Msg("marshal tool payload")
		raw = []byte(`{"error":"internal error"}`)
	}
	return contract.ToolResult{
		CallID:  call.ID,
		Name:    call.Name,
		Content: string(raw),
	}
}

type serviceView struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description,omitempty"`
	Price       float64 `json:"price"`
	Duration    int     `json:"duration"`
}

func (e *Executor) getServices(ctx context.Context) any {
	services, err := e.repo.ListActiveServices(ctx, e.profile.BusinessID)
	if err != nil {
		log.Error().Err(err).Str("business_id", e.profile.BusinessID).Msg("list services")
		return errorPayload("could not load services")
	}
	views := make([]serviceView, 0, len(services))
	for _, s := range services {
		views = append(views, serviceView{
			ID:          s.ID,
			Name:        s.Name,
			Description: s.Description,
			Price:       s.Price,
			Duration:    s.Duration,
		})
	}
	return views
}

type slotView struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

func (e *Executor) getAvailability(ctx context.Context, args map[string]any) any {
	date := stringArg(args, "date")
	serviceID := stringArg(args, "service_id")
	if date == "" || serviceID == "" {
		return errorPayload("date and service_id are required")
	}

	svc, err := e.repo.GetService(ctx, e.profile.BusinessID, serviceID)
	if err != nil {
		return errorPayload("Service not found")
	}

	day, err := time.ParseInLocation("2006-01-02", date, e.loc)
	if err != nil {
		return errorPayload(fmt.Sprintf("invalid date: %s", date))
	}

	busy, err := e.calendar.ListBusy(ctx, e.profile.BusinessID, day, day.AddDate(0, 0, 1))
	if err != nil {
		log.Warn().Err(err).Str("business_id", e.profile.BusinessID).Str("date", date).Msg("calendar busy lookup failed")
		return errorPayload("calendar is temporarily unavailable")
	}

	slots, err := schedule.FreeSlots(
		date,
		e.loc,
		e.profile.Hours.ForWeekday(day.Weekday()),
		busy,
		svc.Duration,
		schedule.DefaultGranularityMinutes,
	)
	if err != nil {
		return errorPayload(err.Error())
	}

	if len(slots) > MaxSlotsReturned {
		slots = slots[:MaxSlotsReturned]
	}
	views := make([]slotView, 0, len(slots))
	for _, s := range slots {
		views = append(views, slotView{
			Start: s.Start.Format(time.RFC3339),
			End:   s.End.Format(time.RFC3339),
		})
	}
	return views
}

type bookingView struct {
	Success       bool    `json:"success"`
	AppointmentID string  `json:"appointment_id"`
	Service       string  `json:"service"`
	StartTime     string  `json:"start_time"`
	EndTime       string  `json:"end_time"`
	Price         float64 `json:"price"`
}

func (e *Executor) bookAppointment(ctx context.Context, args map[string]any) any {
	serviceID := stringArg(args, "service_id")
	customerName := stringArg(args, "customer_name")
	customerPhone := stringArg(args, "customer_phone")
	datetime := stringArg(args, "datetime")
	if serviceID == "" || customerName == "" || customerPhone == "" || datetime == "" {
		return errorPayload("service_id, customer_name, customer_phone and datetime are required")
	}

	svc, err := e.repo.GetService(ctx, e.profile.BusinessID, serviceID)
	if err != nil {
		return errorPayload("Service not found")
	}

	start, err := parseDatetime(datetime, e.loc)
	if err != nil {
		return errorPayload(fmt.Sprintf("invalid datetime: %s", datetime))
	}
	end := start.Add(time.Duration(svc.Duration) * time.Minute)

	// The external event is the point of truth: if it cannot be created the
	// booking is aborted and nothing is persisted locally.
	eventID, err := e.calendar.CreateEvent(ctx, e.profile.BusinessID, contract.EventInput{
		Summary: fmt.Sprintf("%s - %s", svc.Name, customerName),
		Description: fmt.Sprintf("Service: %s\nCustomer: %s\nPhone: %s\nPrice: $%.0f",
			svc.Name, customerName, customerPhone, svc.Price),
		Start:    start,
		End:      end,
		Timezone: e.profile.Timezone,
	})
	if err != nil {
		log.Warn().Err(err).Str("business_id", e.profile.BusinessID).Msg("calendar event creation failed, booking aborted")
		return errorPayload("could not reach the calendar, the appointment was not booked")
	}

	appt := &contract.Appointment{
		ID:              e.newID(),
		BusinessID:      e.profile.BusinessID,
		ServiceID:       svc.ID,
		CustomerName:    customerName,
		CustomerPhone:   customerPhone,
		StartTime:       start,
		EndTime:         end,
		Status:          contract.StatusScheduled,
		CalendarEventID: eventID,
		CreatedAt:       e.now().UTC(),
	}
	if err := e.repo.CreateAppointment(ctx, appt); err != nil {
		log.Error().Err(err).Str("event_id", eventID).Msg("appointment persist failed after event creation")
		return errorPayload("the booking could not be saved, please try again")
	}

	return bookingView{
		Success:       true,
		AppointmentID: appt.ID,
		Service:       svc.Name,
		StartTime:     start.Format(time.RFC3339),
		EndTime:       end.Format(time.RFC3339),
		Price:         svc.Price,
	}
}

type cancelView struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (e *Executor) cancelAppointment(ctx context.Context, args map[string]any) any {
	appointmentID := stringArg(args, "appointment_id")
	if appointmentID == "" {
		return errorPayload("appointment_id is required")
	}

	appt, err := e.repo.GetAppointment(ctx, e.profile.BusinessID, appointmentID)
	if err != nil {
		return errorPayload("Appointment not found")
	}

	// Best effort: an event already gone from the calendar is not a failure.
	if appt.CalendarEventID != "" {
		if err := e.calendar.DeleteEvent(ctx, e.profile.BusinessID, appt.CalendarEventID); err != nil {
			log.Warn().Err(err).Str("event_id", appt.CalendarEventID).Msg("calendar event delete failed")
		}
	}

	if err := e.repo.UpdateAppointmentStatus(ctx, e.profile.BusinessID, appointmentID, contract.StatusCancelled); err != nil {
		log.Error().Err(err).Str("appointment_id", appointmentID).Msg("cancel status update failed")
		return errorPayload("the cancellation could not be saved, please try again")
	}

	return cancelView{Success: true, Message: "Appointment cancelled"}
}

func (e *Executor) getBusinessHours() any {
	return e.profile.Hours
}

func errorPayload(reason string) map[string]string {
	return map[string]string{"error": reason}
}

func stringArg(args map[string]any, key string) string {
	if args == nil {
		return ""
	}
	v, ok := args[key].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// parseDatetime accepts RFC 3339 with or without an offset; a bare local
// time is interpreted in the business's timezone.
func parseDatetime(value string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02T15:04:05", value, loc)
}
