package postgres

import (
	"time"

	"github.com/uptrace/bun"

	"bookline/agent/contract"
)

type businessRow struct {
	bun.BaseModel `bun:"table:businesses,alias:b"`

	ID                 string                 `bun:"id,pk"`
	BusinessName       string                 `bun:"business_name,notnull"`
	Profession         string                 `bun:"profession,notnull"`
	Timezone           string                 `bun:"timezone,notnull"`
	Hours              contract.WeekHours     `bun:"hours,type:jsonb"`
	AIProvider         contract.ModelProvider `bun:"ai_provider,notnull"`
	GoogleAccessToken  string                 `bun:"google_access_token,nullzero"`
	GoogleRefreshToken string                 `bun:"google_refresh_token,nullzero"`
	GoogleTokenExpiry  time.Time              `bun:"google_token_expiry,nullzero"`
	CreatedAt          time.Time              `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt          time.Time              `bun:"updated_at,notnull,default:current_timestamp"`
}

func (r *businessRow) profile() *contract.BusinessProfile {
	return &contract.BusinessProfile{
		BusinessID:   r.ID,
		BusinessName: r.BusinessName,
		Profession:   r.Profession,
		Timezone:     r.Timezone,
		Hours:        r.Hours,
		AIProvider:   r.AIProvider,
	}
}

type channelRow struct {
	bun.BaseModel `bun:"table:channels,alias:ch"`

	BusinessID        string                     `bun:"business_id,pk"`
	Provider          contract.MessagingProvider `bun:"provider,notnull"`
	PhoneNumberID     string                     `bun:"phone_number_id,nullzero"`
	MetaAccessToken   string                     `bun:"meta_access_token,nullzero"`
	TwilioAccountSID  string                     `bun:"twilio_account_sid,nullzero"`
	TwilioAuthToken   string                     `bun:"twilio_auth_token,nullzero"`
	TwilioPhoneNumber string                     `bun:"twilio_phone_number,nullzero"`
	Active            bool                       `bun:"active,notnull,default:true"`
	CreatedAt         time.Time                  `bun:"created_at,notnull,default:current_timestamp"`
}

func (r *channelRow) channel() *contract.ChannelConfig {
	return &contract.ChannelConfig{
		BusinessID:        r.BusinessID,
		Provider:          r.Provider,
		PhoneNumberID:     r.PhoneNumberID,
		MetaAccessToken:   r.MetaAccessToken,
		TwilioAccountSID:  r.TwilioAccountSID,
		TwilioAuthToken:   r.TwilioAuthToken,
		TwilioPhoneNumber: r.TwilioPhoneNumber,
		Active:            r.Active,
	}
}

type serviceRow struct {
	bun.BaseModel `bun:"table:services,alias:s"`

	ID          string    `bun:"id,pk"`
	BusinessID  string    `bun:"business_id,notnull"`
	Name        string    `bun:"name,notnull"`
	Description string    `bun:"description,nullzero"`
	Price       float64   `bun:"price,notnull"`
	Duration    int       `bun:"duration,notnull"`
	Active      bool      `bun:"active,notnull,default:true"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

func (r *serviceRow) service() contract.Service {
	return contract.Service{
		ID:          r.ID,
		BusinessID:  r.BusinessID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Duration:    r.Duration,
		Active:      r.Active,
	}
}

type appointmentRow struct {
	bun.BaseModel `bun:"table:appointments,alias:a"`

	ID              string                     `bun:"id,pk"`
	BusinessID      string                     `bun:"business_id,notnull"`
	ServiceID       string                     `bun:"service_id,notnull"`
	CustomerName    string                     `bun:"customer_name,notnull"`
	CustomerPhone   string                     `bun:"customer_phone,notnull"`
	StartTime       time.Time                  `bun:"start_time,notnull"`
	EndTime         time.Time                  `bun:"end_time,notnull"`
	Status          contract.AppointmentStatus `bun:"status,notnull"`
	CalendarEventID string                     `bun:"calendar_event_id,nullzero"`
	CreatedAt       time.Time                  `bun:"created_at,notnull,default:current_timestamp"`
}

func (r *appointmentRow) appointment() *contract.Appointment {
	return &contract.Appointment{
		ID:              r.ID,
		BusinessID:      r.BusinessID,
		ServiceID:       r.ServiceID,
		CustomerName:    r.CustomerName,
		CustomerPhone:   r.CustomerPhone,
		StartTime:       r.StartTime,
		EndTime:         r.EndTime,
		Status:          r.Status,
		CalendarEventID: r.CalendarEventID,
		CreatedAt:       r.CreatedAt,
	}
}

func appointmentToRow(a *contract.Appointment) *appointmentRow {
	return &appointmentRow{
		ID:              a.ID,
		BusinessID:      a.BusinessID,
		ServiceID:       a.ServiceID,
		CustomerName:    a.CustomerName,
		CustomerPhone:   a.CustomerPhone,
		StartTime:       a.StartTime,
		EndTime:         a.EndTime,
		Status:          a.Status,
		CalendarEventID: a.CalendarEventID,
		CreatedAt:       a.CreatedAt,
	}
}
