package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"

	"bookline/agent/contract"
)

type Config struct {
	DSN          string        `envconfig:"DSN" split_words:"true" required:"true"`
	MaxOpenConns int           `envconfig:"MAX_OPEN_CONNS" split_words:"true" default:"10"`
	ConnLifetime time.Duration `envconfig:"CONN_LIFETIME" split_words:"true" default:"30m"`
}

// Repository is the Postgres-backed store for businesses, channels,
// services, appointments, and calendar credentials.
type Repository struct {
	db *bun.DB
}

var _ contract.Repository = (*Repository)(nil)

func New(cfg Config) (*Repository, error) {
	dsn := strings.TrimSpace(cfg.DSN)
	if dsn == "" {
		return nil, errors.New("postgres dsn is required")
	}

	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	if cfg.MaxOpenConns > 0 {
		sqldb.SetMaxOpenConns(cfg.MaxOpenConns)
		sqldb.SetMaxIdleConns(cfg.MaxOpenConns)
	}
	if cfg.ConnLifetime > 0 {
		sqldb.SetConnMaxLifetime(cfg.ConnLifetime)
	}

	return &Repository{db: bun.NewDB(sqldb, pgdialect.New())}, nil
}

// NewWithDB wraps an existing bun handle, used by tests.
func NewWithDB(db *bun.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *Repository) Close() error {
	return r.db.Close()
}

func (r *Repository) GetProfile(ctx context.Context, businessID string) (*contract.BusinessProfile, error) {
	row := new(businessRow)
	err := r.db.NewSelect().Model(row).Where("b.id = ?", businessID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: business %s", contract.ErrNotConfigured, businessID)
	}
	if err != nil {
		return nil, fmt.Errorf("select business: %w", err)
	}
	return row.profile(), nil
}

func (r *Repository) GetChannel(ctx context.Context, businessID string) (*contract.ChannelConfig, error) {
	row := new(channelRow)
	err := r.db.NewSelect().Model(row).Where("ch.business_id = ?", businessID).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no channel for business %s", contract.ErrNotConfigured, businessID)
	}
	if err != nil {
		return nil, fmt.Errorf("select channel: %w", err)
	}
	return row.channel(), nil
}

// FindChannelByPhoneNumberID resolves a Meta webhook delivery to its
// business.
func (r *Repository) FindChannelByPhoneNumberID(ctx context.Context, phoneNumberID string) (*contract.ChannelConfig, error) {
	row := new(channelRow)
	err := r.db.NewSelect().Model(row).
		Where("ch.provider = ?", contract.MessagingMeta).
		Where("ch.phone_number_id = ?", phoneNumberID).
		Where("ch.active").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no active meta channel for phone number id %s", contract.ErrNotConfigured, phoneNumberID)
	}
	if err != nil {
		return nil, fmt.Errorf("select channel by phone number id: %w", err)
	}
	return row.channel(), nil
}

// FindChannelByTwilioNumber resolves a Twilio webhook delivery to its
// business.
func (r *Repository) FindChannelByTwilioNumber(ctx context.Context, twilioNumber string) (*contract.ChannelConfig, error) {
	row := new(channelRow)
	err := r.db.NewSelect().Model(row).
		Where("ch.provider = ?", contract.MessagingTwilio).
		Where("ch.twilio_phone_number = ?", twilioNumber).
		Where("ch.active").
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: no active twilio channel for number %s", contract.ErrNotConfigured, twilioNumber)
	}
	if err != nil {
		return nil, fmt.Errorf("select channel by twilio number: %w", err)
	}
	return row.channel(), nil
}

func (r *Repository) ListActiveServices(ctx context.Context, businessID string) ([]contract.Service, error) {
	var rows []serviceRow
	err := r.db.NewSelect().Model(&rows).
		Where("s.business_id = ?", businessID).
		Where("s.active").
		Order("s.name ASC").
		Scan(ctx)
	if err != nil {
		return nil, fmt.Errorf("select services: %w", err)
	}

	services := make([]contract.Service, 0, len(rows))
	for i := range rows {
		services = append(services, rows[i].service())
	}
	return services, nil
}

func (r *Repository) GetService(ctx context.Context, businessID, serviceID string) (*contract.Service, error) {
	row := new(serviceRow)
	err := r.db.NewSelect().Model(row).
		Where("s.business_id = ?", businessID).
		Where("s.id = ?", serviceID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contract.ErrServiceNotFound, serviceID)
	}
	if err != nil {
		return nil, fmt.Errorf("select service: %w", err)
	}
	svc := row.service()
	return &svc, nil
}

func (r *Repository) CreateAppointment(ctx context.Context, appt *contract.Appointment) error {
	if _, err := r.db.NewInsert().Model(appointmentToRow(appt)).Exec(ctx); err != nil {
		return fmt.Errorf("insert appointment: %w", err)
	}
	return nil
}

func (r *Repository) GetAppointment(ctx context.Context, businessID, appointmentID string) (*contract.Appointment, error) {
	row := new(appointmentRow)
	err := r.db.NewSelect().Model(row).
		Where("a.business_id = ?", businessID).
		Where("a.id = ?", appointmentID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", contract.ErrAppointmentNotFound, appointmentID)
	}
	if err != nil {
		return nil, fmt.Errorf("select appointment: %w", err)
	}
	return row.appointment(), nil
}

func (r *Repository) UpdateAppointmentStatus(ctx context.Context, businessID, appointmentID string, status contract.AppointmentStatus) error {
	res, err := r.db.NewUpdate().Model((*appointmentRow)(nil)).
		Set("status = ?", status).
		Where("business_id = ?", businessID).
		Where("id = ?", appointmentID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update appointment status: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("%w: %s", contract.ErrAppointmentNotFound, appointmentID)
	}
	return nil
}

// ListAppointments returns a business's appointments, optionally
// filtered by status or restricted to upcoming ones.
func (r *Repository) ListAppointments(ctx context.Context, businessID string, status contract.AppointmentStatus, upcomingOnly bool) ([]contract.Appointment, error) {
	var rows []appointmentRow
	q := r.db.NewSelect().Model(&rows).
		Where("a.business_id = ?", businessID).
		Order("a.start_time ASC")
	if status != "" {
		q = q.Where("a.status = ?", status)
	}
	if upcomingOnly {
		q = q.Where("a.start_time >= now()")
	}
	if err := q.Scan(ctx); err != nil {
		return nil, fmt.Errorf("select appointments: %w", err)
	}

	appts := make([]contract.Appointment, 0, len(rows))
	for i := range rows {
		appts = append(appts, *rows[i].appointment())
	}
	return appts, nil
}

func (r *Repository) GetCalendarCredentials(ctx context.Context, businessID string) (*contract.CalendarCredentials, error) {
	row := new(businessRow)
	err := r.db.NewSelect().Model(row).
		Column("id", "google_access_token", "google_refresh_token", "google_token_expiry").
		Where("b.id = ?", businessID).
		Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: business %s", contract.ErrNotConfigured, businessID)
	}
	if err != nil {
		return nil, fmt.Errorf("select calendar credentials: %w", err)
	}
	if row.GoogleRefreshToken == "" {
		return nil, fmt.Errorf("%w: google calendar not connected for business %s", contract.ErrNotConfigured, businessID)
	}

	return &contract.CalendarCredentials{
		BusinessID:   row.ID,
		AccessToken:  row.GoogleAccessToken,
		RefreshToken: row.GoogleRefreshToken,
		Expiry:       row.GoogleTokenExpiry,
	}, nil
}

func (r *Repository) UpdateCalendarToken(ctx context.Context, businessID string, accessToken string, expiry time.Time) error {
	_, err := r.db.NewUpdate().Model((*businessRow)(nil)).
		Set("google_access_token = ?", accessToken).
		Set("google_token_expiry = ?", expiry).
		Set("updated_at = now()").
		Where("id = ?", businessID).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("update calendar token: %w", err)
	}
	return nil
}
