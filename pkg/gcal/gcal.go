package gcal

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"bookline/agent/contract"
)

// CredentialStore hands out and refreshes a business's stored Google
// OAuth tokens.
type CredentialStore interface {
	GetCalendarCredentials(ctx context.Context, businessID string) (*contract.CalendarCredentials, error)
	UpdateCalendarToken(ctx context.Context, businessID string, accessToken string, expiry time.Time) error
}

type Config struct {
	ClientID     string `envconfig:"CLIENT_ID" split_words:"true" required:"true"`
	ClientSecret string `envconfig:"CLIENT_SECRET" split_words:"true" required:"true"`
	RedirectURL  string `envconfig:"REDIRECT_URL" split_words:"true"`
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ClientID) == "" || strings.TrimSpace(c.ClientSecret) == "" {
		return fmt.Errorf("%w: google oauth client credentials are required", contract.ErrValidation)
	}
	return nil
}

// Gateway talks to each business's primary Google Calendar using its
// stored OAuth tokens.
type Gateway struct {
	oauth *oauth2.Config
	creds CredentialStore
}

var _ contract.CalendarGateway = (*Gateway)(nil)

func NewGateway(cfg Config, creds CredentialStore) (*Gateway, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if creds == nil {
		return nil, errors.New("credential store is required")
	}

	return &Gateway{
		oauth: &oauth2.Config{
			ClientID:     strings.TrimSpace(cfg.ClientID),
			ClientSecret: strings.TrimSpace(cfg.ClientSecret),
			RedirectURL:  strings.TrimSpace(cfg.RedirectURL),
			Endpoint:     google.Endpoint,
			Scopes:       []string{calendar.CalendarScope},
		},
		creds: creds,
	}, nil
}

func (g *Gateway) ListBusy(ctx context.Context, businessID string, from, to time.Time) ([]contract.BusyInterval, error) {
	svc, err := g.service(ctx, businessID)
	if err != nil {
		return nil, err
	}

	resp, err := svc.Freebusy.Query(&calendar.FreeBusyRequest{
		TimeMin: from.Format(time.RFC3339),
		TimeMax: to.Format(time.RFC3339),
		Items:   []*calendar.FreeBusyRequestItem{{Id: "primary"}},
	}).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("%w: freebusy query: %v", contract.ErrCalendarUnavailable, err)
	}

	primary, ok := resp.Calendars["primary"]
	if !ok {
		return nil, nil
	}

	busy := make([]contract.BusyInterval, 0, len(primary.Busy))
	for _, period := range primary.Busy {
		start, err := time.Parse(time.RFC3339, period.Start)
		if err != nil {
			return nil, fmt.Errorf("%w: bad busy start %q: %v", contract.ErrCalendarUnavailable, period.Start, err)
		}
		end, err := time.Parse(time.RFC3339, period.End)
		if err != nil {
			return nil, fmt.Errorf("%w: bad busy end %q: %v", contract.ErrCalendarUnavailable, period.End, err)
		}
		busy = append(busy, contract.BusyInterval{Start: start, End: end})
	}
	return busy, nil
}

func (g *Gateway) CreateEvent(ctx context.Context, businessID string, ev contract.EventInput) (string, error) {
	svc, err := g.service(ctx, businessID)
	if err != nil {
		return "", err
	}

	created, err := svc.Events.Insert("primary", &calendar.Event{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start: &calendar.EventDateTime{
			DateTime: ev.Start.Format(time.RFC3339),
			TimeZone: ev.Timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: ev.End.Format(time.RFC3339),
			TimeZone: ev.Timezone,
		},
	}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("%w: insert event: %v", contract.ErrCalendarUnavailable, err)
	}
	return created.Id, nil
}

// DeleteEvent removes an event from the business calendar. An event
// that is already gone is not an error.
func (g *Gateway) DeleteEvent(ctx context.Context, businessID, eventID string) error {
	svc, err := g.service(ctx, businessID)
	if err != nil {
		return err
	}

	err = svc.Events.Delete("primary", eventID).Context(ctx).Do()
	if err != nil {
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) && (apiErr.Code == http.StatusNotFound || apiErr.Code == http.StatusGone) {
			return nil
		}
		return fmt.Errorf("%w: delete event: %v", contract.ErrCalendarUnavailable, err)
	}
	return nil
}

func (g *Gateway) service(ctx context.Context, businessID string) (*calendar.Service, error) {
	creds, err := g.creds.GetCalendarCredentials(ctx, businessID)
	if err != nil {
		return nil, fmt.Errorf("%w: google calendar not connected", contract.ErrNotConfigured)
	}
	if strings.TrimSpace(creds.RefreshToken) == "" {
		return nil, fmt.Errorf("%w: google refresh token missing", contract.ErrNotConfigured)
	}

	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		Expiry:       creds.Expiry,
	}

	src := &persistingTokenSource{
		wrapped:    g.oauth.TokenSource(ctx, token),
		creds:      g.creds,
		businessID: businessID,
		last:       token.AccessToken,
	}

	svc, err := calendar.NewService(ctx, option.WithTokenSource(src))
	if err != nil {
		return nil, fmt.Errorf("%w: build calendar client: %v", contract.ErrCalendarUnavailable, err)
	}
	return svc, nil
}

// persistingTokenSource writes refreshed access tokens back to storage
// so the next request does not have to refresh again.
type persistingTokenSource struct {
	wrapped    oauth2.TokenSource
	creds      CredentialStore
	businessID string

	mu   sync.Mutex
	last string
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := p.wrapped.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	changed := token.AccessToken != p.last
	if changed {
		p.last = token.AccessToken
	}
	p.mu.Unlock()

	if changed {
		if err := p.creds.UpdateCalendarToken(context.Background(), p.businessID, token.AccessToken, token.Expiry); err != nil {
			log.Warn().Err(err).Str("business_id", p.businessID).Msg("persist refreshed google token failed")
		}
	}
	return token, nil
}
