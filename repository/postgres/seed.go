package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

type defaultService struct {
	name        string
	description string
	price       float64
	duration    int
}

var dentistServices = []defaultService{
	{"Routine Cleaning", "Professional teeth cleaning and polishing", 120, 45},
	{"Dental Exam", "Comprehensive oral examination", 80, 30},
	{"Teeth Whitening", "Professional teeth whitening treatment", 350, 60},
	{"Filling", "Tooth filling for cavities", 200, 45},
	{"Root Canal", "Root canal treatment", 900, 90},
	{"Crown", "Dental crown placement", 1200, 60},
}

var mechanicServices = []defaultService{
	{"Oil Change", "Standard oil and filter change", 45, 30},
	{"Brake Inspection", "Complete brake system inspection", 50, 30},
	{"Brake Pad Replacement", "Front or rear brake pad replacement", 250, 60},
	{"Tire Rotation", "Rotate and balance all four tires", 40, 30},
	{"Engine Diagnostic", "Full engine diagnostic scan and analysis", 100, 45},
	{"Full Service", "Comprehensive vehicle service and inspection", 300, 120},
}

func defaultServicesFor(profession string) []defaultService {
	switch strings.ToUpper(strings.TrimSpace(profession)) {
	case "DENTIST":
		return dentistServices
	case "MECHANIC":
		return mechanicServices
	default:
		return nil
	}
}

// SeedDefaultServices inserts the starter catalog for a business that
// has no services yet. Businesses outside the known professions start
// with an empty catalog.
func (r *Repository) SeedDefaultServices(ctx context.Context, businessID, profession string) error {
	count, err := r.db.NewSelect().Model((*serviceRow)(nil)).
		Where("s.business_id = ?", businessID).
		Count(ctx)
	if err != nil {
		return fmt.Errorf("count services: %w", err)
	}
	if count > 0 {
		return nil
	}

	defaults := defaultServicesFor(profession)
	if len(defaults) == 0 {
		return nil
	}

	rows := make([]serviceRow, 0, len(defaults))
	for _, d := range defaults {
		rows = append(rows, serviceRow{
			ID:          uuid.NewString(),
			BusinessID:  businessID,
			Name:        d.name,
			Description: d.description,
			Price:       d.price,
			Duration:    d.duration,
			Active:      true,
		})
	}

	if _, err := r.db.NewInsert().Model(&rows).Exec(ctx); err != nil {
		return fmt.Errorf("seed services: %w", err)
	}
	return nil
}
