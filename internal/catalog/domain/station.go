package catalog

import (
	"context"
	"errors"
	"time"
)

// Station represents a site in the entity catalog.
type Station struct {
	ID        string
	Code      string
	Name      string
	Region    string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Validate checks station invariants.
func (s Station) Validate() error {
	if s.ID == "" {
		return errors.New("station: empty id")
	}
	if s.Name == "" {
		return errors.New("station: empty name")
	}
	return nil
}

// StationRepository manages station persistence.
type StationRepository interface {
	Get(ctx context.Context, id string) (*Station, error)
	Save(ctx context.Context, station *Station) error
}
