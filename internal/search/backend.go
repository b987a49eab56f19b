// file: internal/search/backend.go
// version: 1.0.0
// guid: 2b8f0d63-4e17-4a95-bc20-7d5a9e31f608

package search

import (
	"context"

	"github.com/jdfalk/matchwell/internal/database"
)

// Backend runs the expensive fresh query. The ranking algorithm itself lives
// behind this interface; the dispatcher only cares about page shape.
type Backend interface {
	FreshQuery(ctx context.Context, personID, limit, offset int) ([]Profile, error)
}

// StoreBackend serves fresh queries from the database store, excluding the
// searcher and anyone they have skipped.
type StoreBackend struct {
	store database.Store
}

// NewStoreBackend creates a store-backed search backend.
func NewStoreBackend(store database.Store) *StoreBackend {
	return &StoreBackend{store: store}
}

// FreshQuery lists active, onboarded, unbanned profiles for the searcher.
func (b *StoreBackend) FreshQuery(ctx context.Context, personID, limit, offset int) ([]Profile, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	persons, err := b.store.ListActiveProfiles(personID, limit, offset)
	if err != nil {
		return nil, err
	}
	profiles := make([]Profile, 0, len(persons))
	for _, p := range persons {
		profiles = append(profiles, Profile{
			PersonUUID: p.UUID,
			Name:       p.Name,
			AboutMe:    p.AboutMe,
			Gender:     p.Gender,
			PhotoUUID:  p.PhotoUUID,
		})
	}
	return profiles, nil
}
