// Package store provides database access to persisted objects.
package store

import (
	"context"
	"time"

	"github.com/lithammer/shortuuid/v4"

	"github.com/hrygo/botweaver/internal/profile"
)

// Store provides database access to all persisted objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Close() error {
	return s.driver.Close()
}

// Migrate creates or upgrades the schema.
func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

// CreateBookmark persists one bookmark, filling UID and creation timestamp
// when absent.
func (s *Store) CreateBookmark(ctx context.Context, create *Bookmark) (*Bookmark, error) {
	if create.UID == "" {
		create.UID = shortuuid.New()
	}
	if create.CreatedTs == 0 {
		create.CreatedTs = time.Now().Unix()
	}
	return s.driver.CreateBookmark(ctx, create)
}

func (s *Store) ListBookmarks(ctx context.Context, find *FindBookmark) ([]*Bookmark, error) {
	return s.driver.ListBookmarks(ctx, find)
}

func (s *Store) DeleteBookmark(ctx context.Context, delete *DeleteBookmark) error {
	return s.driver.DeleteBookmark(ctx, delete)
}
