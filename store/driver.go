package store

import (
	"context"
	"database/sql"
)

// Driver is an interface for store driver.
// It contains all methods that a store database driver should implement.
type Driver interface {
	GetDB() *sql.DB
	Close() error

	// Migrate creates or upgrades the schema.
	Migrate(ctx context.Context) error

	// Bookmark model related methods.
	CreateBookmark(ctx context.Context, create *Bookmark) (*Bookmark, error)
	ListBookmarks(ctx context.Context, find *FindBookmark) ([]*Bookmark, error)
	DeleteBookmark(ctx context.Context, delete *DeleteBookmark) error
}
