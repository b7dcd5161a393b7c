package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/hrygo/botweaver/store"
)

func (d *DB) CreateBookmark(ctx context.Context, create *store.Bookmark) (*store.Bookmark, error) {
	stmt := `INSERT INTO bookmark (uid, user_id, url, title, summary, summary_mode, tags, created_ts)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`

	if err := d.db.QueryRowContext(ctx, stmt,
		create.UID, create.UserID, create.URL, create.Title,
		create.Summary, create.SummaryMode, create.Tags, create.CreatedTs,
	).Scan(&create.ID); err != nil {
		return nil, fmt.Errorf("failed to create bookmark: %w", err)
	}

	return create, nil
}

func (d *DB) ListBookmarks(ctx context.Context, find *store.FindBookmark) ([]*store.Bookmark, error) {
	where, args := []string{"1 = 1"}, []any{}

	if v := find.UID; v != nil {
		where, args = append(where, fmt.Sprintf("uid = $%d", len(args)+1)), append(args, *v)
	}
	if v := find.UserID; v != nil {
		where, args = append(where, fmt.Sprintf("user_id = $%d", len(args)+1)), append(args, *v)
	}
	if v := find.URL; v != nil {
		where, args = append(where, fmt.Sprintf("url = $%d", len(args)+1)), append(args, *v)
	}

	query := `
		SELECT id, uid, user_id, url, title, summary, summary_mode, tags, created_ts
		FROM bookmark
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC`
	if find.Limit != nil {
		query = fmt.Sprintf("%s LIMIT %d", query, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list bookmarks: %w", err)
	}
	defer rows.Close()

	var bookmarks []*store.Bookmark
	for rows.Next() {
		var bookmark store.Bookmark
		if err := rows.Scan(
			&bookmark.ID, &bookmark.UID, &bookmark.UserID, &bookmark.URL,
			&bookmark.Title, &bookmark.Summary, &bookmark.SummaryMode,
			&bookmark.Tags, &bookmark.CreatedTs,
		); err != nil {
			return nil, fmt.Errorf("failed to scan bookmark: %w", err)
		}
		bookmarks = append(bookmarks, &bookmark)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate bookmarks: %w", err)
	}

	return bookmarks, nil
}

func (d *DB) DeleteBookmark(ctx context.Context, delete *store.DeleteBookmark) error {
	if _, err := d.db.ExecContext(ctx, "DELETE FROM bookmark WHERE uid = $1", delete.UID); err != nil {
		return fmt.Errorf("failed to delete bookmark: %w", err)
	}
	return nil
}
