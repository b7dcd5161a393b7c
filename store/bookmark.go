package store

// Bookmark is one saved URL summary, persisted after a successful content or
// video summarization when bookmarking is enabled.
type Bookmark struct {
	ID          int32
	UID         string
	UserID      string
	URL         string
	Title       string
	Summary     string
	SummaryMode string
	Tags        string // comma-separated
	CreatedTs   int64
}

// FindBookmark filters bookmark listings. Nil fields match everything.
type FindBookmark struct {
	UID    *string
	UserID *string
	URL    *string
	Limit  *int
}

// DeleteBookmark identifies a bookmark to remove.
type DeleteBookmark struct {
	UID string
}
