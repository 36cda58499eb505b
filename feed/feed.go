// Package feed reads candidate posts and their comments from upstream
// platforms.
package feed

import (
	"context"
	"errors"

	"storybot/types"
)

var (
	// ErrNetwork marks transport failures and upstream 5xx responses
	ErrNetwork = errors.New("network error")
	// ErrRateLimited marks upstream throttling
	ErrRateLimited = errors.New("rate limited")
	// ErrNotFound marks a post that does not exist or is not visible
	ErrNotFound = errors.New("not found")
)

// IsTransient reports whether err may succeed when retried
func IsTransient(err error) bool {
	return errors.Is(err, ErrNetwork) || errors.Is(err, ErrRateLimited)
}

// Listing selects one page of a listing pool
type Listing struct {
	Source string // subreddit, or several joined with '+'
	Sort   string // hot, new, top, rising
	Window string // time window for top: day, week, month, year, all
	Cursor string // opaque upstream cursor, empty for the first page
	Limit  int
}

// Page is one page of posts and the cursor of the next page
type Page struct {
	Posts []*types.Post
	Next  string
}

// Feed is the upstream capability the selection engine reads from.
// Implementations return errors wrapping ErrNetwork, ErrRateLimited or ErrNotFound.
type Feed interface {
	ListPosts(ctx context.Context, l Listing) (Page, error)
	Search(ctx context.Context, source, query string, limit int) ([]*types.Post, error)
	GetPost(ctx context.Context, id string) (*types.Post, error)
	GetComments(ctx context.Context, postID string) ([]*types.Comment, error)
}
