package traversal

import (
	"context"
	"fmt"
	"iter"
	"time"

	"storybot/types"
)

// CommentFetcher loads the comment forest of a post
type CommentFetcher interface {
	GetComments(ctx context.Context, postID string) ([]*types.Comment, error)
}

// Walker loads a post's comments from the feed and walks them breadth-first
type Walker struct {
	fetcher CommentFetcher
	timeout time.Duration
}

// NewWalker creates a Walker. timeout bounds each GetComments call; zero disables it.
func NewWalker(fetcher CommentFetcher, timeout time.Duration) *Walker {
	return &Walker{fetcher: fetcher, timeout: timeout}
}

func (w *Walker) load(ctx context.Context, postID string) ([]*types.Comment, error) {
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	roots, err := w.fetcher.GetComments(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("get comments for %s: %w", postID, err)
	}
	return roots, nil
}

// Walk fetches the comments of post and returns them in breadth-first order,
// visiting at most limit nodes.
func (w *Walker) Walk(ctx context.Context, post *types.Post, limit int) (iter.Seq[*types.Comment], error) {
	roots, err := w.load(ctx, post.ID)
	if err != nil {
		return nil, err
	}
	return Traverse(roots, limit), nil
}

// Search fetches the comments of post and runs a keyword query over them
func (w *Walker) Search(ctx context.Context, post *types.Post, q Query) (Matches, error) {
	roots, err := w.load(ctx, post.ID)
	if err != nil {
		return Matches{}, err
	}
	return FindMatches(roots, q), nil
}
