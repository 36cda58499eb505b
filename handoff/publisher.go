// Package handoff delivers accepted selections to downstream consumers and
// receives run requests from them.
package handoff

import (
	"context"
	"errors"
	"log"

	"storybot/types"
)

// Publisher hands a Selection to whatever narrates or stores it
type Publisher interface {
	Publish(ctx context.Context, sel *types.Selection) error
}

// PublisherFunc adapts a function to Publisher
type PublisherFunc func(ctx context.Context, sel *types.Selection) error

func (f PublisherFunc) Publish(ctx context.Context, sel *types.Selection) error {
	return f(ctx, sel)
}

// Multi publishes to every publisher in order and joins their errors
type Multi []Publisher

func (m Multi) Publish(ctx context.Context, sel *types.Selection) error {
	var errs []error
	for _, p := range m {
		if err := p.Publish(ctx, sel); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Log writes a one-line summary of each selection
type Log struct{}

func (Log) Publish(_ context.Context, sel *types.Selection) error {
	item := sel.PostID
	if sel.CommentID != "" {
		item += "/" + sel.CommentID
	}
	log.Printf("📤 Selection %s (%s %s): %q, %d segments", sel.ID, sel.Mode, item, sel.Title, len(sel.Segments))
	return nil
}
