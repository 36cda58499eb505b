package handoff

import (
	"context"
	"fmt"

	"storybot/types"
)

// objectWriter is the subset of common.S3 the archive needs
type objectWriter interface {
	PutJSON(ctx context.Context, name string, v any) error
}

// S3Archive stores each selection as selections/<id>.json
type S3Archive struct {
	store objectWriter
}

// NewS3Archive creates an archive over store, normally a *common.S3
func NewS3Archive(store objectWriter) *S3Archive {
	return &S3Archive{store: store}
}

// ObjectName returns the object name a selection is archived under
func ObjectName(sel *types.Selection) string {
	return "selections/" + sel.ID + ".json"
}

func (a *S3Archive) Publish(ctx context.Context, sel *types.Selection) error {
	if err := a.store.PutJSON(ctx, ObjectName(sel), sel); err != nil {
		return fmt.Errorf("archive selection %s: %w", sel.ID, err)
	}
	return nil
}
