package runtime

import (
	"context"
	"time"
)

// Image describes a locally cached image.
type Image struct {
	ID      string
	Tags    []string
	Size    int64
	Created time.Time
}

// ImageStore defines the contract for inspecting the engine's image cache.
type ImageStore interface {
	ListImages(ctx context.Context, prefix string) ([]Image, error)
	RemoveImage(ctx context.Context, ref string) error
}
