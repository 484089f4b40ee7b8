package app

import (
	"context"
	"fmt"

	"railsnew/internal/runtime"
	pkgruntime "railsnew/pkg/runtime"
)

// RuntimeFactory creates image stores for a container engine. This decouples
// the facade from the concrete Docker client.
type RuntimeFactory struct {
	newDocker func(ctx context.Context) (pkgruntime.ImageStore, error)
}

// NewRuntimeFactory creates a new instance of RuntimeFactory.
func NewRuntimeFactory() *RuntimeFactory {
	return &RuntimeFactory{
		newDocker: func(ctx context.Context) (pkgruntime.ImageStore, error) {
			return runtime.NewDockerRuntime(ctx)
		},
	}
}

// GetImageStore returns the image store for engine. Podman is reached through
// its Docker-compatible API socket (DOCKER_HOST).
func (f *RuntimeFactory) GetImageStore(ctx context.Context, engine string) (pkgruntime.ImageStore, error) {
	switch engine {
	case "docker", "podman":
		store, err := f.newDocker(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to create %s image store: %w", engine, err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported container engine: %s", engine)
	}
}
