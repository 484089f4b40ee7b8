package runtime

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/docker/docker/api/types/filters"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"

	"railsnew/pkg/runtime"
)

// imageAPI is the subset of the Docker client used by DockerRuntime.
type imageAPI interface {
	ImageList(ctx context.Context, options image.ListOptions) ([]image.Summary, error)
	ImageRemove(ctx context.Context, imageID string, options image.RemoveOptions) ([]image.DeleteResponse, error)
}

// DockerRuntime implements the ImageStore interface using the Docker Engine API.
type DockerRuntime struct {
	client imageAPI
}

// NewDockerRuntime creates a new DockerRuntime instance using client.FromEnv.
func NewDockerRuntime(ctx context.Context) (*DockerRuntime, error) {
	dockerClient, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, fmt.Errorf("failed to create Docker client: %w", err)
	}

	if _, err := dockerClient.Ping(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect to Docker daemon: %w", err)
	}

	return &DockerRuntime{client: dockerClient}, nil
}

// ListImages returns the cached images with a tag starting with prefix,
// sorted by their first matching tag.
func (d *DockerRuntime) ListImages(ctx context.Context, prefix string) ([]runtime.Image, error) {
	summaries, err := d.client.ImageList(ctx, image.ListOptions{
		Filters: filters.NewArgs(filters.Arg("reference", prefix+"*")),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list images: %w", err)
	}

	images := toImages(summaries, prefix)
	slog.Info("Listed cached images", "prefix", prefix, "count", len(images))
	return images, nil
}

// RemoveImage removes an image by tag or ID.
func (d *DockerRuntime) RemoveImage(ctx context.Context, ref string) error {
	slog.Info("Removing image", "image", ref)

	if _, err := d.client.ImageRemove(ctx, ref, image.RemoveOptions{PruneChildren: true}); err != nil {
		return fmt.Errorf("failed to remove image %s: %w", ref, err)
	}
	return nil
}

func toImages(summaries []image.Summary, prefix string) []runtime.Image {
	var images []runtime.Image
	for _, s := range summaries {
		var tags []string
		for _, tag := range s.RepoTags {
			if strings.HasPrefix(tag, prefix) {
				tags = append(tags, tag)
			}
		}
		if len(tags) == 0 {
			continue
		}
		images = append(images, runtime.Image{
			ID:      s.ID,
			Tags:    tags,
			Size:    s.Size,
			Created: time.Unix(s.Created, 0),
		})
	}

	sort.Slice(images, func(i, j int) bool {
		return images[i].Tags[0] < images[j].Tags[0]
	})
	return images
}
