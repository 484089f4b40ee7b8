package app

import (
	"context"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/dustin/go-humanize"

	"railsnew/internal/command"
	rnerrors "railsnew/internal/errors"
	pkgruntime "railsnew/pkg/runtime"
)

// Images prints the cached scaffolding images.
func (a *App) Images(ctx context.Context, opts Options) error {
	_, images, err := a.listImages(ctx, opts)
	if err != nil {
		return err
	}

	if len(images) == 0 {
		a.console.PrintInfo("No rails-new images found")
		return nil
	}

	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 0, 3, ' ', 0)
	fmt.Fprintln(w, "IMAGE\tID\tSIZE\tCREATED")
	for _, img := range images {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
			strings.Join(img.Tags, ","), shortID(img.ID), humanize.Bytes(uint64(img.Size)), humanize.Time(img.Created))
	}
	w.Flush()

	a.console.Println(strings.TrimRight(b.String(), "\n"))
	return nil
}

// PruneImages removes every cached scaffolding image. It keeps going after a
// failed removal and reports how many failed.
func (a *App) PruneImages(ctx context.Context, opts Options) error {
	store, images, err := a.listImages(ctx, opts)
	if err != nil {
		return err
	}

	var failed int
	for _, img := range images {
		if err := store.RemoveImage(ctx, img.ID); err != nil {
			failed++
			a.console.PrintWarning(err.Error())
			continue
		}
		a.console.PrintSuccess("Removed " + strings.Join(img.Tags, ","))
	}

	if failed > 0 {
		err := fmt.Errorf("%d of %d images could not be removed", failed, len(images))
		return rnerrors.NewRuntimeError("Failed to prune rails-new images", err.Error(),
			"Stop containers that still use these images and try again", err)
	}
	return nil
}

func (a *App) listImages(ctx context.Context, opts Options) (pkgruntime.ImageStore, []pkgruntime.Image, error) {
	cfg, err := a.settings(opts)
	if err != nil {
		return nil, nil, err
	}

	store, err := a.factory.GetImageStore(ctx, cfg.Engine)
	if err != nil {
		return nil, nil, rnerrors.NewRuntimeError("Failed to connect to the container engine", err.Error(),
			"Start the engine or set DOCKER_HOST to its API socket", err)
	}
	images, err := store.ListImages(ctx, command.ImagePrefix)
	if err != nil {
		return nil, nil, rnerrors.NewRuntimeError("Failed to list rails-new images", err.Error(), "", err)
	}
	return store, images, nil
}

func shortID(id string) string {
	id = strings.TrimPrefix(id, "sha256:")
	if len(id) > 12 {
		return id[:12]
	}
	return id
}
