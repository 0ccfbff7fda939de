package app

import (
	"context"
	"errors"
	"path/filepath"

	"isoflash/internal/domain"
	"isoflash/internal/logging"
)

var ErrNoImages = errors.New("no image files found")

type Discoverer struct {
	FS        FileSystem
	Inspector ImageInspector
	Logger    logging.Logger
}

// Discover lists the regular files in dir whose names end with one of exts,
// in directory-listing order. It returns ErrNoImages when nothing matches.
func (d *Discoverer) Discover(ctx context.Context, dir string, exts []string) ([]domain.Image, error) {
	if d.FS == nil {
		return nil, errors.New("discoverer requires FS")
	}

	stop := d.Logger.Measure("Image discovery")
	defer stop()

	entries, err := d.FS.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var images []domain.Image
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if entry.IsDir() || !domain.HasExtension(entry.Name(), exts) {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		image := domain.Image{Name: entry.Name(), Path: path}

		if info, statErr := d.FS.Stat(path); statErr == nil {
			if !info.Mode().IsRegular() {
				continue
			}
			image.Size = info.Size()
		}
		if d.Inspector != nil {
			label, table, inspectErr := d.Inspector.Inspect(path)
			if inspectErr != nil {
				d.Logger.Verbosef("Could not inspect %s: %v", entry.Name(), inspectErr)
			}
			image.Label = label
			image.PartitionTable = table
		}
		images = append(images, image)
	}

	d.Logger.Verbosef("Found %d image files in %s", len(images), dir)
	if len(images) == 0 {
		return nil, ErrNoImages
	}
	return images, nil
}
