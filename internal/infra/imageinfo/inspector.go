// Package imageinfo reads descriptive metadata from disk image files: the
// ISO 9660 volume label and the partition table type. Both are best effort.
package imageinfo

import (
	"errors"
	"fmt"
	"os"
	"strings"

	diskfs "github.com/diskfs/go-diskfs"
	"github.com/kdomanski/iso9660"
)

type Inspector struct{}

// Inspect returns the volume label and partition table type of the image at
// path. Whatever could be read is returned even when err is non-nil.
func (Inspector) Inspect(path string) (label, partitionTable string, err error) {
	var errs []error

	label, labelErr := volumeLabel(path)
	if labelErr != nil {
		errs = append(errs, fmt.Errorf("iso9660: %w", labelErr))
	}
	partitionTable, tableErr := tableType(path)
	if tableErr != nil {
		errs = append(errs, fmt.Errorf("partition table: %w", tableErr))
	}

	// An image only needs one of the two to be described.
	if label != "" || partitionTable != "" {
		return label, partitionTable, nil
	}
	return "", "", errors.Join(errs...)
}

func volumeLabel(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	image, err := iso9660.OpenImage(f)
	if err != nil {
		return "", err
	}
	label, err := image.Label()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(label), nil
}

func tableType(path string) (string, error) {
	disk, err := diskfs.Open(path, diskfs.WithOpenMode(diskfs.ReadOnly))
	if err != nil {
		return "", err
	}
	defer disk.Close()
	table, err := disk.GetPartitionTable()
	if err != nil {
		return "", err
	}
	if table == nil {
		return "", nil
	}
	return strings.ToLower(table.Type()), nil
}
