package domain

import "strings"

// Image is a disk image file offered for selection.
type Image struct {
	Name           string
	Path           string
	Size           int64
	Label          string
	PartitionTable string
}

// HasExtension reports whether name ends with one of exts. The match is
// case-sensitive: "A.ISO" does not match ".iso".
func HasExtension(name string, exts []string) bool {
	for _, ext := range exts {
		if ext != "" && strings.HasSuffix(name, ext) && len(name) > len(ext) {
			return true
		}
	}
	return false
}
