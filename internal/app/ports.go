package app

import (
	"context"
	"io/fs"
	"time"

	"isoflash/internal/domain"
)

type FileSystem interface {
	ReadDir(dir string) ([]fs.DirEntry, error)
	Stat(path string) (fs.FileInfo, error)
}

// ImageInspector reads optional metadata out of an image file.
type ImageInspector interface {
	Inspect(path string) (label, partitionTable string, err error)
}

// DiskLister returns the platform's listing of attached storage devices as
// display text.
type DiskLister interface {
	List(ctx context.Context) (string, error)
}

type Unmounter interface {
	Unmount(ctx context.Context, device string) error
}

type Flusher interface {
	Flush(ctx context.Context) error
}

type Ejecter interface {
	Eject(ctx context.Context, device string) error
}

// BlockCopier copies src onto device and passes each status line the copy
// tool prints to onLine while it runs.
type BlockCopier interface {
	Copy(ctx context.Context, src, device string, onLine func(string)) error
}

// Progress is one estimate derived from a parsed status line.
type Progress struct {
	Sample    domain.Sample
	Total     int64
	Elapsed   time.Duration
	Remaining float64
}

// Observer receives flash events in order. Implementations must not block for
// long; they run on the goroutine reading the copy tool's output.
type Observer interface {
	Phase(phase domain.Phase, err error)
	Step(message string)
	Line(line string)
	Progress(p Progress)
}

type NopObserver struct{}

func (NopObserver) Phase(domain.Phase, error) {}
func (NopObserver) Step(string)               {}
func (NopObserver) Line(string)               {}
func (NopObserver) Progress(Progress)         {}
