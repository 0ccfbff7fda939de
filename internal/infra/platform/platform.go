// Package platform binds the flash pipeline's device operations to the disk
// utilities of the host operating system.
package platform

import (
	"context"
	"fmt"

	"isoflash/internal/infra/shell"
	"isoflash/internal/logging"
)

// CommandRunner is the subset of shell.Runner the adapters need.
type CommandRunner interface {
	Run(ctx context.Context, cmd shell.Command) (string, error)
	Stream(ctx context.Context, cmd shell.Command, onLine func(string)) error
}

type Options struct {
	Runner    CommandRunner
	Logger    logging.Logger
	BlockSize string
	Sudo      bool
	DryRun    bool
}

// Toolkit holds one implementation of every device operation.
type Toolkit struct {
	Lister    Lister
	Unmounter Unmounter
	Flusher   SyncFlusher
	Ejecter   Ejecter
	Copier    DDCopier
}

type Lister interface {
	List(ctx context.Context) (string, error)
}

type Unmounter interface {
	Unmount(ctx context.Context, device string) error
}

type Ejecter interface {
	Eject(ctx context.Context, device string) error
}

// SyncFlusher flushes pending writes with sync(1).
type SyncFlusher struct {
	Runner CommandRunner
	Sudo   bool
}

func (f SyncFlusher) Flush(ctx context.Context) error {
	_, err := f.Runner.Run(ctx, shell.Command{Name: "sync", Sudo: f.Sudo})
	return err
}

// DDCopier writes an image with dd and streams its status output.
type DDCopier struct {
	Runner    CommandRunner
	BlockSize string
	Sudo      bool
	Extra     []string
}

func (c DDCopier) Copy(ctx context.Context, src, device string, onLine func(string)) error {
	return c.Runner.Stream(ctx, c.Command(src, device), onLine)
}

func (c DDCopier) Command(src, device string) shell.Command {
	args := []string{
		"if=" + src,
		"of=" + device,
		"bs=" + c.BlockSize,
		"status=progress",
	}
	args = append(args, c.Extra...)
	return shell.Command{Name: "dd", Args: args, Sudo: c.Sudo}
}

// CommandEjecter and CommandUnmounter run a fixed command with the device as
// the last argument.
type CommandEjecter struct {
	Runner CommandRunner
	Name   string
	Args   []string
	Sudo   bool
}

func (e CommandEjecter) Eject(ctx context.Context, device string) error {
	_, err := e.Runner.Run(ctx, shell.Command{Name: e.Name, Args: append(append([]string{}, e.Args...), device), Sudo: e.Sudo})
	return err
}

type CommandUnmounter struct {
	Runner CommandRunner
	Name   string
	Args   []string
	Sudo   bool
}

func (u CommandUnmounter) Unmount(ctx context.Context, device string) error {
	_, err := u.Runner.Run(ctx, shell.Command{Name: u.Name, Args: append(append([]string{}, u.Args...), device), Sudo: u.Sudo})
	return err
}

// CommandLister prints the output of a listing command verbatim.
type CommandLister struct {
	Runner CommandRunner
	Name   string
	Args   []string
}

func (l CommandLister) List(ctx context.Context) (string, error) {
	return l.Runner.Run(ctx, shell.Command{Name: l.Name, Args: l.Args, Success: "Available disks listed."})
}

func validate(opts Options) (Options, error) {
	if opts.Runner == nil {
		return opts, fmt.Errorf("platform requires a command runner")
	}
	if opts.BlockSize == "" {
		opts.BlockSize = DefaultBlockSize
	}
	return opts, nil
}
