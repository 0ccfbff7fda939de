// Package cmd defines the isoflash command line.
package cmd

import (
	"context"
	"io"
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"isoflash/internal/app"
	"isoflash/internal/config"
	appErrors "isoflash/internal/errors"
	"isoflash/internal/infra/platform"
)

// devices is the set of device operations one run needs.
type devices struct {
	Lister    app.DiskLister
	Unmounter app.Unmounter
	Flusher   app.Flusher
	Ejecter   app.Ejecter
	Copier    app.BlockCopier
}

type env struct {
	getenv     func(string) string
	devices    func(platform.Options) (devices, error)
	isTerminal func(io.Writer) bool
}

func defaultEnv() env {
	return env{
		getenv:     os.Getenv,
		devices:    platformDevices,
		isTerminal: isTerminal,
	}
}

func platformDevices(opts platform.Options) (devices, error) {
	tk, err := platform.New(opts)
	if err != nil {
		return devices{}, err
	}
	return devices{
		Lister:    tk.Lister,
		Unmounter: tk.Unmounter,
		Flusher:   tk.Flusher,
		Ejecter:   tk.Ejecter,
		Copier:    tk.Copier,
	}, nil
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// NewRootCommand returns the isoflash command with its subcommands.
func NewRootCommand() *cobra.Command {
	return newRootCommand(defaultEnv())
}

func newRootCommand(e env) *cobra.Command {
	root := &cobra.Command{
		Use:   "isoflash",
		Short: "Write a bootable disk image to a USB drive",
		Long: `isoflash writes a disk image (an .iso by default) from the current
directory onto a USB drive with dd, showing progress and an estimate of the
time remaining, then syncs and ejects the drive.

The image is picked from a numbered menu and the target device is typed in
after the attached disks are listed. All data on the target is erased.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFlash(cmd, e)
		},
	}
	config.Register(root.PersistentFlags())
	root.AddCommand(newListCommand(e))
	return root
}

// Execute runs the command line with args and returns the first error. The
// caller reports it and picks the exit status.
func Execute(ctx context.Context, args []string) error {
	root := NewRootCommand()
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func loadConfig(cmd *cobra.Command, e env) (config.Config, error) {
	cfg, err := config.Load(cmd.Flags(), e.getenv)
	if err != nil {
		return config.Config{}, appErrors.Wrap(appErrors.InvalidConfig, "config", "", err)
	}
	return cfg, nil
}
