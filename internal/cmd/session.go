package cmd

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/spf13/cobra"

	"isoflash/internal/app"
	"isoflash/internal/config"
	"isoflash/internal/domain"
	appErrors "isoflash/internal/errors"
	"isoflash/internal/infra/fs"
	"isoflash/internal/infra/imageinfo"
	"isoflash/internal/infra/platform"
	"isoflash/internal/infra/shell"
	"isoflash/internal/logging"
	"isoflash/internal/presentation"
)

// session holds what every subcommand builds from the resolved configuration.
type session struct {
	cfg     config.Config
	in      io.Reader
	out     io.Writer
	errOut  io.Writer
	logger  logging.Logger
	runner  shell.Runner
	printer presentation.Printer
	devices devices
	// interactive selects the Bubble Tea view for the flash. Command success
	// lines and shell logs are kept off the terminal so they do not draw over it.
	interactive bool
}

func newSession(cmd *cobra.Command, e env) (*session, error) {
	cfg, err := loadConfig(cmd, e)
	if err != nil {
		return nil, err
	}

	s := &session{
		cfg:    cfg,
		in:     cmd.InOrStdin(),
		out:    cmd.OutOrStdout(),
		errOut: cmd.ErrOrStderr(),
	}
	s.logger = logging.New(s.errOut, cfg.Verbose)
	if cfg.ConfigFile != "" {
		s.logger.Verbosef("Loaded configuration from %s", cfg.ConfigFile)
	}
	s.interactive = !cfg.Plain && !cfg.DryRun && e.isTerminal(s.out)
	s.runner = shell.Runner{Logger: s.logger.With("shell"), Out: s.out, Stdin: s.in, DryRun: cfg.DryRun}
	if s.interactive {
		s.runner.Out = nil
		s.runner.Logger = logging.New(io.Discard, false)
	}
	s.printer = presentation.Printer{Writer: s.out, Verbose: cfg.Verbose, DryRun: cfg.DryRun}

	s.devices, err = e.devices(platform.Options{
		Runner:    s.runner,
		Logger:    s.logger.With("platform"),
		BlockSize: cfg.BlockSize,
		Sudo:      cfg.Sudo,
		DryRun:    cfg.DryRun,
	})
	if err != nil {
		return nil, appErrors.Wrap(appErrors.Internal, "platform", "", err)
	}
	return s, nil
}

func (s *session) discover(ctx context.Context) ([]domain.Image, error) {
	discoverer := app.Discoverer{
		FS:        fs.OSFS{},
		Inspector: imageinfo.Inspector{},
		Logger:    s.logger.With("discovery"),
	}
	images, err := discoverer.Discover(ctx, s.cfg.Dir, s.cfg.Extensions)
	switch {
	case err == nil:
		return images, nil
	case stderrors.Is(err, app.ErrNoImages):
		return nil, appErrors.Wrap(appErrors.NoImages, "discover", s.cfg.Dir, err)
	case ctx.Err() != nil:
		return nil, appErrors.Wrap(appErrors.Cancelled, "discover", s.cfg.Dir, err)
	default:
		return nil, appErrors.Wrap(appErrors.NotFound, "discover", s.cfg.Dir, err)
	}
}

func (s *session) listDisks(ctx context.Context) error {
	listing, err := s.devices.Lister.List(ctx)
	if err != nil {
		return appErrors.Wrap(appErrors.CommandFailed, "list disks", "", err)
	}
	s.printer.PrintDisks(listing)
	return nil
}
