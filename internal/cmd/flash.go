package cmd

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"isoflash/internal/app"
	"isoflash/internal/domain"
	appErrors "isoflash/internal/errors"
	"isoflash/internal/eta"
	"isoflash/internal/infra/fs"
	"isoflash/internal/infra/shell"
	"isoflash/internal/logging"
	"isoflash/internal/presentation"
	"isoflash/internal/prompt"
	"isoflash/internal/tui"
)

func runFlash(cmd *cobra.Command, e env) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	s, err := newSession(cmd, e)
	if err != nil {
		return err
	}
	selector := prompt.NewSelector(s.in, s.out)

	fmt.Fprintln(s.out, "🔍 Detecting available image files...")
	images, err := s.discover(ctx)
	if err != nil {
		return err
	}
	image, err := chooseImage(selector, images, s.cfg.Image)
	if err != nil {
		return err
	}

	device := s.cfg.Device
	if device == "" {
		if err := s.listDisks(ctx); err != nil {
			return err
		}
		device, err = selector.Ask("💾 Enter the device identifier for your USB disk (e.g., /dev/disk3):")
		if err != nil {
			return appErrors.Wrap(appErrors.Cancelled, "read device", "", err)
		}
	}

	if !s.cfg.Yes && !s.cfg.DryRun {
		ok, err := selector.Confirm(fmt.Sprintf("⚠️  All data on %s will be erased. Continue?", device))
		if err != nil {
			return appErrors.Wrap(appErrors.Cancelled, "confirm", "", err)
		}
		if !ok {
			return appErrors.Wrap(appErrors.Cancelled, "confirm", device, fmt.Errorf("write to %s declined", device))
		}
	}

	estimator, err := eta.New(s.cfg.ETAPolicy)
	if err != nil {
		return appErrors.Wrap(appErrors.InvalidConfig, "config", "", err)
	}
	flasher := &app.Flasher{
		FS:        fs.OSFS{},
		Unmounter: s.devices.Unmounter,
		Copier:    s.devices.Copier,
		Flusher:   s.devices.Flusher,
		Ejecter:   s.devices.Ejecter,
		Estimator: estimator,
		Logger:    s.logger.With("flash"),
	}

	fmt.Fprintln(s.out, "\n🚀 Creating bootable USB...")
	if s.interactive {
		return s.flashInteractive(ctx, flasher, image, device)
	}

	flasher.Observer = s.printer
	result, err := flasher.Flash(ctx, image, device)
	if err != nil {
		return err
	}
	if s.cfg.Verbose {
		s.printer.PrintSummary(image, device, result)
	}
	return nil
}

// flashInteractive runs the flash behind the Bubble Tea view.
func (s *session) flashInteractive(ctx context.Context, flasher *app.Flasher, image domain.Image, device string) error {
	if s.cfg.Sudo {
		// sudo asks for a password on the terminal, which must happen before
		// the view takes it over.
		if _, err := s.runner.Run(ctx, shell.Command{Name: "true", Sudo: true}); err != nil {
			return appErrors.Wrap(appErrors.CommandFailed, "sudo", "", err)
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	flasher.Logger = logging.New(io.Discard, false)

	model := tui.NewModel(tui.Config{
		Image:   image,
		Device:  device,
		Verbose: s.cfg.Verbose,
		Cancel:  cancel,
		Flash: func() (app.Result, error) {
			return flasher.Flash(ctx, image, device)
		},
	})
	program := tea.NewProgram(model, tea.WithInput(s.in), tea.WithOutput(s.out))
	flasher.Observer = tui.Observer{Send: program.Send}

	final, err := program.Run()
	if err != nil {
		return appErrors.Wrap(appErrors.Internal, "tui", "", err)
	}
	if m, ok := final.(tui.Model); ok && m.Err != nil {
		return m.Err
	}
	return nil
}

func chooseImage(selector *prompt.Selector, images []domain.Image, name string) (domain.Image, error) {
	if name != "" {
		for _, image := range images {
			if image.Name == name {
				return image, nil
			}
		}
		return domain.Image{}, appErrors.Wrap(appErrors.NotFound, "select image", name, fmt.Errorf("%s is not among the discovered images", name))
	}

	idx, err := selector.Select("Select an image file to use:", presentation.FormatImages(images))
	if err != nil {
		return domain.Image{}, appErrors.Wrap(appErrors.Cancelled, "select image", "", err)
	}
	return images[idx], nil
}
