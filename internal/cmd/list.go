package cmd

import (
	"context"

	"github.com/spf13/cobra"

	appErrors "isoflash/internal/errors"
)

func newListCommand(e env) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the image files and disks isoflash would offer",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			s, err := newSession(cmd, e)
			if err != nil {
				return err
			}

			images, err := s.discover(ctx)
			switch {
			case err == nil:
				s.printer.PrintImages(images)
			case appErrors.KindOf(err) == appErrors.NoImages:
				s.logger.Warnf("%s", appErrors.UserMessage(err))
			default:
				return err
			}
			return s.listDisks(ctx)
		},
	}
}
