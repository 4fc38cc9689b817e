// Package export provides the export commands.
package export

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimusicboards/reviewboard/internal/app"
	"github.com/aimusicboards/reviewboard/internal/conf"
)

// Command creates the export command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Publish or print the leaderboard artifact",
	}
	cmd.AddCommand(nowCommand(settings), printCommand(settings))
	return cmd
}

func nowCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "now",
		Short: "Publish the artifact to every configured target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.ExportNow(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Leaderboard published")
				return nil
			})
		},
	}
}

func printCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "print",
		Short: "Print the artifact without publishing it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				data, err := a.Engine.Artifact(ctx)
				if err != nil {
					return err
				}
				_, err = cmd.OutOrStdout().Write(append(data, '\n'))
				return err
			})
		},
	}
}
