// Package session provides the board session commands.
package session

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimusicboards/reviewboard/internal/app"
	"github.com/aimusicboards/reviewboard/internal/conf"
)

// Command creates the session command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Manage the board session",
	}
	cmd.AddCommand(
		showCommand(settings),
		newCommand(settings),
		clearCommand(settings),
		scriptCommand(settings),
	)
	return cmd
}

func showCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Print the session summary",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				st, err := a.Engine.Snapshot(ctx)
				if err != nil {
					return err
				}
				label, err := a.Engine.SessionLabel(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, label)
				fmt.Fprintf(out, "Session file: %s\n", settings.Session.Path)
				fmt.Fprintf(out, "Queue: %d  Entries: %d\n", len(st.Submissions), len(st.Entries))
				if st.NowPlaying != nil {
					fmt.Fprintf(out, "Now playing: %s — %s\n", st.NowPlaying.Artist, st.NowPlaying.Track)
				}
				if st.HostScript != "" {
					fmt.Fprintf(out, "\n%s\n", st.HostScript)
				}
				return nil
			})
		},
	}
}

func newCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Start the next board session; queue and board are kept",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				num, err := a.Engine.NewBoardSession(ctx)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Board session %03d started\n", num)
				return nil
			})
		},
	}
}

func clearCommand(settings *conf.Settings) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Empty the queue, the leaderboard and the banner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return fmt.Errorf("refusing to clear without --yes")
			}
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.ClearAll(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Board cleared")
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm clearing everything")
	return cmd
}

func scriptCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "script TEXT",
		Short: "Store the host script with the session",
		Args:  cobra.ExactArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				return a.Engine.SetHostScript(ctx, args[0])
			})
		},
	}
}
