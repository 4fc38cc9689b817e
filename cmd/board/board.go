// Package board provides the leaderboard commands.
package board

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aimusicboards/reviewboard/internal/app"
	"github.com/aimusicboards/reviewboard/internal/conf"
	"github.com/aimusicboards/reviewboard/internal/leaderboard"
)

// Command creates the board command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board",
		Short: "Show and edit the leaderboard",
	}
	cmd.AddCommand(
		topCommand(settings),
		displayCommand(settings),
		deleteCommand(settings),
		playCommand(settings),
	)
	return cmd
}

func topCommand(settings *conf.Settings) *cobra.Command {
	var (
		text  bool
		limit int
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "List qualifying entries in rank order",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				out := cmd.OutOrStdout()
				if text {
					s, err := a.Engine.TopText(ctx)
					if err != nil {
						return err
					}
					if s == "" {
						fmt.Fprintln(out, "No entries on the board yet")
						return nil
					}
					fmt.Fprintln(out, s)
					return nil
				}

				n := limit
				if n <= 0 {
					n = a.Engine.Config().LeaderboardLimit
				}
				rows, err := a.Engine.Top(ctx, n)
				if err != nil {
					return err
				}
				PrintRows(out, rows, a.Engine.Config().MaxTotal)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&text, "text", false, "Print the paste-ready text list")
	cmd.Flags().IntVar(&limit, "limit", 0, "Number of rows (default: leaderboard limit)")
	return cmd
}

// PrintRows writes ranked rows as a table including entry ids.
func PrintRows(w io.Writer, rows []leaderboard.Row, maxTotal int) {
	if len(rows) == 0 {
		fmt.Fprintln(w, "No entries on the board yet")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "RANK\tARTIST\tTRACK\tTOTAL\tSCORES\tID")
	for i := range rows {
		e := &rows[i].Entry
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d/%d\t%s\t%s\n",
			rows[i].Rank, e.Artist, e.Track, e.Total(), maxTotal, leaderboard.MetaLine(e), e.ID)
	}
	_ = tw.Flush()
}

func displayCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "display",
		Short: "Show the on-air top list with empty slots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				rows, err := a.Engine.Display(ctx)
				if err != nil {
					return err
				}
				label, err := a.Engine.SessionLabel(ctx)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, label)
				for i := range rows {
					if rows[i].Empty() {
						fmt.Fprintf(out, "%d. —\n", i+1)
						continue
					}
					e := &rows[i].Entry
					fmt.Fprintf(out, "%d. %s — %s  %d  %s\n", rows[i].Rank, e.Artist, e.Track, e.Total(), leaderboard.MetaLine(e))
				}
				return nil
			})
		},
	}
}

func deleteCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ENTRY_ID",
		Short: "Remove an entry from the leaderboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				if err := a.Engine.DeleteEntry(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted entry %s\n", args[0])
				return nil
			})
		},
	}
}

func playCommand(settings *conf.Settings) *cobra.Command {
	var clearBanner bool
	cmd := &cobra.Command{
		Use:   "play [ENTRY_ID]",
		Short: "Put a leaderboard entry back on the now playing banner",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				if clearBanner || len(args) == 0 {
					return a.Engine.ClearNowPlaying(ctx)
				}
				sub, err := a.Engine.PlayEntry(ctx, args[0])
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Now playing %s — %s\n", sub.Artist, sub.Track)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&clearBanner, "clear", false, "Clear the banner")
	return cmd
}
