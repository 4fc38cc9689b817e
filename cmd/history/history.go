// Package history provides the review archive commands.
package history

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aimusicboards/reviewboard/internal/conf"
	"github.com/aimusicboards/reviewboard/internal/history"
	"github.com/aimusicboards/reviewboard/internal/logger"
)

// Command creates the history command and its subcommands. They read the
// archive directly and do not load the board session.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query reviews archived across board sessions",
	}
	cmd.AddCommand(listCommand(settings), topCommand(settings))
	return cmd
}

func withArchive(settings *conf.Settings, fn func(a *history.Archive) error) error {
	if !settings.History.Enabled {
		return fmt.Errorf("history archive is not enabled in configuration")
	}
	a, err := history.Open(settings.History.Path, history.WithLogger(logger.Global().Module("history")))
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			logger.Global().Module("history").Warn("failed to close history database", logger.Error(err))
		}
	}()
	return fn(a)
}

func listCommand(settings *conf.Settings) *cobra.Command {
	var boardSession int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List archived reviews, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withArchive(settings, func(a *history.Archive) error {
				reviews, err := a.List(cmd.Context(), boardSession)
				if err != nil {
					return err
				}
				PrintReviews(cmd.OutOrStdout(), reviews, settings.Board.MaxTotal)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&boardSession, "session", 0, "Only this board session (0 = all)")
	return cmd
}

func topCommand(settings *conf.Settings) *cobra.Command {
	var (
		limit    int
		minTotal int
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "Best reviews of all time",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("min") {
				minTotal = settings.Board.QualifyingMin
			}
			return withArchive(settings, func(a *history.Archive) error {
				reviews, err := a.Top(cmd.Context(), limit, minTotal)
				if err != nil {
					return err
				}
				PrintReviews(cmd.OutOrStdout(), reviews, settings.Board.MaxTotal)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of reviews")
	cmd.Flags().IntVar(&minTotal, "min", 0, "Minimum total (default: qualifying minimum)")
	return cmd
}

// PrintReviews writes archived reviews as a table.
func PrintReviews(w io.Writer, reviews []history.Review, maxTotal int) {
	if len(reviews) == 0 {
		fmt.Fprintln(w, "No archived reviews")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "SESSION\tREVIEWED\tARTIST\tTRACK\tTOTAL")
	for i := range reviews {
		r := &reviews[i]
		fmt.Fprintf(tw, "%03d\t%s\t%s\t%s\t%d/%d\n",
			r.BoardSession, r.ReviewedAt.Local().Format("2006-01-02 15:04"), r.Artist, r.Track, r.Total, maxTotal)
	}
	_ = tw.Flush()
}
