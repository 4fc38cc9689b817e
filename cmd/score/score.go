// Package score provides the score command.
package score

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/aimusicboards/reviewboard/cmd/queue"
	"github.com/aimusicboards/reviewboard/internal/app"
	"github.com/aimusicboards/reviewboard/internal/board"
	"github.com/aimusicboards/reviewboard/internal/conf"
	"github.com/aimusicboards/reviewboard/internal/model"
)

// Command creates the score command.
func Command(settings *conf.Settings) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "score POSITION LYRICS VOCALS PRODUCTION ORIGINALITY [REPLAY]",
		Short: "Score a queued submission and add it to the leaderboard",
		Long: `Score the submission at POSITION. Each category is 0-10. The entry
appears on the leaderboard once its total reaches the qualifying minimum.`,
		Args: cobra.RangeArgs(5, 6),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := queue.Position(args[0])
			if err != nil {
				return err
			}
			scores, err := model.ParseScores(args[1:])
			if err != nil {
				return err
			}

			req := board.ScoreRequest{Position: pos, Scores: scores}
			if cmd.Flags().Changed("notes") {
				req.Notes = &notes
			}
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				entry, err := a.Engine.Score(ctx, req)
				if err != nil {
					return err
				}
				verdict := "below the board"
				if entry.Total() >= a.Engine.Config().QualifyingMin {
					verdict = "on the board"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s — %s scored %d/%d (%s)\n",
					entry.Artist, entry.Track, entry.Total(), a.Engine.Config().MaxTotal, verdict)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Replace the submission notes")
	return cmd
}
