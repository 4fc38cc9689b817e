// Package queue provides the queue commands.
package queue

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aimusicboards/reviewboard/internal/app"
	"github.com/aimusicboards/reviewboard/internal/board"
	"github.com/aimusicboards/reviewboard/internal/conf"
	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/model"
)

// Command creates the queue command and its subcommands. Positions on the
// command line start at 1.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue",
		Short: "Manage the submission queue",
	}
	cmd.AddCommand(
		addCommand(settings),
		listCommand(settings),
		removeCommand(settings),
		statusCommand(settings),
		notesCommand(settings),
		payCommand(settings),
		playCommand(settings),
	)
	return cmd
}

func addCommand(settings *conf.Settings) *cobra.Command {
	var genre, link string
	cmd := &cobra.Command{
		Use:   "add ARTIST TRACK",
		Short: "Add a submission to the end of the queue",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				sub, err := a.Engine.AddSubmission(ctx, args[0], args[1], genre, link)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Queued %s — %s\n", sub.Artist, sub.Track)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&genre, "genre", "", "Genre")
	cmd.Flags().StringVar(&link, "link", "", "Link to the track")
	return cmd
}

func listCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the queue and the now playing banner",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				st, err := a.Engine.Snapshot(ctx)
				if err != nil {
					return err
				}
				PrintQueue(cmd.OutOrStdout(), st.Submissions, st.NowPlaying)
				return nil
			})
		},
	}
}

// PrintQueue writes the queue as a table.
func PrintQueue(w io.Writer, subs []model.Submission, nowPlaying *model.Submission) {
	if nowPlaying != nil {
		fmt.Fprintf(w, "Now playing: %s — %s\n\n", nowPlaying.Artist, nowPlaying.Track)
	}
	if len(subs) == 0 {
		fmt.Fprintln(w, "Queue is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tARTIST\tTRACK\tGENRE\tSTATUS\tPAID")
	for i := range subs {
		s := &subs[i]
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\n", i+1, s.Artist, s.Track, s.Genre, s.Status, s.Badge())
	}
	_ = tw.Flush()
}

func removeCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "remove POSITION",
		Short: "Remove the submission at POSITION",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := Position(args[0])
			if err != nil {
				return err
			}
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				sub, err := a.Engine.RemoveSubmission(ctx, pos)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s — %s\n", sub.Artist, sub.Track)
				return nil
			})
		},
	}
}

func statusCommand(settings *conf.Settings) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "status POSITION STATUS",
		Short: "Set the status of a submission (queued, reviewing, reviewed)",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := Position(args[0])
			if err != nil {
				return err
			}
			status, ok := model.ParseStatus(args[1])
			if !ok {
				return errors.Newf("unknown status %q", args[1]).
					Component("cli").
					Category(errors.CategoryValidation).
					Build()
			}

			update := board.StatusUpdate{Status: status}
			if cmd.Flags().Changed("notes") {
				update.Notes = &notes
			}
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				sub, err := a.Engine.SetStatus(ctx, pos, update)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s — %s is %s\n", sub.Artist, sub.Track, sub.Status)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Replace the submission notes")
	return cmd
}

func notesCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "notes POSITION TEXT",
		Short: "Replace the notes of a submission",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := Position(args[0])
			if err != nil {
				return err
			}
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				_, err := a.Engine.EditNotes(ctx, pos, args[1])
				return err
			})
		},
	}
}

func payCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "pay POSITION PAYMENT [TYPE]",
		Short: "Record payment state (NONE, PENDING, PAID) and type (SKIP, UPNEXT)",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := Position(args[0])
			if err != nil {
				return err
			}
			ps := model.PaymentStatus(args[1])
			var pt model.PaidType
			if len(args) == 3 {
				pt = model.PaidType(args[2])
			}
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				sub, err := a.Engine.SetPayment(ctx, pos, ps, pt)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s — %s %s\n", sub.Artist, sub.Track, sub.Badge())
				return nil
			})
		},
	}
}

func playCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "play POSITION",
		Short: "Put a submission on the now playing banner",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pos, err := Position(args[0])
			if err != nil {
				return err
			}
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				sub, err := a.Engine.PlaySubmission(ctx, pos)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Now playing %s — %s\n", sub.Artist, sub.Track)
				return nil
			})
		},
	}
}

// Position converts a 1-based command line position to a queue index.
func Position(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, errors.Newf("position must be a number starting at 1, got %q", arg).
			Component("cli").
			Category(errors.CategoryValidation).
			Build()
	}
	return n - 1, nil
}
