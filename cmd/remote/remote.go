// Package remote provides the commands that drive the remote review service.
package remote

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/aimusicboards/reviewboard/internal/app"
	"github.com/aimusicboards/reviewboard/internal/conf"
	"github.com/aimusicboards/reviewboard/internal/model"
	"github.com/aimusicboards/reviewboard/internal/remote"
)

// Command creates the remote command and its subcommands.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Work the queue of the remote review service",
	}
	cmd.AddCommand(
		queueCommand(settings),
		claimCommand(settings),
		scoreCommand(settings),
		liveCommand(settings),
	)
	return cmd
}

// withRoom runs fn against a control room that has polled the service once.
func withRoom(settings *conf.Settings, fn func(ctx context.Context, room *remote.ControlRoom) error) error {
	if !settings.Remote.Enabled {
		return fmt.Errorf("remote review service is not enabled in configuration")
	}
	return app.Run(settings, func(ctx context.Context, a *app.App) error {
		svc, err := a.Services()
		if err != nil {
			return err
		}
		defer svc.Close()

		_ = svc.Room.RefreshStatus(ctx)
		if err := svc.Room.Refresh(ctx); err != nil {
			return err
		}
		return fn(ctx, svc.Room)
	})
}

func queueCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "queue",
		Short: "Show the remote queue and live status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRoom(settings, func(_ context.Context, room *remote.ControlRoom) error {
				out := cmd.OutOrStdout()
				fmt.Fprintln(out, room.Status())
				PrintQueue(out, room.Queue())
				return nil
			})
		},
	}
}

// PrintQueue writes remote submissions with their claim and payment state.
func PrintQueue(w io.Writer, subs []model.Submission) {
	if len(subs) == 0 {
		fmt.Fprintln(w, "Remote queue is empty")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tARTIST\tTRACK\tSTATUS\tCLAIMED BY\tPAID")
	for i := range subs {
		s := &subs[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			s.ID, s.Artist, s.Track, s.Status, s.ClaimedBy, model.RemoteBadge(s.PaymentStatus, s.PaidType))
	}
	_ = tw.Flush()
}

func claimCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "claim ID",
		Short: "Claim a submission for review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRoom(settings, func(ctx context.Context, room *remote.ControlRoom) error {
				sub, err := room.Select(args[0])
				if err != nil {
					return err
				}
				if err := room.Claim(ctx); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Claimed %s — %s\n", sub.Artist, sub.Track)
				return nil
			})
		},
	}
}

func scoreCommand(settings *conf.Settings) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   "score ID LYRICS DELIVERY PRODUCTION ORIGINALITY [REPLAY]",
		Short: "Submit scores for a remote submission",
		Long: `Submit scores to the remote service. Accepted reviews are also added to
the local leaderboard and a final recap is sent to the now playing feed.`,
		Args: cobra.RangeArgs(5, 6),
		RunE: func(cmd *cobra.Command, args []string) error {
			scores, err := model.ParseScores(args[1:])
			if err != nil {
				return err
			}
			return withRoom(settings, func(ctx context.Context, room *remote.ControlRoom) error {
				sub, err := room.Select(args[0])
				if err != nil {
					return err
				}
				if err := room.SetDraft(scores, notes); err != nil {
					return err
				}

				res, err := room.Submit(ctx)
				if err != nil {
					return err
				}
				total := scores.Total()
				if res.Total != nil {
					total = *res.Total
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s — %s\n%s\n", sub.Artist, sub.Track, remote.Verdict(total))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&notes, "notes", "", "Review notes sent with the scores")
	return cmd
}

func liveCommand(settings *conf.Settings) *cobra.Command {
	return &cobra.Command{
		Use:   "live [toggle]",
		Short: "Show or toggle whether the service accepts submissions",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			toggle := len(args) == 1
			if toggle && !strings.EqualFold(args[0], "toggle") {
				return fmt.Errorf("unknown argument %q, expected \"toggle\"", args[0])
			}
			return withRoom(settings, func(ctx context.Context, room *remote.ControlRoom) error {
				if toggle {
					if _, err := room.ToggleLive(ctx); err != nil {
						return err
					}
				}
				fmt.Fprintln(cmd.OutOrStdout(), room.Status())
				return nil
			})
		},
	}
}
