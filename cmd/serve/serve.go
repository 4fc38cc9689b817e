// Package serve provides the serve command, which keeps the board running
// for a live show.
package serve

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aimusicboards/reviewboard/internal/app"
	"github.com/aimusicboards/reviewboard/internal/conf"
)

// Command creates the serve command.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the overlay feed, remote polling and paid alerts until interrupted",
		Long: `Serve keeps the board loaded and runs every enabled service: the overlay
HTTP feed, the remote queue poller and paid priority alerts. Reviews scored
through the remote service are added to the local leaderboard. Stop with Ctrl+C;
pending exports are published and the session is saved on the way out.`,
		Args: cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			return app.Run(settings, func(ctx context.Context, a *app.App) error {
				svc, err := a.Services()
				if err != nil {
					return err
				}
				return a.Serve(ctx, svc)
			})
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}
	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVar(&settings.Overlay.Enabled, "overlay", settings.Overlay.Enabled, "Serve the overlay feed")
	cmd.Flags().StringVar(&settings.Overlay.Listen, "listen", settings.Overlay.Listen, "Overlay listen address")
	cmd.Flags().BoolVar(&settings.Remote.Enabled, "remote", settings.Remote.Enabled, "Poll the remote review service")
	cmd.Flags().BoolVar(&settings.Notification.Enabled, "alerts", settings.Notification.Enabled, "Send paid priority alerts")

	if err := viper.BindPFlag("overlay.enabled", cmd.Flags().Lookup("overlay")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	if err := viper.BindPFlag("overlay.listen", cmd.Flags().Lookup("listen")); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}
	return nil
}
