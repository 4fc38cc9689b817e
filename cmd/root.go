package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/aimusicboards/reviewboard/cmd/board"
	"github.com/aimusicboards/reviewboard/cmd/export"
	"github.com/aimusicboards/reviewboard/cmd/history"
	"github.com/aimusicboards/reviewboard/cmd/queue"
	"github.com/aimusicboards/reviewboard/cmd/remote"
	"github.com/aimusicboards/reviewboard/cmd/score"
	"github.com/aimusicboards/reviewboard/cmd/serve"
	"github.com/aimusicboards/reviewboard/cmd/session"
	"github.com/aimusicboards/reviewboard/internal/conf"
	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
)

const sentryFlushTimeout = 2 * time.Second

// RootCommand creates and returns the root command
func RootCommand(settings *conf.Settings) *cobra.Command {
	var centralLogger *logger.CentralLogger

	rootCmd := &cobra.Command{
		Use:           "reviewboard",
		Short:         "Live music review board",
		Version:       settings.Version,
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	if err := setupFlags(rootCmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
	}

	rootCmd.AddCommand(
		queue.Command(settings),
		score.Command(settings),
		board.Command(settings),
		session.Command(settings),
		export.Command(settings),
		remote.Command(settings),
		history.Command(settings),
		serve.Command(settings),
	)

	rootCmd.PersistentPreRunE = func(_ *cobra.Command, _ []string) error {
		cl, err := initialize(settings)
		if err != nil {
			return err
		}
		centralLogger = cl
		return nil
	}

	rootCmd.PersistentPostRunE = func(_ *cobra.Command, _ []string) error {
		errors.FlushSentry(sentryFlushTimeout)
		if centralLogger != nil {
			return centralLogger.Close()
		}
		return nil
	}

	return rootCmd
}

// initialize sets up logging and error telemetry once flags are parsed.
func initialize(settings *conf.Settings) (*logger.CentralLogger, error) {
	logCfg := settings.Logging
	if settings.Debug {
		logCfg.DefaultLevel = "debug"
		if logCfg.Console != nil {
			console := *logCfg.Console
			console.Level = "debug"
			logCfg.Console = &console
		}
	}

	cl, err := logger.NewCentralLogger(&logCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logging: %w", err)
	}
	logger.SetGlobal(cl)

	if settings.Telemetry.Enabled {
		if err := errors.InitSentry(settings.Telemetry.DSN, settings.Version); err != nil {
			logger.Global().Module("telemetry").Warn("error telemetry disabled", logger.Error(err))
		}
	}
	return cl, nil
}

// setupFlags defines flags that are global to the command line interface
func setupFlags(rootCmd *cobra.Command, settings *conf.Settings) error {
	rootCmd.PersistentFlags().BoolVarP(&settings.Debug, "debug", "d", settings.Debug, "Enable debug output")
	rootCmd.PersistentFlags().StringVar(&settings.Session.Path, "session", settings.Session.Path, "Path to the session file")
	rootCmd.PersistentFlags().StringVar(&settings.Export.Local.Path, "export-path", settings.Export.Local.Path, "Path of the local leaderboard artifact")
	rootCmd.PersistentFlags().DurationVar(&settings.Export.Delay, "export-delay", settings.Export.Delay, "Debounce window before publishing changes")

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("error binding flags: %v", err)
	}
	return nil
}
