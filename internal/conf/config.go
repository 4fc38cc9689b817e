// Package conf provides configuration management for the review board.
package conf

import (
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
	"github.com/aimusicboards/reviewboard/internal/secrets"
)

//go:embed config.yaml
var configFiles embed.FS

// BoardSettings controls ranking and display of the leaderboard.
type BoardSettings struct {
	QualifyingMin    int    // minimum total for an entry to appear on the board
	LeaderboardLimit int    // number of ranked rows exported
	DisplaySlots     int    // fixed number of rows on the live display
	MaxTotal         int    // rubric maximum shown as "34/40"
	SubmissionNote   string // free text published with the artifact
}

// SessionSettings locates the persisted session file.
type SessionSettings struct {
	Path string // empty resolves to the per-user app data directory
}

// LocalExportSettings writes the artifact to a local file.
type LocalExportSettings struct {
	Enabled bool
	Path    string
}

// FTPExportSettings uploads the artifact to a website over FTP.
type FTPExportSettings struct {
	Enabled      bool
	Host         string
	Port         int
	Username     string
	Password     string
	PasswordFile string // read the password from this file instead
	Path         string // remote file path
	Timeout      time.Duration
}

// SFTPExportSettings uploads the artifact over SFTP.
type SFTPExportSettings struct {
	Enabled        bool
	Host           string
	Port           int
	Username       string
	Password       string
	PasswordFile   string
	KeyFile        string
	KnownHostsFile string
	Path           string
	Timeout        time.Duration
}

// MQTTExportSettings publishes the artifact as a retained MQTT message.
type MQTTExportSettings struct {
	Enabled      bool
	Broker       string
	Topic        string
	Username     string
	Password     string
	PasswordFile string
	ClientID     string
	Retain       bool
	QoS          int
}

// ExportSettings configures the debounced artifact publisher and its targets.
type ExportSettings struct {
	Delay   time.Duration // debounce window
	Timeout time.Duration // per publish attempt
	Local   LocalExportSettings
	FTP     FTPExportSettings
	SFTP    SFTPExportSettings
	MQTT    MQTTExportSettings
}

// RemoteEndpoints are the paths of the remote admin API.
type RemoteEndpoints struct {
	Queue      string
	Claim      string
	Score      string
	Toggle     string
	NowPlaying string
}

// RemoteSettings configures the remote review service client.
type RemoteSettings struct {
	Enabled      bool
	BaseURL      string
	Token        string // may reference the environment, e.g. ${AIMB_ADMIN_TOKEN}
	TokenFile    string // read the token from this file instead
	ClaimedBy    string
	PollInterval time.Duration
	Timeout      time.Duration
	RateLimit    float64 // requests per second
	Endpoints    RemoteEndpoints
}

// NotificationSettings configures host alerts for paid submissions.
type NotificationSettings struct {
	Enabled bool
	URLs    []string // shoutrrr service URLs
	Timeout time.Duration
}

// OverlaySettings configures the HTTP feed read by stream overlays.
type OverlaySettings struct {
	Enabled bool
	Listen  string
}

// HistorySettings configures the review archive database.
type HistorySettings struct {
	Enabled bool
	Path    string
}

// TelemetrySettings configures error reporting.
type TelemetrySettings struct {
	Enabled bool
	DSN     string
}

// Settings contains all configuration options for the review board.
type Settings struct {
	Debug bool // true to enable debug logging

	// Runtime values, not stored in config file
	Version string `yaml:"-" mapstructure:"-"`

	Main struct {
		Name string // show name printed in text exports
	}

	Logging      logger.LoggingConfig
	Board        BoardSettings
	Session      SessionSettings
	Export       ExportSettings
	Remote       RemoteSettings
	Notification NotificationSettings
	Overlay      OverlaySettings
	History      HistorySettings
	Telemetry    TelemetrySettings
}

var (
	settingsInstance *Settings
	settingsMutex    sync.RWMutex
)

// Load reads the configuration file and environment variables into Settings.
func Load() (*Settings, error) {
	settingsMutex.Lock()
	defer settingsMutex.Unlock()

	if err := initViper(); err != nil {
		return nil, fmt.Errorf("error initializing viper: %w", err)
	}

	settings := &Settings{}
	if err := viper.Unmarshal(settings); err != nil {
		return nil, errors.New(err).
			Component("config").
			Category(errors.CategoryConfiguration).
			Context("operation", "unmarshal").
			Build()
	}

	if err := resolvePaths(settings); err != nil {
		return nil, err
	}
	if err := resolveSecrets(settings); err != nil {
		return nil, err
	}

	if err := ValidateSettings(settings); err != nil {
		return nil, fmt.Errorf("error validating settings: %w", err)
	}

	settingsInstance = settings
	return settingsInstance, nil
}

// initViper registers defaults, binds environment variables and reads the
// config file, creating it from the embedded template on first run.
func initViper() error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	configPaths, err := GetDefaultConfigPaths()
	if err != nil {
		return err
	}
	for _, path := range configPaths {
		viper.AddConfigPath(path)
	}

	setDefaultConfig()

	if err := bindEnvVars(); err != nil {
		GetLogger().Warn("environment configuration problems", logger.Error(err))
	}

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return createDefaultConfig(configPaths[0])
		}
		return fmt.Errorf("fatal error reading config file: %w", err)
	}
	return nil
}

// createDefaultConfig writes the embedded config template to dir and reads it back.
func createDefaultConfig(dir string) error {
	configPath := filepath.Join(dir, "config.yaml")

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("error creating directories for config file: %w", err)
	}
	if err := os.WriteFile(configPath, []byte(getDefaultConfig()), 0o600); err != nil {
		return fmt.Errorf("error writing default config file: %w", err)
	}

	GetLogger().Info("created default config file", logger.String("path", configPath))
	return viper.ReadInConfig()
}

func getDefaultConfig() string {
	data, err := fs.ReadFile(configFiles, "config.yaml")
	if err != nil {
		// The template is embedded at build time.
		panic(fmt.Sprintf("embedded config.yaml missing: %v", err))
	}
	return string(data)
}

// resolvePaths fills empty file locations with per-user defaults.
func resolvePaths(settings *Settings) error {
	if settings.Session.Path != "" && settings.Export.Local.Path != "" && settings.History.Path != "" {
		return nil
	}

	dir, err := AppDataDir()
	if err != nil {
		return err
	}
	if settings.Session.Path == "" {
		settings.Session.Path = filepath.Join(dir, SessionFileName)
	}
	if settings.Export.Local.Path == "" {
		settings.Export.Local.Path = filepath.Join(dir, ArtifactFileName)
	}
	if settings.History.Path == "" {
		settings.History.Path = filepath.Join(dir, HistoryFileName)
	}
	return nil
}

// resolveSecrets replaces credentials with their file or environment values.
func resolveSecrets(settings *Settings) error {
	fields := []struct {
		name  string
		file  string
		value *string
	}{
		{"remote.token", settings.Remote.TokenFile, &settings.Remote.Token},
		{"export.ftp.password", settings.Export.FTP.PasswordFile, &settings.Export.FTP.Password},
		{"export.sftp.password", settings.Export.SFTP.PasswordFile, &settings.Export.SFTP.Password},
		{"export.mqtt.password", settings.Export.MQTT.PasswordFile, &settings.Export.MQTT.Password},
		{"telemetry.dsn", "", &settings.Telemetry.DSN},
	}

	var errs []error
	for _, f := range fields {
		v, err := secrets.Resolve(f.file, *f.value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", f.name, err))
			continue
		}
		*f.value = v
	}
	return errors.Join(errs...)
}

// GetSettings returns the current settings instance
func GetSettings() *Settings {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()
	return settingsInstance
}

// SaveSettings writes the current settings back to the config file in use.
func SaveSettings() error {
	settingsMutex.RLock()
	defer settingsMutex.RUnlock()

	if settingsInstance == nil {
		return errors.Newf("settings not loaded").Component("config").Category(errors.CategoryState).Build()
	}

	configPath, err := FindConfigFile()
	if err != nil {
		return err
	}
	return SaveYAMLConfig(configPath, settingsInstance)
}

// SaveYAMLConfig writes settings to configPath through a temporary file and
// rename. Comments in the existing file are not preserved.
func SaveYAMLConfig(configPath string, settings *Settings) error {
	yamlData, err := yaml.Marshal(settings)
	if err != nil {
		return fmt.Errorf("error marshaling settings to YAML: %w", err)
	}

	tempFile, err := os.CreateTemp(filepath.Dir(configPath), "config-*.yaml")
	if err != nil {
		return fmt.Errorf("error creating temporary file: %w", err)
	}
	tempFileName := tempFile.Name()
	defer func() { _ = os.Remove(tempFileName) }()

	if _, err := tempFile.Write(yamlData); err != nil {
		_ = tempFile.Close()
		return fmt.Errorf("error writing to temporary file: %w", err)
	}
	if err := tempFile.Close(); err != nil {
		return fmt.Errorf("error closing temporary file: %w", err)
	}

	if err := moveFile(tempFileName, configPath); err != nil {
		return fmt.Errorf("error replacing config file: %w", err)
	}
	return nil
}

// GetLogger returns the config package logger.
func GetLogger() logger.Logger {
	return logger.Global().Module("config")
}
