// env.go - Environment variable configuration and validation
package conf

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// envBinding holds metadata for environment variable bindings (internal use)
type envBinding struct {
	ConfigKey string             // Viper config key
	EnvVar    string             // Environment variable name
	Validate  func(string) error // Optional validation function
}

// getEnvBindings returns all environment variable bindings with validation
func getEnvBindings() []envBinding {
	return []envBinding{
		// Remote review service, names shared with the desktop control room
		{"remote.baseurl", "AIMB_API_BASE", validateEnvURL},
		{"remote.token", "AIMB_ADMIN_TOKEN", nil},
		{"remote.tokenfile", "AIMB_ADMIN_TOKEN_FILE", nil},
		{"remote.claimedby", "AIMB_CLAIMED_BY", validateEnvClaimedBy},
		{"remote.enabled", "REVIEWBOARD_REMOTE_ENABLED", validateEnvBool},

		{"debug", "REVIEWBOARD_DEBUG", validateEnvBool},
		{"session.path", "REVIEWBOARD_SESSION_PATH", nil},
		{"export.local.path", "REVIEWBOARD_EXPORT_PATH", nil},
		{"export.delay", "REVIEWBOARD_EXPORT_DELAY", validateEnvDuration},
		{"board.qualifyingmin", "REVIEWBOARD_QUALIFYING_MIN", validateEnvQualifyingMin},
		{"export.ftp.passwordfile", "REVIEWBOARD_FTP_PASSWORD_FILE", nil},
		{"export.sftp.passwordfile", "REVIEWBOARD_SFTP_PASSWORD_FILE", nil},
		{"export.mqtt.password", "REVIEWBOARD_MQTT_PASSWORD", nil},
		{"export.mqtt.passwordfile", "REVIEWBOARD_MQTT_PASSWORD_FILE", nil},
		{"overlay.listen", "REVIEWBOARD_OVERLAY_LISTEN", nil},
		{"telemetry.dsn", "SENTRY_DSN", nil},
	}
}

// bindEnvVars binds every environment variable and reports invalid values.
// Invalid values are still bound; ValidateSettings rejects them afterwards.
func bindEnvVars() error {
	var warnings []string

	for _, binding := range getEnvBindings() {
		if err := viper.BindEnv(binding.ConfigKey, binding.EnvVar); err != nil {
			warnings = append(warnings, fmt.Sprintf("failed to bind %s: %v", binding.EnvVar, err))
			continue
		}

		if binding.Validate == nil {
			continue
		}
		if value := os.Getenv(binding.EnvVar); value != "" {
			if err := binding.Validate(value); err != nil {
				warnings = append(warnings, fmt.Sprintf("invalid %s value %q: %v", binding.EnvVar, value, err))
			}
		}
	}

	if len(warnings) > 0 {
		return fmt.Errorf("environment variable issues:\n  - %s", strings.Join(warnings, "\n  - "))
	}
	return nil
}

func validateEnvBool(value string) error {
	if _, err := strconv.ParseBool(value); err != nil {
		return fmt.Errorf("must be true/false, 1/0, t/f")
	}
	return nil
}

func validateEnvURL(value string) error {
	u, err := url.Parse(value)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("scheme must be http or https, got %q", u.Scheme)
	}
	if u.Host == "" {
		return fmt.Errorf("missing host")
	}
	return nil
}

func validateEnvClaimedBy(value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("must not be blank")
	}
	if len(value) > 64 {
		return fmt.Errorf("must be at most 64 characters, got %d", len(value))
	}
	return nil
}

func validateEnvDuration(value string) error {
	d, err := time.ParseDuration(value)
	if err != nil {
		return err
	}
	if d < 0 {
		return fmt.Errorf("must not be negative")
	}
	return nil
}

func validateEnvQualifyingMin(value string) error {
	n, err := strconv.Atoi(value)
	if err != nil {
		return err
	}
	if n < 0 || n > 50 {
		return fmt.Errorf("must be between 0 and 50, got %d", n)
	}
	return nil
}
