// conf/validate.go

package conf

import (
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ValidationError represents a collection of validation errors
type ValidationError struct {
	Errors []string
}

// Error returns a string representation of the validation errors
func (ve ValidationError) Error() string {
	return fmt.Sprintf("Validation errors: %v", ve.Errors)
}

// ValidateSettings validates the entire Settings struct
func ValidateSettings(settings *Settings) error {
	ve := ValidationError{}

	for _, validate := range []func(*Settings) []string{
		validateBoardSettings,
		validateExportSettings,
		validateRemoteSettings,
		validateNotificationSettings,
		validateOverlaySettings,
	} {
		ve.Errors = append(ve.Errors, validate(settings)...)
	}

	if len(ve.Errors) > 0 {
		return ve
	}
	return nil
}

func validateBoardSettings(s *Settings) []string {
	var errs []string
	b := &s.Board
	if b.MaxTotal <= 0 {
		errs = append(errs, "board.maxtotal must be positive")
	}
	if b.QualifyingMin < 0 || b.QualifyingMin > b.MaxTotal {
		errs = append(errs, fmt.Sprintf("board.qualifyingmin must be between 0 and %d, got %d", b.MaxTotal, b.QualifyingMin))
	}
	if b.LeaderboardLimit <= 0 {
		errs = append(errs, "board.leaderboardlimit must be positive")
	}
	if b.DisplaySlots <= 0 || b.DisplaySlots > b.LeaderboardLimit {
		errs = append(errs, "board.displayslots must be between 1 and board.leaderboardlimit")
	}
	return errs
}

func validateExportSettings(s *Settings) []string {
	var errs []string
	e := &s.Export
	if e.Delay < 0 {
		errs = append(errs, "export.delay must not be negative")
	}
	if e.Timeout <= 0 {
		errs = append(errs, "export.timeout must be positive")
	}
	if e.FTP.Enabled {
		if e.FTP.Host == "" {
			errs = append(errs, "export.ftp.host is required when FTP export is enabled")
		}
		if !validPort(e.FTP.Port) {
			errs = append(errs, fmt.Sprintf("export.ftp.port %d is out of range", e.FTP.Port))
		}
	}
	if e.SFTP.Enabled {
		if e.SFTP.Host == "" {
			errs = append(errs, "export.sftp.host is required when SFTP export is enabled")
		}
		if !validPort(e.SFTP.Port) {
			errs = append(errs, fmt.Sprintf("export.sftp.port %d is out of range", e.SFTP.Port))
		}
		if e.SFTP.Password == "" && e.SFTP.KeyFile == "" {
			errs = append(errs, "export.sftp needs a password or keyfile")
		}
	}
	if e.MQTT.Enabled {
		if e.MQTT.Broker == "" || e.MQTT.Topic == "" {
			errs = append(errs, "export.mqtt.broker and export.mqtt.topic are required when MQTT export is enabled")
		}
		if e.MQTT.QoS < 0 || e.MQTT.QoS > 2 {
			errs = append(errs, fmt.Sprintf("export.mqtt.qos must be 0, 1 or 2, got %d", e.MQTT.QoS))
		}
	}
	return errs
}

func validateRemoteSettings(s *Settings) []string {
	r := &s.Remote
	if !r.Enabled {
		return nil
	}

	var errs []string
	if err := validateEnvURL(r.BaseURL); err != nil {
		errs = append(errs, fmt.Sprintf("remote.baseurl: %v", err))
	}
	if strings.TrimSpace(r.Token) == "" {
		errs = append(errs, "remote.token is required when the remote service is enabled (set AIMB_ADMIN_TOKEN)")
	}
	if r.PollInterval <= 0 {
		errs = append(errs, "remote.pollinterval must be positive")
	}
	if r.Timeout <= 0 {
		errs = append(errs, "remote.timeout must be positive")
	}
	if r.RateLimit <= 0 {
		errs = append(errs, "remote.ratelimit must be positive")
	}
	return errs
}

func validateNotificationSettings(s *Settings) []string {
	n := &s.Notification
	if !n.Enabled {
		return nil
	}
	var errs []string
	if len(n.URLs) == 0 {
		errs = append(errs, "notification.urls must list at least one service when notifications are enabled")
	}
	for _, raw := range n.URLs {
		if u, err := url.Parse(raw); err != nil || u.Scheme == "" {
			errs = append(errs, "notification.urls contains an invalid service URL")
			break
		}
	}
	return errs
}

func validateOverlaySettings(s *Settings) []string {
	if !s.Overlay.Enabled {
		return nil
	}
	if _, _, err := net.SplitHostPort(s.Overlay.Listen); err != nil {
		return []string{fmt.Sprintf("overlay.listen %q is not host:port", s.Overlay.Listen)}
	}
	return nil
}

func validPort(port int) bool {
	return port > 0 && port <= 65535
}
