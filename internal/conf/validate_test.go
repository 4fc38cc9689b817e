package conf

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validSettings() *Settings {
	s := &Settings{}
	s.Board = BoardSettings{QualifyingMin: 30, LeaderboardLimit: 50, DisplaySlots: 5, MaxTotal: 40}
	s.Export.Delay = 1500 * time.Millisecond
	s.Export.Timeout = 30 * time.Second
	s.Remote = RemoteSettings{
		BaseURL:      DefaultRemoteBaseURL,
		PollInterval: DefaultPollInterval,
		Timeout:      DefaultRemoteTimeout,
		RateLimit:    2,
	}
	s.Overlay.Listen = "127.0.0.1:8787"
	return s
}

func TestValidateSettings(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		mutate  func(*Settings)
		wantErr string
	}{
		{"defaults are valid", func(*Settings) {}, ""},
		{"qualifying above max", func(s *Settings) { s.Board.QualifyingMin = 41 }, "board.qualifyingmin"},
		{"display larger than board", func(s *Settings) { s.Board.DisplaySlots = 60 }, "board.displayslots"},
		{"negative delay", func(s *Settings) { s.Export.Delay = -time.Second }, "export.delay"},
		{"ftp without host", func(s *Settings) { s.Export.FTP = FTPExportSettings{Enabled: true, Port: 21} }, "export.ftp.host"},
		{"sftp without credentials", func(s *Settings) {
			s.Export.SFTP = SFTPExportSettings{Enabled: true, Host: "example.test", Port: 22}
		}, "password or keyfile"},
		{"mqtt bad qos", func(s *Settings) {
			s.Export.MQTT = MQTTExportSettings{Enabled: true, Broker: "tcp://b:1883", Topic: "t", QoS: 3}
		}, "export.mqtt.qos"},
		{"remote without token", func(s *Settings) { s.Remote.Enabled = true }, "remote.token"},
		{"remote bad base url", func(s *Settings) {
			s.Remote.Enabled = true
			s.Remote.Token = "x"
			s.Remote.BaseURL = "ftp://nope"
		}, "remote.baseurl"},
		{"notifications without urls", func(s *Settings) { s.Notification.Enabled = true }, "notification.urls"},
		{"overlay bad listen", func(s *Settings) {
			s.Overlay.Enabled = true
			s.Overlay.Listen = "8787"
		}, "overlay.listen"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := validSettings()
			tt.mutate(s)

			err := ValidateSettings(s)
			if tt.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestEnvValidators(t *testing.T) {
	t.Parallel()

	assert.NoError(t, validateEnvURL("https://aimusicboards.com"))
	assert.Error(t, validateEnvURL("aimusicboards.com"))
	assert.NoError(t, validateEnvClaimedBy("mike-desktop"))
	assert.Error(t, validateEnvClaimedBy("   "))
	assert.NoError(t, validateEnvDuration("1500ms"))
	assert.Error(t, validateEnvDuration("-1s"))
	assert.NoError(t, validateEnvQualifyingMin("30"))
	assert.Error(t, validateEnvQualifyingMin("51"))
	assert.NoError(t, validateEnvBool("true"))
	assert.Error(t, validateEnvBool("yes please"))
}
