package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolateConfig points HOME at a temp dir and resets the global viper instance.
func isolateConfig(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("APPDATA", filepath.Join(home, "AppData", "Roaming"))
	viper.Reset()
	t.Cleanup(viper.Reset)
	return home
}

func TestLoadCreatesDefaultConfig(t *testing.T) {
	home := isolateConfig(t)

	settings, err := Load()
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(home, ".config", "reviewboard", "config.yaml"))
	assert.Equal(t, 30, settings.Board.QualifyingMin)
	assert.Equal(t, 50, settings.Board.LeaderboardLimit)
	assert.Equal(t, 5, settings.Board.DisplaySlots)
	assert.Equal(t, 1500*time.Millisecond, settings.Export.Delay)
	assert.Equal(t, 2500*time.Millisecond, settings.Remote.PollInterval)
	assert.Equal(t, 10*time.Second, settings.Remote.Timeout)
	assert.Equal(t, DefaultRemoteBaseURL, settings.Remote.BaseURL)
	assert.Equal(t, "/api/admin_queue", settings.Remote.Endpoints.Queue)
	assert.True(t, settings.Export.Local.Enabled)

	dataDir := filepath.Join(home, ".config", "ai_music_review_board")
	assert.Equal(t, filepath.Join(dataDir, SessionFileName), settings.Session.Path)
	assert.Equal(t, filepath.Join(dataDir, ArtifactFileName), settings.Export.Local.Path)
	assert.Equal(t, filepath.Join(dataDir, HistoryFileName), settings.History.Path)
	assert.Same(t, settings, GetSettings())
}

func TestLoadEnvironmentOverrides(t *testing.T) {
	isolateConfig(t)
	t.Setenv("AIMB_API_BASE", "https://staging.example.test")
	t.Setenv("AIMB_ADMIN_TOKEN", "admin-token")
	t.Setenv("AIMB_CLAIMED_BY", "studio-b")
	t.Setenv("REVIEWBOARD_REMOTE_ENABLED", "true")
	t.Setenv("REVIEWBOARD_EXPORT_DELAY", "250ms")

	settings, err := Load()
	require.NoError(t, err)

	assert.True(t, settings.Remote.Enabled)
	assert.Equal(t, "https://staging.example.test", settings.Remote.BaseURL)
	assert.Equal(t, "admin-token", settings.Remote.Token)
	assert.Equal(t, "studio-b", settings.Remote.ClaimedBy)
	assert.Equal(t, 250*time.Millisecond, settings.Export.Delay)
}

func TestLoadRejectsRemoteWithoutToken(t *testing.T) {
	isolateConfig(t)
	t.Setenv("REVIEWBOARD_REMOTE_ENABLED", "true")
	t.Setenv("AIMB_ADMIN_TOKEN", "")

	_, err := Load()
	require.Error(t, err)

	var ve ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Contains(t, ve.Errors[0], "remote.token")
}

func TestSaveYAMLConfig(t *testing.T) {
	isolateConfig(t)
	settings, err := Load()
	require.NoError(t, err)

	settings.Board.QualifyingMin = 28
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, SaveYAMLConfig(path, settings))

	data, err := os.ReadFile(path) //nolint:gosec // test path
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, yaml.Unmarshal(data, &raw))
	board, ok := raw["board"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 28, board["qualifyingmin"])

	export, ok := raw["export"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "1.5s", export["delay"])
}

func TestAppDataDirIsCreated(t *testing.T) {
	home := isolateConfig(t)

	dir, err := AppDataDir()
	require.NoError(t, err)

	assert.DirExists(t, dir)
	assert.Equal(t, filepath.Join(home, ".config", "ai_music_review_board"), dir)
}

func TestLoadResolvesSecrets(t *testing.T) {
	isolateConfig(t)
	tokenFile := filepath.Join(t.TempDir(), "admin_token")
	require.NoError(t, os.WriteFile(tokenFile, []byte("file-token\n"), 0o600))

	t.Setenv("REVIEWBOARD_REMOTE_ENABLED", "true")
	t.Setenv("AIMB_ADMIN_TOKEN", "")
	t.Setenv("AIMB_ADMIN_TOKEN_FILE", tokenFile)
	t.Setenv("RB_TEST_MQTT_PASSWORD", "broker-pw")
	t.Setenv("REVIEWBOARD_MQTT_PASSWORD", "${RB_TEST_MQTT_PASSWORD}")

	settings, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "file-token", settings.Remote.Token)
	assert.Equal(t, "broker-pw", settings.Export.MQTT.Password)
}

func TestLoadRejectsMissingSecretFile(t *testing.T) {
	isolateConfig(t)
	t.Setenv("REVIEWBOARD_FTP_PASSWORD_FILE", filepath.Join(t.TempDir(), "missing"))

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "export.ftp.password")
}
