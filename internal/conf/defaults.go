package conf

import (
	"time"

	"github.com/spf13/viper"
)

// Show defaults.
const (
	DefaultQualifyingMin    = 30
	DefaultLeaderboardLimit = 50
	DefaultDisplaySlots     = 5
	DefaultMaxTotal         = 40
	DefaultExportDelay      = 1500 * time.Millisecond
	DefaultPollInterval     = 2500 * time.Millisecond
	DefaultRemoteTimeout    = 10 * time.Second
	DefaultRemoteBaseURL    = "https://aimusicboards.com"
	DefaultClaimedBy        = "mike-desktop"
	DefaultSubmissionNote   = "Submissions open during live reviews."
)

// setDefaultConfig sets default values for every configuration key
func setDefaultConfig() {
	viper.SetDefault("debug", false)
	viper.SetDefault("main.name", "AI Music Review Board")

	viper.SetDefault("logging.default_level", "info")
	viper.SetDefault("logging.timezone", "Local")
	viper.SetDefault("logging.console.enabled", true)
	viper.SetDefault("logging.console.level", "info")
	viper.SetDefault("logging.file_output.enabled", false)
	viper.SetDefault("logging.file_output.path", "logs/reviewboard.log")
	viper.SetDefault("logging.file_output.level", "debug")

	viper.SetDefault("board.qualifyingmin", DefaultQualifyingMin)
	viper.SetDefault("board.leaderboardlimit", DefaultLeaderboardLimit)
	viper.SetDefault("board.displayslots", DefaultDisplaySlots)
	viper.SetDefault("board.maxtotal", DefaultMaxTotal)
	viper.SetDefault("board.submissionnote", DefaultSubmissionNote)

	viper.SetDefault("session.path", "")

	viper.SetDefault("export.delay", DefaultExportDelay)
	viper.SetDefault("export.timeout", 30*time.Second)
	viper.SetDefault("export.local.enabled", true)
	viper.SetDefault("export.local.path", "")
	viper.SetDefault("export.ftp.enabled", false)
	viper.SetDefault("export.ftp.port", 21)
	viper.SetDefault("export.ftp.passwordfile", "")
	viper.SetDefault("export.ftp.path", "leaderboard.json")
	viper.SetDefault("export.ftp.timeout", 30*time.Second)
	viper.SetDefault("export.sftp.enabled", false)
	viper.SetDefault("export.sftp.port", 22)
	viper.SetDefault("export.sftp.passwordfile", "")
	viper.SetDefault("export.sftp.path", "leaderboard.json")
	viper.SetDefault("export.sftp.timeout", 30*time.Second)
	viper.SetDefault("export.mqtt.enabled", false)
	viper.SetDefault("export.mqtt.broker", "tcp://localhost:1883")
	viper.SetDefault("export.mqtt.topic", "reviewboard/leaderboard")
	viper.SetDefault("export.mqtt.passwordfile", "")
	viper.SetDefault("export.mqtt.clientid", "reviewboard")
	viper.SetDefault("export.mqtt.retain", true)
	viper.SetDefault("export.mqtt.qos", 1)

	viper.SetDefault("remote.enabled", false)
	viper.SetDefault("remote.baseurl", DefaultRemoteBaseURL)
	viper.SetDefault("remote.tokenfile", "")
	viper.SetDefault("remote.claimedby", DefaultClaimedBy)
	viper.SetDefault("remote.pollinterval", DefaultPollInterval)
	viper.SetDefault("remote.timeout", DefaultRemoteTimeout)
	viper.SetDefault("remote.ratelimit", 2.0)
	viper.SetDefault("remote.endpoints.queue", "/api/admin_queue")
	viper.SetDefault("remote.endpoints.claim", "/api/admin_claim")
	viper.SetDefault("remote.endpoints.score", "/api/admin_score")
	viper.SetDefault("remote.endpoints.toggle", "/api/admin_toggle")
	viper.SetDefault("remote.endpoints.nowplaying", "/api/now_playing")

	viper.SetDefault("notification.enabled", false)
	viper.SetDefault("notification.urls", []string{})
	viper.SetDefault("notification.timeout", 10*time.Second)

	viper.SetDefault("overlay.enabled", false)
	viper.SetDefault("overlay.listen", "127.0.0.1:8787")

	viper.SetDefault("history.enabled", true)
	viper.SetDefault("history.path", "")

	viper.SetDefault("telemetry.enabled", false)
	viper.SetDefault("telemetry.dsn", "")
}
