package targets

import (
	"github.com/aimusicboards/reviewboard/internal/conf"
	"github.com/aimusicboards/reviewboard/internal/export"
	"github.com/aimusicboards/reviewboard/internal/logger"
)

// FromSettings builds every enabled target. Targets already built are
// closed if a later one fails to configure.
func FromSettings(s *conf.ExportSettings, log logger.Logger) ([]export.Target, error) {
	var out []export.Target
	fail := func(err error) ([]export.Target, error) {
		for _, t := range out {
			_ = t.Close()
		}
		return nil, err
	}

	if s.Local.Enabled {
		t, err := NewLocalTarget(s.Local.Path)
		if err != nil {
			return fail(err)
		}
		out = append(out, t)
	}

	if s.FTP.Enabled {
		t, err := NewFTPTarget(FTPTargetConfig{
			Host:       s.FTP.Host,
			Port:       s.FTP.Port,
			Username:   s.FTP.Username,
			Password:   s.FTP.Password,
			RemotePath: s.FTP.Path,
			Timeout:    s.FTP.Timeout,
		}, log)
		if err != nil {
			return fail(err)
		}
		out = append(out, t)
	}

	if s.SFTP.Enabled {
		t, err := NewSFTPTarget(SFTPTargetConfig{
			Host:           s.SFTP.Host,
			Port:           s.SFTP.Port,
			Username:       s.SFTP.Username,
			Password:       s.SFTP.Password,
			KeyFile:        s.SFTP.KeyFile,
			KnownHostsFile: s.SFTP.KnownHostsFile,
			RemotePath:     s.SFTP.Path,
			Timeout:        s.SFTP.Timeout,
		}, log)
		if err != nil {
			return fail(err)
		}
		out = append(out, t)
	}

	if s.MQTT.Enabled {
		t, err := NewMQTTTarget(MQTTTargetConfig{
			Broker:   s.MQTT.Broker,
			Topic:    s.MQTT.Topic,
			ClientID: s.MQTT.ClientID,
			Username: s.MQTT.Username,
			Password: s.MQTT.Password,
			QoS:      byte(s.MQTT.QoS),
			Retain:   s.MQTT.Retain,
		}, log)
		if err != nil {
			return fail(err)
		}
		out = append(out, t)
	}

	return out, nil
}
