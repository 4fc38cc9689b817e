package targets

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"path"
	"strconv"
	"strings"
	"time"

	"github.com/jlaffaye/ftp"

	"github.com/aimusicboards/reviewboard/internal/errors"
	"github.com/aimusicboards/reviewboard/internal/logger"
)

const ftpTempPrefix = ".upload-"

// FTPTargetConfig holds configuration for the FTP target.
type FTPTargetConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	// RemotePath is the full path of the artifact on the server.
	RemotePath string
	Timeout    time.Duration
	Retry      RetryConfig
}

// FTPTarget uploads the artifact to a web host over FTP.
type FTPTarget struct {
	config FTPTargetConfig
	log    logger.Logger
}

// NewFTPTarget validates config and returns an FTPTarget.
func NewFTPTarget(config FTPTargetConfig, log logger.Logger) (*FTPTarget, error) {
	if config.Host == "" {
		return nil, configError("ftp", "host is required")
	}
	if config.RemotePath == "" {
		return nil, configError("ftp", "remote path is required")
	}
	if config.Port == 0 {
		config.Port = DefaultFTPPort
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Retry.MaxRetries == 0 {
		config.Retry = DefaultRetryConfig()
	}
	if log == nil {
		log = logger.Global().Module("export")
	}
	return &FTPTarget{config: config, log: log.Module("ftp")}, nil
}

// Name implements export.Target.
func (t *FTPTarget) Name() string { return "ftp" }

// Publish implements export.Target. The artifact is stored under a
// temporary name and renamed over the live file.
func (t *FTPTarget) Publish(ctx context.Context, artifact []byte) error {
	return WithRetry(ctx, t.config.Retry, func() error {
		conn, err := t.connect(ctx)
		if err != nil {
			return err
		}
		defer func() {
			if err := conn.Quit(); err != nil {
				t.log.Debug("failed to close FTP connection", logger.Error(err))
			}
		}()
		return t.upload(conn, artifact)
	})
}

func (t *FTPTarget) connect(ctx context.Context) (*ftp.ServerConn, error) {
	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))
	conn, err := ftp.Dial(addr,
		ftp.DialWithContext(ctx),
		ftp.DialWithTimeout(t.config.Timeout))
	if err != nil {
		return nil, fmt.Errorf("ftp: connection failed: %w", err)
	}

	if t.config.Username != "" {
		if err := conn.Login(t.config.Username, t.config.Password); err != nil {
			_ = conn.Quit()
			return nil, errors.New(fmt.Errorf("ftp: login failed: %w", err)).
				Component("export").
				Category(errors.CategoryConfiguration).
				Context("host", t.config.Host).
				Build()
		}
	}
	return conn, nil
}

func (t *FTPTarget) upload(conn *ftp.ServerConn, artifact []byte) error {
	dir := path.Dir(t.config.RemotePath)
	if err := ensureFTPDir(conn, dir); err != nil {
		return err
	}

	tempName := path.Join(dir, fmt.Sprintf("%s%d", ftpTempPrefix, time.Now().UnixNano()))
	if err := conn.Stor(tempName, bytes.NewReader(artifact)); err != nil {
		_ = conn.Delete(tempName)
		return fmt.Errorf("ftp: failed to store file: %w", err)
	}

	if err := conn.Rename(tempName, t.config.RemotePath); err != nil {
		// Some servers refuse to rename over an existing file.
		_ = conn.Delete(t.config.RemotePath)
		if err := conn.Rename(tempName, t.config.RemotePath); err != nil {
			_ = conn.Delete(tempName)
			return fmt.Errorf("ftp: failed to rename temporary file: %w", err)
		}
	}

	t.log.Debug("artifact uploaded",
		logger.String("host", t.config.Host),
		logger.String("path", t.config.RemotePath),
		logger.Int("bytes", len(artifact)))
	return nil
}

func ensureFTPDir(conn *ftp.ServerConn, dir string) error {
	if dir == "" || dir == "." || dir == "/" {
		return nil
	}

	current, err := conn.CurrentDir()
	if err != nil {
		return fmt.Errorf("ftp: failed to get current directory: %w", err)
	}
	if err := conn.ChangeDir(dir); err == nil {
		_ = conn.ChangeDir(current)
		return nil
	}

	if err := conn.MakeDir(dir); err != nil {
		msg := strings.ToLower(err.Error())
		if strings.Contains(msg, "exists") || strings.Contains(msg, "550") {
			return nil
		}
		return fmt.Errorf("ftp: failed to create directory %s: %w", dir, err)
	}
	return nil
}

// Close implements export.Target.
func (t *FTPTarget) Close() error { return nil }
