package targets

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"strconv"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/knownhosts"

	"github.com/aimusicboards/reviewboard/internal/logger"
)

// SFTPTargetConfig holds configuration for the SFTP target.
type SFTPTargetConfig struct {
	Host           string
	Port           int
	Username       string
	Password       string
	KeyFile        string
	KnownHostsFile string
	RemotePath     string
	Timeout        time.Duration
	Retry          RetryConfig
}

// SFTPTarget uploads the artifact over SFTP, verifying the server against
// a known_hosts file.
type SFTPTarget struct {
	config    SFTPTargetConfig
	sshConfig *ssh.ClientConfig
	log       logger.Logger
}

// NewSFTPTarget validates config, loads credentials and host keys, and
// returns an SFTPTarget.
func NewSFTPTarget(config SFTPTargetConfig, log logger.Logger) (*SFTPTarget, error) {
	if config.Host == "" {
		return nil, configError("sftp", "host is required")
	}
	if config.RemotePath == "" {
		return nil, configError("sftp", "remote path is required")
	}
	if config.Port == 0 {
		config.Port = DefaultSSHPort
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}
	if config.Retry.MaxRetries == 0 {
		config.Retry = DefaultRetryConfig()
	}
	if config.KnownHostsFile == "" {
		config.KnownHostsFile = DefaultKnownHostsFile()
	}
	if log == nil {
		log = logger.Global().Module("export")
	}

	auth, err := sshAuth(&config)
	if err != nil {
		return nil, err
	}
	hostKeys, err := knownhosts.New(config.KnownHostsFile)
	if err != nil {
		return nil, configError("sftp", fmt.Sprintf("failed to load known hosts %s: %v", config.KnownHostsFile, err))
	}

	return &SFTPTarget{
		config: config,
		sshConfig: &ssh.ClientConfig{
			User:            config.Username,
			Auth:            auth,
			HostKeyCallback: hostKeys,
			Timeout:         config.Timeout,
		},
		log: log.Module("sftp"),
	}, nil
}

func sshAuth(config *SFTPTargetConfig) ([]ssh.AuthMethod, error) {
	switch {
	case config.KeyFile != "":
		key, err := os.ReadFile(config.KeyFile)
		if err != nil {
			return nil, configError("sftp", fmt.Sprintf("failed to read private key: %v", err))
		}
		var signer ssh.Signer
		if config.Password != "" {
			signer, err = ssh.ParsePrivateKeyWithPassphrase(key, []byte(config.Password))
		} else {
			signer, err = ssh.ParsePrivateKey(key)
		}
		if err != nil {
			return nil, configError("sftp", fmt.Sprintf("failed to parse private key: %v", err))
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	case config.Password != "":
		return []ssh.AuthMethod{ssh.Password(config.Password)}, nil
	default:
		return nil, configError("sftp", "no authentication method provided")
	}
}

// Name implements export.Target.
func (t *SFTPTarget) Name() string { return "sftp" }

// Publish implements export.Target.
func (t *SFTPTarget) Publish(ctx context.Context, artifact []byte) error {
	return WithRetry(ctx, t.config.Retry, func() error {
		client, closeConn, err := t.connect(ctx)
		if err != nil {
			return err
		}
		defer closeConn()
		return t.upload(client, artifact)
	})
}

func (t *SFTPTarget) connect(ctx context.Context) (*sftp.Client, func(), error) {
	addr := net.JoinHostPort(t.config.Host, strconv.Itoa(t.config.Port))

	dialer := net.Dialer{Timeout: t.config.Timeout}
	netConn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, nil, fmt.Errorf("sftp: failed to connect: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = netConn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(netConn, addr, t.sshConfig)
	if err != nil {
		_ = netConn.Close()
		return nil, nil, fmt.Errorf("sftp: ssh handshake failed: %w", err)
	}
	sshClient := ssh.NewClient(sshConn, chans, reqs)

	client, err := sftp.NewClient(sshClient)
	if err != nil {
		_ = sshClient.Close()
		return nil, nil, fmt.Errorf("sftp: failed to create client: %w", err)
	}

	closeConn := func() {
		if err := client.Close(); err != nil {
			t.log.Debug("failed to close SFTP client", logger.Error(err))
		}
		_ = sshClient.Close()
	}
	return client, closeConn, nil
}

func (t *SFTPTarget) upload(client *sftp.Client, artifact []byte) error {
	dir := path.Dir(t.config.RemotePath)
	if err := client.MkdirAll(dir); err != nil {
		return fmt.Errorf("sftp: failed to create directory %s: %w", dir, err)
	}

	tempName := path.Join(dir, fmt.Sprintf(".upload-%d", time.Now().UnixNano()))
	f, err := client.Create(tempName)
	if err != nil {
		return fmt.Errorf("sftp: failed to create file: %w", err)
	}
	if _, err := io.Copy(f, bytes.NewReader(artifact)); err != nil {
		_ = f.Close()
		_ = client.Remove(tempName)
		return fmt.Errorf("sftp: failed to write file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = client.Remove(tempName)
		return fmt.Errorf("sftp: failed to close file: %w", err)
	}

	if err := client.PosixRename(tempName, t.config.RemotePath); err != nil {
		// Servers without the posix-rename extension need the target gone first.
		_ = client.Remove(t.config.RemotePath)
		if err := client.Rename(tempName, t.config.RemotePath); err != nil {
			_ = client.Remove(tempName)
			return fmt.Errorf("sftp: failed to rename temporary file: %w", err)
		}
	}

	t.log.Debug("artifact uploaded",
		logger.String("host", t.config.Host),
		logger.String("path", t.config.RemotePath),
		logger.Int("bytes", len(artifact)))
	return nil
}

// Close implements export.Target.
func (t *SFTPTarget) Close() error { return nil }
