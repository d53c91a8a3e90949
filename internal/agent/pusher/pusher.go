package pusher

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"go.uber.org/zap"
	"golang.org/x/crypto/ssh"
	"golang.org/x/crypto/ssh/agent"
	"golang.org/x/crypto/ssh/knownhosts"
)

// pushTimeout bounds one whole push including dial and transfer
const pushTimeout = 30 * time.Second

// Config represents push transport configuration
type Config struct {
	// Destination is the server specifier, user@host[:port]
	Destination string
	// RemotePath is where the address file lands on the server host
	RemotePath string
	// KeyFile is an optional private-key path; when empty, ssh-agent and
	// the default keys under ~/.ssh are tried
	KeyFile string
	// KnownHostsFile verifies the server's host key; defaults to
	// ~/.ssh/known_hosts
	KnownHostsFile string
	// InsecureHostKey disables host-key verification. This trades away
	// protection against server impersonation and must be an explicit
	// operator decision
	InsecureHostKey bool
}

// Pusher transfers the current address to the server host over SSH
type Pusher struct {
	config Config
	logger *zap.Logger
}

// NewPusher creates a new Pusher
func NewPusher(cfg Config, logger *zap.Logger) (*Pusher, error) {
	if _, _, _, err := ParseDestination(cfg.Destination); err != nil {
		return nil, err
	}
	if cfg.InsecureHostKey {
		logger.Warn("SSH host-key verification is disabled")
	}
	return &Pusher{
		config: cfg,
		logger: logger,
	}, nil
}

// ParseDestination splits user@host[:port] into its parts. User defaults
// to $USER and port to 22
func ParseDestination(dest string) (user, host, port string, err error) {
	if dest == "" {
		return "", "", "", fmt.Errorf("destination cannot be empty")
	}

	hostPart := dest
	if at := strings.LastIndex(dest, "@"); at >= 0 {
		user = dest[:at]
		hostPart = dest[at+1:]
		if user == "" {
			return "", "", "", fmt.Errorf("invalid destination %q: empty user", dest)
		}
	}
	if user == "" {
		user = os.Getenv("USER")
		if user == "" {
			return "", "", "", fmt.Errorf("invalid destination %q: no user and $USER unset", dest)
		}
	}

	host = hostPart
	port = "22"
	if h, p, splitErr := net.SplitHostPort(hostPart); splitErr == nil {
		host = h
		port = p
	}
	if host == "" {
		return "", "", "", fmt.Errorf("invalid destination %q: empty host", dest)
	}

	return user, host, port, nil
}

// Push writes the address to a scoped temporary file and transfers it to
// destination:remotePath. The temporary file is removed on every exit
// path. The remote write goes through a temporary name and a rename so
// the server never sees a partial file
func (p *Pusher) Push(ctx context.Context, ip string) error {
	tmpFile, err := os.CreateTemp("", "ipbeacon-*.txt")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	defer func() {
		_ = os.Remove(tmpFile.Name())
	}()

	if _, err := tmpFile.WriteString(ip); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write temporary file: %w", err)
	}
	if err := tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close temporary file: %w", err)
	}

	pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
	defer cancel()

	if err := p.transfer(pushCtx, tmpFile.Name()); err != nil {
		return err
	}

	p.logger.Info("Successfully pushed address",
		zap.String("ip", ip),
		zap.String("destination", p.config.Destination),
		zap.String("remote_path", p.config.RemotePath))

	return nil
}

// transfer copies the local file to the configured remote path over SFTP
func (p *Pusher) transfer(ctx context.Context, localPath string) error {
	user, host, port, err := ParseDestination(p.config.Destination)
	if err != nil {
		return err
	}

	hostKeyCallback, err := p.hostKeyCallback()
	if err != nil {
		return err
	}

	authMethods, err := p.authMethods()
	if err != nil {
		return err
	}

	clientConfig := &ssh.ClientConfig{
		User:            user,
		Auth:            authMethods,
		HostKeyCallback: hostKeyCallback,
		Timeout:         pushTimeout,
	}

	addr := net.JoinHostPort(host, port)
	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to dial %s: %w", addr, err)
	}

	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("SSH handshake with %s failed: %w", addr, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer func() {
		_ = client.Close()
	}()

	sftpClient, err := sftp.NewClient(client)
	if err != nil {
		return fmt.Errorf("failed to start SFTP session: %w", err)
	}
	defer func() {
		_ = sftpClient.Close()
	}()

	return p.upload(sftpClient, localPath)
}

// upload streams the local file to a remote temporary name, then renames
// it over the target path
func (p *Pusher) upload(client *sftp.Client, localPath string) error {
	remotePath := p.config.RemotePath
	if dir := path.Dir(remotePath); dir != "" && dir != "." {
		if err := client.MkdirAll(dir); err != nil {
			return fmt.Errorf("failed to create remote directory %s: %w", dir, err)
		}
	}

	src, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open temporary file: %w", err)
	}
	defer func() {
		_ = src.Close()
	}()

	remoteTmp := remotePath + ".tmp"
	dst, err := client.Create(remoteTmp)
	if err != nil {
		return fmt.Errorf("failed to create remote file %s: %w", remoteTmp, err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = client.Remove(remoteTmp)
		return fmt.Errorf("failed to write remote file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = client.Remove(remoteTmp)
		return fmt.Errorf("failed to close remote file: %w", err)
	}

	if err := client.PosixRename(remoteTmp, remotePath); err != nil {
		_ = client.Remove(remoteTmp)
		return fmt.Errorf("failed to rename remote file: %w", err)
	}

	return nil
}

// hostKeyCallback builds the host-key verification callback
func (p *Pusher) hostKeyCallback() (ssh.HostKeyCallback, error) {
	if p.config.InsecureHostKey {
		return ssh.InsecureIgnoreHostKey(), nil
	}

	knownHosts := p.config.KnownHostsFile
	if knownHosts == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to locate home directory for known_hosts: %w", err)
		}
		knownHosts = filepath.Join(home, ".ssh", "known_hosts")
	}

	callback, err := knownhosts.New(knownHosts)
	if err != nil {
		return nil, fmt.Errorf("failed to load known_hosts %s: %w", knownHosts, err)
	}
	return callback, nil
}

// authMethods assembles SSH authentication: the configured key file,
// otherwise ssh-agent, otherwise default keys under ~/.ssh
func (p *Pusher) authMethods() ([]ssh.AuthMethod, error) {
	if p.config.KeyFile != "" {
		signer, err := loadSigner(p.config.KeyFile)
		if err != nil {
			return nil, err
		}
		return []ssh.AuthMethod{ssh.PublicKeys(signer)}, nil
	}

	var methods []ssh.AuthMethod

	if sock := os.Getenv("SSH_AUTH_SOCK"); sock != "" {
		if conn, err := net.Dial("unix", sock); err == nil {
			methods = append(methods, ssh.PublicKeysCallback(agent.NewClient(conn).Signers))
		} else {
			p.logger.Warn("Failed to connect to ssh-agent", zap.Error(err))
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		for _, name := range []string{"id_ed25519", "id_rsa"} {
			signer, err := loadSigner(filepath.Join(home, ".ssh", name))
			if err != nil {
				continue
			}
			methods = append(methods, ssh.PublicKeys(signer))
		}
	}

	if len(methods) == 0 {
		return nil, fmt.Errorf("no SSH authentication available: no key file, ssh-agent, or default key")
	}

	return methods, nil
}

// loadSigner reads and parses a private key file
func loadSigner(path string) (ssh.Signer, error) {
	key, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read private key %s: %w", path, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key %s: %w", path, err)
	}
	return signer, nil
}
