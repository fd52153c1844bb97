package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/crypto/ssh"
)

const sshDialTimeout = 10 * time.Second

// SSH runs commands on a remote host over a secure shell channel. Host may be
// "host" or "user@host"; User and KeyFile fill the gaps. Host keys are not
// verified, matching how the deployment's hosts are provisioned.
type SSH struct {
	Host    string
	User    string
	KeyFile string
	Port    int
}

func (s *SSH) addr() (user, hostport string) {
	host := s.Host
	user = s.User
	if u, h, ok := strings.Cut(host, "@"); ok {
		user, host = u, h
	}
	if user == "" {
		user = "root"
	}
	port := s.Port
	if port == 0 {
		port = 22
	}
	return user, net.JoinHostPort(host, fmt.Sprintf("%d", port))
}

func (s *SSH) clientConfig(user string) (*ssh.ClientConfig, error) {
	keyFile := s.KeyFile
	if keyFile == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		keyFile = filepath.Join(home, ".ssh", "id_rsa")
	}
	key, err := os.ReadFile(keyFile)
	if err != nil {
		return nil, fmt.Errorf("cannot read SSH private key %s: %w", keyFile, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("cannot parse SSH private key %s: %w", keyFile, err)
	}
	return &ssh.ClientConfig{
		User:            user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), // #nosec G106
		Timeout:         sshDialTimeout,
	}, nil
}

func (s *SSH) Run(ctx context.Context, c Cmd) (Result, error) {
	user, addr := s.addr()
	cfg, err := s.clientConfig(user)
	if err != nil {
		return Result{}, err
	}

	client, err := ssh.Dial("tcp", addr, cfg)
	if err != nil {
		return Result{}, fmt.Errorf("cannot connect to %s: %w", addr, err)
	}
	defer func() { _ = client.Close() }()

	sess, err := client.NewSession()
	if err != nil {
		return Result{}, err
	}
	defer func() { _ = sess.Close() }()

	var out, errBuf bytes.Buffer
	sess.Stdin = c.Stdin
	if c.Stdout != nil {
		sess.Stdout = c.Stdout
	} else {
		sess.Stdout = &out
	}
	sess.Stderr = &errBuf

	line := c.String()
	if c.WorkDir != "" {
		line = "cd " + quote(c.WorkDir) + " && " + line
	}

	done := make(chan error, 1)
	go func() { done <- sess.Run(line) }()

	select {
	case err = <-done:
	case <-ctx.Done():
		_ = sess.Signal(ssh.SIGKILL)
		return Result{Stdout: out.String(), Stderr: errBuf.String()}, ctx.Err()
	}

	res := Result{Stdout: out.String(), Stderr: errBuf.String()}
	if err != nil {
		var ee *ssh.ExitError
		if errors.As(err, &ee) {
			res.ExitCode = ee.ExitStatus()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
