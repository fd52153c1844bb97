// Package procfind locates running services by a process identity token.
// The token is a substring the service is started with (for the app node,
// "appName=stack" on the JVM command line), so discovery survives restarts
// of this tool.
package procfind

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Registry finds a running service. Find returns pid 0 when no process
// matches; errors are reserved for the discovery mechanism itself failing.
type Registry interface {
	Find(token string) (pid int, err error)
}

// ProcScan scans /proc/<pid>/cmdline for the token. Root defaults to /proc
// and is overridable for tests.
type ProcScan struct {
	Root string
}

func (p ProcScan) Find(token string) (int, error) {
	root := p.Root
	if root == "" {
		root = "/proc"
	}
	entries, err := os.ReadDir(root)
	if err != nil {
		return 0, err
	}
	self := os.Getpid()
	for _, e := range entries {
		pid, err := strconv.Atoi(e.Name())
		if err != nil || pid == self {
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, e.Name(), "cmdline"))
		if err != nil {
			// process exited mid-scan or is not ours to read
			continue
		}
		cmdline := strings.ReplaceAll(string(data), "\x00", " ")
		if strings.Contains(cmdline, token) {
			return pid, nil
		}
	}
	return 0, nil
}

// PIDFile reads a recorded pid and reports it only while the process still
// exists. Used as a fallback when the cmdline token is not found.
type PIDFile struct {
	Path string
	Root string // proc root, for tests
}

func (p PIDFile) Find(string) (int, error) {
	data, err := os.ReadFile(p.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, nil
		}
		return 0, err
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		// stale or corrupt pid file; treat as not running
		return 0, nil
	}
	root := p.Root
	if root == "" {
		root = "/proc"
	}
	if _, err := os.Stat(filepath.Join(root, strconv.Itoa(pid))); err != nil {
		return 0, nil
	}
	return pid, nil
}

// Chain queries registries in order and returns the first hit.
type Chain []Registry

func (c Chain) Find(token string) (int, error) {
	for _, r := range c {
		pid, err := r.Find(token)
		if err != nil {
			return 0, err
		}
		if pid != 0 {
			return pid, nil
		}
	}
	return 0, nil
}
