package runner

import (
	"context"
	"errors"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCmdString(t *testing.T) {
	assert.Equal(t, "ls -l /tmp", New("ls", "-l", "/tmp").String())
	assert.Equal(t, `unzip 'stack 1.war' -d /opt`, New("unzip", "stack 1.war", "-d", "/opt").String())
	assert.Equal(t, `echo 'it'\''s'`, New("echo", "it's").String())
	assert.Equal(t, "true", New("true").String())
}

func TestLocalCapturesOutput(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell required")
	}
	res, err := Local{}.Run(context.Background(), New("sh", "-c", "echo hello"))
	require.NoError(t, err)
	assert.Equal(t, 0, res.ExitCode)
	assert.Equal(t, "hello", strings.TrimSpace(res.Stdout))
}

func TestLocalNonZeroExitIsNotError(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell required")
	}
	res, err := Local{}.Run(context.Background(), New("sh", "-c", "echo oops >&2; exit 3"))
	require.NoError(t, err)
	assert.Equal(t, 3, res.ExitCode)
	assert.Equal(t, "oops", strings.TrimSpace(res.Stderr))
}

func TestLocalStdin(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell required")
	}
	cmd := New("cat")
	cmd.Stdin = strings.NewReader("fed in")
	res, err := Local{}.Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Equal(t, "fed in", res.Stdout)
}

func TestLocalWorkDir(t *testing.T) {
	if runtime.GOOS == "windows" {
		t.Skip("unix shell required")
	}
	dir := t.TempDir()
	cmd := New("pwd")
	cmd.WorkDir = dir
	res, err := Local{}.Run(context.Background(), cmd)
	require.NoError(t, err)
	assert.Contains(t, strings.TrimSpace(res.Stdout), dir)
}

type fakeRunner struct {
	results map[string]Result
	err     error
	calls   []string
}

func (f *fakeRunner) Run(_ context.Context, c Cmd) (Result, error) {
	f.calls = append(f.calls, c.String())
	if f.err != nil {
		return Result{}, f.err
	}
	if res, ok := f.results[c.Program]; ok {
		return res, nil
	}
	return Result{}, nil
}

func TestOutputWrapsNonZeroExit(t *testing.T) {
	f := &fakeRunner{results: map[string]Result{
		"mysqldump": {ExitCode: 2, Stderr: "access denied"},
	}}
	_, err := Output(context.Background(), f, New("mysqldump", "-u", "stack"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mysqldump")
	assert.Contains(t, err.Error(), "access denied")
	assert.Contains(t, err.Error(), "exit 2")
}

func TestOutputPassesThroughRunError(t *testing.T) {
	boom := errors.New("no such binary")
	f := &fakeRunner{err: boom}
	_, err := Output(context.Background(), f, New("wget"))
	require.ErrorIs(t, err, boom)
}

func TestEnsureTool(t *testing.T) {
	found := &fakeRunner{results: map[string]Result{"which": {Stdout: "/usr/bin/unzip"}}}
	require.NoError(t, EnsureTool(context.Background(), found, "unzip"))

	missing := &fakeRunner{results: map[string]Result{"which": {ExitCode: 1}}}
	err := EnsureTool(context.Background(), missing, "unzip")
	var tm *ToolMissingError
	require.ErrorAs(t, err, &tm)
	assert.Equal(t, "unzip", tm.Tool)
}

func TestSSHAddr(t *testing.T) {
	s := &SSH{Host: "192.168.0.2"}
	user, addr := s.addr()
	assert.Equal(t, "root", user)
	assert.Equal(t, "192.168.0.2:22", addr)

	s = &SSH{Host: "admin@db.example", User: "ignored", Port: 2222}
	user, addr = s.addr()
	assert.Equal(t, "admin", user)
	assert.Equal(t, "db.example:2222", addr)
}
