package procfind

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeProc builds a /proc-shaped tree with the given pid -> cmdline entries.
func fakeProc(t *testing.T, procs map[int]string) string {
	t.Helper()
	root := t.TempDir()
	for pid, cmdline := range procs {
		dir := filepath.Join(root, strconv.Itoa(pid))
		require.NoError(t, os.MkdirAll(dir, 0o755))
		// /proc cmdlines are NUL separated
		data := []byte(cmdline)
		for i := range data {
			if data[i] == ' ' {
				data[i] = 0
			}
		}
		require.NoError(t, os.WriteFile(filepath.Join(dir, "cmdline"), data, 0o644))
	}
	return root
}

func TestProcScanFindsToken(t *testing.T) {
	root := fakeProc(t, map[int]string{
		100: "/usr/bin/java -DappName=stack -Xmx4g",
		200: "/usr/sbin/mysqld --port=3306",
	})
	pid, err := ProcScan{Root: root}.Find("appName=stack")
	require.NoError(t, err)
	assert.Equal(t, 100, pid)
}

func TestProcScanNotFound(t *testing.T) {
	root := fakeProc(t, map[int]string{200: "/usr/sbin/mysqld"})
	pid, err := ProcScan{Root: root}.Find("appName=stack")
	require.NoError(t, err)
	assert.Equal(t, 0, pid)
}

func TestProcScanSkipsOwnPid(t *testing.T) {
	root := fakeProc(t, map[int]string{os.Getpid(): "stackctl appName=stack"})
	pid, err := ProcScan{Root: root}.Find("appName=stack")
	require.NoError(t, err)
	assert.Equal(t, 0, pid)
}

func TestPIDFile(t *testing.T) {
	procRoot := fakeProc(t, map[int]string{300: "/usr/bin/java"})
	pidPath := filepath.Join(t.TempDir(), "management-server.pid")

	// absent file means not running
	pid, err := PIDFile{Path: pidPath, Root: procRoot}.Find("")
	require.NoError(t, err)
	assert.Equal(t, 0, pid)

	// live process
	require.NoError(t, os.WriteFile(pidPath, []byte("300\n"), 0o644))
	pid, err = PIDFile{Path: pidPath, Root: procRoot}.Find("")
	require.NoError(t, err)
	assert.Equal(t, 300, pid)

	// stale pid: process gone
	require.NoError(t, os.WriteFile(pidPath, []byte("999"), 0o644))
	pid, err = PIDFile{Path: pidPath, Root: procRoot}.Find("")
	require.NoError(t, err)
	assert.Equal(t, 0, pid)

	// corrupt content is tolerated
	require.NoError(t, os.WriteFile(pidPath, []byte("not a pid"), 0o644))
	pid, err = PIDFile{Path: pidPath, Root: procRoot}.Find("")
	require.NoError(t, err)
	assert.Equal(t, 0, pid)
}

func TestChainFallsThrough(t *testing.T) {
	procRoot := fakeProc(t, map[int]string{400: "/usr/bin/java"})
	pidPath := filepath.Join(t.TempDir(), "server.pid")
	require.NoError(t, os.WriteFile(pidPath, []byte("400"), 0o644))

	reg := Chain{
		ProcScan{Root: procRoot},
		PIDFile{Path: pidPath, Root: procRoot},
	}
	// token not on any cmdline, but the pid file knows the process
	pid, err := reg.Find("appName=stack")
	require.NoError(t, err)
	assert.Equal(t, 400, pid)
}
