package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `# deployment properties
DB.url = jdbc:mysql://192.168.0.2:3306
DB.user = stack
DB.password =

Bus.serverIp.0 = 192.168.0.3
Bus.serverIp.1 = 192.168.0.4
`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.properties")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0o644))
	return path
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.properties"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot find property file")
}

func TestLookupAndRequire(t *testing.T) {
	p, err := Load(writeSample(t))
	require.NoError(t, err)

	v, ok := p.Lookup("DB.user")
	assert.True(t, ok)
	assert.Equal(t, "stack", v)

	// present but empty
	v, ok = p.Lookup("DB.password")
	assert.True(t, ok)
	assert.Equal(t, "", v)

	_, ok = p.Lookup("no.such.key")
	assert.False(t, ok)

	_, err = p.Require("no.such.key")
	var ke *KeyError
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "no.such.key", ke.Key)
}

func TestKeysAreCaseSensitive(t *testing.T) {
	p, err := Load(writeSample(t))
	require.NoError(t, err)

	_, ok := p.Lookup("db.url")
	assert.False(t, ok)
	_, ok = p.Lookup("DB.url")
	assert.True(t, ok)
}

func TestLookupPrefixKeepsFileOrder(t *testing.T) {
	p, err := Load(writeSample(t))
	require.NoError(t, err)

	got := p.LookupPrefix("Bus.serverIp.")
	require.Len(t, got, 2)
	assert.Equal(t, KV{Key: "Bus.serverIp.0", Value: "192.168.0.3"}, got[0])
	assert.Equal(t, KV{Key: "Bus.serverIp.1", Value: "192.168.0.4"}, got[1])
}

func TestSetWriteRoundTrip(t *testing.T) {
	path := writeSample(t)
	p, err := Load(path)
	require.NoError(t, err)

	p.Set("DB.user", "other")
	p.Set("new.key", "value")
	require.NoError(t, p.Write())

	reread, err := Load(path)
	require.NoError(t, err)
	v, _ := reread.Lookup("DB.user")
	assert.Equal(t, "other", v)
	v, _ = reread.Lookup("new.key")
	assert.Equal(t, "value", v)

	// comments and untouched keys survive the rewrite
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# deployment properties")
	assert.Contains(t, string(data), "Bus.serverIp.0 = 192.168.0.3")
}

func TestDelete(t *testing.T) {
	path := writeSample(t)
	p, err := Load(path)
	require.NoError(t, err)

	p.Delete("Bus.serverIp.1", "no.such.key")
	require.NoError(t, p.Write())

	reread, err := Load(path)
	require.NoError(t, err)
	_, ok := reread.Lookup("Bus.serverIp.1")
	assert.False(t, ok)
	_, ok = reread.Lookup("Bus.serverIp.0")
	assert.True(t, ok)
}

func TestWriteUsesScope(t *testing.T) {
	p, err := Load(writeSample(t))
	require.NoError(t, err)

	scoped := false
	p.SetWriteScope(func(fn func() error) error {
		scoped = true
		return fn()
	})
	p.Set("DB.user", "scoped")
	require.NoError(t, p.Write())
	assert.True(t, scoped)
}

func TestWriteScopeErrorPropagates(t *testing.T) {
	p, err := Load(writeSample(t))
	require.NoError(t, err)

	boom := errors.New("no privilege")
	p.SetWriteScope(func(func() error) error { return boom })
	require.ErrorIs(t, p.Write(), boom)
}

func TestCreate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "env")
	require.NoError(t, Create(path))

	p, err := Load(path)
	require.NoError(t, err)
	assert.Empty(t, p.All())

	// second create leaves existing content alone
	p.Set("STACK_HOME", "/opt/stack")
	require.NoError(t, p.Write())
	require.NoError(t, Create(path))
	reread, err := Load(path)
	require.NoError(t, err)
	v, _ := reread.Lookup("STACK_HOME")
	assert.Equal(t, "/opt/stack", v)
}
