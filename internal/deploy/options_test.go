package deploy

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadOptionsAbsentFileYieldsDefaults(t *testing.T) {
	opts, err := LoadOptions(filepath.Join(t.TempDir(), "config.toml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultOptions(), opts)
	assert.Equal(t, 8080, opts.APIPort)
	assert.Equal(t, "stack", opts.Account)
}

func TestLoadOptionsOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
home = "/opt/stack/apache-tomcat/webapps/stack"
api_port = 9090
ssh_user = "ops"
`), 0o644))

	opts, err := LoadOptions(path)
	require.NoError(t, err)
	assert.Equal(t, "/opt/stack/apache-tomcat/webapps/stack", opts.Home)
	assert.Equal(t, 9090, opts.APIPort)
	assert.Equal(t, "ops", opts.SSHUser)
	// untouched keys keep their defaults
	assert.Equal(t, "stack", opts.Account)
	assert.Equal(t, 10*time.Second, opts.ProbeTimeout)
}

func TestLoadOptionsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("api_port = [not toml"), 0o644))
	_, err := LoadOptions(path)
	require.Error(t, err)
}
