package stackctl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultOptions(t *testing.T) {
	opts := DefaultOptions()
	assert.Equal(t, "stack", opts.Account)
	assert.Equal(t, 8080, opts.APIPort)
	assert.Equal(t, "/usr/local/stack/apache-tomcat/webapps/stack/", opts.Home)
}

func TestNodeStateAliases(t *testing.T) {
	assert.Equal(t, "Stopped", Stopped.String())
	assert.Equal(t, "Zombie", Zombie.String())
}

func TestWaitUntilFacade(t *testing.T) {
	n := 0
	ok := WaitUntil(func() bool {
		n++
		return n >= 2
	}, time.Second, 5*time.Millisecond)
	require.True(t, ok)
	assert.Equal(t, 2, n)
}
