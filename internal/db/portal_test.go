package db

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackctl/internal/config"
)

func TestParseJDBCURL(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		host string
		port int
		db   string
	}{
		{"full", "jdbc:mysql://db.example:3307/stack", "db.example", 3307, "stack"},
		{"default port", "jdbc:mysql://192.168.0.2/stack", "192.168.0.2", 3306, "stack"},
		{"no database", "jdbc:mysql://192.168.0.2:3306", "192.168.0.2", 3306, ""},
		{"query params", "jdbc:mysql://db:3306/stack?useSSL=false", "db", 3306, "stack"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			host, port, name, err := ParseJDBCURL(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.host, host)
			assert.Equal(t, tc.port, port)
			assert.Equal(t, tc.db, name)
		})
	}
}

func TestParseJDBCURLErrors(t *testing.T) {
	_, _, _, err := ParseJDBCURL("jdbc:mysql://")
	require.Error(t, err)
	_, _, _, err = ParseJDBCURL("jdbc:mysql://db:notaport/stack")
	require.Error(t, err)
}

func loadProps(t *testing.T, content string) *config.PropertyFile {
	t.Helper()
	path := filepath.Join(t.TempDir(), "stack.properties")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	p, err := config.Load(path)
	require.NoError(t, err)
	return p
}

func TestPortalFromProperties(t *testing.T) {
	p := loadProps(t, "DB.url = jdbc:mysql://192.168.0.2:3306\nDB.user = stack\nDB.password = secret\n")

	portal, err := PortalFromProperties(p)
	require.NoError(t, err)
	assert.Equal(t, Portal{
		Host: "192.168.0.2", Port: 3306,
		User: "stack", Password: "secret", Name: "stack",
	}, portal)
}

func TestPortalFromPropertiesEmptyPassword(t *testing.T) {
	p := loadProps(t, "DB.url = jdbc:mysql://db:3306/stack\nDB.user = root\nDB.password =\n")

	portal, err := PortalFromProperties(p)
	require.NoError(t, err)
	assert.Equal(t, "", portal.Password)
}

func TestPortalFromPropertiesMissingKeys(t *testing.T) {
	var ke *config.KeyError

	_, err := PortalFromProperties(loadProps(t, "DB.user = stack\nDB.password = x\n"))
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "DB.url", ke.Key)

	_, err = PortalFromProperties(loadProps(t, "DB.url = jdbc:mysql://db:3306\nDB.user = stack\n"))
	require.ErrorAs(t, err, &ke)
	assert.Equal(t, "DB.password", ke.Key)
}

func TestPortalRendering(t *testing.T) {
	p := Portal{Host: "db", Port: 3306, User: "stack", Password: "s3c", Name: "stack"}
	assert.Equal(t, "jdbc:mysql://db:3306/stack", p.JDBCURL())
	assert.Equal(t, "stack:s3c@tcp(db:3306)/stack", p.DSN())
}

func TestCheckReachableReportsConnectivityError(t *testing.T) {
	// grab a port and close it so nothing is listening
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	port := ln.Addr().(*net.TCPAddr).Port
	require.NoError(t, ln.Close())

	p := Portal{Host: "127.0.0.1", Port: port, User: "stack", Name: "stack"}
	err = p.CheckReachable(context.Background(), 200*time.Millisecond)

	var ce *ConnectivityError
	require.ErrorAs(t, err, &ce)
	assert.Contains(t, ce.Error(), "please check if the service is running")
}
