// Package db is the database collaborator: connection portal parsing, the
// running-node liveness gate, schema version reads, the external migrator,
// and logical dump/restore.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	_ "github.com/go-sql-driver/mysql"

	"stackctl/internal/config"
	"stackctl/internal/probe"
)

// DefaultName is the application database name when the JDBC URL omits it.
const DefaultName = "stack"

// ConnectivityError reports an unreachable database or broker endpoint.
type ConnectivityError struct {
	Endpoint string
	Err      error
}

func (e *ConnectivityError) Error() string {
	return fmt.Sprintf("unable to connect to %s, please check if the service is running and the firewall rules: %v", e.Endpoint, e.Err)
}

func (e *ConnectivityError) Unwrap() error { return e.Err }

// Portal carries everything needed to reach the application database.
type Portal struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
}

// ParseJDBCURL extracts host, port and database name from a JDBC-style URL
// such as jdbc:mysql://db.example:3306/stack?useSSL=false.
func ParseJDBCURL(raw string) (host string, port int, name string, err error) {
	trimmed := strings.TrimPrefix(raw, "jdbc:")
	u, err := url.Parse(trimmed)
	if err != nil {
		return "", 0, "", fmt.Errorf("cannot parse database URL %q: %w", raw, err)
	}
	host = u.Hostname()
	if host == "" {
		return "", 0, "", fmt.Errorf("cannot parse database URL %q: no host", raw)
	}
	port = 3306
	if p := u.Port(); p != "" {
		port, err = strconv.Atoi(p)
		if err != nil {
			return "", 0, "", fmt.Errorf("cannot parse database URL %q: bad port: %w", raw, err)
		}
	}
	name = strings.Trim(u.Path, "/")
	if i := strings.IndexByte(name, '/'); i >= 0 {
		name = name[:i]
	}
	return host, port, name, nil
}

// PortalFromProperties reads DB.url, DB.user and DB.password from the managed
// property file. The password may be empty but the key must exist.
func PortalFromProperties(p *config.PropertyFile) (Portal, error) {
	rawURL, err := p.Require("DB.url")
	if err != nil {
		return Portal{}, err
	}
	user, err := p.Require("DB.user")
	if err != nil {
		return Portal{}, err
	}
	password, ok := p.Lookup("DB.password")
	if !ok {
		return Portal{}, &config.KeyError{Key: "DB.password", Path: p.Path()}
	}
	host, port, name, err := ParseJDBCURL(rawURL)
	if err != nil {
		return Portal{}, err
	}
	if name == "" {
		name = DefaultName
	}
	return Portal{Host: host, Port: port, User: user, Password: password, Name: name}, nil
}

// JDBCURL renders the portal back into the URL form the migrator expects.
func (p Portal) JDBCURL() string {
	return fmt.Sprintf("jdbc:mysql://%s:%d/%s", p.Host, p.Port, p.Name)
}

// DSN renders the go-sql-driver connection string.
func (p Portal) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s", p.User, p.Password, p.Host, p.Port, p.Name)
}

// Open opens a database handle. The handle is lazy; use CheckReachable for a
// preflight.
func (p Portal) Open() (*sql.DB, error) {
	return sql.Open("mysql", p.DSN())
}

// CheckReachable verifies the endpoint accepts TCP and answers a trivial
// query within timeout.
func (p Portal) CheckReachable(ctx context.Context, timeout time.Duration) error {
	endpoint := fmt.Sprintf("%s:%d", p.Host, p.Port)
	if !probe.TCPReachable(p.Host, p.Port, timeout) {
		return &ConnectivityError{Endpoint: endpoint, Err: fmt.Errorf("tcp connect failed")}
	}
	h, err := p.Open()
	if err != nil {
		return &ConnectivityError{Endpoint: endpoint, Err: err}
	}
	defer func() { _ = h.Close() }()

	qctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	var one int
	if err := h.QueryRowContext(qctx, "SELECT 1").Scan(&one); err != nil {
		return &ConnectivityError{Endpoint: endpoint, Err: err}
	}
	return nil
}
