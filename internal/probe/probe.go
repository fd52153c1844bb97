// Package probe provides the deadline-bounded polling primitive every
// lifecycle operation is built on, plus the single-shot reachability and
// readiness checks used as its predicates.
package probe

import (
	"bytes"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"
)

// Func is a single-shot readiness predicate.
type Func func() bool

// WaitUntil invokes pred immediately and, while it reports false, sleeps
// interval between retries until the elapsed wall time reaches timeout.
// It returns true on the first successful invocation, false on timeout.
// Cancellation is the process-wide interrupt only; there is deliberately no
// finer-grained cancel.
func WaitUntil(pred Func, timeout, interval time.Duration) bool {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if pred() {
			return true
		}
		time.Sleep(interval)
	}
	return false
}

// TCPReachable reports whether host:port accepts a TCP connection within
// timeout. Used both for dependency preflights and port-listen checks.
func TCPReachable(host string, port int, timeout time.Duration) bool {
	conn, err := net.DialTimeout("tcp", net.JoinHostPort(host, fmt.Sprintf("%d", port)), timeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

// Readiness is the outcome of one protocol-level probe.
type Readiness int

const (
	// Down means the service did not respond at all.
	Down Readiness = iota
	// Starting means the service responded but reported it is not ready yet.
	Starting
	// Ready means the service can serve requests.
	Ready
	// Indeterminate means the response could not be interpreted.
	Indeterminate
)

func (r Readiness) String() string {
	switch r {
	case Down:
		return "down"
	case Starting:
		return "starting"
	case Ready:
		return "ready"
	case Indeterminate:
		return "indeterminate"
	}
	return "unknown"
}

// HTTPReadiness probes an application-level liveness RPC. The endpoint
// answers "true" once the node serves APIs and "false" while it boots.
type HTTPReadiness struct {
	URL     string
	Body    string
	Timeout time.Duration
}

// Check performs one probe.
func (p HTTPReadiness) Check() Readiness {
	client := &http.Client{Timeout: p.Timeout}
	resp, err := client.Post(p.URL, "application/json", strings.NewReader(p.Body))
	if err != nil {
		return Down
	}
	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return Indeterminate
	}
	switch {
	case bytes.Contains(data, []byte("true")):
		return Ready
	case bytes.Contains(data, []byte("false")):
		return Starting
	default:
		return Indeterminate
	}
}

// Ok adapts Check to a WaitUntil predicate.
func (p HTTPReadiness) Ok() bool { return p.Check() == Ready }
