package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"
)

// HeartbeatGrace is the fixed wait used by the forced staleness check. It is
// deliberately not configurable: a node whose heartbeat interval exceeds this
// window would be misclassified as stopped, which is a documented risk of the
// --force path.
const HeartbeatGrace = 10 * time.Second

// Node is one row of the running cluster's node registry.
type Node struct {
	Hostname  string
	Heartbeat string
}

// NodeLister reads the node registry.
type NodeLister interface {
	ListNodes(ctx context.Context) ([]Node, error)
}

// SQLNodes lists nodes from the management_node table.
type SQLNodes struct {
	DB *sql.DB
}

func (s SQLNodes) ListNodes(ctx context.Context) ([]Node, error) {
	rows, err := s.DB.QueryContext(ctx, "SELECT hostname, heartbeat FROM management_node")
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []Node
	for rows.Next() {
		var n Node
		if err := rows.Scan(&n.Hostname, &n.Heartbeat); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

// NodesStillRunningError blocks a database mutation while registered nodes
// exist and --force was not given.
type NodesStillRunningError struct {
	Hosts []string
}

func (e *NodesStillRunningError) Error() string {
	return fmt.Sprintf("management nodes%v are still running; please stop all of them before mutating the database. "+
		"If you are sure they have stopped, use --force and run this command again. "+
		"WARNING: the database may crash if you use --force without stopping the nodes", e.Hosts)
}

// NodeStillAliveError reports a node whose heartbeat advanced during the
// grace window of a forced check.
type NodeStillAliveError struct {
	Hostname string
	Old      string
	New      string
}

func (e *NodeStillAliveError) Error() string {
	return fmt.Sprintf("node[%s] is still running: its heartbeat changed from %s to %s within the last %v, please make sure you really stopped it",
		e.Hostname, e.Old, e.New, HeartbeatGrace)
}

// EnsureNodesStopped gates destructive database mutations on the node
// registry being empty. Without force, any registered node fails the check.
// With force, the registry is sampled twice HeartbeatGrace apart and a node
// whose heartbeat changed between samples fails it; unchanged heartbeats are
// treated as stale records. sleep is overridable for tests.
func EnsureNodesStopped(ctx context.Context, l NodeLister, force bool, sleep func(time.Duration)) error {
	if sleep == nil {
		sleep = time.Sleep
	}

	nodes, err := l.ListNodes(ctx)
	if err != nil {
		return err
	}
	if len(nodes) == 0 {
		return nil
	}

	hosts := make([]string, 0, len(nodes))
	for _, n := range nodes {
		hosts = append(hosts, n.Hostname)
	}
	if !force {
		return &NodesStillRunningError{Hosts: hosts}
	}

	slog.Info("some nodes seem to be running; since --force is set, waiting to confirm the records are stale",
		"hosts", hosts, "grace", HeartbeatGrace)
	sleep(HeartbeatGrace)

	again, err := l.ListNodes(ctx)
	if err != nil {
		return err
	}
	for _, n := range again {
		for _, o := range nodes {
			if o.Hostname == n.Hostname && o.Heartbeat != n.Heartbeat {
				return &NodeStillAliveError{Hostname: n.Hostname, Old: o.Heartbeat, New: n.Heartbeat}
			}
		}
	}
	return nil
}
