// Package stackctl exposes the deployment control primitives for embedding:
// resolving an installation, driving single services and the whole topology,
// and snapshotting before destructive changes. The CLI in cmd/stackctl is a
// thin layer over this surface.
package stackctl

import (
	"context"
	"time"

	"stackctl/internal/backup"
	"stackctl/internal/config"
	"stackctl/internal/deploy"
	"stackctl/internal/probe"
	"stackctl/internal/runner"
	"stackctl/internal/service"
	"stackctl/internal/topology"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Options = deploy.Options

type Context = deploy.Context

type NodeState = service.NodeState

const (
	Stopped  = service.Stopped
	Starting = service.Starting
	Running  = service.Running
	Zombie   = service.Zombie
	Unknown  = service.Unknown
)

type Runner = runner.Runner

type Cmd = runner.Cmd

type PropertyFile = config.PropertyFile

type BackupRecord = backup.Record

// DefaultOptions returns the built-in configuration.
func DefaultOptions() Options { return deploy.DefaultOptions() }

// LoadOptions reads the optional TOML config at path over the defaults.
func LoadOptions(path string) (Options, error) { return deploy.LoadOptions(path) }

// Locate resolves the installation layout for opts.
func Locate(opts Options) (*Context, error) { return deploy.Locate(opts) }

// Node is a thin facade over the management node controller.
type Node struct{ inner *service.Controller }

// NewNode builds the management node controller for a resolved installation.
func NewNode(dc *Context, r Runner, props *PropertyFile) *Node {
	return &Node{inner: dc.AppNode(r, props)}
}

func (n *Node) Start(ctx context.Context, timeout time.Duration) error {
	return n.inner.Start(ctx, timeout)
}
func (n *Node) Stop(ctx context.Context, force bool) error { return n.inner.Stop(ctx, force) }
func (n *Node) Status() NodeState                          { return n.inner.Status() }

// Deployment is a facade over the whole-host topology controller.
type Deployment struct{ inner *topology.Controller }

// NewDeployment assembles every installed tier on this host.
func NewDeployment(dc *Context, r Runner, env, props *PropertyFile, startTimeoutSec int) *Deployment {
	return &Deployment{inner: dc.Topology(r, env, props, startTimeoutSec)}
}

func (d *Deployment) StartAll(ctx context.Context) error { return d.inner.StartAll(ctx) }
func (d *Deployment) StopAll(ctx context.Context) error  { return d.inner.StopAll(ctx) }

// WaitUntil polls pred every interval until it succeeds or timeout elapses.
func WaitUntil(pred func() bool, timeout, interval time.Duration) bool {
	return probe.WaitUntil(pred, timeout, interval)
}
