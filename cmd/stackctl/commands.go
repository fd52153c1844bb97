package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"stackctl/internal/deploy"
	"stackctl/internal/runner"
	"stackctl/internal/topology"
)

// command binds the handlers to the persistent flags. Handlers are plain
// methods so tests can call them without cobra.
type command struct {
	global *GlobalFlags
}

// deployment resolves the installation context once per command.
func (c command) deployment() (*deploy.Context, error) {
	opts, err := deploy.LoadOptions(c.global.ConfigPath)
	if err != nil {
		return nil, err
	}
	dc, err := deploy.Locate(opts)
	if err != nil {
		return nil, err
	}
	dc.Log = slog.Default()
	return dc, nil
}

// signalContext is cancelled on interrupt so long operations can clean up.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

// remote re-invokes this tool's subcommand on another host and relays its
// output. Every --host flag funnels through here.
func (c command) remote(host string, args ...string) error {
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	ssh := &runner.SSH{
		Host:    host,
		User:    dc.Opts.SSHUser,
		KeyFile: dc.Opts.SSHKeyFile,
		Port:    dc.Opts.SSHPort,
	}
	out, err := runner.Output(ctx, ssh, runner.New("stackctl", c.remoteArgs(args)...))
	if out != "" {
		fmt.Print(out)
	}
	return err
}

// remoteArgs appends the persistent flags so the re-invoked command runs with
// the same configuration and logging as the local one.
func (c command) remoteArgs(args []string) []string {
	out := append([]string(nil), args...)
	if c.global.ConfigPath != "" {
		out = append(out, "--config="+c.global.ConfigPath)
	}
	if c.global.Verbose {
		out = append(out, "--verbose")
	}
	if c.global.LogFile != "" {
		out = append(out, "--log-file="+c.global.LogFile)
	}
	return out
}

// topology assembles the whole-host controller from the resolved context.
func (c command) topology(timeoutSec int) (*topology.Controller, error) {
	dc, err := c.deployment()
	if err != nil {
		return nil, err
	}
	props, err := dc.Properties()
	if err != nil {
		return nil, err
	}
	env, err := dc.Env()
	if err != nil {
		return nil, err
	}
	return dc.Topology(runner.Local{}, env, props, timeoutSec), nil
}

func printf(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stdout, format+"\n", args...)
}
