package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"stackctl/internal/runner"
)

const defaultStartTimeout = 300 // seconds

// createStatusCommand creates the status subcommand.
func createStatusCommand(stackCommand command, flags *HostFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show the state of every tier on this host",
		Long: `Show the state of the management node, the web UI and the time-series
store. The management node combines process discovery with the readiness
probe, so a present-but-unresponsive JVM reports as Zombie.

Examples:
  stackctl status
  stackctl status --host=192.168.0.2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.Status(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Host, "host", "", "run on a remote host over SSH")
	return cmd
}

func (c command) Status(f HostFlags) error {
	if f.Host != "" {
		return c.remote(f.Host, "status")
	}
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	props, err := dc.Properties()
	if err != nil {
		return err
	}
	local := runner.Local{}

	app := dc.AppNode(local, props)
	printf("management node: %s", app.Status())

	if dc.UIInstalled() {
		printf("web UI: %s", dc.UI(local).Status())
	} else {
		printf("web UI: not installed")
	}

	env, err := dc.Env()
	if err != nil {
		return err
	}
	if tsdb, installed := dc.TSDB(local, env); installed {
		printf("time-series store: %s", tsdb.Status())
	} else {
		printf("time-series store: not installed")
	}
	return nil
}

// createStartNodeCommand creates the start_node subcommand.
func createStartNodeCommand(stackCommand command, flags *NodeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start_node",
		Short: "Start the management node",
		Long: `Start the management node and wait until it answers the readiness API.
Dependencies (database, broker, free API port) are checked first. A node
that does not become ready within the timeout is stopped again.

Examples:
  stackctl start_node
  stackctl start_node --timeout=600
  stackctl start_node --host=192.168.0.2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.StartNode(*flags)
		},
	}
	cmd.Flags().IntVar(&flags.Timeout, "timeout", defaultStartTimeout, "seconds to wait for readiness")
	cmd.Flags().StringVar(&flags.Host, "host", "", "run on a remote host over SSH")
	return cmd
}

func (c command) StartNode(f NodeFlags) error {
	if f.Host != "" {
		return c.remote(f.Host, "start_node", "--timeout="+strconv.Itoa(f.Timeout))
	}
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	props, err := dc.Properties()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	app := dc.AppNode(runner.Local{}, props)
	return app.Start(ctx, time.Duration(f.Timeout)*time.Second)
}

// createStopNodeCommand creates the stop_node subcommand.
func createStopNodeCommand(stackCommand command, flags *NodeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop_node",
		Short: "Stop the management node",
		Long: `Stop the management node gracefully, escalating to kill -9 when the
process survives the stop window. --force skips the graceful phase.

Examples:
  stackctl stop_node
  stackctl stop_node --force
  stackctl stop_node --host=192.168.0.2`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.StopNode(*flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Force, "force", false, "kill immediately without a graceful stop")
	cmd.Flags().StringVar(&flags.Host, "host", "", "run on a remote host over SSH")
	return cmd
}

func (c command) StopNode(f NodeFlags) error {
	if f.Host != "" {
		args := []string{"stop_node"}
		if f.Force {
			args = append(args, "--force")
		}
		return c.remote(f.Host, args...)
	}
	dc, err := c.deployment()
	if err != nil {
		return err
	}
	props, err := dc.Properties()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()

	app := dc.AppNode(runner.Local{}, props)
	return app.Stop(ctx, f.Force)
}

// createStartCommand creates the whole-deployment start subcommand.
func createStartCommand(stackCommand command, flags *NodeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start every installed tier on this host",
		Long: `Start the installed tiers in dependency order: time-series store, then
the management node, then the web UI. Tiers not installed here are skipped.
The database and broker are expected to be running already.

Example:
  stackctl start`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.StartAll(*flags)
		},
	}
	cmd.Flags().IntVar(&flags.Timeout, "timeout", defaultStartTimeout, "seconds to wait for node readiness")
	return cmd
}

func (c command) StartAll(f NodeFlags) error {
	top, err := c.topology(f.Timeout)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	if err := top.StartAll(ctx); err != nil {
		return fmt.Errorf("not all services started: %w", err)
	}
	return nil
}

// createStopCommand creates the whole-deployment stop subcommand.
func createStopCommand(stackCommand command, flags *NodeFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop every installed tier on this host",
		Long: `Stop the installed tiers in reverse dependency order: web UI, then the
management node, then the time-series store.

Example:
  stackctl stop`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.StopAll(*flags)
		},
	}
	return cmd
}

func (c command) StopAll(f NodeFlags) error {
	top, err := c.topology(defaultStartTimeout)
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	if err := top.StopAll(ctx); err != nil {
		return fmt.Errorf("not all services stopped: %w", err)
	}
	return nil
}
