package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"stackctl/internal/deploy"
	"stackctl/internal/runner"
	"stackctl/internal/service"
)

// createStartUICommand creates the start_ui subcommand.
func createStartUICommand(stackCommand command, flags *HostFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start_ui",
		Short: "Start the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.StartUI(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Host, "host", "", "run on a remote host over SSH")
	return cmd
}

func (c command) StartUI(f HostFlags) error {
	if f.Host != "" {
		return c.remote(f.Host, "start_ui")
	}
	ui, err := c.ui()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return ui.Start(ctx, 30*time.Second)
}

// createStopUICommand creates the stop_ui subcommand.
func createStopUICommand(stackCommand command, flags *HostFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop_ui",
		Short: "Stop the web UI",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.StopUI(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Host, "host", "", "run on a remote host over SSH")
	return cmd
}

func (c command) StopUI(f HostFlags) error {
	if f.Host != "" {
		return c.remote(f.Host, "stop_ui")
	}
	ui, err := c.ui()
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	return ui.Stop(ctx, false)
}

// createUIStatusCommand creates the ui_status subcommand.
func createUIStatusCommand(stackCommand command, flags *HostFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ui_status",
		Short: "Show the web UI state",
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.UIStatus(*flags)
		},
	}
	cmd.Flags().StringVar(&flags.Host, "host", "", "run on a remote host over SSH")
	return cmd
}

func (c command) UIStatus(f HostFlags) error {
	if f.Host != "" {
		return c.remote(f.Host, "ui_status")
	}
	ui, err := c.ui()
	if err != nil {
		return err
	}
	printf("web UI: %s", ui.Status())
	return nil
}

func (c command) ui() (*service.Controller, error) {
	dc, err := c.deployment()
	if err != nil {
		return nil, err
	}
	if !dc.UIInstalled() {
		return nil, fmt.Errorf("no web UI found on this host, please install it first")
	}
	return dc.UI(runner.Local{}), nil
}

// createTSDBCommand creates the tsdb subcommand.
func createTSDBCommand(stackCommand command, flags *TSDBFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tsdb",
		Short: "Control the time-series store",
		Long: `Start, stop or inspect the optional time-series store. The store is
located through the TSDB_EXEC and TSDB_CONF variables of the env file.

Examples:
  stackctl tsdb --status
  stackctl tsdb --start --wait-timeout=120
  stackctl tsdb --stop`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return stackCommand.TSDB(*flags)
		},
	}
	cmd.Flags().BoolVar(&flags.Start, "start", false, "start the store")
	cmd.Flags().BoolVar(&flags.Stop, "stop", false, "stop the store")
	cmd.Flags().BoolVar(&flags.Status, "status", false, "show the store state")
	cmd.Flags().IntVar(&flags.WaitTimeout, "wait-timeout", 60, "seconds to wait for the store to come up")
	return cmd
}

func (c command) TSDB(f TSDBFlags) error {
	picked := 0
	for _, b := range []bool{f.Start, f.Stop, f.Status} {
		if b {
			picked++
		}
	}
	if picked != 1 {
		return fmt.Errorf("exactly one of --start, --stop or --status is required")
	}

	dc, err := c.deployment()
	if err != nil {
		return err
	}
	env, err := dc.Env()
	if err != nil {
		return err
	}
	tsdb, installed := dc.TSDB(runner.Local{}, env)
	if !installed {
		return fmt.Errorf("no time-series store configured, set %s and %s with setenv first",
			deploy.EnvTSDBExec, deploy.EnvTSDBConf)
	}

	ctx, cancel := signalContext()
	defer cancel()
	switch {
	case f.Start:
		return tsdb.Start(ctx, time.Duration(f.WaitTimeout)*time.Second)
	case f.Stop:
		return tsdb.Stop(ctx, false)
	default:
		printf("time-series store: %s", tsdb.Status())
		return nil
	}
}
