package service

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"stackctl/internal/probe"
	"stackctl/internal/procfind"
	"stackctl/internal/runner"
)

// Defaults for the stop escalation loop.
const (
	DefaultStopWait     = 30 * time.Second
	DefaultPollInterval = time.Second
)

// StartupTimeoutError reports a service that never became ready within the
// caller's deadline. The service has already been stopped best-effort.
type StartupTimeoutError struct {
	Service string
	Timeout time.Duration
	LogHint string
}

func (e *StartupTimeoutError) Error() string {
	msg := fmt.Sprintf("service %q did not become ready within %v", e.Service, e.Timeout)
	if e.LogHint != "" {
		msg += ", please check errors in " + e.LogHint
	}
	return msg
}

// Check verifies one start dependency (database reachable, broker port open).
type Check func(ctx context.Context) error

// Controller drives start/stop/status for one logical service. It owns the
// service's process instance exclusively; execution is sequential by
// convention, there is no locking.
type Controller struct {
	Desc      Descriptor
	Registry  procfind.Registry
	Runner    runner.Runner
	Ready     func() probe.Readiness // optional protocol probe
	Preflight []Check
	Log       *slog.Logger

	// Overridable in tests; zero values fall back to the defaults above.
	StopWait     time.Duration
	PollInterval time.Duration
	StartSettle  time.Duration
}

func (c *Controller) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

func (c *Controller) stopWait() time.Duration {
	if c.StopWait > 0 {
		return c.StopWait
	}
	return DefaultStopWait
}

func (c *Controller) pollInterval() time.Duration {
	if c.PollInterval > 0 {
		return c.PollInterval
	}
	return DefaultPollInterval
}

// Status combines process discovery with the optional protocol probe.
func (c *Controller) Status() NodeState {
	pid, err := c.Registry.Find(c.Desc.Token)
	if err != nil {
		return Unknown
	}
	if pid == 0 {
		return Stopped
	}
	if c.Ready == nil {
		return Running
	}
	switch c.Ready() {
	case probe.Ready:
		return Running
	case probe.Starting:
		return Starting
	case probe.Down:
		return Zombie
	default:
		return Unknown
	}
}

// Start brings the service up and waits until it is ready or timeout
// elapses. Already-running services are a success with no side effect.
// A readiness timeout triggers a best-effort Stop before the error surfaces.
func (c *Controller) Start(ctx context.Context, timeout time.Duration) error {
	if pid, err := c.Registry.Find(c.Desc.Token); err == nil && pid != 0 {
		c.log().Info("service is already running", "service", c.Desc.Name, "pid", pid)
		return nil
	}

	for _, check := range c.Preflight {
		if err := check(ctx); err != nil {
			return err
		}
	}

	if c.Desc.BootErrorLog != "" {
		// stale boot error from an earlier attempt must not abort this one
		_ = os.Remove(c.Desc.BootErrorLog)
	}

	if _, err := runner.Output(ctx, c.Runner, c.Desc.Start); err != nil {
		return fmt.Errorf("cannot start service %q: %w", c.Desc.Name, err)
	}

	if c.StartSettle > 0 {
		time.Sleep(c.StartSettle)
	}

	var bootErr error
	ok := probe.WaitUntil(func() bool {
		if c.Desc.BootErrorLog != "" {
			if data, err := os.ReadFile(c.Desc.BootErrorLog); err == nil {
				bootErr = fmt.Errorf("service %q failed to boot: %s", c.Desc.Name, string(data))
				return true
			}
		}
		return c.ready()
	}, timeout, c.pollInterval())

	if bootErr != nil {
		c.log().Info("service failed to boot, stopping it now", "service", c.Desc.Name)
		_ = c.Stop(ctx, false)
		return bootErr
	}
	if !ok {
		c.log().Info("service did not become ready, stopping it now", "service", c.Desc.Name)
		_ = c.Stop(ctx, false)
		return &StartupTimeoutError{Service: c.Desc.Name, Timeout: timeout, LogHint: c.Desc.LogHint}
	}

	c.log().Info("successfully started service", "service", c.Desc.Name)
	return nil
}

func (c *Controller) ready() bool {
	if c.Ready != nil {
		return c.Ready() == probe.Ready
	}
	pid, err := c.Registry.Find(c.Desc.Token)
	return err == nil && pid != 0
}

// Stop brings the service down. Already-stopped services are a success.
// The graceful stop command runs first unless force is set; a process that
// survives the stop window is killed.
func (c *Controller) Stop(ctx context.Context, force bool) error {
	pid, err := c.Registry.Find(c.Desc.Token)
	if err != nil {
		return fmt.Errorf("cannot determine state of service %q: %w", c.Desc.Name, err)
	}
	if pid == 0 {
		c.log().Info("service has already stopped", "service", c.Desc.Name)
		return nil
	}

	if !force {
		if _, err := runner.Output(ctx, c.Runner, c.Desc.Stop); err != nil {
			c.log().Warn("graceful stop command failed, will escalate", "service", c.Desc.Name, "err", err)
		}
		gone := probe.WaitUntil(func() bool {
			pid, err := c.Registry.Find(c.Desc.Token)
			return err == nil && pid == 0
		}, c.stopWait(), c.pollInterval())
		if gone {
			c.log().Info("successfully stopped service", "service", c.Desc.Name)
			return nil
		}
		c.log().Info("service did not stop in time, killing it", "service", c.Desc.Name, "wait", c.stopWait())
	}

	pid, err = c.Registry.Find(c.Desc.Token)
	if err != nil || pid == 0 {
		return nil
	}
	if _, err := runner.Output(ctx, c.Runner, runner.New("kill", "-9", strconv.Itoa(pid))); err != nil {
		return fmt.Errorf("unable to kill -9 %d: %w", pid, err)
	}
	c.log().Info("killed service", "service", c.Desc.Name, "pid", pid)
	return nil
}
