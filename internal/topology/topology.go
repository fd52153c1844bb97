// Package topology starts and stops the optional tiers of a deployment in
// dependency order. Tiers that are not installed on the host are skipped,
// never failed.
package topology

import (
	"context"
	"errors"
	"log/slog"
	"os"
)

// Service is one tier of the deployment.
type Service struct {
	Name string
	// InstallMarker is a path whose presence means the tier is installed
	// here; empty means always installed. Installed, when set, takes
	// precedence over the marker.
	InstallMarker string
	Installed     func() bool
	Start         func(ctx context.Context) error
	Stop          func(ctx context.Context) error
}

func (s Service) installed() bool {
	if s.Installed != nil {
		return s.Installed()
	}
	if s.InstallMarker == "" {
		return true
	}
	_, err := os.Stat(s.InstallMarker)
	return err == nil
}

// Controller drives the tiers as a group. Services are listed in start
// order; stop runs the same list in reverse.
type Controller struct {
	Services []Service
	Log      *slog.Logger
}

func (c *Controller) log() *slog.Logger {
	if c.Log != nil {
		return c.Log
	}
	return slog.Default()
}

// StartAll starts every installed tier in order. A failing tier is logged
// and the remaining tiers are still attempted; the joined errors come back
// at the end.
func (c *Controller) StartAll(ctx context.Context) error {
	var errs []error
	for _, s := range c.Services {
		if !s.installed() {
			c.log().Info("service not installed here, skipping", "service", s.Name)
			continue
		}
		c.log().Info("starting service", "service", s.Name)
		if err := s.Start(ctx); err != nil {
			c.log().Error("failed to start service", "service", s.Name, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// StopAll stops every installed tier in reverse start order, with the same
// keep-going error policy as StartAll.
func (c *Controller) StopAll(ctx context.Context) error {
	var errs []error
	for i := len(c.Services) - 1; i >= 0; i-- {
		s := c.Services[i]
		if !s.installed() {
			c.log().Info("service not installed here, skipping", "service", s.Name)
			continue
		}
		c.log().Info("stopping service", "service", s.Name)
		if err := s.Stop(ctx); err != nil {
			c.log().Error("failed to stop service", "service", s.Name, "err", err)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
