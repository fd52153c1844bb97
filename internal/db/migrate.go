package db

import (
	"context"
	"fmt"

	"stackctl/internal/runner"
)

// MigrationError reports a failed invocation of the schema migrator.
type MigrationError struct {
	Stage string
	Err   error
}

func (e *MigrationError) Error() string { return fmt.Sprintf("migration %s failed: %v", e.Stage, e.Err) }
func (e *MigrationError) Unwrap() error { return e.Err }

// Migrator invokes the external forward-only schema migration tool shipped
// with the artifact. It only ever moves the schema forward; rollback is a
// dump restore, never a down-migration.
type Migrator struct {
	Runner runner.Runner
	// Tool is the migrator launcher script path inside the artifact tree.
	Tool   string
	Portal Portal
}

func (m Migrator) credentials() []string {
	args := []string{"-user=" + m.Portal.User}
	if m.Portal.Password != "" {
		args = append(args, "-password="+m.Portal.Password)
	}
	return append(args, "-url="+m.Portal.JDBCURL())
}

// Baseline creates the version table with the pre-migration baseline row.
// Called lazily when a database predates schema versioning.
func (m Migrator) Baseline(ctx context.Context) error {
	args := append([]string{m.Tool, "baseline",
		"-baselineVersion=" + BaselineVersion,
		"-baselineDescription=" + BaselineVersion + " version"},
		m.credentials()...)
	if _, err := runner.Output(ctx, m.Runner, runner.New("bash", args...)); err != nil {
		return &MigrationError{Stage: "baseline", Err: err}
	}
	return nil
}

// Migrate applies every pending script under scriptsDir in version order.
func (m Migrator) Migrate(ctx context.Context, scriptsDir string) error {
	args := append([]string{m.Tool, "migrate"}, m.credentials()...)
	args = append(args, "-locations=filesystem:"+scriptsDir)
	if _, err := runner.Output(ctx, m.Runner, runner.New("bash", args...)); err != nil {
		return &MigrationError{Stage: "migrate", Err: err}
	}
	return nil
}
