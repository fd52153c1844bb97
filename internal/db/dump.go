package db

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"stackctl/internal/runner"
)

// Dump writes a full logical dump of the portal's database to outPath.
func Dump(ctx context.Context, r runner.Runner, p Portal, outPath string) error {
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return err
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer func() { _ = f.Close() }()

	args := []string{"-u", p.User}
	if p.Password != "" {
		args = append(args, "-p"+p.Password)
	}
	args = append(args, "--host", p.Host, "--port", strconv.Itoa(p.Port), p.Name)

	cmd := runner.New("mysqldump", args...)
	cmd.Stdout = f
	if _, err := runner.Output(ctx, r, cmd); err != nil {
		return fmt.Errorf("database dump failed: %w", err)
	}
	return f.Sync()
}

// rootArgs builds mysql client arguments for the administrative user.
func rootArgs(p Portal, rootPassword string) []string {
	args := []string{"-u", "root"}
	if rootPassword != "" {
		args = append(args, "-p"+rootPassword)
	}
	return append(args, "--host", p.Host, "--port", strconv.Itoa(p.Port))
}

// CheckRootLogin verifies the administrative credentials before a restore
// touches anything.
func CheckRootLogin(ctx context.Context, r runner.Runner, p Portal, rootPassword string) error {
	args := append(rootArgs(p, rootPassword), "-e", "select 1")
	if _, err := runner.Output(ctx, r, runner.New("mysql", args...)); err != nil {
		return fmt.Errorf("failed to reach the database as root; use --root-password to provide the correct password: %w", err)
	}
	return nil
}

// RestoreDump feeds a previously taken dump back into the database as the
// administrative user.
func RestoreDump(ctx context.Context, r runner.Runner, p Portal, rootPassword, dumpPath string) error {
	f, err := os.Open(dumpPath)
	if err != nil {
		return fmt.Errorf("%s not found: %w", dumpPath, err)
	}
	defer func() { _ = f.Close() }()

	args := append(rootArgs(p, rootPassword), p.Name)
	cmd := runner.New("mysql", args...)
	cmd.Stdin = f
	if _, err := runner.Output(ctx, r, cmd); err != nil {
		return fmt.Errorf("database restore failed: %w", err)
	}
	return nil
}
