package db

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stackctl/internal/runner"
)

type scriptedRunner struct {
	lines []string
	code  int
}

func (s *scriptedRunner) Run(_ context.Context, c runner.Cmd) (runner.Result, error) {
	s.lines = append(s.lines, c.String())
	return runner.Result{ExitCode: s.code, Stderr: "scripted"}, nil
}

func testMigrator(r runner.Runner) Migrator {
	return Migrator{
		Runner: r,
		Tool:   "/opt/stack/tools/flyway/flyway",
		Portal: Portal{Host: "db", Port: 3306, User: "stack", Password: "s3c", Name: "stack"},
	}
}

func TestBaselineCommandLine(t *testing.T) {
	r := &scriptedRunner{}
	require.NoError(t, testMigrator(r).Baseline(context.Background()))
	require.Len(t, r.lines, 1)
	line := r.lines[0]
	assert.Contains(t, line, "bash /opt/stack/tools/flyway/flyway baseline")
	assert.Contains(t, line, "-baselineVersion=0.6")
	assert.Contains(t, line, "-user=stack")
	assert.Contains(t, line, "-url=jdbc:mysql://db:3306/stack")
}

func TestMigrateCommandLine(t *testing.T) {
	r := &scriptedRunner{}
	require.NoError(t, testMigrator(r).Migrate(context.Background(), "/opt/stack/db/upgrade"))
	require.Len(t, r.lines, 1)
	assert.Contains(t, r.lines[0], "migrate")
	assert.Contains(t, r.lines[0], "-locations=filesystem:/opt/stack/db/upgrade")
}

func TestMigratorOmitsEmptyPassword(t *testing.T) {
	r := &scriptedRunner{}
	m := testMigrator(r)
	m.Portal.Password = ""
	require.NoError(t, m.Migrate(context.Background(), "/scripts"))
	assert.NotContains(t, r.lines[0], "-password")
}

func TestMigrationFailureIsTyped(t *testing.T) {
	r := &scriptedRunner{code: 1}
	err := testMigrator(r).Migrate(context.Background(), "/scripts")
	var me *MigrationError
	require.ErrorAs(t, err, &me)
	assert.Equal(t, "migrate", me.Stage)
}

func TestDumpAndRestoreCommandLines(t *testing.T) {
	r := &scriptedRunner{}
	p := Portal{Host: "db", Port: 3306, User: "stack", Password: "s3c", Name: "stack"}

	out := t.TempDir() + "/backup.sql"
	require.NoError(t, Dump(context.Background(), r, p, out))
	require.Len(t, r.lines, 1)
	assert.Contains(t, r.lines[0], "mysqldump -u stack -ps3c --host db --port 3306 stack")

	dump := out
	r.lines = nil
	require.NoError(t, RestoreDump(context.Background(), r, p, "rootpw", dump))
	require.Len(t, r.lines, 1)
	assert.Contains(t, r.lines[0], "mysql -u root -prootpw --host db --port 3306 stack")
}

func TestCheckRootLoginFailure(t *testing.T) {
	r := &scriptedRunner{code: 1}
	err := CheckRootLogin(context.Background(), r, Portal{Host: "db", Port: 3306}, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--root-password")
}
