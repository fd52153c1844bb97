package runner

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
)

// Local runs commands on this host via os/exec.
type Local struct{}

func (Local) Run(ctx context.Context, c Cmd) (Result, error) {
	cmd := exec.CommandContext(ctx, c.Program, c.Args...) // #nosec G204
	cmd.Dir = c.WorkDir
	cmd.Stdin = c.Stdin
	setProcessGroup(cmd)

	var out, errBuf bytes.Buffer
	if c.Stdout != nil {
		cmd.Stdout = c.Stdout
	} else {
		cmd.Stdout = &out
	}
	cmd.Stderr = &errBuf

	err := cmd.Run()
	res := Result{Stdout: out.String(), Stderr: errBuf.String()}
	if err != nil {
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			res.ExitCode = ee.ExitCode()
			return res, nil
		}
		return res, err
	}
	return res, nil
}
