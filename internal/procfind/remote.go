package procfind

import (
	"context"
	"strconv"
	"strings"

	"stackctl/internal/runner"
)

// Remote discovers processes on another host through the command channel,
// so controllers depend only on the Registry interface, not on where the
// service runs.
type Remote struct {
	Runner runner.Runner
}

func (r Remote) Find(token string) (int, error) {
	res, err := r.Runner.Run(context.Background(), runner.New("pgrep", "-f", token))
	if err != nil {
		return 0, err
	}
	if res.ExitCode != 0 {
		// pgrep exits 1 when nothing matches
		return 0, nil
	}
	for _, line := range strings.Split(strings.TrimSpace(res.Stdout), "\n") {
		pid, err := strconv.Atoi(strings.TrimSpace(line))
		if err == nil && pid > 0 {
			return pid, nil
		}
	}
	return 0, nil
}
