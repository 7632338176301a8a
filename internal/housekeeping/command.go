package housekeeping

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	pkgLog "repo-sync-automation/pkg/log"
)

const (
	DefaultCommandTimeout = 5 * time.Minute
	maxOutputInError      = 512
)

var ErrEmptyCommand = errors.New("empty post-sync command")

// CommandHook runs one configured command in the working tree. The command
// is split on whitespace and run without a shell.
type CommandHook struct {
	dir     string
	argv    []string
	timeout time.Duration
	l       pkgLog.Logger
}

func NewCommandHook(dir, command string, timeout time.Duration, l pkgLog.Logger) (*CommandHook, error) {
	argv := strings.Fields(command)
	if len(argv) == 0 {
		return nil, ErrEmptyCommand
	}
	if timeout <= 0 {
		timeout = DefaultCommandTimeout
	}
	return &CommandHook{dir: dir, argv: argv, timeout: timeout, l: l}, nil
}

func (h *CommandHook) Name() string {
	return h.argv[0]
}

func (h *CommandHook) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, h.argv[0], h.argv[1:]...)
	cmd.Dir = h.dir

	start := time.Now()
	out, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s failed: %w. output: %s", strings.Join(h.argv, " "), err, truncate(string(out), maxOutputInError))
	}
	h.l.Infof(ctx, "housekeeping: %s finished in %s", strings.Join(h.argv, " "), time.Since(start).Round(time.Millisecond))
	return nil
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
