// pkg/process/process.go - child process execution for installers.

package process

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/progadmins/prospect/pkg/logging"
)

// Installer exit codes that count as success.
const (
	ExitOK               = 0
	ExitRestartRequired  = 3010
	ExitRestartInitiated = 1641
)

// ErrTimeout reports that the wait deadline elapsed before the child
// exited. The child itself was not terminated.
var ErrTimeout = errors.New("process wait timed out")

// SuccessExit reports whether an installer exit code signals success,
// including the restart-required variants.
func SuccessExit(code int) bool {
	switch code {
	case ExitOK, ExitRestartRequired, ExitRestartInitiated:
		return true
	}
	return false
}

// Runner executes resolved command lines.
type Runner interface {
	// Run launches the command line and waits for termination, returning
	// the exit code. A ctx deadline bounds only the wait: on expiry Run
	// returns ErrTimeout and the child keeps running, because a silent
	// installer UI can legitimately take a long time and killing it
	// mid-write is worse than waiting it out.
	Run(ctx context.Context, cmdline string) (int, error)
	// Start launches the command line detached, without waiting.
	Start(cmdline string) error
}

// ExecRunner runs commands as real child processes with no visible
// window.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, cmdline string) (int, error) {
	argv := SplitCommand(cmdline)
	if len(argv) == 0 {
		return -1, fmt.Errorf("empty command line")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	hideWindow(cmd)

	logging.Info("executing command", "command", cmdline)
	if err := cmd.Start(); err != nil {
		return -1, fmt.Errorf("launching %q: %w", argv[0], err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()

	select {
	case err := <-done:
		if err != nil {
			var exitErr *exec.ExitError
			if errors.As(err, &exitErr) {
				return exitErr.ExitCode(), nil
			}
			return -1, fmt.Errorf("waiting for %q: %w", argv[0], err)
		}
		return 0, nil
	case <-ctx.Done():
		// Deliberately no Process.Kill: the OS-level side effect cannot
		// be safely aborted mid-write. The goroutine reaps the child
		// whenever it does exit.
		logging.Warn("command still running at deadline, abandoning wait",
			"command", cmdline)
		return -1, ErrTimeout
	}
}

func (ExecRunner) Start(cmdline string) error {
	argv := SplitCommand(cmdline)
	if len(argv) == 0 {
		return fmt.Errorf("empty command line")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	logging.Info("launching command detached", "command", cmdline)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launching %q: %w", argv[0], err)
	}
	// Reap in the background so the child never zombies.
	go func() { _ = cmd.Wait() }()
	return nil
}

// SplitCommand breaks a command line into argv honoring double quotes.
// Uninstall strings recorded by installers routinely quote the
// executable path, e.g. `"C:\Program Files\App\unins000.exe" /SILENT`.
func SplitCommand(cmdline string) []string {
	var argv []string
	var cur strings.Builder
	inQuotes := false
	flush := func() {
		if cur.Len() > 0 {
			argv = append(argv, cur.String())
			cur.Reset()
		}
	}
	for _, r := range cmdline {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == ' ' || r == '\t':
			if inQuotes {
				cur.WriteRune(r)
			} else {
				flush()
			}
		default:
			cur.WriteRune(r)
		}
	}
	flush()
	return argv
}
