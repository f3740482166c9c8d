package recovery

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"time"

	"github.com/mendhq/mend/pkg/playbook"
)

// Runner executes one playbook command, bounded by the command's own
// timeout. A timeout is indistinguishable from a non-zero exit code.
type Runner interface {
	Run(ctx context.Context, cmd playbook.Command) error
}

// ShellRunner runs command templates through the shell
type ShellRunner struct {
	// Shell is the interpreter (default: /bin/sh)
	Shell string
}

// NewShellRunner creates a runner using /bin/sh
func NewShellRunner() *ShellRunner {
	return &ShellRunner{Shell: "/bin/sh"}
}

// Run executes the command and waits for it to finish or time out
func (r *ShellRunner) Run(ctx context.Context, cmd playbook.Command) error {
	if cmd.Template == "" {
		return fmt.Errorf("no command specified")
	}

	timeout := cmd.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	execCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	shell := r.Shell
	if shell == "" {
		shell = "/bin/sh"
	}
	command := exec.CommandContext(execCtx, shell, "-c", cmd.Template)

	var stdout, stderr bytes.Buffer
	command.Stdout = &stdout
	command.Stderr = &stderr

	err := command.Run()
	if err == nil {
		return nil
	}

	if execCtx.Err() == context.DeadlineExceeded {
		return fmt.Errorf("command timed out after %v: %s", timeout, cmd.Template)
	}

	msg := fmt.Sprintf("command failed: %v", err)
	if stderr.Len() > 0 {
		msg = fmt.Sprintf("%s, stderr: %s", msg, truncate(stderr.String(), 200))
	}
	return fmt.Errorf("%s", msg)
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
