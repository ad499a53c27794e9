package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"syscall"

	vxerrors "github.com/loonghao/vx/internal/errors"
	"github.com/loonghao/vx/internal/provider"
)

// Execute is ExecuteStage: it runs prepared.Executable with prepared.Args,
// cwd, and env, forwarding the three standard streams unchanged, and
// returns the child's exit code. ctx cancellation (typically from
// WithInterrupt) kills the child and the exit code reflects the signal.
func (p *Pipeline) Execute(ctx context.Context, prepared *provider.PreparedContext) (int, error) {
	if prepared.Executable == "" {
		return -1, vxerrors.NewExecuteError(vxerrors.CodeExecNotFound, "", "", prepared.Args, nil)
	}

	cmd := exec.CommandContext(ctx, prepared.Executable, prepared.Args...)
	cmd.Dir = prepared.WorkingDir
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Env = flattenEnv(prepared.Env)

	err := cmd.Run()
	if err == nil {
		return 0, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}

	return -1, vxerrors.NewExecuteError(vxerrors.CodeExecFailed, "", prepared.Executable, prepared.Args, err)
}

func flattenEnv(env map[string]string) []string {
	out := make([]string, 0, len(env))
	for k, v := range env {
		out = append(out, fmt.Sprintf("%s=%s", k, v))
	}
	return out
}

// WithInterrupt wraps parent with a context cancelled on SIGINT or
// SIGTERM, per spec.md §4.8's cooperative Ctrl-C handling: a single signal
// cancels ctx so Ensure/Execute can unwind cleanly, rather than vx dying
// mid-write and leaving a half-extracted store entry.
func WithInterrupt(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
