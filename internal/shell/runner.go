package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"

	"github.com/remote-shell-broker/backend/internal/model"
)

// Run executes path to completion with args, capturing stdout and stderr
// fully in memory. The path must exist before spawning; a missing path or a
// failed spawn is an ErrExecutionFailed. A nonzero exit code is not an
// error, it is reported in the result.
//
// Directly executable files run as-is; scripts are routed through the
// interpreter matching their extension (see invocation).
func Run(ctx context.Context, path string, args []string, workdir string) (*model.ExecutionResult, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: executable not found: %s", model.ErrExecutionFailed, path)
		}
		return nil, fmt.Errorf("%w: %v", model.ErrExecutionFailed, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("%w: %s is a directory", model.ErrExecutionFailed, path)
	}

	argv := invocation(path, info)
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	if workdir == "" {
		workdir = defaultWorkdir()
	}
	cmd.Dir = workdir
	cmd.Env = os.Environ()

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	code := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("%w: %v", model.ErrExecutionFailed, err)
		}
	}

	return &model.ExecutionResult{
		ExitCode: code,
		Stdout:   stdout.String(),
		Stderr:   stderr.String(),
		Success:  code == 0,
	}, nil
}
