// Package shell spawns shell subprocesses and one-shot executables.
//
// The launcher resolves a requested shell kind against a platform table and
// hands back exclusive ownership of the child's stdin/stdout/stderr streams.
// Processes are executed directly, never through an interpreting shell layer,
// so there is no metacharacter injection via the command field.
package shell

import (
	"fmt"
	"io"
	"os"
	"os/exec"
	"sync"

	"go.uber.org/zap"

	"github.com/remote-shell-broker/backend/internal/model"
)

// Launcher spawns shell subprocesses. It is stateless apart from its logger
// and safe for concurrent use.
type Launcher struct {
	log *zap.Logger
}

// NewLauncher creates a Launcher.
func NewLauncher(log *zap.Logger) *Launcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Launcher{log: log}
}

// Launch resolves kind to a concrete executable and starts it in workdir.
// An empty workdir defaults to the user home directory. The child inherits
// the parent environment verbatim. The returned Handle exclusively owns the
// process streams.
//
// The directory is not validated up front; a bad directory surfaces as a
// launch failure from the spawn itself.
func (l *Launcher) Launch(kind model.ShellKind, workdir string) (*Handle, error) {
	path, args := Resolve(kind)
	if workdir == "" {
		workdir = defaultWorkdir()
	}

	cmd := exec.Command(path, args...)
	cmd.Dir = workdir
	cmd.Env = os.Environ()
	setSysProcAttr(cmd)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdin pipe: %v", model.ErrLaunchFailed, err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stdout pipe: %v", model.ErrLaunchFailed, err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: stderr pipe: %v", model.ErrLaunchFailed, err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrLaunchFailed, err)
	}

	l.log.Debug("spawned shell",
		zap.String("shell", path),
		zap.String("workdir", workdir),
		zap.Int("pid", cmd.Process.Pid))

	return &Handle{
		cmd:    cmd,
		stdin:  stdin,
		stdout: stdout,
		stderr: stderr,
		pid:    cmd.Process.Pid,
		dir:    workdir,
		done:   make(chan struct{}),
	}, nil
}

// Handle is an exclusively-owned running subprocess. The registry entry for
// a session is the only holder of its Handle.
type Handle struct {
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout io.ReadCloser
	stderr io.ReadCloser
	pid    int
	dir    string

	killOnce sync.Once
	done     chan struct{}
}

// PID returns the child process ID.
func (h *Handle) PID() int {
	return h.pid
}

// Dir returns the working directory the process was started in.
func (h *Handle) Dir() string {
	return h.dir
}

// Stdout returns the standard output stream. The caller must drain it
// independently of Stderr.
func (h *Handle) Stdout() io.Reader {
	return h.stdout
}

// Stderr returns the standard error stream.
func (h *Handle) Stderr() io.Reader {
	return h.stderr
}

// Write sends bytes to the process stdin. After the process has been reaped
// it fails with ErrProcessClosed.
func (h *Handle) Write(p []byte) (int, error) {
	select {
	case <-h.done:
		return 0, model.ErrProcessClosed
	default:
	}

	n, err := h.stdin.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %v", model.ErrProcessClosed, err)
	}
	return n, nil
}

// CloseStdin closes the process input stream, signalling EOF to the child.
func (h *Handle) CloseStdin() error {
	return h.stdin.Close()
}

// Wait reaps the process and returns its exit code. A process terminated by
// a signal reports -1. Wait must be called exactly once, after the output
// streams have been drained.
func (h *Handle) Wait() (int, error) {
	defer close(h.done)

	err := h.cmd.Wait()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return exitErr.ExitCode(), nil
		}
		return -1, err
	}
	return 0, nil
}

// Kill requests process termination. It is idempotent and a no-op once the
// process has already exited. On unix the whole process group is signalled
// so shell children do not survive.
func (h *Handle) Kill() {
	h.killOnce.Do(func() {
		select {
		case <-h.done:
			return
		default:
		}
		killProcess(h.cmd)
	})
}

// Done is closed once the process has been reaped.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}
