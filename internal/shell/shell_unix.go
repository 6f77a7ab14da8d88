//go:build !windows
// +build !windows

package shell

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"syscall"

	"golang.org/x/sys/unix"

	"github.com/remote-shell-broker/backend/internal/model"
)

// Resolve maps a shell kind to a concrete (executable, argument vector)
// pair. Unrecognized kinds fall back to the platform default shell, so
// Resolve never fails.
func Resolve(kind model.ShellKind) (string, []string) {
	switch kind {
	case model.ShellBash:
		return "bash", nil
	case model.ShellZsh:
		return "zsh", nil
	case model.ShellFish:
		return "fish", nil
	case model.ShellSh:
		return "sh", nil
	default:
		return defaultShell(), nil
	}
}

func defaultShell() string {
	if s := os.Getenv("SHELL"); s != "" {
		return s
	}
	return "/bin/bash"
}

func defaultWorkdir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return "/"
}

// setSysProcAttr puts the child in its own process group so Kill can take
// down the shell together with anything it spawned.
func setSysProcAttr(cmd *exec.Cmd) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
}

func killProcess(cmd *exec.Cmd) {
	if cmd.Process == nil {
		return
	}
	// Negative pid signals the whole process group.
	if err := unix.Kill(-cmd.Process.Pid, unix.SIGKILL); err != nil {
		cmd.Process.Kill()
	}
}

// invocation resolves how to run path for a one-shot execution: directly
// when the exec bit is set, otherwise through an interpreter picked by
// extension. Scripts without an exec bit and without a known extension are
// handed to sh.
func invocation(path string, info os.FileInfo) []string {
	if info.Mode()&0111 != 0 {
		return []string{path}
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".py":
		return []string{"python3", path}
	default:
		return []string{"sh", path}
	}
}
