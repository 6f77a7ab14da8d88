//go:build windows
// +build windows

package shell

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/remote-shell-broker/backend/internal/model"
)

// Resolve maps a shell kind to a concrete (executable, argument vector)
// pair. Unrecognized kinds fall back to PowerShell, so Resolve never fails.
func Resolve(kind model.ShellKind) (string, []string) {
	switch kind {
	case model.ShellCmd:
		return "cmd.exe", nil
	case model.ShellPowershell:
		return "powershell.exe", []string{"-NoLogo"}
	default:
		return "powershell.exe", []string{"-NoLogo"}
	}
}

func defaultWorkdir() string {
	if home, err := os.UserHomeDir(); err == nil {
		return home
	}
	return `C:\`
}

func setSysProcAttr(cmd *exec.Cmd) {}

func killProcess(cmd *exec.Cmd) {
	if cmd.Process != nil {
		cmd.Process.Kill()
	}
}

// invocation resolves how to run path for a one-shot execution: known
// executable extensions run directly, script extensions go through their
// interpreter.
func invocation(path string, info os.FileInfo) []string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".exe", ".com":
		return []string{path}
	case ".bat", ".cmd":
		return []string{"cmd.exe", "/C", path}
	case ".ps1":
		return []string{"powershell.exe", "-File", path}
	case ".py":
		return []string{"python", path}
	default:
		return []string{path}
	}
}
