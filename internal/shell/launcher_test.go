//go:build !windows

package shell

import (
	"bufio"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/remote-shell-broker/backend/internal/model"
)

func TestResolve(t *testing.T) {
	t.Run("known kinds map to their executables", func(t *testing.T) {
		path, args := Resolve(model.ShellSh)
		if path != "sh" || len(args) != 0 {
			t.Errorf("expected (sh, []), got (%s, %v)", path, args)
		}

		path, _ = Resolve(model.ShellBash)
		if path != "bash" {
			t.Errorf("expected bash, got %s", path)
		}
	})

	t.Run("unknown kind falls back to platform default", func(t *testing.T) {
		path, _ := Resolve(model.ShellKind("no-such-shell"))
		if path == "" {
			t.Error("fallback shell should never be empty")
		}
		want := os.Getenv("SHELL")
		if want == "" {
			want = "/bin/bash"
		}
		if path != want {
			t.Errorf("expected default shell %s, got %s", want, path)
		}
	})
}

func TestLauncher_Launch(t *testing.T) {
	launcher := NewLauncher(nil)

	t.Run("round trip through a shell", func(t *testing.T) {
		h, err := launcher.Launch(model.ShellSh, t.TempDir())
		if err != nil {
			t.Fatalf("launch failed: %v", err)
		}

		if h.PID() <= 0 {
			t.Errorf("expected positive pid, got %d", h.PID())
		}

		if _, err := h.Write([]byte("echo hello\n")); err != nil {
			t.Fatalf("write failed: %v", err)
		}
		if err := h.CloseStdin(); err != nil {
			t.Fatalf("close stdin failed: %v", err)
		}

		r := bufio.NewReader(h.Stdout())
		line, err := r.ReadString('\n')
		if err != nil {
			t.Fatalf("read failed: %v", err)
		}
		if line != "hello\n" {
			t.Errorf("expected %q, got %q", "hello\n", line)
		}

		code, err := h.Wait()
		if err != nil {
			t.Fatalf("wait failed: %v", err)
		}
		if code != 0 {
			t.Errorf("expected exit code 0, got %d", code)
		}
	})

	t.Run("bad workdir surfaces as launch failure", func(t *testing.T) {
		_, err := launcher.Launch(model.ShellSh, "/definitely/not/a/dir")
		if err == nil {
			t.Fatal("expected launch failure")
		}
		if !errors.Is(err, model.ErrLaunchFailed) {
			t.Errorf("expected ErrLaunchFailed, got %v", err)
		}
	})

	t.Run("kill is idempotent and stops the process", func(t *testing.T) {
		h, err := launcher.Launch(model.ShellSh, t.TempDir())
		if err != nil {
			t.Fatalf("launch failed: %v", err)
		}

		h.Kill()
		h.Kill()

		done := make(chan int, 1)
		go func() {
			code, _ := h.Wait()
			done <- code
		}()

		select {
		case code := <-done:
			if code != -1 {
				t.Errorf("expected signal death (-1), got %d", code)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("process did not die after kill")
		}
	})

	t.Run("write after exit fails with process closed", func(t *testing.T) {
		h, err := launcher.Launch(model.ShellSh, t.TempDir())
		if err != nil {
			t.Fatalf("launch failed: %v", err)
		}

		h.CloseStdin()
		if _, err := h.Wait(); err != nil {
			t.Fatalf("wait failed: %v", err)
		}

		if _, err := h.Write([]byte("echo nope\n")); !errors.Is(err, model.ErrProcessClosed) {
			t.Errorf("expected ErrProcessClosed, got %v", err)
		}
	})
}
