package model

import "time"

// ShellKind identifies the shell a session should run. Unrecognized kinds
// resolve to the platform default shell instead of failing.
type ShellKind string

const (
	ShellBash       ShellKind = "bash"
	ShellZsh        ShellKind = "zsh"
	ShellFish       ShellKind = "fish"
	ShellSh         ShellKind = "sh"
	ShellPowershell ShellKind = "powershell"
	ShellCmd        ShellKind = "cmd"

	// ShellDefault selects the platform default shell.
	ShellDefault ShellKind = ""
)

// SessionStatus is the lifecycle status recorded for a session.
type SessionStatus string

const (
	SessionStatusRunning SessionStatus = "running"
	SessionStatusExited  SessionStatus = "exited"
	SessionStatusFailed  SessionStatus = "failed"
	SessionStatusKilled  SessionStatus = "killed"

	// SessionStatusInterrupted marks sessions that were still running when
	// the broker process went down. Sessions are never restored across
	// restarts; the audit trail just records that they were cut off.
	SessionStatusInterrupted SessionStatus = "interrupted"
)

// SessionRecord is the audit record persisted for each spawned session.
// It carries no process handle and is never used to revive a session.
type SessionRecord struct {
	RowID     int64         `json:"-"`
	SessionID string        `json:"sessionId"`
	ConnID    string        `json:"connId"`
	Shell     ShellKind     `json:"shell"`
	Workdir   string        `json:"workdir"`
	PID       int           `json:"pid"`
	Status    SessionStatus `json:"status"`
	ExitCode  *int          `json:"exitCode,omitempty"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`
}
