package model

import "errors"

var (
	// ErrLaunchFailed is returned when a session shell could not be spawned.
	ErrLaunchFailed = errors.New("launch failed")

	// ErrSessionNotFound is returned for operations addressed to a session
	// identifier that is absent from the registry or already terminated.
	ErrSessionNotFound = errors.New("session not found or terminated")

	// ErrPathNotFound is returned when a filesystem path does not exist.
	ErrPathNotFound = errors.New("path not found")

	// ErrNotADirectory is returned when a browse target exists but is not a directory.
	ErrNotADirectory = errors.New("not a directory")

	// ErrExecutionFailed is returned when a one-shot run could not be started.
	ErrExecutionFailed = errors.New("execution failed")

	// ErrProcessClosed is returned when writing to a terminated process.
	ErrProcessClosed = errors.New("process is closed")
)
