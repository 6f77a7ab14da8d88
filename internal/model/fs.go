package model

import "time"

// EntryType classifies a directory child.
type EntryType string

const (
	EntryTypeDirectory EntryType = "directory"
	EntryTypeFile      EntryType = "file"
)

// DirectoryEntry describes one immediate child of a browsed directory.
// Size is omitted for directories.
type DirectoryEntry struct {
	Name       string    `json:"name"`
	Path       string    `json:"path"`
	Type       EntryType `json:"type"`
	Size       *int64    `json:"size,omitempty"`
	ModifiedAt time.Time `json:"modifiedAt"`
}

// DirectoryListing is the result of browsing a directory. Entries are
// ordered directories first, then locale-aware ascending by name.
type DirectoryListing struct {
	Path    string           `json:"path"`
	Entries []DirectoryEntry `json:"entries"`
}

// ExecutionResult is the captured outcome of a one-shot executable run.
type ExecutionResult struct {
	ExitCode int    `json:"exitCode"`
	Stdout   string `json:"stdout"`
	Stderr   string `json:"stderr"`
	Success  bool   `json:"success"`
}
