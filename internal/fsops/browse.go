// Package fsops provides stateless filesystem helper operations consumed
// outside the persistent-session model.
package fsops

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/remote-shell-broker/backend/internal/model"
)

// Browse lists the immediate children of path with type, size, and
// modification time. Nothing is cached; every call stats fresh.
//
// Children whose metadata cannot be read (broken symlinks and the like) are
// omitted from the listing rather than aborting it; that is the contract.
// Entries come back directories first, then ascending locale-aware name
// order within each group.
func Browse(path string) (*model.DirectoryListing, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrPathNotFound, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", model.ErrPathNotFound, abs)
		}
		return nil, err
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", model.ErrNotADirectory, abs)
	}

	children, err := os.ReadDir(abs)
	if err != nil {
		return nil, err
	}

	entries := make([]model.DirectoryEntry, 0, len(children))
	for _, child := range children {
		childPath := filepath.Join(abs, child.Name())

		// Stat follows symlinks so entries classify by their target; a
		// dangling symlink fails here and is skipped.
		fi, err := os.Stat(childPath)
		if err != nil {
			continue
		}

		entry := model.DirectoryEntry{
			Name:       child.Name(),
			Path:       childPath,
			ModifiedAt: fi.ModTime(),
		}
		if fi.IsDir() {
			entry.Type = model.EntryTypeDirectory
		} else {
			entry.Type = model.EntryTypeFile
			size := fi.Size()
			entry.Size = &size
		}
		entries = append(entries, entry)
	}

	collator := collate.New(language.Und)
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i], entries[j]
		if a.Type != b.Type {
			return a.Type == model.EntryTypeDirectory
		}
		return collator.CompareString(a.Name, b.Name) < 0
	})

	return &model.DirectoryListing{Path: abs, Entries: entries}, nil
}
