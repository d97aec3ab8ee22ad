// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package clean implements the Output Cleaner (§4.3): whole-project clean
// on rebuild, and selective per-target cleaning of outputs corresponding
// to changed or deleted sources.
package clean

import (
	"os"
)

// FS is the filesystem surface the Output Cleaner needs. A real OSFS
// backs production use; tests supply an in-memory fake so no test ever
// touches the real disk (the driver's actual VFS/indexing layer is an
// out-of-scope collaborator per spec §1).
type FS interface {
	// ReadDir lists the immediate children of dir (names only).
	ReadDir(dir string) ([]string, error)
	// RemoveAll recursively removes path.
	RemoveAll(path string) error
	// IsEmptyDir reports whether dir exists and has no children.
	IsEmptyDir(dir string) (bool, error)
	// Exists reports whether path is present on disk.
	Exists(path string) (bool, error)
}

// OSFS is the production FS backed by the real filesystem.
type OSFS struct{}

func (OSFS) ReadDir(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names, nil
}

func (OSFS) RemoveAll(path string) error {
	return os.RemoveAll(path)
}

func (OSFS) IsEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}

func (OSFS) Exists(path string) (bool, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}
