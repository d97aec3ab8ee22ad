// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package store

import (
	"os"
	"path/filepath"
	"sync"
	"time"
)

// TimestampStorage records the wall-clock time of the last completed
// build, used by the Chunk Runner/Scheduler to update a compilation start
// stamp after each chunk (§4.5, §4.7) and flushed unconditionally during
// finalize (§5: "Cancellation during final flush is not honored").
type TimestampStorage struct {
	root string

	mu   sync.Mutex
	last time.Time
}

type timestampFile struct {
	Last time.Time `json:"last"`
}

// OpenTimestampStorage loads the persisted timestamp, or starts fresh.
func OpenTimestampStorage(root string) (*TimestampStorage, error) {
	ts := &TimestampStorage{root: root}
	var f timestampFile
	err := readCompressed(ts.path(), &f)
	switch {
	case err == nil:
		ts.last = f.Last
	case isNotExist(err):
	default:
		return nil, wrapCorrupt("open-timestamp", err)
	}
	return ts, nil
}

func (ts *TimestampStorage) path() string {
	return filepath.Join(ts.root, "ibuild-timestamp.zst")
}

// Update records t as the last compilation start stamp, keeping the
// latest value only.
func (ts *TimestampStorage) Update(t time.Time) {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	if t.After(ts.last) {
		ts.last = t
	}
}

// Last returns the last recorded stamp.
func (ts *TimestampStorage) Last() time.Time {
	ts.mu.Lock()
	defer ts.mu.Unlock()
	return ts.last
}

// Force flushes the timestamp to disk unconditionally; safe to call
// concurrently with an in-flight build (§5 shared-resource policy).
func (ts *TimestampStorage) Force() error {
	ts.mu.Lock()
	f := timestampFile{Last: ts.last}
	ts.mu.Unlock()
	if err := writeCompressed(ts.path(), f); err != nil {
		return wrapCorrupt("force-timestamp", err)
	}
	return nil
}

// Clean wipes the persisted timestamp.
func (ts *TimestampStorage) Clean() error {
	ts.mu.Lock()
	ts.last = time.Time{}
	ts.mu.Unlock()
	if err := removeIfExists(ts.path()); err != nil {
		return wrapCorrupt("clean-timestamp", err)
	}
	return nil
}

func isNotExist(err error) bool {
	return os.IsNotExist(err)
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
