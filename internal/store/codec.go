// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

// Package store implements the persistent-storage contract the driver
// relies on between invocations: the DataManager (source<->output maps,
// form map, dirty-state store) and the TimestampStorage (§6). State is
// serialized as JSON and compressed with zstd, the same compression
// library the teacher uses for its CAS blobs (reapi/hashfs), applied here
// to the driver's own persisted maps instead.
package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
)

// writeCompressed JSON-encodes v, zstd-compresses it, and writes it to
// path, replacing any existing file atomically via a temp-file rename.
func writeCompressed(path string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("store: marshal %s: %w", path, err)
	}
	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("store: new zstd writer: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(raw, nil)

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return fmt.Errorf("store: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("store: rename %s: %w", tmp, err)
	}
	return nil
}

// readCompressed reads and decodes path into v. It returns os.ErrNotExist
// (wrapped) if path doesn't exist yet, which callers treat as "no
// persisted state".
func readCompressed(path string, v any) error {
	compressed, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	dec, err := zstd.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return fmt.Errorf("store: new zstd reader for %s: %w", path, err)
	}
	defer dec.Close()
	raw, err := dec.DecodeAll(compressed, nil)
	if err != nil {
		return fmt.Errorf("store: decompress %s: %w", path, err)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("store: unmarshal %s: %w", path, err)
	}
	return nil
}
