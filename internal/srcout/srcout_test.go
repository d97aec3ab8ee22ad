// Copyright 2026 The ibuild Authors
// Use of this source code is governed by a BSD-style license that can be
// found in the LICENSE file.

package srcout_test

import (
	"sort"
	"testing"

	"github.com/jetcirc/ibuild/internal/srcout"
)

func TestAddOutputAccumulates(t *testing.T) {
	m := srcout.New()
	m.AddOutput("a.src", "a.out")
	m.AddOutput("a.src", "a2.out")

	got := m.Outputs("a.src")
	sort.Strings(got)
	want := []string{"a.out", "a2.out"}
	if len(got) != len(want) || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("Outputs(a.src)=%v; want %v", got, want)
	}
}

func TestSetOutputsReplaces(t *testing.T) {
	m := srcout.New()
	m.AddOutput("a.src", "stale.out")
	m.SetOutputs("a.src", []string{"fresh.out"})

	got := m.Outputs("a.src")
	if len(got) != 1 || got[0] != "fresh.out" {
		t.Errorf("Outputs(a.src)=%v; want [fresh.out]", got)
	}
}

func TestSafeToDeleteOutputsSharedSource(t *testing.T) {
	m := srcout.New()
	m.AddOutput("a.src", "shared.out")
	m.AddOutput("b.src", "shared.out")
	m.AddOutput("a.src", "only-a.out")

	safe := m.SafeToDeleteOutputs([]string{"shared.out", "only-a.out"}, "a.src")
	if len(safe) != 1 || safe[0] != "only-a.out" {
		t.Errorf("SafeToDeleteOutputs=%v; want [only-a.out]", safe)
	}
}

func TestRemoveDropsFromInverse(t *testing.T) {
	m := srcout.New()
	m.AddOutput("a.src", "x.out")
	m.Remove("a.src")

	if got := m.Outputs("a.src"); len(got) != 0 {
		t.Errorf("Outputs after Remove=%v; want empty", got)
	}
	safe := m.SafeToDeleteOutputs([]string{"x.out"}, "")
	if len(safe) != 1 || safe[0] != "x.out" {
		t.Errorf("SafeToDeleteOutputs after Remove=%v; want [x.out]", safe)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	m := srcout.New()
	m.AddOutput("a.src", "a.out")
	m.AddOutput("b.src", "b.out")

	restored := srcout.Import(m.Export())
	got := restored.Outputs("a.src")
	if len(got) != 1 || got[0] != "a.out" {
		t.Errorf("restored Outputs(a.src)=%v; want [a.out]", got)
	}
}
