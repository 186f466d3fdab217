// # internal/store/store_test.go
package store

import (
	"path/filepath"
	"testing"
	"time"

	"recompile/internal/deps"
)

func buildGraph() *deps.Graph {
	b := deps.NewBuilder()
	b.AddDependent("com.acme.B", "com.acme.A")
	b.AddDependent("com.acme.C", "com.acme.A")
	b.AddDependent("com.acme.C", "com.acme.B")
	b.MarkUnbounded("com.acme.K")
	b.AddDependent("com.acme.K", "com.acme.C")
	return b.Build()
}

func TestStore_SaveAndLoadGraph(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recompile.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	graph := buildGraph()
	saved, err := s.SavePass(Pass{
		ProjectKey: "billing",
		FileCount:  3,
		Duration:   120 * time.Millisecond,
	}, graph)
	if err != nil {
		t.Fatalf("save pass: %v", err)
	}
	if saved.ID == "" {
		t.Fatal("expected generated pass id")
	}
	if saved.ClassCount != graph.ClassCount() || saved.EdgeCount != graph.EdgeCount() {
		t.Fatalf("counts not filled from graph: %+v", saved)
	}
	if saved.UnboundedCount != 1 {
		t.Fatalf("expected 1 unbounded class, got %d", saved.UnboundedCount)
	}

	pass, loaded, err := s.LoadLatestGraph("billing")
	if err != nil {
		t.Fatalf("load latest graph: %v", err)
	}
	if pass.ID != saved.ID {
		t.Errorf("loaded pass %s, want %s", pass.ID, saved.ID)
	}
	if pass.Duration != 120*time.Millisecond {
		t.Errorf("duration = %v", pass.Duration)
	}

	got := loaded.RelevantDependentsOf("com.acme.C")
	if got.UnboundedImpact() {
		t.Fatal("unexpected unbounded result")
	}
	classes := got.DependentClasses()
	if len(classes) != 2 || classes[0] != "com.acme.A" || classes[1] != "com.acme.B" {
		t.Errorf("C dependents = %v", classes)
	}
	if !loaded.RelevantDependentsOf("com.acme.K").UnboundedImpact() {
		t.Error("unbounded flag lost in roundtrip")
	}
	kEdges := loaded.DependentsOf("com.acme.K").DirectDependents()
	if len(kEdges) != 1 || kEdges[0] != "com.acme.C" {
		t.Errorf("unbounded class edges lost in roundtrip: %v", kEdges)
	}
}

func TestStore_LoadPassesSinceFilter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recompile.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	graph := buildGraph()
	for i := 0; i < 3; i++ {
		_, err := s.SavePass(Pass{
			ProjectKey: "billing",
			Timestamp:  base.Add(time.Duration(i) * time.Hour),
		}, graph)
		if err != nil {
			t.Fatalf("save pass %d: %v", i, err)
		}
	}

	got, err := s.LoadPasses("billing", base.Add(90*time.Minute))
	if err != nil {
		t.Fatalf("load passes: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("expected 1 pass after since filter, got %d", len(got))
	}

	all, err := s.LoadPasses("billing", time.Time{})
	if err != nil {
		t.Fatalf("load all passes: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 passes, got %d", len(all))
	}
	if !all[0].Timestamp.Before(all[2].Timestamp) {
		t.Error("passes not ordered oldest first")
	}
}

func TestStore_Prune(t *testing.T) {
	path := filepath.Join(t.TempDir(), "recompile.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer s.Close()

	base := time.Date(2026, 8, 20, 10, 0, 0, 0, time.UTC)
	graph := buildGraph()
	for i := 0; i < 5; i++ {
		if _, err := s.SavePass(Pass{
			ProjectKey: "billing",
			Timestamp:  base.Add(time.Duration(i) * time.Minute),
		}, graph); err != nil {
			t.Fatalf("save pass %d: %v", i, err)
		}
	}

	if err := s.Prune("billing", 2); err != nil {
		t.Fatalf("prune: %v", err)
	}

	all, err := s.LoadPasses("billing", time.Time{})
	if err != nil {
		t.Fatalf("load passes: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 passes after prune, got %d", len(all))
	}
	if !all[1].Timestamp.Equal(base.Add(4 * time.Minute)) {
		t.Errorf("newest pass pruned away: %v", all[1].Timestamp)
	}

	// Graph of a surviving pass still loads.
	if _, _, err := s.LoadLatestGraph("billing"); err != nil {
		t.Fatalf("load latest graph after prune: %v", err)
	}
}

func TestStore_OpenRejectsBadPath(t *testing.T) {
	if _, err := Open(""); err == nil {
		t.Error("expected error for empty path")
	}
	if _, err := Open(t.TempDir()); err == nil {
		t.Error("expected error for directory path")
	}
}
