package cache

import (
	"os"
	"testing"
)

func TestManager_Prune(t *testing.T) {
	root := t.TempDir()
	manager := NewManagerWithDir(root)

	for _, v := range []string{"1.0.0", "1.1.0", "1.2.0", "1.3.0", "1.4.0"} {
		seedVersion(t, root, v, v)
	}
	if err := os.MkdirAll(manager.HelperDir(), 0o755); err != nil {
		t.Fatal(err)
	}

	result, err := manager.Prune(2)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}

	if result.Kept != 2 {
		t.Errorf("Prune() Kept = %v, want 2", result.Kept)
	}
	if len(result.Deleted) != 3 {
		t.Errorf("Prune() Deleted count = %v, want 3", len(result.Deleted))
	}

	entries, err := manager.List()
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(entries) != 2 || entries[0].Version != "1.4.0" || entries[1].Version != "1.3.0" {
		t.Errorf("List() after prune = %+v, want 1.4.0 and 1.3.0", entries)
	}

	if _, err := os.Stat(manager.HelperDir()); err != nil {
		t.Errorf("helper dir must survive pruning: %v", err)
	}
}

func TestManager_PruneNoOp(t *testing.T) {
	root := t.TempDir()
	manager := NewManagerWithDir(root)
	seedVersion(t, root, "1.0.0", "a")

	result, err := manager.Prune(DefaultKeepCount)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if result.Kept != 1 {
		t.Errorf("Prune() Kept = %v, want 1", result.Kept)
	}
	if len(result.Deleted) != 0 {
		t.Errorf("Prune() Deleted = %v, want none", result.Deleted)
	}
}

func TestManager_PruneZero(t *testing.T) {
	root := t.TempDir()
	manager := NewManagerWithDir(root)
	seedVersion(t, root, "1.0.0", "a")
	seedVersion(t, root, "2.0.0", "b")

	result, err := manager.Prune(0)
	if err != nil {
		t.Fatalf("Prune() error = %v", err)
	}
	if len(result.Deleted) != 2 {
		t.Errorf("Prune(0) Deleted count = %v, want 2", len(result.Deleted))
	}
}

func TestManager_PruneNegative(t *testing.T) {
	manager := NewManagerWithDir(t.TempDir())

	if _, err := manager.Prune(-1); err == nil {
		t.Error("Prune(-1) should fail")
	}
}
