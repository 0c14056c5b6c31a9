package bridges

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := OpenStore(filepath.Join(dir, "mem"))
	if err != nil {
		t.Fatalf("OpenStore: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestMemoryGetNotFoundReturnsMemoryError(t *testing.T) {
	bridge := NewMemoryBridge(openTestStore(t), "plugin-a")

	_, err := bridge.Get("missing")
	var memErr *MemoryError
	if !errors.As(err, &memErr) {
		t.Fatalf("expected *MemoryError, got %T: %v", err, err)
	}
	if memErr.Error() != "Key not found: missing" {
		t.Fatalf("unexpected message: %q", memErr.Error())
	}
}

func TestMemorySetGetRoundTripsJSONTypes(t *testing.T) {
	bridge := NewMemoryBridge(openTestStore(t), "plugin-a")

	value := map[string]any{
		"string": "hello",
		"number": float64(42),
		"bool":   true,
		"nested": map[string]any{"key": "value"},
	}
	if err := bridge.Set("data", value); err != nil {
		t.Fatalf("Set: %v", err)
	}

	got, err := bridge.Get("data")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	obj, ok := got.(map[string]any)
	if !ok {
		t.Fatalf("Get() = %T, want map[string]any", got)
	}
	if obj["string"] != "hello" || obj["number"] != float64(42) || obj["bool"] != true {
		t.Fatalf("unexpected decoded value: %+v", obj)
	}
	nested, ok := obj["nested"].(map[string]any)
	if !ok || nested["key"] != "value" {
		t.Fatalf("unexpected nested value: %+v", obj["nested"])
	}
}

func TestMemoryExistsFoldsNotFoundIntoFalse(t *testing.T) {
	bridge := NewMemoryBridge(openTestStore(t), "plugin-a")

	ok, err := bridge.Exists("missing")
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if ok {
		t.Fatal("expected Exists to be false for missing key")
	}

	if err := bridge.Set("present", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	ok, err = bridge.Exists("present")
	if err != nil {
		t.Fatalf("Exists returned error: %v", err)
	}
	if !ok {
		t.Fatal("expected Exists to be true for present key")
	}
}

func TestMemoryDeleteReportsPriorExistence(t *testing.T) {
	bridge := NewMemoryBridge(openTestStore(t), "plugin-a")

	existed, err := bridge.Delete("missing")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if existed {
		t.Fatal("expected Delete of missing key to report false")
	}

	if err := bridge.Set("k", "v"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	existed, err = bridge.Delete("k")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !existed {
		t.Fatal("expected Delete of present key to report true")
	}
	if _, err := bridge.Get("k"); err == nil {
		t.Fatal("expected key to be gone after Delete")
	}
}

func TestMemoryNamespacingIsolatesPlugins(t *testing.T) {
	store := openTestStore(t)
	bridge1 := NewMemoryBridge(store, "plugin-1")
	bridge2 := NewMemoryBridge(store, "plugin-2")

	if err := bridge1.Set("k", "v1"); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if _, err := bridge2.Get("k"); err == nil {
		t.Fatal("expected bridge2 to not see bridge1's key")
	}

	got, err := bridge1.Get("k")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != "v1" {
		t.Fatalf("Get() = %v, want v1", got)
	}
}

func TestMemoryRecallPrefixesQueryWithNamespaceAndRespectsLimit(t *testing.T) {
	bridge := NewMemoryBridge(openTestStore(t), "plugin-a")

	for _, k := range []string{"note:1", "note:2", "note:3", "other"} {
		if err := bridge.Set(k, k); err != nil {
			t.Fatalf("Set(%s): %v", k, err)
		}
	}

	results, err := bridge.Recall("note:", 2)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("Recall() returned %d entries, want 2", len(results))
	}

	all, err := bridge.Recall("note:", 0)
	if err != nil {
		t.Fatalf("Recall: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("Recall() with no limit returned %d entries, want 3", len(all))
	}
}
