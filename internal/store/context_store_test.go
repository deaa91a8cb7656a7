package store

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"pitchforge/internal/workspace"
)

func setupStoreTest(t *testing.T) (*ContextStore, string) {
	t.Helper()
	dir := t.TempDir()
	return NewContextStore(dir), workspace.Resolve("store-test-key")
}

func TestSaveAndGet(t *testing.T) {
	store, ws := setupStoreTest(t)

	saved, err := store.Save(ws, "Acme", "We build anvils.")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if saved.Created.IsZero() || saved.LastUpdated.IsZero() {
		t.Error("Save should stamp Created and LastUpdated")
	}

	got := store.Get(ws, "Acme")
	if got == nil {
		t.Fatal("Expected saved context, got nil")
	}
	if got.CompanyInfo != "We build anvils." {
		t.Errorf("Expected info %q, got %q", "We build anvils.", got.CompanyInfo)
	}
}

func TestSaveOverwritesByName(t *testing.T) {
	store, ws := setupStoreTest(t)

	first, err := store.Save(ws, "Acme", "old info")
	if err != nil {
		t.Fatalf("First save failed: %v", err)
	}

	store.now = func() time.Time { return first.Created.Add(time.Hour) }

	second, err := store.Save(ws, "Acme", "new info")
	if err != nil {
		t.Fatalf("Second save failed: %v", err)
	}

	names := store.List(ws)
	if len(names) != 1 {
		t.Fatalf("Expected exactly one record after overwrite, got %d: %v", len(names), names)
	}

	got := store.Get(ws, "Acme")
	if got.CompanyInfo != "new info" {
		t.Errorf("Expected overwritten info, got %q", got.CompanyInfo)
	}
	if !got.Created.Equal(first.Created) {
		t.Errorf("Overwrite should preserve Created: want %v, got %v", first.Created, got.Created)
	}
	if !got.LastUpdated.After(first.LastUpdated) {
		t.Errorf("Overwrite should refresh LastUpdated: %v not after %v", got.LastUpdated, first.LastUpdated)
	}
	_ = second
}

func TestSaveRejectsEmptyName(t *testing.T) {
	store, ws := setupStoreTest(t)

	if _, err := store.Save(ws, "", "info"); err != ErrEmptyCompanyName {
		t.Errorf("Expected ErrEmptyCompanyName, got %v", err)
	}
	if names := store.List(ws); len(names) != 0 {
		t.Errorf("Rejected save should write nothing, found %v", names)
	}
}

func TestListPreservesInsertionOrder(t *testing.T) {
	store, ws := setupStoreTest(t)

	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		if _, err := store.Save(ws, name, "info"); err != nil {
			t.Fatalf("Save %q failed: %v", name, err)
		}
	}

	names := store.List(ws)
	want := []string{"Zeta", "Alpha", "Mid"}
	if len(names) != len(want) {
		t.Fatalf("Expected %d names, got %d", len(want), len(names))
	}
	for i := range want {
		if names[i] != want[i] {
			t.Errorf("Order mismatch at %d: want %q, got %q", i, want[i], names[i])
		}
	}

	// Overwriting an existing name must not duplicate or reorder it.
	if _, err := store.Save(ws, "Alpha", "updated"); err != nil {
		t.Fatalf("Overwrite failed: %v", err)
	}
	names = store.List(ws)
	if len(names) != 3 || names[1] != "Alpha" {
		t.Errorf("Overwrite changed collection shape: %v", names)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	store, ws := setupStoreTest(t)

	if _, err := store.Save(ws, "Acme", "info"); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete(ws, "Acme"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := store.Delete(ws, "Acme"); err != nil {
		t.Errorf("Repeated delete should succeed silently, got %v", err)
	}
	if err := store.Delete(ws, "never-existed"); err != nil {
		t.Errorf("Deleting a missing name should succeed silently, got %v", err)
	}

	if got := store.Get(ws, "Acme"); got != nil {
		t.Error("Context should be gone after delete")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	store, ws := setupStoreTest(t)

	if _, err := store.Save(ws, "Acme", "We build anvils."); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	exported, ok := store.Export(ws, "Acme")
	if !ok {
		t.Fatal("Export of existing context should succeed")
	}

	other := workspace.Resolve("another-workspace")
	name, err := store.Import(other, exported, "")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if name != "Acme" {
		t.Errorf("Import should derive name from record, got %q", name)
	}

	got := store.Get(other, "Acme")
	if got == nil {
		t.Fatal("Imported context not found")
	}
	if got.CompanyInfo != "We build anvils." {
		t.Errorf("Round trip lost company info: %q", got.CompanyInfo)
	}
}

func TestExportAbsent(t *testing.T) {
	store, ws := setupStoreTest(t)

	if _, ok := store.Export(ws, "ghost"); ok {
		t.Error("Export of a missing context should report absent")
	}
}

func TestImportExplicitAndFallbackNames(t *testing.T) {
	store, ws := setupStoreTest(t)

	name, err := store.Import(ws, `{"company_name": "Acme", "company_info": "x"}`, "Renamed")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if name != "Renamed" {
		t.Errorf("Explicit name should win, got %q", name)
	}

	name, err = store.Import(ws, `{"company_info": "anonymous"}`, "")
	if err != nil {
		t.Fatalf("Import failed: %v", err)
	}
	if name != ImportFallbackName {
		t.Errorf("Expected fallback name %q, got %q", ImportFallbackName, name)
	}
}

func TestImportParseFailureWritesNothing(t *testing.T) {
	store, ws := setupStoreTest(t)

	if _, err := store.Import(ws, "not json at all {", ""); err == nil {
		t.Fatal("Expected parse error")
	}
	if names := store.List(ws); len(names) != 0 {
		t.Errorf("Failed import should write nothing, found %v", names)
	}
}

func TestCorruptFileReadsAsEmpty(t *testing.T) {
	dir := t.TempDir()
	store := NewContextStore(dir)
	ws := workspace.Resolve("corrupt-test")

	path := filepath.Join(dir, "contexts_"+ws+".json")
	if err := os.WriteFile(path, []byte("{{{{ definitely not json"), 0600); err != nil {
		t.Fatalf("Failed to plant corrupt file: %v", err)
	}

	if names := store.List(ws); len(names) != 0 {
		t.Errorf("Corrupt file should read as empty collection, got %v", names)
	}

	// A save over the corrupt file must still work.
	if _, err := store.Save(ws, "Acme", "info"); err != nil {
		t.Fatalf("Save over corrupt file failed: %v", err)
	}
	if got := store.Get(ws, "Acme"); got == nil {
		t.Error("Save after corruption should be readable")
	}
}

func TestEmptyWorkspaceIsNoOp(t *testing.T) {
	store, _ := setupStoreTest(t)

	if names := store.List(""); names != nil {
		t.Errorf("List with empty workspace should return nothing, got %v", names)
	}
	if rec, err := store.Save("", "Acme", "info"); rec != nil || err != nil {
		t.Errorf("Save with empty workspace should be a no-op, got %v, %v", rec, err)
	}
	if got := store.Get("", "Acme"); got != nil {
		t.Error("Get with empty workspace should return nil")
	}
	if err := store.Delete("", "Acme"); err != nil {
		t.Errorf("Delete with empty workspace should be a no-op, got %v", err)
	}
}
