package tattle

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestFileStore(t *testing.T) (*FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tattle.json")
	fs, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("OpenFileStore: %v", err)
	}
	return fs, path
}

func TestFileStorePersistsAcrossReopen(t *testing.T) {
	fs, path := newTestFileStore(t)
	ctx := context.Background()

	if err := fs.Upsert(ctx, seedAt("a", "Kept", 1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := fs.MarkDefaultDeleted(ctx, "2"); err != nil {
		t.Fatalf("MarkDefaultDeleted: %v", err)
	}
	if err := fs.SaveSettings(ctx, Settings{AnalyticsID: "G-1"}); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}

	reopened, err := OpenFileStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	articles, _ := reopened.FetchAll(ctx)
	if len(articles) != 1 || articles[0].Title != "Kept" {
		t.Errorf("articles after reopen: %+v", articles)
	}
	deleted, _ := reopened.DeletedDefaultIDs(ctx)
	if !deleted["2"] {
		t.Errorf("markers after reopen: %v", deleted)
	}
	settings, _ := reopened.LoadSettings(ctx)
	if settings.AnalyticsID != "G-1" {
		t.Errorf("settings after reopen: %+v", settings)
	}
}

func TestFileStoreUpsertReplaces(t *testing.T) {
	fs, _ := newTestFileStore(t)
	ctx := context.Background()

	if err := fs.Upsert(ctx, seedAt("a", "First", 1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	if err := fs.Upsert(ctx, seedAt("a", "Second", 1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, _ := fs.FetchAll(ctx)
	if len(got) != 1 || got[0].Title != "Second" {
		t.Errorf("got %+v", got)
	}
}

func TestFileStoreDeleteMissingIsNoError(t *testing.T) {
	fs, path := newTestFileStore(t)
	if err := fs.Delete(context.Background(), "ghost"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// A pure no-op must not even create the file.
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("no-op delete flushed the file")
	}
}

func TestFileStoreBatchUpdateOrder(t *testing.T) {
	fs, _ := newTestFileStore(t)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if err := fs.Upsert(ctx, seedAt(id, "Article "+id, 1)); err != nil {
			t.Fatalf("Upsert: %v", err)
		}
	}
	if err := fs.BatchUpdateOrder(ctx, []string{"b", "a"}); err != nil {
		t.Fatalf("BatchUpdateOrder: %v", err)
	}
	got, _ := fs.FetchAll(ctx)
	for _, a := range got {
		want := map[string]int{"b": 0, "a": 1}[a.ID]
		if a.Order == nil || *a.Order != want {
			t.Errorf("article %s order = %v, want %d", a.ID, a.Order, want)
		}
	}
}

func TestFileStoreBatchUpdateOrderUnknownID(t *testing.T) {
	fs, _ := newTestFileStore(t)
	ctx := context.Background()
	if err := fs.Upsert(ctx, seedAt("a", "A", 1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	err := fs.BatchUpdateOrder(ctx, []string{"a", "ghost"})
	var batchErr *PartialBatchError
	if !errors.As(err, &batchErr) {
		t.Fatalf("error = %v, want *PartialBatchError", err)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Error("batch error should unwrap to ErrNotFound")
	}

	// Validation happens before any mutation.
	got, _ := fs.FetchAll(ctx)
	if got[0].Order != nil {
		t.Errorf("failed batch mutated state: order = %d", *got[0].Order)
	}
}

// A failed file write must not leave the unpersisted mutation visible to
// later reads: the caller gets the error and the in-memory state keeps the
// last successfully written contents.
func TestFileStoreFailedWriteLeavesStateUntouched(t *testing.T) {
	fs, path := newTestFileStore(t)
	ctx := context.Background()

	if err := fs.Upsert(ctx, seedAt("kept", "Kept", 1)); err != nil {
		t.Fatalf("Upsert: %v", err)
	}

	// Replace the backing file with a non-empty directory so the atomic
	// rename fails.
	if err := os.Remove(path); err != nil {
		t.Fatal(err)
	}
	if err := os.MkdirAll(filepath.Join(path, "blocker"), 0o755); err != nil {
		t.Fatal(err)
	}

	if err := fs.Upsert(ctx, seedAt("doomed", "Doomed", 2)); err == nil {
		t.Fatal("expected write failure")
	}
	got, _ := fs.FetchAll(ctx)
	if len(got) != 1 || got[0].ID != "kept" {
		t.Errorf("failed upsert leaked into state: %+v", got)
	}

	if err := fs.MarkDefaultDeleted(ctx, "1"); err == nil {
		t.Fatal("expected marker write failure")
	}
	deleted, _ := fs.DeletedDefaultIDs(ctx)
	if len(deleted) != 0 {
		t.Errorf("failed marker write leaked into state: %v", deleted)
	}

	if err := fs.SaveSettings(ctx, Settings{AnalyticsID: "G-1"}); err == nil {
		t.Fatal("expected settings write failure")
	}
	if settings, _ := fs.LoadSettings(ctx); settings.AnalyticsID != "" {
		t.Errorf("failed settings write leaked into state: %+v", settings)
	}
}

func TestFileStoreClearDefaultDeleted(t *testing.T) {
	fs, _ := newTestFileStore(t)
	ctx := context.Background()
	if err := fs.MarkDefaultDeleted(ctx, "1"); err != nil {
		t.Fatalf("MarkDefaultDeleted: %v", err)
	}
	if err := fs.ClearDefaultDeleted(ctx, "1"); err != nil {
		t.Fatalf("ClearDefaultDeleted: %v", err)
	}
	deleted, _ := fs.DeletedDefaultIDs(ctx)
	if len(deleted) != 0 {
		t.Errorf("markers = %v", deleted)
	}
	if err := fs.ClearDefaultDeleted(ctx, "never"); err != nil {
		t.Errorf("clearing an absent marker: %v", err)
	}
}
