package localfs

import (
	"context"
	"io"
	"strings"
	"testing"
)

func TestSaveOpenDeleteRoundTrip(t *testing.T) {
	storage, err := New(t.TempDir())
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	ctx := context.Background()

	if err := storage.Save(ctx, "doc-1", strings.NewReader("考勤制度全文")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	reader, err := storage.Open(ctx, "doc-1")
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	raw, err := io.ReadAll(reader)
	_ = reader.Close()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(raw) != "考勤制度全文" {
		t.Fatalf("unexpected content %q", raw)
	}

	if err := storage.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := storage.Open(ctx, "doc-1"); err == nil {
		t.Fatalf("expected open to fail after delete")
	}
	// Second delete is a no-op.
	if err := storage.Delete(ctx, "doc-1"); err != nil {
		t.Fatalf("repeat Delete() error = %v", err)
	}
}

func TestKeysAreConfinedToBaseDir(t *testing.T) {
	dir := t.TempDir()
	storage, err := New(dir)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if err := storage.Save(context.Background(), "../escape", strings.NewReader("x")); err != nil {
		t.Fatalf("Save() error = %v", err)
	}
	if _, err := storage.Open(context.Background(), "escape"); err != nil {
		t.Fatalf("expected traversal key flattened into base dir: %v", err)
	}
}
