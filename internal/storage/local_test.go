package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"testing"
)

func TestLocalStorage_UploadDownload(t *testing.T) {
	baseDir := t.TempDir()
	st, err := NewLocalStorage(baseDir)
	if err != nil {
		t.Fatalf("failed to create local storage: %v", err)
	}

	srcDir := t.TempDir()
	srcPath := filepath.Join(srcDir, "corpus.db")
	content := []byte("sqlite bytes")
	if err := os.WriteFile(srcPath, content, 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	ctx := context.Background()
	objectPath := "corpora/wiki.db"
	if err := st.Upload(ctx, srcPath, objectPath); err != nil {
		t.Fatalf("Upload failed: %v", err)
	}

	exists, err := st.Exists(ctx, objectPath)
	if err != nil || !exists {
		t.Fatalf("Exists = %v, %v; want true", exists, err)
	}

	dstPath := filepath.Join(srcDir, "out", "downloaded.db")
	if err := st.Download(ctx, objectPath, dstPath); err != nil {
		t.Fatalf("Download failed: %v", err)
	}
	downloaded, err := os.ReadFile(dstPath)
	if err != nil {
		t.Fatalf("failed to read downloaded file: %v", err)
	}
	if string(downloaded) != string(content) {
		t.Errorf("content mismatch: got %q, want %q", downloaded, content)
	}

	if err := st.Delete(ctx, objectPath); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := st.Delete(ctx, objectPath); err != nil {
		t.Errorf("deleting a missing object should succeed, got %v", err)
	}
	if exists, _ := st.Exists(ctx, objectPath); exists {
		t.Error("expected object to be gone after delete")
	}
}

func TestLocalStorage_DownloadMissing(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	err = st.Download(context.Background(), "missing.db", filepath.Join(t.TempDir(), "x"))
	if !errors.Is(err, ErrObjectNotFound) {
		t.Errorf("expected ErrObjectNotFound, got %v", err)
	}
}

func TestLocalStorage_ListObjects(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	src := filepath.Join(t.TempDir(), "f")
	if err := os.WriteFile(src, []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	ctx := context.Background()
	for _, p := range []string{"a/1.db", "a/2.db", "b/3.db"} {
		if err := st.Upload(ctx, src, p); err != nil {
			t.Fatal(err)
		}
	}

	got, err := st.ListObjects(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	sort.Strings(got)
	if len(got) != 2 || got[0] != "a/1.db" || got[1] != "a/2.db" {
		t.Errorf("ListObjects(a) = %v", got)
	}

	none, err := st.ListObjects(ctx, "missing")
	if err != nil || len(none) != 0 {
		t.Errorf("ListObjects(missing) = %v, %v", none, err)
	}
}

func TestLocalStorage_CancelledContext(t *testing.T) {
	st, err := NewLocalStorage(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := st.Upload(ctx, "x", "y"); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}
