package blob

import (
	"context"
	"io"
	"strings"
	"testing"
)

// runStoreContract exercises the behavior every driver must share: create-only
// Put, readback, Head, prefix listing, idempotent Delete, and GET presigning.
func runStoreContract(t *testing.T, store Store) {
	t.Helper()
	ctx := context.Background()
	payload := "code,name\nD001,Influenza\n"

	info, err := store.Put(ctx, "exports/job-1/artifact.csv", strings.NewReader(payload), PutOptions{
		ContentType: "text/csv",
		Metadata:    map[string]string{"export": "job-1"},
	})
	if err != nil {
		t.Fatalf("put: %v", err)
	}
	if info.Size != int64(len(payload)) {
		t.Fatalf("expected size %d, got %d", len(payload), info.Size)
	}
	if store.Driver() != DriverS3 && info.URL == "" {
		t.Fatalf("expected a URL on put")
	}

	if _, err := store.Put(ctx, "exports/job-1/artifact.csv", strings.NewReader("other"), PutOptions{}); err == nil {
		t.Fatalf("expected create-only put to reject overwrite")
	}

	head, err := store.Head(ctx, "exports/job-1/artifact.csv")
	if err != nil {
		t.Fatalf("head: %v", err)
	}
	if head.Size != int64(len(payload)) || head.ContentType != "text/csv" {
		t.Fatalf("unexpected head info: %+v", head)
	}

	_, rc, err := store.Get(ctx, "exports/job-1/artifact.csv")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	body, err := io.ReadAll(rc)
	_ = rc.Close()
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	if string(body) != payload {
		t.Fatalf("payload mismatch: %q", body)
	}

	if _, err := store.Put(ctx, "exports/job-2/artifact.json", strings.NewReader("{}"), PutOptions{ContentType: "application/json"}); err != nil {
		t.Fatalf("put second: %v", err)
	}
	infos, err := store.List(ctx, "exports/job-1/")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(infos) != 1 || infos[0].Key != "exports/job-1/artifact.csv" {
		t.Fatalf("unexpected listing: %+v", infos)
	}
	all, err := store.List(ctx, "")
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 objects, got %d", len(all))
	}

	url, err := store.PresignURL(ctx, "exports/job-1/artifact.csv", SignedURLOptions{})
	if err != nil {
		t.Fatalf("presign: %v", err)
	}
	if url == "" {
		t.Fatalf("expected a presigned URL")
	}

	deleted, err := store.Delete(ctx, "exports/job-1/artifact.csv")
	if err != nil || !deleted {
		t.Fatalf("delete: deleted=%v err=%v", deleted, err)
	}
	if store.Driver() != DriverS3 {
		// S3 DeleteObject cannot distinguish a miss without an extra Head.
		deleted, err = store.Delete(ctx, "exports/job-1/artifact.csv")
		if err != nil || deleted {
			t.Fatalf("second delete must be a no-op: deleted=%v err=%v", deleted, err)
		}
	}
	if _, err := store.Head(ctx, "exports/job-1/artifact.csv"); err == nil {
		t.Fatalf("expected head miss after delete")
	}
}

func TestFilesystemStoreContract(t *testing.T) {
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	runStoreContract(t, store)
}

func TestMemoryStoreContract(t *testing.T) {
	runStoreContract(t, NewMemory())
}

func TestS3StoreContract(t *testing.T) {
	runStoreContract(t, NewS3MockForTests())
}

func TestSanitizeKeyRejectsTraversal(t *testing.T) {
	for _, key := range []string{"", "  ", "../escape", "a/../../b", "/absolute"} {
		if _, err := sanitizeKey(key); err == nil {
			t.Fatalf("expected rejection of key %q", key)
		}
	}
	clean, err := sanitizeKey("exports/a/b.csv")
	if err != nil || clean != "exports/a/b.csv" {
		t.Fatalf("expected clean key, got %q (%v)", clean, err)
	}
}

func TestOpenSelectsDriver(t *testing.T) {
	ctx := context.Background()

	store, err := Open(ctx, Options{Driver: DriverMemory})
	if err != nil || store.Driver() != DriverMemory {
		t.Fatalf("memory driver: %v", err)
	}

	store, err = Open(ctx, Options{Driver: DriverFilesystem, FSRoot: t.TempDir()})
	if err != nil || store.Driver() != DriverFilesystem {
		t.Fatalf("fs driver: %v", err)
	}

	// Empty driver defaults to the filesystem.
	store, err = Open(ctx, Options{FSRoot: t.TempDir()})
	if err != nil || store.Driver() != DriverFilesystem {
		t.Fatalf("default driver: %v", err)
	}

	if _, err := Open(ctx, Options{Driver: Driver("bogus")}); err == nil {
		t.Fatalf("expected unknown driver error")
	}
}

func TestPresignRejectsNonGet(t *testing.T) {
	ctx := context.Background()
	for _, store := range []Store{NewMemory(), mustFilesystem(t)} {
		if _, err := store.PresignURL(ctx, "k", SignedURLOptions{Method: "PUT"}); err == nil {
			t.Fatalf("%s: expected ErrUnsupported for PUT presign", store.Driver())
		}
	}
}

func mustFilesystem(t *testing.T) *Filesystem {
	t.Helper()
	store, err := NewFilesystem(t.TempDir())
	if err != nil {
		t.Fatalf("new filesystem store: %v", err)
	}
	return store
}
