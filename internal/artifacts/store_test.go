package artifacts

import (
	"context"
	"errors"
	"testing"
)

func TestObjectKey(t *testing.T) {
	if got := ObjectKey("/exports/", "2026-03-10", "", "clients-all-2026-03-10.csv"); got != "exports/2026-03-10/clients-all-2026-03-10.csv" {
		t.Fatalf("unexpected key %q", got)
	}
	if got := ObjectKey("", "file.csv"); got != "file.csv" {
		t.Fatalf("unexpected key %q", got)
	}
}

func TestNoopStoreReportsNotConfigured(t *testing.T) {
	store := NewNoopStore()
	if err := store.Put(context.Background(), "k", "text/csv", []byte("a")); !errors.Is(err, ErrNotConfigured) {
		t.Fatalf("expected ErrNotConfigured, got %v", err)
	}
}

func TestNewS3StoreWithStaticCredentials(t *testing.T) {
	store, err := NewS3Store(context.Background(), "us-east-1", "http://localhost:9000", "key", "secret", "exports")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.bucket != "exports" || store.client == nil {
		t.Fatalf("unexpected store: %+v", store)
	}
}
