package commands

import (
	"context"
	"strings"
	"testing"

	"github.com/alexeiaccio/notion-forum/internal/cache"
)

func TestRevalidateDropsDiskEntries(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("CACHE_BACKEND", "disk")
	t.Setenv("CACHE_DIR", dir)

	store, err := cache.NewDiskStore(dir)
	if err != nil {
		t.Fatalf("NewDiskStore: %v", err)
	}
	ctx := context.Background()
	for _, key := range []string{"page/p1", "page/p1/comments/c1", "user/u1"} {
		if err := store.Set(ctx, key, []byte(`{}`)); err != nil {
			t.Fatalf("Set %s: %v", key, err)
		}
	}

	out, err := run(t, "revalidate", "page/p1", "page/p1/comments/c1")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out, "revalidated page/p1/comments/c1") {
		t.Errorf("output = %q", out)
	}

	for key, want := range map[string]bool{"page/p1": false, "page/p1/comments/c1": false, "user/u1": true} {
		_, ok, err := store.Get(ctx, key)
		if err != nil {
			t.Fatalf("Get %s: %v", key, err)
		}
		if ok != want {
			t.Errorf("%s present = %v, want %v", key, ok, want)
		}
	}
}

func TestRevalidateRejectsForeignPaths(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "memory")
	if _, err := run(t, "revalidate", "../etc/passwd"); err == nil {
		t.Fatal("expected an error for a non cache path")
	}
}

func TestRevalidateWithoutBackend(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "none")
	if _, err := run(t, "revalidate", "page/p1"); err == nil {
		t.Fatal("expected an error when caching is off")
	}
}
