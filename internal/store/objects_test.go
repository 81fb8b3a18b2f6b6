package store

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"
)

func TestObjectName(t *testing.T) {
	cases := map[string]string{
		"page/abc":              "page/abc.json",
		"/user/u":               "user/u.json",
		"page/p/comments/c1/c2": "page/p/comments/c1/c2.json",
	}
	for in, want := range cases {
		if got := objectName(in); got != want {
			t.Errorf("objectName(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestIsNoSuchKeyIgnoresOtherErrors(t *testing.T) {
	if isNoSuchKey(errors.New("connection refused")) {
		t.Fatal("plain errors are not NoSuchKey")
	}
}

func TestObjectStoreRoundTrip(t *testing.T) {
	endpoint := strings.TrimSpace(os.Getenv("FORUM_TEST_S3_ENDPOINT"))
	if endpoint == "" {
		t.Skip("FORUM_TEST_S3_ENDPOINT is not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	store, err := NewObjectStore(ctx, ObjectStoreConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("FORUM_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("FORUM_TEST_S3_SECRET_KEY"),
		Bucket:    "forum-cache-test",
	})
	if err != nil {
		t.Fatalf("NewObjectStore: %v", err)
	}

	if _, ok, err := store.Get(ctx, "page/missing"); err != nil || ok {
		t.Fatalf("Get missing = ok %v, err %v", ok, err)
	}
	if err := store.Set(ctx, "page/p", []byte(`{"tag":"page"}`)); err != nil {
		t.Fatalf("Set: %v", err)
	}
	raw, ok, err := store.Get(ctx, "page/p")
	if err != nil || !ok || string(raw) != `{"tag":"page"}` {
		t.Fatalf("Get = %s, ok %v, err %v", raw, ok, err)
	}
	if err := store.Delete(ctx, "page/p"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, ok, _ := store.Get(ctx, "page/p"); ok {
		t.Fatal("expected miss after delete")
	}
}
