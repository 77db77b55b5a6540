package remote

import (
	"crypto/md5"
	"encoding/hex"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestObjectCacheRoundTrip(t *testing.T) {
	cache := NewObjectCache(t.TempDir())

	if err := cache.Set("user", "application/json", []byte(`{"name":"x"}`)); err != nil {
		t.Fatalf("set failed: %v", err)
	}

	obj, err := cache.Get("user")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if obj.ContentType != "application/json" {
		t.Errorf("content type lost: %s", obj.ContentType)
	}
	if string(obj.Body) != `{"name":"x"}` {
		t.Errorf("body lost: %s", obj.Body)
	}
	if obj.Expired() {
		t.Error("fresh entry must not be expired")
	}
}

func TestObjectCacheFilenameIsKeyHash(t *testing.T) {
	dir := t.TempDir()
	cache := NewObjectCache(dir)
	if err := cache.Set("object/123", "image/png", []byte{1, 2, 3}); err != nil {
		t.Fatal(err)
	}

	sum := md5.Sum([]byte("object/123"))
	expected := filepath.Join(dir, hex.EncodeToString(sum[:]))
	if _, err := os.Stat(expected); err != nil {
		t.Errorf("expected cache file at %s: %v", expected, err)
	}
}

func TestObjectCacheMiss(t *testing.T) {
	cache := NewObjectCache(t.TempDir())
	if _, err := cache.Get("nope"); err != ErrCacheMiss {
		t.Errorf("expected ErrCacheMiss, got %v", err)
	}
}

func TestObjectCacheExpiry(t *testing.T) {
	cache := NewObjectCache(t.TempDir())
	if err := cache.Set("k", "text/plain", []byte("v")); err != nil {
		t.Fatal(err)
	}

	obj, err := cache.Get("k")
	if err != nil {
		t.Fatal(err)
	}
	// Rewind the clock past the 24h window.
	obj.Expiry = time.Now().Add(-time.Hour).Unix()
	if !obj.Expired() {
		t.Error("entry past its expiry must report expired")
	}
}

func TestObjectCacheDelete(t *testing.T) {
	cache := NewObjectCache(t.TempDir())
	if err := cache.Set("k", "text/plain", []byte("v")); err != nil {
		t.Fatal(err)
	}
	if err := cache.Delete("k"); err != nil {
		t.Fatal(err)
	}
	if _, err := cache.Get("k"); err != ErrCacheMiss {
		t.Error("deleted entry still readable")
	}
	// Deleting again is fine
	if err := cache.Delete("k"); err != nil {
		t.Errorf("double delete errored: %v", err)
	}
}

func TestObjectCacheJSONHelpers(t *testing.T) {
	cache := NewObjectCache(t.TempDir())

	type user struct {
		Name string `json:"name"`
	}
	if err := cache.SetJSON("user", user{Name: "quex"}); err != nil {
		t.Fatal(err)
	}

	var out user
	if err := cache.GetJSON("user", &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != "quex" {
		t.Errorf("round trip lost data: %+v", out)
	}
}
