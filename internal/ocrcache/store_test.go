package ocrcache

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
	"github.com/mgpai22/vobsub2srt/internal/ocr"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "nested", "cache.db"))
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestStoreGetPut(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	key := ocr.CacheKey{Provider: "tesseract", Language: "eng", Hash: "abc"}

	if _, ok, err := store.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get() on empty store = %v, %v", ok, err)
	}

	if err := store.Put(ctx, key, "Hello"); err != nil {
		t.Fatalf("Put() error = %v", err)
	}
	text, ok, err := store.Get(ctx, key)
	if err != nil || !ok || text != "Hello" {
		t.Fatalf("Get() = %q, %v, %v", text, ok, err)
	}

	// overwrite
	if err := store.Put(ctx, key, "Hello again"); err != nil {
		t.Fatal(err)
	}
	if text, _, _ := store.Get(ctx, key); text != "Hello again" {
		t.Errorf("Get() after overwrite = %q", text)
	}

	// empty text is a valid cached result
	empty := ocr.CacheKey{Provider: "tesseract", Language: "eng", Hash: "blank"}
	if err := store.Put(ctx, empty, ""); err != nil {
		t.Fatal(err)
	}
	if text, ok, _ := store.Get(ctx, empty); !ok || text != "" {
		t.Errorf("Get(empty) = %q, %v", text, ok)
	}

	// other language misses
	other := key
	other.Language = "fra"
	if _, ok, _ := store.Get(ctx, other); ok {
		t.Error("key with another language should miss")
	}

	// other page segmentation or preprocessing misses
	resized := key
	resized.Settings = "psm=7 invert=true scale=2 padding=10"
	if _, ok, _ := store.Get(ctx, resized); ok {
		t.Error("key with other settings should miss")
	}

	if n, err := store.Count(ctx); err != nil || n != 2 {
		t.Errorf("Count() = %d, %v", n, err)
	}
}

func TestStorePersists(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")
	key := ocr.CacheKey{Provider: "gemini", Language: "eng", Model: "gemini-2.5-flash", Hash: "h"}

	store, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put(ctx, key, "persisted"); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}

	reopened, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()
	if text, ok, _ := reopened.Get(ctx, key); !ok || text != "persisted" {
		t.Errorf("Get() after reopen = %q, %v", text, ok)
	}
	if reopened.Path() != path {
		t.Errorf("Path() = %q", reopened.Path())
	}
}

func TestStorePrune(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)
	if err := store.Put(ctx, ocr.CacheKey{Hash: "a"}, "a"); err != nil {
		t.Fatal(err)
	}

	n, err := store.Prune(ctx, time.Hour)
	if err != nil || n != 0 {
		t.Fatalf("Prune(1h) = %d, %v", n, err)
	}
	n, err = store.Prune(ctx, -time.Hour)
	if err != nil || n != 1 {
		t.Fatalf("Prune(-1h) = %d, %v", n, err)
	}
}

func TestStoreWithCachedRecognizer(t *testing.T) {
	ctx := context.Background()
	store := openTestStore(t)

	inner := ocr.NewPlaceholderRecognizer()
	cached := ocr.NewCachedRecognizer(inner, store, ocr.Options{})

	bm := bitmap.New(12, 3)
	if res := cached.Recognize(ctx, bm); !res.OK() {
		t.Fatalf("Recognize() = %v", res)
	}
	if res := cached.Recognize(ctx, bm); res.Text() != "[subtitle 12x3]" {
		t.Errorf("cached Recognize() = %v", res)
	}
	if hits, misses, _ := cached.Stats(); hits != 1 || misses != 1 {
		t.Errorf("Stats() hits=%d misses=%d", hits, misses)
	}
}

func TestClosedNilStore(t *testing.T) {
	var s *Store
	if err := s.Close(); err != nil {
		t.Errorf("Close() on nil store = %v", err)
	}
}
