package ocr

import (
	"context"
	"errors"
	"testing"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
)

type countingRecognizer struct {
	calls  int
	result Result
	closed bool
}

func (c *countingRecognizer) Recognize(ctx context.Context, bm *bitmap.Bitmap) Result {
	c.calls++
	return c.result
}

func (c *countingRecognizer) Name() string { return "counting" }

func (c *countingRecognizer) Close() error {
	c.closed = true
	return nil
}

type memoryStore struct {
	entries map[CacheKey]string
	getErr  error
}

func (m *memoryStore) Get(ctx context.Context, key CacheKey) (string, bool, error) {
	if m.getErr != nil {
		return "", false, m.getErr
	}
	text, ok := m.entries[key]
	return text, ok, nil
}

func (m *memoryStore) Put(ctx context.Context, key CacheKey, text string) error {
	if m.entries == nil {
		m.entries = make(map[CacheKey]string)
	}
	m.entries[key] = text
	return nil
}

func TestCachedRecognizer(t *testing.T) {
	ctx := context.Background()
	inner := &countingRecognizer{result: Success("")}
	store := &memoryStore{}
	c := NewCachedRecognizer(inner, store, Options{Language: "eng", Model: "m1"})

	bm := bitmap.New(4, 2)
	bm.Row(0)[1] = 255

	first := c.Recognize(ctx, bm)
	same := bitmap.New(4, 2)
	copy(same.Pix, bm.Pix)
	second := c.Recognize(ctx, same)
	if !first.OK() || !second.OK() || second.Text() != "" {
		t.Fatalf("results = %v, %v", first, second)
	}
	if inner.calls != 1 {
		t.Errorf("inner calls = %d, want 1", inner.calls)
	}
	if hits, misses, errs := c.Stats(); hits != 1 || misses != 1 || errs != 0 {
		t.Errorf("Stats() = %d, %d, %d", hits, misses, errs)
	}

	for key := range store.entries {
		if key.Provider != "counting" || key.Language != "eng" || key.Model != "m1" ||
			key.Settings != "psm=6 invert=true scale=2 padding=10" || key.Hash != bm.Hash() {
			t.Errorf("unexpected key %+v", key)
		}
	}

	// different pixels miss
	other := bitmap.New(4, 2)
	c.Recognize(ctx, other)
	if inner.calls != 2 {
		t.Errorf("inner calls = %d, want 2", inner.calls)
	}

	if err := c.Close(); err != nil || !inner.closed {
		t.Error("Close should close the wrapped recognizer")
	}
}

func TestCachedRecognizerKeyIncludesSettings(t *testing.T) {
	ctx := context.Background()
	store := &memoryStore{}
	bm := bitmap.New(4, 2)
	bm.Row(1)[2] = 255

	base := Options{Language: "eng", PageSegMode: 6}
	tests := []struct {
		name     string
		opts     Options
		wantMiss bool
	}{
		{"first run", base, true},
		{"same settings", base, false},
		{"page segmentation", Options{Language: "eng", PageSegMode: 7}, true},
		{"scale", Options{Language: "eng", PageSegMode: 6, Preprocess: PreprocessOptions{Invert: true, Scale: 3, Padding: 10}}, true},
		{"no invert", Options{Language: "eng", PageSegMode: 6, Preprocess: PreprocessOptions{Scale: 2, Padding: 10}}, true},
		{"explicit defaults", Options{Language: "eng", PageSegMode: 6, Preprocess: DefaultPreprocessOptions()}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inner := &countingRecognizer{result: Success("hello")}
			c := NewCachedRecognizer(inner, store, tt.opts)
			if res := c.Recognize(ctx, bm); !res.OK() || res.Text() != "hello" {
				t.Fatalf("Recognize() = %v", res)
			}
			if got := inner.calls == 1; got != tt.wantMiss {
				t.Errorf("engine called = %v, want %v", got, tt.wantMiss)
			}
		})
	}
	if len(store.entries) != 4 {
		t.Errorf("stored %d entries, want 4", len(store.entries))
	}
}

func TestCachedRecognizerSkipsFailures(t *testing.T) {
	ctx := context.Background()
	inner := &countingRecognizer{result: Failure("unreadable")}
	store := &memoryStore{}
	c := NewCachedRecognizer(inner, store, Options{})

	bm := bitmap.New(2, 2)
	c.Recognize(ctx, bm)
	res := c.Recognize(ctx, bm)
	if res.OK() {
		t.Error("failure should not be cached as success")
	}
	if inner.calls != 2 || len(store.entries) != 0 {
		t.Errorf("calls = %d, stored = %d", inner.calls, len(store.entries))
	}
}

func TestCachedRecognizerStoreError(t *testing.T) {
	inner := &countingRecognizer{result: Success("text")}
	store := &memoryStore{getErr: errors.New("database is locked")}
	c := NewCachedRecognizer(inner, store, Options{})

	res := c.Recognize(context.Background(), bitmap.New(2, 2))
	if !res.OK() || res.Text() != "text" {
		t.Errorf("Recognize() = %v", res)
	}
	if _, _, errs := c.Stats(); errs != 1 {
		t.Errorf("store errors = %d, want 1", errs)
	}
}
