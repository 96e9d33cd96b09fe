package ocr

import (
	"context"
	"fmt"

	"github.com/mgpai22/vobsub2srt/internal/bitmap"
)

// CacheKey identifies a recognition: the same pixels read by the same engine
// configuration give the same text.
type CacheKey struct {
	Provider string
	Language string
	Model    string
	// page segmentation and preprocessing, see cacheSettings
	Settings string
	Hash     string
}

// persistent store of successful recognitions
type Store interface {
	Get(ctx context.Context, key CacheKey) (string, bool, error)
	Put(ctx context.Context, key CacheKey, text string) error
}

// CachedRecognizer consults a Store before delegating to another recognizer.
// Only successes are stored; store errors fall through to the engine.
type CachedRecognizer struct {
	inner    Recognizer
	store    Store
	language string
	model    string
	settings string

	hits      int
	misses    int
	storeErrs int
}

func NewCachedRecognizer(inner Recognizer, store Store, opts Options) *CachedRecognizer {
	return &CachedRecognizer{
		inner:    inner,
		store:    store,
		language: opts.withDefaults().Language,
		model:    opts.Model,
		settings: cacheSettings(opts),
	}
}

// cacheSettings renders the options that change what an engine reads from
// the same pixels.
func cacheSettings(opts Options) string {
	opts = opts.withDefaults()
	pre := opts.Preprocess
	return fmt.Sprintf("psm=%d invert=%t scale=%d padding=%d",
		opts.PageSegMode, pre.Invert, pre.Scale, pre.Padding)
}

func (c *CachedRecognizer) key(bm *bitmap.Bitmap) CacheKey {
	return CacheKey{
		Provider: c.inner.Name(),
		Language: c.language,
		Model:    c.model,
		Settings: c.settings,
		Hash:     bm.Hash(),
	}
}

func (c *CachedRecognizer) Recognize(ctx context.Context, bm *bitmap.Bitmap) Result {
	if bm.Empty() {
		return c.inner.Recognize(ctx, bm)
	}

	key := c.key(bm)
	text, ok, err := c.store.Get(ctx, key)
	if err != nil {
		c.storeErrs++
	} else if ok {
		c.hits++
		return Success(text)
	}
	c.misses++

	res := c.inner.Recognize(ctx, bm)
	if res.OK() {
		if err := c.store.Put(ctx, key, res.Text()); err != nil {
			c.storeErrs++
		}
	}
	return res
}

// Stats reports cache hits, misses and store errors.
func (c *CachedRecognizer) Stats() (hits, misses, storeErrors int) {
	return c.hits, c.misses, c.storeErrs
}

func (c *CachedRecognizer) Name() string { return c.inner.Name() }

// Close closes the wrapped recognizer; the store belongs to the caller.
func (c *CachedRecognizer) Close() error { return c.inner.Close() }
