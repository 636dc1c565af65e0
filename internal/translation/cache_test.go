package translation

import (
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"nara.lk/portal/internal/globaltime"
)

func TestPrefixCacheKeyIsDeterministic(t *testing.T) {
	t.Parallel()

	keyFn := NewKeyFunc(CacheKeyPrefix, DefaultCacheKeyPrefix)
	a := keyFn("Marine biodiversity survey", "si")
	b := keyFn("Marine   biodiversity\nsurvey", "si")
	if a != b {
		t.Fatalf("expected whitespace-insensitive keys, got %q and %q", a, b)
	}
	if keyFn("Marine biodiversity survey", "ta") == a {
		t.Fatalf("expected target language to change the key")
	}
	if !strings.HasSuffix(string(a), ":si") {
		t.Fatalf("expected key to end with target code, got %q", a)
	}
}

func TestPrefixCacheKeySharesLongPrefixes(t *testing.T) {
	t.Parallel()

	prefix := strings.Repeat("a", DefaultCacheKeyPrefix)
	prefixKey := NewKeyFunc(CacheKeyPrefix, 0)
	if prefixKey(prefix+" one", "si") != prefixKey(prefix+" two", "si") {
		t.Fatalf("expected prefix mode to key only the leading runes")
	}

	hashKey := NewKeyFunc(CacheKeyFullHash, 0)
	if hashKey(prefix+" one", "si") == hashKey(prefix+" two", "si") {
		t.Fatalf("expected hash mode to distinguish full texts")
	}
}

func TestParseCacheKeyMode(t *testing.T) {
	t.Parallel()

	cases := map[string]CacheKeyMode{
		"":       CacheKeyPrefix,
		"prefix": CacheKeyPrefix,
		"HASH":   CacheKeyFullHash,
		"full":   CacheKeyFullHash,
		"other":  CacheKeyPrefix,
	}
	for raw, want := range cases {
		if got := ParseCacheKeyMode(raw); got != want {
			t.Fatalf("ParseCacheKeyMode(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestMemoryCachePutGetClear(t *testing.T) {
	globaltime.SetMockTime(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	defer globaltime.ResetTime()

	cache := NewMemoryCache()
	if _, ok := cache.Get("missing"); ok {
		t.Fatalf("expected miss on empty cache")
	}

	cache.Put("k", "value")
	got, ok := cache.Get("k")
	if !ok || got != "value" {
		t.Fatalf("expected cached value, got %q ok=%v", got, ok)
	}
	entry, ok := cache.Entry("k")
	if !ok || !entry.CreatedAt.Equal(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)) {
		t.Fatalf("unexpected entry: %#v", entry)
	}
	if cache.Len() != 1 {
		t.Fatalf("expected len 1, got %d", cache.Len())
	}

	cache.Clear()
	if cache.Len() != 0 {
		t.Fatalf("expected empty cache after clear")
	}
}

func TestMemoryCacheConcurrentAccess(t *testing.T) {
	t.Parallel()

	cache := NewMemoryCache()
	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := CacheKey(fmt.Sprintf("k%d", j%10))
				cache.Put(key, fmt.Sprintf("v%d", j%10))
				if got, ok := cache.Get(key); ok && got != fmt.Sprintf("v%d", j%10) {
					t.Errorf("worker %d read corrupted value %q", worker, got)
					return
				}
			}
		}(i)
	}
	wg.Wait()

	if cache.Len() != 10 {
		t.Fatalf("expected 10 keys, got %d", cache.Len())
	}
}
