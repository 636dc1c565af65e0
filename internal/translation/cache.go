package translation

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"golang.org/x/text/unicode/norm"

	"nara.lk/portal/internal/globaltime"
)

// DefaultCacheKeyPrefix is the number of leading runes that identify a text in prefix mode.
const DefaultCacheKeyPrefix = 50

// CacheKey identifies one (text fingerprint, target language) pair.
type CacheKey string

type CacheKeyMode string

const (
	// CacheKeyPrefix fingerprints a bounded prefix of the text. Distinct texts that share
	// the prefix share a key.
	CacheKeyPrefix CacheKeyMode = "prefix"
	// CacheKeyFullHash fingerprints the whole text.
	CacheKeyFullHash CacheKeyMode = "hash"
)

// ParseCacheKeyMode maps configuration values to a mode; unknown values select prefix mode.
func ParseCacheKeyMode(raw string) CacheKeyMode {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case string(CacheKeyFullHash), "full", "sha256":
		return CacheKeyFullHash
	default:
		return CacheKeyPrefix
	}
}

// KeyFunc derives cache keys.
type KeyFunc func(text, targetLang string) CacheKey

// NewKeyFunc returns the key derivation for mode. prefixRunes applies to prefix mode only.
func NewKeyFunc(mode CacheKeyMode, prefixRunes int) KeyFunc {
	if prefixRunes <= 0 {
		prefixRunes = DefaultCacheKeyPrefix
	}
	if mode == CacheKeyFullHash {
		return func(text, targetLang string) CacheKey {
			return fingerprint(normalizeCacheText(text), targetLang)
		}
	}
	return func(text, targetLang string) CacheKey {
		return PrefixCacheKey(text, targetLang, prefixRunes)
	}
}

// PrefixCacheKey keys text by its first prefixRunes normalized runes.
func PrefixCacheKey(text, targetLang string, prefixRunes int) CacheKey {
	normalized := normalizeCacheText(text)
	if prefixRunes > 0 {
		runes := []rune(normalized)
		if len(runes) > prefixRunes {
			normalized = string(runes[:prefixRunes])
		}
	}
	return fingerprint(normalized, targetLang)
}

func fingerprint(text, targetLang string) CacheKey {
	sum := sha256.Sum256([]byte(text))
	return CacheKey(hex.EncodeToString(sum[:]) + ":" + normalizeLangCode(targetLang))
}

func normalizeCacheText(text string) string {
	return strings.Join(strings.Fields(norm.NFC.String(text)), " ")
}

// Cache memoizes successful translations. Implementations must be safe for concurrent use.
type Cache interface {
	Get(key CacheKey) (string, bool)
	Put(key CacheKey, value string)
	Clear()
	Len() int
}

// CacheEntry is one memoized translation.
type CacheEntry struct {
	Key       CacheKey
	Value     string
	CreatedAt time.Time
}

// MemoryCache is a process-lifetime Cache guarded by a RWMutex.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[CacheKey]CacheEntry
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[CacheKey]CacheEntry)}
}

func (c *MemoryCache) Get(key CacheKey) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	if !ok {
		return "", false
	}
	return entry.Value, true
}

func (c *MemoryCache) Put(key CacheKey, value string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = CacheEntry{
		Key:       key,
		Value:     value,
		CreatedAt: globaltime.UTC(),
	}
}

// Entry returns the full entry for key, including its creation time.
func (c *MemoryCache) Entry(key CacheKey) (CacheEntry, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.entries[key]
	return entry, ok
}

func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[CacheKey]CacheEntry)
}

func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
