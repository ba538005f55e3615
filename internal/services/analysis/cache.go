package analysis

import (
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/solvency-io/solvency/internal/models"
)

type cacheEntry struct {
	result    *models.AnalysisResult
	companies string // normalized sorted key, guards against fingerprint collisions
	cachedAt  time.Time
}

// ResultCache is the in-memory fingerprint-keyed result cache. Results are
// treated as immutable once stored; reads hand out a stamped copy of the
// envelope rather than the stored pointer. Fallback results are cached
// like any other so a degraded upstream keeps answering consistently.
type ResultCache struct {
	mu      sync.RWMutex
	logger  arbor.ILogger
	entries map[int64]cacheEntry
	enabled bool

	now func() time.Time
}

// NewResultCache creates a cache. A disabled cache accepts writes and
// reads but never hits.
func NewResultCache(enabled bool, logger arbor.ILogger) *ResultCache {
	return &ResultCache{
		logger:  logger,
		entries: make(map[int64]cacheEntry),
		enabled: enabled,
		now:     time.Now,
	}
}

// companyKey builds the normalized company-set key used to verify a hit
// really belongs to the requested companies.
func companyKey(companyNames []string) string {
	normalized := make([]string, 0, len(companyNames))
	for _, name := range companyNames {
		name = strings.ToLower(strings.TrimSpace(name))
		if name == "" {
			continue
		}
		normalized = append(normalized, name)
	}
	sort.Strings(normalized)
	return strings.Join(normalized, "\x1f")
}

// Get returns the cached result for a fingerprint, or nil when there is no
// usable entry. A fingerprint hit whose company set does not match the
// request is treated as a miss and evicted. The returned envelope is a
// copy stamped with FromCache and the original store time.
func (c *ResultCache) Get(fingerprint int64, companyNames []string) *models.AnalysisResult {
	if !c.enabled {
		return nil
	}

	c.mu.RLock()
	entry, ok := c.entries[fingerprint]
	c.mu.RUnlock()
	if !ok {
		return nil
	}

	if entry.companies != companyKey(companyNames) {
		c.logger.Warn().
			Int64("fingerprint", fingerprint).
			Msg("Cache entry company set mismatch, evicting")
		c.mu.Lock()
		delete(c.entries, fingerprint)
		c.mu.Unlock()
		return nil
	}

	stamped := *entry.result
	stamped.Metadata.FromCache = true
	cachedAt := entry.cachedAt
	stamped.Metadata.CachedAt = &cachedAt

	c.logger.Debug().
		Int64("fingerprint", fingerprint).
		Str("cached_at", cachedAt.Format(time.RFC3339)).
		Msg("Analysis cache hit")
	return &stamped
}

// Put stores a result under its fingerprint, replacing any prior entry.
func (c *ResultCache) Put(fingerprint int64, companyNames []string, result *models.AnalysisResult) {
	if !c.enabled || result == nil {
		return
	}

	c.mu.Lock()
	c.entries[fingerprint] = cacheEntry{
		result:    result,
		companies: companyKey(companyNames),
		cachedAt:  c.now(),
	}
	c.mu.Unlock()
}

// Len returns the number of cached entries.
func (c *ResultCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear drops all entries.
func (c *ResultCache) Clear() {
	c.mu.Lock()
	c.entries = make(map[int64]cacheEntry)
	c.mu.Unlock()
}
