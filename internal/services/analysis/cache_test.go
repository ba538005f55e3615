package analysis

import (
	"testing"
	"time"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/models"
)

func testResult(companies ...string) *models.AnalysisResult {
	analyses := make([]models.CompanyAnalysis, 0, len(companies))
	for _, name := range companies {
		analyses = append(analyses, models.CompanyAnalysis{Name: name})
	}
	return &models.AnalysisResult{
		AnalysisDate: "2026-08-28",
		Companies:    analyses,
	}
}

func TestCacheRoundTrip(t *testing.T) {
	cache := NewResultCache(true, common.GetLogger())
	names := []string{"Apple Inc", "Tesla"}
	fp := Fingerprint(names, models.ModeDetailed)

	if got := cache.Get(fp, names); got != nil {
		t.Fatal("expected miss on empty cache")
	}

	cache.Put(fp, names, testResult(names...))

	got := cache.Get(fp, names)
	if got == nil {
		t.Fatal("expected hit after Put")
	}
	if !got.Metadata.FromCache {
		t.Error("cached read should be stamped FromCache")
	}
	if got.Metadata.CachedAt == nil {
		t.Error("cached read should carry CachedAt")
	}
}

func TestCacheHitIsOrderInsensitive(t *testing.T) {
	cache := NewResultCache(true, common.GetLogger())
	stored := []string{"Apple Inc", "Tesla"}
	fp := Fingerprint(stored, models.ModeDetailed)
	cache.Put(fp, stored, testResult(stored...))

	if got := cache.Get(fp, []string{"tesla", "  APPLE INC "}); got == nil {
		t.Error("normalized same company set should hit")
	}
}

func TestCacheCompanySetMismatchEvicts(t *testing.T) {
	cache := NewResultCache(true, common.GetLogger())
	stored := []string{"Apple Inc"}
	fp := Fingerprint(stored, models.ModeDetailed)
	cache.Put(fp, stored, testResult(stored...))

	// Simulated fingerprint collision with a different company set.
	if got := cache.Get(fp, []string{"Microsoft"}); got != nil {
		t.Fatal("company-set mismatch must be treated as a miss")
	}
	if cache.Len() != 0 {
		t.Error("mismatched entry should be evicted")
	}
}

func TestCacheDoesNotMutateStoredResult(t *testing.T) {
	cache := NewResultCache(true, common.GetLogger())
	names := []string{"Apple Inc"}
	fp := Fingerprint(names, models.ModeQuick)
	original := testResult(names...)
	cache.Put(fp, names, original)

	cache.Get(fp, names)

	if original.Metadata.FromCache {
		t.Error("Get must stamp a copy, not the stored result")
	}
}

func TestCacheDisabled(t *testing.T) {
	cache := NewResultCache(false, common.GetLogger())
	names := []string{"Apple Inc"}
	fp := Fingerprint(names, models.ModeQuick)

	cache.Put(fp, names, testResult(names...))
	if got := cache.Get(fp, names); got != nil {
		t.Error("disabled cache must never hit")
	}
}

func TestCacheCachedAtPreserved(t *testing.T) {
	cache := NewResultCache(true, common.GetLogger())
	stored := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return stored }

	names := []string{"Apple Inc"}
	fp := Fingerprint(names, models.ModeQuick)
	cache.Put(fp, names, testResult(names...))

	cache.now = time.Now
	got := cache.Get(fp, names)
	if got == nil || got.Metadata.CachedAt == nil {
		t.Fatal("expected hit with CachedAt")
	}
	if !got.Metadata.CachedAt.Equal(stored) {
		t.Errorf("CachedAt = %v, want original store time %v", got.Metadata.CachedAt, stored)
	}
}
