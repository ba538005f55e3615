package badger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/timshannon/badgerhold/v4"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/interfaces"
	"github.com/solvency-io/solvency/internal/models"
)

func newTestStorage(t *testing.T) interfaces.AssessmentStorage {
	t.Helper()

	tmpDir := t.TempDir()
	options := badgerhold.DefaultOptions
	options.Dir = tmpDir
	options.ValueDir = tmpDir
	options.Logger = nil

	store, err := badgerhold.Open(options)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { store.Close() })

	db := &BadgerDB{store: store}
	return NewAssessmentStorage(db, common.GetLogger())
}

func newAssessment(companies ...string) *models.Assessment {
	return &models.Assessment{
		CompanyNames: companies,
		Mode:         models.ModeDetailed,
	}
}

func TestAssessmentCreateAndGet(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	a := newAssessment("Apple Inc")
	if err := storage.Create(ctx, a); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if a.ID == "" {
		t.Fatal("Create should assign an ID")
	}
	if a.Status != models.AssessmentPending {
		t.Errorf("status = %q, want pending", a.Status)
	}

	got, err := storage.Get(ctx, a.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.CompanyNames[0] != "Apple Inc" || got.Mode != models.ModeDetailed {
		t.Errorf("round trip mismatch: %+v", got)
	}
}

func TestAssessmentGetMissing(t *testing.T) {
	storage := newTestStorage(t)

	_, err := storage.Get(context.Background(), "does-not-exist")
	if !errors.Is(err, interfaces.ErrAssessmentNotFound) {
		t.Errorf("err = %v, want ErrAssessmentNotFound", err)
	}
}

func TestAssessmentCreateRequiresCompanies(t *testing.T) {
	storage := newTestStorage(t)

	if err := storage.Create(context.Background(), newAssessment()); err == nil {
		t.Error("assessment without companies should be rejected")
	}
}

func TestAssessmentUpdateStatus(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	a := newAssessment("Tesla")
	if err := storage.Create(ctx, a); err != nil {
		t.Fatal(err)
	}

	if err := storage.UpdateStatus(ctx, a.ID, models.AssessmentProcessing, nil, ""); err != nil {
		t.Fatalf("UpdateStatus to processing failed: %v", err)
	}

	results := &models.AnalysisResult{
		AnalysisDate: "2026-08-28",
		Companies:    []models.CompanyAnalysis{{Name: "Tesla"}},
	}
	if err := storage.UpdateStatus(ctx, a.ID, models.AssessmentCompleted, results, ""); err != nil {
		t.Fatalf("UpdateStatus to completed failed: %v", err)
	}

	got, err := storage.Get(ctx, a.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != models.AssessmentCompleted {
		t.Errorf("status = %q, want completed", got.Status)
	}
	if got.Results == nil || len(got.Results.Companies) != 1 {
		t.Error("results not persisted")
	}
	if !got.UpdatedAt.After(got.CreatedAt) && !got.UpdatedAt.Equal(got.CreatedAt) {
		t.Error("UpdatedAt not advanced")
	}
}

func TestAssessmentUpdateStatusFailed(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	a := newAssessment("Tesla")
	if err := storage.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := storage.UpdateStatus(ctx, a.ID, models.AssessmentFailed, nil, "circuit open"); err != nil {
		t.Fatal(err)
	}

	got, _ := storage.Get(ctx, a.ID)
	if got.Status != models.AssessmentFailed || got.Error != "circuit open" {
		t.Errorf("failed state not persisted: %+v", got)
	}
}

func TestAssessmentListNewestFirst(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	for i := 0; i < 3; i++ {
		a := newAssessment("Company")
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		if err := storage.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	list, err := storage.List(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(list) != 3 {
		t.Fatalf("got %d assessments, want 3", len(list))
	}
	for i := 1; i < len(list); i++ {
		if list[i].CreatedAt.After(list[i-1].CreatedAt) {
			t.Error("list should be ordered newest first")
		}
	}

	limited, err := storage.List(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limited list length = %d, want 2", len(limited))
	}
}

func TestAssessmentDelete(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	a := newAssessment("Apple Inc")
	if err := storage.Create(ctx, a); err != nil {
		t.Fatal(err)
	}
	if err := storage.Delete(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := storage.Get(ctx, a.ID); !errors.Is(err, interfaces.ErrAssessmentNotFound) {
		t.Error("deleted assessment should not be found")
	}

	if err := storage.Delete(ctx, a.ID); !errors.Is(err, interfaces.ErrAssessmentNotFound) {
		t.Errorf("deleting missing assessment: err = %v, want ErrAssessmentNotFound", err)
	}
}

func TestPruneOldestKeepsMostRecent(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	ids := make([]string, 0, 8)
	for i := 0; i < 8; i++ {
		a := newAssessment("Company")
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		a.Status = models.AssessmentCompleted
		if err := storage.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
		ids = append(ids, a.ID)
	}

	pruned, err := storage.PruneOldest(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 3 {
		t.Errorf("pruned = %d, want 3", pruned)
	}

	list, _ := storage.List(ctx, 0)
	if len(list) != 5 {
		t.Fatalf("remaining = %d, want 5", len(list))
	}
	// The three oldest must be gone.
	for _, id := range ids[:3] {
		if _, err := storage.Get(ctx, id); !errors.Is(err, interfaces.ErrAssessmentNotFound) {
			t.Errorf("assessment %s should have been pruned", id)
		}
	}
}

func TestPruneOldestSkipsInFlight(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	base := time.Now().Add(-time.Hour)
	old := newAssessment("Old In Flight")
	old.CreatedAt = base
	old.Status = models.AssessmentProcessing
	if err := storage.Create(ctx, old); err != nil {
		t.Fatal(err)
	}

	for i := 1; i <= 3; i++ {
		a := newAssessment("Company")
		a.CreatedAt = base.Add(time.Duration(i) * time.Minute)
		a.Status = models.AssessmentCompleted
		if err := storage.Create(ctx, a); err != nil {
			t.Fatal(err)
		}
	}

	pruned, err := storage.PruneOldest(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 1 {
		t.Errorf("pruned = %d, want 1 (in-flight record protected)", pruned)
	}
	if _, err := storage.Get(ctx, old.ID); err != nil {
		t.Error("in-flight assessment must survive pruning")
	}
}

func TestPruneOldestNoopUnderLimit(t *testing.T) {
	storage := newTestStorage(t)
	ctx := context.Background()

	a := newAssessment("Company")
	a.Status = models.AssessmentCompleted
	if err := storage.Create(ctx, a); err != nil {
		t.Fatal(err)
	}

	pruned, err := storage.PruneOldest(ctx, 5)
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 0 {
		t.Errorf("pruned = %d, want 0", pruned)
	}
}
