package scheduler

import (
	"context"
	"testing"

	"github.com/solvency-io/solvency/internal/common"
	"github.com/solvency-io/solvency/internal/models"
)

// fakeAssessmentStorage records prune calls.
type fakeAssessmentStorage struct {
	pruneCalls []int
	pruned     int
}

func (f *fakeAssessmentStorage) Create(ctx context.Context, a *models.Assessment) error { return nil }
func (f *fakeAssessmentStorage) Get(ctx context.Context, id string) (*models.Assessment, error) {
	return nil, nil
}
func (f *fakeAssessmentStorage) List(ctx context.Context, limit int) ([]*models.Assessment, error) {
	return nil, nil
}
func (f *fakeAssessmentStorage) UpdateStatus(ctx context.Context, id string, status models.AssessmentStatus, results *models.AnalysisResult, errMsg string) error {
	return nil
}
func (f *fakeAssessmentStorage) Delete(ctx context.Context, id string) error { return nil }
func (f *fakeAssessmentStorage) PruneOldest(ctx context.Context, keepCount int) (int, error) {
	f.pruneCalls = append(f.pruneCalls, keepCount)
	return f.pruned, nil
}

func TestSweepUsesConfiguredLimit(t *testing.T) {
	storage := &fakeAssessmentStorage{pruned: 2}
	config := &common.RetentionConfig{Enabled: true, MaxKept: 5}
	svc := NewRetentionService(config, storage, common.GetLogger())

	pruned, err := svc.Sweep(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if pruned != 2 {
		t.Errorf("pruned = %d, want 2", pruned)
	}
	if len(storage.pruneCalls) != 1 || storage.pruneCalls[0] != 5 {
		t.Errorf("prune calls = %v, want [5]", storage.pruneCalls)
	}
}

func TestSweepDefaultsKeepCount(t *testing.T) {
	storage := &fakeAssessmentStorage{}
	config := &common.RetentionConfig{Enabled: true, MaxKept: 0}
	svc := NewRetentionService(config, storage, common.GetLogger())

	if _, err := svc.Sweep(context.Background()); err != nil {
		t.Fatal(err)
	}
	if storage.pruneCalls[0] != 5 {
		t.Errorf("keep count = %d, want default 5", storage.pruneCalls[0])
	}
}

func TestStartDisabledIsNoop(t *testing.T) {
	config := &common.RetentionConfig{Enabled: false, Schedule: "0 */10 * * * *"}
	svc := NewRetentionService(config, &fakeAssessmentStorage{}, common.GetLogger())

	if err := svc.Start(); err != nil {
		t.Fatalf("disabled start should be a no-op: %v", err)
	}
	svc.Stop()
}

func TestStartRejectsBadSchedule(t *testing.T) {
	config := &common.RetentionConfig{Enabled: true, Schedule: "not a schedule"}
	svc := NewRetentionService(config, &fakeAssessmentStorage{}, common.GetLogger())

	if err := svc.Start(); err == nil {
		t.Error("invalid schedule should fail Start")
	}
}

func TestStartStopLifecycle(t *testing.T) {
	config := &common.RetentionConfig{Enabled: true, Schedule: "0 */10 * * * *", MaxKept: 5}
	svc := NewRetentionService(config, &fakeAssessmentStorage{}, common.GetLogger())

	if err := svc.Start(); err != nil {
		t.Fatal(err)
	}
	if err := svc.Start(); err == nil {
		t.Error("second Start should fail while running")
	}
	svc.Stop()
	svc.Stop() // idempotent
}
