package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "tenant-integrity-service/errors"
	"tenant-integrity-service/models"
)

func newTestApplier(store *fakeStore, audit AuditSink) *RepairApplier {
	preview := newTestPreview(store)
	return NewRepairApplier(store, preview, audit, NewInMemoryMetrics(), NewDefaultLogger())
}

func applyOpts() models.ApplyOptions {
	return models.ApplyOptions{ApplyOnlyHighConfidence: true}
}

func testActor() models.Actor {
	return models.Actor{UserID: "admin-1", RequestID: "req-1"}
}

func TestRepairApplier_Apply(t *testing.T) {
	store := newFakeStore()
	seedPreviewData(store)
	audit := &recordingAuditSink{}
	applier := newTestApplier(store, audit)

	result, err := applier.Apply(context.Background(), applyOpts(), testActor())
	require.NoError(t, err)

	assert.Equal(t, 2, result.TotalUpdated)
	assert.Equal(t, 1, result.TotalSkipped)
	assert.Equal(t, 1, result.UpdatedCountByTable["projects"])
	assert.Equal(t, 1, result.UpdatedCountByTable["tasks"])
	assert.Equal(t, 1, result.SkippedLowConfidenceCountByTable["projects"])
	assert.ElementsMatch(t, []string{"proj-derivable", "task-derivable"}, result.SampleUpdatedIDs)
	assert.Equal(t, "req-1", result.CorrelationID)

	// Writes landed and the broken-chain row was left alone
	require.NotNil(t, store.findRow("projects", "proj-derivable").tenantID)
	assert.Equal(t, "tenant-a", *store.findRow("projects", "proj-derivable").tenantID)
	assert.Nil(t, store.findRow("projects", "proj-broken").tenantID)

	// Every write produced an audit record carrying the actor
	require.Len(t, audit.records, 2)
	for _, record := range audit.records {
		assert.Equal(t, "admin-1", record.ActorUserID)
		assert.Equal(t, "req-1", record.CorrelationID)
		assert.NotEmpty(t, record.AssignedTenantID)
		assert.NotEmpty(t, record.DerivationPath)
	}
}

func TestRepairApplier_Convergence(t *testing.T) {
	store := newFakeStore()
	seedPreviewData(store)
	applier := newTestApplier(store, &recordingAuditSink{})

	first, err := applier.Apply(context.Background(), applyOpts(), testActor())
	require.NoError(t, err)
	assert.Equal(t, 2, first.TotalUpdated)

	// Repaired rows no longer surface as unresolved, so a second run
	// finds nothing left to write
	second, err := applier.Apply(context.Background(), applyOpts(), testActor())
	require.NoError(t, err)
	assert.Equal(t, 0, second.TotalUpdated)
	assert.Equal(t, 1, second.TotalSkipped)
}

func TestRepairApplier_RequiresActor(t *testing.T) {
	store := newFakeStore()
	applier := newTestApplier(store, &recordingAuditSink{})

	_, err := applier.Apply(context.Background(), applyOpts(), models.Actor{})
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeMissingActor, appErr.Code)
	assert.Zero(t, store.assignCalls)
}

func TestRepairApplier_GeneratesCorrelationID(t *testing.T) {
	store := newFakeStore()
	applier := newTestApplier(store, &recordingAuditSink{})

	result, err := applier.Apply(context.Background(), applyOpts(), models.Actor{UserID: "admin-1"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.CorrelationID)
}

func TestRepairApplier_LowConfidenceNeverWritten(t *testing.T) {
	store := newFakeStore()
	store.addRow("projects", &fakeRow{
		id: "proj-broken",
		parents: map[string]models.ParentRef{
			"client_id": missingParent("client-gone"),
		},
	})
	applier := newTestApplier(store, &recordingAuditSink{})

	// The flag cannot opt in to low-confidence writes
	opts := applyOpts()
	opts.ApplyOnlyHighConfidence = false

	result, err := applier.Apply(context.Background(), opts, testActor())
	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalUpdated)
	assert.Equal(t, 1, result.TotalSkipped)
	assert.Zero(t, store.assignCalls)
	assert.Nil(t, store.findRow("projects", "proj-broken").tenantID)
}

func TestRepairApplier_RowFailureCountedInNeitherBucket(t *testing.T) {
	store := newFakeStore()
	seedPreviewData(store)
	store.failOn("assign:projects:proj-derivable", errors.New("deadlock detected"))
	audit := &recordingAuditSink{}
	applier := newTestApplier(store, audit)

	result, err := applier.Apply(context.Background(), applyOpts(), testActor())
	require.NoError(t, err)

	// The failed row is in neither counter and produced no audit record;
	// the rest of the batch still ran
	assert.Equal(t, 1, result.TotalUpdated)
	assert.Equal(t, 1, result.TotalSkipped)
	assert.Equal(t, 0, result.UpdatedCountByTable["projects"])
	require.Len(t, audit.records, 1)
	assert.Equal(t, "task-derivable", audit.records[0].RowID)
}

func TestRepairApplier_ConcurrentAssignmentIsNotAnUpdate(t *testing.T) {
	store := newFakeStore()
	seedPreviewData(store)
	audit := &recordingAuditSink{}
	preview := newTestPreview(store)
	applier := NewRepairApplier(&racingStore{fakeStore: store}, preview, audit, NewInMemoryMetrics(), NewDefaultLogger())

	result, err := applier.Apply(context.Background(), applyOpts(), testActor())
	require.NoError(t, err)

	// Every conditional update found ownership already set, so nothing
	// was counted as updated or skipped and nothing was audited
	assert.Equal(t, 0, result.TotalUpdated)
	assert.Empty(t, audit.records)
}

// racingStore simulates a concurrent writer that assigns ownership
// between the preview read and the conditional update
type racingStore struct {
	*fakeStore
}

func (r *racingStore) AssignOwnershipIfNull(ctx context.Context, spec models.TableSpec, id, tenantID string) (bool, error) {
	other := "tenant-other"
	if row := r.findRow(spec.Table, id); row != nil && row.tenantID == nil {
		row.tenantID = &other
	}
	return r.fakeStore.AssignOwnershipIfNull(ctx, spec, id, tenantID)
}
