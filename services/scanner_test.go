package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-integrity-service/models"
)

func TestMissingOwnershipScanner_Scan(t *testing.T) {
	store := newFakeStore()
	store.addRow("projects", &fakeRow{id: "proj-1"})
	store.addRow("projects", &fakeRow{id: "proj-2"})
	store.addRow("projects", &fakeRow{id: "proj-owned", tenantID: strPtr("tenant-a")})

	scanner := NewMissingOwnershipScanner(store, NewDefaultLogger(), time.Second)
	spec, ok := LookupTable("projects")
	require.True(t, ok)

	result := scanner.Scan(context.Background(), spec)
	assert.Equal(t, "missing_ownership_projects", result.Name)
	assert.Equal(t, "projects", result.Table)
	assert.Equal(t, int64(2), result.Count)
	assert.ElementsMatch(t, []string{"proj-1", "proj-2"}, result.SampleIDs)
	assert.False(t, result.Failed)
}

func TestMissingOwnershipScanner_ExcludedRows(t *testing.T) {
	store := newFakeStore()
	store.addRow("users", &fakeRow{id: "user-1"})
	store.addRow("users", &fakeRow{id: "admin-1", excluded: true})

	scanner := NewMissingOwnershipScanner(store, NewDefaultLogger(), time.Second)
	spec, ok := LookupTable("users")
	require.True(t, ok)

	result := scanner.Scan(context.Background(), spec)
	assert.Equal(t, int64(1), result.Count)
	assert.Equal(t, []string{"user-1"}, result.SampleIDs)
}

func TestMissingOwnershipScanner_FailureSentinel(t *testing.T) {
	store := newFakeStore()
	store.failOn("scan:projects", errors.New("connection reset"))

	scanner := NewMissingOwnershipScanner(store, NewDefaultLogger(), time.Second)
	spec, ok := LookupTable("projects")
	require.True(t, ok)

	result := scanner.Scan(context.Background(), spec)
	assert.True(t, result.Failed)
	assert.Equal(t, models.CheckFailureCount, result.Count)
	assert.NotEmpty(t, result.FailureReason)
}

func TestMissingOwnershipScanner_ScanAll(t *testing.T) {
	store := newFakeStore()
	store.addRow("projects", &fakeRow{id: "proj-1"})
	store.addRow("tasks", &fakeRow{id: "task-1"})
	store.addRow("tasks", &fakeRow{id: "task-2"})
	store.failOn("scan:teams", errors.New("boom"))

	scanner := NewMissingOwnershipScanner(store, NewDefaultLogger(), time.Second)

	specs := ScannableTables()
	results := scanner.ScanAll(context.Background(), specs, 3)
	require.Len(t, results, len(specs))

	// Results keep registry order and one failing table does not poison
	// the rest
	byTable := make(map[string]models.CheckResult)
	for i, result := range results {
		assert.Equal(t, specs[i].Table, result.Table)
		byTable[result.Table] = result
	}

	assert.Equal(t, int64(1), byTable["projects"].Count)
	assert.Equal(t, int64(2), byTable["tasks"].Count)
	assert.Equal(t, int64(0), byTable["workspaces"].Count)
	assert.Equal(t, models.CheckFailureCount, byTable["teams"].Count)
	assert.True(t, byTable["teams"].Failed)
}
