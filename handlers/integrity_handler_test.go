package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tenant-integrity-service/models"
	"tenant-integrity-service/services"
)

// stubStore is a minimal IntegrityStore for handler tests; the service
// logic itself is covered in the services package
type stubStore struct {
	tenants    map[string]*models.Tenant
	unresolved map[string][]models.UnresolvedRow
	assigned   map[string]string
}

func newStubStore() *stubStore {
	return &stubStore{
		tenants:    make(map[string]*models.Tenant),
		unresolved: make(map[string][]models.UnresolvedRow),
		assigned:   make(map[string]string),
	}
}

func (s *stubStore) CountMissingOwnership(ctx context.Context, spec models.TableSpec) (int64, []string, error) {
	return int64(len(s.unresolved[spec.Table])), nil, nil
}

func (s *stubStore) CountMismatches(ctx context.Context, d models.MismatchDescriptor) (int64, []string, error) {
	return 0, nil, nil
}

func (s *stubStore) CountMismatchesForTenant(ctx context.Context, d models.MismatchDescriptor, tenantID string) (int64, []string, error) {
	return 0, nil, nil
}

func (s *stubStore) CountOrphans(ctx context.Context, d models.OrphanDescriptor) (int64, []string, error) {
	return 0, nil, nil
}

func (s *stubStore) CountOrphansForTenant(ctx context.Context, d models.OrphanDescriptor, tenantID string) (int64, []string, error) {
	return 0, nil, nil
}

func (s *stubStore) FetchUnresolvedRows(ctx context.Context, spec models.TableSpec, limit int) ([]models.UnresolvedRow, error) {
	rows := s.unresolved[spec.Table]
	if len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

func (s *stubStore) FetchUnresolvedRow(ctx context.Context, spec models.TableSpec, id string) (*models.UnresolvedRow, error) {
	for _, row := range s.unresolved[spec.Table] {
		if row.ID == id {
			return &row, nil
		}
	}
	return nil, nil
}

func (s *stubStore) AssignOwnershipIfNull(ctx context.Context, spec models.TableSpec, id, tenantID string) (bool, error) {
	key := spec.Table + "/" + id
	if _, ok := s.assigned[key]; ok {
		return false, nil
	}
	s.assigned[key] = tenantID
	return true, nil
}

func (s *stubStore) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	return s.tenants[id], nil
}

func (s *stubStore) CountTenantsByStatus(ctx context.Context) (int64, int64, int64, error) {
	var total, active, blocked int64
	for _, tenant := range s.tenants {
		total++
		switch tenant.Status {
		case models.TenantStatusActive:
			active++
		case models.TenantStatusBlocked:
			blocked++
		}
	}
	return total, active, blocked, nil
}

func tenantPtr(s string) *string { return &s }

func newTestRouter(store *stubStore) *mux.Router {
	integrity := services.NewIntegrityService(store, services.IntegrityServiceOptions{
		DefaultPreviewLimit: 100,
		MaxPreviewLimit:     1000,
		MaxConcurrentChecks: 2,
		CheckTimeout:        time.Second,
	}, nil, services.NewInMemoryMetrics(), services.NewDefaultLogger())

	handler := NewIntegrityHandler(integrity)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/integrity/health", handler.GetGlobalHealth).Methods("GET")
	api.HandleFunc("/integrity/tenants/{id}/health", handler.GetTenantHealth).Methods("GET")
	api.HandleFunc("/integrity/repairs/preview", handler.GenerateRepairPreview).Methods("POST")
	api.HandleFunc("/integrity/repairs/apply", handler.ApplyRepairs).Methods("POST")
	return router
}

func TestIntegrityHandler_GetGlobalHealth(t *testing.T) {
	store := newStubStore()
	store.tenants["tenant-a"] = &models.Tenant{ID: "tenant-a", Name: "Acme", Status: models.TenantStatusActive}
	store.unresolved["projects"] = []models.UnresolvedRow{{ID: "proj-1"}}
	router := newTestRouter(store)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/integrity/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var summary models.GlobalHealthSummary
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
	assert.Equal(t, int64(1), summary.TotalTenants)
	assert.Equal(t, int64(1), summary.ByTable["projects"])
}

func TestIntegrityHandler_GetTenantHealth(t *testing.T) {
	store := newStubStore()
	store.tenants["tenant-a"] = &models.Tenant{ID: "tenant-a", Name: "Acme", Status: models.TenantStatusActive}
	router := newTestRouter(store)

	t.Run("known tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/integrity/tenants/tenant-a/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var summary models.TenantHealthSummary
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &summary))
		assert.Equal(t, "tenant-a", summary.TenantID)
		assert.True(t, summary.IsReady)
	})

	t.Run("unknown tenant", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/integrity/tenants/nope/health", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestIntegrityHandler_GenerateRepairPreview(t *testing.T) {
	store := newStubStore()
	store.unresolved["projects"] = []models.UnresolvedRow{
		{ID: "proj-1", Parents: []models.ParentRef{
			{ID: tenantPtr("client-1"), Exists: true, TenantID: tenantPtr("tenant-a")},
			{},
		}},
	}
	router := newTestRouter(store)

	t.Run("empty body previews all derivable tables", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/integrity/repairs/preview", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var result models.RepairPreviewResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 1, result.HighConfidenceCount)
		require.Len(t, result.ProposedUpdates, 1)
		assert.Equal(t, "tenant-a", result.ProposedUpdates[0].DerivedOwnership)
	})

	t.Run("unknown table is a 400", func(t *testing.T) {
		body := bytes.NewBufferString(`{"tables":["invoices"]}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/integrity/repairs/preview", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var apiErr models.APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
		assert.Equal(t, "UNKNOWN_TABLE", apiErr.Code)
	})

	t.Run("malformed body is a 400", func(t *testing.T) {
		body := bytes.NewBufferString(`{"tables":`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/integrity/repairs/preview", body)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestIntegrityHandler_ApplyRepairs(t *testing.T) {
	t.Run("requires actor header", func(t *testing.T) {
		router := newTestRouter(newStubStore())

		req := httptest.NewRequest(http.MethodPost, "/api/v1/integrity/repairs/apply", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)

		var apiErr models.APIError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
		assert.Equal(t, "MISSING_ACTOR", apiErr.Code)
	})

	t.Run("applies high-confidence repairs", func(t *testing.T) {
		store := newStubStore()
		store.unresolved["projects"] = []models.UnresolvedRow{
			{ID: "proj-1", Parents: []models.ParentRef{
				{ID: tenantPtr("client-1"), Exists: true, TenantID: tenantPtr("tenant-a")},
				{},
			}},
		}
		router := newTestRouter(store)

		body := bytes.NewBufferString(`{"apply_only_high_confidence":true}`)
		req := httptest.NewRequest(http.MethodPost, "/api/v1/integrity/repairs/apply", body)
		req.Header.Set("X-Actor-ID", "admin-1")
		req.Header.Set("X-Request-ID", "req-42")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var result models.RepairApplyResult
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, 1, result.TotalUpdated)
		assert.Equal(t, "req-42", result.CorrelationID)
		assert.Equal(t, "tenant-a", store.assigned["projects/proj-1"])
	})
}
