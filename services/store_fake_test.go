package services

import (
	"context"
	"fmt"
	"sync"

	"tenant-integrity-service/models"
)

// fakeRow is one entity row in the in-memory store. parents is keyed by
// the foreign-key column name from the table spec rules.
type fakeRow struct {
	id       string
	tenantID *string
	personal bool
	excluded bool
	parents  map[string]models.ParentRef
}

// fakeStore is an in-memory IntegrityStore. Mismatch and orphan counts
// are seeded directly per check name instead of modeling SQL joins; the
// join SQL itself is the database package's concern.
type fakeStore struct {
	mu sync.Mutex

	tenants map[string]*models.Tenant
	rows    map[string][]*fakeRow

	mismatchCounts map[string]checkData
	orphanCounts   map[string]checkData

	// failures injects an error per operation key
	failures map[string]error

	assignCalls int
}

type checkData struct {
	count   int64
	samples []string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		tenants:        make(map[string]*models.Tenant),
		rows:           make(map[string][]*fakeRow),
		mismatchCounts: make(map[string]checkData),
		orphanCounts:   make(map[string]checkData),
		failures:       make(map[string]error),
	}
}

func (f *fakeStore) addTenant(id, name string, status models.TenantStatus) {
	f.tenants[id] = &models.Tenant{ID: id, Name: name, Status: status}
}

func (f *fakeStore) addRow(table string, row *fakeRow) {
	if row.parents == nil {
		row.parents = make(map[string]models.ParentRef)
	}
	f.rows[table] = append(f.rows[table], row)
}

func (f *fakeStore) failOn(key string, err error) {
	f.failures[key] = err
}

func (f *fakeStore) findRow(table, id string) *fakeRow {
	for _, row := range f.rows[table] {
		if row.id == id {
			return row
		}
	}
	return nil
}

func (f *fakeStore) CountMissingOwnership(ctx context.Context, spec models.TableSpec) (int64, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failures["scan:"+spec.Table]; err != nil {
		return 0, nil, err
	}

	var count int64
	var samples []string
	for _, row := range f.rows[spec.Table] {
		if row.tenantID != nil || row.excluded {
			continue
		}
		count++
		if len(samples) < models.SampleLimit {
			samples = append(samples, row.id)
		}
	}
	return count, samples, nil
}

func (f *fakeStore) CountMismatches(ctx context.Context, d models.MismatchDescriptor) (int64, []string, error) {
	return f.checkCounts(f.mismatchCounts, d.Name, "")
}

func (f *fakeStore) CountMismatchesForTenant(ctx context.Context, d models.MismatchDescriptor, tenantID string) (int64, []string, error) {
	return f.checkCounts(f.mismatchCounts, d.Name, tenantID)
}

func (f *fakeStore) CountOrphans(ctx context.Context, d models.OrphanDescriptor) (int64, []string, error) {
	return f.checkCounts(f.orphanCounts, d.Name, "")
}

func (f *fakeStore) CountOrphansForTenant(ctx context.Context, d models.OrphanDescriptor, tenantID string) (int64, []string, error) {
	return f.checkCounts(f.orphanCounts, d.Name, tenantID)
}

func (f *fakeStore) checkCounts(table map[string]checkData, name, tenantID string) (int64, []string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := name
	if tenantID != "" {
		key = name + ":" + tenantID
	}
	if err := f.failures["check:"+key]; err != nil {
		return 0, nil, err
	}

	data := table[key]
	return data.count, data.samples, nil
}

func (f *fakeStore) FetchUnresolvedRows(ctx context.Context, spec models.TableSpec, limit int) ([]models.UnresolvedRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failures["fetch:"+spec.Table]; err != nil {
		return nil, err
	}

	var out []models.UnresolvedRow
	for _, row := range f.rows[spec.Table] {
		if row.tenantID != nil || row.excluded {
			continue
		}
		out = append(out, f.toUnresolved(spec, row))
		if len(out) >= limit {
			break
		}
	}
	return out, nil
}

func (f *fakeStore) FetchUnresolvedRow(ctx context.Context, spec models.TableSpec, id string) (*models.UnresolvedRow, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failures["fetch:"+spec.Table]; err != nil {
		return nil, err
	}

	row := f.findRow(spec.Table, id)
	if row == nil || row.tenantID != nil {
		return nil, nil
	}
	unresolved := f.toUnresolved(spec, row)
	return &unresolved, nil
}

func (f *fakeStore) toUnresolved(spec models.TableSpec, row *fakeRow) models.UnresolvedRow {
	parents := make([]models.ParentRef, len(spec.Rules))
	for i, rule := range spec.Rules {
		parents[i] = row.parents[rule.Column]
	}
	return models.UnresolvedRow{ID: row.id, Personal: row.personal, Parents: parents}
}

func (f *fakeStore) AssignOwnershipIfNull(ctx context.Context, spec models.TableSpec, id, tenantID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.assignCalls++
	if err := f.failures[fmt.Sprintf("assign:%s:%s", spec.Table, id)]; err != nil {
		return false, err
	}

	row := f.findRow(spec.Table, id)
	if row == nil || row.tenantID != nil {
		return false, nil
	}
	row.tenantID = &tenantID
	return true, nil
}

func (f *fakeStore) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failures["tenant:"+id]; err != nil {
		return nil, err
	}
	return f.tenants[id], nil
}

func (f *fakeStore) CountTenantsByStatus(ctx context.Context) (int64, int64, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failures["tenants"]; err != nil {
		return 0, 0, 0, err
	}

	var total, active, blocked int64
	for _, tenant := range f.tenants {
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

// recordingAuditSink captures audit records for assertions
type recordingAuditSink struct {
	mu      sync.Mutex
	records []AuditRecord
}

func (s *recordingAuditSink) RecordRepair(record AuditRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
}

func strPtr(s string) *string {
	return &s
}

// ownedParent is a parent that exists and carries ownership
func ownedParent(fk, tenantID string) models.ParentRef {
	return models.ParentRef{ID: strPtr(fk), Exists: true, TenantID: strPtr(tenantID)}
}

// missingParent is a dangling foreign key
func missingParent(fk string) models.ParentRef {
	return models.ParentRef{ID: strPtr(fk), Exists: false}
}

// unownedParent exists but has no tenant of its own
func unownedParent(fk string) models.ParentRef {
	return models.ParentRef{ID: strPtr(fk), Exists: true}
}
