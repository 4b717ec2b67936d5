package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"

	"tenant-integrity-service/models"
)

// PostgresStore implements the set-based queries the integrity engine
// runs. All derivation inputs are fetched with joined queries, one round
// trip per table, so deriving N rows never costs N parent lookups.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a store on an open database handle
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// CountMissingOwnership counts rows whose ownership column is null and
// returns up to models.SampleLimit of their ids
func (s *PostgresStore) CountMissingOwnership(ctx context.Context, spec models.TableSpec) (int64, []string, error) {
	where := fmt.Sprintf("%s IS NULL", spec.OwnershipColumn)
	if spec.ScanExclude != "" {
		where += fmt.Sprintf(" AND NOT (%s)", spec.ScanExclude)
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       (SELECT COALESCE(array_agg(%s), '{}') FROM (
		            SELECT %s FROM %s WHERE %s ORDER BY %s LIMIT %d
		        ) sample)
		FROM %s WHERE %s`,
		spec.IDColumn,
		spec.IDColumn, spec.Table, where, spec.IDColumn, models.SampleLimit,
		spec.Table, where,
	)

	var count int64
	var sampleIDs []string
	if err := s.db.QueryRowContext(ctx, query).Scan(&count, pq.Array(&sampleIDs)); err != nil {
		return 0, nil, fmt.Errorf("failed to count missing ownership on %s: %w", spec.Table, err)
	}
	return count, sampleIDs, nil
}

// CountMismatches counts rows where the child and parent ownership
// columns are both set but disagree. Rows with a null on either side are
// the scanner's responsibility and are not considered here.
func (s *PostgresStore) CountMismatches(ctx context.Context, d models.MismatchDescriptor) (int64, []string, error) {
	return s.countMismatches(ctx, d, "")
}

// CountMismatchesForTenant restricts the mismatch check to rows
// attributable to one tenant on either side of the disagreement
func (s *PostgresStore) CountMismatchesForTenant(ctx context.Context, d models.MismatchDescriptor, tenantID string) (int64, []string, error) {
	return s.countMismatches(ctx, d, tenantID)
}

func (s *PostgresStore) countMismatches(ctx context.Context, d models.MismatchDescriptor, tenantID string) (int64, []string, error) {
	where := "c.tenant_id IS NOT NULL AND p.tenant_id IS NOT NULL AND c.tenant_id <> p.tenant_id"
	args := []interface{}{}
	if tenantID != "" {
		where += " AND (c.tenant_id = $1 OR p.tenant_id = $1)"
		args = append(args, tenantID)
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       (SELECT COALESCE(array_agg(id), '{}') FROM (
		            SELECT c.id FROM %s c JOIN %s p ON c.%s = p.id
		            WHERE %s ORDER BY c.id LIMIT %d
		        ) sample)
		FROM %s c
		JOIN %s p ON c.%s = p.id
		WHERE %s`,
		d.ChildTable, d.ParentTable, d.JoinColumn, where, models.SampleLimit,
		d.ChildTable, d.ParentTable, d.JoinColumn, where,
	)

	var count int64
	var sampleIDs []string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count, pq.Array(&sampleIDs)); err != nil {
		return 0, nil, fmt.Errorf("failed to count mismatches for %s: %w", d.Name, err)
	}
	return count, sampleIDs, nil
}

// CountOrphans counts rows whose foreign key is set but points at a
// parent row that no longer exists, honoring the descriptor's configured
// exclusion predicate
func (s *PostgresStore) CountOrphans(ctx context.Context, d models.OrphanDescriptor) (int64, []string, error) {
	return s.countOrphans(ctx, d, "")
}

// CountOrphansForTenant restricts the orphan check to rows owned by the
// given tenant
func (s *PostgresStore) CountOrphansForTenant(ctx context.Context, d models.OrphanDescriptor, tenantID string) (int64, []string, error) {
	return s.countOrphans(ctx, d, tenantID)
}

func (s *PostgresStore) countOrphans(ctx context.Context, d models.OrphanDescriptor, tenantID string) (int64, []string, error) {
	where := fmt.Sprintf("c.%s IS NOT NULL AND p.%s IS NULL", d.RefColumn, d.ParentIDColumn)
	if d.Exclude != "" {
		// exclusion predicates reference child columns unqualified
		where += fmt.Sprintf(" AND NOT (%s)", d.Exclude)
	}
	args := []interface{}{}
	if tenantID != "" {
		where += " AND c.tenant_id = $1"
		args = append(args, tenantID)
	}

	query := fmt.Sprintf(`
		SELECT COUNT(*),
		       (SELECT COALESCE(array_agg(id), '{}') FROM (
		            SELECT c.id FROM %s c LEFT JOIN %s p ON c.%s = p.%s
		            WHERE %s ORDER BY c.id LIMIT %d
		        ) sample)
		FROM %s c
		LEFT JOIN %s p ON c.%s = p.%s
		WHERE %s`,
		d.Table, d.ParentTable, d.RefColumn, d.ParentIDColumn, where, models.SampleLimit,
		d.Table, d.ParentTable, d.RefColumn, d.ParentIDColumn, where,
	)

	var count int64
	var sampleIDs []string
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count, pq.Array(&sampleIDs)); err != nil {
		return 0, nil, fmt.Errorf("failed to count orphans for %s: %w", d.Name, err)
	}
	return count, sampleIDs, nil
}

// FetchUnresolvedRows returns up to limit rows with null ownership from
// the spec's table, with every candidate parent's existence and ownership
// prefetched in the same query
func (s *PostgresStore) FetchUnresolvedRows(ctx context.Context, spec models.TableSpec, limit int) ([]models.UnresolvedRow, error) {
	query, args := buildUnresolvedQuery(spec, limit, "")

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch unresolved rows from %s: %w", spec.Table, err)
	}
	defer rows.Close()

	var result []models.UnresolvedRow
	for rows.Next() {
		row, err := scanUnresolvedRow(rows, spec)
		if err != nil {
			return nil, fmt.Errorf("failed to scan unresolved row from %s: %w", spec.Table, err)
		}
		result = append(result, *row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed reading unresolved rows from %s: %w", spec.Table, err)
	}
	return result, nil
}

// FetchUnresolvedRow returns a single row for derivation, or nil when the
// row does not exist or already has a non-null ownership value
func (s *PostgresStore) FetchUnresolvedRow(ctx context.Context, spec models.TableSpec, id string) (*models.UnresolvedRow, error) {
	query, args := buildUnresolvedQuery(spec, 1, id)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch row %s from %s: %w", id, spec.Table, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	row, err := scanUnresolvedRow(rows, spec)
	if err != nil {
		return nil, fmt.Errorf("failed to scan row %s from %s: %w", id, spec.Table, err)
	}
	return row, nil
}

// buildUnresolvedQuery joins the child table against every parent table
// in the spec's rule order. When id is non-empty the query targets one
// row; otherwise it pages through null-ownership rows up to limit.
func buildUnresolvedQuery(spec models.TableSpec, limit int, id string) (string, []interface{}) {
	var cols []string
	cols = append(cols, "t."+spec.IDColumn)
	if spec.PersonalColumn != "" {
		cols = append(cols, "t."+spec.PersonalColumn)
	} else {
		cols = append(cols, "FALSE")
	}

	var joins []string
	for i, rule := range spec.Rules {
		alias := fmt.Sprintf("p%d", i)
		cols = append(cols,
			fmt.Sprintf("t.%s", rule.Column),
			fmt.Sprintf("%s.%s IS NOT NULL", alias, rule.ParentIDColumn),
			fmt.Sprintf("%s.tenant_id", alias),
		)
		joins = append(joins, fmt.Sprintf(
			"LEFT JOIN %s %s ON t.%s = %s.%s",
			rule.ParentTable, alias, rule.Column, alias, rule.ParentIDColumn,
		))
	}

	query := fmt.Sprintf("SELECT %s FROM %s t %s WHERE t.%s IS NULL",
		strings.Join(cols, ", "), spec.Table, strings.Join(joins, " "), spec.OwnershipColumn)

	var args []interface{}
	if id != "" {
		query += fmt.Sprintf(" AND t.%s = $1", spec.IDColumn)
		args = append(args, id)
	} else {
		query += fmt.Sprintf(" ORDER BY t.%s LIMIT %d", spec.IDColumn, limit)
	}
	return query, args
}

func scanUnresolvedRow(rows *sql.Rows, spec models.TableSpec) (*models.UnresolvedRow, error) {
	var id string
	var personal bool

	refs := make([]sql.NullString, len(spec.Rules))
	exists := make([]bool, len(spec.Rules))
	tenants := make([]sql.NullString, len(spec.Rules))

	dest := []interface{}{&id, &personal}
	for i := range spec.Rules {
		dest = append(dest, &refs[i], &exists[i], &tenants[i])
	}
	if err := rows.Scan(dest...); err != nil {
		return nil, err
	}

	row := &models.UnresolvedRow{
		ID:       id,
		Personal: personal,
		Parents:  make([]models.ParentRef, len(spec.Rules)),
	}
	for i := range spec.Rules {
		ref := models.ParentRef{Exists: exists[i]}
		if refs[i].Valid {
			v := refs[i].String
			ref.ID = &v
		}
		if tenants[i].Valid {
			v := tenants[i].String
			ref.TenantID = &v
		}
		row.Parents[i] = ref
	}
	return row, nil
}

// AssignOwnershipIfNull writes the derived tenant id with a conditional
// update. The write succeeds only when the ownership column is still null
// at write time, so concurrent repair runs and legitimate concurrent
// writers can never be clobbered.
func (s *PostgresStore) AssignOwnershipIfNull(ctx context.Context, spec models.TableSpec, id, tenantID string) (bool, error) {
	query := fmt.Sprintf(
		"UPDATE %s SET %s = $1 WHERE %s = $2 AND %s IS NULL",
		spec.Table, spec.OwnershipColumn, spec.IDColumn, spec.OwnershipColumn,
	)

	result, err := s.db.ExecContext(ctx, query, tenantID, id)
	if err != nil {
		return false, fmt.Errorf("failed to assign ownership on %s row %s: %w", spec.Table, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read rows affected for %s row %s: %w", spec.Table, id, err)
	}
	return affected == 1, nil
}

// GetTenant looks up a tenant by id, returning nil when it does not exist
func (s *PostgresStore) GetTenant(ctx context.Context, id string) (*models.Tenant, error) {
	var tenant models.Tenant
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, status, created_at FROM tenants WHERE id = $1", id,
	).Scan(&tenant.ID, &tenant.Name, &tenant.Status, &tenant.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get tenant %s: %w", id, err)
	}
	return &tenant, nil
}

// CountTenantsByStatus returns total, active and blocked tenant counts
func (s *PostgresStore) CountTenantsByStatus(ctx context.Context) (total, active, blocked int64, err error) {
	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(*) FILTER (WHERE status = 'active'),
		       COUNT(*) FILTER (WHERE status = 'blocked')
		FROM tenants`,
	).Scan(&total, &active, &blocked)
	if err != nil {
		return 0, 0, 0, fmt.Errorf("failed to count tenants: %w", err)
	}
	return total, active, blocked, nil
}
