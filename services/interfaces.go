package services

import (
	"context"

	"tenant-integrity-service/models"
)

// IntegrityStore is the storage dependency the integrity engine accepts.
// Implementations must keep every query bounded and must perform
// AssignOwnershipIfNull as a single conditional statement; the engine's
// safety under concurrent invocation rests on that predicate.
type IntegrityStore interface {
	// CountMissingOwnership counts null-ownership rows and samples their ids
	CountMissingOwnership(ctx context.Context, spec models.TableSpec) (int64, []string, error)

	// CountMismatches counts rows whose ownership disagrees with their
	// parent's, considering only rows where both sides are non-null
	CountMismatches(ctx context.Context, d models.MismatchDescriptor) (int64, []string, error)
	CountMismatchesForTenant(ctx context.Context, d models.MismatchDescriptor, tenantID string) (int64, []string, error)

	// CountOrphans counts rows whose foreign key points at a missing parent
	CountOrphans(ctx context.Context, d models.OrphanDescriptor) (int64, []string, error)
	CountOrphansForTenant(ctx context.Context, d models.OrphanDescriptor, tenantID string) (int64, []string, error)

	// FetchUnresolvedRows returns null-ownership rows with all candidate
	// parents prefetched, up to limit
	FetchUnresolvedRows(ctx context.Context, spec models.TableSpec, limit int) ([]models.UnresolvedRow, error)

	// FetchUnresolvedRow returns one row for derivation, nil when the row
	// is absent or already owned
	FetchUnresolvedRow(ctx context.Context, spec models.TableSpec, id string) (*models.UnresolvedRow, error)

	// AssignOwnershipIfNull writes ownership only if still null, reporting
	// whether the row was updated
	AssignOwnershipIfNull(ctx context.Context, spec models.TableSpec, id, tenantID string) (bool, error)

	// GetTenant returns nil when the tenant does not exist
	GetTenant(ctx context.Context, id string) (*models.Tenant, error)

	// CountTenantsByStatus returns total, active and blocked tenant counts
	CountTenantsByStatus(ctx context.Context) (total, active, blocked int64, err error)
}
