package services

import (
	"context"
	"time"

	apperrors "tenant-integrity-service/errors"
	"tenant-integrity-service/models"
)

// CrossTenantMismatchDetector flags parent/child pairs whose ownership
// columns are both set but disagree. Rows with a null on either side are
// the scanner's territory. Each descriptor is independent: descriptors
// run concurrently and a failing one degrades only its own result.
type CrossTenantMismatchDetector struct {
	store        IntegrityStore
	retryer      *apperrors.Retryer
	logger       Logger
	checkTimeout time.Duration
}

// NewCrossTenantMismatchDetector creates a mismatch detector
func NewCrossTenantMismatchDetector(store IntegrityStore, logger Logger, checkTimeout time.Duration) *CrossTenantMismatchDetector {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if checkTimeout <= 0 {
		checkTimeout = 15 * time.Second
	}

	return &CrossTenantMismatchDetector{
		store:        store,
		retryer:      apperrors.NewRetryer(apperrors.DatabaseRetryConfig()),
		logger:       logger,
		checkTimeout: checkTimeout,
	}
}

// Detect runs one mismatch check. tenantID, when non-empty, restricts
// the check to rows attributable to that tenant.
func (d *CrossTenantMismatchDetector) Detect(ctx context.Context, desc models.MismatchDescriptor, tenantID string) models.CheckResult {
	result := models.CheckResult{
		Name:        desc.Name,
		Table:       desc.ChildTable,
		Description: desc.Description,
	}

	checkCtx, cancel := context.WithTimeout(ctx, d.checkTimeout)
	defer cancel()

	var count int64
	var sampleIDs []string
	err := d.retryer.Execute(checkCtx, func() error {
		var opErr error
		if tenantID == "" {
			count, sampleIDs, opErr = d.store.CountMismatches(checkCtx, desc)
		} else {
			count, sampleIDs, opErr = d.store.CountMismatchesForTenant(checkCtx, desc, tenantID)
		}
		if opErr != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeCheckFailed, "cross-tenant mismatch check failed", opErr)
		}
		return nil
	})
	if err != nil {
		d.logger.Error("Cross-tenant mismatch check failed", err, String("check", desc.Name))
		result.Count = models.CheckFailureCount
		result.Failed = true
		result.FailureReason = err.Error()
		return result
	}

	result.Count = count
	result.SampleIDs = sampleIDs
	return result
}

// DetectAll runs every descriptor concurrently with a bounded worker
// count, preserving descriptor order
func (d *CrossTenantMismatchDetector) DetectAll(ctx context.Context, descs []models.MismatchDescriptor, tenantID string, maxConcurrent int) []models.CheckResult {
	results := make([]models.CheckResult, len(descs))

	runBounded(maxConcurrent, len(descs), func(i int) {
		results[i] = d.Detect(ctx, descs[i], tenantID)
	})

	return results
}

// OrphanedReferenceDetector finds rows whose foreign key points at a
// parent that no longer exists. Rows that legitimately lack a parent
// (personal tasks) are excluded via the descriptor's configured
// predicate; the predicate is never inferred.
type OrphanedReferenceDetector struct {
	store        IntegrityStore
	retryer      *apperrors.Retryer
	logger       Logger
	checkTimeout time.Duration
}

// NewOrphanedReferenceDetector creates an orphan detector
func NewOrphanedReferenceDetector(store IntegrityStore, logger Logger, checkTimeout time.Duration) *OrphanedReferenceDetector {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if checkTimeout <= 0 {
		checkTimeout = 15 * time.Second
	}

	return &OrphanedReferenceDetector{
		store:        store,
		retryer:      apperrors.NewRetryer(apperrors.DatabaseRetryConfig()),
		logger:       logger,
		checkTimeout: checkTimeout,
	}
}

// Detect runs one orphan check, optionally scoped to a tenant
func (d *OrphanedReferenceDetector) Detect(ctx context.Context, desc models.OrphanDescriptor, tenantID string) models.CheckResult {
	result := models.CheckResult{
		Name:        desc.Name,
		Table:       desc.Table,
		Description: desc.Description,
	}

	checkCtx, cancel := context.WithTimeout(ctx, d.checkTimeout)
	defer cancel()

	var count int64
	var sampleIDs []string
	err := d.retryer.Execute(checkCtx, func() error {
		var opErr error
		if tenantID == "" {
			count, sampleIDs, opErr = d.store.CountOrphans(checkCtx, desc)
		} else {
			count, sampleIDs, opErr = d.store.CountOrphansForTenant(checkCtx, desc, tenantID)
		}
		if opErr != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeCheckFailed, "orphaned-reference check failed", opErr)
		}
		return nil
	})
	if err != nil {
		d.logger.Error("Orphaned-reference check failed", err, String("check", desc.Name))
		result.Count = models.CheckFailureCount
		result.Failed = true
		result.FailureReason = err.Error()
		return result
	}

	result.Count = count
	result.SampleIDs = sampleIDs
	return result
}

// DetectAll runs every descriptor concurrently with a bounded worker
// count, preserving descriptor order
func (d *OrphanedReferenceDetector) DetectAll(ctx context.Context, descs []models.OrphanDescriptor, tenantID string, maxConcurrent int) []models.CheckResult {
	results := make([]models.CheckResult, len(descs))

	runBounded(maxConcurrent, len(descs), func(i int) {
		results[i] = d.Detect(ctx, descs[i], tenantID)
	})

	return results
}
