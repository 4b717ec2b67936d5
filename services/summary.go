package services

import (
	"context"
	"fmt"
	"time"

	"tenant-integrity-service/models"
)

// HealthSummaryAggregator composes scanner and detector output into the
// global and per-tenant summaries. Every check is caught at individual
// granularity: a summary always comes back, possibly carrying the -1
// sentinel for checks that failed, because partial information is
// strictly better than none for a diagnostic tool.
type HealthSummaryAggregator struct {
	store         IntegrityStore
	scanner       *MissingOwnershipScanner
	mismatches    *CrossTenantMismatchDetector
	orphans       *OrphanedReferenceDetector
	mismatchDescs []models.MismatchDescriptor
	orphanDescs   []models.OrphanDescriptor
	logger        Logger
	maxConcurrent int
}

// NewHealthSummaryAggregator creates an aggregator over the configured
// mismatch and orphan descriptors
func NewHealthSummaryAggregator(
	store IntegrityStore,
	scanner *MissingOwnershipScanner,
	mismatches *CrossTenantMismatchDetector,
	orphans *OrphanedReferenceDetector,
	mismatchDescs []models.MismatchDescriptor,
	orphanDescs []models.OrphanDescriptor,
	logger Logger,
	maxConcurrent int,
) *HealthSummaryAggregator {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}

	return &HealthSummaryAggregator{
		store:         store,
		scanner:       scanner,
		mismatches:    mismatches,
		orphans:       orphans,
		mismatchDescs: mismatchDescs,
		orphanDescs:   orphanDescs,
		logger:        logger,
		maxConcurrent: maxConcurrent,
	}
}

// GlobalSummary runs every missing-ownership scan and orphan check
// concurrently and sums the results across all tenants
func (a *HealthSummaryAggregator) GlobalSummary(ctx context.Context) *models.GlobalHealthSummary {
	summary := &models.GlobalHealthSummary{
		ByTable:     make(map[string]int64),
		GeneratedAt: time.Now(),
	}

	total, active, blocked, err := a.store.CountTenantsByStatus(ctx)
	if err != nil {
		a.logger.Error("Failed to count tenants", err)
		summary.TotalTenants = models.CheckFailureCount
		summary.ReadyTenants = models.CheckFailureCount
		summary.BlockedTenants = models.CheckFailureCount
	} else {
		summary.TotalTenants = total
		summary.ReadyTenants = active
		summary.BlockedTenants = blocked
	}

	scanResults := a.scanner.ScanAll(ctx, ScannableTables(), a.maxConcurrent)
	for _, result := range scanResults {
		summary.ByTable[result.Table] = result.Count
	}

	orphanResults := a.orphans.DetectAll(ctx, a.orphanDescs, "", a.maxConcurrent)
	for _, result := range orphanResults {
		if result.Failed {
			// Unknown counts stay out of the sum; the failure is already
			// logged by the detector
			continue
		}
		summary.TotalOrphanRows += result.Count
	}

	return summary
}

// TenantSummary reports findings attributable to one tenant, or nil when
// the tenant does not exist
func (a *HealthSummaryAggregator) TenantSummary(ctx context.Context, tenantID string) (*models.TenantHealthSummary, error) {
	tenant, err := a.store.GetTenant(ctx, tenantID)
	if err != nil {
		a.logger.Error("Failed to look up tenant", err, String("tenant_id", tenantID))
		return nil, err
	}
	if tenant == nil {
		return nil, nil
	}

	summary := &models.TenantHealthSummary{
		TenantID:    tenant.ID,
		TenantName:  tenant.Name,
		Status:      tenant.Status,
		Checks:      []models.HealthCheckResult{},
		GeneratedAt: time.Now(),
	}

	mismatchResults := a.mismatches.DetectAll(ctx, a.mismatchDescs, tenantID, a.maxConcurrent)
	for _, result := range mismatchResults {
		if finding, ok := classifyFinding(result, models.SeverityCritical,
			"Review the cross-tenant rows and correct parent assignments; mismatches are never auto-repaired"); ok {
			summary.Checks = append(summary.Checks, finding)
		}
	}

	orphanResults := a.orphans.DetectAll(ctx, a.orphanDescs, tenantID, a.maxConcurrent)
	for _, result := range orphanResults {
		if finding, ok := classifyFinding(result, models.SeverityWarning,
			"Restore or clear the dangling references; ownership cannot be derived through a missing parent"); ok {
			summary.Checks = append(summary.Checks, finding)
		}
	}

	for _, check := range summary.Checks {
		if check.Severity == models.SeverityCritical && check.Count > 0 {
			summary.BlockerCount++
		}
	}
	summary.IsReady = tenant.Status == models.TenantStatusActive && summary.BlockerCount == 0

	return summary, nil
}

// classifyFinding turns a non-zero or failed check result into a
// severity-tagged finding. Clean checks produce no finding.
func classifyFinding(result models.CheckResult, severity models.Severity, action string) (models.HealthCheckResult, bool) {
	if result.Failed {
		return models.HealthCheckResult{
			CheckName:         result.Name,
			Severity:          models.SeverityCritical,
			Count:             models.CheckFailureCount,
			RecommendedAction: fmt.Sprintf("Check %q could not run (%s); treat its state as unknown and retry", result.Name, result.FailureReason),
		}, true
	}
	if result.Count == 0 {
		return models.HealthCheckResult{}, false
	}

	return models.HealthCheckResult{
		CheckName:         result.Name,
		Severity:          severity,
		Count:             result.Count,
		SampleIDs:         result.SampleIDs,
		RecommendedAction: action,
	}, true
}
