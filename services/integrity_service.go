package services

import (
	"context"
	"time"

	"tenant-integrity-service/models"
)

// IntegrityServiceOptions carries the tuning knobs and check descriptors
// the engine is built from
type IntegrityServiceOptions struct {
	DefaultPreviewLimit int
	MaxPreviewLimit     int
	MaxConcurrentChecks int
	CheckTimeout        time.Duration

	MismatchDescriptors []models.MismatchDescriptor
	OrphanDescriptors   []models.OrphanDescriptor
}

// IntegrityService is the facade over the scanners, detectors, derivation
// engine and repair machinery. Handlers talk only to this type.
type IntegrityService struct {
	preview    *RepairPreviewGenerator
	applier    *RepairApplier
	aggregator *HealthSummaryAggregator
	logger     Logger
}

// NewIntegrityService wires the full integrity pipeline over one store
func NewIntegrityService(store IntegrityStore, opts IntegrityServiceOptions, audit AuditSink, metrics MetricsService, logger Logger) *IntegrityService {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if audit == nil {
		audit = NewLoggerAuditSink(logger)
	}

	scanner := NewMissingOwnershipScanner(store, logger, opts.CheckTimeout)
	mismatches := NewCrossTenantMismatchDetector(store, logger, opts.CheckTimeout)
	orphans := NewOrphanedReferenceDetector(store, logger, opts.CheckTimeout)
	engine := NewDerivationEngine(store, logger)
	preview := NewRepairPreviewGenerator(store, engine, logger, opts.DefaultPreviewLimit, opts.MaxPreviewLimit)
	applier := NewRepairApplier(store, preview, audit, metrics, logger)
	aggregator := NewHealthSummaryAggregator(
		store, scanner, mismatches, orphans,
		opts.MismatchDescriptors, opts.OrphanDescriptors,
		logger, opts.MaxConcurrentChecks,
	)

	return &IntegrityService{
		preview:    preview,
		applier:    applier,
		aggregator: aggregator,
		logger:     logger,
	}
}

// GetGlobalHealthSummary reports integrity state across all tenants
func (s *IntegrityService) GetGlobalHealthSummary(ctx context.Context) *models.GlobalHealthSummary {
	start := time.Now()
	summary := s.aggregator.GlobalSummary(ctx)
	s.logger.Info("Global health summary generated",
		Duration("duration", time.Since(start)),
		Int64("total_tenants", summary.TotalTenants))
	return summary
}

// GetTenantHealthSummary reports integrity state for one tenant. Returns
// nil with no error when the tenant does not exist.
func (s *IntegrityService) GetTenantHealthSummary(ctx context.Context, tenantID string) (*models.TenantHealthSummary, error) {
	start := time.Now()
	summary, err := s.aggregator.TenantSummary(ctx, tenantID)
	if err != nil || summary == nil {
		return summary, err
	}
	s.logger.Info("Tenant health summary generated",
		String("tenant_id", tenantID),
		Duration("duration", time.Since(start)),
		Int("blocker_count", summary.BlockerCount),
		Bool("is_ready", summary.IsReady))
	return summary, nil
}

// GenerateRepairPreview computes proposed ownership repairs without
// writing anything
func (s *IntegrityService) GenerateRepairPreview(ctx context.Context, opts models.PreviewOptions) (*models.RepairPreviewResult, error) {
	return s.preview.Generate(ctx, opts)
}

// ApplyRepairs executes high-confidence ownership repairs on behalf of
// actor and reports what was written
func (s *IntegrityService) ApplyRepairs(ctx context.Context, opts models.ApplyOptions, actor models.Actor) (*models.RepairApplyResult, error) {
	return s.applier.Apply(ctx, opts, actor)
}
