package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	apperrors "tenant-integrity-service/errors"
	"tenant-integrity-service/models"
)

// RepairApplier turns high-confidence preview proposals into conditional
// updates. Each write succeeds only if the ownership column is still null,
// so concurrent repair runs converge instead of double-applying, and a
// legitimate concurrent writer is never clobbered. Repairs are
// independent, idempotent operations, not a transaction: a per-row
// failure is logged and the batch continues.
type RepairApplier struct {
	store   IntegrityStore
	preview *RepairPreviewGenerator
	audit   AuditSink
	metrics MetricsService
	logger  Logger
}

// NewRepairApplier creates a repair applier
func NewRepairApplier(store IntegrityStore, preview *RepairPreviewGenerator, audit AuditSink, metrics MetricsService, logger Logger) *RepairApplier {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if audit == nil {
		audit = NewLoggerAuditSink(logger)
	}

	return &RepairApplier{
		store:   store,
		preview: preview,
		audit:   audit,
		metrics: metrics,
		logger:  logger,
	}
}

// Apply re-runs the preview and writes only high-confidence proposals
// with a non-empty derived value. Low-confidence proposals are always
// counted as skipped and never written, regardless of options.
func (a *RepairApplier) Apply(ctx context.Context, opts models.ApplyOptions, actor models.Actor) (*models.RepairApplyResult, error) {
	if actor.UserID == "" {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeMissingActor,
			"repairs require an acting user id for the audit trail", nil)
	}

	correlationID := actor.RequestID
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	log := a.logger.With(
		String("actor_user_id", actor.UserID),
		String("correlation_id", correlationID))

	if !opts.ApplyOnlyHighConfidence {
		// Reserved for future manual-override flows; the engine never
		// writes low-confidence proposals on its own.
		log.Warn("apply_only_high_confidence=false requested; applying high-confidence proposals only")
	}

	preview, err := a.preview.Generate(ctx, models.PreviewOptions{
		TenantID: opts.TenantID,
		Tables:   opts.Tables,
		Limit:    opts.Limit,
	})
	if err != nil {
		return nil, err
	}

	result := &models.RepairApplyResult{
		UpdatedCountByTable:              make(map[string]int),
		SkippedLowConfidenceCountByTable: make(map[string]int),
		CorrelationID:                    correlationID,
		AppliedAt:                        time.Now(),
	}

	for _, proposal := range preview.ProposedUpdates {
		if proposal.Confidence == models.ConfidenceLow || proposal.DerivedOwnership == "" {
			result.SkippedLowConfidenceCountByTable[proposal.Table]++
			result.TotalSkipped++
			continue
		}

		spec, ok := LookupTable(proposal.Table)
		if !ok {
			log.Error("Proposal references unregistered table", nil, String("table", proposal.Table))
			continue
		}

		updated, err := a.store.AssignOwnershipIfNull(ctx, spec, proposal.ID, proposal.DerivedOwnership)
		if err != nil {
			// Concurrent delete or transient failure: counted as neither
			// updated nor skipped, the batch continues
			log.Error("Failed to apply ownership repair", err,
				String("table", proposal.Table),
				String("row_id", proposal.ID))
			if a.metrics != nil {
				a.metrics.IncrementCounter("repair_row_failures", map[string]string{"table": proposal.Table})
			}
			continue
		}
		if !updated {
			// A concurrent writer assigned ownership first; the conditional
			// predicate did its job
			log.Info("Ownership already assigned, repair not needed",
				String("table", proposal.Table),
				String("row_id", proposal.ID))
			continue
		}

		result.UpdatedCountByTable[proposal.Table]++
		result.TotalUpdated++
		if len(result.SampleUpdatedIDs) < models.SampleLimit {
			result.SampleUpdatedIDs = append(result.SampleUpdatedIDs, proposal.ID)
		}

		a.audit.RecordRepair(NewAuditRecord(proposal, actor, correlationID))
		if a.metrics != nil {
			a.metrics.IncrementCounter("repairs_applied", map[string]string{"table": proposal.Table})
		}
	}

	log.Info("Repair run completed",
		Int("total_updated", result.TotalUpdated),
		Int("total_skipped", result.TotalSkipped))

	return result, nil
}
