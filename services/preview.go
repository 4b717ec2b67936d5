package services

import (
	"context"
	"fmt"
	"time"

	apperrors "tenant-integrity-service/errors"
	"tenant-integrity-service/models"
)

// RepairPreviewGenerator runs the derivation engine over a bounded batch
// of unresolved rows per table without mutating anything. Preview is
// read-only by contract; the repair applier relies on that to use it as
// its dry-run stage.
type RepairPreviewGenerator struct {
	store        IntegrityStore
	engine       *DerivationEngine
	logger       Logger
	defaultLimit int
	maxLimit     int
}

// NewRepairPreviewGenerator creates a preview generator
func NewRepairPreviewGenerator(store IntegrityStore, engine *DerivationEngine, logger Logger, defaultLimit, maxLimit int) *RepairPreviewGenerator {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if defaultLimit <= 0 {
		defaultLimit = 100
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}

	return &RepairPreviewGenerator{
		store:        store,
		engine:       engine,
		logger:       logger,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// Generate previews repairs for the requested tables (default: every
// derivable table), fetching up to limit unresolved rows per table with
// one joined query each
func (g *RepairPreviewGenerator) Generate(ctx context.Context, opts models.PreviewOptions) (*models.RepairPreviewResult, error) {
	specs, err := g.resolveTables(opts.Tables)
	if err != nil {
		return nil, err
	}
	limit := g.resolveLimit(opts.Limit)

	result := &models.RepairPreviewResult{
		ProposedUpdates: []models.ProposedUpdate{},
		ByTable:         make(map[string]models.TableRepairStats),
		GeneratedAt:     time.Now(),
	}

	for _, spec := range specs {
		stats := models.TableRepairStats{}

		rows, err := g.store.FetchUnresolvedRows(ctx, spec, limit)
		if err != nil {
			// One table's failure must not void the rest of the preview
			g.logger.Error("Failed to fetch unresolved rows for preview", err, String("table", spec.Table))
			result.ByTable[spec.Table] = stats
			continue
		}

		for _, row := range rows {
			proposal := g.engine.DeriveFromRow(spec, row)

			if opts.TenantID != "" && proposal.DerivedOwnership != opts.TenantID {
				continue
			}

			switch proposal.Confidence {
			case models.ConfidenceHigh:
				stats.High++
				result.HighConfidenceCount++
			case models.ConfidenceLow:
				stats.Low++
				result.LowConfidenceCount++
			}
			result.ProposedUpdates = append(result.ProposedUpdates, proposal)
		}

		result.ByTable[spec.Table] = stats
	}

	g.logger.Debug("Repair preview generated",
		Int("tables", len(specs)),
		Int("high_confidence", result.HighConfidenceCount),
		Int("low_confidence", result.LowConfidenceCount))

	return result, nil
}

// resolveTables maps requested table names to specs, defaulting to every
// derivable table
func (g *RepairPreviewGenerator) resolveTables(tables []string) ([]models.TableSpec, error) {
	if len(tables) == 0 {
		return DerivableTables(), nil
	}

	var specs []models.TableSpec
	for _, name := range tables {
		spec, ok := LookupTable(name)
		if !ok {
			return nil, apperrors.NewValidationError(apperrors.ErrCodeUnknownTable,
				fmt.Sprintf("unknown table %q", name), nil)
		}
		if !spec.Derivable() {
			return nil, apperrors.NewValidationError(apperrors.ErrCodeUnknownTable,
				fmt.Sprintf("table %q has no derivation rules", name), nil)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func (g *RepairPreviewGenerator) resolveLimit(limit int) int {
	if limit <= 0 {
		return g.defaultLimit
	}
	if limit > g.maxLimit {
		return g.maxLimit
	}
	return limit
}
