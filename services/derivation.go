package services

import (
	"context"
	"fmt"
	"strings"

	apperrors "tenant-integrity-service/errors"
	"tenant-integrity-service/models"
)

// DerivationEngine computes a missing ownership value from an entity's
// relationship chain. Rules are evaluated strictly in registry order and
// the first rule whose parent exists with non-null ownership wins with
// high confidence. A broken chain is not an error: it yields a
// low-confidence proposal carrying notes for manual review, and such
// proposals are never auto-applied.
type DerivationEngine struct {
	store  IntegrityStore
	logger Logger
}

// NewDerivationEngine creates a derivation engine over the given store
func NewDerivationEngine(store IntegrityStore, logger Logger) *DerivationEngine {
	if logger == nil {
		logger = NewDefaultLogger()
	}

	return &DerivationEngine{
		store:  store,
		logger: logger,
	}
}

// Derive resolves ownership for a single row. It returns nil when the
// row does not exist or already has a non-null ownership value;
// re-deriving an owned row is always a no-op.
func (e *DerivationEngine) Derive(ctx context.Context, table, id string) (*models.ProposedUpdate, error) {
	spec, ok := LookupTable(table)
	if !ok || !spec.Derivable() {
		return nil, apperrors.NewValidationError(apperrors.ErrCodeUnknownTable,
			fmt.Sprintf("table %q is not derivable", table), nil)
	}

	row, err := e.store.FetchUnresolvedRow(ctx, spec, id)
	if err != nil {
		return nil, apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery, "failed to fetch row for derivation", err)
	}
	if row == nil {
		return nil, nil
	}

	proposal := e.DeriveFromRow(spec, *row)
	return &proposal, nil
}

// DeriveFromRow evaluates the spec's ordered rules against a prefetched
// row. It is pure: the preview generator feeds it rows from one joined
// query per table instead of a round trip per row.
func (e *DerivationEngine) DeriveFromRow(spec models.TableSpec, row models.UnresolvedRow) models.ProposedUpdate {
	proposal := models.ProposedUpdate{
		Table: spec.Table,
		ID:    row.ID,
	}

	var gaps []string
	for i, rule := range spec.Rules {
		if rule.PersonalOnly && !row.Personal {
			continue
		}

		parent := row.Parents[i]
		switch {
		case parent.ID == nil:
			gaps = append(gaps, fmt.Sprintf("%s unset", rule.Column))
		case !parent.Exists:
			gaps = append(gaps, fmt.Sprintf("%s points at missing %s row", rule.Column, rule.ParentTable))
		case parent.TenantID == nil:
			gaps = append(gaps, fmt.Sprintf("%s resolves to %s row with no tenant", rule.Column, rule.ParentTable))
		default:
			proposal.DerivedOwnership = *parent.TenantID
			proposal.Confidence = models.ConfidenceHigh
			proposal.DerivationPath = rule.Description
			return proposal
		}
	}

	proposal.Confidence = models.ConfidenceLow
	if len(gaps) == 0 {
		gaps = append(gaps, "no applicable derivation rule")
	}
	proposal.Notes = "cannot derive ownership: " + strings.Join(gaps, "; ")
	return proposal
}
