package services

import (
	"context"
	"fmt"
	"time"

	apperrors "tenant-integrity-service/errors"
	"tenant-integrity-service/models"
)

// MissingOwnershipScanner counts rows whose ownership column is unset,
// per entity table, with a bounded id sample for operator inspection. A
// failed query never propagates: the result degrades to the -1 sentinel
// so an aggregate summary always comes back.
type MissingOwnershipScanner struct {
	store        IntegrityStore
	retryer      *apperrors.Retryer
	logger       Logger
	checkTimeout time.Duration
}

// NewMissingOwnershipScanner creates a scanner over the given store
func NewMissingOwnershipScanner(store IntegrityStore, logger Logger, checkTimeout time.Duration) *MissingOwnershipScanner {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	if checkTimeout <= 0 {
		checkTimeout = 15 * time.Second
	}

	return &MissingOwnershipScanner{
		store:        store,
		retryer:      apperrors.NewRetryer(apperrors.DatabaseRetryConfig()),
		logger:       logger,
		checkTimeout: checkTimeout,
	}
}

// Scan counts null-ownership rows on one table
func (s *MissingOwnershipScanner) Scan(ctx context.Context, spec models.TableSpec) models.CheckResult {
	result := models.CheckResult{
		Name:        fmt.Sprintf("missing_ownership_%s", spec.Table),
		Table:       spec.Table,
		Description: fmt.Sprintf("Rows in %s with no tenant assigned", spec.Table),
	}

	checkCtx, cancel := context.WithTimeout(ctx, s.checkTimeout)
	defer cancel()

	var count int64
	var sampleIDs []string
	err := s.retryer.Execute(checkCtx, func() error {
		var opErr error
		count, sampleIDs, opErr = s.store.CountMissingOwnership(checkCtx, spec)
		if opErr != nil {
			return apperrors.NewDatabaseError(apperrors.ErrCodeDatabaseQuery, "missing-ownership scan failed", opErr)
		}
		return nil
	})
	if err != nil {
		s.logger.Error("Missing-ownership scan failed", err, String("table", spec.Table))
		result.Count = models.CheckFailureCount
		result.Failed = true
		result.FailureReason = err.Error()
		return result
	}

	result.Count = count
	result.SampleIDs = sampleIDs
	return result
}

// ScanAll runs the scan over every table with a bounded number of
// concurrent queries, preserving table order in the results
func (s *MissingOwnershipScanner) ScanAll(ctx context.Context, specs []models.TableSpec, maxConcurrent int) []models.CheckResult {
	results := make([]models.CheckResult, len(specs))

	runBounded(maxConcurrent, len(specs), func(i int) {
		results[i] = s.Scan(ctx, specs[i])
	})

	return results
}
