package models

import "time"

// Confidence rates how much a derived ownership value can be trusted.
// High means an ordered derivation rule resolved a parent with non-null
// ownership; Low means the relationship chain was broken and the proposal
// must go through manual review.
type Confidence string

const (
	ConfidenceHigh Confidence = "high"
	ConfidenceLow  Confidence = "low"
)

// Severity classifies a health finding
type Severity string

const (
	SeverityCritical Severity = "critical"
	SeverityWarning  Severity = "warning"
	SeverityInfo     Severity = "info"
)

// SampleLimit bounds the number of example ids returned by any check
const SampleLimit = 10

// ProposedUpdate is a single derived ownership repair. Instances live only
// for the duration of a preview or apply call; they are never persisted.
type ProposedUpdate struct {
	Table            string     `json:"table"`
	ID               string     `json:"id"`
	CurrentOwnership *string    `json:"current_ownership"`
	DerivedOwnership string     `json:"derived_ownership"`
	Confidence       Confidence `json:"confidence"`
	DerivationPath   string     `json:"derivation_path"`
	Notes            string     `json:"notes,omitempty"`
}

// CheckResult is the outcome of one scanner or detector run. A failed
// query does not abort the aggregate; Failed is set and Count reports the
// -1 sentinel so callers can tell "unknown" from a legitimate zero.
type CheckResult struct {
	Name          string   `json:"name"`
	Table         string   `json:"table"`
	Count         int64    `json:"count"`
	SampleIDs     []string `json:"sample_ids,omitempty"`
	Description   string   `json:"description,omitempty"`
	Failed        bool     `json:"failed,omitempty"`
	FailureReason string   `json:"failure_reason,omitempty"`
}

// CheckFailureCount is the sentinel exposed when a check query failed.
// Callers must treat it as "unknown", never as healthy.
const CheckFailureCount int64 = -1

// HealthCheckResult is a severity-classified finding in a tenant summary
type HealthCheckResult struct {
	CheckName         string   `json:"check_name"`
	Severity          Severity `json:"severity"`
	Count             int64    `json:"count"`
	SampleIDs         []string `json:"sample_ids,omitempty"`
	RecommendedAction string   `json:"recommended_action"`
}

// GlobalHealthSummary aggregates scanner and detector output across all
// tenants. ByTable holds missing-ownership counts per entity table and may
// contain the -1 sentinel for checks that failed.
type GlobalHealthSummary struct {
	TotalTenants    int64            `json:"total_tenants"`
	ReadyTenants    int64            `json:"ready_tenants"`
	BlockedTenants  int64            `json:"blocked_tenants"`
	TotalOrphanRows int64            `json:"total_orphan_rows"`
	ByTable         map[string]int64 `json:"by_table"`
	GeneratedAt     time.Time        `json:"generated_at"`
}

// TenantHealthSummary reports findings attributable to a single tenant
type TenantHealthSummary struct {
	TenantID     string              `json:"tenant_id"`
	TenantName   string              `json:"tenant_name"`
	Status       TenantStatus        `json:"status"`
	IsReady      bool                `json:"is_ready"`
	BlockerCount int                 `json:"blocker_count"`
	Checks       []HealthCheckResult `json:"checks"`
	GeneratedAt  time.Time           `json:"generated_at"`
}

// TableRepairStats splits proposal counts for one table by confidence
type TableRepairStats struct {
	High int `json:"high"`
	Low  int `json:"low"`
}

// RepairPreviewResult is the outcome of a read-only repair dry run
type RepairPreviewResult struct {
	ProposedUpdates     []ProposedUpdate            `json:"proposed_updates"`
	HighConfidenceCount int                         `json:"high_confidence_count"`
	LowConfidenceCount  int                         `json:"low_confidence_count"`
	ByTable             map[string]TableRepairStats `json:"by_table"`
	GeneratedAt         time.Time                   `json:"generated_at"`
}

// RepairApplyResult reports what a repair run actually wrote. Rows that
// failed mid-apply (concurrent delete, ownership already assigned) appear
// in neither counter.
type RepairApplyResult struct {
	UpdatedCountByTable              map[string]int `json:"updated_count_by_table"`
	SkippedLowConfidenceCountByTable map[string]int `json:"skipped_low_confidence_count_by_table"`
	SampleUpdatedIDs                 []string       `json:"sample_updated_ids,omitempty"`
	TotalUpdated                     int            `json:"total_updated"`
	TotalSkipped                     int            `json:"total_skipped"`
	CorrelationID                    string         `json:"correlation_id"`
	AppliedAt                        time.Time      `json:"applied_at"`
}

// PreviewOptions narrows a repair preview. Zero values mean all derivable
// tables with the configured default limit.
type PreviewOptions struct {
	TenantID string   `json:"tenant_id,omitempty"`
	Tables   []string `json:"tables,omitempty"`
	Limit    int      `json:"limit,omitempty"`
}

// ApplyOptions controls a repair run. ApplyOnlyHighConfidence false is
// reserved for future manual-override flows; the engine never writes
// low-confidence proposals regardless.
type ApplyOptions struct {
	TenantID                string   `json:"tenant_id,omitempty"`
	Tables                  []string `json:"tables,omitempty"`
	Limit                   int      `json:"limit,omitempty"`
	ApplyOnlyHighConfidence bool     `json:"apply_only_high_confidence"`
}

// Actor identifies who requested a repair run, for the audit trail
type Actor struct {
	UserID    string `json:"user_id"`
	RequestID string `json:"request_id"`
}
