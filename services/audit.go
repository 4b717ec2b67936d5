package services

import (
	"tenant-integrity-service/models"
)

// AuditRecord captures one ownership repair for the audit trail
type AuditRecord struct {
	Table            string `json:"table"`
	RowID            string `json:"row_id"`
	AssignedTenantID string `json:"assigned_tenant_id"`
	DerivationPath   string `json:"derivation_path"`
	ActorUserID      string `json:"actor_user_id"`
	CorrelationID    string `json:"correlation_id"`
}

// AuditSink receives a record for every successful repair write. It is an
// interface so audit output can be captured in tests and routed somewhere
// other than the process log.
type AuditSink interface {
	RecordRepair(record AuditRecord)
}

// LoggerAuditSink emits audit records as structured log entries
type LoggerAuditSink struct {
	logger Logger
}

// NewLoggerAuditSink creates an audit sink backed by a structured logger
func NewLoggerAuditSink(logger Logger) *LoggerAuditSink {
	if logger == nil {
		logger = NewDefaultLogger()
	}
	return &LoggerAuditSink{logger: logger}
}

// RecordRepair logs one repaired row with full actor context
func (s *LoggerAuditSink) RecordRepair(record AuditRecord) {
	s.logger.Info("Ownership repair applied",
		String("table", record.Table),
		String("row_id", record.RowID),
		String("tenant_id", record.AssignedTenantID),
		String("derivation_path", record.DerivationPath),
		String("actor_user_id", record.ActorUserID),
		String("correlation_id", record.CorrelationID))
}

// NewAuditRecord builds a record from a proposal and the acting identity
func NewAuditRecord(update models.ProposedUpdate, actor models.Actor, correlationID string) AuditRecord {
	return AuditRecord{
		Table:            update.Table,
		RowID:            update.ID,
		AssignedTenantID: update.DerivedOwnership,
		DerivationPath:   update.DerivationPath,
		ActorUserID:      actor.UserID,
		CorrelationID:    correlationID,
	}
}
