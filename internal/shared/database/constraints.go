package database

import (
	"fmt"

	"gorm.io/gorm"
)

// constraintStatements are applied after AutoMigrate. They carry the
// uniqueness guarantees that GORM tags cannot express.
var constraintStatements = []struct {
	name string
	sql  string
}{
	{
		// At most one PENDING cancellation request per booking
		name: "uniq_cancellation_requests_pending_booking",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS uniq_cancellation_requests_pending_booking
			ON cancellation_requests (booking_id) WHERE status = 'PENDING'`,
	},
	{
		// One default policy per tenant
		name: "uniq_cancellation_policies_default_tenant",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS uniq_cancellation_policies_default_tenant
			ON cancellation_policies (tenant_id) WHERE is_default`,
	},
	{
		name: "uniq_cancellation_rules_policy_threshold",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS uniq_cancellation_rules_policy_threshold
			ON cancellation_rules (policy_id, hours_before_start)`,
	},
	{
		name: "idx_refund_records_cancellation",
		sql: `CREATE INDEX IF NOT EXISTS idx_refund_records_cancellation
			ON refund_records (cancellation_request_id, created_at)`,
	},
	{
		name: "uniq_dispute_evidence_sequence",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS uniq_dispute_evidence_sequence
			ON dispute_evidence (dispute_id, sequence)`,
	},
	{
		name: "uniq_dispute_communications_sequence",
		sql: `CREATE UNIQUE INDEX IF NOT EXISTS uniq_dispute_communications_sequence
			ON dispute_communications (dispute_id, sequence)`,
	},
}

// MigrateConstraints adds the partial unique indexes used for concurrency control
func MigrateConstraints(db *gorm.DB) error {
	for _, stmt := range constraintStatements {
		if err := db.Exec(stmt.sql).Error; err != nil {
			return fmt.Errorf("failed to apply %s: %w", stmt.name, err)
		}
	}
	return nil
}
