package idempotency

import (
	"time"

	"gorm.io/datatypes"
)

type Status string

const (
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
)

// Record is one entry of the command ledger. Scope names the command and
// the actor, Key is the client-supplied token.
type Record struct {
	Scope        string         `gorm:"primaryKey;type:varchar(160)" json:"scope"`
	Key          string         `gorm:"primaryKey;column:idempotency_key;type:varchar(128)" json:"key"`
	RequestHash  string         `gorm:"type:char(64);not null" json:"request_hash"`
	Status       Status         `gorm:"type:varchar(20);not null" json:"status"`
	ResponseBody datatypes.JSON `gorm:"type:jsonb" json:"response_body,omitempty"`
	ExpiresAt    time.Time      `gorm:"index;not null" json:"expires_at"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

func (Record) TableName() string {
	return "idempotency_records"
}
