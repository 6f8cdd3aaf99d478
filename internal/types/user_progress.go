package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// UserProgress is the denormalized aggregate over the reward ledger. It is
// owned exclusively by the reward service, which rewrites it inside the same
// transaction as every ledger insert; no other writer may touch xp_total or
// the key sets.
type UserProgress struct {
	UserID              uuid.UUID      `gorm:"type:uuid;primaryKey" json:"user_id"`
	XPTotal             int            `gorm:"not null;default:0;column:xp_total" json:"xp_total"`
	CompletedActionKeys datatypes.JSON `gorm:"type:jsonb;column:completed_action_keys" json:"completed_action_keys"`
	Badges              datatypes.JSON `gorm:"type:jsonb;column:badges" json:"badges"`
	LastSeenAt          *time.Time     `gorm:"column:last_seen_at" json:"last_seen_at,omitempty"`
	UpdatedAt           time.Time      `gorm:"not null" json:"updated_at"`
}

func (UserProgress) TableName() string {
	return "user_progress"
}
