package types

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// BadgeActionPrefix namespaces ledger entries that represent badges rather
// than plain XP actions. The badge set is derived from completed action keys
// carrying this prefix; there is no separate badge table.
const BadgeActionPrefix = "badge:"

// RewardEntry is an immutable fact in the append-only reward ledger. The
// composite unique index on (user_id, action_key) is the only concurrency
// control protecting against double-crediting: a duplicate insert fails at
// the constraint and is reported to callers as "already credited".
type RewardEntry struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID      `gorm:"type:uuid;not null;index:idx_reward_user_action,unique" json:"user_id"`
	User        *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	ActionKey   string         `gorm:"not null;index:idx_reward_user_action,unique;column:action_key" json:"action_key"`
	XPAmount    int            `gorm:"not null;column:xp_amount" json:"xp_amount"`
	Description string         `gorm:"column:description" json:"description"`
	Metadata    datatypes.JSON `gorm:"type:jsonb;column:metadata" json:"metadata,omitempty"`
	CreatedAt   time.Time      `gorm:"not null" json:"created_at"`
}

func (RewardEntry) TableName() string {
	return "reward_ledger"
}

func (e *RewardEntry) IsBadge() bool {
	return e != nil && strings.HasPrefix(e.ActionKey, BadgeActionPrefix)
}
