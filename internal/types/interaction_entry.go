package types

import (
	"time"

	"github.com/google/uuid"
)

// InteractionEntry is an append-only log of free-text exchanges. A short
// recent window of these is fed into scenario-projection prompts.
type InteractionEntry struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;index" json:"user_id"`
	User      *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Role      string    `gorm:"not null;column:role" json:"role"`
	Content   string    `gorm:"type:text;not null;column:content" json:"content"`
	CreatedAt time.Time `gorm:"not null;index" json:"created_at"`
}

func (InteractionEntry) TableName() string {
	return "interaction_entry"
}
