package types

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	ContentKindPlan       = "plan"
	ContentKindProjection = "projection"
)

// GeneratedContent is a time-boxed cache of AI-generated personalized
// content. Action plans keep a single row per user that is overwritten;
// scenario projections append a new version each generation and the latest
// version wins. The asymmetry is deliberate.
type GeneratedContent struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	UserID       uuid.UUID      `gorm:"type:uuid;not null;index:idx_content_user_kind_version,unique" json:"user_id"`
	User         *User          `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	Kind         string         `gorm:"not null;index:idx_content_user_kind_version,unique;column:kind" json:"kind"`
	Version      int            `gorm:"not null;default:1;index:idx_content_user_kind_version,unique;column:version" json:"version"`
	Payload      datatypes.JSON `gorm:"type:jsonb;not null;column:payload" json:"payload"`
	Personalized bool           `gorm:"not null;default:true;column:personalized" json:"personalized"`
	GeneratedAt  time.Time      `gorm:"not null;column:generated_at" json:"generated_at"`
}

func (GeneratedContent) TableName() string {
	return "generated_content"
}

func IsContentKind(kind string) bool {
	return kind == ContentKindPlan || kind == ContentKindProjection
}
