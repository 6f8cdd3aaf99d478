package types

import (
	"time"

	"github.com/google/uuid"
)

// Dimension names of the IMPACT diagnostic. Scores live in [0,10].
const (
	DimensionInspiracao    = "inspiracao"
	DimensionMotivacao     = "motivacao"
	DimensionPreparacao    = "preparacao"
	DimensionApresentacao  = "apresentacao"
	DimensionConversao     = "conversao"
	DimensionTransformacao = "transformacao"
)

// DiagnosticEntry holds one user's six dimension scores for one event day.
// Unique per (user_id, event_day); resubmissions overwrite in place.
type DiagnosticEntry struct {
	ID            uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        uuid.UUID `gorm:"type:uuid;not null;index:idx_diagnostic_user_day,unique" json:"user_id"`
	User          *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	EventDay      int       `gorm:"not null;index:idx_diagnostic_user_day,unique;column:event_day" json:"event_day"`
	Inspiracao    float64   `gorm:"not null;column:inspiracao" json:"inspiracao"`
	Motivacao     float64   `gorm:"not null;column:motivacao" json:"motivacao"`
	Preparacao    float64   `gorm:"not null;column:preparacao" json:"preparacao"`
	Apresentacao  float64   `gorm:"not null;column:apresentacao" json:"apresentacao"`
	Conversao     float64   `gorm:"not null;column:conversao" json:"conversao"`
	Transformacao float64   `gorm:"not null;column:transformacao" json:"transformacao"`
	CreatedAt     time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt     time.Time `gorm:"not null" json:"updated_at"`
}

func (DiagnosticEntry) TableName() string {
	return "diagnostic_entry"
}

// Score returns the score for a dimension by name.
func (d *DiagnosticEntry) Score(dimension string) (float64, bool) {
	switch dimension {
	case DimensionInspiracao:
		return d.Inspiracao, true
	case DimensionMotivacao:
		return d.Motivacao, true
	case DimensionPreparacao:
		return d.Preparacao, true
	case DimensionApresentacao:
		return d.Apresentacao, true
	case DimensionConversao:
		return d.Conversao, true
	case DimensionTransformacao:
		return d.Transformacao, true
	}
	return 0, false
}

// SetScore assigns the score for a dimension by name.
func (d *DiagnosticEntry) SetScore(dimension string, value float64) bool {
	switch dimension {
	case DimensionInspiracao:
		d.Inspiracao = value
	case DimensionMotivacao:
		d.Motivacao = value
	case DimensionPreparacao:
		d.Preparacao = value
	case DimensionApresentacao:
		d.Apresentacao = value
	case DimensionConversao:
		d.Conversao = value
	case DimensionTransformacao:
		d.Transformacao = value
	default:
		return false
	}
	return true
}
