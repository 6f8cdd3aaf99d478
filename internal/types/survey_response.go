package types

import (
	"time"

	"github.com/google/uuid"
)

// SurveyResponse stores one answer per (user, question); resubmitting a
// question overwrites the previous answer. Answers feed content generation.
type SurveyResponse struct {
	ID          uuid.UUID `gorm:"type:uuid;primaryKey" json:"id"`
	UserID      uuid.UUID `gorm:"type:uuid;not null;index:idx_survey_user_question,unique" json:"user_id"`
	User        *User     `gorm:"constraint:OnDelete:CASCADE;foreignKey:UserID;references:ID" json:"user,omitempty"`
	QuestionKey string    `gorm:"not null;index:idx_survey_user_question,unique;column:question_key" json:"question_key"`
	Answer      string    `gorm:"type:text;not null;column:answer" json:"answer"`
	CreatedAt   time.Time `gorm:"not null" json:"created_at"`
	UpdatedAt   time.Time `gorm:"not null" json:"updated_at"`
}

func (SurveyResponse) TableName() string {
	return "survey_response"
}
