package models

import (
	"time"

	"gorm.io/datatypes"
)

// Submission is one scored entry. Rows are written once and never updated.
type Submission struct {
	ID                   uint              `gorm:"primaryKey" json:"id"`
	Name                 string            `gorm:"size:255;not null;index" json:"name"`
	Prompt               string            `gorm:"type:text" json:"prompt,omitempty"`
	SystemOutput         string            `gorm:"type:text" json:"system_output,omitempty"`
	ReferenceTranslation string            `gorm:"type:text" json:"reference_translation,omitempty"`
	SourceText           string            `gorm:"type:text" json:"source_text,omitempty"`
	SystemPrompt         string            `gorm:"type:text" json:"system_prompt,omitempty"`
	LLMOutput            string            `gorm:"column:llm_output;type:text" json:"llm_output,omitempty"`
	Score                float64           `gorm:"not null;index" json:"score"`
	Mode                 string            `gorm:"size:32;not null;default:length" json:"mode"`
	Details              datatypes.JSONMap `gorm:"type:json" json:"details,omitempty"`
	CreatedAt            time.Time         `json:"created_at"`
}
