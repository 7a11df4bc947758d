package dto

import (
	"encoding/json"

	"github.com/noah-isme/prompt-arena/internal/models"
	"github.com/noah-isme/prompt-arena/internal/scoring"
)

// Realtime event names.
const (
	EventSubmitPrompt      = "submit_prompt"
	EventUpdateLeaderboard = "update_leaderboard"
	EventError             = "error"
)

// RealtimeFrame is the envelope for every websocket message.
type RealtimeFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// RealtimeOutbound is the envelope written to clients.
type RealtimeOutbound struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// SubmitPromptEvent carries a realtime submission. Only user and the fields of
// the active mode are needed.
type SubmitPromptEvent struct {
	User                 string `json:"user"`
	Prompt               string `json:"prompt"`
	SystemOutput         string `json:"system_output,omitempty"`
	ReferenceTranslation string `json:"reference_translation,omitempty"`
	SourceText           string `json:"source_text,omitempty"`
	SystemPrompt         string `json:"system_prompt,omitempty"`
}

// ScoringInput converts the event into the scorer input.
func (e SubmitPromptEvent) ScoringInput() scoring.Input {
	return scoring.Input{
		Name:                 e.User,
		Prompt:               e.Prompt,
		SystemOutput:         e.SystemOutput,
		ReferenceTranslation: e.ReferenceTranslation,
		SourceText:           e.SourceText,
		SystemPrompt:         e.SystemPrompt,
	}
}

// RealtimeEntry is one row of the broadcast leaderboard.
type RealtimeEntry struct {
	User  string  `json:"user"`
	Score float64 `json:"score"`
}

// NewRealtimeEntries projects submissions into broadcast rows.
func NewRealtimeEntries(submissions []models.Submission) []RealtimeEntry {
	entries := make([]RealtimeEntry, 0, len(submissions))
	for _, submission := range submissions {
		entries = append(entries, RealtimeEntry{User: submission.Name, Score: submission.Score})
	}
	return entries
}

// RealtimeError is sent to the originating client only.
type RealtimeError struct {
	Message string `json:"message"`
	Status  int    `json:"status"`
}
