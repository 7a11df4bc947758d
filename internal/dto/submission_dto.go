package dto

import (
	"github.com/noah-isme/prompt-arena/internal/models"
	"github.com/noah-isme/prompt-arena/internal/scoring"
)

// SubmitRequest is the body accepted by POST /submit. Which fields are
// required depends on the active scoring mode.
type SubmitRequest struct {
	Name                 string `json:"name"`
	Prompt               string `json:"prompt"`
	SystemOutput         string `json:"system_output"`
	ReferenceTranslation string `json:"reference_translation"`
	SourceText           string `json:"source_text"`
	SystemPrompt         string `json:"system_prompt"`
}

// ScoringInput converts the request into the scorer input.
func (r SubmitRequest) ScoringInput() scoring.Input {
	return scoring.Input{
		Name:                 r.Name,
		Prompt:               r.Prompt,
		SystemOutput:         r.SystemOutput,
		ReferenceTranslation: r.ReferenceTranslation,
		SourceText:           r.SourceText,
		SystemPrompt:         r.SystemPrompt,
	}
}

// SubmitResponse is returned after a submission has been scored and stored.
type SubmitResponse struct {
	Message   string  `json:"message"`
	Score     float64 `json:"score"`
	LLMOutput string  `json:"llm_output,omitempty"`
}

// LeaderboardEntry is one ranked row. Mode specific fields are omitted when empty.
type LeaderboardEntry struct {
	Name         string  `json:"name"`
	Score        float64 `json:"score"`
	SystemOutput string  `json:"system_output,omitempty"`
	SystemPrompt string  `json:"system_prompt,omitempty"`
	LLMOutput    string  `json:"llm_output,omitempty"`
}

// NewLeaderboardEntry projects a submission for the given mode.
func NewLeaderboardEntry(mode scoring.Mode, submission models.Submission) LeaderboardEntry {
	entry := LeaderboardEntry{Name: submission.Name, Score: submission.Score}
	switch mode {
	case scoring.ModeSimilarity, scoring.ModeQuality:
		entry.SystemOutput = submission.SystemOutput
	case scoring.ModePromptSimilarity:
		entry.SystemPrompt = submission.SystemPrompt
		entry.LLMOutput = submission.LLMOutput
	}
	return entry
}

// NewLeaderboardEntries projects a slice of submissions.
func NewLeaderboardEntries(mode scoring.Mode, submissions []models.Submission) []LeaderboardEntry {
	entries := make([]LeaderboardEntry, 0, len(submissions))
	for _, submission := range submissions {
		entries = append(entries, NewLeaderboardEntry(mode, submission))
	}
	return entries
}

// ChallengeResponse describes the active challenge without revealing its reference.
type ChallengeResponse struct {
	Mode         string `json:"mode"`
	Title        string `json:"title,omitempty"`
	Description  string `json:"description,omitempty"`
	SourceText   string `json:"source_text,omitempty"`
	SystemPrompt string `json:"system_prompt,omitempty"`
}
