package ai

import "context"

// GenerateRequest is a single-turn prompt with an optional system instruction.
type GenerateRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string
}

// GenerateResult is the text produced by a generative model.
type GenerateResult struct {
	Text     string
	Model    string
	Provider string
}

// Generator describes a generative model capable of answering a prompt.
type Generator interface {
	Generate(ctx context.Context, req GenerateRequest) (GenerateResult, error)
	CheckCredentials() error
	Provider() string
}

// SimilarityRequest asks for the semantic similarity of a candidate to a reference.
type SimilarityRequest struct {
	Reference string
	Candidate string
}

// QualityRequest is one (source, hypothesis, reference) triple for a
// quality-estimation model.
type QualityRequest struct {
	Source     string
	Hypothesis string
	Reference  string
}
