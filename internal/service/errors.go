package service

import (
	"errors"
	"net/http"

	"github.com/noah-isme/prompt-arena/pkg/ai"
)

var statusByKind = map[ai.Kind]int{
	ai.KindValidation:     http.StatusBadRequest,
	ai.KindConfiguration:  http.StatusInternalServerError,
	ai.KindNetwork:        http.StatusBadGateway,
	ai.KindResponseFormat: http.StatusInternalServerError,
	ai.KindEvaluation:     http.StatusInternalServerError,
}

// StatusForError maps a pipeline failure to its HTTP status. Errors without a
// known kind map to 500.
func StatusForError(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if status, ok := statusByKind[ai.KindOf(err)]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// PublicMessage returns the message safe to show a client.
func PublicMessage(err error) string {
	var aiErr *ai.Error
	if errors.As(err, &aiErr) {
		if aiErr.Kind == ai.KindValidation {
			return aiErr.Message
		}
		return aiErr.Error()
	}
	return "internal server error"
}
