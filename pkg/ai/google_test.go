package ai

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/genai"
)

func TestClassifyGoogleErrorKeepsUpstreamStatus(t *testing.T) {
	err := classifyGoogleError("google generate", genai.APIError{Code: http.StatusTooManyRequests, Message: "quota exceeded", Status: "RESOURCE_EXHAUSTED"})

	var tagged *Error
	require.ErrorAs(t, err, &tagged)
	require.Equal(t, KindResponseFormat, tagged.Kind)
	require.Equal(t, http.StatusTooManyRequests, tagged.StatusCode)
	require.Equal(t, "quota exceeded", tagged.Message)
	require.Equal(t, "google generate: quota exceeded (status 429)", err.Error())

	wrapped := classifyGoogleError("google generate", fmt.Errorf("generate: %w", genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"}))
	require.ErrorAs(t, wrapped, &tagged)
	require.Equal(t, http.StatusBadRequest, tagged.StatusCode)
	require.Equal(t, "INVALID_ARGUMENT", tagged.Message)
}

func TestClassifyGoogleErrorFallbacks(t *testing.T) {
	err := classifyGoogleError("google generate", &googleapi.Error{Code: http.StatusForbidden, Message: "key revoked"})
	var tagged *Error
	require.ErrorAs(t, err, &tagged)
	require.Equal(t, http.StatusForbidden, tagged.StatusCode)

	err = classifyGoogleError("google generate", errors.New("odd failure"))
	require.Equal(t, KindResponseFormat, KindOf(err))
	require.ErrorAs(t, err, &tagged)
	require.Zero(t, tagged.StatusCode)
}
