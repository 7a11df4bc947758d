package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newSimilarityServer(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer token", r.Header.Get("Authorization"))

		var payload similarityPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		require.Equal(t, "reference", payload.Inputs.SourceSentence)
		require.Equal(t, []string{"candidate"}, payload.Inputs.Sentences)

		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestSimilarityClientReturnsFirstScore(t *testing.T) {
	server := newSimilarityServer(t, http.StatusOK, `[0.875]`)
	client := NewSimilarityClient(SimilarityConfig{URL: server.URL, APIKey: "token"})

	score, err := client.Similarity(context.Background(), SimilarityRequest{Reference: "reference", Candidate: "candidate"})
	require.NoError(t, err)
	require.InDelta(t, 0.875, score, 1e-9)
}

func TestSimilarityClientRequiresCredentialBeforeCalling(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	client := NewSimilarityClient(SimilarityConfig{URL: server.URL})
	_, err := client.Similarity(context.Background(), SimilarityRequest{Reference: "reference", Candidate: "candidate"})
	require.Error(t, err)
	require.Equal(t, KindConfiguration, KindOf(err))
	require.False(t, called)
}

func TestSimilarityClientNormalisesMalformedResponses(t *testing.T) {
	cases := []struct {
		name       string
		status     int
		body       string
		wantStatus int
		contains   string
	}{
		{name: "empty list", status: http.StatusOK, body: `[]`, contains: "no scores"},
		{name: "non numeric", status: http.StatusOK, body: `["high"]`, contains: "not numeric"},
		{name: "object", status: http.StatusOK, body: `{"score":1}`, contains: "not a list"},
		{name: "garbage", status: http.StatusOK, body: `<html>`, contains: "not valid json"},
		{name: "error body", status: http.StatusServiceUnavailable, body: `{"error":"Model is loading"}`, wantStatus: http.StatusServiceUnavailable, contains: "Model is loading"},
		{name: "unparseable error body", status: http.StatusBadGateway, body: `bad gateway`, wantStatus: http.StatusBadGateway, contains: "status 502"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			server := newSimilarityServer(t, tc.status, tc.body)
			client := NewSimilarityClient(SimilarityConfig{URL: server.URL, APIKey: "token"})

			_, err := client.Similarity(context.Background(), SimilarityRequest{Reference: "reference", Candidate: "candidate"})
			require.Error(t, err)
			require.Equal(t, KindResponseFormat, KindOf(err))
			require.Contains(t, err.Error(), tc.contains)
			if tc.wantStatus > 0 {
				require.Equal(t, 1, strings.Count(err.Error(), "status"), err.Error())
			}

			var tagged *Error
			require.ErrorAs(t, err, &tagged)
			require.Equal(t, tc.wantStatus, tagged.StatusCode)
		})
	}
}

func TestSimilarityClientUnreachableIsNetworkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := NewSimilarityClient(SimilarityConfig{URL: url, APIKey: "token"})
	_, err := client.Similarity(context.Background(), SimilarityRequest{Reference: "reference", Candidate: "candidate"})
	require.Error(t, err)
	require.Equal(t, KindNetwork, KindOf(err))
}

func TestSimilarityClientTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewSimilarityClient(SimilarityConfig{URL: server.URL, APIKey: "token", Timeout: 50 * time.Millisecond})
	_, err := client.Similarity(context.Background(), SimilarityRequest{Reference: "reference", Candidate: "candidate"})
	require.Error(t, err)
	require.Equal(t, KindNetwork, KindOf(err))
}
