package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeQualityServer struct {
	loads        atomic.Int32
	predictCode  int
	predictBody  string
	lastPredict  qualityPredictRequest
	loadNotReady bool
}

func (f *fakeQualityServer) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/load", func(w http.ResponseWriter, r *http.Request) {
		f.loads.Add(1)
		var req qualityLoadRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		_ = json.NewEncoder(w).Encode(qualityLoadResponse{Model: req.Model, Ready: !f.loadNotReady})
	})
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&f.lastPredict))
		w.WriteHeader(f.predictCode)
		_, _ = w.Write([]byte(f.predictBody))
	})
	return mux
}

func TestQualityClientLoadsOnceAndPredicts(t *testing.T) {
	fake := &fakeQualityServer{predictCode: http.StatusOK, predictBody: `{"scores":[0.8312],"system_score":0.8312}`}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	client, err := NewQualityClient(context.Background(), QualityConfig{URL: server.URL})
	require.NoError(t, err)
	require.Equal(t, DefaultQualityModel, client.Model())

	for i := 0; i < 2; i++ {
		score, err := client.Predict(context.Background(), QualityRequest{Source: "Bonjour", Hypothesis: "Hello", Reference: "Hi"})
		require.NoError(t, err)
		require.InDelta(t, 0.8312, score, 1e-9)
	}

	require.Equal(t, int32(1), fake.loads.Load())
	require.Len(t, fake.lastPredict.Data, 1)
	require.Equal(t, "Bonjour", fake.lastPredict.Data[0].Source)
	require.Equal(t, "Hello", fake.lastPredict.Data[0].Hypothesis)
	require.Equal(t, "Hi", fake.lastPredict.Data[0].Reference)
}

func TestQualityClientConstructionFailsWhenModelNotReady(t *testing.T) {
	fake := &fakeQualityServer{loadNotReady: true}
	server := httptest.NewServer(fake.handler(t))
	defer server.Close()

	_, err := NewQualityClient(context.Background(), QualityConfig{URL: server.URL})
	require.Error(t, err)

	_, err = NewQualityClient(context.Background(), QualityConfig{})
	require.Error(t, err)
}

func TestQualityClientPredictFailures(t *testing.T) {
	fake := &fakeQualityServer{predictCode: http.StatusInternalServerError, predictBody: `{"detail":"cuda oom"}`}
	server := httptest.NewServer(fake.handler(t))

	client, err := NewQualityClient(context.Background(), QualityConfig{URL: server.URL})
	require.NoError(t, err)

	_, err = client.Predict(context.Background(), QualityRequest{Source: "a", Hypothesis: "b", Reference: "c"})
	require.Error(t, err)
	require.Equal(t, KindEvaluation, KindOf(err))

	fake.predictCode = http.StatusOK
	fake.predictBody = `{"scores":[]}`
	_, err = client.Predict(context.Background(), QualityRequest{Source: "a", Hypothesis: "b", Reference: "c"})
	require.Error(t, err)
	require.Equal(t, KindEvaluation, KindOf(err))

	server.Close()
	_, err = client.Predict(context.Background(), QualityRequest{Source: "a", Hypothesis: "b", Reference: "c"})
	require.Error(t, err)
	require.Equal(t, KindNetwork, KindOf(err))
}
