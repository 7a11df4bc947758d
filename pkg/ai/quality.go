package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const qualityProvider = "quality"

// DefaultQualityModel is the checkpoint requested from the quality server.
const DefaultQualityModel = "Unbabel/wmt22-comet-da"

// QualityConfig configures the quality-estimation client.
type QualityConfig struct {
	URL        string
	Model      string
	Timeout    time.Duration
	LoadWait   time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// QualityClient talks to a quality-estimation inference server. The model is
// loaded once when the client is constructed and reused for every request.
type QualityClient struct {
	cfg    QualityConfig
	http   *http.Client
	tracer trace.Tracer
	logger zerolog.Logger
}

type qualityLoadRequest struct {
	Model string `json:"model"`
}

type qualityLoadResponse struct {
	Model string `json:"model"`
	Ready bool   `json:"ready"`
}

type qualitySample struct {
	Source     string `json:"src"`
	Hypothesis string `json:"mt"`
	Reference  string `json:"ref"`
}

type qualityPredictRequest struct {
	Model string          `json:"model"`
	Data  []qualitySample `json:"data"`
}

type qualityPredictResponse struct {
	Scores      []float64 `json:"scores"`
	SystemScore float64   `json:"system_score"`
}

// NewQualityClient constructs the client and asks the server to load the model.
// Any failure here is a startup failure.
func NewQualityClient(ctx context.Context, cfg QualityConfig) (*QualityClient, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("quality server url is required")
	}
	cfg.URL = strings.TrimRight(cfg.URL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultQualityModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultUpstreamTimeout
	}
	if cfg.LoadWait <= 0 {
		cfg.LoadWait = 5 * time.Minute
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{}
	}

	qc := &QualityClient{
		cfg:    cfg,
		http:   client,
		tracer: otel.Tracer("github.com/noah-isme/prompt-arena/pkg/ai/quality"),
		logger: cfg.Logger.With().Str("component", "quality_client").Logger(),
	}

	if err := qc.load(ctx); err != nil {
		return nil, err
	}
	return qc, nil
}

// Model returns the loaded checkpoint name.
func (c *QualityClient) Model() string {
	return c.cfg.Model
}

func (c *QualityClient) load(parent context.Context) error {
	ctx, cancel := context.WithTimeout(parent, c.cfg.LoadWait)
	defer cancel()

	var out qualityLoadResponse
	status, err := c.post(ctx, "/load", qualityLoadRequest{Model: c.cfg.Model}, &out)
	if err != nil {
		return fmt.Errorf("load quality model %s: %w", c.cfg.Model, err)
	}
	if status != http.StatusOK || !out.Ready {
		return fmt.Errorf("load quality model %s: server not ready (status %d)", c.cfg.Model, status)
	}

	c.logger.Info().Str("model", c.cfg.Model).Msg("quality model loaded")
	return nil
}

// Predict scores a single triple and returns the first element of the batch output.
func (c *QualityClient) Predict(parent context.Context, req QualityRequest) (float64, error) {
	const op = "quality predict"

	ctx, span := c.tracer.Start(parent, "quality.predict", trace.WithAttributes(
		attribute.String("model", c.cfg.Model),
	))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var out qualityPredictResponse
	start := time.Now()
	status, err := c.post(ctx, "/predict", qualityPredictRequest{
		Model: c.cfg.Model,
		Data: []qualitySample{{
			Source:     req.Source,
			Hypothesis: req.Hypothesis,
			Reference:  req.Reference,
		}},
	}, &out)
	upstreamDuration.WithLabelValues(qualityProvider).Observe(time.Since(start).Seconds())

	switch {
	case err != nil && IsTransportError(err):
		err = NetworkError(op, err)
	case err != nil:
		err = EvaluationError(op, err)
	case status != http.StatusOK:
		err = &Error{Kind: KindEvaluation, Op: op, StatusCode: status, Message: "quality server rejected request"}
	case len(out.Scores) == 0:
		err = EvaluationError(op, errors.New("quality server returned no scores"))
	}
	if err != nil {
		recordFailure(qualityProvider, err)
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return 0, err
	}

	return out.Scores[0], nil
}

func (c *QualityClient) post(ctx context.Context, path string, in, out interface{}) (int, error) {
	body, err := json.Marshal(in)
	if err != nil {
		return 0, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL+path, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxUpstreamBodyBytes))
	if err != nil {
		return resp.StatusCode, err
	}
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return resp.StatusCode, fmt.Errorf("decode %s response: %w", path, err)
	}
	return resp.StatusCode, nil
}
