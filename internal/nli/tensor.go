package nli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ppiankov/claimgate/internal/model"
	"go.uber.org/zap"
)

// TensorBackend talks to a tensor-runtime model server over HTTP. The
// server owns the weights and the GPU/CPU placement; the device setting is
// forwarded so one server can host several placements.
type TensorBackend struct {
	baseURL    string
	httpClient *http.Client
	config     model.BackendConfig
	batcher    batcher
	logger     *zap.Logger
}

// Tensor runtime API structures
type tensorHealthResponse struct {
	Status      string `json:"status"`
	ModelLoaded bool   `json:"model_loaded"`
	Model       string `json:"model"`
	Device      string `json:"device"`
}

type tensorScoreRequest struct {
	Model     string `json:"model,omitempty"`
	Device    string `json:"device"`
	MaxLength int    `json:"max_length"`
	Pairs     []Pair `json:"pairs"`
}

type tensorScoreResponse struct {
	Scores []model.RelationScore `json:"scores"`
}

type tensorError struct {
	Error string `json:"error"`
}

// NewTensorBackend connects to the model server and waits for it to report
// the model as loaded
func NewTensorBackend(ctx context.Context, cfg model.BackendConfig, logger *zap.Logger) (*TensorBackend, error) {
	if cfg.Endpoint == "" {
		return nil, configErr(KindTensor, "endpoint is required")
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	b := &TensorBackend{
		baseURL: strings.TrimSuffix(cfg.Endpoint, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				Proxy: http.ProxyFromEnvironment,
			},
		},
		config:  cfg,
		batcher: newBatcher(KindTensor, cfg, logger),
		logger:  logger,
	}

	health, err := b.health(ctx)
	if err != nil {
		return nil, &ConfigError{Backend: KindTensor, Err: fmt.Errorf("%w: %v", ErrRuntimeUnavailable, err)}
	}
	if !health.ModelLoaded {
		return nil, &ConfigError{Backend: KindTensor, Err: fmt.Errorf("%w: server at %s has no model loaded", ErrModelNotFound, b.baseURL)}
	}
	if cfg.Model != "" && health.Model != "" && health.Model != cfg.Model {
		return nil, &ConfigError{Backend: KindTensor, Err: fmt.Errorf("%w: server serves %q, configured %q", ErrModelNotFound, health.Model, cfg.Model)}
	}

	logger.Info("tensor backend ready",
		zap.String("endpoint", b.baseURL),
		zap.String("model", health.Model),
		zap.String("device", health.Device),
	)

	return b, nil
}

// health queries the server's readiness endpoint
func (b *TensorBackend) health(ctx context.Context) (*tensorHealthResponse, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/health", nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("connect to %s: %w", b.baseURL, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("health check returned HTTP %d", resp.StatusCode)
	}

	var health tensorHealthResponse
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, fmt.Errorf("decode health: %w", err)
	}
	return &health, nil
}

// Score implements Backend
func (b *TensorBackend) Score(ctx context.Context, pairs []Pair) ([]model.RelationScore, error) {
	return b.batcher.run(ctx, pairs, b.scoreBatch)
}

// scoreBatch sends one batch to the server
func (b *TensorBackend) scoreBatch(ctx context.Context, batch []Pair) ([]model.RelationScore, error) {
	body, err := json.Marshal(tensorScoreRequest{
		Model:     b.config.Model,
		Device:    b.config.Device,
		MaxLength: b.config.MaxSeqLength,
		Pairs:     batch,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/v1/entailment", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := b.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer func() { _ = httpResp.Body.Close() }()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode != http.StatusOK {
		var apiErr tensorError
		if err := json.Unmarshal(respBody, &apiErr); err == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, apiErr.Error)
		}
		return nil, fmt.Errorf("API error (%d): %s", httpResp.StatusCode, string(respBody))
	}

	var resp tensorScoreResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	return resp.Scores, nil
}
