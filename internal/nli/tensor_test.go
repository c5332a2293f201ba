package nli

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/ppiankov/claimgate/internal/model"
	"go.uber.org/zap"
)

func newTensorServer(t *testing.T, health tensorHealthResponse, batches *int32) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_ = json.NewEncoder(w).Encode(health)

		case "/v1/entailment":
			if r.Method != http.MethodPost {
				t.Errorf("Expected POST, got %s", r.Method)
			}
			var req tensorScoreRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				t.Errorf("decode request: %v", err)
			}
			if req.Device != "cpu" {
				t.Errorf("Expected device cpu, got %q", req.Device)
			}
			if batches != nil {
				atomic.AddInt32(batches, 1)
			}
			scores := make([]model.RelationScore, len(req.Pairs))
			for i, p := range req.Pairs {
				scores[i] = lexicalScore(p)
			}
			_ = json.NewEncoder(w).Encode(tensorScoreResponse{Scores: scores})

		default:
			http.NotFound(w, r)
		}
	}))
}

func tensorConfig(endpoint string) model.BackendConfig {
	return model.BackendConfig{
		Kind:         KindTensor,
		Endpoint:     endpoint,
		Model:        "nli-deberta",
		Device:       "cpu",
		BatchSize:    2,
		MaxSeqLength: 512,
		Timeout:      5 * time.Second,
		Parallelism:  2,
	}
}

func TestTensorBackend_Score(t *testing.T) {
	var batches int32
	server := newTensorServer(t, tensorHealthResponse{Status: "ok", ModelLoaded: true, Model: "nli-deberta", Device: "cpu"}, &batches)
	defer server.Close()

	backend, err := NewTensorBackend(context.Background(), tensorConfig(server.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	pairs := []Pair{
		{Premise: "The sky is blue.", Hypothesis: "The sky is blue."},
		{Premise: "The sky is blue.", Hypothesis: "The sky is not blue."},
		{Premise: "Grass is green.", Hypothesis: "Grass is green."},
		{Premise: "Grass is green.", Hypothesis: "Snow is black."},
		{Premise: "Fire is hot.", Hypothesis: "Fire is hot."},
	}

	scores, err := backend.Score(context.Background(), pairs)
	if err != nil {
		t.Fatalf("Score failed: %v", err)
	}
	if len(scores) != len(pairs) {
		t.Fatalf("Expected %d scores, got %d", len(pairs), len(scores))
	}
	if got := atomic.LoadInt32(&batches); got != 3 {
		t.Errorf("Expected 3 batches of size 2, got %d", got)
	}

	// Order must follow input order across concurrent batches
	for _, i := range []int{0, 2, 4} {
		if scores[i].Entailment != 1 {
			t.Errorf("pair %d: expected entailment 1, got %+v", i, scores[i])
		}
	}
	if scores[1].Contradiction < 0.5 {
		t.Errorf("pair 1: expected contradiction, got %+v", scores[1])
	}
}

func TestTensorBackend_ModelNotLoaded(t *testing.T) {
	server := newTensorServer(t, tensorHealthResponse{Status: "starting", ModelLoaded: false}, nil)
	defer server.Close()

	_, err := NewTensorBackend(context.Background(), tensorConfig(server.URL), zap.NewNop())
	if !errors.Is(err, ErrModelNotFound) {
		t.Fatalf("Expected ErrModelNotFound, got %v", err)
	}
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) || cfgErr.Backend != KindTensor {
		t.Errorf("Expected tensor ConfigError, got %v", err)
	}
}

func TestTensorBackend_ModelMismatch(t *testing.T) {
	server := newTensorServer(t, tensorHealthResponse{Status: "ok", ModelLoaded: true, Model: "other-model"}, nil)
	defer server.Close()

	_, err := NewTensorBackend(context.Background(), tensorConfig(server.URL), zap.NewNop())
	if !errors.Is(err, ErrModelNotFound) {
		t.Errorf("Expected ErrModelNotFound, got %v", err)
	}
}

func TestTensorBackend_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	_, err := NewTensorBackend(context.Background(), tensorConfig(server.URL), zap.NewNop())
	if !errors.Is(err, ErrRuntimeUnavailable) {
		t.Errorf("Expected ErrRuntimeUnavailable, got %v", err)
	}
}

func TestTensorBackend_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			_ = json.NewEncoder(w).Encode(tensorHealthResponse{Status: "ok", ModelLoaded: true})
			return
		}
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": "CUDA out of memory"}`))
	}))
	defer server.Close()

	backend, err := NewTensorBackend(context.Background(), tensorConfig(server.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	_, err = backend.Score(context.Background(), []Pair{{Premise: "a", Hypothesis: "b"}})
	if err == nil {
		t.Fatal("Expected error, got nil")
	}
	if !strings.Contains(err.Error(), "CUDA out of memory") {
		t.Errorf("Expected API error message, got %v", err)
	}
	var cfgErr *ConfigError
	if errors.As(err, &cfgErr) {
		t.Error("Inference failure must not be reported as a configuration error")
	}
}

func TestTensorBackend_ShortResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/health" {
			_ = json.NewEncoder(w).Encode(tensorHealthResponse{Status: "ok", ModelLoaded: true})
			return
		}
		_ = json.NewEncoder(w).Encode(tensorScoreResponse{Scores: []model.RelationScore{{Entailment: 1}}})
	}))
	defer server.Close()

	backend, err := NewTensorBackend(context.Background(), tensorConfig(server.URL), zap.NewNop())
	if err != nil {
		t.Fatalf("Failed to create backend: %v", err)
	}

	_, err = backend.Score(context.Background(), []Pair{{Premise: "a", Hypothesis: "b"}, {Premise: "c", Hypothesis: "d"}})
	if err == nil {
		t.Error("Expected error for score count mismatch")
	}
}
