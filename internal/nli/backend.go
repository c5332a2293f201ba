// Package nli scores (premise, hypothesis) pairs with an entailment model.
//
// A Backend wraps one model runtime behind a single batch operation. The
// Scorer adds premise chunking on top of any Backend; callers never learn
// which concrete runtime is active.
package nli

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ppiankov/claimgate/internal/model"
	"go.uber.org/zap"
)

// Pair is one entailment query: does Premise support Hypothesis?
type Pair struct {
	Premise    string `json:"premise"`
	Hypothesis string `json:"hypothesis"`
}

// Backend scores pairs and returns one RelationScore per pair, in order.
// Implementations batch internally using their fixed configured batch size.
type Backend interface {
	Score(ctx context.Context, pairs []Pair) ([]model.RelationScore, error)
}

var (
	// ErrRuntimeUnavailable means the model runtime cannot be reached or is not installed
	ErrRuntimeUnavailable = errors.New("inference runtime unavailable")

	// ErrModelNotFound means the model weights or artifact are missing
	ErrModelNotFound = errors.New("model artifact not found")
)

// ConfigError is returned when a backend cannot be constructed. It is fatal:
// the caller must fix the configuration and build a new backend.
type ConfigError struct {
	Backend string
	Err     error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s backend: configuration error: %v", e.Backend, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

func configErr(backend string, format string, args ...interface{}) error {
	return &ConfigError{Backend: backend, Err: fmt.Errorf(format, args...)}
}

// NewBackend creates the backend selected by cfg.Kind. Construction may
// load a model and take seconds; do it once per process.
func NewBackend(ctx context.Context, cfg model.BackendConfig, logger *zap.Logger) (Backend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	switch strings.ToLower(cfg.Kind) {
	case KindTensor:
		return NewTensorBackend(ctx, cfg, logger)

	case KindGraph:
		return NewGraphBackend(ctx, cfg, logger)

	case KindJudge:
		return NewJudgeBackend(cfg, logger)

	case KindLexical:
		return NewLexicalBackend(), nil

	default:
		return nil, configErr(cfg.Kind, "unknown backend kind (supported: %s, %s, %s, %s)",
			KindTensor, KindGraph, KindJudge, KindLexical)
	}
}

// Backend kinds accepted in configuration
const (
	KindTensor  = "tensor"
	KindGraph   = "graph"
	KindJudge   = "judge"
	KindLexical = "lexical"
)

// Identity names the model behind a backend configuration. Scores from
// different identities must never share cache entries.
func Identity(cfg model.BackendConfig) string {
	parts := []string{strings.ToLower(cfg.Kind)}
	if cfg.Model != "" {
		parts = append(parts, cfg.Model)
	}
	if cfg.QuantizedModelPath != "" {
		parts = append(parts, "q="+cfg.QuantizedModelPath)
	}
	return strings.Join(parts, "/")
}
