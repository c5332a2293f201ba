package model

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the complete claimgate configuration. It is read once when the
// backend is constructed; changing it requires building a new pipeline.
type Config struct {
	Backend     BackendConfig     `yaml:"backend" mapstructure:"backend"`
	Thresholds  ThresholdConfig   `yaml:"thresholds" mapstructure:"thresholds"`
	Chunking    ChunkingConfig    `yaml:"chunking" mapstructure:"chunking"`
	Heuristics  HeuristicConfig   `yaml:"heuristics" mapstructure:"heuristics"`
	Cache       CacheConfig       `yaml:"cache" mapstructure:"cache"`
	Audit       AuditConfig       `yaml:"audit" mapstructure:"audit"`
	Concurrency ConcurrencyConfig `yaml:"concurrency" mapstructure:"concurrency"`
	Output      OutputConfig      `yaml:"output" mapstructure:"output"`
}

// BackendConfig selects and tunes the entailment backend
type BackendConfig struct {
	Kind               string        `yaml:"kind" mapstructure:"kind" validate:"oneof=tensor graph judge lexical"` // tensor, graph, judge, lexical
	Device             string        `yaml:"device" mapstructure:"device" validate:"device"`                       // auto, cpu, cuda, cuda:N, mps
	Endpoint           string        `yaml:"endpoint,omitempty" mapstructure:"endpoint"`                           // HTTP base URL or gRPC target
	Model              string        `yaml:"model,omitempty" mapstructure:"model"`                                 // Model identifier served by the runtime
	BatchSize          int           `yaml:"batch_size" mapstructure:"batch_size" validate:"gte=1,lte=1024"`       // Pairs per backend request (fixed)
	MaxSeqLength       int           `yaml:"max_seq_length" mapstructure:"max_seq_length" validate:"gte=16"`       // Max tokens the model accepts
	QuantizedModelPath string        `yaml:"quantized_model_path,omitempty" mapstructure:"quantized_model_path"`   // Graph runtime only
	ExecutionProviders []string      `yaml:"execution_providers,omitempty" mapstructure:"execution_providers"`     // Graph runtime only
	APIKey             string        `yaml:"api_key,omitempty" mapstructure:"api_key"`                             // Judge backend only
	Timeout            time.Duration `yaml:"timeout" mapstructure:"timeout" validate:"gte=0"`                      // Per-request timeout
	RequestsPerSecond  float64       `yaml:"requests_per_second" mapstructure:"requests_per_second" validate:"gte=0"`
	Burst              int           `yaml:"burst" mapstructure:"burst" validate:"gte=0"`
	Parallelism        int           `yaml:"parallelism" mapstructure:"parallelism" validate:"gte=1,lte=64"` // Concurrent batch requests per call
}

// ThresholdConfig holds the fixed decision thresholds
type ThresholdConfig struct {
	Entailment      float64 `yaml:"entailment" mapstructure:"entailment" validate:"gte=0,lte=1"`
	Contradiction   float64 `yaml:"contradiction" mapstructure:"contradiction" validate:"gte=0,lte=1"`
	ConfidenceBlend float64 `yaml:"confidence_blend" mapstructure:"confidence_blend" validate:"gte=0,lte=1"` // Weight of entailment in revised confidence
}

// ChunkingConfig controls premise windowing for long support texts
type ChunkingConfig struct {
	Enabled       bool   `yaml:"enabled" mapstructure:"enabled"`
	ChunkTokens   int    `yaml:"chunk_tokens" mapstructure:"chunk_tokens" validate:"gte=8"`
	OverlapTokens int    `yaml:"overlap_tokens" mapstructure:"overlap_tokens" validate:"gte=0,ltfield=ChunkTokens"`
	Aggregation   string `yaml:"aggregation" mapstructure:"aggregation" validate:"oneof=max mean median"`
}

// HeuristicConfig holds the structural gate limits
type HeuristicConfig struct {
	MinTokens      int     `yaml:"min_tokens" mapstructure:"min_tokens" validate:"gte=1"`
	GroundingFloor float64 `yaml:"grounding_floor" mapstructure:"grounding_floor" validate:"gte=0,lte=1"`
}

// CacheConfig controls the relation score cache
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	MaxEntries int    `yaml:"max_entries" mapstructure:"max_entries" validate:"gte=0"` // 0 = unbounded
	Dir        string `yaml:"dir,omitempty" mapstructure:"dir"`                        // Persistent layer; empty = memory only
}

// AuditConfig controls the rejection audit log
type AuditConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Path    string `yaml:"path,omitempty" mapstructure:"path"`
}

// ConcurrencyConfig controls batch-level parallelism
type ConcurrencyConfig struct {
	Workers int `yaml:"workers" mapstructure:"workers" validate:"gte=1"`
}

// OutputConfig controls rendering
type OutputConfig struct {
	Verbose bool `yaml:"verbose" mapstructure:"verbose"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			Kind:              "lexical",
			Device:            "auto",
			BatchSize:         16,
			MaxSeqLength:      512,
			Timeout:           30 * time.Second,
			RequestsPerSecond: 0, // Unlimited
			Burst:             1,
			Parallelism:       2,
		},
		Thresholds: ThresholdConfig{
			Entailment:      0.5,
			Contradiction:   0.5,
			ConfidenceBlend: 0.5,
		},
		Chunking: ChunkingConfig{
			Enabled:       true,
			ChunkTokens:   400,
			OverlapTokens: 64,
			Aggregation:   "max",
		},
		Heuristics: HeuristicConfig{
			MinTokens:      5,
			GroundingFloor: 0.4,
		},
		Cache: CacheConfig{
			Enabled: true,
		},
		Concurrency: ConcurrencyConfig{
			Workers: 4,
		},
	}
}

var devicePattern = regexp.MustCompile(`^(auto|cpu|mps|cuda(:[0-9]+)?)$`)

var configValidate = newConfigValidator()

func newConfigValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("device", func(fl validator.FieldLevel) bool {
		return devicePattern.MatchString(fl.Field().String())
	})
	return v
}

// Validate checks every field and returns all violations joined
func (c *Config) Validate() error {
	var errs []error

	if err := configValidate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("validate config: %w", err)
		}
		for _, fe := range verrs {
			errs = append(errs, fmt.Errorf("%s: failed %q (value %v)", fieldPath(fe.Namespace()), fe.Tag(), fe.Value()))
		}
	}

	if c.Chunking.Enabled && c.Chunking.ChunkTokens > c.Backend.MaxSeqLength {
		errs = append(errs, fmt.Errorf("chunking.chunk_tokens: %d exceeds backend.max_seq_length %d",
			c.Chunking.ChunkTokens, c.Backend.MaxSeqLength))
	}

	return errors.Join(errs...)
}

// fieldPath turns "Config.Backend.BatchSize" into "backend.batchsize"
func fieldPath(namespace string) string {
	parts := strings.Split(namespace, ".")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.ToLower(strings.Join(parts, "."))
}
