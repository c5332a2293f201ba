package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/ppiankov/claimgate/internal/model"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

var envKeyReplacer = strings.NewReplacer(".", "_")

// Keys omitted from the default YAML still need env lookups
var optionalKeys = []string{
	"backend.endpoint",
	"backend.model",
	"backend.quantized_model_path",
	"backend.execution_providers",
	"backend.api_key",
	"cache.dir",
	"audit.path",
}

// flagKeys maps engine flags to config keys
var flagKeys = map[string]string{
	"backend":          "backend.kind",
	"device":           "backend.device",
	"endpoint":         "backend.endpoint",
	"model":            "backend.model",
	"batch-size":       "backend.batch_size",
	"backend-timeout":  "backend.timeout",
	"rps":              "backend.requests_per_second",
	"entailment":       "thresholds.entailment",
	"contradiction":    "thresholds.contradiction",
	"confidence-blend": "thresholds.confidence_blend",
	"cache-dir":        "cache.dir",
	"cache-max":        "cache.max_entries",
	"audit":            "audit.path",
}

var noCache bool

// registerEngineFlags adds the flags shared by verify and batch
func registerEngineFlags(cmd *cobra.Command) {
	d := model.DefaultConfig()
	flags := cmd.PersistentFlags()

	flags.String("backend", d.Backend.Kind, "entailment backend (tensor, graph, judge, lexical)")
	flags.String("device", d.Backend.Device, "inference device (auto, cpu, cuda, cuda:N, mps)")
	flags.String("endpoint", "", "backend endpoint (HTTP base URL or gRPC target)")
	flags.String("model", "", "model identifier")
	flags.Int("batch-size", d.Backend.BatchSize, "pairs per backend request")
	flags.Duration("backend-timeout", d.Backend.Timeout, "per-request backend timeout")
	flags.Float64("rps", d.Backend.RequestsPerSecond, "backend requests per second (0 = unlimited)")
	flags.Float64("entailment", d.Thresholds.Entailment, "minimum entailment score")
	flags.Float64("contradiction", d.Thresholds.Contradiction, "contradiction score that rejects a claim")
	flags.Float64("confidence-blend", d.Thresholds.ConfidenceBlend, "weight of entailment in revised confidence")
	flags.String("cache-dir", "", "persistent score cache directory (default: memory only)")
	flags.Int("cache-max", d.Cache.MaxEntries, "max in-memory cache entries (0 = unbounded)")
	flags.String("audit", "", "SQLite file to record rejections in")
	flags.BoolVar(&noCache, "no-cache", false, "disable the score cache")

	for name, key := range flagKeys {
		_ = viper.BindPFlag(key, flags.Lookup(name))
	}
}

// loadConfig merges defaults, config file, CLAIMGATE_* env vars and flags
func loadConfig() (*model.Config, error) {
	cfg := model.DefaultConfig()

	if err := registerDefaults(cfg); err != nil {
		return nil, err
	}
	for _, key := range optionalKeys {
		_ = viper.BindEnv(key)
	}

	if err := viper.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if noCache {
		cfg.Cache.Enabled = false
	}
	if cfg.Audit.Path != "" {
		cfg.Audit.Enabled = true
	}
	if cfg.Backend.Kind == "judge" && cfg.Backend.APIKey == "" {
		cfg.Backend.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	cfg.Output.Verbose = verbose

	return cfg, nil
}

// registerDefaults feeds the default config to viper key by key so env
// variables can override nested fields during Unmarshal
func registerDefaults(cfg *model.Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal defaults: %w", err)
	}
	var tree map[string]interface{}
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("unmarshal defaults: %w", err)
	}
	setDefaults("", tree)
	return nil
}

func setDefaults(prefix string, tree map[string]interface{}) {
	for k, v := range tree {
		key := k
		if prefix != "" {
			key = prefix + "." + k
		}
		if sub, ok := v.(map[string]interface{}); ok {
			setDefaults(key, sub)
			continue
		}
		viper.SetDefault(key, v)
	}
}
