package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/kailas-cloud/vexplain/internal/domain"
)

// Config holds the vexplain configuration.
type Config struct {
	Logging    LoggingConfig    `yaml:"logging"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Cache      CacheConfig      `yaml:"cache"`
	Embedding  EmbeddingConfig  `yaml:"embedding"`
	Generation GenerationConfig `yaml:"generation"`
	Index      IndexConfig      `yaml:"index"`
	Knowledge  KnowledgeConfig  `yaml:"knowledge"`
	Confidence ConfidenceConfig `yaml:"confidence"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings for the serve command.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CacheConfig holds the valkey embedding cache settings.
// An empty Addrs list disables the cache.
type CacheConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	TTLSec           int      `yaml:"ttl_sec"` // 0 = no expiry
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool { return len(c.Addrs) > 0 }

// Embedding providers.
const (
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderHugot   = "hugot"
	ProviderHashing = "hashing"
	ProviderNone    = "none"
)

// EmbeddingConfig holds text embedder settings.
type EmbeddingConfig struct {
	Provider    string `yaml:"provider"` // openai, gemini, hugot, hashing
	Model       string `yaml:"model"`
	Dimensions  int    `yaml:"dimensions"`
	APIKey      string `yaml:"api_key"`
	BaseURL     string `yaml:"base_url"`
	Project     string `yaml:"project"`  // gemini via Vertex AI
	Location    string `yaml:"location"` // gemini via Vertex AI
	BatchSize   int    `yaml:"batch_size"`
	Concurrency int    `yaml:"concurrency"`
	TimeoutSec  int    `yaml:"timeout_sec"`
	ModelDir    string `yaml:"model_dir"` // hugot model cache
	Instruction string `yaml:"instruction"`
}

// GenerationConfig holds text generator settings.
type GenerationConfig struct {
	Provider               string   `yaml:"provider"` // none, openai, gemini
	Model                  string   `yaml:"model"`
	APIKey                 string   `yaml:"api_key"`
	BaseURL                string   `yaml:"base_url"`
	Project                string   `yaml:"project"`
	Location               string   `yaml:"location"`
	MaxTokens              int      `yaml:"max_tokens"`
	Temperature            *float32 `yaml:"temperature"`
	StopSequences          []string `yaml:"stop_sequences"`
	TimeoutSec             int      `yaml:"timeout_sec"`
	MaxConsecutiveFailures int      `yaml:"max_consecutive_failures"`
	// CooldownSec is how long a tripped generator stays off before one trial
	// call. 0 keeps it off until restart.
	CooldownSec            *int     `yaml:"cooldown_sec"`
}

// IndexConfig holds index location and retrieval settings.
type IndexConfig struct {
	Dir              string   `yaml:"dir"`
	TopK             int      `yaml:"top_k"`
	MinSimilarity    *float64 `yaml:"min_similarity"`
	RequiredFields   []string `yaml:"required_fields"`
	ExcludeUncertain bool     `yaml:"exclude_uncertain"`
	MaxVariants      int      `yaml:"max_variants"`
	Concurrency      int      `yaml:"concurrency"`
}

// KnowledgeConfig points at the knowledge record source.
// An empty or missing source falls back to the synthetic knowledge base.
type KnowledgeConfig struct {
	Source string `yaml:"source"`
}

// ConfidenceConfig holds the confidence scoring weights.
type ConfidenceConfig struct {
	Base                       *float64 `yaml:"base"`
	SimilarityWeight           *float64 `yaml:"similarity_weight"`
	ConsequenceBonus           *float64 `yaml:"consequence_bonus"`
	SignificanceBonus          *float64 `yaml:"significance_bonus"`
	HighConfidenceConsequences []string `yaml:"high_confidence_consequences"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	return LoadFile(findConfigPath(env))
}

// LoadFile reads configuration from an explicit YAML file path.
func LoadFile(configPath string) (Config, error) {
	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}
	return Parse(data)
}

// Parse decodes YAML data, substitutes env variables, applies defaults and validates.
func Parse(data []byte) (Config, error) {
	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// Default returns a validated configuration with every default applied.
// Used when no config file is present.
func Default() Config {
	var cfg Config
	cfg.ApplyDefaults()
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// Defaults reproducing the reference pipeline behaviour.
var (
	DefaultRequiredFields = []string{"gene", "clinical_significance"}
	DefaultStopSequences  = []string{"Human:", "Assistant:", "\n\n"}
	DefaultHighConfidence = []string{
		"stop_gained",
		"frameshift_variant",
		"splice_acceptor_variant",
		"splice_donor_variant",
	}
)

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.Port <= 0 {
		c.HTTP.Port = 8080
	}
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 120
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}

	if c.Cache.ReadinessTimeout <= 0 {
		c.Cache.ReadinessTimeout = 10
	}

	if c.Embedding.Provider == "" {
		c.Embedding.Provider = ProviderHugot
	}
	if c.Embedding.BatchSize <= 0 {
		c.Embedding.BatchSize = 64
	}
	if c.Embedding.Concurrency <= 0 {
		c.Embedding.Concurrency = 4
	}
	if c.Embedding.TimeoutSec <= 0 {
		c.Embedding.TimeoutSec = 30
	}

	if c.Generation.Provider == "" {
		c.Generation.Provider = ProviderNone
	}
	if c.Generation.MaxTokens <= 0 {
		c.Generation.MaxTokens = 300
	}
	if c.Generation.Temperature == nil {
		c.Generation.Temperature = ptr(float32(0.7))
	}
	if c.Generation.StopSequences == nil {
		c.Generation.StopSequences = append([]string(nil), DefaultStopSequences...)
	}
	if c.Generation.TimeoutSec <= 0 {
		c.Generation.TimeoutSec = 30
	}
	if c.Generation.MaxConsecutiveFailures <= 0 {
		c.Generation.MaxConsecutiveFailures = 3
	}
	if c.Generation.CooldownSec == nil {
		c.Generation.CooldownSec = ptr(60)
	}

	if c.Index.Dir == "" {
		c.Index.Dir = "index"
	}
	if c.Index.TopK <= 0 {
		c.Index.TopK = 5
	}
	if c.Index.MinSimilarity == nil {
		c.Index.MinSimilarity = ptr(0.5)
	}
	if c.Index.RequiredFields == nil {
		c.Index.RequiredFields = append([]string(nil), DefaultRequiredFields...)
	}
	if c.Index.MaxVariants <= 0 {
		c.Index.MaxVariants = 100
	}
	if c.Index.Concurrency <= 0 {
		c.Index.Concurrency = 4
	}

	if c.Confidence.Base == nil {
		c.Confidence.Base = ptr(0.5)
	}
	if c.Confidence.SimilarityWeight == nil {
		c.Confidence.SimilarityWeight = ptr(0.3)
	}
	if c.Confidence.ConsequenceBonus == nil {
		c.Confidence.ConsequenceBonus = ptr(0.2)
	}
	if c.Confidence.SignificanceBonus == nil {
		c.Confidence.SignificanceBonus = ptr(0.1)
	}
	if c.Confidence.HighConfidenceConsequences == nil {
		c.Confidence.HighConfidenceConsequences = append([]string(nil), DefaultHighConfidence...)
	}
}

// Validate checks the configuration for correctness.
// Every failure is a domain configuration error naming the offending key.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return domain.NewConfigurationError("http.port",
			fmt.Sprintf("must be between 1 and 65535, got %d", c.HTTP.Port))
	}

	switch c.Embedding.Provider {
	case ProviderHugot, ProviderHashing:
	case ProviderOpenAI:
		if c.Embedding.Model == "" {
			return domain.NewConfigurationError("embedding.model", "required for openai provider")
		}
	case ProviderGemini:
		if c.Embedding.APIKey == "" && c.Embedding.Project == "" {
			return domain.NewConfigurationError("embedding.api_key", "gemini provider needs api_key or project")
		}
	default:
		return domain.NewConfigurationError("embedding.provider",
			fmt.Sprintf("must be one of openai, gemini, hugot, hashing, got %q", c.Embedding.Provider))
	}
	if c.Embedding.Dimensions < 0 {
		return domain.NewConfigurationError("embedding.dimensions", "must not be negative")
	}

	switch c.Generation.Provider {
	case ProviderNone:
	case ProviderOpenAI:
		if c.Generation.Model == "" {
			return domain.NewConfigurationError("generation.model", "required for openai provider")
		}
	case ProviderGemini:
		if c.Generation.APIKey == "" && c.Generation.Project == "" {
			return domain.NewConfigurationError("generation.api_key", "gemini provider needs api_key or project")
		}
	default:
		return domain.NewConfigurationError("generation.provider",
			fmt.Sprintf("must be one of none, openai, gemini, got %q", c.Generation.Provider))
	}
	if t := *c.Generation.Temperature; t < 0 || t > 2 {
		return domain.NewConfigurationError("generation.temperature",
			fmt.Sprintf("must be in [0, 2], got %g", t))
	}

	if cd := *c.Generation.CooldownSec; cd < 0 {
		return domain.NewConfigurationError("generation.cooldown_sec",
			fmt.Sprintf("must be >= 0, got %d", cd))
	}

	if m := *c.Index.MinSimilarity; m < -1 || m > 1 {
		return domain.NewConfigurationError("index.min_similarity",
			fmt.Sprintf("must be in [-1, 1], got %g", m))
	}

	weights := map[string]float64{
		"confidence.base":               *c.Confidence.Base,
		"confidence.similarity_weight":  *c.Confidence.SimilarityWeight,
		"confidence.consequence_bonus":  *c.Confidence.ConsequenceBonus,
		"confidence.significance_bonus": *c.Confidence.SignificanceBonus,
	}
	for name, w := range weights {
		if w < 0 {
			return domain.NewConfigurationError(name, fmt.Sprintf("must not be negative, got %g", w))
		}
	}

	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}

func ptr[T any](v T) *T { return &v }
