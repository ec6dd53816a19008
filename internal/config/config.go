package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the atena API configuration.
type Config struct {
	HTTP      HTTPConfig      `yaml:"http"`
	Database  DatabaseConfig  `yaml:"database"`
	Vector    VectorConfig    `yaml:"vector"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	LLM       LLMConfig       `yaml:"llm"`
	Retrieval RetrievalConfig `yaml:"retrieval"`
	Stream    StreamConfig    `yaml:"stream"`
	Chat      ChatConfig      `yaml:"chat"`
	Auth      AuthConfig      `yaml:"auth"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// AuthConfig holds API authentication settings.
type AuthConfig struct {
	APIKeys []string `yaml:"api_keys"`
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"` // must exceed the longest stream; 0 disables
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// DatabaseConfig holds conversation store connection settings.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	KeyPrefix        string   `yaml:"key_prefix"`
	SessionTTLHours  int      `yaml:"session_ttl_hours"`
}

// VectorConfig holds vector store (Qdrant) settings.
type VectorConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	APIKey     string `yaml:"api_key"`
	UseTLS     bool   `yaml:"use_tls"`
	Collection string `yaml:"collection"`
}

// EmbeddingConfig holds embedding provider settings.
type EmbeddingConfig struct {
	APIKey              string `yaml:"api_key"`
	BaseURL             string `yaml:"base_url"`
	Model               string `yaml:"model"`
	Dimensions          int    `yaml:"dimensions"`
	QueryInstruction    string `yaml:"query_instruction"`
	DocumentInstruction string `yaml:"document_instruction"`
}

// LLMProviderConfig holds one chat-completion provider. Providers are tried
// in list order; the first that succeeds wins.
type LLMProviderConfig struct {
	Name        string  `yaml:"name"`
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float32 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// LLMConfig holds the ordered provider chain.
type LLMConfig struct {
	Providers []LLMProviderConfig `yaml:"providers"`
}

// RetrievalConfig holds ranking knobs. The boost magnitudes are hand-tuned
// constants preserved as configuration rather than re-derived.
type RetrievalConfig struct {
	TopK           int     `yaml:"top_k"`
	MinScore       float64 `yaml:"min_score"`
	RRFK           int     `yaml:"rrf_k"`
	VectorWeight   float64 `yaml:"vector_weight"`
	LexicalWeight  float64 `yaml:"lexical_weight"`
	TitleBoost     float64 `yaml:"title_boost"`
	CategoryBoost  float64 `yaml:"category_boost"`
	MMRLambda      float64 `yaml:"mmr_lambda"`
	RerankEnabled  bool    `yaml:"rerank_enabled"`
	RerankURL      string  `yaml:"rerank_url"`
	RerankAPIKey   string  `yaml:"rerank_api_key"`
	OriginalWeight float64 `yaml:"rerank_original_weight"`
	RerankWeight   float64 `yaml:"rerank_weight"`
	MaxRerankDocs  int     `yaml:"max_rerank_docs"`
	RelevanceFloor float64 `yaml:"relevance_floor"`
}

// StreamConfig holds streaming orchestration settings.
type StreamConfig struct {
	HeartbeatSec      int `yaml:"heartbeat_sec"`
	FinalizeTimeoutMS int `yaml:"finalize_timeout_ms"`
	EventBuffer       int `yaml:"event_buffer"`
}

// ChatConfig holds conversation settings.
type ChatConfig struct {
	HistoryMaxTurns  int     `yaml:"history_max_turns"`
	MemoryMinScore   float64 `yaml:"memory_min_confidence"`
	MemoryMinAnswer  int     `yaml:"memory_min_answer_len"`
	MinQuestionChars int     `yaml:"min_question_chars"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR} / ${VAR:-default}
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

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.KeyPrefix == "" {
		c.Database.KeyPrefix = "atena:"
	}
	if c.Database.SessionTTLHours <= 0 {
		c.Database.SessionTTLHours = 24 * 30
	}
	if c.Vector.Port <= 0 {
		c.Vector.Port = 6334
	}
	if c.Vector.Collection == "" {
		c.Vector.Collection = "knowledge_base"
	}
	if c.Retrieval.TopK <= 0 {
		c.Retrieval.TopK = 10
	}
	if c.Retrieval.MinScore <= 0 {
		c.Retrieval.MinScore = 0.18
	}
	if c.Retrieval.RRFK <= 0 {
		c.Retrieval.RRFK = 60
	}
	if c.Retrieval.VectorWeight <= 0 {
		c.Retrieval.VectorWeight = 0.7
	}
	if c.Retrieval.LexicalWeight <= 0 {
		c.Retrieval.LexicalWeight = 0.3
	}
	if c.Retrieval.TitleBoost <= 0 {
		c.Retrieval.TitleBoost = 0.8
	}
	if c.Retrieval.CategoryBoost <= 0 {
		c.Retrieval.CategoryBoost = 0.1
	}
	if c.Retrieval.MMRLambda <= 0 {
		c.Retrieval.MMRLambda = 0.7
	}
	if c.Retrieval.MaxRerankDocs <= 0 {
		c.Retrieval.MaxRerankDocs = 20
	}
	if c.Retrieval.OriginalWeight <= 0 {
		c.Retrieval.OriginalWeight = 0.3
	}
	if c.Retrieval.RerankWeight <= 0 {
		c.Retrieval.RerankWeight = 0.7
	}
	if c.Retrieval.RelevanceFloor <= 0 {
		c.Retrieval.RelevanceFloor = 0.35
	}
	if c.Stream.HeartbeatSec <= 0 {
		c.Stream.HeartbeatSec = 15
	}
	if c.Stream.FinalizeTimeoutMS <= 0 {
		c.Stream.FinalizeTimeoutMS = 1000
	}
	if c.Stream.EventBuffer <= 0 {
		c.Stream.EventBuffer = 64
	}
	if c.Chat.HistoryMaxTurns <= 0 {
		c.Chat.HistoryMaxTurns = 8
	}
	if c.Chat.MemoryMinScore <= 0 {
		c.Chat.MemoryMinScore = 0.55
	}
	if c.Chat.MemoryMinAnswer <= 0 {
		c.Chat.MemoryMinAnswer = 40
	}
	if c.Chat.MinQuestionChars <= 0 {
		c.Chat.MinQuestionChars = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if len(c.Database.Addrs) == 0 {
		return fmt.Errorf("database.addrs is required")
	}
	if c.Vector.Host == "" {
		return fmt.Errorf("vector.host is required")
	}
	if len(c.LLM.Providers) == 0 {
		return fmt.Errorf("llm.providers requires at least one provider")
	}
	for i, p := range c.LLM.Providers {
		if p.Name == "" {
			return fmt.Errorf("llm.providers[%d].name is required", i)
		}
		if p.Model == "" {
			return fmt.Errorf("llm.providers[%d].model is required", i)
		}
	}
	if c.Retrieval.MinScore < 0 || c.Retrieval.MinScore > 1 {
		return fmt.Errorf("retrieval.min_score must be between 0 and 1")
	}
	if w := c.Retrieval.VectorWeight + c.Retrieval.LexicalWeight; w <= 0 {
		return fmt.Errorf("retrieval fusion weights must be positive")
	}
	if c.Retrieval.MMRLambda < 0 || c.Retrieval.MMRLambda > 1 {
		return fmt.Errorf("retrieval.mmr_lambda must be between 0 and 1")
	}
	if c.Retrieval.RerankEnabled && c.Retrieval.RerankURL == "" {
		return fmt.Errorf("retrieval.rerank_url is required when rerank_enabled is true")
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
