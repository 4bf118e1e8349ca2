package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RuntimeConfig struct {
	Dev bool
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	APIKey          string        `yaml:"api_key"`
	JWTSecret       string        `yaml:"jwt_secret"`
	SessionTTL      time.Duration `yaml:"session_ttl"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type LogConfig struct {
	Level  string `yaml:"level"`  // trace|debug|info|warn|error
	Format string `yaml:"format"` // json|console
}

type DriveConfig struct {
	AccessToken string `yaml:"access_token"`
	BaseURL     string `yaml:"base_url"`
}

type SpeechConfig struct {
	WhisperURL  string        `yaml:"whisper_url"`
	DiarizerURL string        `yaml:"diarizer_url"`
	Timeout     time.Duration `yaml:"timeout"`
	FFmpegPath  string        `yaml:"ffmpeg_path"`
}

type AIConfig struct {
	GeminiKey string `yaml:"gemini_key"`
	OpenAIKey string `yaml:"openai_key"`
	// Models is the priority list tried in order by the fallback invoker.
	Models []string `yaml:"models"`
	// IdentityModels is the (cheaper) list used for speaker identification.
	IdentityModels []string `yaml:"identity_models"`
	// FallbackOnAnyError widens fallback to every error kind instead of only
	// quota/rate-limit ones.
	FallbackOnAnyError bool `yaml:"fallback_on_any_error"`
	ConcurrentLimit    int  `yaml:"concurrent_limit"`
	// PromptTokenBudget caps transcript size fed into a single prompt.
	PromptTokenBudget int `yaml:"prompt_token_budget"`
}

type NotionConfig struct {
	Token      string        `yaml:"token"`
	DatabaseID string        `yaml:"database_id"`
	BaseURL    string        `yaml:"base_url"`
	Version    string        `yaml:"version"`
	MaxBlocks  int           `yaml:"max_blocks"`
	Timeout    time.Duration `yaml:"timeout"`
}

type PipelineConfig struct {
	Workers    int           `yaml:"workers"`
	ScratchDir string        `yaml:"scratch_dir"`
	JobTTL     time.Duration `yaml:"job_ttl"`
	// JanitorInterval is how often terminal jobs past JobTTL are evicted.
	JanitorInterval time.Duration `yaml:"janitor_interval"`
}

type RedisConfig struct {
	URL      string        `yaml:"url"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	TTL      time.Duration `yaml:"ttl"`
}

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`
	Drive    DriveConfig    `yaml:"drive"`
	Speech   SpeechConfig   `yaml:"speech"`
	AI       AIConfig       `yaml:"ai"`
	Notion   NotionConfig   `yaml:"notion"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Redis    RedisConfig    `yaml:"redis"`

	Runtime RuntimeConfig `yaml:"-"`
}

// LoadConfig reads the YAML config, expands ${ENV_VAR} references and applies
// defaults. Secrets are normally supplied through the environment (a .env
// file is loaded by main before this runs).
func LoadConfig(path string, dev bool) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	expanded := os.Expand(string(b), func(key string) string { return os.Getenv(key) })
	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	// defaults
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.SessionTTL <= 0 {
		cfg.Server.SessionTTL = 30 * time.Minute
	}
	if cfg.Server.ShutdownTimeout <= 0 {
		cfg.Server.ShutdownTimeout = 30 * time.Second
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "json"
	}
	if cfg.Drive.BaseURL == "" {
		cfg.Drive.BaseURL = "https://www.googleapis.com/drive/v3"
	}
	if cfg.Speech.Timeout <= 0 {
		cfg.Speech.Timeout = 10 * time.Minute
	}
	if cfg.Speech.FFmpegPath == "" {
		cfg.Speech.FFmpegPath = "ffmpeg"
	}
	if len(cfg.AI.Models) == 0 {
		cfg.AI.Models = []string{
			"gemini-2.5-pro", "gemini-2.5-flash",
			"gemini-2.0-flash", "gemini-2.0-flash-lite",
		}
	}
	if len(cfg.AI.IdentityModels) == 0 {
		cfg.AI.IdentityModels = []string{"gemini-2.0-flash", "gemini-2.0-flash-lite"}
	}
	if cfg.AI.ConcurrentLimit <= 0 {
		cfg.AI.ConcurrentLimit = 8
	}
	if cfg.AI.PromptTokenBudget <= 0 {
		cfg.AI.PromptTokenBudget = 100_000
	}
	if cfg.Notion.BaseURL == "" {
		cfg.Notion.BaseURL = "https://api.notion.com/v1"
	}
	if cfg.Notion.Version == "" {
		cfg.Notion.Version = "2022-06-28"
	}
	if cfg.Notion.MaxBlocks <= 0 || cfg.Notion.MaxBlocks > 100 {
		cfg.Notion.MaxBlocks = 90
	}
	if cfg.Notion.Timeout <= 0 {
		cfg.Notion.Timeout = 30 * time.Second
	}
	if cfg.Pipeline.Workers <= 0 {
		cfg.Pipeline.Workers = 3
	}
	if cfg.Pipeline.ScratchDir == "" {
		cfg.Pipeline.ScratchDir = os.TempDir()
	}
	if cfg.Pipeline.JobTTL <= 0 {
		cfg.Pipeline.JobTTL = 24 * time.Hour
	}
	if cfg.Pipeline.JanitorInterval <= 0 {
		cfg.Pipeline.JanitorInterval = time.Hour
	}

	// Minimal validation
	if cfg.Drive.AccessToken == "" {
		return nil, errors.New("drive.access_token is required")
	}
	if cfg.Notion.Token == "" || cfg.Notion.DatabaseID == "" {
		return nil, errors.New("notion.token and notion.database_id are required")
	}
	if cfg.AI.GeminiKey == "" && cfg.AI.OpenAIKey == "" {
		return nil, errors.New("at least one of ai.gemini_key or ai.openai_key is required")
	}

	cfg.Runtime.Dev = dev
	return &cfg, nil
}
