package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds application configuration. It is loaded once at startup and passed
// to each component; nothing else reads the environment.
type Config struct {
	Server        ServerConfig
	MongoDB       MongoDBConfig
	Redis         RedisConfig
	LLM           LLMConfig
	GitHub        GitHubConfig
	MinIO         MinIOConfig
	Generation    GenerationConfig
	PublicBaseURL string
	LogLevel      string
}

type ServerConfig struct {
	Port         string
	Host         string
	Environment  string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type MongoDBConfig struct {
	URI      string
	Database string
	Timeout  time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns host:port, or "" when Redis is not configured.
func (r RedisConfig) Addr() string {
	if r.Host == "" {
		return ""
	}
	return r.Host + ":" + r.Port
}

// LLMConfig points at an OpenAI-compatible chat completion API.
type LLMConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

type GitHubConfig struct {
	APIURL string
	Token  string
	RPS    float64
	Burst  int
}

type MinIOConfig struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	UseSSL    bool
	Bucket    string
}

// GenerationConfig tunes the cross-replica generation lease.
type GenerationConfig struct {
	LockTTL      time.Duration
	PollInterval time.Duration
}

// LoadConfig loads configuration from environment variables and an optional .env file
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	viper.AutomaticEnv()

	viper.SetDefault("SERVER_PORT", "5001")
	viper.SetDefault("SERVER_HOST", "0.0.0.0")
	viper.SetDefault("SERVER_ENVIRONMENT", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("MONGODB_DATABASE", "github_readmes")
	viper.SetDefault("MONGODB_TIMEOUT", 10)
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("LLM_BASE_URL", "https://api.perplexity.ai/")
	viper.SetDefault("LLM_MODEL", "llama-3.1-8b-instruct")
	viper.SetDefault("LLM_TIMEOUT", 60)
	viper.SetDefault("GITHUB_API_URL", "https://api.github.com")
	viper.SetDefault("GITHUB_RPS", 5)
	viper.SetDefault("GITHUB_BURST", 5)
	viper.SetDefault("PUBLIC_BASE_URL", "https://readme-readyou.vercel.app")
	viper.SetDefault("GENERATION_LOCK_TTL", 90)
	viper.SetDefault("GENERATION_POLL_INTERVAL", 500)
	viper.SetDefault("MINIO_BUCKET", "readme-cards")

	// names used by the original deployment
	_ = viper.BindEnv("LLM_API_KEY", "LLM_API_KEY", "PERPLEXITY_API_KEY")
	_ = viper.BindEnv("PUBLIC_BASE_URL", "PUBLIC_BASE_URL", "NEXT_PUBLIC_BASE_URL")

	cfg := &Config{
		Server: ServerConfig{
			Port:         viper.GetString("SERVER_PORT"),
			Host:         viper.GetString("SERVER_HOST"),
			Environment:  viper.GetString("SERVER_ENVIRONMENT"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 90 * time.Second,
		},
		MongoDB: MongoDBConfig{
			URI:      viper.GetString("MONGODB_URI"),
			Database: viper.GetString("MONGODB_DATABASE"),
			Timeout:  time.Duration(viper.GetInt("MONGODB_TIMEOUT")) * time.Second,
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		LLM: LLMConfig{
			APIKey:  viper.GetString("LLM_API_KEY"),
			BaseURL: viper.GetString("LLM_BASE_URL"),
			Model:   viper.GetString("LLM_MODEL"),
			Timeout: time.Duration(viper.GetInt("LLM_TIMEOUT")) * time.Second,
		},
		GitHub: GitHubConfig{
			APIURL: strings.TrimRight(viper.GetString("GITHUB_API_URL"), "/"),
			Token:  viper.GetString("GITHUB_TOKEN"),
			RPS:    viper.GetFloat64("GITHUB_RPS"),
			Burst:  viper.GetInt("GITHUB_BURST"),
		},
		MinIO: MinIOConfig{
			Endpoint:  viper.GetString("MINIO_ENDPOINT"),
			AccessKey: viper.GetString("MINIO_ACCESS_KEY"),
			SecretKey: viper.GetString("MINIO_SECRET_KEY"),
			UseSSL:    viper.GetBool("MINIO_USE_SSL"),
			Bucket:    viper.GetString("MINIO_BUCKET"),
		},
		Generation: GenerationConfig{
			LockTTL:      time.Duration(viper.GetInt("GENERATION_LOCK_TTL")) * time.Second,
			PollInterval: time.Duration(viper.GetInt("GENERATION_POLL_INTERVAL")) * time.Millisecond,
		},
		PublicBaseURL: strings.TrimRight(viper.GetString("PUBLIC_BASE_URL"), "/"),
		LogLevel:      viper.GetString("LOG_LEVEL"),
	}

	if cfg.LLM.APIKey == "" {
		return nil, fmt.Errorf("environment variable LLM_API_KEY (or PERPLEXITY_API_KEY) is required")
	}
	if cfg.MongoDB.Timeout <= 0 {
		return nil, fmt.Errorf("MONGODB_TIMEOUT must be positive")
	}
	if cfg.LLM.Timeout <= 0 {
		return nil, fmt.Errorf("LLM_TIMEOUT must be a positive number of seconds")
	}
	if cfg.GitHub.RPS <= 0 || cfg.GitHub.Burst <= 0 {
		return nil, fmt.Errorf("GITHUB_RPS and GITHUB_BURST must be positive")
	}
	if cfg.Generation.LockTTL <= 0 || cfg.Generation.PollInterval <= 0 {
		return nil, fmt.Errorf("GENERATION_LOCK_TTL and GENERATION_POLL_INTERVAL must be positive")
	}
	return cfg, nil
}
