package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// ConfigPath is the config file read when neither a path nor CARDS_CONFIG is given.
const ConfigPath = "config.yaml"

const (
	DriverFile     = "file"
	DriverPostgres = "postgres"
	DriverMinio    = "minio"

	ProviderGemini = "gemini"
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
)

// FileConfig represents configuration loaded from YAML.
type FileConfig struct {
	Port                      string   `yaml:"port"`
	LogLevel                  string   `yaml:"logLevel"`
	PublicURL                 string   `yaml:"publicURL"`
	DataDir                   string   `yaml:"dataDir"`
	StoreDriver               string   `yaml:"storeDriver"`
	DatabaseURL               string   `yaml:"databaseURL"`
	ImageDriver               string   `yaml:"imageDriver"`
	MinioEndpoint             string   `yaml:"minioEndpoint"`
	MinioAccessKey            string   `yaml:"minioAccessKey"`
	MinioSecretKey            string   `yaml:"minioSecretKey"`
	MinioBucket               string   `yaml:"minioBucket"`
	MinioUseSSL               bool     `yaml:"minioUseSSL"`
	MaxUploadBytes            int64    `yaml:"maxUploadBytes"`
	AllowedExtensions         []string `yaml:"allowedExtensions"`
	ExtractProvider           string   `yaml:"extractProvider"`
	GeminiAPIKey              string   `yaml:"geminiApiKey"`
	GeminiModel               string   `yaml:"geminiModel"`
	APIKeyFile                string   `yaml:"apiKeyFile"`
	OllamaURL                 string   `yaml:"ollamaURL"`
	OllamaModel               string   `yaml:"ollamaModel"`
	OpenAIBaseURL             string   `yaml:"openaiBaseURL"`
	OpenAIAPIKey              string   `yaml:"openaiApiKey"`
	OpenAIModel               string   `yaml:"openaiModel"`
	RedisAddr                 string   `yaml:"redisAddr"`
	RedisPassword             string   `yaml:"redisPassword"`
	ExtractRateLimitPerMinute int      `yaml:"extractRateLimitPerMinute"`
	TrustedProxyCIDRs         []string `yaml:"trustedProxyCidrs"`
	EventStream               string   `yaml:"eventStream"`
	AMQPURL                   string   `yaml:"amqpURL"`
	AMQPExchange              string   `yaml:"amqpExchange"`
}

// Load reads config from path (defaults to config.yaml). A missing default
// file is not an error; the service then runs on defaults and environment.
func Load(path string) (FileConfig, error) {
	cfg := FileConfig{}
	if path == "" {
		path = ConfigPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == ConfigPath:
	default:
		return cfg, fmt.Errorf("read config: %w", err)
	}
	applyEnv(&cfg)
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *FileConfig) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Port = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("CARDS_PUBLIC_URL"); v != "" {
		cfg.PublicURL = v
	}
	if v := os.Getenv("CARDS_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("CARDS_STORE_DRIVER"); v != "" {
		cfg.StoreDriver = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.DatabaseURL = v
	}
	if v := os.Getenv("CARDS_IMAGE_DRIVER"); v != "" {
		cfg.ImageDriver = v
	}
	if v := os.Getenv("MINIO_ENDPOINT"); v != "" {
		cfg.MinioEndpoint = v
	}
	if v := os.Getenv("MINIO_ACCESS_KEY"); v != "" {
		cfg.MinioAccessKey = v
	}
	if v := os.Getenv("MINIO_SECRET_KEY"); v != "" {
		cfg.MinioSecretKey = v
	}
	if v := os.Getenv("MINIO_BUCKET"); v != "" {
		cfg.MinioBucket = v
	}
	if v := os.Getenv("MINIO_USE_SSL"); v == "true" {
		cfg.MinioUseSSL = true
	}
	if v := os.Getenv("CARDS_MAX_UPLOAD_BYTES"); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			cfg.MaxUploadBytes = n
		}
	}
	if v := os.Getenv("CARDS_ALLOWED_EXTENSIONS"); v != "" {
		cfg.AllowedExtensions = splitCSV(v)
	}
	if v := os.Getenv("CARDS_EXTRACT_PROVIDER"); v != "" {
		cfg.ExtractProvider = v
	}
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	} else if v := os.Getenv("API_KEY"); v != "" {
		cfg.GeminiAPIKey = v
	}
	if v := os.Getenv("GEMINI_MODEL"); v != "" {
		cfg.GeminiModel = v
	}
	if v := os.Getenv("OLLAMA_URL"); v != "" {
		cfg.OllamaURL = v
	}
	if v := os.Getenv("OLLAMA_MODEL"); v != "" {
		cfg.OllamaModel = v
	}
	if v := os.Getenv("OPENAI_BASE_URL"); v != "" {
		cfg.OpenAIBaseURL = v
	}
	if v := os.Getenv("OPENAI_API_KEY"); v != "" {
		cfg.OpenAIAPIKey = v
	}
	if v := os.Getenv("OPENAI_MODEL"); v != "" {
		cfg.OpenAIModel = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		cfg.RedisAddr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		cfg.RedisPassword = v
	}
	if v := os.Getenv("CARDS_EXTRACT_RATE_LIMIT_PER_MINUTE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ExtractRateLimitPerMinute = n
		}
	}
	if v := os.Getenv("TRUSTED_PROXY_CIDRS"); v != "" {
		cfg.TrustedProxyCIDRs = splitCSV(v)
	}
	if v := os.Getenv("AMQP_URL"); v != "" {
		cfg.AMQPURL = v
	}
}

func applyDefaults(cfg *FileConfig) {
	if cfg.Port == "" {
		cfg.Port = "3002"
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.PublicURL == "" {
		cfg.PublicURL = "http://localhost:" + cfg.Port
	}
	cfg.PublicURL = strings.TrimRight(cfg.PublicURL, "/")
	if cfg.DataDir == "" {
		cfg.DataDir = "uploads"
	}
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = DriverFile
	}
	if cfg.ImageDriver == "" {
		cfg.ImageDriver = DriverFile
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = 10 << 20
	}
	if cfg.ExtractProvider == "" {
		cfg.ExtractProvider = ProviderGemini
	}
	if cfg.GeminiModel == "" {
		cfg.GeminiModel = "gemini-2.5-flash"
	}
	if cfg.APIKeyFile == "" {
		cfg.APIKeyFile = ".env.local"
	}
	if cfg.ExtractRateLimitPerMinute <= 0 {
		cfg.ExtractRateLimitPerMinute = 20
	}
}

func validateConfig(cfg FileConfig) error {
	if cfg.Port == "" {
		return errors.New("config: port is required (set in config.yaml or PORT)")
	}
	if n, err := strconv.Atoi(cfg.Port); err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("config: port %q is not a valid TCP port", cfg.Port)
	}
	switch cfg.StoreDriver {
	case DriverFile:
	case DriverPostgres:
		if cfg.DatabaseURL == "" {
			return errors.New("config: databaseURL is required when storeDriver is postgres (set in config.yaml or DATABASE_URL)")
		}
	default:
		return fmt.Errorf("config: unknown storeDriver %q", cfg.StoreDriver)
	}
	switch cfg.ImageDriver {
	case DriverFile:
	case DriverMinio:
		if cfg.MinioEndpoint == "" {
			return errors.New("config: minioEndpoint is required when imageDriver is minio (set in config.yaml)")
		}
		if cfg.MinioAccessKey == "" {
			return errors.New("config: minioAccessKey is required when imageDriver is minio (set in config.yaml)")
		}
		if cfg.MinioSecretKey == "" {
			return errors.New("config: minioSecretKey is required when imageDriver is minio (set in config.yaml)")
		}
		if cfg.MinioBucket == "" {
			return errors.New("config: minioBucket is required when imageDriver is minio (set in config.yaml)")
		}
	default:
		return fmt.Errorf("config: unknown imageDriver %q", cfg.ImageDriver)
	}
	switch cfg.ExtractProvider {
	case ProviderGemini:
	case ProviderOllama:
		if cfg.OllamaModel == "" {
			return errors.New("config: ollamaModel is required when extractProvider is ollama")
		}
	case ProviderOpenAI:
		if cfg.OpenAIBaseURL == "" || cfg.OpenAIModel == "" {
			return errors.New("config: openaiBaseURL and openaiModel are required when extractProvider is openai")
		}
	default:
		return fmt.Errorf("config: unknown extractProvider %q", cfg.ExtractProvider)
	}
	return nil
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
