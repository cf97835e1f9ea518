package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	cfgPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return cfgPath
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "logLevel: debug\n"))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "3002" {
		t.Fatalf("port = %q, want 3002", cfg.Port)
	}
	if cfg.PublicURL != "http://localhost:3002" {
		t.Fatalf("publicURL = %q", cfg.PublicURL)
	}
	if cfg.DataDir != "uploads" || cfg.StoreDriver != DriverFile || cfg.ImageDriver != DriverFile {
		t.Fatalf("unexpected storage defaults: %+v", cfg)
	}
	if cfg.MaxUploadBytes != 10<<20 {
		t.Fatalf("maxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.GeminiModel != "gemini-2.5-flash" || cfg.APIKeyFile != ".env.local" {
		t.Fatalf("unexpected extraction defaults: %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("logLevel = %q", cfg.LogLevel)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "8080")
	t.Setenv("CARDS_PUBLIC_URL", "https://cards.example.com/")
	t.Setenv("CARDS_ALLOWED_EXTENSIONS", ".png, .jpg,,")
	t.Setenv("CARDS_MAX_UPLOAD_BYTES", "2048")
	t.Setenv("API_KEY", "from-api-key")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load(writeConfig(t, `
port: "3002"
geminiApiKey: "from-file"
dataDir: "/var/lib/cards"
`))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.Port != "8080" {
		t.Fatalf("port = %q, want 8080", cfg.Port)
	}
	if cfg.PublicURL != "https://cards.example.com" {
		t.Fatalf("publicURL = %q", cfg.PublicURL)
	}
	if len(cfg.AllowedExtensions) != 2 || cfg.AllowedExtensions[1] != ".jpg" {
		t.Fatalf("allowedExtensions = %v", cfg.AllowedExtensions)
	}
	if cfg.MaxUploadBytes != 2048 {
		t.Fatalf("maxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.GeminiAPIKey != "from-api-key" {
		t.Fatalf("geminiApiKey = %q", cfg.GeminiAPIKey)
	}
	if cfg.DataDir != "/var/lib/cards" || cfg.RedisAddr != "localhost:6379" {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestGeminiKeyEnvPrecedence(t *testing.T) {
	t.Setenv("API_KEY", "legacy")
	t.Setenv("GEMINI_API_KEY", "preferred")
	cfg, err := Load(writeConfig(t, ""))
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.GeminiAPIKey != "preferred" {
		t.Fatalf("geminiApiKey = %q, want preferred", cfg.GeminiAPIKey)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestValidateConfigRejectsIncompleteDrivers(t *testing.T) {
	base := FileConfig{Port: "3002", StoreDriver: DriverFile, ImageDriver: DriverFile, ExtractProvider: ProviderGemini}
	if err := validateConfig(base); err != nil {
		t.Fatalf("base config should be valid: %v", err)
	}

	cases := map[string]func(*FileConfig){
		"postgres without url": func(c *FileConfig) { c.StoreDriver = DriverPostgres },
		"minio without bucket": func(c *FileConfig) {
			c.ImageDriver = DriverMinio
			c.MinioEndpoint = "localhost:9000"
			c.MinioAccessKey = "a"
			c.MinioSecretKey = "b"
		},
		"unknown store":          func(c *FileConfig) { c.StoreDriver = "sqlite" },
		"bad port":               func(c *FileConfig) { c.Port = "http" },
		"ollama without model":   func(c *FileConfig) { c.ExtractProvider = ProviderOllama },
		"openai without baseURL": func(c *FileConfig) { c.ExtractProvider = ProviderOpenAI; c.OpenAIModel = "m" },
	}
	for name, mutate := range cases {
		cfg := base
		mutate(&cfg)
		if err := validateConfig(cfg); err == nil {
			t.Errorf("%s: validateConfig() expected error", name)
		}
	}
}

func TestExampleConfigLoads(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("CARDS_ALLOWED_EXTENSIONS", "")
	cfg, err := Load(filepath.Join("..", "..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("load example config: %v", err)
	}
	if cfg.Port != "3002" || cfg.StoreDriver != DriverFile || cfg.ImageDriver != DriverFile {
		t.Fatalf("unexpected example config: %+v", cfg)
	}
	if len(cfg.AllowedExtensions) == 0 || cfg.AMQPExchange != "bizcards.events" {
		t.Fatalf("example values not loaded: %+v", cfg)
	}
}
