package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	StoreBackendSQLite   = "sqlite"
	StoreBackendSupabase = "supabase"
)

type Config struct {
	GeminiAPIKey        string
	GeminiPrimaryModel  string
	GeminiFallbackModel string
	GeminiTitleModel    string

	DeepSeekAPIKey  string
	DeepSeekBaseURL string
	DeepSeekModel   string

	StoreBackend       string
	DatabaseURL        string
	FilesDir           string
	SupabaseURL        string
	SupabaseServiceKey string
	SupabaseBucket     string

	JWTSecret string
	HTTPPort  string
	LogLevel  string

	// Upper bound for a single upstream LLM call.
	LLMTimeout time.Duration
}

var AppConfig Config

// LoadConfig reads the environment (and a .env file when present) into AppConfig.
func LoadConfig() error {
	// A missing .env is fine; the environment may already carry everything.
	_ = godotenv.Load()

	cfg := Config{
		GeminiAPIKey:        getEnv("GEMINI_API_KEY", ""),
		GeminiPrimaryModel:  getEnv("GEMINI_PRIMARY_MODEL", "gemini-1.5-pro-latest"),
		GeminiFallbackModel: getEnv("GEMINI_FALLBACK_MODEL", "gemini-pro"),
		GeminiTitleModel:    getEnv("GEMINI_TITLE_MODEL", "gemini-1.5-flash-latest"),

		DeepSeekAPIKey:  getEnv("DEEPSEEK_API_KEY", ""),
		DeepSeekBaseURL: getEnv("DEEPSEEK_BASE_URL", "https://api.deepseek.com/v1"),
		DeepSeekModel:   getEnv("DEEPSEEK_MODEL", "deepseek-chat"),

		StoreBackend:       getEnv("STORE_BACKEND", StoreBackendSQLite),
		DatabaseURL:        getEnv("DATABASE_URL", "chartbot.db"),
		FilesDir:           getEnv("FILES_DIR", "data_files"),
		SupabaseURL:        getEnv("SUPABASE_URL", ""),
		SupabaseServiceKey: getEnv("SUPABASE_SERVICE_KEY", ""),
		SupabaseBucket:     getEnv("SUPABASE_BUCKET", "data_files"),

		JWTSecret: getEnv("JWT_SECRET", ""),
		HTTPPort:  getEnv("HTTP_PORT", "8080"),
		LogLevel:  getEnv("LOG_LEVEL", "INFO"),

		LLMTimeout: time.Duration(getEnvAsInt("LLM_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	if err := cfg.Validate(); err != nil {
		return err
	}
	AppConfig = cfg
	return nil
}

// Validate reports the first missing or inconsistent setting.
func (c Config) Validate() error {
	if c.GeminiAPIKey == "" {
		return fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET environment variable is required")
	}
	switch c.StoreBackend {
	case StoreBackendSQLite:
	case StoreBackendSupabase:
		if c.SupabaseURL == "" || c.SupabaseServiceKey == "" {
			return fmt.Errorf("SUPABASE_URL and SUPABASE_SERVICE_KEY are required when STORE_BACKEND=supabase")
		}
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q (want %q or %q)", c.StoreBackend, StoreBackendSQLite, StoreBackendSupabase)
	}
	return nil
}

func getEnv(key string, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}
