package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port             string
	DatabaseURL      string
	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURI  string

	// AI providers
	AIProvider    string
	GeminiAPIKey  string
	OllamaBaseURL string
	OllamaModel   string

	// Notification channels
	FirebaseCredentials string
	WhatsAppToken       string
	WhatsAppPhoneID     string

	// Fetch limits
	FetchMaxResults int
	FetchMaxPages   int
	FetchBatchSize  int
	FetchConcurrent int

	// Daily digest scheduler
	SchedulerEnabled  bool
	SchedulerInterval time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	_ = godotenv.Load()

	accessExpiry := 15 * time.Minute
	if exp := os.Getenv("JWT_ACCESS_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			accessExpiry = parsed
		}
	}

	refreshExpiry := 168 * time.Hour // 7 days
	if exp := os.Getenv("JWT_REFRESH_EXPIRY"); exp != "" {
		if parsed, err := time.ParseDuration(exp); err == nil {
			refreshExpiry = parsed
		}
	}

	schedulerInterval := 24 * time.Hour
	if iv := os.Getenv("SCHEDULER_INTERVAL"); iv != "" {
		if parsed, err := time.ParseDuration(iv); err == nil {
			schedulerInterval = parsed
		}
	}

	return &Config{
		Port:             getEnv("PORT", "8080"),
		DatabaseURL:      getEnv("DATABASE_URL", "host=localhost user=postgres password=postgres dbname=mailbrief port=5432 sslmode=disable"),
		JWTSecret:        getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		JWTAccessExpiry:  accessExpiry,
		JWTRefreshExpiry: refreshExpiry,

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURI:  getEnv("GOOGLE_REDIRECT_URI", "http://localhost:8080/api/auth/google/callback"),

		AIProvider:    getEnv("AI_PROVIDER", "auto"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),
		OllamaBaseURL: getEnv("OLLAMA_BASE_URL", "http://localhost:11434"),
		OllamaModel:   getEnv("OLLAMA_MODEL", "llama3"),

		FirebaseCredentials: getEnv("FIREBASE_CREDENTIALS", ""),
		WhatsAppToken:       getEnv("WHATSAPP_TOKEN", ""),
		WhatsAppPhoneID:     getEnv("WHATSAPP_PHONE_ID", ""),

		FetchMaxResults: getEnvInt("FETCH_MAX_RESULTS", 100),
		FetchMaxPages:   getEnvInt("FETCH_MAX_PAGES", 10),
		FetchBatchSize:  getEnvInt("FETCH_BATCH_SIZE", 20),
		FetchConcurrent: getEnvInt("FETCH_CONCURRENT", 10),

		SchedulerEnabled:  getEnv("SCHEDULER_ENABLED", "false") == "true",
		SchedulerInterval: schedulerInterval,
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
