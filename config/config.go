package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	AWS      AWSConfig
	AI       AIConfig
	WhatsApp WhatsAppConfig
	Billing  BillingConfig
	Metering MeteringConfig
	Consent  ConsentConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
	RateLimitPerMinute int    // per client IP
	RateLimitBurst     int
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/kariyerai?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// AWSConfig holds AWS credentials and the bucket for imported CV files.
type AWSConfig struct {
	Region               string
	AccessKeyID          string
	SecretAccessKey      string
	CVBucket             string
	PresignExpireMinutes int
}

// AIConfig holds the language model endpoint settings.
type AIConfig struct {
	APIKey         string
	BaseURL        string
	Model          string
	TimeoutSeconds int
}

// WhatsAppConfig holds WhatsApp Cloud API credentials used by the notification worker.
type WhatsAppConfig struct {
	AccessToken   string
	PhoneNumberID string
	AdminPhone    string // receives "transfer awaiting approval" notices
}

// BillingConfig holds the manual bank transfer instructions shown to buyers.
type BillingConfig struct {
	BankName        string
	IBAN            string
	AccountHolder   string
	WhatsAppContact string
	Currency        string
}

// MeteringConfig holds per-operation costs.
type MeteringConfig struct {
	JobMatchCost         int // credits per job match analysis
	CVImportCost         int // credits per PDF import
	CVChatMessageCost    int // max cv chat tokens per assistant reply
	CVChatTokensPerUnit  int // model output tokens that make one cv chat token
	CVChatSessionTTLHour int
}

// ConsentConfig holds cookie consent settings.
type ConsentConfig struct {
	TTLDays int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 60),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
			RateLimitPerMinute: getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
			RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 30),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "kariyerai"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 72),
		},
		AWS: AWSConfig{
			Region:               getEnv("AWS_REGION", ""),
			AccessKeyID:          getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey:      getEnv("AWS_SECRET_ACCESS_KEY", ""),
			CVBucket:             getEnv("AWS_S3_CV_BUCKET", "kariyerai-cv-uploads"),
			PresignExpireMinutes: getEnvInt("AWS_PRESIGN_EXPIRE_MINUTES", 15),
		},
		AI: AIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Model:          getEnv("OPENAI_MODEL", "gpt-4.1-mini"),
			TimeoutSeconds: getEnvInt("OPENAI_TIMEOUT_SEC", 45),
		},
		WhatsApp: WhatsAppConfig{
			AccessToken:   getEnv("WHATSAPP_ACCESS_TOKEN", ""),
			PhoneNumberID: getEnv("WHATSAPP_PHONE_NUMBER_ID", ""),
			AdminPhone:    getEnv("WHATSAPP_ADMIN_PHONE", ""),
		},
		Billing: BillingConfig{
			BankName:        getEnv("BILLING_BANK_NAME", ""),
			IBAN:            getEnv("BILLING_IBAN", ""),
			AccountHolder:   getEnv("BILLING_ACCOUNT_HOLDER", ""),
			WhatsAppContact: getEnv("BILLING_WHATSAPP_CONTACT", ""),
			Currency:        getEnv("BILLING_CURRENCY", "TRY"),
		},
		Metering: MeteringConfig{
			JobMatchCost:         getEnvInt("JOB_MATCH_COST", 1),
			CVImportCost:         getEnvInt("CV_IMPORT_COST", 1),
			CVChatMessageCost:    getEnvInt("CV_CHAT_MESSAGE_COST", 5),
			CVChatTokensPerUnit:  getEnvInt("CV_CHAT_TOKENS_PER_UNIT", 100),
			CVChatSessionTTLHour: getEnvInt("CV_CHAT_SESSION_TTL_HOURS", 24),
		},
		Consent: ConsentConfig{
			TTLDays: getEnvInt("CONSENT_TTL_DAYS", 30),
		},
	}
	if cfg.Metering.JobMatchCost < 1 || cfg.Metering.CVImportCost < 1 || cfg.Metering.CVChatMessageCost < 1 {
		return nil, fmt.Errorf("metering costs must be >= 1")
	}
	if cfg.Metering.CVChatTokensPerUnit < 1 {
		cfg.Metering.CVChatTokensPerUnit = 1
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
