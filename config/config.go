package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type WebhookConfig struct {
	VerifyToken string
	AppSecret   string
}

// IsConfigured returns true if all required webhook configuration is present
func (c WebhookConfig) IsConfigured() bool {
	return c.VerifyToken != "" && c.AppSecret != ""
}

type MessengerConfig struct {
	BaseURL           string
	AccessToken       string
	RequestsPerSecond float64
	MaxReplyLength    int
}

// IsConfigured returns true if all required messenger configuration is present
func (c MessengerConfig) IsConfigured() bool {
	return c.BaseURL != "" && c.AccessToken != ""
}

type AnthropicConfig struct {
	APIKey string
	Model  string
}

// IsConfigured returns true if all required Anthropic configuration is present
func (c AnthropicConfig) IsConfigured() bool {
	return c.APIKey != ""
}

type DedupConfig struct {
	// Disabled bypasses all dedup gating. Local development only.
	Disabled       bool
	ShortCooldown  time.Duration
	GlobalCooldown time.Duration
	SweepInterval  time.Duration
}

type WorkerConfig struct {
	PollInterval    time.Duration
	ErrorBackoff    time.Duration
	MaxAttempts     int
	DispatchTimeout time.Duration
}

type ConversationConfig struct {
	InactivityTimeout time.Duration
	ContextWindow     int
	SweepInterval     time.Duration
}

type AppConfig struct {
	// Core configuration (always required)
	DatabaseURL        string
	DatabaseSchema     string
	Port               string // Optional with default "8080"
	CORSAllowedOrigins string // Optional with default "*"
	Environment        string
	AdminToken         string
	UseStrictConfig    bool // If true, error when any integration is not fully configured

	// Integration configurations (grouped)
	WebhookConfig   WebhookConfig
	MessengerConfig MessengerConfig
	AnthropicConfig AnthropicConfig

	// Pipeline tuning (grouped, all with defaults)
	DedupConfig        DedupConfig
	WorkerConfig       WorkerConfig
	ConversationConfig ConversationConfig
}

func LoadConfig() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		fmt.Println("⚠️ Could not load .env file, continuing with system env vars")
	}

	// Core required configuration
	databaseURL, err := getEnvRequired("DB_URL")
	if err != nil {
		return nil, err
	}

	databaseSchema, err := getEnvRequired("DB_SCHEMA")
	if err != nil {
		return nil, err
	}

	config := &AppConfig{
		// Core configuration
		DatabaseURL:        databaseURL,
		DatabaseSchema:     databaseSchema,
		Port:               getEnvWithDefault("PORT", "8080"),
		CORSAllowedOrigins: getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*"),
		Environment:        getEnvWithDefault("ENVIRONMENT", "dev"),
		AdminToken:         os.Getenv("ADMIN_TOKEN"),
		UseStrictConfig:    getEnvWithDefault("USE_STRICT_CONFIG", "true") == "true",

		// Webhook configuration
		WebhookConfig: WebhookConfig{
			VerifyToken: os.Getenv("WEBHOOK_VERIFY_TOKEN"),
			AppSecret:   os.Getenv("WEBHOOK_APP_SECRET"),
		},

		// Messenger configuration
		MessengerConfig: MessengerConfig{
			BaseURL:           getEnvWithDefault("MESSENGER_BASE_URL", "https://graph.instagram.com/v21.0"),
			AccessToken:       os.Getenv("MESSENGER_ACCESS_TOKEN"),
			RequestsPerSecond: getEnvFloat("MESSENGER_REQUESTS_PER_SECOND", 5),
			MaxReplyLength:    getEnvInt("MESSENGER_MAX_REPLY_LENGTH", 1000),
		},

		// Anthropic configuration
		AnthropicConfig: AnthropicConfig{
			APIKey: os.Getenv("ANTHROPIC_API_KEY"),
			Model:  getEnvWithDefault("ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
		},

		// Dedup ledger tuning
		DedupConfig: DedupConfig{
			Disabled:       getEnvWithDefault("DEDUP_DISABLED", "false") == "true",
			ShortCooldown:  getEnvDuration("DEDUP_SHORT_COOLDOWN", 60*time.Second),
			GlobalCooldown: getEnvDuration("DEDUP_GLOBAL_COOLDOWN", 30*time.Second),
			SweepInterval:  getEnvDuration("DEDUP_SWEEP_INTERVAL", 2*time.Minute),
		},

		// Worker loop tuning
		WorkerConfig: WorkerConfig{
			PollInterval:    getEnvDuration("WORKER_POLL_INTERVAL", 1*time.Second),
			ErrorBackoff:    getEnvDuration("WORKER_ERROR_BACKOFF", 5*time.Second),
			MaxAttempts:     getEnvInt("WORKER_MAX_ATTEMPTS", 3),
			DispatchTimeout: getEnvDuration("WORKER_DISPATCH_TIMEOUT", 30*time.Second),
		},

		// Conversation session tuning
		ConversationConfig: ConversationConfig{
			InactivityTimeout: getEnvDuration("CONVERSATION_INACTIVITY_TIMEOUT", 30*time.Minute),
			ContextWindow:     getEnvInt("CONVERSATION_CONTEXT_WINDOW", 10),
			SweepInterval:     getEnvDuration("CONVERSATION_SWEEP_INTERVAL", 5*time.Minute),
		},
	}

	// Log which integrations are configured
	if config.WebhookConfig.IsConfigured() {
		log.Printf("✅ Webhook verification configured")
	} else {
		log.Printf("⚠️ Webhook verification not configured - inbound events will be rejected")
		if config.UseStrictConfig {
			return nil, fmt.Errorf("webhook verification is not fully configured (USE_STRICT_CONFIG=true)")
		}
	}

	if config.MessengerConfig.IsConfigured() {
		log.Printf("✅ Messenger integration configured")
	} else {
		log.Printf("⚠️ Messenger integration not configured - replies cannot be sent")
		if config.UseStrictConfig {
			return nil, fmt.Errorf("messenger integration is not fully configured (USE_STRICT_CONFIG=true)")
		}
	}

	if config.AnthropicConfig.IsConfigured() {
		log.Printf("✅ Anthropic generation configured")
	} else {
		log.Printf("⚠️ Anthropic generation not configured - AI rules will reply with their fallback text")
	}

	if config.DedupConfig.Disabled {
		log.Printf("🚨 DEDUP LEDGER DISABLED - duplicate replies will NOT be suppressed. Never run this in production.")
	}

	return config, nil
}

func getEnvRequired(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s is not set", key)
	}
	return value, nil
}

func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("⚠️ Invalid value for %s: %q, using default %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		log.Printf("⚠️ Invalid value for %s: %q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("⚠️ Invalid value for %s: %q, using default %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
