package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

// Config holds all configuration for the application
type Config struct {
	Port                  string
	DatabaseURL           string  // MySQL or PostgreSQL URL for the message store
	Version               string
	LogLevel              string
	WebhookPath           string  // Path segment for the inbound webhook route
	BodyLimit             string  // Maximum accepted request body size, e.g. "1M"
	BackendURL            string  // Base URL of the OpenAI-compatible generation backend
	Model                 string  // Model identifier passed to the backend
	SystemPrompt          string  // System prompt prepended to every generation request
	AutoGenerate          bool    // Whether to generate a reply as soon as a message arrives
	DisplayThreshold      float64 // Minimum confidence for a template match to be surfaced
	AutoResponseThreshold float64 // Minimum confidence for a template match to auto-send
	RelayURL              string  // Endpoint the outbound relay posts approved replies to
	GenerationTimeout     int     // Generation timeout in seconds
	RelayTimeout          int     // Relay POST timeout in seconds
	SendGridAPIKey        string  // SendGrid API key for failure escalation emails
	EscalationEmail       string  // Address notified when generation fails (optional)
}

const defaultSystemPrompt = "You are a helpful assistant drafting replies to incoming chat messages. " +
	"Keep replies short, friendly, and directly useful. Respond with the reply text only."

// Load initializes and returns application configuration
func Load() *Config {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Port:                  getEnv("PORT", "8080"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		Version:               getEnv("VERSION", "1.0.0"),
		LogLevel:              getEnv("LOG_LEVEL", "info"),
		WebhookPath:           strings.Trim(getEnv("WEBHOOK_PATH", "webhook"), "/"),
		BodyLimit:             getEnv("BODY_LIMIT", "1M"),
		BackendURL:            getEnv("BACKEND_URL", "http://localhost:11434/v1"),
		Model:                 os.Getenv("MODEL"),
		SystemPrompt:          getEnv("SYSTEM_PROMPT", defaultSystemPrompt),
		AutoGenerate:          getEnvBool("AUTO_GENERATE", true),
		DisplayThreshold:      getEnvFloat("DISPLAY_THRESHOLD", 40),
		AutoResponseThreshold: getEnvFloat("AUTO_RESPONSE_THRESHOLD", 90),
		RelayURL:              os.Getenv("RELAY_URL"),
		GenerationTimeout:     getEnvInt("GENERATION_TIMEOUT", 30),
		RelayTimeout:          getEnvInt("RELAY_TIMEOUT", 15),
		SendGridAPIKey:        os.Getenv("SENDGRID_API_KEY"),
		EscalationEmail:       os.Getenv("ESCALATION_EMAIL"),
	}

	return config
}

// getEnv gets an environment variable with a default fallback
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvInt gets an environment variable as integer with a default fallback
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvBool gets an environment variable as boolean with a default fallback
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvFloat gets an environment variable as float with a default fallback
func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

// SetupLogger configures zerolog with JSON output and single-line format
func (c *Config) SetupLogger() zerolog.Logger {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	logger := zerolog.New(os.Stdout).With().
		Timestamp().
		Str("service", "replydesk").
		Str("version", c.Version).
		Logger()

	level, err := zerolog.ParseLevel(strings.ToLower(c.LogLevel))
	if err != nil {
		level = zerolog.InfoLevel
	}
	logger = logger.Level(level)

	return logger
}
