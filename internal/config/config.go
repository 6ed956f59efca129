package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port            string
	DBUrl           string
	JWTSecret       string
	AppEnv          string
	MinPayoutAmount string
	PayoutHoldHours int
	ReleasePollCron string
	GatewayBaseURL  string
	GatewayAPIKey   string
}

func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	jwtSecret, exists := os.LookupEnv("JWT_SECRET")
	if !exists || jwtSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return &Config{
		Port:            getEnv("PORT", "8080"),
		DBUrl:           getEnv("DB_URL", ""),
		JWTSecret:       jwtSecret,
		AppEnv:          normalizeEnv(getEnv("APP_ENV", "production")),
		MinPayoutAmount: getEnv("MIN_PAYOUT_AMOUNT", "250"),
		PayoutHoldHours: getEnvInt("PAYOUT_HOLD_HOURS", 72),
		ReleasePollCron: getEnv("RELEASE_POLL_CRON", "*/5 * * * *"),
		GatewayBaseURL:  getEnv("PAYMENT_GATEWAY_URL", ""),
		GatewayAPIKey:   getEnv("PAYMENT_GATEWAY_API_KEY", ""),
	}, nil
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, exists := os.LookupEnv(key)
	if !exists || value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || parsed <= 0 {
		return fallback
	}
	return parsed
}

func normalizeEnv(value string) string {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "dev", "develop", "development", "local":
		return "development"
	case "prod", "production":
		return "production"
	case "stage", "staging":
		return "staging"
	case "test", "testing":
		return "test"
	default:
		return strings.ToLower(strings.TrimSpace(value))
	}
}
