package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	App    AppConfig
	Api    ApiConfig
	Stream StreamConfig
}

type AppConfig struct {
	Environment string
	LogFilePath string
}

type ApiConfig struct {
	BaseURL string
	// Token is an optional static session token. When empty the caller is
	// expected to supply its own auth.TokenProvider.
	Token string
}

type StreamConfig struct {
	Temperature  float64
	MaxTokens    int
	Capabilities []string
}

func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("Note: .env file not found, usage system environment")
	}

	return &Config{
		App: AppConfig{
			Environment: getEnv("GO_ENV", "development"),
			LogFilePath: getEnv("LOG_FILE_PATH", "client.log"),
		},
		Api: ApiConfig{
			BaseURL: getEnv("API_BASE_URL", "http://localhost:3000"),
			Token:   getEnv("API_TOKEN", ""),
		},
		Stream: StreamConfig{
			Temperature:  getEnvAsFloat("STREAM_TEMPERATURE", 0.7),
			MaxTokens:    getEnvAsInt("STREAM_MAX_TOKENS", 2048),
			Capabilities: getEnvAsList("STREAM_CAPABILITIES", []string{"notes", "search"}),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	strValue := getEnv(key, "")
	if value, err := strconv.Atoi(strValue); err == nil {
		return value
	}
	return fallback
}

func getEnvAsFloat(key string, fallback float64) float64 {
	strValue := getEnv(key, "")
	if value, err := strconv.ParseFloat(strValue, 64); err == nil {
		return value
	}
	return fallback
}

func getEnvAsList(key string, fallback []string) []string {
	strValue := getEnv(key, "")
	if strValue == "" {
		return fallback
	}
	parts := strings.Split(strValue, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}
