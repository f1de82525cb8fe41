package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	RedisURL     string
	KafkaBrokers []string
	EventTopic   string
	Environment  string

	Detection DetectionConfig
}

// DetectionConfig carries the gap-detection thresholds. Values are fixed at
// startup; there is no runtime reconfiguration mid-batch.
type DetectionConfig struct {
	MinAttemptsThreshold     int
	ConceptAccuracyThreshold float64
	HesitationRatioThreshold float64
	RushRatioThreshold       float64
}

func LoadConfig() (*Config, error) {
	// Missing .env is fine in deployed environments; real env vars win.
	_ = godotenv.Load()

	return &Config{
		Port:         getEnv("PORT", "8080"),
		RedisURL:     getEnv("REDIS_URL", "redis://localhost:6379"),
		KafkaBrokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
		EventTopic:   getEnv("EVENT_TOPIC", "learning-gap-events"),
		Environment:  getEnv("ENVIRONMENT", "development"),
		Detection: DetectionConfig{
			MinAttemptsThreshold:     getEnvInt("MIN_ATTEMPTS_THRESHOLD", 3),
			ConceptAccuracyThreshold: getEnvFloat("CONCEPT_ACCURACY_THRESHOLD", 0.60),
			HesitationRatioThreshold: getEnvFloat("HESITATION_RATIO_THRESHOLD", 0.50),
			RushRatioThreshold:       getEnvFloat("RUSH_RATIO_THRESHOLD", 0.50),
		},
	}, nil
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
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
		return defaultValue
	}
	return parsed
}
