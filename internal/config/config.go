package config

import (
	"os"

	"github.com/joho/godotenv"
)

type Config struct {
	ServerPort string
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	AMQPURL    string
	JWTSecret  string
}

func Load() *Config {
	// Optional .env for local development; real deployments use the
	// environment directly.
	_ = godotenv.Load()

	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "drift"),
		DBPassword: getEnv("DB_PASSWORD", "drift_dev_password"),
		DBName:     getEnv("DB_NAME", "drift"),
		AMQPURL:    getEnv("AMQP_URL", ""),
		JWTSecret:  getEnv("JWT_SECRET", "dev-secret-change-me"),
	}
}

func getEnv(key, fallback string) string {
	val, exists := os.LookupEnv(key)

	if exists {
		return val
	}

	return fallback
}
