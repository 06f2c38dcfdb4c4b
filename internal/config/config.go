package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"secdir/internal/constants"
)

type Config struct {
	Port string

	DBHost     string
	DBPort     string
	DBName     string
	DBUser     string
	DBPassword string

	QueriesFile string
	ReadTimeout time.Duration
	MaxConns    int

	RedisHost     string
	RedisPort     string
	RedisUsername string
	RedisPassword string
}

// Load reads configuration from the environment, picking up a .env file when
// one is present.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port: GetEnv("PORT", constants.DefaultPort),

		DBHost:     GetEnv("DB_HOST", "localhost"),
		DBPort:     GetEnv("DB_PORT", "5432"),
		DBName:     GetEnv("DB_NAME", "infosec_db"),
		DBUser:     GetEnv("DB_USER", "postgres"),
		DBPassword: GetEnv("DB_PASSWORD", "password"),

		QueriesFile: GetEnv("QUERIES_FILE", "sql/queries.sql"),
		ReadTimeout: getEnvSeconds("READ_TIMEOUT_SECONDS", constants.ReadTimeout),
		MaxConns:    getEnvInt("MAX_CONNECTIONS", constants.MaxConnections),

		RedisHost:     GetEnv("REDIS_HOST", ""),
		RedisPort:     GetEnv("REDIS_PORT", "6379"),
		RedisUsername: GetEnv("REDIS_USERNAME", ""),
		RedisPassword: GetEnv("REDIS_PASSWORD", ""),
	}
}

// DSN builds the Postgres connection string.
func (c Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s dbname=%s user=%s password=%s",
		c.DBHost, c.DBPort, c.DBName, c.DBUser, c.DBPassword)
}

// GetEnv returns environment variable value or default if empty
func GetEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return n
}

func getEnvSeconds(key string, defaultVal time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultVal
	}
	n, err := strconv.Atoi(val)
	if err != nil || n <= 0 {
		return defaultVal
	}
	return time.Duration(n) * time.Second
}
