package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string
	PostgresSSLMode  string

	ServerAddr string

	MaxConcurrency int
	RateLimitMs    int
	MaxRetries     int
	PagesPerRun    int

	StatsBinCount int

	SchedulerEnabled bool
	ScheduleHour     int
	ScheduleMinute   int

	CSVOutputPath string
	ChromeBin     string
	Debug         bool
}

// Load reads the .env file and returns a populated Config struct.
func Load() *Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[config] No .env file found, falling back to system env vars")
	}

	return &Config{
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "optihome"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "optihome123"),
		PostgresDB:       getEnv("POSTGRES_DB", "optihome_db"),
		PostgresSSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),

		ServerAddr: getEnv("SERVER_ADDR", ":8000"),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 3),
		RateLimitMs:    getEnvInt("RATE_LIMIT_MS", 2000),
		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		PagesPerRun:    getEnvInt("SCRAPE_PAGES_PER_RUN", 5),

		StatsBinCount: getEnvInt("STATS_BIN_COUNT", 15),

		SchedulerEnabled: getEnvBool("ENABLE_SCHEDULER", false),
		ScheduleHour:     getEnvInt("SCHEDULE_HOUR", 2),
		ScheduleMinute:   getEnvInt("SCHEDULE_MINUTE", 0),

		CSVOutputPath: getEnv("CSV_OUTPUT_PATH", "./output/raw_properties.csv"),
		ChromeBin:     getEnv("CHROME_BIN", ""),
		Debug:         getEnvBool("DEBUG", false),
	}
}

// DSN returns the PostgreSQL connection string.
func (c *Config) DSN() string {
	return "host=" + c.PostgresHost +
		" port=" + c.PostgresPort +
		" user=" + c.PostgresUser +
		" password=" + c.PostgresPassword +
		" dbname=" + c.PostgresDB +
		" sslmode=" + c.PostgresSSLMode
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		n, err := strconv.Atoi(val)
		if err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		b, err := strconv.ParseBool(val)
		if err == nil {
			return b
		}
	}
	return fallback
}
