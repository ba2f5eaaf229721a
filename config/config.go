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
	Port     string
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Email    EmailConfig

	SessionKey     string
	WebURL         string
	ExportTimezone string

	Seed SeedConfig
}

type DatabaseConfig struct {
	Driver           string
	ConnectionString string
}

type RedisConfig struct {
	Host string
	Port string
}

func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type StorageConfig struct {
	Dir string
	URL string
}

type EmailConfig struct {
	SMTPServer    string
	SMTPPort      int
	SMTPUsername  string
	SMTPPassword  string
	From          string
	ResetSubject  string
	ResetTemplate string
}

type SeedConfig struct {
	AdminEmail    string
	AdminPassword string
	Demo          bool
}

// Load reads an optional .env file, then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Println(err)
	}

	driver := strings.ToLower(getEnv("DB_DRIVER", "postgres"))
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" && driver == "sqlite" {
		dsn = "backoffice.db"
	}

	cfg := &Config{
		Port: getEnv("PORT", "8000"),
		Database: DatabaseConfig{
			Driver:           driver,
			ConnectionString: dsn,
		},
		Redis: RedisConfig{
			Host: getEnv("REDIS_HOST", "localhost"),
			Port: getEnv("REDIS_PORT", "6379"),
		},
		Storage: StorageConfig{
			Dir: getEnv("STORAGE_DIR", "./storage/app/public"),
			URL: strings.TrimRight(getEnv("STORAGE_URL", "/storage"), "/"),
		},
		Email: EmailConfig{
			SMTPServer:    os.Getenv("EMAIL_SMTP_SERVER"),
			SMTPPort:      getEnvAsInt("EMAIL_SMTP_PORT", 587),
			SMTPUsername:  os.Getenv("EMAIL_SMTP_USERNAME"),
			SMTPPassword:  os.Getenv("EMAIL_SMTP_PASSWORD"),
			From:          os.Getenv("EMAIL_MESSAGE_FROM"),
			ResetSubject:  getEnv("EMAIL_RESET_SUBJECT", "Reset your password"),
			ResetTemplate: getEnv("EMAIL_RESET_TEMPLATE", "./templates/reset_password.html"),
		},
		SessionKey:     os.Getenv("SESSION_KEY"),
		WebURL:         getEnv("WEB_URL", "http://localhost:3000"),
		ExportTimezone: getEnv("EXPORT_TIMEZONE", "UTC"),
		Seed: SeedConfig{
			AdminEmail:    os.Getenv("SEED_ADMIN_EMAIL"),
			AdminPassword: os.Getenv("SEED_ADMIN_PASSWORD"),
			Demo:          getEnvAsBool("SEED_DEMO", false),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "postgres":
		if c.Database.ConnectionString == "" {
			return fmt.Errorf("DB_CONNECTION_STRING is required for postgres")
		}
	case "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER: %s (must be postgres or sqlite)", c.Database.Driver)
	}

	if c.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	value, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}
