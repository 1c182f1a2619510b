package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// parseEnv overlays Config fields from a .env file (when present) and the
// process environment. A missing .env file is not an error; explicit
// environment variables win over the file because godotenv does not
// override existing values.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	if v := os.Getenv("PORT"); v != "" {
		config.Addr = ":" + v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		config.DatabaseDSN = v
	}
	if v := os.Getenv("SESSION_SECRET"); v != "" {
		config.SessionSecret = v
	}
	if v := os.Getenv("EMAIL_HOST"); v != "" {
		config.SMTPHost = v
	}
	if v := os.Getenv("EMAIL_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			config.SMTPPort = port
		}
	}
	if v := os.Getenv("EMAIL_USER"); v != "" {
		config.SMTPUser = v
	}
	if v := os.Getenv("EMAIL_PASS"); v != "" {
		config.SMTPPassword = v
	}
	if v := os.Getenv("EMAIL_FROM"); v != "" {
		config.MailFrom = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		config.RedisAddr = v
	}
}
