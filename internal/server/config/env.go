package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// parseEnv overlays configuration from environment variables. A .env file in
// the working directory is loaded first when present; real environment
// variables take precedence over it. Unset variables leave the current value
// untouched, malformed durations or numbers panic.
func parseEnv(config *Config) {

	_ = godotenv.Load()

	setString := func(key string, dst *string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setString("ADDRESS", &config.EndpointAddrHTTP)
	setString("DATABASE_DSN", &config.DatabaseDSN)
	setString("SECRET_KEY", &config.SecretKey)
	setString("SMTP_HOST", &config.SMTPHost)
	setString("SMTP_USER", &config.SMTPUser)
	setString("SMTP_PASSWORD", &config.SMTPPassword)
	setString("SMTP_FROM", &config.SMTPFrom)
	setString("GOOGLE_CLIENT_ID", &config.GoogleClientID)

	if v, ok := os.LookupEnv("SMTP_PORT"); ok {
		port, err := strconv.Atoi(v)
		if err != nil {
			panic(err)
		}
		config.SMTPPort = port
	}

	if v, ok := os.LookupEnv("ACCESS_TOKEN_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		config.AccessTokenValidityDuration = d
	}

	if v, ok := os.LookupEnv("STATE_TOKEN_TTL"); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			panic(err)
		}
		config.StateTokenValidityDuration = d
	}

	if v, ok := os.LookupEnv("OAUTH_EAGER_COMPLETE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			panic(err)
		}
		config.OAuthEagerComplete = b
	}
}
