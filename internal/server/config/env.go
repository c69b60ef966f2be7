package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/dmitrijs2005/memorylane/internal/flagx"
)

// parseEnv overlays MEMORYLANE_* environment variables. A dotenv file is
// loaded first when given with -env-file; otherwise ./.env is tried and
// silently skipped when missing. Variables already set in the process
// environment are never overwritten by the file.
func parseEnv(c *Config, args []string) {
	if file := flagx.EnvFileFlag(args); file != "" {
		if err := godotenv.Load(file); err != nil {
			panic(err)
		}
	} else {
		_ = godotenv.Load()
	}

	c.Env = getEnv("MEMORYLANE_ENV", c.Env)
	c.EndpointAddrHTTP = getEnv("MEMORYLANE_HTTP_ADDR", c.EndpointAddrHTTP)
	c.EndpointAddrGRPC = getEnv("MEMORYLANE_GRPC_ADDR", c.EndpointAddrGRPC)
	c.DatabaseDSN = getEnv("MEMORYLANE_DATABASE_DSN", c.DatabaseDSN)
	c.SecretKey = getEnv("MEMORYLANE_SECRET_KEY", c.SecretKey)
	c.AccessTokenValidityDuration = getEnvDuration("MEMORYLANE_ACCESS_TOKEN_TTL", c.AccessTokenValidityDuration)
	c.RefreshTokenValidityDuration = getEnvDuration("MEMORYLANE_REFRESH_TOKEN_TTL", c.RefreshTokenValidityDuration)
	c.AdminAPIKey = getEnv("MEMORYLANE_ADMIN_API_KEY", c.AdminAPIKey)

	c.S3RootUser = getEnv("MEMORYLANE_S3_USER", c.S3RootUser)
	c.S3RootPassword = getEnv("MEMORYLANE_S3_PASSWORD", c.S3RootPassword)
	c.S3Bucket = getEnv("MEMORYLANE_S3_BUCKET", c.S3Bucket)
	c.S3Region = getEnv("MEMORYLANE_S3_REGION", c.S3Region)
	c.S3BaseEndpoint = getEnv("MEMORYLANE_S3_ENDPOINT", c.S3BaseEndpoint)
	c.PresignTTL = getEnvDuration("MEMORYLANE_PRESIGN_TTL", c.PresignTTL)

	c.SMTPHost = getEnv("MEMORYLANE_SMTP_HOST", c.SMTPHost)
	c.SMTPPort = getEnvInt("MEMORYLANE_SMTP_PORT", c.SMTPPort)
	c.SMTPUser = getEnv("MEMORYLANE_SMTP_USER", c.SMTPUser)
	c.SMTPPassword = getEnv("MEMORYLANE_SMTP_PASSWORD", c.SMTPPassword)
	c.MailFrom = getEnv("MEMORYLANE_MAIL_FROM", c.MailFrom)
	c.MailTimeout = getEnvDuration("MEMORYLANE_MAIL_TIMEOUT", c.MailTimeout)

	c.AppBaseURL = getEnv("MEMORYLANE_APP_BASE_URL", c.AppBaseURL)
	c.InvitationLink = getEnv("MEMORYLANE_INVITATION_LINK", c.InvitationLink)

	c.UnlockSweepInterval = getEnvDuration("MEMORYLANE_UNLOCK_SWEEP_INTERVAL", c.UnlockSweepInterval)
	c.UnlockTimezone = getEnv("MEMORYLANE_UNLOCK_TIMEZONE", c.UnlockTimezone)
	c.RedisURL = getEnv("MEMORYLANE_REDIS_URL", c.RedisURL)
	c.SnowflakeNode = int64(getEnvInt("MEMORYLANE_SNOWFLAKE_NODE", int(c.SnowflakeNode)))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
