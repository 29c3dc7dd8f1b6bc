package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const (
	envPrefix      = "WORKHUB_"
	defaultEnvFile = ".env"
)

// lookupEnv is a seam for tests.
var lookupEnv = os.LookupEnv

// envFile returns the dotenv path from WORKHUB_ENV_FILE, falling back to
// ".env" in the working directory.
func envFile() string {
	if p, ok := lookupEnv(envPrefix + "ENV_FILE"); ok && p != "" {
		return p
	}
	return defaultEnvFile
}

// loadDotEnv exports the variables in path into the process environment.
// Variables already present in the environment win. A missing file is fine.
func loadDotEnv(path string) error {
	err := godotenv.Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// parseEnv overlays WORKHUB_* variables onto config.
func parseEnv(config *Config, lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(envPrefix + key); ok {
			*dst = v
		}
	}
	dur := func(key string, dst *time.Duration) error {
		v, ok := lookup(envPrefix + key)
		if !ok {
			return nil
		}
		d, err := time.ParseDuration(v)
		if err != nil {
			return errors.New(envPrefix + key + ": " + err.Error())
		}
		*dst = d
		return nil
	}

	str("LISTEN_ADDR", &config.ListenAddr)
	str("DATABASE_DSN", &config.DatabaseDSN)
	str("SECRET_KEY", &config.SecretKey)
	str("ENCRYPTION_KEY", &config.EncryptionKey)
	str("S3_ROOT_USER", &config.S3RootUser)
	str("S3_ROOT_PASSWORD", &config.S3RootPassword)
	str("S3_BUCKET", &config.S3Bucket)
	str("S3_REGION", &config.S3Region)
	str("S3_BASE_ENDPOINT", &config.S3BaseEndpoint)
	str("REMOTE_CLIENT_ID", &config.RemoteClientID)
	str("REMOTE_CLIENT_SECRET", &config.RemoteClientSecret)
	str("REMOTE_TENANT", &config.RemoteTenant)
	str("REMOTE_REDIRECT_URL", &config.RemoteRedirectURL)
	str("REMOTE_BASE_URL", &config.RemoteBaseURL)
	str("SYNC_CRON", &config.SyncCron)
	str("LOG_LEVEL", &config.LogLevel)
	str("LOG_FORMAT", &config.LogFormat)

	var errs []error
	for key, dst := range map[string]*time.Duration{
		"ACCESS_TOKEN_VALIDITY": &config.AccessTokenValidityDuration,
		"FETCH_TIMEOUT":         &config.FetchTimeout,
		"SYNC_LOOKBACK":         &config.SyncLookback,
		"SYNC_LOOKAHEAD":        &config.SyncLookahead,
		"SHUTDOWN_TIMEOUT":      &config.ShutdownTimeout,
	} {
		errs = append(errs, dur(key, dst))
	}

	if v, ok := lookup(envPrefix + "SYNC_CONCURRENCY"); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			errs = append(errs, errors.New(envPrefix+"SYNC_CONCURRENCY: "+err.Error()))
		} else {
			config.SyncConcurrency = n
		}
	}

	return errors.Join(errs...)
}
