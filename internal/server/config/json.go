package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/workhub/internal/flagx"
	"github.com/dmitrijs2005/workhub/internal/timex"
)

// JsonConfig is the on-disk shape of the configuration file. Durations use
// timex.Duration so both "15m" strings and integer nanoseconds are accepted.
// Keys missing from the file leave the current value untouched.
type JsonConfig struct {
	ListenAddr                  string         `json:"listen_addr"`
	DatabaseDSN                 string         `json:"database_dsn"`
	SecretKey                   string         `json:"secret_key"`
	AccessTokenValidityDuration timex.Duration `json:"access_token_validity_duration"`
	EncryptionKey               string         `json:"encryption_key"`
	S3RootUser                  string         `json:"s3_root_user"`
	S3RootPassword              string         `json:"s3_root_password"`
	S3Bucket                    string         `json:"s3_bucket"`
	S3Region                    string         `json:"s3_region"`
	S3BaseEndpoint              string         `json:"s3_base_endpoint"`
	RemoteClientID              string         `json:"remote_client_id"`
	RemoteClientSecret          string         `json:"remote_client_secret"`
	RemoteTenant                string         `json:"remote_tenant"`
	RemoteRedirectURL           string         `json:"remote_redirect_url"`
	RemoteBaseURL               string         `json:"remote_base_url"`
	FetchTimeout                timex.Duration `json:"fetch_timeout"`
	SyncLookback                timex.Duration `json:"sync_lookback"`
	SyncLookahead               timex.Duration `json:"sync_lookahead"`
	SyncCron                    *string        `json:"sync_cron"`
	SyncConcurrency             int            `json:"sync_concurrency"`
	ShutdownTimeout             timex.Duration `json:"shutdown_timeout"`
	LogLevel                    string         `json:"log_level"`
	LogFormat                   string         `json:"log_format"`
}

func toJson(c *Config) *JsonConfig {
	cron := c.SyncCron
	return &JsonConfig{
		ListenAddr:                  c.ListenAddr,
		DatabaseDSN:                 c.DatabaseDSN,
		SecretKey:                   c.SecretKey,
		AccessTokenValidityDuration: timex.Duration{Duration: c.AccessTokenValidityDuration},
		EncryptionKey:               c.EncryptionKey,
		S3RootUser:                  c.S3RootUser,
		S3RootPassword:              c.S3RootPassword,
		S3Bucket:                    c.S3Bucket,
		S3Region:                    c.S3Region,
		S3BaseEndpoint:              c.S3BaseEndpoint,
		RemoteClientID:              c.RemoteClientID,
		RemoteClientSecret:          c.RemoteClientSecret,
		RemoteTenant:                c.RemoteTenant,
		RemoteRedirectURL:           c.RemoteRedirectURL,
		RemoteBaseURL:               c.RemoteBaseURL,
		FetchTimeout:                timex.Duration{Duration: c.FetchTimeout},
		SyncLookback:                timex.Duration{Duration: c.SyncLookback},
		SyncLookahead:               timex.Duration{Duration: c.SyncLookahead},
		SyncCron:                    &cron,
		SyncConcurrency:             c.SyncConcurrency,
		ShutdownTimeout:             timex.Duration{Duration: c.ShutdownTimeout},
		LogLevel:                    c.LogLevel,
		LogFormat:                   c.LogFormat,
	}
}

// parseJson loads the file named by -c / -config into config. No flag means
// nothing to load. An unreadable file or invalid JSON is an error.
func parseJson(config *Config, args []string) error {
	path := flagx.ConfigPath(args)
	if path == "" {
		return nil
	}

	file, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	// Start from the current values so absent keys keep them.
	c := toJson(config)
	if err := json.Unmarshal(file, c); err != nil {
		return err
	}

	config.ListenAddr = c.ListenAddr
	config.DatabaseDSN = c.DatabaseDSN
	config.SecretKey = c.SecretKey
	config.AccessTokenValidityDuration = c.AccessTokenValidityDuration.Duration
	config.EncryptionKey = c.EncryptionKey
	config.S3RootUser = c.S3RootUser
	config.S3RootPassword = c.S3RootPassword
	config.S3Bucket = c.S3Bucket
	config.S3Region = c.S3Region
	config.S3BaseEndpoint = c.S3BaseEndpoint
	config.RemoteClientID = c.RemoteClientID
	config.RemoteClientSecret = c.RemoteClientSecret
	config.RemoteTenant = c.RemoteTenant
	config.RemoteRedirectURL = c.RemoteRedirectURL
	config.RemoteBaseURL = c.RemoteBaseURL
	config.FetchTimeout = c.FetchTimeout.Duration
	config.SyncLookback = c.SyncLookback.Duration
	config.SyncLookahead = c.SyncLookahead.Duration
	if c.SyncCron != nil {
		config.SyncCron = *c.SyncCron
	}
	config.SyncConcurrency = c.SyncConcurrency
	config.ShutdownTimeout = c.ShutdownTimeout.Duration
	config.LogLevel = c.LogLevel
	config.LogFormat = c.LogFormat
	return nil
}
