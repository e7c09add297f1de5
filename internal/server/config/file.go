package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dmitrijs2005/contractsign/internal/flagx"
	"github.com/dmitrijs2005/contractsign/internal/timex"
	"gopkg.in/yaml.v3"
)

// FileConfig is the on-disk shape of the configuration. Durations accept
// "15m" or integer nanoseconds. Absent keys keep the current value.
type FileConfig struct {
	EndpointAddrHTTP       string         `json:"endpoint_addr_http" yaml:"endpoint_addr_http"`
	EndpointAddrGRPC       string         `json:"endpoint_addr_grpc" yaml:"endpoint_addr_grpc"`
	DatabaseDSN            string         `json:"database_dsn" yaml:"database_dsn"`
	SecretKey              string         `json:"secret_key" yaml:"secret_key"`
	LinkSecret             string         `json:"link_secret" yaml:"link_secret"`
	OperatorSecret         string         `json:"operator_secret" yaml:"operator_secret"`
	LinkBaseURL            string         `json:"link_base_url" yaml:"link_base_url"`
	LinkTokenMaxAge        timex.Duration `json:"link_token_max_age" yaml:"link_token_max_age"`
	OperatorTokenValidity  timex.Duration `json:"operator_token_validity" yaml:"operator_token_validity"`
	SingleUseTokenValidity timex.Duration `json:"single_use_token_validity" yaml:"single_use_token_validity"`
	SingleUseGrace         timex.Duration `json:"single_use_grace" yaml:"single_use_grace"`
	StoreTimeout           timex.Duration `json:"store_timeout" yaml:"store_timeout"`
	NotifyTimeout          timex.Duration `json:"notify_timeout" yaml:"notify_timeout"`
	SweepInterval          timex.Duration `json:"sweep_interval" yaml:"sweep_interval"`
	ArchiveRetention       timex.Duration `json:"archive_retention" yaml:"archive_retention"`
	SMTPAddr               string         `json:"smtp_addr" yaml:"smtp_addr"`
	SMTPUser               string         `json:"smtp_user" yaml:"smtp_user"`
	SMTPPassword           string         `json:"smtp_password" yaml:"smtp_password"`
	MailFrom               string         `json:"mail_from" yaml:"mail_from"`
	CompanyName            string         `json:"company_name" yaml:"company_name"`
	S3RootUser             string         `json:"s3_root_user" yaml:"s3_root_user"`
	S3RootPassword         string         `json:"s3_root_password" yaml:"s3_root_password"`
	S3Bucket               string         `json:"s3_bucket" yaml:"s3_bucket"`
	S3Region               string         `json:"s3_region" yaml:"s3_region"`
	S3BaseEndpoint         string         `json:"s3_base_endpoint" yaml:"s3_base_endpoint"`
	LogLevel               string         `json:"log_level" yaml:"log_level"`
	LogFormat              string         `json:"log_format" yaml:"log_format"`
	RateLimit              int            `json:"rate_limit" yaml:"rate_limit"`
	RateWindow             timex.Duration `json:"rate_window" yaml:"rate_window"`
}

// parseFile loads the file named by -c/-config (or $CONTRACTSIGN_CONFIG)
// into config. Files ending in .yaml or .yml are decoded as YAML, anything
// else as JSON. No path leaves config untouched; an unreadable or invalid
// file panics.
func parseFile(config *Config) {
	path := flagx.ConfigPath(os.Args[1:], os.Getenv)
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	c := &FileConfig{}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, c)
	default:
		err = json.Unmarshal(data, c)
	}
	if err != nil {
		panic(err)
	}

	c.apply(config)
}

func (c *FileConfig) apply(config *Config) {
	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.EndpointAddrGRPC, c.EndpointAddrGRPC)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.LinkSecret, c.LinkSecret)
	setString(&config.OperatorSecret, c.OperatorSecret)
	setString(&config.LinkBaseURL, c.LinkBaseURL)
	setDuration(&config.LinkTokenMaxAge, c.LinkTokenMaxAge)
	setDuration(&config.OperatorTokenValidity, c.OperatorTokenValidity)
	setDuration(&config.SingleUseTokenValidity, c.SingleUseTokenValidity)
	setDuration(&config.SingleUseGrace, c.SingleUseGrace)
	setDuration(&config.StoreTimeout, c.StoreTimeout)
	setDuration(&config.NotifyTimeout, c.NotifyTimeout)
	setDuration(&config.SweepInterval, c.SweepInterval)
	setDuration(&config.ArchiveRetention, c.ArchiveRetention)
	setString(&config.SMTPAddr, c.SMTPAddr)
	setString(&config.SMTPUser, c.SMTPUser)
	setString(&config.SMTPPassword, c.SMTPPassword)
	setString(&config.MailFrom, c.MailFrom)
	setString(&config.CompanyName, c.CompanyName)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogLevel, c.LogLevel)
	setString(&config.LogFormat, c.LogFormat)
	if c.RateLimit != 0 {
		config.RateLimit = c.RateLimit
	}
	setDuration(&config.RateWindow, c.RateWindow)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setDuration(dst *time.Duration, v timex.Duration) {
	if v.Duration != 0 {
		*dst = v.Duration
	}
}
