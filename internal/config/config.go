// file: internal/config/config.go
// version: 1.0.0
// guid: 3f6a1c82-9d04-4e7b-8a53-2c1f0b9e6d47

package config

import (
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration
type Config struct {
	ListenAddr   string
	DatabasePath string
	DatabaseType string // "sqlite" (default) or "pebble"

	// Rate limiting
	DisableIPRateLimit  bool
	TrustedIPsFile      string
	IPRequestsPerMinute int
	IPBurst             int

	// Session lifecycle
	SessionTTL time.Duration
	OTPTTL     time.Duration

	// Search
	SearchWindowTTL     time.Duration
	SearchPageLimit     int
	UncachedSearchQuota string

	// Shared OTP bucket across request/resend/check
	OTPQuota string

	// HTTP surface
	MaxBodyBytes        int64
	MetricsAuthUsername string
	MetricsAuthPassword string
}

var AppConfig Config

// InitConfig initializes the application configuration
func InitConfig() {
	// Set defaults
	viper.SetDefault("listen_addr", "localhost:5000")
	viper.SetDefault("database_type", "sqlite")
	viper.SetDefault("database_path", "matchwell.db")
	viper.SetDefault("disable_ip_rate_limit", false)
	viper.SetDefault("ip_requests_per_minute", 120)
	viper.SetDefault("ip_burst", 20)
	viper.SetDefault("session_ttl", "720h")
	viper.SetDefault("otp_ttl", "10m")
	viper.SetDefault("search_window_ttl", "10m")
	viper.SetDefault("search_page_limit", 100)
	viper.SetDefault("uncached_search_quota", "10 per minute")
	viper.SetDefault("max_body_bytes", 1<<20)
	viper.SetDefault("otp_quota", "5 per minute")

	AppConfig = Config{
		ListenAddr:          viper.GetString("listen_addr"),
		DatabasePath:        viper.GetString("database_path"),
		DatabaseType:        viper.GetString("database_type"),
		DisableIPRateLimit:  viper.GetBool("disable_ip_rate_limit"),
		TrustedIPsFile:      viper.GetString("trusted_ips_file"),
		IPRequestsPerMinute: viper.GetInt("ip_requests_per_minute"),
		IPBurst:             viper.GetInt("ip_burst"),
		SessionTTL:          viper.GetDuration("session_ttl"),
		OTPTTL:              viper.GetDuration("otp_ttl"),
		SearchWindowTTL:     viper.GetDuration("search_window_ttl"),
		SearchPageLimit:     viper.GetInt("search_page_limit"),
		UncachedSearchQuota: viper.GetString("uncached_search_quota"),
		OTPQuota:            viper.GetString("otp_quota"),
		MaxBodyBytes:        viper.GetInt64("max_body_bytes"),
		MetricsAuthUsername: viper.GetString("metrics_auth_username"),
		MetricsAuthPassword: viper.GetString("metrics_auth_password"),
	}

	// Normalize database type
	if AppConfig.DatabaseType == "sqlite3" {
		AppConfig.DatabaseType = "sqlite"
	}
	if AppConfig.DatabaseType == "" {
		AppConfig.DatabaseType = "sqlite"
	}
}
