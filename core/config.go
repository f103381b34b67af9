package core

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultRefreshBufferSeconds = 180
	DefaultSyncMaxAttempts      = 3
	DefaultSyncBaseDelayMS      = 500
	DefaultCRMBaseURL           = "https://services.leadconnectorhq.com"
	DefaultCRMAPIVersion        = "2021-07-28"
)

type OAuthConfig struct {
	TokenURL             string `koanf:"token_url" mapstructure:"token_url"`
	ClientID             string `koanf:"client_id" mapstructure:"client_id"`
	ClientSecret         string `koanf:"client_secret" mapstructure:"client_secret"`
	RefreshBufferSeconds int    `koanf:"refresh_buffer_seconds" mapstructure:"refresh_buffer_seconds"`
}

// Enabled reports whether refresh credentials are configured. Absence
// disables refresh; private-token connections keep working.
func (c OAuthConfig) Enabled() bool {
	return strings.TrimSpace(c.TokenURL) != "" &&
		strings.TrimSpace(c.ClientID) != "" &&
		strings.TrimSpace(c.ClientSecret) != ""
}

func (c OAuthConfig) RefreshBuffer() time.Duration {
	seconds := c.RefreshBufferSeconds
	if seconds <= 0 {
		seconds = DefaultRefreshBufferSeconds
	}
	return time.Duration(seconds) * time.Second
}

type SyncConfig struct {
	MaxAttempts int `koanf:"max_attempts" mapstructure:"max_attempts"`
	BaseDelayMS int `koanf:"base_delay_ms" mapstructure:"base_delay_ms"`
}

func (c SyncConfig) BaseDelay() time.Duration {
	millis := c.BaseDelayMS
	if millis <= 0 {
		millis = DefaultSyncBaseDelayMS
	}
	return time.Duration(millis) * time.Millisecond
}

func (c SyncConfig) Attempts() int {
	if c.MaxAttempts < 1 {
		return DefaultSyncMaxAttempts
	}
	return c.MaxAttempts
}

type CRMConfig struct {
	BaseURL    string `koanf:"base_url" mapstructure:"base_url"`
	APIVersion string `koanf:"api_version" mapstructure:"api_version"`
}

type Config struct {
	ServiceName string      `koanf:"service_name" mapstructure:"service_name"`
	OAuth       OAuthConfig `koanf:"oauth" mapstructure:"oauth"`
	Sync        SyncConfig  `koanf:"sync" mapstructure:"sync"`
	CRM         CRMConfig   `koanf:"crm" mapstructure:"crm"`
}

func DefaultConfig() Config {
	return Config{
		ServiceName: "onboarding",
		OAuth: OAuthConfig{
			RefreshBufferSeconds: DefaultRefreshBufferSeconds,
		},
		Sync: SyncConfig{
			MaxAttempts: DefaultSyncMaxAttempts,
			BaseDelayMS: DefaultSyncBaseDelayMS,
		},
		CRM: CRMConfig{
			BaseURL:    DefaultCRMBaseURL,
			APIVersion: DefaultCRMAPIVersion,
		},
	}
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.ServiceName) == "" {
		return fmt.Errorf("core: service_name is required")
	}
	if c.Sync.MaxAttempts < 0 {
		return fmt.Errorf("core: sync.max_attempts must not be negative")
	}
	if c.Sync.BaseDelayMS < 0 {
		return fmt.Errorf("core: sync.base_delay_ms must not be negative")
	}
	if strings.TrimSpace(c.CRM.BaseURL) == "" {
		return fmt.Errorf("core: crm.base_url is required")
	}
	return nil
}
