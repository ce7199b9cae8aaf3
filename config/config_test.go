package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SHOP_APP__JWT_SECRET", "secret")
	t.Setenv("SHOP_GATEWAY__PAYMOB__HMAC_SECRET", "hmac")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, "8080", cfg.App.Port)
	assert.Equal(t, "logs", cfg.App.LogDir)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, "paymob", cfg.Gateway.Provider)
	assert.Equal(t, "EGP", cfg.Gateway.Currency)
	assert.Equal(t, 15*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "https://accept.paymob.com/api", cfg.Gateway.Paymob.BaseURL)
	assert.Equal(t, 3600, cfg.Gateway.Paymob.ExpirationSec)
	assert.Equal(t, 587, cfg.SMTP.Port)
	assert.Equal(t, 24*time.Hour, cfg.Redis.IdempotencyTTL)
}

func TestLoadConfigFileAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
app:
  port: "9090"
  jwt_secret: from-file
db:
  host: db.internal
  name: shop
gateway:
  provider: razorpay
  currency: INR
  timeout: 5s
  razorpay:
    key_id: rzp_test
    key_secret: key-secret
    webhook_secret: hook-secret
redis:
  addr: localhost:6379
`)
	t.Setenv("SHOP_APP__PORT", "7070")
	t.Setenv("SHOP_DB__USER", "shopper")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "7070", cfg.App.Port, "environment wins over the file")
	assert.Equal(t, "from-file", cfg.App.JWTSecret)
	assert.Equal(t, "razorpay", cfg.Gateway.Provider)
	assert.Equal(t, "INR", cfg.Gateway.Currency)
	assert.Equal(t, 5*time.Second, cfg.Gateway.Timeout)
	assert.Equal(t, "hook-secret", cfg.Gateway.Razorpay.WebhookSecret)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
	assert.Equal(t, "host=db.internal port=5432 user=shopper password= dbname=shop sslmode=disable", cfg.DSN())
}

func TestLoadConfigMissingFileIsIgnored(t *testing.T) {
	t.Setenv("SHOP_APP__JWT_SECRET", "secret")
	t.Setenv("SHOP_GATEWAY__PAYMOB__HMAC_SECRET", "hmac")

	_, err := LoadConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.NoError(t, err)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		var c Config
		c.App.JWTSecret = "secret"
		c.Gateway.Provider = "paymob"
		c.Gateway.Paymob.HMACSecret = "hmac"
		return &c
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "no jwt secret", mutate: func(c *Config) { c.App.JWTSecret = "" }, wantErr: "jwt_secret"},
		{name: "paymob without hmac", mutate: func(c *Config) { c.Gateway.Paymob.HMACSecret = "" }, wantErr: "hmac_secret"},
		{name: "razorpay without webhook secret", mutate: func(c *Config) {
			c.Gateway.Provider = "razorpay"
			c.Gateway.Razorpay.KeySecret = "key"
		}, wantErr: "webhook_secret"},
		{name: "unknown provider", mutate: func(c *Config) { c.Gateway.Provider = "stripe" }, wantErr: "stripe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := valid()
			tt.mutate(c)
			err := c.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
