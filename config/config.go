package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/Govind-619/storefront/utils"
	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variables; "__" separates levels,
// e.g. SHOP_DB__HOST or SHOP_GATEWAY__PAYMOB__API_KEY.
const EnvPrefix = "SHOP_"

// Config holds all configuration for the application
type Config struct {
	App struct {
		Name       string `koanf:"name"`
		Port       string `koanf:"port"`
		Env        string `koanf:"env"`
		JWTSecret  string `koanf:"jwt_secret"`
		LogDir     string `koanf:"log_dir"`
		LogDebug   bool   `koanf:"log_debug"`
		AdminEmail string `koanf:"admin_email"`
		// CORSOrigins lists allowed browser origins; empty allows any.
		CORSOrigins []string `koanf:"cors_origins"`
	} `koanf:"app"`

	DB struct {
		Host     string `koanf:"host"`
		Port     string `koanf:"port"`
		User     string `koanf:"user"`
		Password string `koanf:"password"`
		Name     string `koanf:"name"`
		SSLMode  string `koanf:"sslmode"`
	} `koanf:"db"`

	Gateway GatewayConfig `koanf:"gateway"`

	SMTP SMTPConfig `koanf:"smtp"`

	Redis struct {
		Addr           string        `koanf:"addr"`
		Password       string        `koanf:"password"`
		IdempotencyTTL time.Duration `koanf:"idempotency_ttl"`
	} `koanf:"redis"`
}

// GatewayConfig is handed to the payment gateway adapter at construction.
type GatewayConfig struct {
	Provider string        `koanf:"provider"` // paymob or razorpay
	Currency string        `koanf:"currency"`
	Timeout  time.Duration `koanf:"timeout"`

	Paymob struct {
		BaseURL       string `koanf:"base_url"`
		APIKey        string `koanf:"api_key"`
		IntegrationID int    `koanf:"integration_id"`
		IframeID      string `koanf:"iframe_id"`
		HMACSecret    string `koanf:"hmac_secret"`
		ExpirationSec int    `koanf:"expiration_sec"`
	} `koanf:"paymob"`

	Razorpay struct {
		KeyID         string `koanf:"key_id"`
		KeySecret     string `koanf:"key_secret"`
		WebhookSecret string `koanf:"webhook_secret"`
		CheckoutURL   string `koanf:"checkout_url"`
	} `koanf:"razorpay"`
}

// SMTPConfig configures the email notification sink. An empty Host selects
// the log-only sink.
type SMTPConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
}

// LoadConfig reads .env (if present), then the optional YAML file at path,
// then SHOP_* environment variables, in increasing order of precedence.
func LoadConfig(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error loading .env file: %v", err)
	}

	k := koanf.New(".")
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
				return nil, fmt.Errorf("error loading %s: %v", path, err)
			}
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("error loading environment: %v", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %v", err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) applyDefaults() {
	if c.App.Name == "" {
		c.App.Name = utils.AppName
	}
	if c.App.Port == "" {
		c.App.Port = utils.DefaultPort
	}
	if c.App.Env == "" {
		c.App.Env = "development"
	}
	if c.App.LogDir == "" {
		c.App.LogDir = "logs"
	}
	if c.DB.Port == "" {
		c.DB.Port = "5432"
	}
	if c.DB.SSLMode == "" {
		c.DB.SSLMode = "disable"
	}
	if c.Gateway.Provider == "" {
		c.Gateway.Provider = "paymob"
	}
	if c.Gateway.Currency == "" {
		c.Gateway.Currency = "EGP"
	}
	if c.Gateway.Timeout == 0 {
		c.Gateway.Timeout = 15 * time.Second
	}
	if c.Gateway.Paymob.BaseURL == "" {
		c.Gateway.Paymob.BaseURL = "https://accept.paymob.com/api"
	}
	if c.Gateway.Paymob.ExpirationSec == 0 {
		c.Gateway.Paymob.ExpirationSec = 3600
	}
	if c.SMTP.Port == 0 {
		c.SMTP.Port = 587
	}
	if c.Redis.IdempotencyTTL == 0 {
		c.Redis.IdempotencyTTL = 24 * time.Hour
	}
}

// Validate checks the settings the service cannot start without.
func (c *Config) Validate() error {
	if c.App.JWTSecret == "" {
		return fmt.Errorf("app.jwt_secret required")
	}
	switch c.Gateway.Provider {
	case "paymob":
		if c.Gateway.Paymob.HMACSecret == "" {
			return fmt.Errorf("gateway.paymob.hmac_secret required")
		}
	case "razorpay":
		if c.Gateway.Razorpay.KeySecret == "" || c.Gateway.Razorpay.WebhookSecret == "" {
			return fmt.Errorf("gateway.razorpay.key_secret and webhook_secret required")
		}
	default:
		return fmt.Errorf("unknown gateway.provider %q", c.Gateway.Provider)
	}
	return nil
}

// DSN builds the postgres connection string.
func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host, c.DB.Port, c.DB.User, c.DB.Password, c.DB.Name, c.DB.SSLMode)
}
