package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
)

// Config holds the complete application configuration, loadable from
// environment variables (TEXTILECOM_ prefix), flags, or YAML config files.
type Config struct {
	Addr        string `default:"0.0.0.0:8080" usage:"HTTP server listen address"`
	DatabaseURL string `usage:"PostgreSQL connection URL (TEXTILECOM_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	CartBaseURL string `default:"https://shop.textilecom.example/cart" usage:"Storefront cart URL for abandoned-cart emails" flag:"cart-base-url"`
	Redis       RedisConfig
	Stripe      StripeConfig
	SMTP        SMTPConfig
	Graceful    GracefulConfig
}

// RedisConfig locates the cart side channel shared with the storefront.
type RedisConfig struct {
	Addr     string `default:"localhost:6379" usage:"Redis address" flag:"redis-addr"`
	Password string `default:"" usage:"Redis password" flag:"redis-password"`
	DB       int    `default:"0" usage:"Redis database number" flag:"redis-db"`
}

// StripeConfig holds payment provider credentials.
type StripeConfig struct {
	APIKey        string `usage:"Stripe secret API key (TEXTILECOM_STRIPE_API_KEY)" flag:"stripe-api-key"`
	WebhookSecret string `usage:"Stripe webhook signing secret (TEXTILECOM_STRIPE_WEBHOOK_SECRET)" flag:"stripe-webhook-secret"`
}

// SMTPConfig controls outgoing transactional email. Leaving Host empty
// disables email entirely; the service runs with a no-op dispatcher.
type SMTPConfig struct {
	Host     string `default:"" usage:"SMTP server host (empty disables email)" flag:"smtp-host"`
	Port     int    `default:"587" usage:"SMTP server port" flag:"smtp-port"`
	Username string `default:"" usage:"SMTP username" flag:"smtp-username"`
	Password string `default:"" usage:"SMTP password" flag:"smtp-password"`
	From     string `default:"orders@textilecom.example" usage:"From address for transactional email" flag:"smtp-from"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

// LoadConfig loads configuration from environment variables, YAML config
// files, and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "TEXTILECOM",
		Files:     []string{"config.yaml", "/etc/textilecom/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if cfg.DatabaseURL == "" {
		return nil, errors.New("database URL is required: set TEXTILECOM_DATABASE_URL or DATABASE_URL")
	}
	if cfg.Stripe.WebhookSecret == "" {
		return nil, errors.New("webhook secret is required: set TEXTILECOM_STRIPE_WEBHOOK_SECRET")
	}
	if cfg.Stripe.APIKey == "" {
		return nil, errors.New("API key is required: set TEXTILECOM_STRIPE_API_KEY")
	}

	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's TEXTILECOM_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}
