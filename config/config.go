package config

import (
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const (
	GatewayRazorpay = "razorpay"
	GatewayStripe   = "stripe"
)

type Config struct {
	Port    string `env:"PORT" envDefault:"8080"`
	AppEnv  string `env:"APP_ENV" envDefault:"development"`
	Debug   bool   `env:"DEBUG" envDefault:"false"`
	LogJSON bool   `env:"LOG_JSON"`

	DBURL          string `env:"DB_URL,required"`
	DBMaxOpenConns int    `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
	DBMaxIdleConns int    `env:"DB_MAX_IDLE_CONNS" envDefault:"5"`

	JWTSecret  string `env:"JWT_SECRET,required"`
	CORSOrigin string `env:"CORS_ORIGIN" envDefault:"http://localhost:5173"`

	PaymentGateway        string `env:"PAYMENT_GATEWAY" envDefault:"razorpay"`
	RazorpayKeyID         string `env:"RAZORPAY_KEY_ID"`
	RazorpayKeySecret     string `env:"RAZORPAY_KEY_SECRET"`
	RazorpayWebhookSecret string `env:"RAZORPAY_WEBHOOK_SECRET"`
	StripeSecretKey       string `env:"STRIPE_SECRET_KEY"`
	StripePublishableKey  string `env:"STRIPE_PUBLISHABLE_KEY"`
	StripeWebhookSecret   string `env:"STRIPE_WEBHOOK_SECRET"`

	PlansFile     string        `env:"PLANS_FILE" envDefault:"plans.yaml"`
	Currency      string        `env:"CURRENCY" envDefault:"INR"`
	TaxRate       string        `env:"TAX_RATE" envDefault:"0"`
	TrialDays     int           `env:"TRIAL_DAYS" envDefault:"14"`
	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"15m"`
	AutoDowngrade bool          `env:"AUTO_DOWNGRADE" envDefault:"true"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	SenderEmail          string `env:"SENDER_EMAIL" envDefault:"noreply@localhost"`
	NotifyWorkers        int    `env:"NOTIFY_WORKERS" envDefault:"2"`
	NotifyBuffer         int    `env:"NOTIFY_BUFFER" envDefault:"256"`
}

// Load reads .env (if present) and parses the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}
	return Parse(env.Options{})
}

// Parse parses configuration with the given options. Tests pass an
// Environment map instead of touching the process environment.
func Parse(opts env.Options) (*Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.PaymentGateway {
	case GatewayRazorpay:
		if c.RazorpayKeyID == "" || c.RazorpayKeySecret == "" || c.RazorpayWebhookSecret == "" {
			return errors.New("razorpay gateway requires RAZORPAY_KEY_ID, RAZORPAY_KEY_SECRET and RAZORPAY_WEBHOOK_SECRET")
		}
	case GatewayStripe:
		if c.StripeSecretKey == "" || c.StripeWebhookSecret == "" {
			return errors.New("stripe gateway requires STRIPE_SECRET_KEY and STRIPE_WEBHOOK_SECRET")
		}
	default:
		return fmt.Errorf("unknown PAYMENT_GATEWAY %q", c.PaymentGateway)
	}
	if c.TrialDays < 0 {
		return errors.New("TRIAL_DAYS must not be negative")
	}
	if c.NotifyWorkers < 1 {
		c.NotifyWorkers = 1
	}
	return nil
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

// StripeEnabled reports whether Stripe API credentials are present,
// independent of which gateway settles payments.
func (c *Config) StripeEnabled() bool {
	return c.StripeSecretKey != ""
}
