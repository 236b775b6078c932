package config_test

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"donation-platform/config"
)

func baseEnv() map[string]string {
	return map[string]string{
		"DB_URL":                  "postgres://localhost/donations",
		"JWT_SECRET":              "secret",
		"RAZORPAY_KEY_ID":         "rzp_test_key",
		"RAZORPAY_KEY_SECRET":     "key-secret",
		"RAZORPAY_WEBHOOK_SECRET": "hook-secret",
	}
}

func TestParseDefaults(t *testing.T) {
	cfg, err := config.Parse(env.Options{Environment: baseEnv()})
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, config.GatewayRazorpay, cfg.PaymentGateway)
	assert.Equal(t, "INR", cfg.Currency)
	assert.Equal(t, 14, cfg.TrialDays)
	assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	assert.True(t, cfg.AutoDowngrade)
	assert.False(t, cfg.Debug)
	assert.False(t, cfg.IsProduction())
	assert.False(t, cfg.StripeEnabled())
}

func TestParseRequiresDatabaseURL(t *testing.T) {
	vars := baseEnv()
	delete(vars, "DB_URL")

	_, err := config.Parse(env.Options{Environment: vars})
	require.Error(t, err)
}

func TestParseRejectsIncompleteGateway(t *testing.T) {
	vars := baseEnv()
	delete(vars, "RAZORPAY_WEBHOOK_SECRET")

	_, err := config.Parse(env.Options{Environment: vars})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RAZORPAY_WEBHOOK_SECRET")
}

func TestParseStripeGateway(t *testing.T) {
	vars := baseEnv()
	vars["PAYMENT_GATEWAY"] = "stripe"
	vars["STRIPE_SECRET_KEY"] = "sk_test_123"
	vars["STRIPE_WEBHOOK_SECRET"] = "whsec_123"

	cfg, err := config.Parse(env.Options{Environment: vars})
	require.NoError(t, err)
	assert.True(t, cfg.StripeEnabled())
}

func TestParseUnknownGateway(t *testing.T) {
	vars := baseEnv()
	vars["PAYMENT_GATEWAY"] = "paypal"

	_, err := config.Parse(env.Options{Environment: vars})
	require.Error(t, err)
}
