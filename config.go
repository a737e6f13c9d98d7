package tokenmeter

import (
	"os"
	"strings"

	"go.uber.org/zap"
)

const defaultEventName = "token_meter"

// Config holds the configuration for the token metering middleware.
type Config struct {
	// APIKey is the Stripe secret key (required, "sk_" or "rk_" prefix).
	APIKey string

	// CustomerID is the default billing customer. Optional when every call
	// carries a WithCustomer context override.
	CustomerID string

	// EventName identifies the billing meter receiving token events.
	// Defaults to "token_meter".
	EventName string

	// Debug enables debug-level logging.
	Debug bool

	// Logger is an optional zap logger backing the middleware logs.
	Logger *zap.Logger

	// Submitter is an optional override for the Stripe-backed event
	// submitter. Used by tests and alternative billing backends.
	Submitter EventSubmitter
}

// Option is a functional option for configuring a Meter.
type Option func(*Config)

// WithAPIKey sets the Stripe secret key.
func WithAPIKey(key string) Option {
	return func(c *Config) { c.APIKey = key }
}

// WithCustomerID sets the default billing customer.
func WithCustomerID(id string) Option {
	return func(c *Config) { c.CustomerID = id }
}

// WithEventName sets the billing meter event name.
func WithEventName(name string) Option {
	return func(c *Config) { c.EventName = name }
}

// WithDebug enables debug-level logging.
func WithDebug(debug bool) Option {
	return func(c *Config) { c.Debug = debug }
}

// WithLogger sets the zap logger backing the middleware logs.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) { c.Logger = logger }
}

// WithEventSubmitter sets a custom billing event submitter.
func WithEventSubmitter(s EventSubmitter) Option {
	return func(c *Config) { c.Submitter = s }
}

func loadFromEnv(c *Config) {
	if v := os.Getenv("STRIPE_SECRET_KEY"); v != "" && c.APIKey == "" {
		c.APIKey = v
	}
	if v := os.Getenv("STRIPE_CUSTOMER_ID"); v != "" && c.CustomerID == "" {
		c.CustomerID = v
	}
	if v := os.Getenv("TOKEN_METER_EVENT_NAME"); v != "" && c.EventName == "" {
		c.EventName = v
	}
	if v := os.Getenv("TOKEN_METER_DEBUG"); v != "" && !c.Debug {
		c.Debug = v == "1" || strings.EqualFold(v, "true")
	}
}

func (c *Config) validate() error {
	if c.APIKey == "" {
		return newConfigError("Stripe API key is required", nil)
	}
	if !strings.HasPrefix(c.APIKey, "sk_") && !strings.HasPrefix(c.APIKey, "rk_") {
		return newConfigError("Stripe API key must start with \"sk_\" or \"rk_\"", nil)
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.EventName == "" {
		c.EventName = defaultEventName
	}
}
