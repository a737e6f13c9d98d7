package tokenmeter

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v78"
	"github.com/stripe/stripe-go/v78/billing/meterevent"
)

// Payload keys and token_type values for submitted meter events.
const (
	payloadCustomer  = "stripe_customer_id"
	payloadValue     = "value"
	payloadModel     = "model"
	payloadTokenType = "token_type"

	tokenTypeInput  = "input"
	tokenTypeOutput = "output"
)

const submitTimeout = 30 * time.Second

// EventSubmitter submits a single billing meter event.
type EventSubmitter interface {
	Submit(ctx context.Context, eventName string, payload map[string]string) error
}

// stripeSubmitter submits meter events through the Stripe billing API.
type stripeSubmitter struct {
	client meterevent.Client
}

func newStripeSubmitter(apiKey string) *stripeSubmitter {
	return &stripeSubmitter{client: meterevent.Client{
		B:   stripe.GetBackend(stripe.APIBackend),
		Key: apiKey,
	}}
}

func (s *stripeSubmitter) Submit(ctx context.Context, eventName string, payload map[string]string) error {
	params := &stripe.BillingMeterEventParams{
		EventName: stripe.String(eventName),
		// Idempotency identifier: one per submitted event.
		Identifier: stripe.String(uuid.New().String()),
		Payload:    payload,
	}
	params.Context = ctx
	if _, err := s.client.New(params); err != nil {
		return newBillingError("meter event submission failed", err)
	}
	return nil
}

// Meter is the core metering client. It turns canonical usage records into
// Stripe billing meter events, asynchronously and best-effort: submissions
// never block the caller and their failures never propagate.
type Meter struct {
	cfg       *Config
	logger    *Logger
	submitter EventSubmitter
	wg        sync.WaitGroup
}

// NewMeter creates a new Meter with the given options. Configuration is
// validated eagerly: a missing or malformed Stripe key fails here, before
// any provider call is wrapped.
func NewMeter(opts ...Option) (*Meter, error) {
	cfg := &Config{}
	for _, opt := range opts {
		opt(cfg)
	}
	loadFromEnv(cfg)
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	registerAppInfo()
	sub := cfg.Submitter
	if sub == nil {
		sub = newStripeSubmitter(cfg.APIKey)
	}
	return &Meter{
		cfg:       cfg,
		logger:    newLogger(cfg.Debug, cfg.Logger),
		submitter: sub,
	}, nil
}

// resolveCustomer returns the billing customer for one call: the context
// override when present, otherwise the configured default. Called before the
// upstream provider call so an unbillable call fails eagerly.
func (m *Meter) resolveCustomer(ctx context.Context) (string, error) {
	if id, ok := CustomerFromContext(ctx); ok {
		return id, nil
	}
	if m.cfg.CustomerID != "" {
		return m.cfg.CustomerID, nil
	}
	return "", newConfigError("no billing customer: configure WithCustomerID or pass WithCustomer on the context", nil)
}

// RecordUsageAsync submits the two meter events for one logical call, one
// for input tokens and one for output tokens. It never blocks the caller.
// Each submission uses a detached context so metering is not canceled when
// the caller's request context ends, and is attempted exactly once: failures
// are logged and the usage is dropped.
func (m *Meter) RecordUsageAsync(_ context.Context, info UsageInfo, customerID string) {
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				m.logger.Error("metering goroutine panic: %v", r)
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
		defer cancel()
		m.submit(ctx, info, customerID)
	}()
}

// Flush waits for all pending async submissions to complete. Call before
// shutdown so in-flight usage is not lost.
func (m *Meter) Flush() {
	m.wg.Wait()
}

func (m *Meter) submit(ctx context.Context, info UsageInfo, customerID string) {
	events := []struct {
		tokenType string
		value     int
	}{
		{tokenTypeInput, info.InputTokens},
		{tokenTypeOutput, info.OutputTokens},
	}
	for _, ev := range events {
		payload := map[string]string{
			payloadCustomer:  customerID,
			payloadValue:     strconv.Itoa(ev.value),
			payloadTokenType: ev.tokenType,
		}
		if info.Model != "" {
			payload[payloadModel] = info.Model
		}
		if err := m.submitter.Submit(ctx, m.cfg.EventName, payload); err != nil {
			m.logger.Warn("meter event dropped (provider=%s model=%s %s=%d): %v",
				info.Provider, info.Model, ev.tokenType, ev.value, err)
			continue
		}
		m.logger.Debug("meter event sent: customer=%s provider=%s model=%s %s=%d",
			customerID, info.Provider, info.Model, ev.tokenType, ev.value)
	}
}
