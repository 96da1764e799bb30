// Package monitoring installs the Sentry error tracker behind
// core/monitoring.
package monitoring

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	coremon "github.com/kilianp07/techsched/core/monitoring"
)

// SentryConfig configures error reporting. An empty DSN disables it.
type SentryConfig struct {
	DSN              string  `json:"dsn"`
	Environment      string  `json:"environment"`
	Release          string  `json:"release"`
	TracesSampleRate float64 `json:"traces_sample_rate"`
}

// Validate checks the sample rate bounds.
func (c SentryConfig) Validate() error {
	if c.TracesSampleRate < 0 || c.TracesSampleRate > 1 {
		return fmt.Errorf("traces_sample_rate must be within [0,1], got %v", c.TracesSampleRate)
	}
	return nil
}

// NewSentryMonitor initializes Sentry using the provided configuration and
// returns a Monitor implementation.
func NewSentryMonitor(cfg SentryConfig) (coremon.Monitor, error) {
	if cfg.DSN == "" {
		return coremon.NopMonitor{}, nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:              cfg.DSN,
		Environment:      cfg.Environment,
		TracesSampleRate: cfg.TracesSampleRate,
		Release:          cfg.Release,
	})
	if err != nil {
		return nil, err
	}
	return &sentryMonitor{hub: sentry.CurrentHub()}, nil
}

// Setup builds the monitor from cfg and installs it globally. The returned
// function flushes pending events.
func Setup(cfg SentryConfig) (func(), error) {
	m, err := NewSentryMonitor(cfg)
	if err != nil {
		return nil, err
	}
	coremon.Init(m)
	return func() { m.Flush(2 * time.Second) }, nil
}

type sentryMonitor struct {
	hub *sentry.Hub
}

func (s *sentryMonitor) CaptureException(err error, tags map[string]string) {
	if err == nil {
		return
	}
	if len(tags) == 0 {
		s.hub.CaptureException(err)
		return
	}
	s.hub.WithScope(func(scope *sentry.Scope) {
		scope.SetTags(tags)
		s.hub.CaptureException(err)
	})
}

func (s *sentryMonitor) Flush(timeout time.Duration) { s.hub.Flush(timeout) }
