package igd

import "time"

// Config holds the tunables shared by the transports and discovery.
type Config struct {
	// RequestTimeout bounds a single HTTP exchange with the gateway.
	RequestTimeout time.Duration
	// MaxResponseSize caps how much of a response body is read.
	MaxResponseSize int64
	// SearchWait is the SSDP MX value and listen window.
	SearchWait time.Duration
	// DiscoveryTimeout bounds DiscoverGateway.
	DiscoveryTimeout time.Duration
	Retry            RetryConfig
}

// RetryConfig configures RetryTransport. A zero MaxElapsedTime disables retries.
type RetryConfig struct {
	MaxElapsedTime  time.Duration
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

func DefaultConfig() Config {
	return Config{
		RequestTimeout:   10 * time.Second,
		MaxResponseSize:  1 << 20,
		SearchWait:       2 * time.Second,
		DiscoveryTimeout: 10 * time.Second,
		Retry: RetryConfig{
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

// NewTransport returns an HTTPTransport, wrapped in a RetryTransport when
// retries are enabled.
func (c Config) NewTransport() Transport {
	t := NewHTTPTransport(c)
	if c.Retry.MaxElapsedTime <= 0 {
		return t
	}
	return NewRetryTransport(t, c.Retry)
}
