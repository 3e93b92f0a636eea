package inspect

import (
	"errors"
	"fmt"
	"time"
)

const defaultPreloadTimeout = 5 * time.Minute

type config struct {
	maxPreloadConcurrency int
	preloadTimeout        time.Duration
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		preloadTimeout: defaultPreloadTimeout,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithMaxPreloadConcurrency limits the concurrency a preload request may ask
// for. Zero means no limit.
func WithMaxPreloadConcurrency(n int) Option {
	return func(cfg *config) error {
		if n < 0 {
			return errors.New("max preload concurrency must not be negative")
		}
		cfg.maxPreloadConcurrency = n
		return nil
	}
}

// WithPreloadTimeout bounds how long a preload request may run. Default is
// 5 minutes.
func WithPreloadTimeout(d time.Duration) Option {
	return func(cfg *config) error {
		if d <= 0 {
			return errors.New("preload timeout must be positive")
		}
		cfg.preloadTimeout = d
		return nil
	}
}
