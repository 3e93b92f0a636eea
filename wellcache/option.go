package wellcache

import (
	"errors"
	"fmt"
)

const (
	defaultLazyCap            = 50
	defaultPreloadConcurrency = 10
)

type config struct {
	lazyCap            int
	preloadConcurrency int
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		lazyCap:            defaultLazyCap,
		preloadConcurrency: defaultPreloadConcurrency,
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithLazyCap sets the soft bound on the number of lazily loaded cache
// entries. Preloaded and saved entries do not count against it.
//
// Default is 50.
func WithLazyCap(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("lazy cap must be at least 1")
		}
		cfg.lazyCap = n
		return nil
	}
}

// WithPreloadConcurrency sets the number of well files PreloadProject reads
// at the same time when it is called with a non-positive maxConcurrent.
//
// Default is 10.
func WithPreloadConcurrency(n int) Option {
	return func(cfg *config) error {
		if n < 1 {
			return errors.New("preload concurrency must be at least 1")
		}
		cfg.preloadConcurrency = n
		return nil
	}
}
