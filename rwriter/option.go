package rwriter

import (
	"errors"
	"fmt"
)

type config struct {
	wellsPathType string
	preferJson    bool
}

// Option is a function that sets a value in a config.
type Option func(*config) error

// getOpts creates a config and applies Options to it.
func getOpts(opts []Option) (config, error) {
	cfg := config{
		wellsPathType: "wells",
	}
	for i, opt := range opts {
		if err := opt(&cfg); err != nil {
			return config{}, fmt.Errorf("option %d failed: %s", i, err)
		}
	}
	return cfg, nil
}

// WithWellsPathType sets the path element that precedes the project and well
// names in a request path. Default is "wells".
func WithWellsPathType(pathElem string) Option {
	return func(cfg *config) error {
		if pathElem == "" {
			return errors.New("empty path type")
		}
		cfg.wellsPathType = pathElem
		return nil
	}
}

// WithPreferJson makes JSON the response type when the request has no Accept
// header or accepts any media type.
func WithPreferJson(preferJson bool) Option {
	return func(cfg *config) error {
		cfg.preferJson = preferJson
		return nil
	}
}
