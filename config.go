package aibridge

import "github.com/joeshaw/envdecode"

// Config tunes bridge-wide behavior. The zero value is unusable; construct
// it with ConfigFromEnv or fill it explicitly and pass it via WithConfig.
type Config struct {
	// MaxConcurrentStreams bounds the streaming pool. Values below 1 are
	// raised to 1.
	MaxConcurrentStreams int `env:"AIBRIDGE_MAX_CONCURRENT_STREAMS,default=8"`

	// DefaultTemperature is used when an entry point receives a negative
	// temperature.
	DefaultTemperature float64 `env:"AIBRIDGE_DEFAULT_TEMPERATURE,default=0.7"`

	// DefaultMaxTokens is used when an entry point receives a non-positive
	// token limit.
	DefaultMaxTokens int `env:"AIBRIDGE_DEFAULT_MAX_TOKENS,default=1024"`
}

// ConfigFromEnv builds a Config from the environment, falling back to the
// struct-tag defaults for anything unset.
func ConfigFromEnv() Config {
	var cfg Config
	// Defaults are provided via struct tags; decode errors only occur for
	// malformed values, in which case the defaults stand.
	_ = envdecode.Decode(&cfg)
	if cfg.MaxConcurrentStreams < 1 {
		cfg.MaxConcurrentStreams = 1
	}
	return cfg
}
