// internal/workers/quality/check-missing-values/config.go
package checkmissingvalues

import "time"

type Config struct {
	Timeout time.Duration
}

func LoadConfig() *Config {
	return &Config{
		Timeout: time.Minute,
	}
}
