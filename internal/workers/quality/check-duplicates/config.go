// internal/workers/quality/check-duplicates/config.go
package checkduplicates

import "time"

type Config struct {
	Timeout time.Duration
	// SampleSize caps how many duplicate IDs are reported by name.
	SampleSize int
}

func LoadConfig() *Config {
	return &Config{
		Timeout:    time.Minute,
		SampleSize: 5,
	}
}
