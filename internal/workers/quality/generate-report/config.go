// internal/workers/quality/generate-report/config.go
package generatereport

type Config struct {
	// AttentionThreshold is the issue total from which a report needs attention.
	AttentionThreshold int
}

func LoadConfig() *Config {
	return &Config{
		AttentionThreshold: 10,
	}
}
