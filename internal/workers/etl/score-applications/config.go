// internal/workers/etl/score-applications/config.go
package scoreapplications

type Config struct {
	// Workers bounds how many rows are scored concurrently.
	Workers int
}

func LoadConfig() *Config {
	return &Config{
		Workers: 4,
	}
}
