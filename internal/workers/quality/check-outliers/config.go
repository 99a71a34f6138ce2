// internal/workers/quality/check-outliers/config.go
package checkoutliers

import "time"

type Config struct {
	Timeout time.Duration
	Columns []string
}

func LoadConfig() *Config {
	return &Config{
		Timeout: 2 * time.Minute,
		Columns: []string{"annual_income", "loan_amount", "credit_score"},
	}
}
