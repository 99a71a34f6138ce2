// internal/workers/etl/validate-applications/config.go
package validateapplications

// Config holds the validity bounds applied by the range rule.
type Config struct {
	MinCreditScore float64
	MaxCreditScore float64
	// OutlierColumns are filtered in order; each column's statistics are
	// computed on the rows the previous column left behind.
	OutlierColumns []string
}

func LoadConfig() *Config {
	return &Config{
		MinCreditScore: 300,
		MaxCreditScore: 850,
		OutlierColumns: []string{ColumnAnnualIncome, ColumnLoanAmount},
	}
}
