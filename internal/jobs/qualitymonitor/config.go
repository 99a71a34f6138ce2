// internal/jobs/qualitymonitor/config.go
package qualitymonitor

import (
	checkduplicates "loan-pipeline/internal/workers/quality/check-duplicates"
	checkmissingvalues "loan-pipeline/internal/workers/quality/check-missing-values"
	checkoutliers "loan-pipeline/internal/workers/quality/check-outliers"
	generatereport "loan-pipeline/internal/workers/quality/generate-report"
)

type Config struct {
	MissingValues *checkmissingvalues.Config
	Duplicates    *checkduplicates.Config
	Outliers      *checkoutliers.Config
	Report        *generatereport.Config
}

func LoadConfig() *Config {
	return &Config{
		MissingValues: checkmissingvalues.LoadConfig(),
		Duplicates:    checkduplicates.LoadConfig(),
		Outliers:      checkoutliers.LoadConfig(),
		Report:        generatereport.LoadConfig(),
	}
}
