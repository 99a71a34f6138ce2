// internal/jobs/batchetl/config.go
package batchetl

import (
	extractapplications "loan-pipeline/internal/workers/etl/extract-applications"
	loadapplications "loan-pipeline/internal/workers/etl/load-applications"
	scoreapplications "loan-pipeline/internal/workers/etl/score-applications"
	validateapplications "loan-pipeline/internal/workers/etl/validate-applications"
)

// Config bundles the configuration of the four stages.
type Config struct {
	Extract  *extractapplications.Config
	Validate *validateapplications.Config
	Score    *scoreapplications.Config
	Load     *loadapplications.Config
}

func LoadConfig() *Config {
	return &Config{
		Extract:  extractapplications.LoadConfig(),
		Validate: validateapplications.LoadConfig(),
		Score:    scoreapplications.LoadConfig(),
		Load:     loadapplications.LoadConfig(),
	}
}
