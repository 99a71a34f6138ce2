// internal/workers/etl/validate-applications/handler.go
package validateapplications

import (
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"
)

const (
	TaskType = "validate-applications"
)

type Handler struct {
	config *Config
	logger logger.Logger
}

func NewHandler(config *Config, log logger.Logger) *Handler {
	return &Handler{
		config: config,
		logger: log.WithFields(map[string]interface{}{"taskType": TaskType}),
	}
}

// Execute cleans one batch. Rows are never modified, only kept or dropped.
// A batch that cleans down to nothing is a valid result.
func (h *Handler) Execute(input *Input) *Output {
	return h.execute(input)
}

func (h *Handler) execute(input *Input) *Output {
	st := models.QualityStats{
		Initial:          len(input.Applications),
		Removed:          make(map[string]int, 4),
		OutliersByColumn: make(map[string]int, len(h.config.OutlierColumns)),
	}

	rows := ParseRows(input.Applications)

	rows, st.Removed[models.RuleDuplicates] = Deduplicate(rows)
	rows, st.Removed[models.RuleIncomplete] = DropIncomplete(rows)
	rows, st.Removed[models.RuleInvalidRange] = FilterRanges(rows, h.config.MinCreditScore, h.config.MaxCreditScore)

	for _, col := range h.config.OutlierColumns {
		var n int
		rows, n = RemoveOutliers(rows, col)
		st.OutliersByColumn[col] = n
		st.Removed[models.RuleOutliers] += n
	}

	cleaned := make([]models.CleanedApplication, len(rows))
	kept := make(map[int64]struct{}, len(rows))
	for i, r := range rows {
		cleaned[i] = toCleaned(r)
		kept[r.Source.ID] = struct{}{}
	}
	st.Final = len(cleaned)

	rejected := make([]int64, 0, st.Initial-st.Final)
	for _, a := range input.Applications {
		if _, ok := kept[a.ID]; !ok {
			rejected = append(rejected, a.ID)
		}
	}

	h.logger.Info("batch cleaned", map[string]interface{}{
		"initial":      st.Initial,
		"final":        st.Final,
		"duplicates":   st.Removed[models.RuleDuplicates],
		"incomplete":   st.Removed[models.RuleIncomplete],
		"invalidRange": st.Removed[models.RuleInvalidRange],
		"outliers":     st.Removed[models.RuleOutliers],
	})

	return &Output{Applications: cleaned, Rejected: rejected, Stats: st}
}
