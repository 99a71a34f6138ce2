// Package reporting publishes run summaries and quality reports to
// Elasticsearch for dashboards.
package reporting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"
	"loan-pipeline/internal/models"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
)

const (
	DefaultRunsIndex    = "loan-pipeline-runs"
	DefaultQualityIndex = "loan-pipeline-quality"
)

// ElasticsearchSink indexes one document per run or report, keyed by its id
// so that a retried publish overwrites instead of duplicating.
type ElasticsearchSink struct {
	client       *elasticsearch.Client
	runsIndex    string
	qualityIndex string
	logger       logger.Logger
}

func NewElasticsearchSink(client *elasticsearch.Client, runsIndex, qualityIndex string, log logger.Logger) *ElasticsearchSink {
	if runsIndex == "" {
		runsIndex = DefaultRunsIndex
	}
	if qualityIndex == "" {
		qualityIndex = DefaultQualityIndex
	}
	return &ElasticsearchSink{
		client:       client,
		runsIndex:    runsIndex,
		qualityIndex: qualityIndex,
		logger:       log.WithFields(map[string]interface{}{"component": "elasticsearch-sink"}),
	}
}

func (s *ElasticsearchSink) PublishRun(ctx context.Context, summary *models.RunSummary) error {
	doc := struct {
		*models.RunSummary
		Job        string `json:"job"`
		DurationMs int64  `json:"durationMs"`
	}{summary, models.JobETL, summary.Duration.Milliseconds()}
	return s.index(ctx, s.runsIndex, summary.RunID, doc)
}

func (s *ElasticsearchSink) PublishQuality(ctx context.Context, report *models.QualityReport) error {
	return s.index(ctx, s.qualityIndex, report.ID, report)
}

func (s *ElasticsearchSink) index(ctx context.Context, index, id string, doc interface{}) error {
	body, err := json.Marshal(doc)
	if err != nil {
		return apperrors.NewReportIndexFailedError(index, err)
	}

	req := esapi.IndexRequest{
		Index:      index,
		DocumentID: id,
		Body:       bytes.NewReader(body),
	}

	res, err := req.Do(ctx, s.client)
	if err != nil {
		return apperrors.NewReportIndexFailedError(index, err)
	}
	defer res.Body.Close()

	if res.IsError() {
		msg, _ := io.ReadAll(res.Body)
		return apperrors.NewReportIndexFailedError(index, fmt.Errorf("%s: %s", res.Status(), msg))
	}

	s.logger.Debug("Document indexed", map[string]interface{}{
		"index": index,
		"id":    id,
	})
	return nil
}
