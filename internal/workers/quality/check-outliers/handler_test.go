package checkoutliers

import (
	"context"
	"errors"
	"testing"
	"time"

	apperrors "loan-pipeline/internal/common/errors"
	"loan-pipeline/internal/common/logger"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T, columns ...string) (*Handler, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	cfg := LoadConfig()
	cfg.Timeout = time.Second
	if len(columns) > 0 {
		cfg.Columns = columns
	}
	return NewHandler(cfg, db, logger.NewTestLogger(t)), mock
}

func valueRows(column string, values ...float64) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{column})
	for _, v := range values {
		rows.AddRow(v)
	}
	return rows
}

func uniform(n int, base float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = base + float64(i%4)
	}
	return out
}

func TestHandler_Execute_EveryMonitoredColumn(t *testing.T) {
	h, mock := newTestHandler(t)

	incomes := append(uniform(50, 60000), 5_000_000)
	mock.ExpectQuery(`SELECT annual_income FROM simulations WHERE annual_income IS NOT NULL`).
		WillReturnRows(valueRows("annual_income", incomes...))
	mock.ExpectQuery(`SELECT loan_amount FROM simulations`).
		WillReturnRows(valueRows("loan_amount", uniform(30, 20000)...))
	mock.ExpectQuery(`SELECT credit_score FROM simulations`).
		WillReturnRows(valueRows("credit_score", 700, 700, 700))

	out, err := h.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, map[string]int{"annual_income": 1, "loan_amount": 0, "credit_score": 0}, out.Outliers)
	assert.Equal(t, 1, out.Total)
	assert.Equal(t, 51, out.Summaries["annual_income"].Count)
	assert.Equal(t, 0.0, out.Summaries["credit_score"].StdDev)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHandler_Execute_EmptyStore(t *testing.T) {
	h, mock := newTestHandler(t, "annual_income")

	mock.ExpectQuery(`SELECT annual_income`).WillReturnRows(valueRows("annual_income"))

	out, err := h.Execute(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, out.Total)
}

func TestHandler_Execute_UnknownColumn(t *testing.T) {
	h, _ := newTestHandler(t, "client_name; DROP TABLE simulations")

	_, err := h.Execute(context.Background())

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.ErrCodeQualityCheckFailed, stdErr.Code)
}

func TestHandler_Execute_QueryFails(t *testing.T) {
	h, mock := newTestHandler(t, "loan_amount")

	mock.ExpectQuery(`SELECT loan_amount`).WillReturnError(errors.New("connection refused"))

	_, err := h.Execute(context.Background())

	stdErr, ok := apperrors.AsStandard(err)
	require.True(t, ok)
	assert.Equal(t, "loan_amount", stdErr.Metadata["column"])
}
