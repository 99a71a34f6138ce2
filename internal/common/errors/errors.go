// Package errors provides the standardized error taxonomy shared by the
// batch scoring job and the quality monitor.
package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"time"
)

// ==========================
// 1. Standard Error Types
// ==========================

// ErrorCode represents standardized internal error codes.
type ErrorCode string

// Run-aborting errors.
const (
	ErrCodeDatabaseConnectionFailed ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeStagingQueryFailed       ErrorCode = "STAGING_QUERY_FAILED"
	ErrCodeMarkProcessedFailed      ErrorCode = "MARK_PROCESSED_FAILED"
	ErrCodeLoadFailed               ErrorCode = "LOAD_FAILED"
	ErrCodeArtifactLoadFailed       ErrorCode = "ARTIFACT_LOAD_FAILED"
	ErrCodeArtifactWidthMismatch    ErrorCode = "ARTIFACT_WIDTH_MISMATCH"
	ErrCodeArtifactSchemaInvalid    ErrorCode = "ARTIFACT_SCHEMA_INVALID"
	ErrCodeQualityCheckFailed       ErrorCode = "QUALITY_CHECK_FAILED"
)

// Row-skippable errors. These never abort a run; they are counted and logged.
const (
	ErrCodeRowScoringFailed     ErrorCode = "ROW_SCORING_FAILED"
	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
)

// Side-channel errors (alerting, report indexing). Logged, never fatal.
const (
	ErrCodeNotificationSendFailed ErrorCode = "NOTIFICATION_SEND_FAILED"
	ErrCodeReportIndexFailed      ErrorCode = "REPORT_INDEX_FAILED"
)

const (
	CategoryFatal = "FATAL"
	CategoryRow   = "ROW"
	CategoryOther = "OTHER"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Cause     error                  `json:"-"`
}

func (e *StandardError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("StandardError[%s]: %s: %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause to errors.Is / errors.As.
func (e *StandardError) Unwrap() error {
	return e.Cause
}

// WithMetadata attaches a key/value pair and returns the same error.
func (e *StandardError) WithMetadata(key string, value interface{}) *StandardError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// ==========================
// 2. Error Constructors
// ==========================

func newError(code ErrorCode, message string, retryable bool, cause error) *StandardError {
	details := ""
	if cause != nil {
		details = cause.Error()
	}
	return &StandardError{
		Code:      code,
		Message:   message,
		Details:   details,
		Retryable: retryable,
		Timestamp: time.Now().UTC(),
		Cause:     cause,
	}
}

// NewDatabaseConnectionFailedError creates a retryable store connectivity error.
func NewDatabaseConnectionFailedError(err error) *StandardError {
	return newError(ErrCodeDatabaseConnectionFailed, "Database connection error", true, err)
}

// NewStagingQueryFailedError creates a retryable extraction error.
func NewStagingQueryFailedError(err error) *StandardError {
	return newError(ErrCodeStagingQueryFailed, "Staging query failed", true, err)
}

// NewMarkProcessedFailedError creates a retryable error for the final processed-flag update.
func NewMarkProcessedFailedError(count int, err error) *StandardError {
	return newError(ErrCodeMarkProcessedFailed, "Failed to mark staging rows processed", true, err).
		WithMetadata("stagingIds", count)
}

// NewLoadFailedError creates a retryable error for a load that committed nothing.
func NewLoadFailedError(err error) *StandardError {
	return newError(ErrCodeLoadFailed, "Production store unavailable, nothing loaded", true, err)
}

// NewArtifactLoadFailedError creates a retryable artifact read error.
func NewArtifactLoadFailedError(path string, err error) *StandardError {
	return newError(ErrCodeArtifactLoadFailed, "Scoring artifact could not be loaded", true, err).
		WithMetadata("path", path)
}

// NewArtifactWidthMismatchError creates a non-retryable configuration error.
func NewArtifactWidthMismatchError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeArtifactWidthMismatch,
		Message:   "Scoring artifact feature width is incompatible",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewArtifactSchemaInvalidError creates a non-retryable artifact document error.
func NewArtifactSchemaInvalidError(path, details string) *StandardError {
	return (&StandardError{
		Code:      ErrCodeArtifactSchemaInvalid,
		Message:   "Scoring artifact document is invalid",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}).WithMetadata("path", path)
}

// NewQualityCheckFailedError creates a retryable monitor check error.
func NewQualityCheckFailedError(check string, err error) *StandardError {
	return newError(ErrCodeQualityCheckFailed, "Quality check failed", true, err).
		WithMetadata("check", check)
}

// NewRowScoringFailedError records a single row that could not be scored.
func NewRowScoringFailedError(stagingID int64, err error) *StandardError {
	return newError(ErrCodeRowScoringFailed, "Row scoring failed", false, err).
		WithMetadata("stagingId", stagingID)
}

// NewDatabaseInsertFailedError records a single row that could not be inserted.
func NewDatabaseInsertFailedError(stagingID int64, err error) *StandardError {
	return newError(ErrCodeDatabaseInsertFailed, "Database insert operation failed", false, err).
		WithMetadata("stagingId", stagingID)
}

// NewNotificationSendFailedError creates a notification delivery error.
func NewNotificationSendFailedError(channel string, err error) *StandardError {
	return newError(ErrCodeNotificationSendFailed, "Notification delivery failed", true, err).
		WithMetadata("channel", channel)
}

// NewReportIndexFailedError creates a report indexing error.
func NewReportIndexFailedError(index string, err error) *StandardError {
	return newError(ErrCodeReportIndexFailed, "Report indexing failed", true, err).
		WithMetadata("index", index)
}

// ==========================
// 3. Utility Functions
// ==========================

// AsStandard returns the first StandardError in err's chain.
func AsStandard(err error) (*StandardError, bool) {
	var stdErr *StandardError
	if stderrors.As(err, &stdErr) {
		return stdErr, true
	}
	return nil, false
}

// IsRetryable reports whether a run that failed with err may be reattempted.
// Errors outside the taxonomy are treated as retryable: the trigger's retry
// budget bounds them anyway.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	if stdErr, ok := AsStandard(err); ok {
		return stdErr.Retryable
	}
	return true
}

// GetErrorCategory returns the taxonomy class of the error code.
func GetErrorCategory(code ErrorCode) string {
	switch code {
	case ErrCodeRowScoringFailed, ErrCodeDatabaseInsertFailed:
		return CategoryRow
	case ErrCodeNotificationSendFailed, ErrCodeReportIndexFailed:
		return CategoryOther
	}
	codeStr := string(code)
	switch {
	case strings.HasPrefix(codeStr, "ARTIFACT"),
		strings.Contains(codeStr, "DATABASE"),
		strings.Contains(codeStr, "QUERY"),
		strings.Contains(codeStr, "FAILED"):
		return CategoryFatal
	default:
		return CategoryOther
	}
}
