// internal/workers/etl/load-applications/classify.go
package loadapplications

import (
	"context"
	"database/sql/driver"
	"errors"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
)

const (
	failureRow   = "row"
	failureStore = "store"
)

// classifyInsertError separates failures caused by the row itself
// (constraint violations, bad values) from failures of the store, after
// which further inserts in the same run are pointless.
func classifyInsertError(err error) string {
	if errors.Is(err, driver.ErrBadConn) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) {
		return failureStore
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		code := string(pqErr.Code)
		switch {
		case pgerrcode.IsConnectionException(code),
			pgerrcode.IsInsufficientResources(code),
			pgerrcode.IsOperatorIntervention(code),
			pgerrcode.IsSystemError(code):
			return failureStore
		}
		return failureRow
	}

	return failureRow
}
