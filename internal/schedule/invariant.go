package schedule

import (
	"github.com/cockroachdb/errors"

	"github.com/Guocork/sui/internal/logger"
)

// invariantf logs and panics with an assertion failure. Only for batches
// no consistent caller can produce.
func invariantf(format string, args ...any) {
	err := errors.AssertionFailedf(format, args...)
	logger.Error("version assignment invariant violated", "error", err)
	panic(err)
}
