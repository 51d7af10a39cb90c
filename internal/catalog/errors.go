package catalog

import (
	"errors"
	"fmt"
)

// ErrStructuralMiss indicates expected markup was absent. It is field-local:
// extraction strategies fall through to the next strategy and never retry.
var ErrStructuralMiss = errors.New("expected markup absent")

// permanentError marks an error as non-retryable.
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }

func (e *permanentError) Unwrap() error { return e.err }

// Permanent wraps err so the retrier propagates it immediately without
// consuming retry budget. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// IsPermanent reports whether err was marked with Permanent.
func IsPermanent(err error) bool {
	var pe *permanentError
	return errors.As(err, &pe)
}

// ExhaustedRetriesError is returned when the retry budget is spent. It
// carries the last underlying cause.
type ExhaustedRetriesError struct {
	Attempts int
	Last     error
}

func (e *ExhaustedRetriesError) Error() string {
	return fmt.Sprintf("exhausted %d attempts: %v", e.Attempts, e.Last)
}

func (e *ExhaustedRetriesError) Unwrap() error { return e.Last }

// ExtractionFailedError is terminal for a single product: the page never
// loaded after retries. The orchestrator logs it and moves on.
type ExtractionFailedError struct {
	URL   string
	Cause error
}

func (e *ExtractionFailedError) Error() string {
	return fmt.Sprintf("extract %s: %v", e.URL, e.Cause)
}

func (e *ExtractionFailedError) Unwrap() error { return e.Cause }
