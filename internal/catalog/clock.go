package catalog

import "time"

// SystemClock implements Clock over the wall clock. Timestamps are UTC so
// created_at/updated_at comparisons are zone-independent.
type SystemClock struct{}

// Now returns the current UTC time.
func (SystemClock) Now() time.Time {
	return time.Now().UTC()
}
