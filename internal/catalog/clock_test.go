package catalog

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSystemClockNow(t *testing.T) {
	t.Parallel()

	var clk Clock = SystemClock{}

	before := time.Now().UTC().Add(-time.Second)
	got := clk.Now()
	after := time.Now().UTC().Add(time.Second)

	assert.Equal(t, time.UTC, got.Location())
	assert.False(t, got.Before(before))
	assert.False(t, got.After(after))
}
