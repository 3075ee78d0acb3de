package llm

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryConfigBackoff(t *testing.T) {
	rc := DefaultRetryConfig()

	tests := []struct {
		attempt int
		base    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{5, 15 * time.Second},
		{10, 15 * time.Second},
	}
	for _, tt := range tests {
		for range 20 {
			got := rc.backoff(tt.attempt)
			assert.GreaterOrEqual(t, got, tt.base*3/4, "attempt %d", tt.attempt)
			assert.LessOrEqual(t, got, tt.base*5/4, "attempt %d", tt.attempt)
		}
	}
}
