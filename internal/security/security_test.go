package security

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIPRateLimiterBurstPerIP(t *testing.T) {
	l := NewIPRateLimiter(0.001, 2)

	assert.True(t, l.Allow("10.0.0.1"))
	assert.True(t, l.Allow("10.0.0.1"))
	assert.False(t, l.Allow("10.0.0.1"))

	assert.True(t, l.Allow("10.0.0.2"), "buckets are per IP")
}
