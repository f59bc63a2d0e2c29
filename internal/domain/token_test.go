package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenIsExpired(t *testing.T) {
	now := time.Now()

	noExpiry := &Token{}
	assert.False(t, noExpiry.IsExpired(now))

	future := &Token{Expires: now.Add(time.Hour)}
	assert.False(t, future.IsExpired(now))

	past := &Token{Expires: now.Add(-time.Hour)}
	assert.True(t, past.IsExpired(now))

	exact := &Token{Expires: now}
	assert.True(t, exact.IsExpired(now), "a token expires at the instant it reaches its Expires time")
}
