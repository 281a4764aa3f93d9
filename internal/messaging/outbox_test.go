package messaging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryDelayBacksOff(t *testing.T) {
	assert.Equal(t, 2*time.Second, retryDelay(1))
	assert.Equal(t, 4*time.Second, retryDelay(2))
	assert.Equal(t, 32*time.Second, retryDelay(5))
}

func TestRetryDelayIsClamped(t *testing.T) {
	assert.Equal(t, time.Second, retryDelay(-3), "bad bookkeeping still yields a sane delay")
	assert.Equal(t, 32*time.Second, retryDelay(12), "the backoff never exceeds its ceiling")
}
