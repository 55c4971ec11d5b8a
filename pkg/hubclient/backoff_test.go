package hubclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestReconnectDelay(t *testing.T) {
	assert.Equal(t, time.Duration(0), ReconnectDelay(0))
	assert.Equal(t, 2*time.Second, ReconnectDelay(1))
	assert.Equal(t, 10*time.Second, ReconnectDelay(2))
	assert.Equal(t, 30*time.Second, ReconnectDelay(3))
}

func TestReconnectDelayStaysSteady(t *testing.T) {
	// Past the ramp-up the schedule holds at the last step forever.
	for attempt := 4; attempt < 100; attempt++ {
		assert.Equal(t, 30*time.Second, ReconnectDelay(attempt))
	}
}

func TestReconnectDelayNegativeAttempt(t *testing.T) {
	assert.Equal(t, time.Duration(0), ReconnectDelay(-1))
}
