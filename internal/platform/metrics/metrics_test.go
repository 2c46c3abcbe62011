package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCollectorSnapshot(t *testing.T) {
	c := New()
	c.Record(200, 10*time.Millisecond)
	c.Record(500, 30*time.Millisecond)
	c.Record(429, 0)
	c.RecordTransition("leave:pending->pending_hr")
	c.RecordTransition("leave:pending->pending_hr")
	c.RecordRejection("INVALID_TRANSITION")
	c.RecordNotificationFailure()

	snap := c.Snapshot()
	assert.Equal(t, uint64(3), snap["requestsTotal"])
	assert.Equal(t, uint64(1), snap["errorsTotal"])
	assert.Equal(t, uint64(1), snap["rateLimitedTotal"])
	assert.InDelta(t, 13.33, snap["avgDurationMs"], 0.01)
	assert.Equal(t, map[string]uint64{"leave:pending->pending_hr": 2}, snap["transitions"])
	assert.Equal(t, map[string]uint64{"INVALID_TRANSITION": 1}, snap["rejections"])
	assert.Equal(t, uint64(1), snap["notificationFailuresTotal"])
}

func TestNilCollectorIsSafe(t *testing.T) {
	var c *Collector
	c.Record(200, time.Second)
	c.RecordTransition("x")
	c.RecordNotificationFailure()
	assert.Empty(t, c.Snapshot())
}
