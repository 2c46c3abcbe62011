package metrics

import (
	"sync"
	"sync/atomic"
	"time"
)

// Collector keeps process-local counters exposed on /metrics. A nil
// *Collector is valid and records nothing.
type Collector struct {
	totalRequests   uint64
	errorRequests   uint64
	rateLimited     uint64
	totalDurationMs uint64

	notificationFailures uint64
	eventFailures        uint64

	mu          sync.Mutex
	transitions map[string]uint64
	rejections  map[string]uint64
}

func New() *Collector {
	return &Collector{
		transitions: map[string]uint64{},
		rejections:  map[string]uint64{},
	}
}

func (c *Collector) Record(status int, duration time.Duration) {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.totalRequests, 1)
	if status >= 500 {
		atomic.AddUint64(&c.errorRequests, 1)
	}
	if status == 429 {
		atomic.AddUint64(&c.rateLimited, 1)
	}
	atomic.AddUint64(&c.totalDurationMs, uint64(duration.Milliseconds()))
}

// RecordTransition counts a committed workflow transition, keyed like
// "leave:pending->pending_hr".
func (c *Collector) RecordTransition(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.transitions[key]++
	c.mu.Unlock()
}

// RecordRejection counts a workflow operation refused with an error code.
func (c *Collector) RecordRejection(code string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.rejections[code]++
	c.mu.Unlock()
}

func (c *Collector) RecordNotificationFailure() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.notificationFailures, 1)
}

func (c *Collector) RecordEventFailure() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.eventFailures, 1)
}

func (c *Collector) Snapshot() map[string]any {
	if c == nil {
		return map[string]any{}
	}
	total := atomic.LoadUint64(&c.totalRequests)
	errs := atomic.LoadUint64(&c.errorRequests)
	limited := atomic.LoadUint64(&c.rateLimited)
	totalMs := atomic.LoadUint64(&c.totalDurationMs)
	avg := float64(0)
	if total > 0 {
		avg = float64(totalMs) / float64(total)
	}

	c.mu.Lock()
	transitions := make(map[string]uint64, len(c.transitions))
	for k, v := range c.transitions {
		transitions[k] = v
	}
	rejections := make(map[string]uint64, len(c.rejections))
	for k, v := range c.rejections {
		rejections[k] = v
	}
	c.mu.Unlock()

	return map[string]any{
		"requestsTotal":             total,
		"errorsTotal":               errs,
		"rateLimitedTotal":          limited,
		"avgDurationMs":             avg,
		"totalDurationMs":           totalMs,
		"transitions":               transitions,
		"rejections":                rejections,
		"notificationFailuresTotal": atomic.LoadUint64(&c.notificationFailures),
		"eventFailuresTotal":        atomic.LoadUint64(&c.eventFailures),
	}
}
