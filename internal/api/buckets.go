package api

import (
	"strconv"
	"sync"
	"time"
)

// bucketCounter accumulates request counts per latency bucket, cumulative
// (each observation increments every bucket it fits under).
type bucketCounter struct {
	mu      sync.Mutex
	total   int64
	buckets map[float64]int64
}

func newBucketCounter() *bucketCounter {
	return &bucketCounter{buckets: map[float64]int64{
		0.005: 0, 0.025: 0, 0.1: 0, 0.5: 0, 1: 0, 5: 0,
	}}
}

func (c *bucketCounter) observe(d time.Duration) {
	secs := d.Seconds()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	for le := range c.buckets {
		if secs <= le {
			c.buckets[le]++
		}
	}
}

// snapshot returns the totals with bucket bounds as strings, ready for JSON.
func (c *bucketCounter) snapshot() (int64, map[string]int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]int64, len(c.buckets))
	for le, n := range c.buckets {
		out[strconv.FormatFloat(le, 'g', -1, 64)] = n
	}
	return c.total, out
}
