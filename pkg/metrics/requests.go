package metrics

import "sync"

// RequestCounter holds in-memory request totals per endpoint.
type RequestCounter struct {
	mu         sync.RWMutex
	total      uint64
	byEndpoint map[string]uint64
	byStatus   map[int]uint64
}

// RequestSnapshot is a point-in-time copy of the counters.
type RequestSnapshot struct {
	TotalRequests      uint64            `json:"totalRequests"`
	RequestsByEndpoint map[string]uint64 `json:"requestsByEndpoint"`
	RequestsByStatus   map[int]uint64    `json:"requestsByStatus"`
}

// NewRequestCounter constructs an empty counter.
func NewRequestCounter() *RequestCounter {
	return &RequestCounter{
		byEndpoint: make(map[string]uint64),
		byStatus:   make(map[int]uint64),
	}
}

// Observe records one completed request.
func (c *RequestCounter) Observe(endpoint string, status int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.total++
	c.byEndpoint[endpoint]++
	c.byStatus[status]++
}

// Snapshot copies the current counters.
func (c *RequestCounter) Snapshot() RequestSnapshot {
	c.mu.RLock()
	defer c.mu.RUnlock()
	endpoints := make(map[string]uint64, len(c.byEndpoint))
	for k, v := range c.byEndpoint {
		endpoints[k] = v
	}
	statuses := make(map[int]uint64, len(c.byStatus))
	for k, v := range c.byStatus {
		statuses[k] = v
	}
	return RequestSnapshot{
		TotalRequests:      c.total,
		RequestsByEndpoint: endpoints,
		RequestsByStatus:   statuses,
	}
}
