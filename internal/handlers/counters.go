package handlers

import (
	"sync/atomic"
	"time"
)

// Counters tracks server activity since start
type Counters struct {
	started          time.Time
	messagesReceived atomic.Int64
	connections      atomic.Int64
}

// NewCounters creates a counter set anchored at the current time
func NewCounters() *Counters {
	return &Counters{started: time.Now()}
}

// MessageReceived records one admitted webhook event
func (c *Counters) MessageReceived() {
	c.messagesReceived.Add(1)
}

// ConnectionServed records one handled HTTP request
func (c *Counters) ConnectionServed() {
	c.connections.Add(1)
}

// MessagesReceived returns the number of admitted webhook events
func (c *Counters) MessagesReceived() int64 {
	return c.messagesReceived.Load()
}

// Connections returns the number of handled HTTP requests
func (c *Counters) Connections() int64 {
	return c.connections.Load()
}

// Uptime returns the time elapsed since the counters were created
func (c *Counters) Uptime() time.Duration {
	return time.Since(c.started)
}
