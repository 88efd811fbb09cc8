package catalog

import (
	"sync"
	"time"
)

// ServicesCache holds the public active-services listing in a single
// time-boxed slot. It is shared by one process only; in a multi-process
// deployment each process carries its own copy, so the worst staleness a
// client can see is the TTL plus one propagation gap. Writers must call
// Invalidate before returning from any catalog service mutation.
type ServicesCache struct {
	mu      sync.Mutex
	value   GroupedServices
	stamped time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewServicesCache(ttl time.Duration) *ServicesCache {
	return &ServicesCache{ttl: ttl, now: time.Now}
}

// Get returns the cached listing and true while the slot is populated and
// younger than the TTL. An expired slot is cleared and reported as a miss.
func (c *ServicesCache) Get() (GroupedServices, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.value == nil {
		return nil, false
	}
	if c.now().Sub(c.stamped) >= c.ttl {
		c.value = nil
		return nil, false
	}
	return c.value, true
}

func (c *ServicesCache) Populate(v GroupedServices) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = v
	c.stamped = c.now()
}

// Invalidate empties the slot regardless of age. The next Get is a miss.
func (c *ServicesCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.value = nil
}

type CacheStatus struct {
	Cached  bool  `json:"cached"`
	AgeMS   int64 `json:"age_ms,omitempty"`
	Expired bool  `json:"expired,omitempty"`
	TTLMS   int64 `json:"ttl_ms"`
}

// Status reports the slot state for the debug endpoint. It never clears.
func (c *ServicesCache) Status() CacheStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	st := CacheStatus{TTLMS: c.ttl.Milliseconds()}
	if c.value == nil {
		return st
	}
	age := c.now().Sub(c.stamped)
	st.Cached = true
	st.AgeMS = age.Milliseconds()
	st.Expired = age >= c.ttl
	return st
}
