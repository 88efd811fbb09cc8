package redisx

import "time"

const (
	// Cache status order: order_status:{kind}:{uid} -> {"status": "...", "updated_at": "..."}
	KeyOrderStatus = "order_status:%s:%s"

	// Dedup event processing: dedup:{service}:{event_id}
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLStatusCache = 5 * time.Minute
	TTLDedup       = 48 * time.Hour
)
