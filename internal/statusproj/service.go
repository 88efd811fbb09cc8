package statusproj

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"

	kafkax "github.com/naileastudio/salonpos/internal/kafka"
	"github.com/naileastudio/salonpos/internal/orders"
	"github.com/naileastudio/salonpos/internal/redisx"
)

// StatusCache is the slice of Redis the projector needs.
type StatusCache interface {
	Exists(ctx context.Context, key string) (bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
}

// RedisCache adapts a redis client to StatusCache.
type RedisCache struct{ C *redis.Client }

func (r RedisCache) Exists(ctx context.Context, key string) (bool, error) {
	return redisx.Exists(ctx, r.C, key)
}

func (r RedisCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.C.Set(ctx, key, value, ttl).Err()
}

// Service projects order lifecycle events into the Redis status cache so
// the API's polling path stays off the database.
type Service struct {
	Cache       StatusCache
	ServiceName string
}

// HandleEvent is attached as the consumer handler for all three lifecycle
// topics. The dedup key is written only after the projection landed, so a
// failed write leaves the event unmarked and the redelivery re-projects it.
func (s *Service) HandleEvent(ctx context.Context, m kafkago.Message) error {
	var env orders.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	dkey := fmt.Sprintf(redisx.KeyDedup, s.ServiceName, env.EventID)
	if exists, _ := s.Cache.Exists(ctx, dkey); exists {
		return nil
	}

	var kind orders.Kind
	var uid string
	var status orders.Status

	switch env.EventType {
	case orders.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[orders.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		kind, uid, status = p.Kind, p.OrderUID, orders.StatusPending
	case orders.EventOrderCompleted, orders.EventOrderCancelled:
		p, err := kafkax.UnwrapPayload[orders.OrderStatusPayload](env.Payload)
		if err != nil {
			return err
		}
		kind, uid, status = p.Kind, p.OrderUID, p.Status
	default:
		return nil // ignore
	}

	key := fmt.Sprintf(redisx.KeyOrderStatus, kind, uid)
	body, _ := json.Marshal(map[string]any{"status": status})
	if err := s.Cache.Set(ctx, key, body, redisx.TTLStatusCache); err != nil {
		return err
	}
	_ = s.Cache.Set(ctx, dkey, []byte("1"), redisx.TTLDedup)
	log.Printf("projected %s %s -> %s", kind, uid, status)
	return nil
}
