// Package sharedstate is the process-wide typed key/value store: an
// atomic multi-set with a monotonic per-record-type counter, a typed
// load, publish/subscribe on the counter, and idempotent default setup.
// Backed by Redis (HSET for the flattened fields, INCR for the counter,
// both inside a single MULTI/EXEC transaction so readers never observe a
// torn write, and PUBLISH/SUBSCRIBE for waking watchers).
package sharedstate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Store is the shared-state backend. The zero value is not usable; build
// one with New.
type Store struct {
	client *redis.Client
	prefix string
	log    *zap.SugaredLogger
}

// Config configures the Redis connection backing a Store.
type Config struct {
	Addr     string
	Password string
	DB       int
	Prefix   string // key prefix; defaults to "sailcore" if empty
}

// New opens a Store against the given Redis endpoint and verifies
// connectivity with a PING before returning.
func New(ctx context.Context, cfg Config, log *zap.SugaredLogger) (*Store, error) {
	if cfg.Prefix == "" {
		cfg.Prefix = "sailcore"
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("sharedstate: connect to redis at %s: %w", cfg.Addr, err)
	}

	return &Store{client: client, prefix: cfg.Prefix, log: log}, nil
}

// Close releases the underlying Redis connection.
func (s *Store) Close() error {
	return s.client.Close()
}

func (s *Store) hashKey(typeName string) string {
	return s.prefix + ":" + typeName
}

func (s *Store) counterKey(typeName string) string {
	return s.prefix + ":" + typeName + ":count"
}

func (s *Store) channelKey(typeName string) string {
	return s.prefix + ":" + typeName + ":pubsub"
}

// Save atomically persists every flattened field of rec and increments
// its per-record-type counter as a single transaction, then publishes
// the new counter value. Concurrent savers are serialized by Redis'
// MULTI/EXEC; readers (Load) never observe a partial write.
func (s *Store) Save(ctx context.Context, rec Record) error {
	typeName := rec.TypeName()
	hashKey := s.hashKey(typeName)
	counterKey := s.counterKey(typeName)
	fields := rec.Fields()

	values := make([]interface{}, 0, len(fields)*2)
	for k, v := range fields {
		values = append(values, k, v)
	}

	var incr *redis.IntCmd
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(values) > 0 {
			pipe.HSet(ctx, hashKey, values...)
		}
		incr = pipe.Incr(ctx, counterKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("sharedstate: save %s: %w", typeName, err)
	}
	counter := incr.Val()

	if err := s.client.Publish(ctx, s.channelKey(typeName), strconv.FormatInt(counter, 10)).Err(); err != nil {
		return fmt.Errorf("sharedstate: publish %s: %w", typeName, err)
	}

	if s.log != nil {
		s.log.Debugw("sharedstate save", "type", typeName, "counter", counter)
	}
	return nil
}

// Load reads every field of the named record type atomically (a single
// HGETALL is a point-in-time snapshot in Redis) and populates rec. Fields
// absent from the snapshot take rec's existing (zero-value) default per
// Record.Load's contract.
func (s *Store) Load(ctx context.Context, rec Record) error {
	fields, err := s.client.HGetAll(ctx, s.hashKey(rec.TypeName())).Result()
	if err != nil {
		return fmt.Errorf("sharedstate: load %s: %w", rec.TypeName(), err)
	}
	rec.Load(fields)
	return nil
}

// Setup initializes default field values for rec's type only where a
// field is currently absent (idempotent) — analogous to HSETNX per
// field.
func (s *Store) Setup(ctx context.Context, rec Record) error {
	hashKey := s.hashKey(rec.TypeName())
	for k, v := range rec.Fields() {
		if err := s.client.HSetNX(ctx, hashKey, k, v).Err(); err != nil {
			return fmt.Errorf("sharedstate: setup %s field %s: %w", rec.TypeName(), k, err)
		}
	}
	return nil
}

// Subscribe returns a channel emitting the counter value published after
// each Save for typeName, and a cancel function to stop the subscription.
// Guarantees: at-most-one counter value per save; no ordering guarantee
// across distinct record types.
func (s *Store) Subscribe(ctx context.Context, typeName string) (<-chan int64, func() error, error) {
	pubsub := s.client.Subscribe(ctx, s.channelKey(typeName))
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, nil, fmt.Errorf("sharedstate: subscribe %s: %w", typeName, err)
	}

	out := make(chan int64, 16)
	go func() {
		defer close(out)
		for msg := range pubsub.Channel() {
			counter, err := strconv.ParseInt(msg.Payload, 10, 64)
			if err != nil {
				continue
			}
			select {
			case out <- counter:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, pubsub.Close, nil
}
