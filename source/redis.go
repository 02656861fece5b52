package source

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/redis/go-redis/v9"
)

const (
	redisReadyKey  = "consentgate:ready"
	redisGrantsKey = "consentgate:grants"

	readyChannel   = "consentgate:events:ready"
	changedChannel = "consentgate:events:changed"
)

// Redis is a consent source backed by Redis: grant state lives in a hash,
// readiness in a string key, and notifications arrive over pub/sub. Lookup
// errors degrade to "not granted" rather than surfacing, matching the
// contract that source unavailability means denied.
type Redis struct {
	client *redis.Client
	logger *slog.Logger

	mu     sync.Mutex
	subs   map[Event]map[int]func()
	nextID int

	pubsub *redis.PubSub
	done   chan struct{}
}

// NewRedis starts the pub/sub listener and returns the source. Close must be
// called to release the subscription.
func NewRedis(client *redis.Client, logger *slog.Logger) (*Redis, error) {
	if client == nil {
		return nil, fmt.Errorf("redis client is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Redis{
		client: client,
		logger: logger,
		subs:   make(map[Event]map[int]func()),
		done:   make(chan struct{}),
	}
	s.pubsub = client.Subscribe(context.Background(), readyChannel, changedChannel)
	go s.run()
	return s, nil
}

// Ready reports whether the readiness key has been set.
func (s *Redis) Ready() bool {
	v, err := s.client.Get(context.Background(), redisReadyKey).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("consent source readiness lookup failed", "error", err)
		}
		return false
	}
	return v == "1"
}

// Granted reports the stored grant state for an identifier.
func (s *Redis) Granted(identifier string) bool {
	v, err := s.client.HGet(context.Background(), redisGrantsKey, identifier).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("consent source grant lookup failed", "identifier", identifier, "error", err)
		}
		return false
	}
	return v == "1"
}

// Subscribe registers fn for the named event.
func (s *Redis) Subscribe(event Event, fn func()) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.subs[event] == nil {
		s.subs[event] = make(map[int]func())
	}
	id := s.nextID
	s.nextID++
	s.subs[event][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs[event], id)
	}
}

// SetReady marks the source available and publishes the ready notification.
func (s *Redis) SetReady(ctx context.Context) error {
	if err := s.client.Set(ctx, redisReadyKey, "1", 0).Err(); err != nil {
		return fmt.Errorf("set readiness: %w", err)
	}
	if err := s.client.Publish(ctx, readyChannel, "1").Err(); err != nil {
		return fmt.Errorf("publish readiness: %w", err)
	}
	return nil
}

// SetGrant stores a grant decision and publishes the changed notification.
func (s *Redis) SetGrant(ctx context.Context, identifier string, granted bool) error {
	v := "0"
	if granted {
		v = "1"
	}
	if err := s.client.HSet(ctx, redisGrantsKey, identifier, v).Err(); err != nil {
		return fmt.Errorf("set grant: %w", err)
	}
	if err := s.client.Publish(ctx, changedChannel, identifier).Err(); err != nil {
		return fmt.Errorf("publish change: %w", err)
	}
	return nil
}

// Close stops the pub/sub listener. Pending notifications are dropped.
func (s *Redis) Close() error {
	select {
	case <-s.done:
		return nil
	default:
	}
	close(s.done)
	return s.pubsub.Close()
}

// run dispatches pub/sub messages to local subscribers one at a time, so no
// two callbacks execute concurrently against the gating state.
func (s *Redis) run() {
	ch := s.pubsub.Channel()
	for {
		select {
		case <-s.done:
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			switch msg.Channel {
			case readyChannel:
				s.notify(EventReady)
			case changedChannel:
				s.notify(EventChanged)
			}
		}
	}
}

func (s *Redis) notify(event Event) {
	s.mu.Lock()
	fns := make([]func(), 0, len(s.subs[event]))
	for _, fn := range s.subs[event] {
		fns = append(fns, fn)
	}
	s.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}
