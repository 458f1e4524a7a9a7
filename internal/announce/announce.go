// Package announce fans a published build out over Redis so downstream
// consumers (mirrors, notifiers, dashboards) learn about it without polling
// the distribution service.
//
// Announcing happens strictly after the service has accepted the build. The
// service stays authoritative: an announce failure never turns a successful
// publish into a failed one.
//
// Key pattern: fill:{project}:build:{version}:{build}
// Channel pattern: fill:{project}:build_events
package announce

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"

	"github.com/dyluth/fill/pkg/fill"
)

// BuildKey returns the Redis key a published record is stored under.
func BuildKey(project, version string, build int) string {
	return fmt.Sprintf("fill:%s:build:%s:%d", project, version, build)
}

// LatestKey returns the Redis key holding the most recently announced
// build number of each version, as a hash of version -> build.
func LatestKey(project string) string {
	return fmt.Sprintf("fill:%s:latest", project)
}

// BuildEventsChannel returns the Pub/Sub channel published builds are sent on.
func BuildEventsChannel(project string) string {
	return fmt.Sprintf("fill:%s:build_events", project)
}

// Announcer writes published records to Redis and publishes an event for each.
// It is safe for concurrent use.
type Announcer struct {
	rdb *redis.Client
}

// NewAnnouncer creates an announcer from a redis:// URL.
func NewAnnouncer(redisURL string) (*Announcer, error) {
	if redisURL == "" {
		return nil, fill.MissingField("announce.redis_url")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, &fill.Error{Kind: fill.KindConfigurationInvalid, Field: "announce.redis_url", Err: err}
	}

	return &Announcer{rdb: redis.NewClient(opts)}, nil
}

// NewAnnouncerWithOptions creates an announcer from explicit connection options.
func NewAnnouncerWithOptions(opts *redis.Options) *Announcer {
	return &Announcer{rdb: redis.NewClient(opts)}
}

// Close closes the Redis connection.
func (a *Announcer) Close() error {
	return a.rdb.Close()
}

// Ping verifies Redis connectivity.
func (a *Announcer) Ping(ctx context.Context) error {
	return a.rdb.Ping(ctx).Err()
}

// Announce stores the record, advances the latest-build index if this build
// is newer, and publishes the record JSON on the project's event channel.
// Storing the same record twice is harmless.
func (a *Announcer) Announce(ctx context.Context, record *fill.PublishRecord) error {
	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal record: %w", err)
	}

	key := BuildKey(record.Project, record.Version, record.Build)
	if err := a.rdb.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to store build record: %w", err)
	}

	if err := a.advanceLatest(ctx, record); err != nil {
		return err
	}

	if err := a.rdb.Publish(ctx, BuildEventsChannel(record.Project), data).Err(); err != nil {
		return fmt.Errorf("failed to publish build event: %w", err)
	}

	return nil
}

// advanceLatest records record.Build as the version's latest build unless a
// higher build number is already recorded.
func (a *Announcer) advanceLatest(ctx context.Context, record *fill.PublishRecord) error {
	latestKey := LatestKey(record.Project)

	current, err := a.rdb.HGet(ctx, latestKey, record.Version).Result()
	if err != nil && err != redis.Nil {
		return fmt.Errorf("failed to read latest build: %w", err)
	}
	if err == nil {
		if n, convErr := strconv.Atoi(current); convErr == nil && n >= record.Build {
			return nil
		}
	}

	if err := a.rdb.HSet(ctx, latestKey, record.Version, record.Build).Err(); err != nil {
		return fmt.Errorf("failed to update latest build: %w", err)
	}
	return nil
}

// Get returns a previously announced record.
// Returns (nil, redis.Nil) if the build was never announced.
func (a *Announcer) Get(ctx context.Context, project, version string, build int) (*fill.PublishRecord, error) {
	data, err := a.rdb.Get(ctx, BuildKey(project, version, build)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, redis.Nil
		}
		return nil, fmt.Errorf("failed to read build record: %w", err)
	}

	var record fill.PublishRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("failed to decode build record: %w", err)
	}
	return &record, nil
}

// Latest returns the highest announced build number of a version.
// Returns (0, redis.Nil) if nothing was announced for it.
func (a *Announcer) Latest(ctx context.Context, project, version string) (int, error) {
	current, err := a.rdb.HGet(ctx, LatestKey(project), version).Result()
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(current)
	if err != nil {
		return 0, fmt.Errorf("corrupt latest build %q for %s: %w", current, version, err)
	}
	return n, nil
}

// IsNotFound reports whether err means the requested build was never announced.
func IsNotFound(err error) bool {
	return err == redis.Nil
}

// Subscription delivers announced records for one project.
// Caller must call Close when done.
type Subscription struct {
	events <-chan *fill.PublishRecord
	errors <-chan error
	cancel func()
	once   sync.Once
}

// Events returns the channel announced records are delivered on.
// It is closed when the subscription is closed or its context is cancelled.
func (s *Subscription) Events() <-chan *fill.PublishRecord {
	return s.events
}

// Errors returns the channel decode failures are reported on.
// The subscription skips the offending message and continues.
func (s *Subscription) Errors() <-chan error {
	return s.errors
}

// Close ends the subscription. Safe to call more than once.
func (s *Subscription) Close() error {
	s.once.Do(s.cancel)
	return nil
}

// Subscribe listens for builds announced for a project.
// Delivery is at-most-once: a slow subscriber can miss events.
func (a *Announcer) Subscribe(ctx context.Context, project string) (*Subscription, error) {
	pubsub := a.rdb.Subscribe(ctx, BuildEventsChannel(project))
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("failed to subscribe to build events: %w", err)
	}

	eventsChan := make(chan *fill.PublishRecord, 10)
	errorsChan := make(chan error, 10)
	subCtx, cancelFunc := context.WithCancel(ctx)

	go func() {
		defer close(eventsChan)
		defer close(errorsChan)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-subCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}

				var record fill.PublishRecord
				if err := json.Unmarshal([]byte(msg.Payload), &record); err != nil {
					select {
					case errorsChan <- fmt.Errorf("failed to decode build event: %w", err):
					default:
					}
					continue
				}

				select {
				case eventsChan <- &record:
				case <-subCtx.Done():
					return
				}
			}
		}
	}()

	return &Subscription{
		events: eventsChan,
		errors: errorsChan,
		cancel: cancelFunc,
	}, nil
}
