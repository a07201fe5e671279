// Package store defines the keyed hash/set/list storage contract with
// per-key expiry and per-channel publish/subscribe that the application
// state lives in, together with a Redis-backed and an in-process variant.
package store

import (
	"context"
	"errors"
	"time"
)

var (
	ErrNotFound = errors.New("key not found in store")
	ErrClosed   = errors.New("store is closed")
)

const (
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Store is the state store contract. Implementations must preserve publish
// order per channel towards each subscriber.
type Store interface {
	HSet(ctx context.Context, key string, values map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	Get(ctx context.Context, key string) (string, error)
	// SetNX stores value only when key is absent and reports whether it did.
	SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error)

	Expire(ctx context.Context, key string, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error

	SAdd(ctx context.Context, key string, members ...string) error
	SMembers(ctx context.Context, key string) ([]string, error)

	LPush(ctx context.Context, key string, values ...string) error
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)

	// ScanPrefix lists every live key that starts with prefix.
	ScanPrefix(ctx context.Context, prefix string) ([]string, error)

	Publish(ctx context.Context, channel, payload string) error
	// Subscribe returns once the subscription is active on the channel.
	Subscribe(ctx context.Context, channel string) (Subscription, error)

	Ping(ctx context.Context) error
	Backend() string
	Close() error
}

// Message is one payload received on a subscribed channel.
type Message struct {
	Channel string
	Payload string
}

// Subscription delivers channel messages until Close is called. Close
// releases the underlying connection and closes the Messages channel.
type Subscription interface {
	Messages() <-chan Message
	Close() error
}

// Key helpers for the persisted layout.
func JobKey(id string) string { return "job:" + id }
func SessionKey(id string) string { return "session:" + id }
func DraftKey(sessionID string) string { return "application:" + sessionID }
func SubmissionMarkerKey(sessionID string) string { return "submission:" + sessionID }
func SubmittedKey(applicationID string) string { return "submitted_application:" + applicationID }
func JobApplicationsKey(jobID string) string { return "job_applications:" + jobID }
func UpdatesChannel(sessionID string) string { return "application_updates:" + sessionID }

const (
	AllJobsKey      = "all_jobs"
	SubmittedPrefix = "submitted_application:"
)
