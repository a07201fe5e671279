package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

const memorySubscriberBuffer = 128

// MemoryStore is the in-process fallback. Expiry is evaluated lazily on
// access and pub/sub is a local fan-out list per channel.
type MemoryStore struct {
	mu     sync.Mutex
	now    func() time.Time
	data   map[string]*memoryEntry
	subs   map[string]map[*memorySubscription]struct{}
	closed bool

	logger  *zap.Logger
	dropped atomic.Uint64
}

// MemoryOption configures a MemoryStore.
type MemoryOption func(*MemoryStore)

// WithMemoryLogger logs publishes that a full subscriber buffer dropped.
func WithMemoryLogger(logger *zap.Logger) MemoryOption {
	return func(s *MemoryStore) {
		if logger != nil {
			s.logger = logger
		}
	}
}

type memoryEntry struct {
	str     *string
	hash    map[string]string
	set     map[string]struct{}
	list    []string
	expires time.Time
}

// NewMemoryStore returns an empty in-process store.
func NewMemoryStore(opts ...MemoryOption) *MemoryStore {
	s := &MemoryStore{
		now:    time.Now,
		data:   make(map[string]*memoryEntry),
		subs:   make(map[string]map[*memorySubscription]struct{}),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *MemoryStore) Backend() string { return BackendMemory }

func (s *MemoryStore) Ping(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	return nil
}

// Close drops all data and ends every open subscription.
func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, set := range s.subs {
		for sub := range set {
			sub.closeLocked()
		}
	}
	s.subs = make(map[string]map[*memorySubscription]struct{})
	s.data = make(map[string]*memoryEntry)
	return nil
}

// live returns the entry for key, dropping it first if it has expired.
// Callers hold s.mu.
func (s *MemoryStore) live(key string) *memoryEntry {
	e, ok := s.data[key]
	if !ok {
		return nil
	}
	if !e.expires.IsZero() && !s.now().Before(e.expires) {
		delete(s.data, key)
		return nil
	}
	return e
}

func (s *MemoryStore) entry(key string) *memoryEntry {
	if e := s.live(key); e != nil {
		return e
	}
	e := &memoryEntry{}
	s.data[key] = e
	return e
}

func (s *MemoryStore) HSet(_ context.Context, key string, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(values) == 0 {
		return nil
	}
	e := s.entry(key)
	if e.hash == nil {
		e.hash = make(map[string]string, len(values))
	}
	for k, v := range values {
		e.hash[k] = v
	}
	return nil
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	out := make(map[string]string)
	if e := s.live(key); e != nil {
		for k, v := range e.hash {
			out[k] = v
		}
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", ErrClosed
	}
	e := s.live(key)
	if e == nil || e.str == nil {
		return "", ErrNotFound
	}
	return *e.str, nil
}

func (s *MemoryStore) SetNX(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false, ErrClosed
	}
	if s.live(key) != nil {
		return false, nil
	}
	v := value
	e := &memoryEntry{str: &v}
	if ttl > 0 {
		e.expires = s.now().Add(ttl)
	}
	s.data[key] = e
	return true, nil
}

func (s *MemoryStore) Expire(_ context.Context, key string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	e := s.live(key)
	if e == nil {
		return nil
	}
	if ttl <= 0 {
		delete(s.data, key)
		return nil
	}
	e.expires = s.now().Add(ttl)
	return nil
}

func (s *MemoryStore) Del(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	for _, k := range keys {
		delete(s.data, k)
	}
	return nil
}

func (s *MemoryStore) SAdd(_ context.Context, key string, members ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if len(members) == 0 {
		return nil
	}
	e := s.entry(key)
	if e.set == nil {
		e.set = make(map[string]struct{}, len(members))
	}
	for _, m := range members {
		e.set[m] = struct{}{}
	}
	return nil
}

func (s *MemoryStore) SMembers(_ context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	e := s.live(key)
	if e == nil {
		return []string{}, nil
	}
	out := make([]string, 0, len(e.set))
	for m := range e.set {
		out = append(out, m)
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) LPush(_ context.Context, key string, values ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	e := s.entry(key)
	for _, v := range values {
		e.list = append([]string{v}, e.list...)
	}
	return nil
}

// LRange follows Redis index semantics, negative indexes count from the tail.
func (s *MemoryStore) LRange(_ context.Context, key string, start, stop int64) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	e := s.live(key)
	if e == nil {
		return []string{}, nil
	}
	n := int64(len(e.list))
	if start < 0 {
		start += n
	}
	if stop < 0 {
		stop += n
	}
	if start < 0 {
		start = 0
	}
	if stop >= n {
		stop = n - 1
	}
	if start > stop || start >= n {
		return []string{}, nil
	}
	return append([]string(nil), e.list[start:stop+1]...), nil
}

func (s *MemoryStore) ScanPrefix(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	var keys []string
	for k := range s.data {
		if strings.HasPrefix(k, prefix) && s.live(k) != nil {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys, nil
}

// Publish delivers to every current subscriber of channel. Sends happen under
// the store lock so each subscriber sees publishes in call order. A
// subscriber whose buffer is full misses the message; the drop is counted
// and logged, and the subscriber catches up through the status read.
func (s *MemoryStore) Publish(_ context.Context, channel, payload string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	msg := Message{Channel: channel, Payload: payload}
	for sub := range s.subs[channel] {
		select {
		case sub.ch <- msg:
		default:
			total := s.dropped.Add(1)
			s.logger.Warn("subscriber buffer full, update dropped",
				zap.String("channel", channel),
				zap.Uint64("dropped_total", total))
		}
	}
	return nil
}

// Dropped reports how many deliveries were lost to full subscriber buffers.
func (s *MemoryStore) Dropped() uint64 { return s.dropped.Load() }

func (s *MemoryStore) Subscribe(_ context.Context, channel string) (Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}
	sub := &memorySubscription{
		store:   s,
		channel: channel,
		ch:      make(chan Message, memorySubscriberBuffer),
	}
	set, ok := s.subs[channel]
	if !ok {
		set = make(map[*memorySubscription]struct{})
		s.subs[channel] = set
	}
	set[sub] = struct{}{}
	return sub, nil
}

// SubscriberCount reports the open subscriptions on channel.
func (s *MemoryStore) SubscriberCount(channel string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs[channel])
}

type memorySubscription struct {
	store   *MemoryStore
	channel string
	ch      chan Message
	closed  bool
}

func (m *memorySubscription) Messages() <-chan Message {
	return m.ch
}

func (m *memorySubscription) Close() error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	if set, ok := m.store.subs[m.channel]; ok {
		delete(set, m)
		if len(set) == 0 {
			delete(m.store.subs, m.channel)
		}
	}
	m.closeLocked()
	return nil
}

func (m *memorySubscription) closeLocked() {
	if m.closed {
		return
	}
	m.closed = true
	close(m.ch)
}
