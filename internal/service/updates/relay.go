// Package updates relays a session's update channel to its live browser
// connection. Each session has at most one registered connection and one
// listener goroutine.
package updates

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/internal/store"
)

// Sink is the live connection side of a relay.
type Sink interface {
	// Deliver writes one bus payload, a JSON event, to the connection. An
	// error stops the listener.
	Deliver(payload []byte) error
	// Replaced tells the connection that a newer connection took over its
	// session. The listener has already stopped when it is called.
	Replaced()
}

// State is a connection's position in its lifecycle.
type State int32

const (
	Disconnected State = iota
	Subscribing
	Relaying
)

func (s State) String() string {
	switch s {
	case Subscribing:
		return "subscribing"
	case Relaying:
		return "relaying"
	default:
		return "disconnected"
	}
}

// Relay registers live connections and owns their listeners.
type Relay struct {
	store  store.Store
	logger *zap.Logger

	mu    sync.Mutex
	conns map[string]*Connection
}

func NewRelay(st store.Store, logger *zap.Logger) *Relay {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Relay{
		store:  st,
		logger: logger.Named("relay"),
		conns:  make(map[string]*Connection),
	}
}

// Connection is one registered live connection.
type Connection struct {
	relay     *Relay
	sessionID string
	sink      Sink
	sub       store.Subscription

	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Attach subscribes to the session's channel and starts relaying to sink.
// Any earlier connection for the session is stopped, awaited and told it was
// replaced before Attach returns. Events published after Attach returns are
// delivered to sink.
func (r *Relay) Attach(ctx context.Context, sessionID string, sink Sink) (*Connection, error) {
	c := &Connection{
		relay:     r,
		sessionID: sessionID,
		sink:      sink,
		done:      make(chan struct{}),
	}
	c.state.Store(int32(Subscribing))

	sub, err := r.store.Subscribe(ctx, store.UpdatesChannel(sessionID))
	if err != nil {
		c.state.Store(int32(Disconnected))
		close(c.done)
		return nil, err
	}
	c.sub = sub

	// c is complete before it is registered; a concurrent Attach may shut it
	// down as soon as it is visible in r.conns.
	listenCtx, cancel := context.WithCancel(context.Background())
	c.cancel = cancel
	c.state.Store(int32(Relaying))
	go c.listen(listenCtx)

	r.mu.Lock()
	prev := r.conns[sessionID]
	r.conns[sessionID] = c
	r.mu.Unlock()

	if prev != nil {
		r.logger.Info("replacing live connection", zap.String("session_id", sessionID))
		prev.shutdown()
		prev.sink.Replaced()
	}

	r.logger.Debug("live connection attached", zap.String("session_id", sessionID))
	return c, nil
}

func (c *Connection) listen(ctx context.Context) {
	defer close(c.done)
	log := c.relay.logger.With(zap.String("session_id", c.sessionID))

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-c.sub.Messages():
			if !ok {
				log.Debug("subscription closed")
				return
			}
			payload := []byte(msg.Payload)
			if !json.Valid(payload) {
				log.Warn("dropping invalid update payload")
				continue
			}
			// Re-check after a value was received so nothing is delivered once
			// the connection was cancelled.
			if ctx.Err() != nil {
				return
			}
			if err := c.sink.Deliver(payload); err != nil {
				log.Debug("delivery failed, stopping listener", zap.Error(err))
				return
			}
		}
	}
}

// shutdown cancels the listener, waits for it to exit and releases the
// subscription. It is safe to call more than once.
func (c *Connection) shutdown() {
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}
		<-c.done
		if c.sub != nil {
			if err := c.sub.Close(); err != nil {
				c.relay.logger.Warn("unsubscribe failed", zap.String("session_id", c.sessionID), zap.Error(err))
			}
		}
		c.state.Store(int32(Disconnected))
	})
}

// Close stops relaying and unregisters the connection. When it returns the
// listener has exited and the subscription is released.
func (c *Connection) Close() {
	c.shutdown()

	r := c.relay
	r.mu.Lock()
	if r.conns[c.sessionID] == c {
		delete(r.conns, c.sessionID)
	}
	r.mu.Unlock()
}

// Done is closed when the listener exits, whether by Close, replacement or a
// failed delivery.
func (c *Connection) Done() <-chan struct{} { return c.done }

func (c *Connection) State() State { return State(c.state.Load()) }

func (c *Connection) SessionID() string { return c.sessionID }

// Count reports the registered connections.
func (r *Relay) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns)
}

// Active reports whether sessionID has a registered connection.
func (r *Relay) Active(sessionID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.conns[sessionID]
	return ok
}

// CloseAll stops every connection, used on server shutdown.
func (r *Relay) CloseAll() int {
	r.mu.Lock()
	conns := make([]*Connection, 0, len(r.conns))
	for _, c := range r.conns {
		conns = append(conns, c)
	}
	r.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
	return len(conns)
}
