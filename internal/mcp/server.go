package mcp

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/zhouzirui/job-voice/backend/pkg/utils"
)

const (
	maxBodyBytes      = 1 << 20
	defaultKeepAlive  = 15 * time.Second
	streamQueueLength = 32
)

// Server mounts both bindings under one base path:
//
//	POST <base>, POST <base>/rpc           synchronous JSON-RPC
//	GET  <base>/sse                        open a stream, receive its endpoint
//	POST <base>/messages/?session_id=<id>  request answered on the stream
type Server struct {
	dispatcher *Dispatcher
	basePath   string
	keepAlive  time.Duration
	logger     *zap.Logger

	mu      sync.Mutex
	streams map[string]*stream
	closed  bool
}

type Option func(*Server)

// WithKeepAlive sets the interval of keep-alive comments on open streams.
func WithKeepAlive(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.keepAlive = d
		}
	}
}

func NewServer(dispatcher *Dispatcher, basePath string, logger *zap.Logger, opts ...Option) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	basePath = "/" + strings.Trim(basePath, "/")
	s := &Server{
		dispatcher: dispatcher,
		basePath:   basePath,
		keepAlive:  defaultKeepAlive,
		logger:     logger.Named("mcp"),
		streams:    make(map[string]*stream),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Server) BasePath() string { return s.basePath }

func (s *Server) RegisterRoutes(r chi.Router) {
	r.Route(s.basePath, func(m chi.Router) {
		m.Post("/", s.handleSync)
		m.Post("/rpc", s.handleSync)
		m.Get("/sse", s.handleStream)
		m.Post("/messages", s.handleMessage)
		m.Post("/messages/", s.handleMessage)
	})
}

func readBody(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		utils.RespondError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return nil, false
	}
	return body, true
}

// handleSync always answers 200 with a JSON-RPC envelope, error or not.
func (s *Server) handleSync(w http.ResponseWriter, r *http.Request) {
	body, ok := readBody(w, r)
	if !ok {
		return
	}
	resp := s.dispatcher.Handle(r.Context(), body)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	utils.RespondJSON(w, http.StatusOK, resp)
}

type stream struct {
	id   string
	out  chan []byte
	done chan struct{}
	once sync.Once
}

func (st *stream) close() {
	st.once.Do(func() { close(st.done) })
}

// deliver queues a response frame unless the stream has gone away.
func (st *stream) deliver(ctx context.Context, frame []byte) bool {
	select {
	case st.out <- frame:
		return true
	case <-st.done:
		return false
	case <-ctx.Done():
		return false
	}
}

func (s *Server) openStream() (*stream, bool) {
	st := &stream{
		id:   strings.ReplaceAll(uuid.NewString(), "-", ""),
		out:  make(chan []byte, streamQueueLength),
		done: make(chan struct{}),
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, false
	}
	s.streams[st.id] = st
	return st, true
}

func (s *Server) lookupStream(id string) *stream {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streams[id]
}

func (s *Server) dropStream(st *stream) {
	s.mu.Lock()
	if s.streams[st.id] == st {
		delete(s.streams, st.id)
	}
	s.mu.Unlock()
	st.close()
}

// StreamCount reports open streams.
func (s *Server) StreamCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.streams)
}

// Close ends every open stream and refuses new ones.
func (s *Server) Close() {
	s.mu.Lock()
	s.closed = true
	streams := make([]*stream, 0, len(s.streams))
	for _, st := range s.streams {
		streams = append(streams, st)
	}
	s.mu.Unlock()

	for _, st := range streams {
		st.close()
	}
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	st, ok := s.openStream()
	if !ok {
		utils.RespondError(w, http.StatusServiceUnavailable, "server shutting down")
		return
	}
	defer s.dropStream(st)

	sw, err := utils.NewSSEWriter(w)
	if err != nil {
		utils.RespondError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	log := s.logger.With(zap.String("stream_id", st.id))
	endpoint := s.basePath + "/messages/?session_id=" + st.id
	if err := sw.SendRaw("endpoint", endpoint); err != nil {
		log.Debug("stream closed before endpoint was sent", zap.Error(err))
		return
	}
	log.Info("stream opened")

	ticker := time.NewTicker(s.keepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			log.Info("stream closed by client")
			return
		case <-st.done:
			log.Info("stream closed by server")
			return
		case <-ticker.C:
			if err := sw.Comment("ping"); err != nil {
				log.Debug("keep-alive failed", zap.Error(err))
				return
			}
		case frame := <-st.out:
			if err := sw.SendRaw("message", string(frame)); err != nil {
				log.Debug("stream write failed", zap.Error(err))
				return
			}
		}
	}
}

// handleMessage accepts a request for an open stream and answers 202. The
// response is written to the stream once the call completes.
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(r.URL.Query().Get("session_id"))
	if id == "" {
		utils.RespondError(w, http.StatusBadRequest, "session_id is required")
		return
	}
	st := s.lookupStream(id)
	if st == nil {
		utils.RespondError(w, http.StatusNotFound, "could not find session")
		return
	}

	body, ok := readBody(w, r)
	if !ok {
		return
	}
	if !json.Valid(body) {
		utils.RespondError(w, http.StatusBadRequest, "could not parse message")
		return
	}

	ctx := context.WithoutCancel(r.Context())
	go func() {
		resp := s.dispatcher.Handle(ctx, body)
		if resp == nil {
			return
		}
		frame, err := json.Marshal(resp)
		if err != nil {
			s.logger.Error("encode stream response", zap.String("stream_id", st.id), zap.Error(err))
			return
		}
		if !st.deliver(ctx, frame) {
			s.logger.Debug("stream gone before response was delivered", zap.String("stream_id", st.id))
		}
	}()

	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusAccepted)
	_, _ = io.WriteString(w, "Accepted")
}
