package server

// #region imports
import (
	"log"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nbarrick/vigil/go-pipeline/internal/metrics"
	"github.com/nbarrick/vigil/go-pipeline/internal/pipeline"
	"github.com/nbarrick/vigil/go-pipeline/internal/playback"
)

// #endregion

// #region types

// Options tunes the server independently of the HTTP listener.
type Options struct {
	AllowedSpeeds []int
	TickPeriod    time.Duration
	// Bound maps a series length to the playback upper bound.
	Bound func(n int) int
}

// Sink receives every advanced tick snapshot (the MQTT feed implements it).
type Sink interface {
	Publish(pipeline.Snapshot)
}

// Server exposes the playback/query interface to the presentation layer.
// It owns the session registry; each session gets its own controller and
// ticker goroutine, so no PlaybackState is ever shared between sessions.
type Server struct {
	pipe    *pipeline.Pipeline
	opts    Options
	metrics *metrics.Metrics
	sink    Sink

	mu       sync.Mutex
	sessions map[string]*session
}

// session couples a controller with its ticker loop and WS subscribers.
type session struct {
	ctrl *playback.Controller
	stop chan struct{}

	subMu sync.Mutex
	subs  map[*websocket.Conn]bool
}

// #endregion types

// #region constructor

// New creates a server. sink may be nil (no live feed).
func New(pipe *pipeline.Pipeline, opts Options, m *metrics.Metrics, sink Sink) *Server {
	if opts.TickPeriod <= 0 {
		opts.TickPeriod = time.Second
	}
	if opts.Bound == nil {
		opts.Bound = func(n int) int { return n }
	}
	return &Server{
		pipe:     pipe,
		opts:     opts,
		metrics:  m,
		sink:     sink,
		sessions: make(map[string]*session),
	}
}

// #endregion constructor

// #region router

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.Default())

	api := r.Group("/api")
	{
		api.GET("/owners", s.handleOwners)
		api.GET("/states", s.handleStates)
		api.GET("/owners/:owner/snapshot", s.handleOwnerSnapshot)

		api.POST("/sessions", s.handleCreateSession)
		api.GET("/sessions", s.handleListSessions)
		api.GET("/sessions/:id", s.handleSessionStatus)
		api.DELETE("/sessions/:id", s.handleDeleteSession)
		api.POST("/sessions/:id/start", s.handleStart)
		api.POST("/sessions/:id/pause", s.handlePause)
		api.POST("/sessions/:id/reset", s.handleReset)
		api.POST("/sessions/:id/speed", s.handleSpeed)
		api.POST("/sessions/:id/seek", s.handleSeek)
		api.GET("/sessions/:id/snapshot", s.handleSessionSnapshot)
	}

	r.GET("/ws/sessions/:id", s.handleWS)
	r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	return r
}

// #endregion router

// #region session-lifecycle

// createSession registers a controller for an owner and starts its ticker.
func (s *Server) createSession(owner string) (*session, bool) {
	n, ok := s.pipe.Bounds(owner)
	if !ok {
		return nil, false
	}

	// The controller's snapshot function carries instrumentation so every
	// path (tick, pull, stale fallback) is measured.
	fn := func(cursor int) (pipeline.Snapshot, error) {
		start := time.Now()
		snap, err := s.pipe.Snapshot(owner, cursor)
		s.metrics.SnapshotLatency.Observe(time.Since(start).Seconds())
		if err != nil {
			s.metrics.SnapshotErrors.Inc()
			return snap, err
		}
		s.metrics.PredictionsTotal.WithLabelValues(snap.Prediction.State).Inc()
		return snap, nil
	}

	ctrl := playback.NewController(owner, s.opts.Bound(n), s.opts.AllowedSpeeds, fn)
	sess := &session{
		ctrl: ctrl,
		stop: make(chan struct{}),
		subs: make(map[*websocket.Conn]bool),
	}

	s.mu.Lock()
	s.sessions[ctrl.ID()] = sess
	s.mu.Unlock()
	s.metrics.SessionsActive.Inc()

	go s.run(sess)
	return sess, true
}

// run is the session's tick loop: the cursor advances only here, on the
// periodic trigger, and the whole extract→classify→explain chain completes
// inside one Tick call; the snapshot can never interleave two cursors.
func (s *Server) run(sess *session) {
	ticker := time.NewTicker(s.opts.TickPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-sess.stop:
			return
		case <-ticker.C:
			snap, advanced := sess.ctrl.Tick()
			if !advanced {
				continue
			}
			s.metrics.TicksTotal.Inc()
			if s.sink != nil {
				s.sink.Publish(snap)
			}
			sess.broadcast(snap)
		}
	}
}

func (s *Server) lookup(id string) (*session, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) deleteSession(id string) bool {
	s.mu.Lock()
	sess, ok := s.sessions[id]
	if ok {
		delete(s.sessions, id)
	}
	s.mu.Unlock()
	if !ok {
		return false
	}
	close(sess.stop)
	sess.closeSubs()
	s.metrics.SessionsActive.Dec()
	return true
}

// Shutdown stops all session tickers.
func (s *Server) Shutdown() {
	s.mu.Lock()
	ids := make([]string, 0, len(s.sessions))
	for id := range s.sessions {
		ids = append(ids, id)
	}
	s.mu.Unlock()
	for _, id := range ids {
		s.deleteSession(id)
	}
}

// #endregion session-lifecycle

// #region ws-broadcast

func (sess *session) broadcast(snap pipeline.Snapshot) {
	sess.subMu.Lock()
	defer sess.subMu.Unlock()
	for conn := range sess.subs {
		if err := conn.WriteJSON(snap); err != nil {
			log.Printf("[WS] dropping subscriber: %v", err)
			conn.Close()
			delete(sess.subs, conn)
		}
	}
}

func (sess *session) subscribe(conn *websocket.Conn) {
	sess.subMu.Lock()
	sess.subs[conn] = true
	sess.subMu.Unlock()
}

func (sess *session) unsubscribe(conn *websocket.Conn) {
	sess.subMu.Lock()
	delete(sess.subs, conn)
	sess.subMu.Unlock()
}

func (sess *session) closeSubs() {
	sess.subMu.Lock()
	defer sess.subMu.Unlock()
	for conn := range sess.subs {
		conn.Close()
		delete(sess.subs, conn)
	}
}

// #endregion ws-broadcast
