package server

// #region imports
import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/nbarrick/vigil/go-pipeline/internal/playback"
)

// #endregion

// #region query-handlers

func (s *Server) handleOwners(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"owners": s.pipe.Owners()})
}

func (s *Server) handleStates(c *gin.Context) {
	states := s.pipe.States()
	c.JSON(http.StatusOK, gin.H{"states": states[:]})
}

// handleOwnerSnapshot is the pull interface: get_snapshot(cursor) without a
// session.
func (s *Server) handleOwnerSnapshot(c *gin.Context) {
	owner := c.Param("owner")
	cursor, err := strconv.Atoi(c.DefaultQuery("t", "1"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "t must be an integer"})
		return
	}
	snap, err := s.pipe.Snapshot(owner, cursor)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

// #endregion query-handlers

// #region session-handlers

type createSessionRequest struct {
	Owner string `json:"owner" binding:"required"`
}

func (s *Server) handleCreateSession(c *gin.Context) {
	var req createSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sess, ok := s.createSession(req.Owner)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown owner " + req.Owner})
		return
	}
	c.JSON(http.StatusCreated, sess.ctrl.CurrentState())
}

func (s *Server) handleListSessions(c *gin.Context) {
	s.mu.Lock()
	states := make([]playback.State, 0, len(s.sessions))
	for _, sess := range s.sessions {
		states = append(states, sess.ctrl.CurrentState())
	}
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"sessions": states})
}

func (s *Server) handleSessionStatus(c *gin.Context) {
	sess, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.JSON(http.StatusOK, sess.ctrl.CurrentState())
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if !s.deleteSession(c.Param("id")) {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleStart(c *gin.Context) {
	s.withSession(c, func(sess *session) {
		sess.ctrl.Start()
		c.JSON(http.StatusOK, sess.ctrl.CurrentState())
	})
}

func (s *Server) handlePause(c *gin.Context) {
	s.withSession(c, func(sess *session) {
		sess.ctrl.Pause()
		c.JSON(http.StatusOK, sess.ctrl.CurrentState())
	})
}

func (s *Server) handleReset(c *gin.Context) {
	s.withSession(c, func(sess *session) {
		sess.ctrl.Reset()
		c.JSON(http.StatusOK, sess.ctrl.CurrentState())
	})
}

type speedRequest struct {
	Speed int `json:"speed"`
}

// handleSpeed applies the speed change; out-of-set values fall back to 1
// inside the controller, reported as 200 with the effective speed; playback
// controls are clamped, not rejected.
func (s *Server) handleSpeed(c *gin.Context) {
	var req speedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.withSession(c, func(sess *session) {
		sess.ctrl.SetSpeed(req.Speed)
		c.JSON(http.StatusOK, sess.ctrl.CurrentState())
	})
}

type seekRequest struct {
	Cursor int `json:"cursor"`
}

func (s *Server) handleSeek(c *gin.Context) {
	var req seekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	s.withSession(c, func(sess *session) {
		sess.ctrl.Seek(req.Cursor)
		c.JSON(http.StatusOK, sess.ctrl.CurrentState())
	})
}

func (s *Server) handleSessionSnapshot(c *gin.Context) {
	s.withSession(c, func(sess *session) {
		c.JSON(http.StatusOK, sess.ctrl.Snapshot())
	})
}

func (s *Server) withSession(c *gin.Context, fn func(*session)) {
	sess, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	fn(sess)
}

// #endregion session-handlers

// #region ws-handler

var upgrader = websocket.Upgrader{
	// The dashboard runs on another origin; access control is CORS's job on
	// the REST surface and the deployment's job here.
	CheckOrigin: func(*http.Request) bool { return true },
}

// handleWS upgrades a subscriber connection; it receives every advanced tick
// of the session as JSON until either side closes.
func (s *Server) handleWS(c *gin.Context) {
	sess, ok := s.lookup(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown session"})
		return
	}
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Printf("[WS] upgrade: %v", err)
		return
	}
	sess.subscribe(conn)
	// Reader loop only to detect close; subscribers never send data.
	go func() {
		defer func() {
			sess.unsubscribe(conn)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()
}

// #endregion ws-handler
