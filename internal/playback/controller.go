package playback

// #region imports
import (
	"log"
	"sync"

	"github.com/google/uuid"
	"github.com/nbarrick/vigil/go-pipeline/internal/pipeline"
)

// #endregion

// #region status

// Status is the playback state machine position.
type Status string

const (
	Idle    Status = "idle"
	Running Status = "running"
	Paused  Status = "paused"
)

// #endregion status

// #region types

// SnapshotFunc computes the consistent snapshot at a cursor.
type SnapshotFunc func(cursor int) (pipeline.Snapshot, error)

// State is the serializable view of a controller for status endpoints.
type State struct {
	SessionID string `json:"session_id"`
	Owner     string `json:"owner"`
	Status    Status `json:"status"`
	Cursor    int    `json:"cursor"`
	Speed     int    `json:"speed"`
	Bound     int    `json:"bound"`
}

// #endregion types

// #region controller

// Controller owns one playback session: a monotonically advancing simulated
// time cursor over [1, bound] with looping wraparound. One session, one
// PlaybackState; the mutex serializes the HTTP surface against the ticker so
// the single-writer model holds.
type Controller struct {
	mu sync.Mutex

	id       string
	owner    string
	status   Status
	cursor   int
	speed    int
	bound    int
	allowed  map[int]bool
	snapshot SnapshotFunc

	last     pipeline.Snapshot
	haveLast bool
}

// NewController creates an Idle session at cursor 1, speed 1. bound is the
// upper playback bound (min of series length and any configured duration
// cap, decided by the caller). allowedSpeeds is the enumerated speed set;
// 1 is always allowed.
func NewController(owner string, bound int, allowedSpeeds []int, fn SnapshotFunc) *Controller {
	allowed := map[int]bool{1: true}
	for _, v := range allowedSpeeds {
		if v > 0 {
			allowed[v] = true
		}
	}
	return &Controller{
		id:       uuid.New().String(),
		owner:    owner,
		status:   Idle,
		cursor:   1,
		speed:    1,
		bound:    bound,
		allowed:  allowed,
		snapshot: fn,
	}
}

// ID returns the session identifier.
func (c *Controller) ID() string {
	return c.id
}

// #endregion controller

// #region transitions

// Start moves Idle/Paused → Running. No-op when already Running.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = Running
}

// Pause moves Running → Paused. No-op otherwise.
func (c *Controller) Pause() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status == Running {
		c.status = Paused
	}
}

// Reset returns to Idle with cursor 1 from any state.
func (c *Controller) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.status = Idle
	c.cursor = 1
	c.haveLast = false
}

// SetSpeed updates the speed multiplier in any state. Values outside the
// enumerated allowed set fall back to 1; a non-critical control surface,
// clamped silently rather than surfaced as an error. Returns the effective
// speed.
func (c *Controller) SetSpeed(v int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.allowed[v] {
		v = 1
	}
	c.speed = v
	return v
}

// Seek moves the cursor, clamped into [1, bound].
func (c *Controller) Seek(cursor int) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cursor < 1 {
		cursor = 1
	}
	if cursor > c.bound {
		cursor = c.bound
	}
	c.cursor = cursor
	return cursor
}

// #endregion transitions

// #region tick

// Tick advances the cursor by speed and returns the snapshot at the new
// cursor. Valid only while Running: otherwise it returns the current
// snapshot unadvanced. When cursor+speed would pass the bound the cursor
// wraps to 1; looping replay, not an error. A failed snapshot retains the
// previous valid one.
func (c *Controller) Tick() (pipeline.Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.status != Running {
		return c.snapshotLocked(), false
	}
	if c.cursor+c.speed > c.bound {
		c.cursor = 1
	} else {
		c.cursor += c.speed
	}
	return c.snapshotLocked(), true
}

// Snapshot returns the consistent tuple at the current cursor without
// advancing. Usable in any state.
func (c *Controller) Snapshot() pipeline.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// snapshotLocked computes the snapshot under the lock so a concurrent
// transition can never interleave between cursor read and computation.
func (c *Controller) snapshotLocked() pipeline.Snapshot {
	snap, err := c.snapshot(c.cursor)
	if err != nil {
		// Degrade gracefully: log and serve the previous valid snapshot.
		log.Printf("[PLAY] session %s: snapshot at %d failed, serving stale: %v", c.id, c.cursor, err)
		if c.haveLast {
			return c.last
		}
		return pipeline.Snapshot{Owner: c.owner, Cursor: c.cursor}
	}
	c.last = snap
	c.haveLast = true
	return snap
}

// #endregion tick

// #region state

// CurrentCursor returns the cursor position.
func (c *Controller) CurrentCursor() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

// Bounds returns the playback bounds [1, bound].
func (c *Controller) Bounds() (int, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return 1, c.bound
}

// CurrentState returns the full serializable session state.
func (c *Controller) CurrentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return State{
		SessionID: c.id,
		Owner:     c.owner,
		Status:    c.status,
		Cursor:    c.cursor,
		Speed:     c.speed,
		Bound:     c.bound,
	}
}

// #endregion state
