package playback

import (
	"fmt"
	"reflect"
	"testing"

	"github.com/nbarrick/vigil/go-pipeline/internal/pipeline"
)

// #region helpers

func okSnapshot(cursor int) (pipeline.Snapshot, error) {
	return pipeline.Snapshot{Owner: "s1", Cursor: cursor, T: int64(cursor)}, nil
}

func newTestController(bound int) *Controller {
	return NewController("s1", bound, []int{1, 2, 5, 10}, okSnapshot)
}

// #endregion helpers

func TestInitialState(t *testing.T) {
	c := newTestController(100)
	st := c.CurrentState()
	if st.Status != Idle || st.Cursor != 1 || st.Speed != 1 || st.Bound != 100 {
		t.Fatalf("unexpected initial state: %+v", st)
	}
	if st.SessionID == "" {
		t.Fatal("expected non-empty session id")
	}
	lo, hi := c.Bounds()
	if lo != 1 || hi != 100 {
		t.Fatalf("bounds [%d, %d]", lo, hi)
	}
}

func TestStartPauseReset(t *testing.T) {
	c := newTestController(100)

	// Pause is a no-op outside Running.
	c.Pause()
	if c.CurrentState().Status != Idle {
		t.Fatalf("pause from idle should be a no-op")
	}

	c.Start()
	if c.CurrentState().Status != Running {
		t.Fatal("expected Running after Start")
	}
	// Start while Running is a no-op.
	c.Start()
	if c.CurrentState().Status != Running {
		t.Fatal("expected Running after redundant Start")
	}

	c.Pause()
	if c.CurrentState().Status != Paused {
		t.Fatal("expected Paused")
	}
	c.Start()
	if c.CurrentState().Status != Running {
		t.Fatal("expected Running after resume")
	}

	c.Tick()
	c.Reset()
	st := c.CurrentState()
	if st.Status != Idle || st.Cursor != 1 {
		t.Fatalf("expected Idle cursor=1 after Reset, got %+v", st)
	}
}

func TestTickOnlyAdvancesWhileRunning(t *testing.T) {
	c := newTestController(100)
	if _, advanced := c.Tick(); advanced {
		t.Fatal("tick in Idle must not advance")
	}
	c.Start()
	snap, advanced := c.Tick()
	if !advanced || snap.Cursor != 2 {
		t.Fatalf("expected advance to 2, got %+v advanced=%v", snap, advanced)
	}
	c.Pause()
	if _, advanced := c.Tick(); advanced {
		t.Fatal("tick in Paused must not advance")
	}
	if c.CurrentCursor() != 2 {
		t.Fatalf("cursor moved while paused: %d", c.CurrentCursor())
	}
}

func TestSetSpeedFallsBackToOne(t *testing.T) {
	c := newTestController(100)
	if got := c.SetSpeed(5); got != 5 {
		t.Fatalf("expected 5, got %d", got)
	}
	if got := c.SetSpeed(7); got != 1 {
		t.Fatalf("out-of-set speed should fall back to 1, got %d", got)
	}
	if got := c.SetSpeed(-3); got != 1 {
		t.Fatalf("negative speed should fall back to 1, got %d", got)
	}
}

func TestWrapPastBound(t *testing.T) {
	c := newTestController(100)
	c.SetSpeed(10)
	c.Seek(95)
	c.Start()
	snap, _ := c.Tick()
	if snap.Cursor != 1 {
		t.Fatalf("95+10 exceeds 100: expected wrap to 1, got %d", snap.Cursor)
	}
}

func TestLoopWrapsExactlyOnce(t *testing.T) {
	for _, tc := range []struct{ bound, speed int }{
		{100, 10}, {100, 1}, {5, 2}, {7, 3}, {40, 5},
	} {
		t.Run(fmt.Sprintf("B%d_s%d", tc.bound, tc.speed), func(t *testing.T) {
			c := NewController("s1", tc.bound, []int{tc.speed}, okSnapshot)
			c.SetSpeed(tc.speed)
			c.Start()
			ticks := (tc.bound + tc.speed - 1) / tc.speed // ceil(B/s)
			wraps := 0
			for i := 0; i < ticks; i++ {
				prev := c.CurrentCursor()
				snap, _ := c.Tick()
				if snap.Cursor < prev {
					wraps++
				}
				if snap.Cursor > tc.bound {
					t.Fatalf("cursor %d overshot bound %d", snap.Cursor, tc.bound)
				}
			}
			if wraps != 1 || c.CurrentCursor() != 1 {
				t.Fatalf("expected exactly one wrap back to 1, got wraps=%d cursor=%d", wraps, c.CurrentCursor())
			}
		})
	}
}

func TestSeekClamps(t *testing.T) {
	c := newTestController(50)
	if got := c.Seek(0); got != 1 {
		t.Fatalf("seek below bounds should clamp to 1, got %d", got)
	}
	if got := c.Seek(999); got != 50 {
		t.Fatalf("seek above bounds should clamp to 50, got %d", got)
	}
	if got := c.Seek(25); got != 25 {
		t.Fatalf("in-bounds seek, got %d", got)
	}
}

func TestSnapshotIdempotent(t *testing.T) {
	c := newTestController(50)
	c.Seek(10)
	a := c.Snapshot()
	b := c.Snapshot()
	if !reflect.DeepEqual(a, b) {
		t.Fatalf("snapshots differ: %+v vs %+v", a, b)
	}
}

func TestStaleSnapshotRetainedOnError(t *testing.T) {
	fn := func(cursor int) (pipeline.Snapshot, error) {
		if cursor > 3 {
			return pipeline.Snapshot{}, fmt.Errorf("malformed row at %d", cursor)
		}
		return pipeline.Snapshot{Owner: "s1", Cursor: cursor}, nil
	}
	c := NewController("s1", 10, []int{1}, fn)
	c.Start()
	c.Tick() // cursor 2
	c.Tick() // cursor 3
	snap, advanced := c.Tick() // cursor 4 → error → stale
	if !advanced {
		t.Fatal("tick should still advance the cursor")
	}
	if snap.Cursor != 3 {
		t.Fatalf("expected stale snapshot at cursor 3, got %d", snap.Cursor)
	}
	if c.CurrentCursor() != 4 {
		t.Fatalf("cursor should be 4, got %d", c.CurrentCursor())
	}
}
