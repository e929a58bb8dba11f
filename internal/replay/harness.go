package replay

// #region imports
import (
	"fmt"

	"github.com/nbarrick/vigil/go-pipeline/internal/pipeline"
)

// #endregion

// #region types

// StepResult captures one cursor position replayed through the pipeline.
type StepResult struct {
	Cursor     int
	T          int64
	State      string
	Confidence float64
	Bullets    int
}

// Summary aggregates a replay run over one owner.
type Summary struct {
	Owner       string
	Steps       int
	StateCounts map[string]int
	Transitions int // adjacent steps whose predicted state differs
}

// #endregion types

// #region run

// Run replays an owner's full series through the pipeline, one snapshot per
// position, entirely in memory.
func Run(p *pipeline.Pipeline, owner string) ([]StepResult, error) {
	n, ok := p.Bounds(owner)
	if !ok {
		return nil, fmt.Errorf("unknown owner %q", owner)
	}
	results := make([]StepResult, 0, n)
	for cursor := 1; cursor <= n; cursor++ {
		snap, err := p.Snapshot(owner, cursor)
		if err != nil {
			return nil, err
		}
		results = append(results, StepResult{
			Cursor:     cursor,
			T:          snap.T,
			State:      snap.Prediction.State,
			Confidence: snap.Prediction.Confidence(),
			Bullets:    len(snap.Rationale.Bullets),
		})
	}
	return results, nil
}

// Summarize computes aggregate stats from replay results.
func Summarize(owner string, results []StepResult) Summary {
	s := Summary{
		Owner:       owner,
		Steps:       len(results),
		StateCounts: make(map[string]int),
	}
	for i, r := range results {
		s.StateCounts[r.State]++
		if i > 0 && results[i-1].State != r.State {
			s.Transitions++
		}
	}
	return s
}

// #endregion run
