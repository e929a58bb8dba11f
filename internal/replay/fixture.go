package replay

// #region imports
import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/nbarrick/vigil/go-pipeline/internal/pipeline"
)

// #endregion

// #region fixture-types

// Fixture is the top-level JSON structure for a replay regression fixture:
// an owner present in the input series plus the states expected at specific
// cursors.
type Fixture struct {
	Description string          `json:"description"`
	Owner       string          `json:"owner"`
	Expected    []ExpectedState `json:"expected"`
}

// ExpectedState pins the predicted state at one cursor.
type ExpectedState struct {
	Cursor int    `json:"cursor"`
	State  string `json:"state"`
}

// Mismatch reports one fixture expectation that did not hold.
type Mismatch struct {
	Cursor int
	Want   string
	Got    string
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if f.Owner == "" {
		return nil, fmt.Errorf("fixture %s: missing owner", path)
	}
	return &f, nil
}

// #endregion fixture-loader

// #region check

// Check replays the fixture's owner and compares predictions against the
// expected states. An empty return means the fixture holds.
func Check(p *pipeline.Pipeline, f *Fixture) ([]Mismatch, error) {
	results, err := Run(p, f.Owner)
	if err != nil {
		return nil, err
	}
	byCursor := make(map[int]StepResult, len(results))
	for _, r := range results {
		byCursor[r.Cursor] = r
	}

	var mismatches []Mismatch
	for _, exp := range f.Expected {
		got, ok := byCursor[exp.Cursor]
		if !ok {
			return nil, fmt.Errorf("fixture cursor %d outside series bounds", exp.Cursor)
		}
		if got.State != exp.State {
			mismatches = append(mismatches, Mismatch{Cursor: exp.Cursor, Want: exp.State, Got: got.State})
		}
	}
	return mismatches, nil
}

// #endregion check
