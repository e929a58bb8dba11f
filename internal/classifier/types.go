package classifier

// #region imports
import (
	"errors"
	"fmt"
)

// #endregion

// #region state-set

// NumStates is the fixed size of the alertness state enumeration.
const NumStates = 4

// StateSet is the totally ordered enumeration of alertness states. Index is
// ordinal; the name↔ordinal mapping must match the one baked into the
// trained artifact, or pipeline construction fails.
type StateSet [NumStates]string

// DefaultStateSet returns the standard label set, ordinal 0..3.
func DefaultStateSet() StateSet {
	return StateSet{"alert", "distracted", "drowsy", "lapse"}
}

// Ordinal returns the ordinal for a state name, or -1 when unknown.
func (s StateSet) Ordinal(name string) int {
	for i, n := range s {
		if n == name {
			return i
		}
	}
	return -1
}

// #endregion state-set

// #region prediction

// Prediction is one classifier output: a probability per state (sums to 1
// within epsilon) and the argmax state.
type Prediction struct {
	Probs [NumStates]float64
	State string
	Ord   int
}

// Confidence returns the probability of the predicted state.
func (p Prediction) Confidence() float64 {
	return p.Probs[p.Ord]
}

// #endregion prediction

// #region errors

// ErrSchemaMismatch marks a fatal configuration error: the artifact's feature
// ordering or label mapping disagrees with the pipeline's configuration.
var ErrSchemaMismatch = errors.New("classifier schema mismatch")

func schemaErr(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrSchemaMismatch, fmt.Sprintf(format, args...))
}

// #endregion errors
