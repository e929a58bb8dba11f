package classifier

// #region imports
import (
	"math"

	"github.com/nbarrick/vigil/go-pipeline/internal/features"
)

// #endregion

// #region model

// Model wraps a validated artifact behind the narrow predict contract:
// stateless and deterministic for a given trained artifact.
type Model struct {
	artifact *Artifact
	states   StateSet
	order    []string
}

// #endregion model

// #region constructor

// NewModel validates the artifact against the feature schema and state set.
// Validation failure is a fatal configuration error at startup, never a
// per-call error: the feature names must match in order and count, and the
// artifact's label mapping must equal the configured states ordinal by
// ordinal.
func NewModel(a *Artifact, schema features.Schema, states StateSet) (*Model, error) {
	names := schema.Names()
	if len(a.Features) != len(names) {
		return nil, schemaErr("artifact expects %d features, configuration produces %d",
			len(a.Features), len(names))
	}
	for i, name := range names {
		if a.Features[i] != name {
			return nil, schemaErr("feature %d: artifact has %q, configuration has %q",
				i, a.Features[i], name)
		}
	}
	if len(a.Classes) != NumStates {
		return nil, schemaErr("artifact declares %d classes, expected %d", len(a.Classes), NumStates)
	}
	for i, label := range states {
		if a.Classes[i] != label {
			return nil, schemaErr("ordinal %d: artifact label %q, configured label %q",
				i, a.Classes[i], label)
		}
	}
	return &Model{artifact: a, states: states, order: names}, nil
}

// States returns the validated state set.
func (m *Model) States() StateSet {
	return m.states
}

// FeatureOrder returns the feature name order the model consumes.
func (m *Model) FeatureOrder() []string {
	return m.order
}

// #endregion constructor

// #region predict

// Predict maps one feature vector to a probability distribution over states.
func (m *Model) Predict(vec features.Vector) Prediction {
	x := vec.Values(m.order)

	var logits [NumStates]float64
	for c := 0; c < NumStates; c++ {
		z := m.artifact.Bias[c]
		for i, w := range m.artifact.Weights[c] {
			z += w * x[i]
		}
		logits[c] = z
	}

	// Softmax with max-subtraction for numeric stability.
	maxZ := logits[0]
	for _, z := range logits[1:] {
		if z > maxZ {
			maxZ = z
		}
	}
	var sum float64
	var probs [NumStates]float64
	for c, z := range logits {
		probs[c] = math.Exp(z - maxZ)
		sum += probs[c]
	}
	argmax := 0
	for c := range probs {
		probs[c] /= sum
		if probs[c] > probs[argmax] {
			argmax = c
		}
	}

	return Prediction{Probs: probs, State: m.states[argmax], Ord: argmax}
}

// PredictBatch runs Predict over a slice of vectors.
func (m *Model) PredictBatch(vecs []features.Vector) []Prediction {
	out := make([]Prediction, len(vecs))
	for i, v := range vecs {
		out[i] = m.Predict(v)
	}
	return out
}

// #endregion predict
