package features

// #region kind

// Kind is the aggregation applied over a feature's lookback window.
type Kind string

const (
	KindMean   Kind = "mean"
	KindStddev Kind = "stddev"
	KindLag    Kind = "lag"
	KindDelta  Kind = "delta"
)

// #endregion kind

// #region spec

// Spec declares one engineered feature: a channel, an aggregation kind, and a
// lookback window in samples. For KindLag, Window is the lag offset k.
type Spec struct {
	Name    string `yaml:"name"`
	Channel string `yaml:"channel"`
	Kind    Kind   `yaml:"kind"`
	Window  int    `yaml:"window"`
}

// #endregion spec

// #region schema

// Schema is the fixed, ordered feature configuration. Order matters: the
// classifier artifact is validated against exactly this name sequence.
type Schema struct {
	Specs []Spec
}

// Names returns feature names in declared order.
func (s Schema) Names() []string {
	names := make([]string, len(s.Specs))
	for i, sp := range s.Specs {
		names[i] = sp.Name
	}
	return names
}

// #endregion schema

// #region vector

// Vector is one FeatureVector: feature name → value at a single position.
type Vector map[string]float64

// Values flattens the vector into the given name order.
func (v Vector) Values(order []string) []float64 {
	out := make([]float64, len(order))
	for i, name := range order {
		out[i] = v[name]
	}
	return out
}

// Clone returns an independent copy.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for k, val := range v {
		out[k] = val
	}
	return out
}

// #endregion vector

// #region table

// Table holds precomputed feature vectors for one owner, indexed by 1-based
// sample position. Read-only after construction and safe to share across
// display consumers.
type Table struct {
	Owner     string
	N         int
	rows      []Vector
	validFrom map[string]int
}

// Vector returns the feature vector at position p in [1, N].
func (t *Table) Vector(p int) (Vector, bool) {
	if p < 1 || p > t.N {
		return nil, false
	}
	return t.rows[p-1], true
}

// ValidFrom returns the first position at which the named feature was defined
// before edge-fill. Positions below it carry the fill value and must be
// excluded from training or evaluation use.
func (t *Table) ValidFrom(name string) int {
	return t.validFrom[name]
}

// #endregion table
