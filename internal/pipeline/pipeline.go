package pipeline

// #region imports
import (
	"fmt"
	"log"

	"github.com/nbarrick/vigil/go-pipeline/internal/classifier"
	"github.com/nbarrick/vigil/go-pipeline/internal/features"
	"github.com/nbarrick/vigil/go-pipeline/internal/rationale"
	"github.com/nbarrick/vigil/go-pipeline/internal/series"
)

// #endregion

// #region snapshot

// Snapshot is one atomically-consistent tuple: features, prediction, and
// rationale all computed at the same cursor. Raw carries the unmodified
// channel values at that position for display.
type Snapshot struct {
	Owner      string                `json:"owner"`
	Cursor     int                   `json:"cursor"`
	T          int64                 `json:"t"`
	Raw        map[string]float64    `json:"raw"`
	Features   features.Vector       `json:"features"`
	Prediction classifier.Prediction `json:"prediction"`
	Rationale  rationale.Rationale   `json:"rationale"`
}

// #endregion snapshot

// #region pipeline

// Pipeline ties the feature extractor, classifier, and rationale engine
// together over a fixed dataset. Feature tables and predictions are
// precomputed per owner at construction, so snapshot lookup is O(1); the
// tables are read-only afterwards and safe to share.
type Pipeline struct {
	dataset *series.Dataset
	schema  features.Schema
	model   *classifier.Model
	engine  *rationale.Engine
	tables  map[string]*features.Table
	preds   map[string][]classifier.Prediction
}

// #endregion pipeline

// #region constructor

// New builds the pipeline. Any configuration error (an invalid window, an
// owner too short for the schema, a classifier schema mismatch) aborts
// construction entirely; nothing downstream runs on a partially built
// pipeline.
func New(ds *series.Dataset, schema features.Schema, model *classifier.Model, engine *rationale.Engine) (*Pipeline, error) {
	if len(ds.Owners) == 0 {
		return nil, fmt.Errorf("dataset has no owners")
	}

	p := &Pipeline{
		dataset: ds,
		schema:  schema,
		model:   model,
		engine:  engine,
		tables:  make(map[string]*features.Table, len(ds.Owners)),
		preds:   make(map[string][]classifier.Prediction, len(ds.Owners)),
	}

	for _, owner := range ds.Owners {
		s := ds.Series(owner)
		tbl, err := features.ExtractSeries(s, schema)
		if err != nil {
			return nil, fmt.Errorf("owner %s: %w", owner, err)
		}
		vecs := make([]features.Vector, tbl.N)
		for i := 0; i < tbl.N; i++ {
			v, _ := tbl.Vector(i + 1)
			vecs[i] = v
		}
		p.tables[owner] = tbl
		p.preds[owner] = model.PredictBatch(vecs)
		log.Printf("[PIPE] owner %s: %d positions precomputed", owner, tbl.N)
	}
	return p, nil
}

// #endregion constructor

// #region accessors

// Owners lists owners in sorted order.
func (p *Pipeline) Owners() []string {
	return p.dataset.Owners
}

// Bounds returns the series length for an owner.
func (p *Pipeline) Bounds(owner string) (int, bool) {
	tbl, ok := p.tables[owner]
	if !ok {
		return 0, false
	}
	return tbl.N, true
}

// Table exposes the precomputed feature table for an owner.
func (p *Pipeline) Table(owner string) (*features.Table, bool) {
	tbl, ok := p.tables[owner]
	return tbl, ok
}

// States returns the validated state set.
func (p *Pipeline) States() classifier.StateSet {
	return p.model.States()
}

// #endregion accessors

// #region snapshot-at

// Snapshot returns the consistent tuple at a 1-based cursor. Features and
// prediction come from the precomputed tables; the rationale is recomputed,
// which is pure, so repeated calls are bit-identical.
func (p *Pipeline) Snapshot(owner string, cursor int) (Snapshot, error) {
	tbl, ok := p.tables[owner]
	if !ok {
		return Snapshot{}, fmt.Errorf("unknown owner %q", owner)
	}
	vec, ok := tbl.Vector(cursor)
	if !ok {
		return Snapshot{}, fmt.Errorf("cursor %d out of bounds [1, %d]", cursor, tbl.N)
	}

	pred := p.preds[owner][cursor-1]
	smp := p.dataset.Series(owner).Samples[cursor-1]

	raw := make(map[string]float64, len(smp.Channels))
	for k, v := range smp.Channels {
		raw[k] = v
	}

	return Snapshot{
		Owner:      owner,
		Cursor:     cursor,
		T:          smp.T,
		Raw:        raw,
		Features:   vec,
		Prediction: pred,
		Rationale:  p.engine.Explain(pred, vec),
	}, nil
}

// #endregion snapshot-at
