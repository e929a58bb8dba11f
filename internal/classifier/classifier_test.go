package classifier

import (
	"bytes"
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/nbarrick/vigil/go-pipeline/internal/features"
)

func testSchema() features.Schema {
	return features.Schema{Specs: []features.Spec{
		{Name: "hr_mean_30", Channel: "heart_rate", Kind: features.KindMean, Window: 30},
		{Name: "blink_mean_30", Channel: "blink_rate", Kind: features.KindMean, Window: 30},
	}}
}

// testArtifact favors drowsy when blink_mean_30 is high, alert otherwise.
func testArtifact() *Artifact {
	return &Artifact{
		Features: []string{"hr_mean_30", "blink_mean_30"},
		Classes:  []string{"alert", "distracted", "drowsy", "lapse"},
		Weights: [][]float64{
			{0.1, -0.5},
			{0, 0},
			{-0.1, 0.5},
			{-0.2, 0.1},
		},
		Bias: []float64{1.0, 0, 0, -1.0},
	}
}

func TestArtifactRoundTrip(t *testing.T) {
	a := testArtifact()
	var buf bytes.Buffer
	if err := Encode(&buf, a); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if len(got.Features) != 2 || got.Features[1] != "blink_mean_30" {
		t.Fatalf("features corrupted: %v", got.Features)
	}
	if got.Weights[2][1] != 0.5 || got.Bias[3] != -1.0 {
		t.Fatalf("parameters corrupted: %v %v", got.Weights, got.Bias)
	}
}

func TestSaveAndLoadArtifact(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.vgaf")
	if err := SaveArtifact(path, testArtifact()); err != nil {
		t.Fatalf("SaveArtifact: %v", err)
	}
	a, err := LoadArtifact(path)
	if err != nil {
		t.Fatalf("LoadArtifact: %v", err)
	}
	if a.Classes[2] != "drowsy" {
		t.Fatalf("unexpected classes: %v", a.Classes)
	}
}

func TestDecodeRejectsBadMagic(t *testing.T) {
	if _, err := Decode(bytes.NewReader([]byte("NOPE\x01\x00"))); err == nil {
		t.Fatal("expected error for bad magic")
	}
}

func TestPredictProbabilitiesSumToOne(t *testing.T) {
	m, err := NewModel(testArtifact(), testSchema(), DefaultStateSet())
	if err != nil {
		t.Fatalf("NewModel: %v", err)
	}
	p := m.Predict(features.Vector{"hr_mean_30": 62, "blink_mean_30": 25})
	var sum float64
	for _, v := range p.Probs {
		sum += v
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Fatalf("probabilities sum to %v", sum)
	}
	if p.State != DefaultStateSet()[p.Ord] {
		t.Fatalf("state/ordinal mismatch: %s vs %d", p.State, p.Ord)
	}
	if p.Confidence() != p.Probs[p.Ord] {
		t.Fatalf("confidence mismatch")
	}
}

func TestPredictDeterministic(t *testing.T) {
	m, _ := NewModel(testArtifact(), testSchema(), DefaultStateSet())
	vec := features.Vector{"hr_mean_30": 58.2, "blink_mean_30": 19.7}
	a := m.Predict(vec)
	b := m.Predict(vec)
	if a != b {
		t.Fatalf("predictions differ: %+v vs %+v", a, b)
	}
}

func TestPredictBatch(t *testing.T) {
	m, _ := NewModel(testArtifact(), testSchema(), DefaultStateSet())
	vecs := []features.Vector{
		{"hr_mean_30": 70, "blink_mean_30": 5},
		{"hr_mean_30": 50, "blink_mean_30": 40},
	}
	preds := m.PredictBatch(vecs)
	if len(preds) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(preds))
	}
	if preds[0].State != "alert" {
		t.Fatalf("low blink rate should predict alert, got %s", preds[0].State)
	}
	if preds[1].State != "drowsy" {
		t.Fatalf("high blink rate should predict drowsy, got %s", preds[1].State)
	}
}

func TestSchemaMismatchFeatureCount(t *testing.T) {
	a := testArtifact()
	a.Features = append(a.Features, "extra")
	a.Weights[0] = append(a.Weights[0], 0)
	a.Weights[1] = append(a.Weights[1], 0)
	a.Weights[2] = append(a.Weights[2], 0)
	a.Weights[3] = append(a.Weights[3], 0)
	_, err := NewModel(a, testSchema(), DefaultStateSet())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestSchemaMismatchFeatureOrder(t *testing.T) {
	a := testArtifact()
	a.Features[0], a.Features[1] = a.Features[1], a.Features[0]
	_, err := NewModel(a, testSchema(), DefaultStateSet())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}

func TestSchemaMismatchLabelMapping(t *testing.T) {
	a := testArtifact()
	a.Classes[1], a.Classes[2] = a.Classes[2], a.Classes[1]
	_, err := NewModel(a, testSchema(), DefaultStateSet())
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("expected ErrSchemaMismatch, got %v", err)
	}
}
