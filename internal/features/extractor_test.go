package features

import (
	"math"
	"testing"

	"github.com/nbarrick/vigil/go-pipeline/internal/series"
)

// buildSeries makes a single-channel series "x" from values, t = 1..len.
func buildSeries(t *testing.T, values []float64) *series.Series {
	t.Helper()
	s := &series.Series{OwnerID: "s1"}
	for i, v := range values {
		s.Samples = append(s.Samples, series.Sample{
			OwnerID:  "s1",
			T:        int64(i + 1),
			Channels: map[string]float64{"x": v},
		})
	}
	return s
}

func constant(n int, c float64) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = c
	}
	return out
}

func TestMeanConstantRegion(t *testing.T) {
	s := buildSeries(t, constant(40, 5.0))
	schema := Schema{Specs: []Spec{
		{Name: "x_mean_5", Channel: "x", Kind: KindMean, Window: 5},
		{Name: "x_std_5", Channel: "x", Kind: KindStddev, Window: 5},
	}}
	tbl, err := ExtractSeries(s, schema)
	if err != nil {
		t.Fatalf("ExtractSeries: %v", err)
	}

	vec, _ := tbl.Vector(10)
	if vec["x_mean_5"] != 5.0 {
		t.Fatalf("mean at t=10: expected 5.0 exactly, got %v", vec["x_mean_5"])
	}
	if vec["x_std_5"] != 0 {
		t.Fatalf("stddev at t=10: expected 0, got %v", vec["x_std_5"])
	}

	// Before the first full window the fill value applies: first valid mean
	// is at t=5, which is also 5.0 here.
	early, _ := tbl.Vector(3)
	if early["x_mean_5"] != 5.0 {
		t.Fatalf("fill at t=3: expected 5.0, got %v", early["x_mean_5"])
	}
	if tbl.ValidFrom("x_mean_5") != 5 {
		t.Fatalf("expected ValidFrom=5, got %d", tbl.ValidFrom("x_mean_5"))
	}
}

func TestMeanRightAligned(t *testing.T) {
	s := buildSeries(t, []float64{1, 2, 3, 4, 5, 6})
	schema := Schema{Specs: []Spec{{Name: "m3", Channel: "x", Kind: KindMean, Window: 3}}}
	tbl, err := ExtractSeries(s, schema)
	if err != nil {
		t.Fatalf("ExtractSeries: %v", err)
	}
	// At t=4 the window is samples 2,3,4 → mean 3.
	vec, _ := tbl.Vector(4)
	if vec["m3"] != 3.0 {
		t.Fatalf("expected right-aligned mean 3.0, got %v", vec["m3"])
	}
}

func TestLagCorrectness(t *testing.T) {
	vals := []float64{10, 20, 30, 40, 50}
	s := buildSeries(t, vals)
	schema := Schema{Specs: []Spec{{Name: "lag2", Channel: "x", Kind: KindLag, Window: 2}}}
	tbl, err := ExtractSeries(s, schema)
	if err != nil {
		t.Fatalf("ExtractSeries: %v", err)
	}
	for p := 3; p <= 5; p++ {
		vec, _ := tbl.Vector(p)
		if vec["lag2"] != vals[p-3] {
			t.Fatalf("lag2 at t=%d: expected %v, got %v", p, vals[p-3], vec["lag2"])
		}
	}
	// t <= k takes the fill value: the first valid lag, raw value at t=1.
	vec, _ := tbl.Vector(1)
	if vec["lag2"] != 10 {
		t.Fatalf("fill for lag2 at t=1: expected 10, got %v", vec["lag2"])
	}
}

func TestDeltaUsesPrecedingBaseline(t *testing.T) {
	s := buildSeries(t, []float64{1, 2, 3, 10})
	schema := Schema{Specs: []Spec{{Name: "d3", Channel: "x", Kind: KindDelta, Window: 3}}}
	tbl, err := ExtractSeries(s, schema)
	if err != nil {
		t.Fatalf("ExtractSeries: %v", err)
	}
	// At t=4: baseline is mean(1,2,3)=2, delta = 10-2 = 8.
	vec, _ := tbl.Vector(4)
	if vec["d3"] != 8.0 {
		t.Fatalf("delta at t=4: expected 8.0, got %v", vec["d3"])
	}
}

func TestCausality(t *testing.T) {
	vals := []float64{3, 1, 4, 1, 5, 9, 2, 6}
	schema := Schema{Specs: []Spec{
		{Name: "m3", Channel: "x", Kind: KindMean, Window: 3},
		{Name: "sd3", Channel: "x", Kind: KindStddev, Window: 3},
		{Name: "lg2", Channel: "x", Kind: KindLag, Window: 2},
		{Name: "d2", Channel: "x", Kind: KindDelta, Window: 2},
	}}

	full, err := ExtractSeries(buildSeries(t, vals), schema)
	if err != nil {
		t.Fatalf("ExtractSeries: %v", err)
	}

	// Mutating samples after t=5 must not change FeatureVector(5).
	mutated := append([]float64{}, vals...)
	mutated[5], mutated[6], mutated[7] = 100, -100, 42
	part, err := ExtractSeries(buildSeries(t, mutated), schema)
	if err != nil {
		t.Fatalf("ExtractSeries mutated: %v", err)
	}

	for p := 1; p <= 5; p++ {
		a, _ := full.Vector(p)
		b, _ := part.Vector(p)
		for name := range a {
			if a[name] != b[name] {
				t.Fatalf("causality violated: %s at t=%d changed %v → %v", name, p, a[name], b[name])
			}
		}
	}
}

func TestAtMatchesPrecomputed(t *testing.T) {
	vals := []float64{2, 7, 1, 8, 2, 8}
	s := buildSeries(t, vals)
	schema := Schema{Specs: []Spec{
		{Name: "m2", Channel: "x", Kind: KindMean, Window: 2},
		{Name: "d2", Channel: "x", Kind: KindDelta, Window: 2},
	}}
	tbl, err := ExtractSeries(s, schema)
	if err != nil {
		t.Fatalf("ExtractSeries: %v", err)
	}
	for p := 1; p <= len(vals); p++ {
		onDemand, err := At(s, schema, p)
		if err != nil {
			t.Fatalf("At(%d): %v", p, err)
		}
		pre, _ := tbl.Vector(p)
		for name := range pre {
			if onDemand[name] != pre[name] {
				t.Fatalf("%s at t=%d: on-demand %v != precomputed %v", name, p, onDemand[name], pre[name])
			}
		}
	}
}

func TestStddevValue(t *testing.T) {
	s := buildSeries(t, []float64{2, 4, 4, 4, 5, 5, 7, 9})
	schema := Schema{Specs: []Spec{{Name: "sd8", Channel: "x", Kind: KindStddev, Window: 8}}}
	tbl, err := ExtractSeries(s, schema)
	if err != nil {
		t.Fatalf("ExtractSeries: %v", err)
	}
	vec, _ := tbl.Vector(8)
	want := math.Sqrt(32.0 / 7.0) // sample variance of the classic 2,4,4,4,5,5,7,9
	if math.Abs(vec["sd8"]-want) > 1e-12 {
		t.Fatalf("stddev: expected %v, got %v", want, vec["sd8"])
	}
}

func TestWindowExceedsSeriesLength(t *testing.T) {
	s := buildSeries(t, []float64{1, 2, 3})
	schema := Schema{Specs: []Spec{{Name: "m5", Channel: "x", Kind: KindMean, Window: 5}}}
	if _, err := ExtractSeries(s, schema); err == nil {
		t.Fatal("expected configuration error for window > series length")
	}
}

func TestUnknownChannel(t *testing.T) {
	s := buildSeries(t, []float64{1, 2, 3})
	schema := Schema{Specs: []Spec{{Name: "m2", Channel: "y", Kind: KindMean, Window: 2}}}
	if _, err := ExtractSeries(s, schema); err == nil {
		t.Fatal("expected configuration error for unknown channel")
	}
}
