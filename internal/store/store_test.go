package store

import (
	"path/filepath"
	"testing"

	"github.com/nbarrick/vigil/go-pipeline/internal/features"
	"github.com/nbarrick/vigil/go-pipeline/internal/series"
)

var (
	testChannels = []string{"heart_rate", "blink_rate"}
	testFeatures = []string{"hr_mean_2", "blink_lag_1"}
)

func testSchema() features.Schema {
	return features.Schema{Specs: []features.Spec{
		{Name: "hr_mean_2", Channel: "heart_rate", Kind: features.KindMean, Window: 2},
		{Name: "blink_lag_1", Channel: "blink_rate", Kind: features.KindLag, Window: 1},
	}}
}

func testSeries(t *testing.T) *series.Series {
	t.Helper()
	s := &series.Series{OwnerID: "s1"}
	for i := 1; i <= 5; i++ {
		s.Samples = append(s.Samples, series.Sample{
			OwnerID: "s1",
			T:       int64(i),
			Channels: map[string]float64{
				"heart_rate": 60 + float64(i),
				"blink_rate": float64(10 + i),
			},
			Label: "alert",
		})
	}
	return s
}

func tempStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(filepath.Join(t.TempDir(), "features.db"), testChannels, testFeatures)
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestWriteAndReadOwner(t *testing.T) {
	st := tempStore(t)
	sr := testSeries(t)
	tbl, err := features.ExtractSeries(sr, testSchema())
	if err != nil {
		t.Fatalf("ExtractSeries: %v", err)
	}
	if err := st.WriteOwner(sr, tbl); err != nil {
		t.Fatalf("WriteOwner: %v", err)
	}

	rows, err := st.ReadOwner("s1")
	if err != nil {
		t.Fatalf("ReadOwner: %v", err)
	}
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d", len(rows))
	}
	// t=3: hr_mean_2 over samples 2,3 = (62+63)/2
	r := rows[2]
	if r.T != 3 {
		t.Fatalf("expected t=3, got %d", r.T)
	}
	if r.Values["hr_mean_2"] != 62.5 {
		t.Fatalf("hr_mean_2 at t=3: expected 62.5, got %v", r.Values["hr_mean_2"])
	}
	if r.Values["heart_rate"] != 63 {
		t.Fatalf("raw channel not preserved: %v", r.Values["heart_rate"])
	}
	if r.Label != "alert" {
		t.Fatalf("label not preserved: %q", r.Label)
	}
}

func TestStatsAndOwners(t *testing.T) {
	st := tempStore(t)
	sr := testSeries(t)
	tbl, _ := features.ExtractSeries(sr, testSchema())
	if err := st.WriteOwner(sr, tbl); err != nil {
		t.Fatalf("WriteOwner: %v", err)
	}

	stats, err := st.Stats()
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.Owners != 1 || stats.Rows != 5 {
		t.Fatalf("unexpected stats: %+v", stats)
	}

	owners, err := st.Owners()
	if err != nil {
		t.Fatalf("Owners: %v", err)
	}
	if len(owners) != 1 || owners[0] != "s1" {
		t.Fatalf("unexpected owners: %v", owners)
	}
}

func TestWriteOwnerIdempotent(t *testing.T) {
	st := tempStore(t)
	sr := testSeries(t)
	tbl, _ := features.ExtractSeries(sr, testSchema())
	if err := st.WriteOwner(sr, tbl); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := st.WriteOwner(sr, tbl); err != nil {
		t.Fatalf("second write: %v", err)
	}
	stats, _ := st.Stats()
	if stats.Rows != 5 {
		t.Fatalf("re-export should replace, not duplicate: %d rows", stats.Rows)
	}
}

func TestRejectsBadColumnName(t *testing.T) {
	_, err := NewStore(filepath.Join(t.TempDir(), "x.db"), []string{"heart-rate; DROP"}, testFeatures)
	if err == nil {
		t.Fatal("expected error for invalid column name")
	}
}
