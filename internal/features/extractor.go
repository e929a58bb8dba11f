package features

// #region imports
import (
	"fmt"
	"math"

	"github.com/nbarrick/vigil/go-pipeline/internal/series"
)

// #endregion

// #region validate

// ValidateSchema checks the feature configuration against the available
// channels and an owner's series length. Returns a configuration error when a
// window can never produce a value for that series.
func ValidateSchema(schema Schema, channels map[string]bool, seriesLen int) error {
	seen := make(map[string]bool, len(schema.Specs))
	for _, sp := range schema.Specs {
		if sp.Name == "" {
			return fmt.Errorf("feature with empty name")
		}
		if seen[sp.Name] {
			return fmt.Errorf("duplicate feature name %q", sp.Name)
		}
		seen[sp.Name] = true
		if !channels[sp.Channel] {
			return fmt.Errorf("feature %q references unknown channel %q", sp.Name, sp.Channel)
		}
		if sp.Window < 1 {
			return fmt.Errorf("feature %q: window must be >= 1, got %d", sp.Name, sp.Window)
		}
		switch sp.Kind {
		case KindMean, KindStddev:
			if sp.Window > seriesLen {
				return fmt.Errorf("feature %q: window %d exceeds series length %d", sp.Name, sp.Window, seriesLen)
			}
		case KindLag, KindDelta:
			// Both need at least one position strictly after the window.
			if sp.Window >= seriesLen {
				return fmt.Errorf("feature %q: window %d exceeds series length %d", sp.Name, sp.Window, seriesLen)
			}
		default:
			return fmt.Errorf("feature %q: unknown kind %q", sp.Name, sp.Kind)
		}
	}
	return nil
}

// #endregion validate

// #region extract-series

// ExtractSeries computes the full feature table for one owner. Pure function
// of the series and schema: raw channel values are never mutated, and the
// value at position p reads only samples at positions <= p.
func ExtractSeries(s *series.Series, schema Schema) (*Table, error) {
	n := s.Len()
	channels := channelSet(s)
	if err := ValidateSchema(schema, channels, n); err != nil {
		return nil, err
	}

	rows := make([]Vector, n)
	for i := range rows {
		rows[i] = make(Vector, len(schema.Specs))
	}
	validFrom := make(map[string]int, len(schema.Specs))

	for _, sp := range schema.Specs {
		raw := channelValues(s, sp.Channel)
		first := 0
		for p := 1; p <= n; p++ {
			v, ok := compute(sp, raw, p)
			if ok && first == 0 {
				first = p
			}
			if ok {
				rows[p-1][sp.Name] = v
			}
		}
		// Edge-fill: propagate the first valid value backward. Never the
		// series mean; that would leak future samples into early positions.
		fill := rows[first-1][sp.Name]
		for p := 1; p < first; p++ {
			rows[p-1][sp.Name] = fill
		}
		validFrom[sp.Name] = first
	}

	return &Table{Owner: s.OwnerID, N: n, rows: rows, validFrom: validFrom}, nil
}

// #endregion extract-series

// #region extract-at

// At computes the feature vector for a single 1-based position on demand,
// with the same fill semantics as ExtractSeries. O(window) per feature.
func At(s *series.Series, schema Schema, p int) (Vector, error) {
	n := s.Len()
	if p < 1 || p > n {
		return nil, fmt.Errorf("position %d out of range [1, %d]", p, n)
	}
	if err := ValidateSchema(schema, channelSet(s), n); err != nil {
		return nil, err
	}

	vec := make(Vector, len(schema.Specs))
	for _, sp := range schema.Specs {
		raw := channelValues(s, sp.Channel)
		v, ok := compute(sp, raw, p)
		if !ok {
			// Walk forward to the first valid position for the fill value.
			for q := p + 1; q <= n; q++ {
				if fv, fok := compute(sp, raw, q); fok {
					v = fv
					break
				}
			}
		}
		vec[sp.Name] = v
	}
	return vec, nil
}

// #endregion extract-at

// #region compute

// compute evaluates one spec at 1-based position p over raw channel values.
// Returns ok=false where the window is undefined (start of series).
func compute(sp Spec, raw []float64, p int) (float64, bool) {
	w := sp.Window
	switch sp.Kind {
	case KindMean:
		if p < w {
			return 0, false
		}
		return mean(raw[p-w : p]), true
	case KindStddev:
		if p < w {
			return 0, false
		}
		return stddev(raw[p-w : p]), true
	case KindLag:
		if p <= w {
			return 0, false
		}
		return raw[p-w-1], true
	case KindDelta:
		if p <= w {
			return 0, false
		}
		// Current value minus the w-window mean ending at p-1: the baseline
		// itself is causal.
		return raw[p-1] - mean(raw[p-1-w:p-1]), true
	}
	return 0, false
}

// #endregion compute

// #region helpers

func channelSet(s *series.Series) map[string]bool {
	set := make(map[string]bool)
	if s.Len() > 0 {
		for name := range s.Samples[0].Channels {
			set[name] = true
		}
	}
	return set
}

func channelValues(s *series.Series, channel string) []float64 {
	out := make([]float64, s.Len())
	for i, smp := range s.Samples {
		out[i] = smp.Channels[channel]
	}
	return out
}

func mean(window []float64) float64 {
	var sum float64
	for _, v := range window {
		sum += v
	}
	return sum / float64(len(window))
}

// stddev is the sample standard deviation; 0 for windows of length 1.
func stddev(window []float64) float64 {
	n := len(window)
	if n < 2 {
		return 0
	}
	m := mean(window)
	var sumSq float64
	for _, v := range window {
		d := v - m
		sumSq += d * d
	}
	return math.Sqrt(sumSq / float64(n-1))
}

// #endregion helpers
