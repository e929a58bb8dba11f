package series

// #region imports
import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"math"
	"os"
	"sort"
	"strconv"
)

// #endregion

// #region load-file

// LoadFile reads a CSV file with header owner_id,t,<channel...>[,label] and
// groups rows into per-owner series. Malformed rows are skipped with a log
// line; the stream never aborts on a single bad row.
func LoadFile(path string, channels []string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open series file %s: %w", path, err)
	}
	defer f.Close()
	return Load(f, channels)
}

// #endregion load-file

// #region load

// Load parses CSV rows from r into a Dataset. The header must contain
// owner_id, t, and every configured channel; a missing column is a
// configuration error, not a data error.
func Load(r io.Reader, channels []string) (*Dataset, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}
	for _, required := range append([]string{"owner_id", "t"}, channels...) {
		if _, ok := col[required]; !ok {
			return nil, fmt.Errorf("series input missing column %q", required)
		}
	}
	labelIdx, hasLabel := col["label"]

	ds := &Dataset{ByOwner: make(map[string]*Series)}
	line := 1

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		line++
		if err != nil {
			log.Printf("[SERIES] line %d: skipping malformed row: %v", line, err)
			continue
		}

		s, rerr := parseRow(row, col, channels)
		if rerr != nil {
			log.Printf("[SERIES] line %d: skipping row: %v", line, rerr)
			continue
		}
		if hasLabel && labelIdx < len(row) {
			s.Label = row[labelIdx]
		}

		sr, ok := ds.ByOwner[s.OwnerID]
		if !ok {
			sr = &Series{OwnerID: s.OwnerID}
			ds.ByOwner[s.OwnerID] = sr
			ds.Owners = append(ds.Owners, s.OwnerID)
		}
		sr.Samples = append(sr.Samples, s)
	}

	for _, owner := range ds.Owners {
		normalize(ds.ByOwner[owner])
	}
	sort.Strings(ds.Owners)
	return ds, nil
}

// #endregion load

// #region parse-row

func parseRow(row []string, col map[string]int, channels []string) (Sample, error) {
	get := func(name string) (string, error) {
		i := col[name]
		if i >= len(row) {
			return "", fmt.Errorf("missing field %q", name)
		}
		return row[i], nil
	}

	ownerRaw, err := get("owner_id")
	if err != nil {
		return Sample{}, err
	}
	if ownerRaw == "" {
		return Sample{}, fmt.Errorf("empty owner_id")
	}

	tRaw, err := get("t")
	if err != nil {
		return Sample{}, err
	}
	t, err := strconv.ParseInt(tRaw, 10, 64)
	if err != nil {
		return Sample{}, fmt.Errorf("bad t %q: %w", tRaw, err)
	}

	vals := make(map[string]float64, len(channels))
	for _, ch := range channels {
		raw, err := get(ch)
		if err != nil {
			return Sample{}, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return Sample{}, fmt.Errorf("bad %s %q: %w", ch, raw, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Sample{}, fmt.Errorf("non-finite %s", ch)
		}
		vals[ch] = v
	}

	return Sample{OwnerID: ownerRaw, T: t, Channels: vals}, nil
}

// #endregion parse-row

// #region normalize

// normalize sorts an owner's samples by t and drops duplicates and
// out-of-order leftovers so that t is strictly increasing.
func normalize(s *Series) {
	sort.SliceStable(s.Samples, func(i, j int) bool {
		return s.Samples[i].T < s.Samples[j].T
	})
	out := s.Samples[:0]
	var lastT int64
	for i, smp := range s.Samples {
		if i > 0 && smp.T <= lastT {
			log.Printf("[SERIES] owner %s: dropping duplicate sample at t=%d", s.OwnerID, smp.T)
			continue
		}
		out = append(out, smp)
		lastT = smp.T
	}
	s.Samples = out
}

// #endregion normalize
