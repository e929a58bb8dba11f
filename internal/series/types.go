package series

// #region sample

// Sample is one time-indexed observation for one owner.
// T is integer seconds, strictly increasing within an owner's series.
type Sample struct {
	OwnerID  string
	T        int64
	Channels map[string]float64
	Label    string // ground-truth state label when present in the input, else ""
}

// #endregion sample

// #region series

// Series is the ordered sample sequence for a single owner.
// Immutable after ingest: the extractor never mutates raw channel values.
type Series struct {
	OwnerID string
	Samples []Sample
}

// Len returns the number of samples.
func (s *Series) Len() int {
	return len(s.Samples)
}

// #endregion series

// #region dataset

// Dataset holds one Series per owner, keyed explicitly; there is no shared
// "current owner" cursor anywhere in the pipeline.
type Dataset struct {
	Owners  []string // sorted, deduplicated
	ByOwner map[string]*Series
}

// Series returns the series for an owner, or nil if unknown.
func (d *Dataset) Series(owner string) *Series {
	return d.ByOwner[owner]
}

// #endregion dataset
