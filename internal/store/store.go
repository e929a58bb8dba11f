package store

// #region imports
import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"

	"github.com/nbarrick/vigil/go-pipeline/internal/features"
	"github.com/nbarrick/vigil/go-pipeline/internal/series"
	_ "modernc.org/sqlite"
)

// #endregion

// #region store-struct

// Store persists the engineered feature table in SQLite: one row per
// (owner_id, t) carrying raw channels, all configured features, and the
// optional ground-truth label.
type Store struct {
	db       *sql.DB
	channels []string
	feats    []string
}

// #endregion store-struct

// #region identifiers

var identPattern = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

func checkIdents(names []string) error {
	for _, n := range names {
		if !identPattern.MatchString(n) {
			return fmt.Errorf("invalid column name %q", n)
		}
	}
	return nil
}

// #endregion identifiers

// #region constructor

// NewStore opens the database, applies pragmas, and creates the feature
// table with one REAL column per channel and feature. Column names come from
// configuration and are validated as identifiers.
func NewStore(dbPath string, channels, featureNames []string) (*Store, error) {
	if err := checkIdents(channels); err != nil {
		return nil, err
	}
	if err := checkIdents(featureNames); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		return nil, fmt.Errorf("pragma: %w", err)
	}

	var cols []string
	for _, c := range append(append([]string{}, channels...), featureNames...) {
		cols = append(cols, fmt.Sprintf("%q REAL NOT NULL", c))
	}
	schema := fmt.Sprintf(`CREATE TABLE IF NOT EXISTS feature_rows (
	owner_id TEXT NOT NULL,
	t        INTEGER NOT NULL,
	%s,
	label    TEXT,
	PRIMARY KEY (owner_id, t)
)`, strings.Join(cols, ",\n\t"))

	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, channels: channels, feats: featureNames}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// #endregion constructor

// #region write

// WriteOwner inserts every row of one owner's series plus its precomputed
// feature table. Runs in one transaction so a partially exported owner never
// survives a crash.
func (s *Store) WriteOwner(sr *series.Series, tbl *features.Table) error {
	allCols := []string{"owner_id", "t"}
	allCols = append(allCols, s.channels...)
	allCols = append(allCols, s.feats...)
	allCols = append(allCols, "label")

	quoted := make([]string, len(allCols))
	marks := make([]string, len(allCols))
	for i, c := range allCols {
		quoted[i] = fmt.Sprintf("%q", c)
		marks[i] = "?"
	}
	stmt := fmt.Sprintf("INSERT OR REPLACE INTO feature_rows (%s) VALUES (%s)",
		strings.Join(quoted, ", "), strings.Join(marks, ", "))

	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	for i, smp := range sr.Samples {
		vec, ok := tbl.Vector(i + 1)
		if !ok {
			return fmt.Errorf("owner %s: no feature vector at position %d", sr.OwnerID, i+1)
		}
		args := []interface{}{sr.OwnerID, smp.T}
		for _, ch := range s.channels {
			args = append(args, smp.Channels[ch])
		}
		for _, f := range s.feats {
			args = append(args, vec[f])
		}
		args = append(args, nullIfEmpty(smp.Label))
		if _, err := tx.Exec(stmt, args...); err != nil {
			return fmt.Errorf("insert row owner=%s t=%d: %w", sr.OwnerID, smp.T, err)
		}
	}
	return tx.Commit()
}

// #endregion write

// #region read

// Row is one exported feature row read back from the table.
type Row struct {
	OwnerID string
	T       int64
	Values  map[string]float64 // channels and features merged
	Label   string
}

// ReadOwner returns all rows for an owner ordered by t.
func (s *Store) ReadOwner(owner string) ([]Row, error) {
	valueCols := append(append([]string{}, s.channels...), s.feats...)
	quoted := make([]string, len(valueCols))
	for i, c := range valueCols {
		quoted[i] = fmt.Sprintf("%q", c)
	}
	q := fmt.Sprintf("SELECT t, %s, label FROM feature_rows WHERE owner_id = ? ORDER BY t",
		strings.Join(quoted, ", "))

	rows, err := s.db.Query(q, owner)
	if err != nil {
		return nil, fmt.Errorf("read owner %s: %w", owner, err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		r := Row{OwnerID: owner, Values: make(map[string]float64, len(valueCols))}
		dest := make([]interface{}, 0, len(valueCols)+2)
		dest = append(dest, &r.T)
		vals := make([]float64, len(valueCols))
		for i := range vals {
			dest = append(dest, &vals[i])
		}
		var label sql.NullString
		dest = append(dest, &label)
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		for i, c := range valueCols {
			r.Values[c] = vals[i]
		}
		if label.Valid {
			r.Label = label.String
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats summarizes the table for inspection tooling.
type Stats struct {
	Owners int
	Rows   int
}

// Stats counts distinct owners and total rows.
func (s *Store) Stats() (Stats, error) {
	var st Stats
	err := s.db.QueryRow(
		`SELECT COUNT(DISTINCT owner_id), COUNT(*) FROM feature_rows`,
	).Scan(&st.Owners, &st.Rows)
	if err != nil {
		return Stats{}, fmt.Errorf("stats: %w", err)
	}
	return st, nil
}

// Owners lists distinct owners in the table.
func (s *Store) Owners() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT owner_id FROM feature_rows ORDER BY owner_id`)
	if err != nil {
		return nil, fmt.Errorf("owners: %w", err)
	}
	defer rows.Close()
	var out []string
	for rows.Next() {
		var o string
		if err := rows.Scan(&o); err != nil {
			return nil, fmt.Errorf("scan owner: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// #endregion read

// #region helpers

func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers
