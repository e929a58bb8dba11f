package main

// #region imports
import (
	"flag"
	"fmt"
	"os"

	"github.com/nbarrick/vigil/go-pipeline/internal/config"
	"github.com/nbarrick/vigil/go-pipeline/internal/features"
	"github.com/nbarrick/vigil/go-pipeline/internal/series"
	"github.com/nbarrick/vigil/go-pipeline/internal/store"
)

// #endregion

// #region main

// extract computes the engineered feature table for every owner in the input
// series and exports it to SQLite, preserving raw channels and any
// ground-truth labels for downstream training and evaluation.
func main() {
	configPath := flag.String("config", "vigil.yaml", "path to config YAML")
	inPath := flag.String("in", "", "input series CSV (overrides config path)")
	outPath := flag.String("out", "", "output SQLite database path")
	flag.Parse()

	if *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: extract --config vigil.yaml --out features.db [--in series.csv]")
		os.Exit(2)
	}

	if err := run(*configPath, *inPath, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region run

func run(configPath, inPath, outPath string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	seriesPath := cfg.Paths.Series
	if inPath != "" {
		seriesPath = inPath
	}

	ds, err := series.LoadFile(seriesPath, cfg.Channels)
	if err != nil {
		return err
	}

	schema := cfg.Schema()
	st, err := store.NewStore(outPath, cfg.Channels, schema.Names())
	if err != nil {
		return err
	}
	defer st.Close()

	totalRows := 0
	for _, owner := range ds.Owners {
		sr := ds.Series(owner)
		tbl, err := features.ExtractSeries(sr, schema)
		if err != nil {
			return fmt.Errorf("owner %s: %w", owner, err)
		}
		if err := st.WriteOwner(sr, tbl); err != nil {
			return err
		}
		totalRows += tbl.N
		fmt.Printf("owner %-12s %6d rows\n", owner, tbl.N)
	}
	fmt.Printf("exported %d rows (%d owners, %d features) to %s\n",
		totalRows, len(ds.Owners), len(schema.Specs), outPath)
	return nil
}

// #endregion run
