package main

// #region imports
import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/nbarrick/vigil/go-pipeline/internal/classifier"
	"github.com/nbarrick/vigil/go-pipeline/internal/config"
	"github.com/nbarrick/vigil/go-pipeline/internal/store"
)

// #endregion

// #region main

func main() {
	artifactPath := flag.String("artifact", "", "inspect a trained artifact")
	dbPath := flag.String("db", "", "inspect an exported feature table")
	configPath := flag.String("config", "vigil.yaml", "config YAML (needed for --db column layout)")
	jsonOut := flag.Bool("json", false, "output as JSON instead of text")
	flag.Parse()

	if *artifactPath == "" && *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --artifact model.vgaf [--json]")
		fmt.Fprintln(os.Stderr, "       inspect --db features.db --config vigil.yaml [--json]")
		os.Exit(2)
	}

	if *artifactPath != "" {
		if err := runArtifactMode(*artifactPath, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
	if *dbPath != "" {
		if err := runDBMode(*dbPath, *configPath, *jsonOut); err != nil {
			fmt.Fprintf(os.Stderr, "error: %v\n", err)
			os.Exit(1)
		}
	}
}

// #endregion main

// #region artifact-mode

type artifactInfo struct {
	Features []string `json:"features"`
	Classes  []string `json:"classes"`
}

func runArtifactMode(path string, jsonOut bool) error {
	a, err := classifier.LoadArtifact(path)
	if err != nil {
		return err
	}
	info := artifactInfo{Features: a.Features, Classes: a.Classes}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Printf("artifact %s\n", path)
	fmt.Printf("  classes (%d, ordinal order):\n", len(info.Classes))
	for i, c := range info.Classes {
		fmt.Printf("    %d  %s\n", i, c)
	}
	fmt.Printf("  features (%d, schema order):\n", len(info.Features))
	for i, f := range info.Features {
		fmt.Printf("    %2d  %s\n", i, f)
	}
	return nil
}

// #endregion artifact-mode

// #region db-mode

type tableInfo struct {
	Owners []string `json:"owners"`
	Rows   int      `json:"rows"`
}

func runDBMode(dbPath, configPath string, jsonOut bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	st, err := store.NewStore(dbPath, cfg.Channels, cfg.Schema().Names())
	if err != nil {
		return err
	}
	defer st.Close()

	stats, err := st.Stats()
	if err != nil {
		return err
	}
	owners, err := st.Owners()
	if err != nil {
		return err
	}
	info := tableInfo{Owners: owners, Rows: stats.Rows}

	if jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(info)
	}

	fmt.Printf("feature table %s\n", dbPath)
	fmt.Printf("  rows: %d\n", info.Rows)
	fmt.Printf("  owners (%d):\n", len(info.Owners))
	for _, o := range info.Owners {
		rows, err := st.ReadOwner(o)
		if err != nil {
			return err
		}
		fmt.Printf("    %-12s %6d rows\n", o, len(rows))
	}
	return nil
}

// #endregion db-mode
