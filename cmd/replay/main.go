package main

// #region imports
import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/nbarrick/vigil/go-pipeline/internal/classifier"
	"github.com/nbarrick/vigil/go-pipeline/internal/config"
	"github.com/nbarrick/vigil/go-pipeline/internal/pipeline"
	"github.com/nbarrick/vigil/go-pipeline/internal/rationale"
	"github.com/nbarrick/vigil/go-pipeline/internal/replay"
	"github.com/nbarrick/vigil/go-pipeline/internal/series"
)

// #endregion

// #region main

func main() {
	configPath := flag.String("config", "vigil.yaml", "path to config YAML")
	owner := flag.String("owner", "", "replay one owner and print a summary")
	fixturePath := flag.String("fixture", "", "check a fixture JSON (regression mode)")
	verbose := flag.Bool("v", false, "print every step in owner mode")
	flag.Parse()

	if (*owner == "" && *fixturePath == "") || (*owner != "" && *fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --config vigil.yaml --owner s01")
		fmt.Fprintln(os.Stderr, "       replay --config vigil.yaml --fixture path/to/fixture.json")
		os.Exit(2)
	}

	pipe, err := buildPipeline(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "build pipeline: %v\n", err)
		os.Exit(1)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(pipe, *fixturePath)
	} else {
		exitCode = runOwnerMode(pipe, *owner, *verbose)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region build

func buildPipeline(configPath string) (*pipeline.Pipeline, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	ds, err := series.LoadFile(cfg.Paths.Series, cfg.Channels)
	if err != nil {
		return nil, err
	}
	artifact, err := classifier.LoadArtifact(cfg.Paths.Artifact)
	if err != nil {
		return nil, err
	}
	model, err := classifier.NewModel(artifact, cfg.Schema(), cfg.StateSet())
	if err != nil {
		return nil, err
	}
	engine, err := rationale.NewEngine(cfg.Rationale, cfg.StateSet(), cfg.Schema())
	if err != nil {
		return nil, err
	}
	return pipeline.New(ds, cfg.Schema(), model, engine)
}

// #endregion build

// #region owner-mode

func runOwnerMode(pipe *pipeline.Pipeline, owner string, verbose bool) int {
	results, err := replay.Run(pipe, owner)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 1
	}
	if verbose {
		for _, r := range results {
			fmt.Printf("t=%-6d state=%-12s p=%.3f bullets=%d\n", r.T, r.State, r.Confidence, r.Bullets)
		}
	}

	sum := replay.Summarize(owner, results)
	fmt.Printf("owner %s: %d steps, %d transitions\n", sum.Owner, sum.Steps, sum.Transitions)

	states := make([]string, 0, len(sum.StateCounts))
	for st := range sum.StateCounts {
		states = append(states, st)
	}
	sort.Strings(states)
	for _, st := range states {
		fmt.Printf("  %-12s %6d\n", st, sum.StateCounts[st])
	}
	return 0
}

// #endregion owner-mode

// #region fixture-mode

func runFixtureMode(pipe *pipeline.Pipeline, fixturePath string) int {
	f, err := replay.LoadFixture(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 1
	}
	mismatches, err := replay.Check(pipe, f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "check fixture: %v\n", err)
		return 1
	}
	if len(mismatches) == 0 {
		fmt.Printf("fixture ok: %s (%d expectations)\n", f.Description, len(f.Expected))
		return 0
	}
	for _, m := range mismatches {
		fmt.Printf("MISMATCH cursor=%d want=%s got=%s\n", m.Cursor, m.Want, m.Got)
	}
	fmt.Printf("fixture failed: %d/%d expectations\n", len(mismatches), len(f.Expected))
	return 1
}

// #endregion fixture-mode
