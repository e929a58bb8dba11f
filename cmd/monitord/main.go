package main

// #region imports
import (
	"flag"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nbarrick/vigil/go-pipeline/internal/classifier"
	"github.com/nbarrick/vigil/go-pipeline/internal/config"
	"github.com/nbarrick/vigil/go-pipeline/internal/feed"
	"github.com/nbarrick/vigil/go-pipeline/internal/metrics"
	"github.com/nbarrick/vigil/go-pipeline/internal/pipeline"
	"github.com/nbarrick/vigil/go-pipeline/internal/rationale"
	"github.com/nbarrick/vigil/go-pipeline/internal/series"
	"github.com/nbarrick/vigil/go-pipeline/internal/server"
)

// #endregion

// #region main

// monitord builds the full inference pipeline and serves the playback
// interface. Every configuration error below is fatal before the listener
// opens: no UI ever renders against a partially constructed pipeline.
func main() {
	configPath := flag.String("config", "vigil.yaml", "path to config YAML")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	ds, err := series.LoadFile(cfg.Paths.Series, cfg.Channels)
	if err != nil {
		log.Fatalf("load series: %v", err)
	}

	artifact, err := classifier.LoadArtifact(cfg.Paths.Artifact)
	if err != nil {
		log.Fatalf("load artifact: %v", err)
	}
	model, err := classifier.NewModel(artifact, cfg.Schema(), cfg.StateSet())
	if err != nil {
		log.Fatalf("validate artifact: %v", err)
	}

	engine, err := rationale.NewEngine(cfg.Rationale, cfg.StateSet(), cfg.Schema())
	if err != nil {
		log.Fatalf("rationale config: %v", err)
	}

	pipe, err := pipeline.New(ds, cfg.Schema(), model, engine)
	if err != nil {
		log.Fatalf("build pipeline: %v", err)
	}

	m := metrics.New()

	var sink server.Sink
	if cfg.MQTT.Broker != "" {
		pub, err := feed.NewPublisher(cfg.MQTT.Broker, cfg.MQTT.TopicPrefix)
		if err != nil {
			log.Fatalf("connect feed broker: %v", err)
		}
		defer pub.Close()
		sink = pub
	}

	srv := server.New(pipe, server.Options{
		AllowedSpeeds: cfg.Playback.AllowedSpeeds,
		TickPeriod:    time.Duration(cfg.Playback.TickPeriodMS) * time.Millisecond,
		Bound:         cfg.Bound,
	}, m, sink)
	defer srv.Shutdown()

	gin.SetMode(gin.ReleaseMode)
	log.Printf("[MAIN] %d owners loaded, serving on %s", len(pipe.Owners()), cfg.Server.Addr)
	if err := srv.Router().Run(cfg.Server.Addr); err != nil {
		log.Fatalf("serve: %v", err)
	}
}

// #endregion main
