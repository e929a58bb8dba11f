package rationale

// #region imports
import (
	"fmt"
	"strconv"
	"strings"

	"github.com/nbarrick/vigil/go-pipeline/internal/classifier"
	"github.com/nbarrick/vigil/go-pipeline/internal/features"
)

// #endregion

// #region types

// Direction is the side of a threshold a rule fires on.
type Direction string

const (
	Above Direction = "above"
	Below Direction = "below"
)

// Rule is one conditional bullet: when the named feature crosses Threshold in
// Direction while State is predicted, Template is emitted. Thresholds live in
// configuration so they can be tuned without touching logic.
type Rule struct {
	State     string    `yaml:"state"`
	Feature   string    `yaml:"feature"`
	Direction Direction `yaml:"direction"`
	Threshold float64   `yaml:"threshold"`
	Template  string    `yaml:"template"`
}

// Config declares the full rule table: one headline template per state plus
// an ordered rule list. Rules are evaluated in declared order and every
// matching rule fires.
type Config struct {
	Headlines map[string]string `yaml:"headlines"`
	Rules     []Rule            `yaml:"rules"`
}

// Rationale is the explanation for one prediction. Never persisted;
// recomputed per tick.
type Rationale struct {
	Headline string   `json:"headline"`
	Bullets  []string `json:"bullets"`
}

// #endregion types

// #region engine

// Engine maps (prediction, feature vector) to a Rationale. Pure and
// deterministic: identical inputs always yield the identical output.
type Engine struct {
	config Config
}

// NewEngine validates the rule table against the state set and feature
// schema. Every state must have a headline (the engine is total over the
// state set); a rule naming an unknown state or feature is a configuration
// error.
func NewEngine(config Config, states classifier.StateSet, schema features.Schema) (*Engine, error) {
	for _, st := range states {
		if _, ok := config.Headlines[st]; !ok {
			return nil, fmt.Errorf("rationale config missing headline for state %q", st)
		}
	}
	known := make(map[string]bool)
	for _, name := range schema.Names() {
		known[name] = true
	}
	for i, r := range config.Rules {
		if states.Ordinal(r.State) < 0 {
			return nil, fmt.Errorf("rationale rule %d: unknown state %q", i, r.State)
		}
		if !known[r.Feature] {
			return nil, fmt.Errorf("rationale rule %d: unknown feature %q", i, r.Feature)
		}
		if r.Direction != Above && r.Direction != Below {
			return nil, fmt.Errorf("rationale rule %d: direction must be above or below, got %q", i, r.Direction)
		}
	}
	return &Engine{config: config}, nil
}

// #endregion engine

// #region explain

// Explain builds the rationale for a prediction and the feature vector at
// the same cursor. Matching rules accumulate bullets in declared order; no
// short-circuit.
func (e *Engine) Explain(pred classifier.Prediction, vec features.Vector) Rationale {
	headline := renderHeadline(e.config.Headlines[pred.State], pred)

	var bullets []string
	for _, r := range e.config.Rules {
		if r.State != pred.State {
			continue
		}
		v, ok := vec[r.Feature]
		if !ok {
			continue
		}
		fired := (r.Direction == Above && v > r.Threshold) ||
			(r.Direction == Below && v < r.Threshold)
		if fired {
			bullets = append(bullets, renderBullet(r, v))
		}
	}
	return Rationale{Headline: headline, Bullets: bullets}
}

// #endregion explain

// #region render

func renderHeadline(tmpl string, pred classifier.Prediction) string {
	out := strings.ReplaceAll(tmpl, "{state}", pred.State)
	out = strings.ReplaceAll(out, "{confidence}", formatValue(pred.Confidence()))
	return out
}

func renderBullet(r Rule, value float64) string {
	out := strings.ReplaceAll(r.Template, "{feature}", r.Feature)
	out = strings.ReplaceAll(out, "{value}", formatValue(value))
	out = strings.ReplaceAll(out, "{threshold}", formatValue(r.Threshold))
	return out
}

// formatValue renders a value with two decimals, fixed notation, so that
// repeated explanations are byte-identical.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// #endregion render
