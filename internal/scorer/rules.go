package scorer

import (
	"os"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/dealflow-cli/internal/model"
)

// Range is an inclusive revenue-potential score range for one
// opportunity type.
type Range struct {
	Min int `yaml:"min"`
	Max int `yaml:"max"`
}

// Rules holds the static scoring tables: revenue ranges per type,
// urgency keywords, and recommended-action templates.
type Rules struct {
	RevenueRanges   map[model.OpportunityType]Range  `yaml:"revenue_ranges"`
	DefaultRange    Range                            `yaml:"default_range"`
	UrgencyKeywords []string                         `yaml:"urgency_keywords"`
	Actions         map[model.OpportunityType]string `yaml:"actions"`
	DefaultAction   string                           `yaml:"default_action"`
}

// DefaultRules returns the built-in scoring tables.
func DefaultRules() *Rules {
	return &Rules{
		RevenueRanges: map[model.OpportunityType]Range{
			model.TypeGolfCoaching:    {Min: 90, Max: 100},
			model.TypeCoaching:        {Min: 90, Max: 100},
			model.TypePartnership:     {Min: 70, Max: 80},
			model.TypeProductFeedback: {Min: 20, Max: 40},
			model.TypeFitness:         {Min: 50, Max: 70},
			model.TypeConversion:      {Min: 70, Max: 90},
			model.TypeGeneral:         {Min: 10, Max: 30},
		},
		// Unknown types fall into a low, wide band instead of erroring.
		DefaultRange: Range{Min: 10, Max: 30},
		UrgencyKeywords: []string{
			"asap", "urgent", "quickly", "soon", "now", "immediately",
			"today", "tomorrow", "deadline", "time-sensitive",
			"need", "looking for", "seeking", "interested in",
		},
		Actions: map[model.OpportunityType]string{
			model.TypeGolfCoaching:    "Reply with coaching offer and availability",
			model.TypeCoaching:        "Reply with coaching offer and availability",
			model.TypePartnership:     "Schedule call to discuss partnership details",
			model.TypeProductFeedback: "Review feedback and send thank you",
		},
		DefaultAction: "Review and take appropriate action",
	}
}

// LoadRules reads scoring tables from a YAML file. Fields left empty in
// the file keep their built-in defaults.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, eris.Wrapf(err, "scorer: read rules %s", path)
	}

	rules := DefaultRules()
	if err := yaml.Unmarshal(data, rules); err != nil {
		return nil, eris.Wrapf(err, "scorer: parse rules %s", path)
	}
	if err := rules.Validate(); err != nil {
		return nil, err
	}
	return rules, nil
}

// Validate checks that every configured range is ordered and within the
// score bounds.
func (r *Rules) Validate() error {
	check := func(name string, rg Range) error {
		if rg.Min > rg.Max {
			return eris.Errorf("scorer: range %s: min %d > max %d", name, rg.Min, rg.Max)
		}
		if rg.Min < 0 || rg.Max > 100 {
			return eris.Errorf("scorer: range %s: outside [0,100]", name)
		}
		return nil
	}
	if err := check("default", r.DefaultRange); err != nil {
		return err
	}
	for typ, rg := range r.RevenueRanges {
		if err := check(string(typ), rg); err != nil {
			return err
		}
	}
	return nil
}

// RangeFor returns the revenue range for typ, falling back to the
// default range for unknown types.
func (r *Rules) RangeFor(typ model.OpportunityType) Range {
	if rg, ok := r.RevenueRanges[typ]; ok {
		return rg
	}
	return r.DefaultRange
}

// ActionFor returns the recommended next action for typ.
func (r *Rules) ActionFor(typ model.OpportunityType) string {
	if a, ok := r.Actions[typ]; ok {
		return a
	}
	return r.DefaultAction
}
