package stateable

import (
	"fmt"

	"gopkg.in/yaml.v3"
)

// yamlDefinition is the on-disk shape of a machine definition. Guards and
// callbacks are referenced by name only; they resolve against the entity's
// Conditioner, Predicater, and MethodCallbacker interfaces at call time.
type yamlDefinition struct {
	LedgerTable string           `yaml:"ledger_table"`
	States      []yamlState      `yaml:"states"`
	Transitions []yamlTransition `yaml:"transitions"`
}

type yamlState struct {
	Name    string `yaml:"name"`
	Initial bool   `yaml:"initial"`
}

type yamlTransition struct {
	Event  string   `yaml:"event"`
	From   []string `yaml:"from"`
	To     string   `yaml:"to"`
	Guards []string `yaml:"guards"`
	If     []string `yaml:"if"`
	Before []string `yaml:"before"`
	After  []string `yaml:"after"`
}

// FromYAML parses a declarative machine definition into configuration
// options:
//
//	ledger_table: transitions
//	states:
//	  - name: draft
//	    initial: true
//	  - name: published
//	transitions:
//	  - event: publish
//	    from: [draft]
//	    to: published
//	    guards: [title_present]
//	    if: [publishable]
//	    before: [notify_author]
//
// The returned options feed straight into New, and may be combined with
// programmatic options for inline guards or validations. Semantic checks
// (duplicate states, dangling references) stay with New so a bad document
// fails exactly like bad code.
func FromYAML(data []byte) ([]Option, error) {
	var def yamlDefinition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, fmt.Errorf("stateable: parse definition: %w", err)
	}

	var opts []Option
	if def.LedgerTable != "" {
		opts = append(opts, WithLedgerTable(def.LedgerTable))
	}

	for _, s := range def.States {
		if s.Initial {
			opts = append(opts, WithInitialState(State(s.Name)))
		} else {
			opts = append(opts, WithState(State(s.Name)))
		}
	}

	for _, t := range def.Transitions {
		from := make([]State, 0, len(t.From))
		for _, s := range t.From {
			from = append(from, State(s))
		}

		var topts []TransitionOption
		for _, name := range t.Guards {
			topts = append(topts, GuardMethod(name))
		}
		for _, name := range t.If {
			topts = append(topts, GuardIf(name))
		}
		for _, name := range t.Before {
			topts = append(topts, BeforeMethod(name))
		}
		for _, name := range t.After {
			topts = append(topts, AfterMethod(name))
		}

		opts = append(opts, WithTransition(Event(t.Event), from, State(t.To), topts...))
	}

	return opts, nil
}
