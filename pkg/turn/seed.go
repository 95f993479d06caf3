package turn

import (
	_ "embed"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

//go:embed scenarios.yaml
var defaultScenariosYAML []byte

// Scenario is a fixed starting position.
type Scenario struct {
	Name      string           `yaml:"name"`
	Date      string           `yaml:"date"`
	Countries []string         `yaml:"countries"`
	Entities  []scenarioEntity `yaml:"entities"`
}

type scenarioEntity struct {
	ID          string     `yaml:"id"`
	Name        string     `yaml:"name"`
	Type        EntityType `yaml:"type"`
	Owner       string     `yaml:"owner"`
	Latitude    float64    `yaml:"latitude"`
	Longitude   float64    `yaml:"longitude"`
	Strength    *int       `yaml:"strength"`
	Description string     `yaml:"description"`
}

// ScenarioSet is a list of scenarios with a default.
type ScenarioSet struct {
	Default   string     `yaml:"default"`
	Scenarios []Scenario `yaml:"scenarios"`
}

// BuiltinScenarios returns the scenarios compiled into the binary.
func BuiltinScenarios() *ScenarioSet {
	set, err := ParseScenarios(defaultScenariosYAML)
	if err != nil {
		panic(fmt.Sprintf("builtin scenarios: %v", err))
	}
	return set
}

// SeedScenario returns the builtin starting position for a country.
func SeedScenario(country string) Scenario {
	return BuiltinScenarios().For(country)
}

// LoadScenarios reads a scenario file in the same format as the builtin one.
func LoadScenarios(path string) (*ScenarioSet, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	set, err := ParseScenarios(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return set, nil
}

// ParseScenarios decodes and validates a scenario document.
func ParseScenarios(raw []byte) (*ScenarioSet, error) {
	var set ScenarioSet
	if err := yaml.Unmarshal(raw, &set); err != nil {
		return nil, fmt.Errorf("decode scenarios: %w", err)
	}
	if len(set.Scenarios) == 0 {
		return nil, fmt.Errorf("no scenarios defined")
	}
	for _, s := range set.Scenarios {
		for _, e := range s.Entities {
			if e.ID == "" || !e.Type.Valid() {
				return nil, fmt.Errorf("scenario %q: invalid entity %q", s.Name, e.ID)
			}
			if !(Coordinate{Latitude: e.Latitude, Longitude: e.Longitude}).Valid() {
				return nil, fmt.Errorf("scenario %q: entity %q has no finite position", s.Name, e.ID)
			}
		}
	}
	return &set, nil
}

// For picks the scenario that lists country, falling back to the default
// scenario and then to the first one.
func (s *ScenarioSet) For(country string) Scenario {
	key := fold(country)
	for _, sc := range s.Scenarios {
		for _, c := range sc.Countries {
			if fold(c) == key {
				return sc
			}
		}
	}
	for _, sc := range s.Scenarios {
		if sc.Name == s.Default {
			return sc
		}
	}
	return s.Scenarios[0]
}

// EntityList returns fresh copies of the scenario's entities.
func (sc Scenario) EntityList() []Entity {
	out := make([]Entity, len(sc.Entities))
	for i, e := range sc.Entities {
		out[i] = Entity{
			ID:          e.ID,
			Name:        e.Name,
			Type:        e.Type,
			Owner:       e.Owner,
			Latitude:    e.Latitude,
			Longitude:   e.Longitude,
			Description: e.Description,
		}
		if e.Strength != nil {
			out[i].Strength = IntPtr(*e.Strength)
		}
	}
	return out
}

// StartDate returns the scenario date, or the classic opening date.
func (sc Scenario) StartDate() string {
	if sc.Date == "" {
		return "1 Janvier 1936"
	}
	return sc.Date
}
