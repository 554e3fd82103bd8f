package expert

import (
	"fmt"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// Roster is the fixed set of active experts, loaded once at process start.
type Roster struct {
	experts []*Expert
	byID    map[string]*Expert
}

// NewRoster builds a roster from experts, rejecting duplicates and invalid traits.
func NewRoster(experts []*Expert) (*Roster, error) {
	if len(experts) == 0 {
		return nil, fmt.Errorf("%w: empty roster", ErrInvalidRoster)
	}
	r := &Roster{byID: make(map[string]*Expert, len(experts))}
	for _, e := range experts {
		if e.ID == "" {
			return nil, fmt.Errorf("%w: expert with empty id", ErrInvalidRoster)
		}
		if _, dup := r.byID[e.ID]; dup {
			return nil, fmt.Errorf("%w: duplicate expert id %s", ErrInvalidRoster, e.ID)
		}
		if err := e.Personality.Validate(); err != nil {
			return nil, fmt.Errorf("%w: expert %s: %w", ErrInvalidRoster, e.ID, err)
		}
		r.byID[e.ID] = e
		r.experts = append(r.experts, e)
	}
	return r, nil
}

// All returns the experts in roster order.
func (r *Roster) All() []*Expert {
	out := make([]*Expert, len(r.experts))
	copy(out, r.experts)
	return out
}

// Get returns an expert by id.
func (r *Roster) Get(id string) (*Expert, error) {
	e, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownExpert, id)
	}
	return e, nil
}

// IDs returns all expert ids in roster order.
func (r *Roster) IDs() []string {
	out := make([]string, len(r.experts))
	for i, e := range r.experts {
		out[i] = e.ID
	}
	return out
}

// Size returns the number of active experts.
func (r *Roster) Size() int {
	return len(r.experts)
}

// rosterEntry mirrors the YAML roster schema.
type rosterEntry struct {
	ID           string            `koanf:"id"`
	Name         string            `koanf:"name"`
	LearningRate float64           `koanf:"learning_rate"`
	Personality  PersonalityVector `koanf:"personality"`
}

// LoadRosterFile reads a YAML roster overriding the built-in defaults.
func LoadRosterFile(path string) (*Roster, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoster, err)
	}
	var entries []rosterEntry
	if err := k.Unmarshal("experts", &entries); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidRoster, err)
	}
	experts := make([]*Expert, 0, len(entries))
	for _, entry := range entries {
		e, err := New(entry.ID, entry.Name, entry.Personality, entry.LearningRate)
		if err != nil {
			return nil, fmt.Errorf("%w: expert %s: %w", ErrInvalidRoster, entry.ID, err)
		}
		experts = append(experts, e)
	}
	return NewRoster(experts)
}

// defaultRoster is the built-in fifteen-expert roster. Personalities are
// deliberately spread across the trait space so the ensemble disagrees.
var defaultRoster = []rosterEntry{
	{ID: "quant", Name: "The Quant", LearningRate: 0.10,
		Personality: PersonalityVector{RiskTaking: 0.2, Optimism: 0.5, Analytical: 0.95, Contrarian: 0.3, Momentum: 0.2, ValueSeeking: 0.6, Emotional: 0.05}},
	{ID: "gambler", Name: "The Gambler", LearningRate: 0.35,
		Personality: PersonalityVector{RiskTaking: 0.95, Optimism: 0.7, Analytical: 0.2, Contrarian: 0.4, Momentum: 0.5, ValueSeeking: 0.3, Emotional: 0.6}},
	{ID: "contrarian", Name: "The Fader", LearningRate: 0.20,
		Personality: PersonalityVector{RiskTaking: 0.6, Optimism: 0.4, Analytical: 0.5, Contrarian: 0.95, Momentum: 0.2, ValueSeeking: 0.7, Emotional: 0.3}},
	{ID: "homer", Name: "The Optimist", LearningRate: 0.15,
		Personality: PersonalityVector{RiskTaking: 0.5, Optimism: 0.95, Analytical: 0.3, Contrarian: 0.1, Momentum: 0.6, ValueSeeking: 0.2, Emotional: 0.8}},
	{ID: "grinder", Name: "The Grinder", LearningRate: 0.08,
		Personality: PersonalityVector{RiskTaking: 0.15, Optimism: 0.35, Analytical: 0.7, Contrarian: 0.25, Momentum: 0.3, ValueSeeking: 0.8, Emotional: 0.1}},
	{ID: "rider", Name: "The Momentum Rider", LearningRate: 0.30,
		Personality: PersonalityVector{RiskTaking: 0.6, Optimism: 0.6, Analytical: 0.35, Contrarian: 0.15, Momentum: 0.95, ValueSeeking: 0.3, Emotional: 0.5}},
	{ID: "hunter", Name: "The Value Hunter", LearningRate: 0.18,
		Personality: PersonalityVector{RiskTaking: 0.4, Optimism: 0.45, Analytical: 0.75, Contrarian: 0.6, Momentum: 0.2, ValueSeeking: 0.95, Emotional: 0.15}},
	{ID: "gut", Name: "The Gut Feel", LearningRate: 0.40,
		Personality: PersonalityVector{RiskTaking: 0.7, Optimism: 0.55, Analytical: 0.05, Contrarian: 0.35, Momentum: 0.6, ValueSeeking: 0.2, Emotional: 0.95}},
	{ID: "veteran", Name: "The Veteran", LearningRate: 0.05,
		Personality: PersonalityVector{RiskTaking: 0.3, Optimism: 0.5, Analytical: 0.6, Contrarian: 0.4, Momentum: 0.4, ValueSeeking: 0.55, Emotional: 0.25}},
	{ID: "chaos", Name: "The Wildcard", LearningRate: 0.45,
		Personality: PersonalityVector{RiskTaking: 0.85, Optimism: 0.5, Analytical: 0.15, Contrarian: 0.7, Momentum: 0.5, ValueSeeking: 0.25, Emotional: 0.7}},
	{ID: "sharp", Name: "The Sharp", LearningRate: 0.12,
		Personality: PersonalityVector{RiskTaking: 0.45, Optimism: 0.4, Analytical: 0.85, Contrarian: 0.55, Momentum: 0.25, ValueSeeking: 0.85, Emotional: 0.1}},
	{ID: "underdog", Name: "The Underdog Lover", LearningRate: 0.25,
		Personality: PersonalityVector{RiskTaking: 0.65, Optimism: 0.6, Analytical: 0.3, Contrarian: 0.8, Momentum: 0.3, ValueSeeking: 0.5, Emotional: 0.55}},
	{ID: "scholar", Name: "The Scholar", LearningRate: 0.10,
		Personality: PersonalityVector{RiskTaking: 0.25, Optimism: 0.45, Analytical: 0.9, Contrarian: 0.2, Momentum: 0.35, ValueSeeking: 0.4, Emotional: 0.05}},
	{ID: "believer", Name: "The True Believer", LearningRate: 0.22,
		Personality: PersonalityVector{RiskTaking: 0.5, Optimism: 0.85, Analytical: 0.25, Contrarian: 0.05, Momentum: 0.75, ValueSeeking: 0.3, Emotional: 0.65}},
	{ID: "skeptic", Name: "The Skeptic", LearningRate: 0.14,
		Personality: PersonalityVector{RiskTaking: 0.2, Optimism: 0.15, Analytical: 0.65, Contrarian: 0.65, Momentum: 0.25, ValueSeeking: 0.6, Emotional: 0.2}},
}

// DefaultRoster returns the built-in fifteen-expert roster.
func DefaultRoster() *Roster {
	experts := make([]*Expert, 0, len(defaultRoster))
	for _, entry := range defaultRoster {
		e, err := New(entry.ID, entry.Name, entry.Personality, entry.LearningRate)
		if err != nil {
			// The built-in table is static; a failure here is a programming error.
			panic(err)
		}
		experts = append(experts, e)
	}
	r, err := NewRoster(experts)
	if err != nil {
		panic(err)
	}
	return r
}
