package rubric

import (
	"fmt"
	"sort"
	"strings"
)

type Criterion string

const (
	Grammar    Criterion = "grammar"
	Vocabulary Criterion = "vocabulary"
	Coherence  Criterion = "coherence"
	Spelling   Criterion = "spelling"
	Structure  Criterion = "structure"
)

// All lists the scored criteria in report order.
var All = []Criterion{Grammar, Vocabulary, Coherence, Spelling, Structure}

var descriptions = map[Criterion]string{
	Grammar:    "sentence structure, punctuation, subject-verb agreement",
	Vocabulary: "word choice, variety, appropriateness",
	Coherence:  "logical flow, transitions, clarity",
	Spelling:   "correct spelling",
	Structure:  "organization: intro, body, conclusion",
}

// Label is the capitalized name the model is asked to print.
func (c Criterion) Label() string {
	s := string(c)
	if s == "" {
		return ""
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func (c Criterion) Description() string {
	return descriptions[c]
}

func (c Criterion) Valid() bool {
	_, ok := descriptions[c]
	return ok
}

func ParseCriterion(s string) (Criterion, error) {
	c := Criterion(strings.ToLower(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unknown criterion %q", s)
	}
	return c, nil
}

// ParseCriteria accepts a comma separated list, ignoring blanks and duplicates.
func ParseCriteria(raw string) ([]Criterion, error) {
	out := make([]Criterion, 0, len(All))
	seen := map[Criterion]struct{}{}
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		c, err := ParseCriterion(part)
		if err != nil {
			return nil, err
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out, nil
}

const MaxWeight = 100

type Weights map[Criterion]int

func (w Weights) Total() int {
	total := 0
	for _, v := range w {
		total += v
	}
	return total
}

func (w Weights) Validate() error {
	keys := make([]string, 0, len(w))
	for c := range w {
		keys = append(keys, string(c))
	}
	sort.Strings(keys)
	for _, k := range keys {
		c := Criterion(k)
		if !c.Valid() {
			return fmt.Errorf("weight for unknown criterion %q", k)
		}
		if v := w[c]; v < 0 || v > MaxWeight {
			return fmt.Errorf("weight for %s must be between 0 and %d, got %d", c, MaxWeight, v)
		}
	}
	return nil
}

// Clone returns a copy with every criterion present.
func (w Weights) Clone() Weights {
	out := make(Weights, len(All))
	for _, c := range All {
		out[c] = w[c]
	}
	return out
}

type Preset struct {
	Name     string      `json:"name"`
	Criteria []Criterion `json:"criteria"`
	Weights  Weights     `json:"weights"`
}

var Presets = map[string]Preset{
	"AP": {
		Name:     "AP English",
		Criteria: []Criterion{Grammar, Vocabulary, Coherence, Structure},
		Weights:  Weights{Grammar: 25, Vocabulary: 25, Coherence: 25, Structure: 25},
	},
	"IELTS": {
		Name:     "IELTS",
		Criteria: []Criterion{Grammar, Vocabulary, Coherence, Spelling},
		Weights:  Weights{Grammar: 30, Vocabulary: 25, Coherence: 25, Spelling: 20},
	},
	"TOEFL": {
		Name:     "TOEFL",
		Criteria: []Criterion{Grammar, Vocabulary, Coherence},
		Weights:  Weights{Grammar: 35, Vocabulary: 30, Coherence: 35},
	},
}

func LookupPreset(key string) (Preset, bool) {
	p, ok := Presets[strings.ToUpper(strings.TrimSpace(key))]
	return p, ok
}
