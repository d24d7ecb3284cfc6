package grading

import (
	"fmt"
	"strings"

	"essaygrader/internal/rubric"
)

type Tone string

const (
	ToneFormal      Tone = "formal"
	ToneEncouraging Tone = "encouraging"
	ToneDetailed    Tone = "detailed"
	ToneConcise     Tone = "concise"
)

var Tones = []Tone{ToneFormal, ToneEncouraging, ToneDetailed, ToneConcise}

func ParseTone(s string) (Tone, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ToneFormal, nil
	}
	for _, t := range Tones {
		if string(t) == s {
			return t, nil
		}
	}
	return "", InputError("unknown tone %q", s)
}

type Strictness string

const (
	StrictnessLenient  Strictness = "lenient"
	StrictnessBalanced Strictness = "balanced"
	StrictnessStrict   Strictness = "strict"
)

var Strictnesses = []Strictness{StrictnessLenient, StrictnessBalanced, StrictnessStrict}

func ParseStrictness(s string) (Strictness, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return StrictnessBalanced, nil
	}
	for _, v := range Strictnesses {
		if string(v) == s {
			return v, nil
		}
	}
	return "", InputError("unknown strictness %q", s)
}

// DefaultWeights apply when neither weights nor a preset are given.
var DefaultWeights = rubric.Weights{
	rubric.Grammar:    25,
	rubric.Vocabulary: 25,
	rubric.Coherence:  25,
	rubric.Spelling:   25,
	rubric.Structure:  0,
}

// Options is a grading configuration as submitted, before validation.
type Options struct {
	Preset       string             `json:"preset,omitempty"`
	Criteria     []rubric.Criterion `json:"criteria,omitempty"`
	Weights      rubric.Weights     `json:"weights,omitempty"`
	Tone         string             `json:"tone,omitempty"`
	Strictness   string             `json:"strictness,omitempty"`
	GradeLevel   string             `json:"grade_level,omitempty"`
	Instructions string             `json:"instructions,omitempty"`
}

// Request is a validated grading request. Build it with NewRequest; the
// slices and maps it holds are private copies.
type Request struct {
	Essay        string             `json:"essay"`
	Criteria     []rubric.Criterion `json:"criteria"`
	Weights      rubric.Weights     `json:"weights"`
	Tone         Tone               `json:"tone"`
	Strictness   Strictness         `json:"strictness"`
	GradeLevel   string             `json:"grade_level"`
	Instructions string             `json:"instructions"`
}

func NewRequest(essay string, opts Options) (Request, error) {
	if strings.TrimSpace(essay) == "" {
		return Request{}, InputError("essay is empty")
	}
	criteria, weights := opts.Criteria, opts.Weights
	if strings.TrimSpace(opts.Preset) != "" {
		p, ok := rubric.LookupPreset(opts.Preset)
		if !ok {
			return Request{}, InputError("unknown rubric preset %q", opts.Preset)
		}
		if len(criteria) == 0 {
			criteria = p.Criteria
		}
		if weights == nil {
			weights = p.Weights
		}
	}
	if weights == nil {
		weights = DefaultWeights
	}
	if err := weights.Validate(); err != nil {
		return Request{}, InputError("%v", err)
	}
	weights = weights.Clone()

	for _, c := range criteria {
		if !c.Valid() {
			return Request{}, InputError("unknown criterion %q", c)
		}
	}
	if len(criteria) == 0 {
		for _, c := range rubric.All {
			if weights[c] > 0 {
				criteria = append(criteria, c)
			}
		}
	}
	if len(criteria) == 0 {
		criteria = rubric.All
	}

	tone, err := ParseTone(opts.Tone)
	if err != nil {
		return Request{}, err
	}
	strictness, err := ParseStrictness(opts.Strictness)
	if err != nil {
		return Request{}, err
	}
	return Request{
		Essay:        essay,
		Criteria:     append([]rubric.Criterion(nil), criteria...),
		Weights:      weights,
		Tone:         tone,
		Strictness:   strictness,
		GradeLevel:   strings.TrimSpace(opts.GradeLevel),
		Instructions: strings.TrimSpace(opts.Instructions),
	}, nil
}

// Warnings reports problems that do not block grading.
func (r Request) Warnings() []string {
	if total := r.Weights.Total(); total != 100 {
		return []string{fmt.Sprintf("rubric weights sum to %d, not 100", total)}
	}
	return nil
}
