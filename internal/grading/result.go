package grading

import (
	"time"

	"essaygrader/internal/markup"
	"essaygrader/internal/models"
	"essaygrader/internal/parse"
	"essaygrader/internal/rubric"
	"essaygrader/internal/util"
)

// Result is one graded essay. Annotated is the merged markup of the
// annotation zone; the summary zone is carried as structured fields.
type Result struct {
	ID        string         `json:"id"`
	Original  string         `json:"original"`
	Annotated string         `json:"annotated"`
	Summary   string         `json:"summary"`
	Document  *markup.Node   `json:"document,omitempty"`
	Grade     string         `json:"grade"`
	Scores    parse.Scores   `json:"detailed_scores"`
	Feedback  parse.Feedback `json:"feedback"`
	Warnings  []string       `json:"warnings"`
	Degraded  []string       `json:"degraded"`
	Provider  string         `json:"provider"`
	Model     string         `json:"model"`
	RawReply  string         `json:"raw_reply,omitempty"`
	CreatedAt time.Time      `json:"created_at"`
}

// Analyze turns a raw reply into a Result. It never fails: parts of the
// layout the model skipped come back as sentinels and are listed in
// Degraded.
func Analyze(original, reply string, warnings []string) Result {
	parsed := parse.ParseReply(reply)
	doc := markup.FromZone(parsed.Segments.Annotation)
	return Result{
		Original:  original,
		Annotated: doc.HTML(),
		Summary:   parsed.Segments.Summary,
		Document:  doc.Tree(),
		Grade:     parsed.Grade,
		Scores:    parsed.Scores,
		Feedback:  parsed.Feedback,
		Warnings:  append([]string{}, warnings...),
		Degraded:  append([]string{}, parsed.Degraded()...),
		RawReply:  reply,
	}
}

func (r Result) Record() models.GradingRecord {
	scores := make(map[string]string, len(r.Scores))
	for c, v := range r.Scores {
		scores[string(c)] = v
	}
	return models.GradingRecord{
		GradingID:   r.ID,
		EssayHash:   util.SHA256Hex([]byte(r.Original)),
		Original:    r.Original,
		Annotated:   r.Annotated,
		Summary:     r.Summary,
		Grade:       r.Grade,
		Scores:      scores,
		Strengths:   r.Feedback.Strengths,
		Weaknesses:  r.Feedback.Weaknesses,
		Suggestions: r.Feedback.Suggestions,
		Warnings:    r.Warnings,
		Degraded:    r.Degraded,
		Provider:    r.Provider,
		Model:       r.Model,
		RawReply:    r.RawReply,
		CreatedAt:   r.CreatedAt,
	}
}

// FromRecord restores a Result from history. Scores missing from the record
// come back as sentinels.
func FromRecord(g models.GradingRecord) Result {
	scores := make(parse.Scores, len(rubric.All))
	for _, c := range rubric.All {
		scores[c] = parse.NotAvailable
		if v, ok := g.Scores[string(c)]; ok && v != "" {
			scores[c] = v
		}
	}
	return Result{
		ID:        g.GradingID,
		Original:  g.Original,
		Annotated: g.Annotated,
		Summary:   g.Summary,
		Grade:     g.Grade,
		Scores:    scores,
		Feedback:  parse.Feedback{Strengths: g.Strengths, Weaknesses: g.Weaknesses, Suggestions: g.Suggestions},
		Warnings:  g.Warnings,
		Degraded:  g.Degraded,
		Provider:  g.Provider,
		Model:     g.Model,
		RawReply:  g.RawReply,
		CreatedAt: g.CreatedAt,
	}
}
