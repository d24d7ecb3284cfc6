// Package report renders a graded essay as a standalone HTML document and
// converts it to PDF through an external command.
package report

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"essaygrader/internal/grading"
	"essaygrader/internal/markup"
	"essaygrader/internal/parse"
	"essaygrader/internal/rubric"
)

// Report is the input to Render. Merged is trusted markup; build it through
// the markup package so it carries no active content.
type Report struct {
	Title    string
	Grade    string
	Merged   *markup.Document
	Scores   parse.Scores
	Feedback parse.Feedback
	Original string
}

type scoreRow struct {
	Label string
	Value string
}

type view struct {
	Title       string
	Grade       string
	Merged      template.HTML
	Scores      []scoreRow
	Strengths   string
	Weaknesses  string
	Suggestions string
	Original    string
}

var page = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { font-family: 'Times New Roman', Times, serif; margin: 2em; line-height: 1.5; }
h1 { text-align: center; color: #2c3e50; border-bottom: 1px solid #bdc3c7; padding-bottom: 10px; }
h2 { margin-top: 1.5em; color: #34495e; }
mark.ai-comment { background-color: #f1c40f; color: #333; padding: 0.1em 0.2em; border-radius: 3px; }
mark.manual-comment-embed { background-color: #aed6f1; color: #1b4f72; padding: 0.1em 0.2em; border-radius: 3px; }
span.teacher-manual-annotation { border-bottom: 2px dashed #3498db; }
div.essay { border: 1px solid #ccc; padding: 20px; border-radius: 5px; background-color: #fdfefe; white-space: pre-wrap; word-wrap: break-word; }
ul.scores { list-style: none; padding: 0; }
ul.scores li { padding: 0.2em 0; }
div.section { white-space: pre-wrap; }
</style>
</head>
<body>
<h1>{{.Title}}</h1>
<h2 class="grade">Overall Grade: {{.Grade}}</h2>
<h2>Annotated Essay</h2>
<div class="essay annotated">{{.Merged}}</div>
<h2>Rubric Scores</h2>
<ul class="scores">
{{- range .Scores}}
<li><strong>{{.Label}}:</strong> {{.Value}}</li>
{{- end}}
</ul>
<h2>Strengths</h2>
<div class="section strengths">{{.Strengths}}</div>
<h2>Weaknesses</h2>
<div class="section weaknesses">{{.Weaknesses}}</div>
<h2>Suggestions for Improvement</h2>
<div class="section suggestions">{{.Suggestions}}</div>
<h2>Original Essay</h2>
<div class="essay original">{{.Original}}</div>
</body>
</html>
`))

// Render produces the report document. Missing values show as the parse
// sentinels; Render adds no parsing of its own.
func Render(r Report) (string, error) {
	v := view{
		Title:       strings.TrimSpace(r.Title),
		Grade:       gradeText(r.Grade),
		Strengths:   orNotProvided(r.Feedback.Strengths),
		Weaknesses:  orNotProvided(r.Feedback.Weaknesses),
		Suggestions: orNotProvided(r.Feedback.Suggestions),
		Original:    r.Original,
	}
	if v.Title == "" {
		v.Title = "Graded Essay Report"
	}
	if r.Merged != nil {
		// Document.HTML escapes all text and emits only the three known
		// wrapper elements.
		v.Merged = template.HTML(r.Merged.HTML())
	}
	for _, c := range rubric.All {
		val := r.Scores[c]
		if val == "" {
			val = parse.NotAvailable
		}
		v.Scores = append(v.Scores, scoreRow{Label: c.Label(), Value: val})
	}
	var buf bytes.Buffer
	if err := page.Execute(&buf, v); err != nil {
		return "", fmt.Errorf("render report: %w", err)
	}
	return buf.String(), nil
}

func gradeText(g string) string {
	g = strings.TrimSpace(g)
	if g == "" || g == parse.NotAvailable {
		return parse.NotAvailable
	}
	return g + "/100"
}

func orNotProvided(s string) string {
	if strings.TrimSpace(s) == "" {
		return parse.NotProvided
	}
	return s
}

// ForResult builds the report for a finished grading. The stored merged
// markup is parsed again, which drops anything that is not one of the
// known wrappers.
func ForResult(res grading.Result) (Report, error) {
	doc, err := markup.FromHTML(res.Annotated)
	if err != nil {
		return Report{}, fmt.Errorf("%w: %w", grading.ErrRender, err)
	}
	return Report{
		Grade:    res.Grade,
		Merged:   doc,
		Scores:   res.Scores,
		Feedback: res.Feedback,
		Original: res.Original,
	}, nil
}
