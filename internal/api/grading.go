package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"essaygrader/internal/grading"
	"essaygrader/internal/input"
	"essaygrader/internal/markup"
	"essaygrader/internal/parse"
	"essaygrader/internal/providers"
	"essaygrader/internal/report"
	"essaygrader/internal/rubric"
	"essaygrader/internal/util"
)

type gradingResponse struct {
	ID             string       `json:"id"`
	Original       string       `json:"original"`
	Annotated      string       `json:"annotated"`
	Document       *markup.Node `json:"document,omitempty"`
	Grade          string       `json:"grade"`
	DetailedScores parse.Scores `json:"detailed_scores"`
	Strengths      string       `json:"strengths"`
	Weaknesses     string       `json:"weaknesses"`
	Suggestions    string       `json:"suggestions"`
	Warnings       []string     `json:"warnings"`
	Degraded       []string     `json:"degraded"`
	Provider       string       `json:"provider"`
	Model          string       `json:"model"`
	CreatedAt      time.Time    `json:"created_at"`
}

func newGradingResponse(res grading.Result) gradingResponse {
	warnings, degraded := res.Warnings, res.Degraded
	if warnings == nil {
		warnings = []string{}
	}
	if degraded == nil {
		degraded = []string{}
	}
	return gradingResponse{
		ID:             res.ID,
		Original:       res.Original,
		Annotated:      res.Annotated,
		Document:       res.Document,
		Grade:          res.Grade,
		DetailedScores: res.Scores,
		Strengths:      res.Feedback.Strengths,
		Weaknesses:     res.Feedback.Weaknesses,
		Suggestions:    res.Feedback.Suggestions,
		Warnings:       warnings,
		Degraded:       degraded,
		Provider:       res.Provider,
		Model:          res.Model,
		CreatedAt:      res.CreatedAt,
	}
}

type gradeForm struct {
	Essay   string
	Options grading.Options
	Target  providers.Target
}

// parseGradeForm reads the multipart or urlencoded grading form shared by
// /analyze and /jobs.
func (s *Server) parseGradeForm(w http.ResponseWriter, r *http.Request) (gradeForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes()); err != nil {
		if !errors.Is(err, http.ErrNotMultipart) {
			return gradeForm{}, formError(err)
		}
		if err := r.ParseForm(); err != nil {
			return gradeForm{}, formError(err)
		}
	}

	var upload *input.Upload
	if f, fh, err := r.FormFile("file"); err == nil {
		defer f.Close()
		data, err := io.ReadAll(f)
		if err != nil {
			return gradeForm{}, formError(err)
		}
		upload = &input.Upload{Filename: fh.Filename, Data: data}
	} else if !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart) {
		return gradeForm{}, formError(err)
	}
	essay, err := input.Resolve(upload, r.FormValue("text_input"))
	if err != nil {
		return gradeForm{}, err
	}

	criteria, err := rubric.ParseCriteria(r.FormValue("criteria"))
	if err != nil {
		return gradeForm{}, grading.InputError("%v", err)
	}
	var weights rubric.Weights
	for _, c := range rubric.All {
		raw := strings.TrimSpace(r.FormValue("weight_" + string(c)))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return gradeForm{}, grading.InputError("weight for %s is not a number: %q", c, raw)
		}
		if weights == nil {
			weights = rubric.Weights{}
		}
		weights[c] = n
	}

	return gradeForm{
		Essay: essay,
		Options: grading.Options{
			Preset:       r.FormValue("preset"),
			Criteria:     criteria,
			Weights:      weights,
			Tone:         r.FormValue("tone"),
			Strictness:   r.FormValue("strictness"),
			GradeLevel:   r.FormValue("grade_level"),
			Instructions: r.FormValue("instructions"),
		},
		Target: providers.Target{
			Provider: r.FormValue("provider"),
			BaseURL:  r.FormValue("ollama_url"),
			Model:    r.FormValue("ollama_model"),
		},
	}, nil
}

func formError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return fmt.Errorf("%w: parse form: %v", grading.ErrInput, err)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	form, err := s.parseGradeForm(w, r)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	req, err := grading.NewRequest(form.Essay, form.Options)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	res, err := s.grader.Grade(r.Context(), form.Target, req)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, newGradingResponse(res))
}

func (s *Server) handleGradings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	if s.store == nil {
		writeErr(w, http.StatusNotFound, errHistoryDisabled)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	records, err := s.store.ListGradings(r.Context(), limit)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	type summary struct {
		ID        string    `json:"id"`
		Grade     string    `json:"grade"`
		Preview   string    `json:"preview"`
		Provider  string    `json:"provider"`
		Model     string    `json:"model"`
		Degraded  []string  `json:"degraded"`
		CreatedAt time.Time `json:"created_at"`
	}
	out := make([]summary, 0, len(records))
	for _, rec := range records {
		out = append(out, summary{
			ID:        rec.GradingID,
			Grade:     rec.Grade,
			Preview:   util.Preview(rec.Original, 80),
			Provider:  rec.Provider,
			Model:     rec.Model,
			Degraded:  rec.Degraded,
			CreatedAt: rec.CreatedAt,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"gradings": out})
}

// handleGradingScoped serves /gradings/{id} and /gradings/{id}/report.
func (s *Server) handleGradingScoped(w http.ResponseWriter, r *http.Request) {
	parts := strings.Split(strings.Trim(strings.TrimPrefix(r.URL.Path, "/gradings/"), "/"), "/")
	if len(parts) < 1 || parts[0] == "" || len(parts) > 2 || (len(parts) == 2 && parts[1] != "report") {
		writeErr(w, http.StatusNotFound, errNotFound)
		return
	}
	if r.Method != http.MethodGet {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	if s.store == nil {
		writeErr(w, http.StatusNotFound, errHistoryDisabled)
		return
	}
	rec, err := s.store.GetGrading(r.Context(), parts[0])
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	res := grading.FromRecord(rec)
	if len(parts) == 1 {
		writeJSON(w, http.StatusOK, newGradingResponse(res))
		return
	}
	rep, err := report.ForResult(res)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	html, err := report.Render(rep)
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("%w: %w", grading.ErrRender, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = io.WriteString(w, html)
}
