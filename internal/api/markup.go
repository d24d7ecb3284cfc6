package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"essaygrader/internal/grading"
	"essaygrader/internal/markup"
	"essaygrader/internal/parse"
	"essaygrader/internal/report"
	"essaygrader/internal/rubric"
)

// Reviewer edits are applied server side: the browser posts the current
// merged markup and gets the updated markup back.

type annotateRequest struct {
	AnnotatedHTML string `json:"annotated_html"`
	Start         int    `json:"start"`
	End           int    `json:"end"`
	Comment       string `json:"comment"`
}

type removeRequest struct {
	AnnotatedHTML string `json:"annotated_html"`
	ID            int    `json:"id"`
}

type flattenRequest struct {
	AnnotatedHTML string `json:"annotated_html"`
}

func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(io.LimitReader(r.Body, 8<<20)).Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", grading.ErrInput, err)
	}
	return nil
}

func parseMarkup(s string) (*markup.Document, error) {
	doc, err := markup.FromHTML(s)
	if err != nil {
		return nil, grading.InputError("%v", err)
	}
	return doc, nil
}

func (s *Server) handleAnnotate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	var req annotateRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	doc, err := parseMarkup(req.AnnotatedHTML)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	id, err := doc.Annotate(req.Start, req.End, req.Comment)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"annotated_html": doc.HTML(),
		"annotation_id":  id,
		"applied":        id != 0,
	})
}

func (s *Server) handleRemoveAnnotation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	var req removeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	doc, err := parseMarkup(req.AnnotatedHTML)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	if err := doc.Remove(req.ID); err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"annotated_html": doc.HTML()})
}

func (s *Server) handleFlatten(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	var req flattenRequest
	if err := decodeJSON(r, &req); err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	doc, err := parseMarkup(req.AnnotatedHTML)
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	n := doc.Flatten()
	writeJSON(w, http.StatusOK, map[string]any{"annotated_html": doc.HTML(), "flattened": n})
}

// handleDownload renders the report from the reviewer's current state.
// Reviewer annotations are flattened first so their comments show in the
// PDF. format=html returns the HTML document instead of converting it.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeErr(w, http.StatusMethodNotAllowed, errMethod)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes())
	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes()); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		err = formError(err)
		writeErr(w, statusFor(err), err)
		return
	}
	doc, err := parseMarkup(r.FormValue("annotated_html"))
	if err != nil {
		writeErr(w, http.StatusBadRequest, err)
		return
	}
	doc.Flatten()

	scores := parse.Scores{}
	if raw := strings.TrimSpace(r.FormValue("detailed_scores")); raw != "" {
		var byName map[string]string
		if err := json.Unmarshal([]byte(raw), &byName); err != nil {
			writeErr(w, http.StatusBadRequest, grading.InputError("detailed_scores is not a JSON object: %v", err))
			return
		}
		for k, v := range byName {
			if c, err := rubric.ParseCriterion(k); err == nil {
				scores[c] = v
			}
		}
	}

	html, err := report.Render(report.Report{
		Grade:  r.FormValue("grade"),
		Merged: doc,
		Scores: scores,
		Feedback: parse.Feedback{
			Strengths:   r.FormValue("strengths"),
			Weaknesses:  r.FormValue("weaknesses"),
			Suggestions: r.FormValue("suggestions"),
		},
		Original: r.FormValue("original_essay"),
	})
	if err != nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("%w: %w", grading.ErrRender, err))
		return
	}
	if r.FormValue("format") == "html" {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = io.WriteString(w, html)
		return
	}
	if s.converter == nil {
		writeErr(w, http.StatusInternalServerError, fmt.Errorf("%w: no PDF converter configured", grading.ErrRender))
		return
	}
	pdf, err := s.converter.Convert(r.Context(), html)
	if err != nil {
		writeErr(w, statusFor(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="graded_essay.pdf"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(pdf)
}
