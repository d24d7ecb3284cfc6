package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"text/tabwriter"

	"essaygrader/internal/grading"
	"essaygrader/internal/input"
	"essaygrader/internal/report"
	"essaygrader/internal/rubric"
	"essaygrader/internal/util"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// textSource stands for the essay given with --text.
const textSource = "<text>"

type gradeFlags struct {
	text         string
	out          string
	pdf          bool
	concurrency  int
	preset       string
	criteria     string
	weights      string
	tone         string
	strictness   string
	gradeLevel   string
	instructions string
}

type summaryRow struct {
	Source    string   `json:"source"`
	GradingID string   `json:"grading_id,omitempty"`
	Grade     string   `json:"grade,omitempty"`
	Warnings  []string `json:"warnings,omitempty"`
	Degraded  []string `json:"degraded,omitempty"`
	Report    string   `json:"report,omitempty"`
	Result    string   `json:"result,omitempty"`
	PDF       string   `json:"pdf,omitempty"`
	Error     string   `json:"error,omitempty"`
}

func newGradeCmd(a *app) *cobra.Command {
	var fl gradeFlags
	cmd := &cobra.Command{
		Use:   "grade [files...]",
		Short: "Grade essay files (.txt, .md, .pdf) or pasted text",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runGrade(cmd, fl, args)
		},
	}
	f := cmd.Flags()
	f.StringVar(&fl.text, "text", "", "grade this text instead of files")
	f.StringVar(&fl.out, "out", a.cfg.DataOutRoot, "output directory")
	f.BoolVar(&fl.pdf, "pdf", false, "also convert each report to PDF")
	f.IntVar(&fl.concurrency, "concurrency", a.cfg.GradeConcurrency, "essays graded at once")
	f.StringVar(&fl.preset, "preset", "", "rubric preset: ap, ielts or toefl")
	f.StringVar(&fl.criteria, "criteria", "", "comma separated criteria, e.g. grammar,coherence")
	f.StringVar(&fl.weights, "weights", "", "criterion weights, e.g. grammar=30,vocabulary=30,coherence=40")
	f.StringVar(&fl.tone, "tone", "", "formal, encouraging, detailed or concise")
	f.StringVar(&fl.strictness, "strictness", "", "lenient, balanced or strict")
	f.StringVar(&fl.gradeLevel, "grade-level", "", "student grade level")
	f.StringVar(&fl.instructions, "instructions", "", "extra instructions for the grader")
	return cmd
}

func (fl gradeFlags) options() (grading.Options, error) {
	criteria, err := rubric.ParseCriteria(fl.criteria)
	if err != nil {
		return grading.Options{}, grading.InputError("%v", err)
	}
	weights, err := parseWeights(fl.weights)
	if err != nil {
		return grading.Options{}, err
	}
	return grading.Options{
		Preset:       fl.preset,
		Criteria:     criteria,
		Weights:      weights,
		Tone:         fl.tone,
		Strictness:   fl.strictness,
		GradeLevel:   fl.gradeLevel,
		Instructions: fl.instructions,
	}, nil
}

// parseWeights reads "grammar=30,vocabulary=30". An empty string means no
// weights were given.
func parseWeights(raw string) (rubric.Weights, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	out := rubric.Weights{}
	for _, part := range strings.Split(raw, ",") {
		if strings.TrimSpace(part) == "" {
			continue
		}
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, grading.InputError("weight %q is not criterion=number", part)
		}
		c, err := rubric.ParseCriterion(k)
		if err != nil {
			return nil, grading.InputError("%v", err)
		}
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return nil, grading.InputError("weight for %s is not a number: %q", c, v)
		}
		out[c] = n
	}
	return out, nil
}

func (a *app) runGrade(cmd *cobra.Command, fl gradeFlags, args []string) error {
	sources := args
	switch {
	case len(args) == 0 && strings.TrimSpace(fl.text) == "":
		return errors.New("give one or more essay files or --text")
	case len(args) > 0 && fl.text != "":
		return errors.New("use either essay files or --text, not both")
	case len(args) == 0:
		sources = []string{textSource}
	}
	opts, err := fl.options()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	store, err := a.openStore(ctx)
	if err != nil {
		return err
	}
	if store != nil {
		defer store.Close()
	}
	svc := grading.NewService(a.manager(), store, a.log)
	var conv report.Converter
	if fl.pdf {
		conv = report.NewCommandConverter(a.cfg.PDFArgv())
	}
	if err := util.EnsureDir(fl.out); err != nil {
		return err
	}

	names := outputNames(sources)
	rows := make([]summaryRow, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, fl.concurrency))
	for i, src := range sources {
		i, src := i, src
		g.Go(func() error {
			rows[i] = a.gradeOne(gctx, svc, conv, fl, opts, src, filepath.Join(fl.out, names[i]))
			return nil
		})
	}
	_ = g.Wait()

	if err := util.WriteJSONLinesAtomic(filepath.Join(fl.out, "summary.jsonl"), rows); err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "SOURCE\tGRADE\tREPORT")
	failed := 0
	for _, r := range rows {
		switch {
		case r.Error != "":
			failed++
			fmt.Fprintf(tw, "%s\terror\t%s\n", r.Source, r.Error)
		default:
			fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Source, r.Grade, r.Report)
		}
	}
	_ = tw.Flush()
	if failed > 0 {
		return fmt.Errorf("%d of %d essays failed", failed, len(rows))
	}
	return nil
}

// gradeOne never returns an error: a failed essay is recorded in its row so
// the rest of the batch still runs.
func (a *app) gradeOne(ctx context.Context, svc *grading.Service, conv report.Converter, fl gradeFlags, opts grading.Options, src, base string) summaryRow {
	row := summaryRow{Source: src}
	log := a.log.With(zap.String("source", src))
	fail := func(err error) summaryRow {
		log.Error("grader: essay failed", zap.Error(err))
		row.Error = err.Error()
		return row
	}

	var essay string
	var err error
	if src == textSource {
		essay, err = input.FromText(fl.text)
	} else {
		essay, err = input.FromFile(src)
	}
	if err != nil {
		return fail(err)
	}
	req, err := grading.NewRequest(essay, opts)
	if err != nil {
		return fail(err)
	}
	res, err := svc.Grade(ctx, a.target, req)
	if err != nil {
		return fail(err)
	}
	row.GradingID = res.ID
	row.Grade = res.Grade
	row.Warnings = res.Warnings
	row.Degraded = res.Degraded

	rep, err := report.ForResult(res)
	if err != nil {
		return fail(err)
	}
	if src != textSource {
		rep.Title = "Graded Essay Report: " + filepath.Base(src)
	}
	html, err := report.Render(rep)
	if err != nil {
		return fail(err)
	}
	row.Report = base + ".report.html"
	row.Result = base + ".json"
	if err := util.WriteFileAtomic(row.Report, []byte(html)); err != nil {
		return fail(err)
	}
	if err := util.WriteJSONAtomic(row.Result, res); err != nil {
		return fail(err)
	}
	if conv != nil {
		pdf, err := conv.Convert(ctx, html)
		if err != nil {
			return fail(err)
		}
		row.PDF = base + ".pdf"
		if err := util.WriteFileAtomic(row.PDF, pdf); err != nil {
			return fail(err)
		}
	}
	log.Info("grader: essay graded", zap.String("grade", res.Grade), zap.String("report", row.Report))
	return row
}

// outputNames derives one artifact base name per source, adding a numeric
// suffix until the name is not already taken by an earlier source.
func outputNames(sources []string) []string {
	out := make([]string, len(sources))
	taken := map[string]bool{}
	for i, src := range sources {
		base := "essay"
		if src != textSource {
			base = strings.TrimSuffix(filepath.Base(src), filepath.Ext(src))
		}
		name := base
		for n := 2; taken[name]; n++ {
			name = fmt.Sprintf("%s-%d", base, n)
		}
		taken[name] = true
		out[i] = name
	}
	return out
}
