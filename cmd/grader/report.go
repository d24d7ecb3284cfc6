package main

import (
	"fmt"
	"strings"

	"essaygrader/internal/grading"
	"essaygrader/internal/report"
	"essaygrader/internal/util"

	"github.com/spf13/cobra"
)

func newReportCmd(a *app) *cobra.Command {
	var out string
	var pdf bool
	cmd := &cobra.Command{
		Use:   "report <result.json>",
		Short: "Render the report for a saved grading result again",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var res grading.Result
			if err := util.ReadJSON(args[0], &res); err != nil {
				return err
			}
			rep, err := report.ForResult(res)
			if err != nil {
				return err
			}
			html, err := report.Render(rep)
			if err != nil {
				return err
			}
			if out == "" {
				out = strings.TrimSuffix(args[0], ".json") + ".report.html"
			}
			if err := util.WriteFileAtomic(out, []byte(html)); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			if !pdf {
				return nil
			}
			doc, err := report.NewCommandConverter(a.cfg.PDFArgv()).Convert(cmd.Context(), html)
			if err != nil {
				return err
			}
			pdfPath := strings.TrimSuffix(out, ".html") + ".pdf"
			if err := util.WriteFileAtomic(pdfPath, doc); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), pdfPath)
			return nil
		},
	}
	cmd.Flags().StringVar(&out, "out", "", "output HTML path (default: next to the result)")
	cmd.Flags().BoolVar(&pdf, "pdf", false, "also convert to PDF")
	return cmd
}
