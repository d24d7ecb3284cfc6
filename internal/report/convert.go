package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"essaygrader/internal/grading"
)

// Converter turns a rendered report into a fixed-layout document.
type Converter interface {
	Convert(ctx context.Context, html string) ([]byte, error)
}

// CommandConverter pipes the HTML into an external program on stdin and
// reads the PDF from stdout, e.g. "weasyprint - -".
type CommandConverter struct {
	Argv    []string
	Timeout time.Duration
}

func NewCommandConverter(argv []string) *CommandConverter {
	return &CommandConverter{Argv: argv, Timeout: 60 * time.Second}
}

// Convert failures wrap grading.ErrRender.
func (c *CommandConverter) Convert(ctx context.Context, html string) ([]byte, error) {
	if len(c.Argv) == 0 {
		return nil, fmt.Errorf("%w: no converter command configured", grading.ErrRender)
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	cmd := exec.CommandContext(ctx, c.Argv[0], c.Argv[1:]...)
	cmd.Stdin = strings.NewReader(html)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		detail := strings.TrimSpace(stderr.String())
		if len(detail) > 500 {
			detail = detail[:500]
		}
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) && detail != "" {
			return nil, fmt.Errorf("%w: %s: %s", grading.ErrRender, c.Argv[0], detail)
		}
		return nil, fmt.Errorf("%w: %s: %w", grading.ErrRender, c.Argv[0], err)
	}
	if stdout.Len() == 0 {
		return nil, fmt.Errorf("%w: %s produced no output", grading.ErrRender, c.Argv[0])
	}
	return stdout.Bytes(), nil
}
