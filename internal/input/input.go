// Package input turns an uploaded file or pasted text into essay text.
package input

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"essaygrader/internal/grading"
	"essaygrader/internal/util"

	"github.com/ledongthuc/pdf"
)

type Upload struct {
	Filename string
	Data     []byte
}

var textExts = map[string]bool{"": true, ".txt": true, ".md": true, ".markdown": true, ".text": true}

// Resolve enforces that exactly one essay source is given. Blank pasted
// text counts as absent.
func Resolve(file *Upload, pasted string) (string, error) {
	hasText := strings.TrimSpace(pasted) != ""
	switch {
	case file != nil && hasText:
		return "", grading.InputError("provide either a file or pasted text, not both")
	case file == nil && !hasText:
		return "", grading.InputError("provide a file or pasted text")
	case file != nil:
		return FromUpload(*file)
	default:
		return FromText(pasted)
	}
}

func FromText(s string) (string, error) {
	if !utf8.ValidString(s) {
		return "", fmt.Errorf("%w: %w", grading.ErrInput, util.ErrInvalidUTF8)
	}
	return clean(s)
}

// FromUpload decodes plain text files as strict UTF-8 and extracts the text
// layer of PDFs.
func FromUpload(u Upload) (string, error) {
	ext := strings.ToLower(filepath.Ext(u.Filename))
	if ext == ".pdf" || bytes.HasPrefix(u.Data, []byte("%PDF-")) {
		text, err := ExtractPDF(u.Data)
		if err != nil {
			return "", fmt.Errorf("%w: %s: %w", grading.ErrInput, u.Filename, err)
		}
		return clean(text)
	}
	if !textExts[ext] {
		return "", grading.InputError("unsupported file type %q, upload .txt, .md or .pdf", ext)
	}
	data := bytes.TrimPrefix(u.Data, []byte("\xef\xbb\xbf"))
	if !utf8.Valid(data) {
		return "", fmt.Errorf("%w: %s: %w", grading.ErrInput, u.Filename, util.ErrInvalidUTF8)
	}
	return clean(string(data))
}

// FromFile reads a local essay file, as the CLI does.
func FromFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("%w: read %s: %w", grading.ErrInput, path, err)
	}
	return FromUpload(Upload{Filename: filepath.Base(path), Data: data})
}

func ExtractPDF(data []byte) (text string, err error) {
	// the pdf reader panics on some malformed files.
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("read pdf: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	reader, err := r.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("extract pdf text: %w", err)
	}
	buf := new(strings.Builder)
	if _, err := io.Copy(buf, reader); err != nil {
		return "", fmt.Errorf("read extracted text: %w", err)
	}
	out := util.SanitizeText(buf.String())
	if out == "" {
		return "", util.ErrNoExtractableText
	}
	return out, nil
}

func clean(s string) (string, error) {
	s = util.SanitizeText(s)
	if s == "" {
		return "", grading.InputError("essay is empty")
	}
	return s, nil
}

// IsInput reports whether err should be shown to the user as a bad request.
func IsInput(err error) bool {
	return errors.Is(err, grading.ErrInput)
}
