package util

import "errors"

var (
	ErrNoExtractableText = errors.New("no extractable text found in PDF")
	ErrInvalidUTF8       = errors.New("text is not valid UTF-8")
)
