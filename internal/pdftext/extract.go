// Package pdftext validates uploaded files as PDFs and extracts their plain text.
package pdftext

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/ledongthuc/pdf"
)

// MaxSize is the largest accepted upload.
const MaxSize = 5 << 20

const mimePDF = "application/pdf"

var (
	ErrTooLarge   = errors.New("file exceeds 5MB")
	ErrEmpty      = errors.New("file is empty")
	ErrNotPDF     = errors.New("file is not a PDF")
	ErrCorruptPDF = errors.New("PDF could not be read")
	ErrNoText     = errors.New("PDF contains no extractable text")
)

// IsValidation reports whether err is a client-side file problem rather than an extraction failure.
func IsValidation(err error) bool {
	return errors.Is(err, ErrTooLarge) || errors.Is(err, ErrEmpty) || errors.Is(err, ErrNotPDF)
}

// Read loads at most MaxSize bytes from r and checks the content is a PDF.
func Read(r io.Reader) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, ErrEmpty
	}
	if len(data) > MaxSize {
		return nil, ErrTooLarge
	}
	if !mimetype.Detect(data).Is(mimePDF) {
		return nil, ErrNotPDF
	}
	return data, nil
}

// Extract returns the plain text of a PDF already checked by Read.
// Panics inside the parser are reported as ErrCorruptPDF.
func Extract(data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			text, err = "", fmt.Errorf("%w: %v", ErrCorruptPDF, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptPDF, err)
	}
	plain, err := reader.GetPlainText()
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptPDF, err)
	}
	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", fmt.Errorf("%w: %v", ErrCorruptPDF, err)
	}
	text = strings.TrimSpace(buf.String())
	if text == "" {
		return "", ErrNoText
	}
	return text, nil
}
