// Package pdf extracts plain text from uploaded PDF letters.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	ledongpdf "github.com/ledongthuc/pdf"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

const defaultMaxBytes = 20 << 20

type Extractor struct {
	maxBytes int64
}

func NewExtractor(maxBytes int64) *Extractor {
	if maxBytes <= 0 {
		maxBytes = defaultMaxBytes
	}
	return &Extractor{maxBytes: maxBytes}
}

func (e *Extractor) Extract(_ context.Context, filename string, body io.Reader) (string, error) {
	raw, err := io.ReadAll(io.LimitReader(body, e.maxBytes+1))
	if err != nil {
		return "", fmt.Errorf("read pdf: %w", err)
	}
	if int64(len(raw)) > e.maxBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("%s exceeds %d bytes", filename, e.maxBytes))
	}
	if !bytes.HasPrefix(bytes.TrimLeft(raw, " \t\r\n"), []byte("%PDF-")) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", fmt.Errorf("%s is not a PDF document", filename))
	}

	text, err := plainText(raw)
	if err != nil {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract pdf", err)
	}
	return text, nil
}

// plainText recovers from parser panics on malformed input.
func plainText(raw []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := ledongpdf.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}

	var out strings.Builder
	fonts := make(map[string]*ledongpdf.Font)
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		for _, name := range page.Fonts() {
			if _, ok := fonts[name]; !ok {
				f := page.Font(name)
				fonts[name] = &f
			}
		}
		pageText, err := page.GetPlainText(fonts)
		if err != nil {
			return "", fmt.Errorf("read page %d: %w", i, err)
		}
		if out.Len() > 0 {
			out.WriteByte('\n')
		}
		out.WriteString(pageText)
	}
	return strings.TrimSpace(out.String()), nil
}
