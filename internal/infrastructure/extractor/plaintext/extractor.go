package plaintext

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/kirillkom/medical-intake/internal/core/domain"
)

const defaultMaxBytes = 10 << 20

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
		return "", fmt.Errorf("read source document: %w", err)
	}
	if int64(len(raw)) > e.maxBytes {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("%s exceeds %d bytes", filename, e.maxBytes))
	}
	if !utf8.Valid(raw) {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", errors.New("document is not valid UTF-8 text"))
	}
	return strings.TrimSpace(strings.ReplaceAll(string(raw), "\r\n", "\n")), nil
}
