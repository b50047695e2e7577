package document

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/kirillkom/assignment-analyzer/internal/core/domain"
	"github.com/kirillkom/assignment-analyzer/internal/core/ports"
)

// maxFileBytes bounds how much of a stored file is read for extraction.
const maxFileBytes = 32 << 20

type format int

const (
	formatUnknown format = iota
	formatText
	formatHTML
	formatPDF
	formatXLSX
)

// Extractor reads a stored assignment and returns its plain text.
type Extractor struct {
	storage ports.ObjectStorage
}

func NewExtractor(storage ports.ObjectStorage) *Extractor {
	return &Extractor{storage: storage}
}

func (e *Extractor) Extract(ctx context.Context, assignment *domain.Assignment) (string, error) {
	kind := detectFormat(assignment.MimeType, assignment.Filename)
	if kind == formatUnknown {
		return "", domain.WrapError(domain.ErrInvalidInput, "extract text", fmt.Errorf("unsupported file type: %s (%s)", assignment.Filename, assignment.MimeType))
	}

	reader, err := e.storage.Open(ctx, assignment.StoragePath)
	if err != nil {
		return "", fmt.Errorf("open stored assignment: %w", err)
	}
	defer reader.Close()

	raw, err := io.ReadAll(io.LimitReader(reader, maxFileBytes))
	if err != nil {
		return "", fmt.Errorf("read stored assignment: %w", err)
	}

	var text string
	switch kind {
	case formatText:
		text, err = extractPlainText(raw, assignment.Filename)
	case formatHTML:
		text, err = extractHTML(raw)
	case formatPDF:
		text, err = extractPDF(raw)
	case formatXLSX:
		text, err = extractXLSX(raw)
	}
	if err != nil {
		return "", err
	}
	return normalizeWhitespace(text), nil
}

func detectFormat(mimeType, filename string) format {
	mt := strings.ToLower(strings.TrimSpace(mimeType))
	if i := strings.Index(mt, ";"); i >= 0 {
		mt = strings.TrimSpace(mt[:i])
	}
	switch mt {
	case "application/pdf":
		return formatPDF
	case "text/html", "application/xhtml+xml":
		return formatHTML
	case "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet":
		return formatXLSX
	case "text/plain", "text/markdown", "text/csv":
		return formatText
	}

	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return formatPDF
	case ".html", ".htm":
		return formatHTML
	case ".xlsx":
		return formatXLSX
	case ".txt", ".md", ".csv":
		return formatText
	}
	return formatUnknown
}

func normalizeWhitespace(text string) string {
	lines := strings.Split(text, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
