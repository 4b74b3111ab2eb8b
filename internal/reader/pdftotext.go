package reader

import (
	"bytes"
	"context"
	"os/exec"

	"github.com/rotisserie/eris"
)

// PdfToText extracts content using the pdftotext CLI tool. Layout mode
// preserves column positions so tables survive as aligned text.
type PdfToText struct {
	binPath string
}

// NewPdfToText creates a PdfToText reader. If binPath is empty, "pdftotext"
// is used.
func NewPdfToText(binPath string) *PdfToText {
	if binPath == "" {
		binPath = "pdftotext"
	}
	return &PdfToText{binPath: binPath}
}

// Extract runs pdftotext -layout on the given PDF and recovers tables from
// the column-aligned output.
func (p *PdfToText) Extract(ctx context.Context, path string) (*Extraction, error) {
	cmd := exec.CommandContext(ctx, p.binPath, "-layout", path, "-")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, eris.Wrapf(err, "reader: pdftotext failed for %s: %s", path, stderr.String())
	}

	text := stdout.String()
	return &Extraction{
		Text:   text,
		Tables: layoutTables(text),
	}, nil
}
