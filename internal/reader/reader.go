// Package reader extracts text and tabular content from downloaded
// circular PDFs.
package reader

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/regdesk/circular-cli/internal/config"
	"github.com/regdesk/circular-cli/internal/model"
)

// Extraction is one document's extracted content.
type Extraction struct {
	Text   string
	Tables []model.Table
}

// Reader extracts content from PDF files.
type Reader interface {
	Extract(ctx context.Context, path string) (*Extraction, error)
}

// New creates a Reader based on config.
func New(cfg config.ReaderConfig) (Reader, error) {
	switch cfg.Provider {
	case "local", "":
		return NewPdfToText(cfg.PdfToTextPath), nil
	case "mistral":
		if cfg.MistralKey == "" {
			return nil, eris.New("reader: mistral provider requires mistral_api_key")
		}
		return NewMistralOCR(cfg.MistralKey, cfg.MistralModel), nil
	default:
		return nil, eris.Errorf("reader: unknown provider %q", cfg.Provider)
	}
}
