package collector

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"

	"github.com/regdesk/circular-cli/internal/model"
)

// ManifestFilename is the manifest artifact written next to the downloads.
const ManifestFilename = "scraping_metadata.json"

// Manifest is the stable-shape record of what a scrape produced, written to
// the download directory. Later stages and the export command load it back
// instead of re-walking the directory.
type Manifest struct {
	GeneratedAt time.Time           `json:"generated_at"`
	BaseURL     string              `json:"base_url"`
	Pages       []model.PageOutcome `json:"pages"`
}

// Attachments flattens every attachment across pages in discovery order.
func (m *Manifest) Attachments() []model.DownloadedAttachment {
	var out []model.DownloadedAttachment
	for _, p := range m.Pages {
		out = append(out, p.Attachments...)
	}
	return out
}

// WriteManifest writes the manifest artifact into dir.
func WriteManifest(dir string, m *Manifest) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return eris.Wrap(err, "collector: create manifest dir")
	}

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return eris.Wrap(err, "collector: marshal manifest")
	}

	path := filepath.Join(dir, ManifestFilename)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return eris.Wrap(err, "collector: write manifest")
	}
	return nil
}

// LoadManifest reads the manifest artifact from dir.
func LoadManifest(dir string) (*Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, ManifestFilename))
	if err != nil {
		return nil, eris.Wrap(err, "collector: read manifest")
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, eris.Wrap(err, "collector: unmarshal manifest")
	}
	return &m, nil
}
