package collector

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var unsafeFilenameRE = regexp.MustCompile(`[^A-Za-z0-9_\-.]`)

// attachmentFilename builds a deterministic local filename carrying the
// attachment's provenance: page index, link position on the page, discovery
// position within the link, and a sanitized slice of the link text.
func attachmentFilename(page, linkIdx, attIdx int, linkText string) string {
	text := linkText
	if len(text) > 20 {
		text = text[:20]
	}
	name := unsafeFilenameRE.ReplaceAllString(
		fmt.Sprintf("page_%d_%d_%d_%s", page, linkIdx, attIdx, text), "_")
	return name + ".pdf"
}

// download fetches rawURL into dest. An existing file is treated as a
// completed earlier download and is left untouched. A payload that looks
// non-PDF by both content type and URL extension is kept but logged.
func (c *Collector) download(ctx context.Context, rawURL, dest string) (int64, error) {
	if info, err := os.Stat(dest); err == nil {
		zap.L().Debug("attachment already downloaded", zap.String("path", dest))
		return info.Size(), nil
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, eris.Wrap(err, "collector: create download dir")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, eris.Wrap(err, "collector: build download request")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, eris.Wrap(err, "collector: download request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, eris.Errorf("collector: unexpected status %d for %s",
			resp.StatusCode, rawURL)
	}

	contentType := resp.Header.Get("Content-Type")
	if !strings.Contains(strings.ToLower(contentType), "pdf") &&
		!strings.HasSuffix(strings.ToLower(rawURL), ".pdf") {
		zap.L().Warn("attachment does not look like a pdf",
			zap.String("url", rawURL),
			zap.String("content_type", contentType))
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, eris.Wrap(err, "collector: create attachment file")
	}
	defer f.Close()

	size, err := io.Copy(f, c.limitBody(resp.Body))
	if err != nil {
		os.Remove(dest)
		return 0, eris.Wrap(err, "collector: write attachment")
	}

	return size, nil
}
