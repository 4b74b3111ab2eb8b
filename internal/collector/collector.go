// Package collector fetches regulator listing pages, resolves the circular
// links they advertise, and downloads each circular's attachments into a
// local directory. Per-link failures degrade to missing attachments; only a
// failed listing fetch surfaces as an error.
package collector

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/regdesk/circular-cli/internal/config"
	"github.com/regdesk/circular-cli/internal/extract"
	"github.com/regdesk/circular-cli/internal/model"
)

// Collector drives listing fetch, link resolution and attachment download
// for one configured source.
type Collector struct {
	cfg     config.SourceConfig
	client  *http.Client
	limiter *rate.Limiter
	dir     string
}

// New builds a collector downloading into dir. The politeness limiter is
// derived from the configured link delay; a non-positive delay disables it.
func New(cfg config.SourceConfig, dir string) *Collector {
	limit := rate.Inf
	if cfg.LinkDelayMs > 0 {
		limit = rate.Every(time.Duration(cfg.LinkDelayMs) * time.Millisecond)
	}
	return &Collector{
		cfg:     cfg,
		client:  &http.Client{Timeout: cfg.Timeout()},
		limiter: rate.NewLimiter(limit, 1),
		dir:     dir,
	}
}

// PageDelay returns the pause the caller should take between page indices.
func (c *Collector) PageDelay() time.Duration {
	if c.cfg.PageDelayMs <= 0 {
		return 0
	}
	return time.Duration(c.cfg.PageDelayMs) * time.Millisecond
}

// CollectPage processes one listing page index: fetch the listing, resolve
// every circular link, and download each link's attachments. The returned
// outcome carries whatever succeeded; an error means the listing itself
// could not be fetched.
func (c *Collector) CollectPage(ctx context.Context, page int) (*model.PageOutcome, error) {
	body, err := c.fetchListing(ctx, page)
	if err != nil {
		return nil, eris.Wrapf(err, "collector: fetch listing page %d", page)
	}

	links, err := parseListingLinks(body, c.cfg.BaseURL, page)
	if err != nil {
		return nil, eris.Wrapf(err, "collector: parse listing page %d", page)
	}

	outcome := &model.PageOutcome{PageIndex: page, Links: links}
	seen := make(map[string]bool)

	for i, link := range links {
		if err := c.limiter.Wait(ctx); err != nil {
			return outcome, eris.Wrap(err, "collector: wait for rate limiter")
		}

		content, err := c.fetchPage(ctx, link.URL)
		if err != nil {
			zap.L().Warn("circular page fetch failed",
				zap.String("url", link.URL),
				zap.Error(err))
			continue
		}

		meta := extract.Extract(link.URL, content)
		attachmentURLs := discoverAttachmentURLs(content, link.URL)
		if len(attachmentURLs) == 0 {
			zap.L().Debug("no attachments discovered", zap.String("url", link.URL))
			continue
		}

		for j, attURL := range attachmentURLs {
			if seen[attURL] {
				continue
			}
			seen[attURL] = true

			name := attachmentFilename(page, i, j+1, link.Text)
			dest := filepath.Join(c.dir, name)

			size, err := c.download(ctx, attURL, dest)
			if err != nil {
				zap.L().Warn("attachment download failed",
					zap.String("url", attURL),
					zap.Error(err))
				continue
			}

			outcome.Attachments = append(outcome.Attachments, model.DownloadedAttachment{
				LocalPath:       dest,
				OriginalURL:     attURL,
				SourcePageIndex: page,
				SizeBytes:       size,
				Metadata:        meta,
				LinkText:        link.Text,
			})
		}
	}

	zap.L().Info("listing page collected",
		zap.Int("page", page),
		zap.Int("links", len(links)),
		zap.Int("attachments", len(outcome.Attachments)))

	return outcome, nil
}
