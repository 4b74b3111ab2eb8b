package collector

import (
	"context"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/transform"
)

// listingForm builds the pagination form the source's AJAX listing endpoint
// expects. Page 1 is the initial load; page N replays the "next" action with
// the widget's off-by-two cursor and a direct page jump.
func (c *Collector) listingForm(page int) url.Values {
	form := url.Values{
		"sid":        {c.cfg.SectionID},
		"ssid":       {c.cfg.SubsectionID},
		"smid":       {"0"},
		"intmid":     {"-1"},
		"sText":      {c.cfg.SectionText},
		"ssText":     {c.cfg.SubsectionText},
		"ssidhidden": {c.cfg.SubsectionID},
		"deptId":     {"-1"},
	}
	if page <= 1 {
		form.Set("next", "n")
		form.Set("nextValue", "0")
	} else {
		form.Set("next", "y")
		form.Set("nextValue", strconv.Itoa(page-2))
		form.Set("doDirect", strconv.Itoa(page-1))
	}
	return form
}

// fetchListing POSTs the pagination form and returns the decoded listing
// HTML for the given page index.
func (c *Collector) fetchListing(ctx context.Context, page int) (string, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + c.cfg.ListingPath
	form := c.listingForm(page)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", eris.Wrap(err, "collector: build listing request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", c.cfg.UserAgent)
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	return c.doHTML(req)
}

// fetchPage GETs a circular detail page and returns the decoded HTML.
func (c *Collector) fetchPage(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", eris.Wrap(err, "collector: build page request")
	}
	req.Header.Set("User-Agent", c.cfg.UserAgent)

	return c.doHTML(req)
}

func (c *Collector) doHTML(req *http.Request) (string, error) {
	resp, err := c.client.Do(req)
	if err != nil {
		return "", eris.Wrap(err, "collector: request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", eris.Errorf("collector: unexpected status %d for %s",
			resp.StatusCode, req.URL)
	}

	body, err := io.ReadAll(c.limitBody(resp.Body))
	if err != nil {
		return "", eris.Wrap(err, "collector: read body")
	}

	return decodeCharset(body, resp.Header.Get("Content-Type"))
}

func (c *Collector) limitBody(r io.Reader) io.Reader {
	maxMB := c.cfg.MaxBodyMB
	if maxMB <= 0 {
		maxMB = 32
	}
	return io.LimitReader(r, int64(maxMB)<<20)
}

// decodeCharset converts a response body to UTF-8 using the charset named
// in the Content-Type header. Some mirrors of the source serve
// windows-1252; absent or unknown charsets pass the bytes through.
func decodeCharset(body []byte, contentType string) (string, error) {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(body), nil
	}
	name := strings.ToLower(params["charset"])
	if name == "" || name == "utf-8" {
		return string(body), nil
	}

	enc, err := htmlindex.Get(name)
	if err != nil {
		return string(body), nil
	}
	decoded, _, err := transform.Bytes(enc.NewDecoder(), body)
	if err != nil {
		return "", eris.Wrapf(err, "collector: decode %s body", name)
	}
	return string(decoded), nil
}
