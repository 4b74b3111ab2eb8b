package collector

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// discoverAttachmentURLs resolves the document URLs a detail page hosts, in
// a fixed preference order: direct .pdf anchors, then viewer iframes (their
// ?file= target when present), then any embed or object payload. The result
// is deduplicated preserving discovery order.
func discoverAttachmentURLs(content, pageURL string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return nil
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return nil
	}

	var found []string
	add := func(raw string) {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			return
		}
		if abs := resolveURL(base, raw); abs != "" {
			found = append(found, abs)
		}
	}

	doc.Find("a[href]").Each(func(_ int, a *goquery.Selection) {
		href, _ := a.Attr("href")
		if strings.HasSuffix(strings.ToLower(href), ".pdf") {
			add(href)
		}
	})

	doc.Find("iframe[src]").Each(func(_ int, f *goquery.Selection) {
		src, _ := f.Attr("src")
		if target := viewerTarget(base, src); target != "" {
			add(target)
			return
		}
		lower := strings.ToLower(src)
		if strings.HasSuffix(lower, ".pdf") || strings.Contains(lower, "pdf") {
			add(src)
		}
	})

	doc.Find("embed[src]").Each(func(_ int, e *goquery.Selection) {
		src, _ := e.Attr("src")
		add(src)
	})

	doc.Find("object[data]").Each(func(_ int, o *goquery.Selection) {
		data, _ := o.Attr("data")
		add(data)
	})

	return dedupe(found)
}

// viewerTarget unwraps one level of viewer indirection: an iframe pointing
// at a viewer page with the real document in its file query parameter.
func viewerTarget(base *url.URL, src string) string {
	ref, err := url.Parse(strings.TrimSpace(src))
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).Query().Get("file")
}

func dedupe(urls []string) []string {
	seen := make(map[string]bool, len(urls))
	var out []string
	for _, u := range urls {
		if seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}
