package collector

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"

	"github.com/regdesk/circular-cli/internal/model"
)

// parseListingLinks extracts every anchor inside the listing's tables.
// Script pseudo-links are skipped; relative hrefs resolve against base.
func parseListingLinks(body, base string, pageIndex int) ([]model.FetchedLink, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "collector: parse listing html")
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return nil, eris.Wrap(err, "collector: parse base url")
	}

	var links []model.FetchedLink
	doc.Find("table").Each(func(tableIdx int, table *goquery.Selection) {
		table.Find("td a").Each(func(cellIdx int, a *goquery.Selection) {
			href, ok := a.Attr("href")
			if !ok {
				return
			}
			href = strings.TrimSpace(href)
			if href == "" || strings.HasPrefix(strings.ToLower(href), "javascript:") {
				return
			}

			abs := resolveURL(baseURL, href)
			if abs == "" {
				return
			}

			links = append(links, model.FetchedLink{
				Text:            strings.TrimSpace(a.Text()),
				URL:             abs,
				SourcePageIndex: pageIndex,
				TableIndex:      tableIdx,
				CellIndex:       cellIdx,
			})
		})
	})

	return links, nil
}

func resolveURL(base *url.URL, href string) string {
	ref, err := url.Parse(href)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}
