package model

// FetchedLink is one navigational anchor resolved from a listing page's
// tables. Position hints keep the link traceable back to its cell.
type FetchedLink struct {
	Text            string `json:"text"`
	URL             string `json:"url"`
	SourcePageIndex int    `json:"source_page_index"`
	TableIndex      int    `json:"table_index"`
	CellIndex       int    `json:"cell_index"`
}

// ExtractedMetadata is the best-effort structured record produced by the
// metadata extractor at fetch time. Unmatched fields stay empty; later
// stages treat the record as read-only.
type ExtractedMetadata struct {
	CircularDate      string `json:"circular_date,omitempty"`
	CircularReference string `json:"circular_reference,omitempty"`
	HasEmbeddedFrame  bool   `json:"has_embedded_frame"`
}

// Merge overlays page-content-derived fields onto URL-derived ones. Fields
// from other win field-by-field; empty fields never erase existing values.
func (m ExtractedMetadata) Merge(other ExtractedMetadata) ExtractedMetadata {
	out := m
	if other.CircularDate != "" {
		out.CircularDate = other.CircularDate
	}
	if other.CircularReference != "" {
		out.CircularReference = other.CircularReference
	}
	if other.HasEmbeddedFrame {
		out.HasEmbeddedFrame = true
	}
	return out
}

// DownloadedAttachment records one binary payload written to local storage.
// Created only on a successful write (or when the file already existed);
// immutable afterwards. Later stages reference it by LocalPath.
type DownloadedAttachment struct {
	LocalPath       string            `json:"local_path"`
	OriginalURL     string            `json:"original_url"`
	SourcePageIndex int               `json:"source_page_index"`
	SizeBytes       int64             `json:"size_bytes"`
	Metadata        ExtractedMetadata `json:"metadata"`
	LinkText        string            `json:"link_text"`
}

// Table is one extracted table: rows of cell strings.
type Table [][]string
