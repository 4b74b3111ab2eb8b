package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFromContent_LabeledDateBeatsBareDate(t *testing.T) {
	content := `Published on 01/07/2025. Dated: 14 August, 2025. See annexure.`

	meta := FromContent(content)

	assert.Equal(t, "14 August, 2025", meta.CircularDate)
}

func TestFromContent_BareDateShapes(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"slash", "Issued on 14/08/2025 by the board", "14/08/2025"},
		{"month first", "Effective August 14, 2025 onwards", "August 14, 2025"},
		{"day first", "Effective 14 August 2025 onwards", "14 August 2025"},
		{"none", "No timeline mentioned here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FromContent(tt.content).CircularDate)
		})
	}
}

func TestFromContent_AuthorityReferenceNormalized(t *testing.T) {
	content := `Ref: AGENCY/HO/DEPT/ TEAM/P/CIR/2025/118 dated August 14, 2025`

	meta := FromContent(content)

	assert.Equal(t, "AGENCY/HO/DEPT/TEAM/P/CIR/2025/118", meta.CircularReference)
}

func TestFromContent_AuthorityReferenceRequiresYearSerialTail(t *testing.T) {
	meta := FromContent(`Ref: AGENCY/HO/DEPT/TEAM/MISC with Circular No. CIR/2025-45`)

	// The structured pattern fails tail validation, so the labeled
	// fallback supplies the reference.
	assert.Equal(t, "CIR/2025-45", meta.CircularReference)
}

func TestFromContent_LabeledCircularNumber(t *testing.T) {
	meta := FromContent(`Circular No.: CIR/MRD/DP/2025/45`)

	assert.Equal(t, "CIR/MRD/DP/2025/45", meta.CircularReference)
}

func TestFromURL_MonthYearSegment(t *testing.T) {
	meta := FromURL("https://example.org/legal/circulars/aug-2025/notice_12345.html")

	assert.Equal(t, "August 2025", meta.CircularDate)
	assert.Equal(t, "12345", meta.CircularReference)
}

func TestFromURL_NoArchiveSegment(t *testing.T) {
	meta := FromURL("https://example.org/legal/circulars/notice.pdf")

	assert.Empty(t, meta.CircularDate)
	assert.Empty(t, meta.CircularReference)
}

func TestExtract_ContentWinsOverURL(t *testing.T) {
	url := "https://example.org/legal/circulars/aug-2025/notice_12345.html"
	content := `Dated: 14 August, 2025. Ref AGENCY/HO/DEPT/P/CIR/2025/118.`

	meta := Extract(url, content)

	assert.Equal(t, "14 August, 2025", meta.CircularDate)
	assert.Equal(t, "AGENCY/HO/DEPT/P/CIR/2025/118", meta.CircularReference)
}

func TestExtract_URLFillsContentGaps(t *testing.T) {
	url := "https://example.org/legal/circulars/aug-2025/notice_12345.html"

	meta := Extract(url, "nothing structured in here")

	assert.Equal(t, "August 2025", meta.CircularDate)
	assert.Equal(t, "12345", meta.CircularReference)
}

func TestFromContent_EmbeddedFrameDetection(t *testing.T) {
	withFrame := `<html><body><iframe src="/viewer?file=doc.pdf"></iframe></body></html>`
	withoutFrame := `<html><body><p>plain page</p></body></html>`

	assert.True(t, FromContent(withFrame).HasEmbeddedFrame)
	assert.False(t, FromContent(withoutFrame).HasEmbeddedFrame)
}
