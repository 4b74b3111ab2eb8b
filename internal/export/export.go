// Package export renders a run's stored documents into spreadsheet and
// JSON files for hand-off outside the pipeline.
package export

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"

	"github.com/regdesk/circular-cli/internal/collector"
	"github.com/regdesk/circular-cli/internal/model"
)

// Bundle is everything the exporters render for one run.
type Bundle struct {
	Run       *model.Run
	Documents []model.DocumentRecord
	Manifest  *collector.Manifest // optional
}

// WriteWorkbook writes the bundle as an XLSX workbook with Summary,
// Documents, and Attachments sheets.
func WriteWorkbook(path string, b *Bundle) error {
	f := xlsx.NewFile()

	if err := addSummarySheet(f, b.Run); err != nil {
		return err
	}
	if err := addDocumentsSheet(f, b.Documents); err != nil {
		return err
	}
	if b.Manifest != nil {
		if err := addAttachmentsSheet(f, b.Manifest); err != nil {
			return err
		}
	}

	if err := f.Save(path); err != nil {
		return eris.Wrapf(err, "export: save workbook %s", path)
	}
	return nil
}

// WriteJSON writes the bundle as a single indented JSON document.
func WriteJSON(path string, b *Bundle) error {
	f, err := os.Create(path)
	if err != nil {
		return eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close() //nolint:errcheck

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(b); err != nil {
		return eris.Wrap(err, "export: encode json")
	}
	return nil
}

func addSummarySheet(f *xlsx.File, run *model.Run) error {
	sheet, err := f.AddSheet("Summary")
	if err != nil {
		return eris.Wrap(err, "export: add summary sheet")
	}

	addKV(sheet, "Run ID", run.ID)
	addKV(sheet, "Status", string(run.Status))
	addKV(sheet, "Stage", string(run.CurrentStage))
	addKV(sheet, "Pages", joinInts(run.Pages))
	addKV(sheet, "Download dir", run.DownloadDir)
	addKV(sheet, "Created", run.CreatedAt.Format(time.RFC3339))
	addKV(sheet, "Errors", strconv.Itoa(len(run.Errors)))

	if r := run.Report; r != nil {
		addKV(sheet, "Final status", r.FinalStatus)
		addKV(sheet, "Duration", r.TotalDuration)
		addKV(sheet, "Stages completed", r.StagesCompleted)
		if r.Scraping != nil {
			addKV(sheet, "Files downloaded", strconv.Itoa(r.Scraping.FilesDownloaded))
		}
		if r.Analysis != nil {
			addKV(sheet, "Documents analyzed", strconv.Itoa(r.Analysis.DocumentsAnalyzed))
		}
	}

	for i, e := range run.Errors {
		addKV(sheet, fmt.Sprintf("Error %d", i+1), e)
	}
	return nil
}

func addDocumentsSheet(f *xlsx.File, docs []model.DocumentRecord) error {
	sheet, err := f.AddSheet("Documents")
	if err != nil {
		return eris.Wrap(err, "export: add documents sheet")
	}

	addRow(sheet, "Filename", "Title", "Department", "Intermediaries",
		"Key Clauses", "Key Metrics", "Content Length", "Analysis Error")

	for _, d := range docs {
		addRow(sheet,
			d.Filename,
			d.Title,
			d.Department,
			strings.Join(d.Intermediaries, "; "),
			strings.Join(d.KeyClauses, "; "),
			strings.Join(d.KeyMetrics, "; "),
			strconv.Itoa(d.ContentLength),
			d.AnalysisError,
		)
	}
	return nil
}

func addAttachmentsSheet(f *xlsx.File, m *collector.Manifest) error {
	sheet, err := f.AddSheet("Attachments")
	if err != nil {
		return eris.Wrap(err, "export: add attachments sheet")
	}

	addRow(sheet, "Local Path", "Source URL", "Page", "Size",
		"Circular Date", "Circular Reference")

	for _, att := range m.Attachments() {
		addRow(sheet,
			att.LocalPath,
			att.OriginalURL,
			strconv.Itoa(att.SourcePageIndex),
			strconv.FormatInt(att.SizeBytes, 10),
			att.Metadata.CircularDate,
			att.Metadata.CircularReference,
		)
	}
	return nil
}

func addRow(sheet *xlsx.Sheet, cells ...string) {
	row := sheet.AddRow()
	for _, c := range cells {
		row.AddCell().Value = c
	}
}

func addKV(sheet *xlsx.Sheet, key, value string) {
	addRow(sheet, key, value)
}

func joinInts(ns []int) string {
	parts := make([]string, len(ns))
	for i, n := range ns {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ", ")
}
