package model

import "time"

// PageOutcome is the collector's result for a single listing page index.
type PageOutcome struct {
	PageIndex   int                    `json:"page_index"`
	Links       []FetchedLink          `json:"links"`
	Attachments []DownloadedAttachment `json:"files"`
	Err         string                 `json:"error,omitempty"`
}

// ScrapeResult aggregates collector outcomes across all requested pages.
// Owned by the Scrape stage.
type ScrapeResult struct {
	PagesRequested  int           `json:"pages_requested"`
	PagesProcessed  int           `json:"pages_processed"`
	FailedPages     []int         `json:"failed_pages,omitempty"`
	TotalLinks      int           `json:"total_links"`
	DownloadedFiles int           `json:"total_downloaded_files"`
	Pages           []PageOutcome `json:"page_results"`
}

// Attachments flattens every downloaded attachment across pages in
// discovery order.
func (r *ScrapeResult) Attachments() []DownloadedAttachment {
	var out []DownloadedAttachment
	for _, p := range r.Pages {
		out = append(out, p.Attachments...)
	}
	return out
}

// ProcessedFile records one attachment's text extraction outcome. Text and
// Tables travel in memory to the Analyze stage but stay out of serialized
// state to keep status payloads small.
type ProcessedFile struct {
	Path       string  `json:"path"`
	Filename   string  `json:"filename"`
	TextLength int     `json:"text_length"`
	TableCount int     `json:"table_count"`
	Err        string  `json:"error,omitempty"`
	Text       string  `json:"-"`
	Tables     []Table `json:"-"`
}

// Failed reports whether extraction failed for this file.
func (f ProcessedFile) Failed() bool { return f.Err != "" }

// ProcessResult aggregates text extraction over downloaded attachments.
// Owned by the Process stage.
type ProcessResult struct {
	TotalFiles     int             `json:"total_files"`
	ProcessedCount int             `json:"processed_files_count"`
	FailedCount    int             `json:"failed_files_count"`
	Files          []ProcessedFile `json:"files"`
}

// ActionableItem is one obligation extracted from a circular by the
// classifier. Priority is derived from the implementation timeline at
// persist time, not by the classifier.
type ActionableItem struct {
	Title                     string `json:"action_title"`
	Description               string `json:"action_description"`
	ResponsibleParties        string `json:"responsible_parties,omitempty"`
	ImplementationTimeline    string `json:"implementation_timeline,omitempty"`
	ComplianceRequirements    string `json:"compliance_requirements,omitempty"`
	DocumentationNeeded       string `json:"documentation_needed,omitempty"`
	MonitoringMechanism       string `json:"monitoring_mechanism,omitempty"`
	NonComplianceConsequences string `json:"non_compliance_consequences,omitempty"`
}

// DocumentAnalysis is the classifier's structured output for one document.
// A per-document failure is recorded in Err; the document stays in the
// batch either way.
type DocumentAnalysis struct {
	Filename        string           `json:"filename"`
	Department      string           `json:"department"`
	Intermediaries  []string         `json:"intermediary"`
	Summary         string           `json:"summary"`
	KeyClauses      []string         `json:"key_clauses"`
	KeyMetrics      []string         `json:"key_metrics"`
	ActionableItems []ActionableItem `json:"actionable_items"`
	ContentLength   int              `json:"content_length"`
	Err             string           `json:"error,omitempty"`
}

// Failed reports whether classification failed for this document.
func (d DocumentAnalysis) Failed() bool { return d.Err != "" }

// AnalysisResult aggregates per-document classifications. Owned by the
// Analyze stage.
type AnalysisResult struct {
	Documents       []DocumentAnalysis `json:"documents"`
	SuccessfulCount int                `json:"successful_count"`
	FailedCount     int                `json:"failed_count"`
	AnalyzedAt      time.Time          `json:"analyzed_at"`
}

// PersistedDocument is the stored-row handle the Assign stage works from.
type PersistedDocument struct {
	DocumentID string `json:"document_id"`
	Filename   string `json:"filename"`
	Department string `json:"department"`
}

// PersistResult records what the Persist stage wrote. Owned by the Persist
// stage.
type PersistResult struct {
	DocumentsSaved int                 `json:"documents_saved"`
	ItemsSaved     int                 `json:"actionable_items_saved"`
	Documents      []PersistedDocument `json:"documents"`
	LoadedAt       time.Time           `json:"loaded_at"`
}

// TeamAssignment is one suggested routing of a stored document to a team.
type TeamAssignment struct {
	DocumentID string `json:"document_id"`
	Team       string `json:"team"`
	Status     string `json:"status"`
	Priority   string `json:"priority"`
	AssignedBy string `json:"assigned_by"`
	Reason     string `json:"reason"`
}

// AssignmentResult records the Assign stage's suggestions. Owned by the
// Assign stage.
type AssignmentResult struct {
	AssignmentsCreated int              `json:"assignments_created"`
	Assignments        []TeamAssignment `json:"assignments"`
}
