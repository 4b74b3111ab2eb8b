package model

// Final run statuses.
const (
	FinalStatusSuccess    = "SUCCESS"
	FinalStatusWithErrors = "COMPLETED_WITH_ERRORS"
)

// FinalReport is the summary built by the Finalize stage. Per-stage
// summaries are present only when the corresponding slot was written; the
// report itself always renders.
type FinalReport struct {
	RunID             string              `json:"run_id"`
	TotalDuration     string              `json:"total_duration"`
	StagesCompleted   string              `json:"stages_completed"`
	ErrorsEncountered int                 `json:"errors_encountered"`
	FinalStatus       string              `json:"final_status"`
	Scraping          *ScrapingSummary    `json:"scraping_summary,omitempty"`
	Processing        *ProcessingSummary  `json:"processing_summary,omitempty"`
	Analysis          *AnalysisSummary    `json:"analysis_summary,omitempty"`
	Persistence       *PersistenceSummary `json:"persistence_summary,omitempty"`
}

// ScrapingSummary condenses the scrape slot for the report.
type ScrapingSummary struct {
	PagesProcessed  int `json:"pages_processed"`
	FilesDownloaded int `json:"files_downloaded"`
	LinksFound      int `json:"links_found"`
}

// ProcessingSummary condenses the process slot for the report.
type ProcessingSummary struct {
	FilesProcessed int `json:"files_processed"`
	TotalFiles     int `json:"total_files"`
}

// AnalysisSummary condenses the analysis slot for the report.
type AnalysisSummary struct {
	DocumentsAnalyzed  int `json:"documents_analyzed"`
	SuccessfulAnalyses int `json:"successful_analyses"`
	FailedAnalyses     int `json:"failed_analyses"`
}

// PersistenceSummary condenses the persist and assignment slots for the
// report.
type PersistenceSummary struct {
	DocumentsSaved     int `json:"documents_saved"`
	AssignmentsCreated int `json:"assignments_created"`
}
