package model

import (
	"time"

	"github.com/google/uuid"
)

// Stage identifies a position in the pipeline's fixed stage ordering. The
// string values double as the stage labels used in reports and run rows.
type Stage string

const (
	StageInitialized Stage = "initialized"
	StageScraping    Stage = "web_scraping"
	StageProcessing  Stage = "document_processing"
	StageAnalyzing   Stage = "document_analysis"
	StagePersisting  Stage = "database_loading"
	StageAssigning   Stage = "team_assignment"
	StageFinalized   Stage = "finalized"
)

// stageOrder fixes the forward-only ordering of stages.
var stageOrder = map[Stage]int{
	StageInitialized: 0,
	StageScraping:    1,
	StageProcessing:  2,
	StageAnalyzing:   3,
	StagePersisting:  4,
	StageAssigning:   5,
	StageFinalized:   6,
}

// Ordinal returns the stage's position in the pipeline ordering, or -1 for
// an unknown stage.
func (s Stage) Ordinal() int {
	ord, ok := stageOrder[s]
	if !ok {
		return -1
	}
	return ord
}

// Message kinds. Every stage appends at least one message on entry and one
// on exit; the finalize stage appends exactly one completion message.
const (
	MessageInfo       = "info"
	MessageSuccess    = "success"
	MessageError      = "error"
	MessageCompletion = "completion"
)

// Message is a single audit record appended to the pipeline state.
type Message struct {
	Origin    string       `json:"origin"`
	Timestamp time.Time    `json:"timestamp"`
	Kind      string       `json:"kind"`
	Text      string       `json:"text"`
	Report    *FinalReport `json:"report,omitempty"`
}

// StageResults holds one optional slot per stage. Each stage owns exactly
// one slot and writes it at most once; a nil slot means the stage never ran.
type StageResults struct {
	Scrape     *ScrapeResult     `json:"scrape_result,omitempty"`
	Process    *ProcessResult    `json:"process_result,omitempty"`
	Analysis   *AnalysisResult   `json:"analysis_result,omitempty"`
	Persist    *PersistResult    `json:"persist_result,omitempty"`
	Assignment *AssignmentResult `json:"assignment_result,omitempty"`
}

// PipelineState is the single mutable record threaded through every stage.
// It is owned by exactly one execution path at a time; no locking.
type PipelineState struct {
	// Input parameters, immutable once set.
	PageNumbers []int  `json:"page_numbers"`
	DownloadDir string `json:"download_folder"`

	RunID        string       `json:"run_id"`
	StartedAt    time.Time    `json:"started_at"`
	CurrentStage Stage        `json:"current_stage"`
	Results      StageResults `json:"stage_results"`

	// Errors is append-only: any stage may add, none may remove.
	Errors []string `json:"errors"`
	// Messages is the append-only audit trail.
	Messages []Message `json:"messages"`
}

// NewPipelineState creates the initial state for a run.
func NewPipelineState(pages []int, downloadDir string) *PipelineState {
	return &PipelineState{
		PageNumbers:  pages,
		DownloadDir:  downloadDir,
		RunID:        uuid.New().String(),
		StartedAt:    time.Now().UTC(),
		CurrentStage: StageInitialized,
		Errors:       []string{},
		Messages:     []Message{},
	}
}

// AdvanceTo moves CurrentStage forward to next. Regressions and unknown
// stages are ignored and return false.
func (s *PipelineState) AdvanceTo(next Stage) bool {
	ord := next.Ordinal()
	if ord < 0 || ord <= s.CurrentStage.Ordinal() {
		return false
	}
	s.CurrentStage = next
	return true
}

// AddError appends a failure string to the error sequence.
func (s *PipelineState) AddError(text string) {
	s.Errors = append(s.Errors, text)
}

// AddMessage appends an audit record.
func (s *PipelineState) AddMessage(origin, kind, text string) {
	s.Messages = append(s.Messages, Message{
		Origin:    origin,
		Timestamp: time.Now().UTC(),
		Kind:      kind,
		Text:      text,
	})
}

// AddCompletion appends the final audit record carrying the run report.
func (s *PipelineState) AddCompletion(origin, text string, report *FinalReport) {
	s.Messages = append(s.Messages, Message{
		Origin:    origin,
		Timestamp: time.Now().UTC(),
		Kind:      MessageCompletion,
		Text:      text,
		Report:    report,
	})
}

// Slot setters enforce write-once ownership: they refuse to overwrite a slot
// that has already been written and report whether the write happened.

func (s *PipelineState) SetScrapeResult(r *ScrapeResult) bool {
	if s.Results.Scrape != nil {
		return false
	}
	s.Results.Scrape = r
	return true
}

func (s *PipelineState) SetProcessResult(r *ProcessResult) bool {
	if s.Results.Process != nil {
		return false
	}
	s.Results.Process = r
	return true
}

func (s *PipelineState) SetAnalysisResult(r *AnalysisResult) bool {
	if s.Results.Analysis != nil {
		return false
	}
	s.Results.Analysis = r
	return true
}

func (s *PipelineState) SetPersistResult(r *PersistResult) bool {
	if s.Results.Persist != nil {
		return false
	}
	s.Results.Persist = r
	return true
}

func (s *PipelineState) SetAssignmentResult(r *AssignmentResult) bool {
	if s.Results.Assignment != nil {
		return false
	}
	s.Results.Assignment = r
	return true
}

// FinalReport returns the report carried by the completion message, or nil
// if the run has not finalized.
func (s *PipelineState) FinalReport() *FinalReport {
	for i := len(s.Messages) - 1; i >= 0; i-- {
		if s.Messages[i].Kind == MessageCompletion {
			return s.Messages[i].Report
		}
	}
	return nil
}

// NewRunID generates a fresh run identifier.
func NewRunID() string {
	return uuid.New().String()
}
