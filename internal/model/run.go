package model

import "time"

// RunStatus is the store-level lifecycle of a run row.
type RunStatus string

const (
	RunStatusQueued   RunStatus = "queued"
	RunStatusRunning  RunStatus = "running"
	RunStatusComplete RunStatus = "complete"
	RunStatusFailed   RunStatus = "failed"
)

// Finished reports whether the run reached a terminal status.
func (s RunStatus) Finished() bool {
	return s == RunStatusComplete || s == RunStatusFailed
}

// Run is the persisted bookkeeping row for one pipeline run. CurrentStage
// mirrors the in-flight state so the status endpoint can report progress;
// Report is set once the run finalizes.
type Run struct {
	ID           string       `json:"id"`
	Pages        []int        `json:"pages"`
	DownloadDir  string       `json:"download_dir"`
	Status       RunStatus    `json:"status"`
	CurrentStage Stage        `json:"current_stage"`
	Errors       []string     `json:"errors,omitempty"`
	Report       *FinalReport `json:"report,omitempty"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
