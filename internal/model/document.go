package model

import "time"

// DocumentRecord is the stored row for one analyzed circular. Title is the
// summary prefix capped at 500 characters.
type DocumentRecord struct {
	ID             string    `json:"id"`
	RunID          string    `json:"run_id"`
	Filename       string    `json:"filename"`
	Title          string    `json:"title"`
	Summary        string    `json:"summary"`
	Department     string    `json:"department"`
	Intermediaries []string  `json:"intermediaries,omitempty"`
	KeyClauses     []string  `json:"key_clauses,omitempty"`
	KeyMetrics     []string  `json:"key_metrics,omitempty"`
	ContentLength  int       `json:"content_length"`
	AnalysisError  string    `json:"analysis_error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// ActionableItemRecord is the stored row for one obligation extracted from
// a circular. Priority is derived from the implementation timeline.
type ActionableItemRecord struct {
	ID                 string    `json:"id"`
	DocumentID         string    `json:"document_id"`
	Title              string    `json:"title"`
	Description        string    `json:"description"`
	ResponsibleParties string    `json:"responsible_parties,omitempty"`
	Timeline           string    `json:"timeline,omitempty"`
	Priority           string    `json:"priority"`
	CreatedAt          time.Time `json:"created_at"`
}

// AssignmentRecord is the stored row for one team-routing suggestion.
type AssignmentRecord struct {
	ID         string    `json:"id"`
	DocumentID string    `json:"document_id"`
	Team       string    `json:"team"`
	Status     string    `json:"status"`
	Priority   string    `json:"priority"`
	AssignedBy string    `json:"assigned_by"`
	Reason     string    `json:"reason"`
	CreatedAt  time.Time `json:"created_at"`
}
