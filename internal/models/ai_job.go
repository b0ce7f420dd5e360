package models

import (
	"encoding/json"
	"time"
)

// AIJobStatus is the lifecycle of one enrichment attempt.
type AIJobStatus string

const (
	AIJobStatusPending AIJobStatus = "PENDING"
	AIJobStatusDone    AIJobStatus = "DONE"
	AIJobStatusFailed  AIJobStatus = "FAILED"
)

// Terminal reports whether the job has been finalized.
func (s AIJobStatus) Terminal() bool {
	return s == AIJobStatusDone || s == AIJobStatusFailed
}

// AIJob tracks transcription/summarization for an asset (short_form_ai row).
type AIJob struct {
	ID                int64           `json:"id"`
	AssetID           int64           `json:"short_form_id"`
	Provider          string          `json:"stt_provider,omitempty"`
	ProviderRequestID string          `json:"stt_request_id,omitempty"`
	Transcript        string          `json:"transcript,omitempty"`
	Summary           string          `json:"summary,omitempty"`
	Extra             json.RawMessage `json:"extra_json,omitempty"`
	Status            AIJobStatus     `json:"status"`
	ErrorMessage      string          `json:"error_message,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
