package callback

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/2025-X-Thon-Team10-JobShorts/Backend/internal/summaries"
)

// DefaultFailureMessage is stored when a failed callback carries no detail.
const DefaultFailureMessage = "AI processing failed (no error detail)"

// Outcome is the normalized callback status.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailed  Outcome = "FAILED"
)

// Result is the nested result object some AI worker versions send.
type Result struct {
	Transcript     *string  `json:"transcript"`
	Summary        *string  `json:"summary"`
	Keywords       []string `json:"keywords"`
	ProcessingTime *float64 `json:"processing_time"`
}

// Payload is the completion body posted by the AI worker. Both the flat
// (transcript/summary) and nested (result) shapes are accepted.
type Payload struct {
	JobID        string         `json:"jobId"`
	JobIDSnake   string         `json:"job_id"`
	Status       string         `json:"status"`
	S3Bucket     string         `json:"s3_bucket"`
	S3Key        string         `json:"s3_key"`
	Transcript   *string        `json:"transcript"`
	Summary      *string        `json:"summary"`
	Result       *Result        `json:"result"`
	ResultS3Key  string         `json:"result_s3_key"`
	Meta         map[string]any `json:"meta"`
	ErrorCode    string         `json:"error_code"`
	ErrorMessage string         `json:"error_message"`
	Error        string         `json:"error"`
}

// ID returns the job id carried in the body, if any.
func (p *Payload) ID() string {
	if id := strings.TrimSpace(p.JobID); id != "" {
		return id
	}
	return strings.TrimSpace(p.JobIDSnake)
}

// Outcome normalizes the status field. DONE is an alias of SUCCESS. An empty
// status is inferred from the body: any transcript or summary means success,
// any error field means failure.
func (p *Payload) Outcome() (Outcome, error) {
	switch s := strings.ToUpper(strings.TrimSpace(p.Status)); s {
	case "SUCCESS", "DONE":
		return OutcomeSuccess, nil
	case "FAILED":
		return OutcomeFailed, nil
	case "":
		if t, sum := p.Texts(); t != "" || sum != "" {
			return OutcomeSuccess, nil
		}
		if p.ErrorMessage != "" || p.Error != "" || p.ErrorCode != "" {
			return OutcomeFailed, nil
		}
		return "", fmt.Errorf("%w: missing status", ErrValidation)
	default:
		return "", fmt.Errorf("%w: unknown status %q", ErrValidation, p.Status)
	}
}

// Texts returns transcript and summary, each taken from the flat field when
// set and from the nested result otherwise.
func (p *Payload) Texts() (transcript, summary string) {
	var nested Result
	if p.Result != nil {
		nested = *p.Result
	}
	return pick(p.Transcript, nested.Transcript), pick(p.Summary, nested.Summary)
}

func pick(flat, nested *string) string {
	if flat != nil && strings.TrimSpace(*flat) != "" {
		return *flat
	}
	if nested != nil {
		return *nested
	}
	return ""
}

// Blob builds the extra_json document stored on the job.
func (p *Payload) Blob(now time.Time) ([]byte, error) {
	blob := map[string]any{"processedAt": now.UnixMilli()}
	if p.Result != nil && len(p.Result.Keywords) > 0 {
		blob["keywords"] = p.Result.Keywords
	}
	if pt, ok := p.processingTime(); ok {
		blob["processingTime"] = pt
	}
	for k, v := range map[string]string{"s3_bucket": p.S3Bucket, "s3_key": p.S3Key, "result_s3_key": p.ResultS3Key} {
		if v != "" {
			blob[k] = v
		}
	}
	if len(p.Meta) > 0 {
		blob["meta"] = p.Meta
	}
	data, err := json.Marshal(blob)
	if err != nil {
		return nil, fmt.Errorf("marshal result blob: %w", err)
	}
	return data, nil
}

// processingTime is in seconds: result.processing_time, else meta.duration_ms/1000.
func (p *Payload) processingTime() (float64, bool) {
	if p.Result != nil && p.Result.ProcessingTime != nil {
		return *p.Result.ProcessingTime, true
	}
	if ms, ok := number(p.Meta["duration_ms"]); ok {
		return ms / 1000, true
	}
	return 0, false
}

// Tags picks the first non-empty of: result keywords, keywords or tags in the
// blob, keywords in meta.
func (p *Payload) Tags(blob []byte) []string {
	if p.Result != nil {
		if tags := summaries.CleanTags(p.Result.Keywords); len(tags) > 0 {
			return tags
		}
	}
	if tags := summaries.CleanTags(summaries.KeywordsFromBlob(blob)); len(tags) > 0 {
		return tags
	}
	return summaries.CleanTags(summaries.StringList(p.Meta["keywords"]))
}

// FailureMessage composes the stored error: error_message, else error, else a
// default, prefixed with [error_code] when present.
func (p *Payload) FailureMessage() string {
	msg := strings.TrimSpace(p.ErrorMessage)
	if msg == "" {
		msg = strings.TrimSpace(p.Error)
	}
	if msg == "" {
		msg = DefaultFailureMessage
	}
	if code := strings.TrimSpace(p.ErrorCode); code != "" {
		msg = "[" + code + "] " + msg
	}
	return msg
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	return 0, false
}
