// Package aiworker submits enrichment jobs to the external transcription and
// summarization worker.
package aiworker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

// Request is the intake contract. SourceKey is sent under both names the
// worker accepts.
type Request struct {
	JobID       string `json:"jobId"`
	SourceKey   string `json:"sourceKey"`
	S3Key       string `json:"s3Key"`
	CallbackURL string `json:"callbackUrl"`
}

// NewRequest builds the intake request for a video key. The job id is the video key.
func NewRequest(videoKey, callbackBase string) Request {
	return Request{
		JobID:       videoKey,
		SourceKey:   videoKey,
		S3Key:       videoKey,
		CallbackURL: CallbackURL(callbackBase, videoKey),
	}
}

// CallbackURL returns {base}/internal/jobs/{escaped job id}/complete. The job
// id is query-escaped so that '/' and '+' survive the callback route's
// unescaping.
func CallbackURL(base, jobID string) string {
	return strings.TrimRight(base, "/") + "/internal/jobs/" + url.QueryEscape(jobID) + "/complete"
}

// HTTPClient posts intake requests as JSON.
type HTTPClient struct {
	endpoint string
	client   *http.Client
	logger   *zap.Logger
}

// NewHTTPClient creates an intake client with a bounded request timeout.
func NewHTTPClient(endpoint string, timeout time.Duration, logger *zap.Logger) *HTTPClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{endpoint: endpoint, client: &http.Client{Timeout: timeout}, logger: logger}
}

// Submit hands the job to the worker. Any non-2xx answer is an error.
func (c *HTTPClient) Submit(ctx context.Context, req Request) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal intake: %w", err)
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	resp, err := c.client.Do(httpReq)
	if err != nil {
		return fmt.Errorf("intake: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("intake status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	c.logger.Info("ai job submitted", zap.String("job_id", req.JobID), zap.Int("status", resp.StatusCode))
	return nil
}

// Publisher is satisfied by *bus.Client.
type Publisher interface {
	PublishJSON(subject string, v any, timeout time.Duration) error
}

// NATSClient publishes intake requests on a subject.
type NATSClient struct {
	pub     Publisher
	subject string
	timeout time.Duration
	logger  *zap.Logger
}

// NewNATSClient creates a NATS intake client.
func NewNATSClient(pub Publisher, subject string, timeout time.Duration, logger *zap.Logger) *NATSClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &NATSClient{pub: pub, subject: subject, timeout: timeout, logger: logger}
}

// Submit publishes req and waits for the server to acknowledge the flush.
func (c *NATSClient) Submit(_ context.Context, req Request) error {
	if err := c.pub.PublishJSON(c.subject, req, c.timeout); err != nil {
		return fmt.Errorf("intake: %w", err)
	}
	c.logger.Info("ai job published", zap.String("job_id", req.JobID), zap.String("subject", c.subject))
	return nil
}
