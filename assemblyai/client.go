// Package assemblyai talks to the AssemblyAI v2 REST API: upload a
// payload, submit it for transcription and poll the job until it ends.
package assemblyai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

var (
	ErrUpload        = errors.New("Upload failed")
	ErrSubmission    = errors.New("Transcription request failed")
	ErrTranscription = errors.New("Transcription failed")
)

// Job states reported by the transcript endpoint.
const (
	StatusQueued     = "queued"
	StatusProcessing = "processing"
	StatusCompleted  = "completed"
	StatusFailed     = "failed"
)

type Transcript struct {
	ID     string `json:"id"`
	Status string `json:"status"`
	Text   string `json:"text"`
	Error  string `json:"error"`
}

// Done reports whether the job reached a terminal state.
func (t Transcript) Done() bool {
	return t.Status == StatusCompleted || t.Status == StatusFailed
}

type Client struct {
	apiKey       string
	baseURL      string
	pollInterval time.Duration
	client       *TracedClient

	mu   sync.Mutex
	lang string
}

func New(apiKey, baseURL string, pollInterval time.Duration) *Client {
	return &Client{
		apiKey:       apiKey,
		baseURL:      baseURL,
		pollInterval: pollInterval,
		client:       NewTracedClient(),
	}
}

// SetLanguage applies to jobs submitted afterwards; "" lets the API detect.
func (c *Client) SetLanguage(lang string) {
	c.mu.Lock()
	c.lang = lang
	c.mu.Unlock()
}

func (c *Client) GetLanguage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lang
}

func (c *Client) BaseURL() string { return c.baseURL }

// Warm pre-opens the API connection so the upload skips the handshake.
func (c *Client) Warm() (time.Duration, error) {
	return c.client.Warm(c.baseURL + "/v2/upload")
}

// Upload sends the encoded audio and returns the storage URL.
func (c *Client) Upload(ctx context.Context, payload []byte) (string, *NetworkMetrics, error) {
	req, err := c.newRequest(ctx, "POST", "/v2/upload", bytes.NewReader(payload))
	if err != nil {
		return "", nil, err
	}
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", ErrUpload, err)
	}

	var out struct {
		UploadURL string `json:"upload_url"`
		Error     string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		return "", resp.Metrics, fmt.Errorf("%w: %s", ErrUpload, parseDetail(resp.StatusCode, err))
	}
	if out.UploadURL == "" {
		return "", resp.Metrics, withDetail(ErrUpload, out.Error, resp.StatusCode)
	}
	return out.UploadURL, resp.Metrics, nil
}

// Submit requests transcription of an uploaded file and returns the job id.
func (c *Client) Submit(ctx context.Context, audioURL string) (string, error) {
	body := map[string]any{"audio_url": audioURL}
	if lang := c.GetLanguage(); lang != "" {
		body["language_code"] = lang
	}
	data, err := json.Marshal(body)
	if err != nil {
		return "", err
	}

	req, err := c.newRequest(ctx, "POST", "/v2/transcript", bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrSubmission, err)
	}

	var t Transcript
	if err := json.Unmarshal(resp.Body, &t); err != nil {
		return "", fmt.Errorf("%w: %s", ErrSubmission, parseDetail(resp.StatusCode, err))
	}
	if t.ID == "" {
		return "", withDetail(ErrSubmission, t.Error, resp.StatusCode)
	}
	return t.ID, nil
}

// Get fetches the current state of a transcription job.
func (c *Client) Get(ctx context.Context, id string) (Transcript, error) {
	req, err := c.newRequest(ctx, "GET", "/v2/transcript/"+id, nil)
	if err != nil {
		return Transcript{}, err
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Transcript{}, err
	}

	var t Transcript
	if err := json.Unmarshal(resp.Body, &t); err != nil {
		return Transcript{}, fmt.Errorf("parse transcript (HTTP %d): %w", resp.StatusCode, err)
	}
	return t, nil
}

// Poll waits one interval, checks the job, and repeats until it is
// completed or failed. There is no attempt cap; only ctx ends it early.
// onPoll, if set, sees every response.
func (c *Client) Poll(ctx context.Context, id string, onPoll func(Transcript)) (Transcript, error) {
	timer := time.NewTimer(c.pollInterval)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return Transcript{}, ctx.Err()
		case <-timer.C:
		}

		t, err := c.Get(ctx, id)
		if err != nil {
			return t, fmt.Errorf("%w: %v", ErrTranscription, err)
		}
		if onPoll != nil {
			onPoll(t)
		}

		switch t.Status {
		case StatusCompleted:
			return t, nil
		case StatusFailed:
			if t.Error != "" {
				return t, fmt.Errorf("%w: %s", ErrTranscription, t.Error)
			}
			return t, ErrTranscription
		}
		timer.Reset(c.pollInterval)
	}
}

func (c *Client) newRequest(ctx context.Context, method, path string, body *bytes.Reader) (*http.Request, error) {
	var req *http.Request
	var err error
	if body != nil {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, nil)
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set("authorization", c.apiKey)
	return req, nil
}

func withDetail(sentinel error, detail string, status int) error {
	if detail != "" {
		return fmt.Errorf("%w: %s", sentinel, detail)
	}
	if status >= 400 {
		return fmt.Errorf("%w: HTTP %d", sentinel, status)
	}
	return sentinel
}

func parseDetail(status int, err error) string {
	return fmt.Sprintf("parse response (HTTP %d): %v", status, err)
}
