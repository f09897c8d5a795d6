package assemblyai

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeAPI struct {
	mu          sync.Mutex
	uploadResp  string
	submitResp  string
	polls       []string
	pollPaths   []string
	submitted   map[string]any
	submitCalls int
	auth        []string
}

func (f *fakeAPI) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/upload", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.auth = append(f.auth, r.Header.Get("authorization"))
		io.Copy(io.Discard, r.Body)
		io.WriteString(w, f.uploadResp)
	})
	mux.HandleFunc("POST /v2/transcript", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.submitCalls++
		if err := json.NewDecoder(r.Body).Decode(&f.submitted); err != nil {
			t.Errorf("submit body: %v", err)
		}
		io.WriteString(w, f.submitResp)
	})
	mux.HandleFunc("GET /v2/transcript/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		f.pollPaths = append(f.pollPaths, r.URL.Path)
		resp := f.polls[0]
		if len(f.polls) > 1 {
			f.polls = f.polls[1:]
		}
		io.WriteString(w, resp)
	})
	return mux
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api.handler(t))
	t.Cleanup(srv.Close)
	return New("test-key", srv.URL, 5*time.Millisecond)
}

func TestUpload(t *testing.T) {
	tests := []struct {
		name    string
		resp    string
		wantURL string
		wantErr string
	}{
		{"ok", `{"upload_url":"https://cdn.example/X"}`, "https://cdn.example/X", ""},
		{"missing url", `{}`, "", "Upload failed"},
		{"api error", `{"error":"Authentication error"}`, "", "Upload failed: Authentication error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			api := &fakeAPI{uploadResp: tt.resp}
			c := newTestClient(t, api)

			url, m, err := c.Upload(context.Background(), []byte("fLaC"))
			if tt.wantErr != "" {
				if !errors.Is(err, ErrUpload) {
					t.Fatalf("err = %v, want ErrUpload", err)
				}
				if err.Error() != tt.wantErr {
					t.Errorf("err = %q, want %q", err.Error(), tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatal(err)
			}
			if url != tt.wantURL {
				t.Errorf("url = %q, want %q", url, tt.wantURL)
			}
			if m == nil || m.Total <= 0 {
				t.Errorf("expected network metrics, got %+v", m)
			}
			if api.auth[0] != "test-key" {
				t.Errorf("authorization = %q", api.auth[0])
			}
		})
	}
}

func TestSubmit(t *testing.T) {
	api := &fakeAPI{submitResp: `{"id":"J","status":"queued"}`}
	c := newTestClient(t, api)
	c.SetLanguage("de")

	id, err := c.Submit(context.Background(), "X")
	if err != nil {
		t.Fatal(err)
	}
	if id != "J" {
		t.Errorf("id = %q, want J", id)
	}
	if api.submitted["audio_url"] != "X" {
		t.Errorf("audio_url = %v", api.submitted["audio_url"])
	}
	if api.submitted["language_code"] != "de" {
		t.Errorf("language_code = %v", api.submitted["language_code"])
	}
}

func TestUnparseableResponse(t *testing.T) {
	api := &fakeAPI{uploadResp: `<html>`, submitResp: `<html>`}
	c := newTestClient(t, api)

	_, _, err := c.Upload(context.Background(), []byte("fLaC"))
	if !errors.Is(err, ErrUpload) {
		t.Fatalf("upload err = %v, want ErrUpload", err)
	}
	if !strings.Contains(err.Error(), "parse response (HTTP 200): invalid character") {
		t.Errorf("upload err %q lacks the parse failure", err)
	}

	_, err = c.Submit(context.Background(), "X")
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("submit err = %v, want ErrSubmission", err)
	}
	if !strings.Contains(err.Error(), "parse response (HTTP 200): invalid character") {
		t.Errorf("submit err %q lacks the parse failure", err)
	}
}

func TestSubmitMissingID(t *testing.T) {
	api := &fakeAPI{submitResp: `{"error":"bad audio_url"}`}
	c := newTestClient(t, api)

	_, err := c.Submit(context.Background(), "X")
	if !errors.Is(err, ErrSubmission) {
		t.Fatalf("err = %v, want ErrSubmission", err)
	}
	if !strings.Contains(err.Error(), "bad audio_url") {
		t.Errorf("detail missing from %q", err)
	}
}

func TestPollUntilCompleted(t *testing.T) {
	api := &fakeAPI{polls: []string{
		`{"id":"J","status":"queued"}`,
		`{"id":"J","status":"processing"}`,
		`{"id":"J","status":"completed","text":"hello world"}`,
	}}
	c := newTestClient(t, api)

	var seen []string
	tr, err := c.Poll(context.Background(), "J", func(t Transcript) { seen = append(seen, t.Status) })
	if err != nil {
		t.Fatal(err)
	}
	if tr.Text != "hello world" {
		t.Errorf("text = %q", tr.Text)
	}
	if len(api.pollPaths) != 3 {
		t.Fatalf("polls = %d, want 3", len(api.pollPaths))
	}
	for _, p := range api.pollPaths {
		if p != "/v2/transcript/J" {
			t.Errorf("poll path = %q", p)
		}
	}
	if strings.Join(seen, ",") != "queued,processing,completed" {
		t.Errorf("onPoll saw %v", seen)
	}
}

func TestPollFailed(t *testing.T) {
	tests := []struct {
		resp string
		want string
	}{
		{`{"id":"J","status":"failed"}`, "Transcription failed"},
		{`{"id":"J","status":"failed","error":"no speech"}`, "Transcription failed: no speech"},
	}
	for _, tt := range tests {
		api := &fakeAPI{polls: []string{tt.resp}}
		c := newTestClient(t, api)

		_, err := c.Poll(context.Background(), "J", nil)
		if !errors.Is(err, ErrTranscription) {
			t.Fatalf("err = %v, want ErrTranscription", err)
		}
		if err.Error() != tt.want {
			t.Errorf("err = %q, want %q", err, tt.want)
		}
	}
}

func TestPollStopsOnContext(t *testing.T) {
	api := &fakeAPI{polls: []string{`{"id":"J","status":"processing"}`}}
	c := newTestClient(t, api)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := c.Poll(ctx, "J", nil)
	if err == nil {
		t.Fatal("expected error after context deadline")
	}
}

func TestTranscriptDone(t *testing.T) {
	for status, want := range map[string]bool{
		StatusQueued: false, StatusProcessing: false, StatusCompleted: true, StatusFailed: true,
	} {
		if got := (Transcript{Status: status}).Done(); got != want {
			t.Errorf("Done(%s) = %v, want %v", status, got, want)
		}
	}
}

func TestNetworkMetricsSum(t *testing.T) {
	m := &NetworkMetrics{
		ConnWait:   10 * time.Millisecond,
		DNS:        20 * time.Millisecond,
		TCP:        30 * time.Millisecond,
		TLS:        40 * time.Millisecond,
		ReqHeaders: 5 * time.Millisecond,
		ReqBody:    15 * time.Millisecond,
		TTFB:       50 * time.Millisecond,
		Download:   25 * time.Millisecond,
	}
	if got, want := m.Sum(), 195*time.Millisecond; got != want {
		t.Errorf("Sum() = %v, want %v", got, want)
	}
}
