// Package whisper is a Transcriber backed by an OpenAI-compatible Whisper
// HTTP API (POST /v1/audio/transcriptions with verbose_json output).
package whisper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/otherjamesbrown/focusflow/pkg/asr"
	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
	"github.com/otherjamesbrown/focusflow/pkg/ingest/meeting"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
)

// Defaults
const (
	DefaultBaseURL = "https://api.openai.com"
	DefaultModel   = "whisper-1"
	DefaultTimeout = 5 * time.Minute
	DefaultRetries = 3
)

// Config configures the Whisper API client.
type Config struct {
	BaseURL  string
	APIKey   string // sent as Bearer when set
	Model    string
	Language string // "" lets the service detect it
	Timeout  time.Duration
	Retries  int
}

// Client calls a remote Whisper API.
type Client struct {
	cfg         Config
	client      *http.Client
	logger      logging.Logger
	backoffBase time.Duration
}

// NewClient creates a Whisper client, filling unset config from defaults.
func NewClient(cfg Config, logger logging.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Client{
		cfg:         cfg,
		client:      &http.Client{Timeout: cfg.Timeout},
		logger:      logger.With(logging.F("component", "whisper")),
		backoffBase: time.Second,
	}
}

type transcribeResponse struct {
	Text     string  `json:"text"`
	Language string  `json:"language"`
	Duration float64 `json:"duration"`
	Segments []struct {
		Start float64 `json:"start"`
		End   float64 `json:"end"`
		Text  string  `json:"text"`
	} `json:"segments"`
}

// Transcribe uploads the audio file and returns its segments. Network errors
// and 5xx/429 responses are retried with exponential backoff.
func (c *Client) Transcribe(ctx context.Context, audioPath string) (*asr.Result, error) {
	var lastErr error
	for attempt := 0; attempt <= c.cfg.Retries; attempt++ {
		if attempt > 0 {
			backoff := c.backoff(attempt)
			c.logger.Warn("Retrying transcription",
				logging.F("attempt", attempt),
				logging.F("backoff", backoff),
				logging.Err(lastErr))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		result, err := c.doTranscribe(ctx, audioPath)
		if err == nil {
			return result, nil
		}
		if !isRetryable(err) || ctx.Err() != nil {
			return nil, fmt.Errorf("transcribe %s: %w", filepath.Base(audioPath), err)
		}
		lastErr = err
	}
	return nil, fmt.Errorf("transcribe %s: all %d retries exhausted: %w", filepath.Base(audioPath), c.cfg.Retries, lastErr)
}

func (c *Client) doTranscribe(ctx context.Context, audioPath string) (*asr.Result, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return nil, fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	pr, pw := io.Pipe()
	writer := multipart.NewWriter(pw)

	go func() {
		part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
		if err == nil {
			_, err = io.Copy(part, f)
		}
		if err == nil {
			for _, kv := range [][2]string{
				{"model", c.cfg.Model},
				{"response_format", "verbose_json"},
				{"temperature", "0"},
				{"language", c.cfg.Language},
			} {
				if kv[1] == "" {
					continue
				}
				if err = writer.WriteField(kv[0], kv[1]); err != nil {
					break
				}
			}
		}
		if err == nil {
			err = writer.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/audio/transcriptions", pr)
	if err != nil {
		pr.Close()
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	if c.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &retryableError{err: fmt.Errorf("http request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &retryableError{err: fmt.Errorf("read response body: %w", err)}
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, &retryableError{err: fmt.Errorf("rate limit (http 429): %s", truncate(body, 200))}
	case resp.StatusCode >= 500:
		return nil, &retryableError{err: fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(body, 200))}
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("http %d: %w", resp.StatusCode, fferrors.ErrUnauthorized)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("http %d: %s", resp.StatusCode, truncate(body, 200))
	}

	var parsed transcribeResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	result := &asr.Result{
		Segments: make([]meeting.Segment, 0, len(parsed.Segments)),
		Text:     strings.TrimSpace(parsed.Text),
		Language: parsed.Language,
		Duration: parsed.Duration,
		Model:    c.cfg.Model,
	}
	for _, s := range parsed.Segments {
		result.Segments = append(result.Segments, meeting.TimedSegment(s.Start, s.End, s.Text))
	}

	c.logger.Debug("Transcription complete",
		logging.F("file", filepath.Base(audioPath)),
		logging.F("segments", len(result.Segments)),
		logging.F("duration_sec", parsed.Duration))
	return result, nil
}

// retryableError wraps errors that should trigger a retry.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string { return e.err.Error() }
func (e *retryableError) Unwrap() error { return e.err }

func isRetryable(err error) bool {
	var re *retryableError
	return errors.As(err, &re)
}

// backoff returns base * 2^(attempt-1) plus up to 25% jitter.
func (c *Client) backoff(attempt int) time.Duration {
	delay := c.backoffBase
	if delay <= 0 {
		delay = time.Second
	}
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return delay + time.Duration(rand.Int63n(int64(delay/4)+1))
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
