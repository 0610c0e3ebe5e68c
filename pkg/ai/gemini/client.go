// Package gemini implements ai.Embedder and ai.Summarizer with the Gemini API.
// Several API keys may be configured; a key that hits its quota is rotated out
// for the next one.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"google.golang.org/genai"

	"github.com/otherjamesbrown/focusflow/pkg/ai"
	fferrors "github.com/otherjamesbrown/focusflow/pkg/errors"
	"github.com/otherjamesbrown/focusflow/pkg/logging"
)

// Defaults
const (
	DefaultEmbeddingModel = "text-embedding-004"
	DefaultChatModel      = "gemini-2.0-flash"
	// MaxEmbedBatch is the largest number of texts sent in one embedding request.
	MaxEmbedBatch = 100
)

// Config configures the Gemini client.
type Config struct {
	APIKeys        []string
	EmbeddingModel string
	ChatModel      string
	Temperature    float32
	// BaseURL overrides the API endpoint (used against proxies and in tests).
	BaseURL string
}

type embedFunc func(ctx context.Context, c *genai.Client, model string, texts []string) ([][]float32, error)
type generateFunc func(ctx context.Context, c *genai.Client, model, transcript string, temperature float32) (string, error)

// Client talks to the Gemini API.
type Client struct {
	cfg    Config
	logger logging.Logger

	mu         sync.Mutex
	clients    map[int]*genai.Client
	currentKey int

	embed    embedFunc
	generate generateFunc
}

var (
	_ ai.Embedder   = (*Client)(nil)
	_ ai.Summarizer = (*Client)(nil)
)

// New creates a client. At least one API key is required.
func New(cfg Config, logger logging.Logger) (*Client, error) {
	keys := make([]string, 0, len(cfg.APIKeys))
	for _, k := range cfg.APIKeys {
		if k = strings.TrimSpace(k); k != "" {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("gemini: no API key configured: %w", fferrors.ErrUnauthorized)
	}
	cfg.APIKeys = keys
	if cfg.EmbeddingModel == "" {
		cfg.EmbeddingModel = DefaultEmbeddingModel
	}
	if cfg.ChatModel == "" {
		cfg.ChatModel = DefaultChatModel
	}
	if cfg.Temperature == 0 {
		cfg.Temperature = 0.2
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Client{
		cfg:      cfg,
		logger:   logger.With(logging.F("component", "gemini")),
		clients:  make(map[int]*genai.Client),
		embed:    embedContent,
		generate: generateContent,
	}, nil
}

// EmbeddingModel returns the configured embedding model name.
func (c *Client) EmbeddingModel() string { return c.cfg.EmbeddingModel }

// ChatModel returns the configured summarization model name.
func (c *Client) ChatModel() string { return c.cfg.ChatModel }

// Embed returns one vector per text, in input order.
func (c *Client) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += MaxEmbedBatch {
		end := start + MaxEmbedBatch
		if end > len(texts) {
			end = len(texts)
		}
		batch := texts[start:end]

		var vecs [][]float32
		err := c.withKeyRotation(ctx, "embed", func(client *genai.Client) error {
			var err error
			vecs, err = c.embed(ctx, client, c.cfg.EmbeddingModel, batch)
			return err
		})
		if err != nil {
			return nil, err
		}
		if len(vecs) != len(batch) {
			return nil, fmt.Errorf("embedding count mismatch: got %d vectors for %d texts", len(vecs), len(batch))
		}
		out = append(out, vecs...)
	}
	return out, nil
}

// Summarize asks the chat model for the JSON summary of a transcript.
func (c *Client) Summarize(ctx context.Context, transcript string) (string, error) {
	var text string
	err := c.withKeyRotation(ctx, "summarize", func(client *genai.Client) error {
		var err error
		text, err = c.generate(ctx, client, c.cfg.ChatModel, transcript, c.cfg.Temperature)
		return err
	})
	return text, err
}

// withKeyRotation runs fn with the current key, moving to the next key when
// the call is rate limited. Every key is tried at most once.
func (c *Client) withKeyRotation(ctx context.Context, op string, fn func(*genai.Client) error) error {
	var lastErr error
	for range c.cfg.APIKeys {
		idx, client, err := c.client(ctx)
		if err != nil {
			lastErr = fmt.Errorf("create client: %w", err)
			c.rotateKey(idx)
			continue
		}

		err = fn(client)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if !isRateLimited(err) {
			return fmt.Errorf("gemini %s: %w", op, err)
		}
		c.logger.Warn("Gemini key rate limited, rotating",
			logging.F("op", op),
			logging.F("key_index", idx+1),
			logging.F("keys", len(c.cfg.APIKeys)))
		c.rotateKey(idx)
		lastErr = err
	}
	return fmt.Errorf("gemini %s: all API keys exhausted: %w", op, lastErr)
}

func (c *Client) client(ctx context.Context) (int, *genai.Client, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	idx := c.currentKey
	if cl, ok := c.clients[idx]; ok {
		return idx, cl, nil
	}
	cc := &genai.ClientConfig{
		APIKey:  c.cfg.APIKeys[idx],
		Backend: genai.BackendGeminiAPI,
	}
	if c.cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: c.cfg.BaseURL}
	}
	cl, err := genai.NewClient(ctx, cc)
	if err != nil {
		return idx, nil, err
	}
	c.clients[idx] = cl
	return idx, cl, nil
}

// rotateKey advances past idx unless another caller already rotated.
func (c *Client) rotateKey(idx int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.currentKey == idx {
		c.currentKey = (idx + 1) % len(c.cfg.APIKeys)
	}
}

func isRateLimited(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) && apiErr.Code == 429 {
		return true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr.Code == 429 {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") || strings.Contains(strings.ToLower(msg), "quota") || strings.Contains(msg, "RESOURCE_EXHAUSTED")
}

func embedContent(ctx context.Context, client *genai.Client, model string, texts []string) ([][]float32, error) {
	contents := make([]*genai.Content, len(texts))
	for i, t := range texts {
		contents[i] = genai.NewContentFromText(t, genai.RoleUser)
	}
	resp, err := client.Models.EmbedContent(ctx, model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, err
	}
	vecs := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		if e != nil {
			vecs[i] = e.Values
		}
	}
	return vecs, nil
}

func generateContent(ctx context.Context, client *genai.Client, model, transcript string, temperature float32) (string, error) {
	result, err := client.Models.GenerateContent(ctx, model, genai.Text(transcript), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(ai.SummaryPrompt, genai.RoleUser),
		ResponseMIMEType:  "application/json",
		Temperature:       genai.Ptr(temperature),
	})
	if err != nil {
		return "", err
	}
	if result == nil || len(result.Candidates) == 0 || result.Candidates[0].Content == nil {
		return "", errors.New("empty response from Gemini")
	}
	var sb strings.Builder
	for _, part := range result.Candidates[0].Content.Parts {
		if part != nil && part.Text != "" {
			sb.WriteString(part.Text)
		}
	}
	return sb.String(), nil
}
