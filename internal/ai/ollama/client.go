// Package ollama talks to a local Ollama server.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/AmanKumar-0/linkedin-application-bot/internal/ai"
	"github.com/AmanKumar-0/linkedin-application-bot/internal/utils"
	"go.uber.org/zap"
)

const (
	defaultURL   = "http://localhost:11434"
	defaultModel = "qwen2.5:7b"
	generatePath = "/api/generate"
	contentType  = "application/json"
	maxLogLength = 200
)

// Client completes prompts with the Ollama generate API.
type Client struct {
	HTTPClient *http.Client
	BaseURL    string
	model      string
	logger     *zap.Logger
}

type generateRequest struct {
	Model   string          `json:"model"`
	Prompt  string          `json:"prompt"`
	Stream  bool            `json:"stream"`
	Options generateOptions `json:"options"`
}

type generateOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
	Error    string `json:"error,omitempty"`
}

// New returns a client for the server at baseURL.
func New(baseURL, model string, logger *zap.Logger) *Client {
	if baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/"); baseURL == "" {
		baseURL = defaultURL
	}
	if model = strings.TrimSpace(model); model == "" {
		model = defaultModel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		HTTPClient: &http.Client{Timeout: 2 * time.Minute},
		BaseURL:    baseURL,
		model:      model,
		logger:     logger,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string { return c.model }

// Complete implements ai.Completer.
func (c *Client) Complete(ctx context.Context, prompt string, opts ai.Options) (string, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", errors.New("prompt must not be empty")
	}

	output, err := c.generate(ctx, prompt, opts)
	return output, ai.Classify(ctx, err)
}

func (c *Client) generate(ctx context.Context, prompt string, opts ai.Options) (string, error) {
	payload, err := json.Marshal(generateRequest{
		Model:  c.model,
		Prompt: prompt,
		Options: generateOptions{
			Temperature: opts.Temperature,
			NumPredict:  opts.MaxTokens,
		},
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+generatePath, bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", contentType)

	c.logger.Debug("make request",
		zap.String("url", req.URL.String()),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, maxLogLength)),
	)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	var body generateResponse
	if err := json.Unmarshal(data, &body); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("bad status: %s", resp.Status)
		}
		return "", fmt.Errorf("decode ollama response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		if body.Error != "" {
			return "", fmt.Errorf("bad status: %s: %s", resp.Status, body.Error)
		}
		return "", fmt.Errorf("bad status: %s", resp.Status)
	}

	output := strings.TrimSpace(body.Response)
	if output == "" {
		return "", errors.New("ollama returned empty response")
	}

	return output, nil
}
