// Package engine talks to the hosted generation API. Every failure is
// collapsed into ErrUnavailable so the conversation layer can degrade to the
// fallback reply without leaking transport detail to the channel.
package engine

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/leadlinehq/leadline/internal/config"
)

type Client struct {
	httpClient  *http.Client
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	logger      *slog.Logger
}

func NewClient(logger *slog.Logger, cfg config.EngineConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient:  &http.Client{Timeout: timeout},
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		logger:      logger.With(slog.String("service", "engine")),
	}
}

type generatePart struct {
	Text       string          `json:"text,omitempty"`
	InlineData *generateInline `json:"inline_data,omitempty"`
}

type generateInline struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generateContent struct {
	Role  string         `json:"role,omitempty"`
	Parts []generatePart `json:"parts"`
}

type generationConfig struct {
	Temperature      float64 `json:"temperature"`
	ResponseMimeType string  `json:"response_mime_type,omitempty"`
}

type generateRequest struct {
	SystemInstruction *generateContent  `json:"system_instruction,omitempty"`
	Contents          []generateContent `json:"contents"`
	GenerationConfig  generationConfig  `json:"generationConfig"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

// Generate produces the next reply for an alternating history. Media
// attachments are delivered inline ahead of the history.
func (c *Client) Generate(ctx context.Context, system string, history []Turn, media []Media) (string, error) {
	contents := make([]generateContent, 0, len(history)+1)

	if parts := c.mediaParts(media); len(parts) > 0 {
		contents = append(contents, generateContent{Role: "user", Parts: parts})
	}
	for _, turn := range history {
		contents = append(contents, generateContent{
			Role:  turn.Role,
			Parts: []generatePart{{Text: turn.Content}},
		})
	}

	req := generateRequest{
		Contents:         contents,
		GenerationConfig: generationConfig{Temperature: c.temperature},
	}
	if strings.TrimSpace(system) != "" {
		req.SystemInstruction = &generateContent{Parts: []generatePart{{Text: system}}}
	}

	text, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// Classify runs a single JSON-mode turn and returns the raw JSON payload
// with any markdown fences stripped.
func (c *Client) Classify(ctx context.Context, system, transcript string) (string, error) {
	req := generateRequest{
		SystemInstruction: &generateContent{Parts: []generatePart{{Text: system}}},
		Contents: []generateContent{
			{Role: "user", Parts: []generatePart{{Text: transcript}}},
		},
		GenerationConfig: generationConfig{
			Temperature:      0,
			ResponseMimeType: "application/json",
		},
	}

	text, err := c.post(ctx, req)
	if err != nil {
		return "", err
	}
	return removeCodeBlocks(text), nil
}

func (c *Client) post(ctx context.Context, payload generateRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("%w: encode request: %v", ErrUnavailable, err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		c.logger.Error("engine request failed", slog.Any("error", err))
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("engine error",
			slog.Int("status", resp.StatusCode),
			slog.String("body_prefix", truncate(string(respBody), 300)))
		return "", fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	var parsed generateResponse
	if err := json.Unmarshal(respBody, &parsed); err != nil {
		c.logger.Error("engine response parse failed",
			slog.String("body_prefix", truncate(string(respBody), 300)),
			slog.Any("error", err))
		return "", fmt.Errorf("%w: parse response: %v", ErrUnavailable, err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrUnavailable)
	}

	var out strings.Builder
	for _, part := range parsed.Candidates[0].Content.Parts {
		out.WriteString(part.Text)
	}
	return out.String(), nil
}

func (c *Client) mediaParts(media []Media) []generatePart {
	parts := make([]generatePart, 0, len(media))
	for _, m := range media {
		data, err := os.ReadFile(m.StorageRef)
		if err != nil {
			c.logger.Warn("skip unreadable media attachment",
				slog.String("path", m.StorageRef),
				slog.String("error", err.Error()))
			continue
		}
		parts = append(parts, generatePart{
			InlineData: &generateInline{
				MimeType: m.MimeType,
				Data:     base64.StdEncoding.EncodeToString(data),
			},
		})
	}
	return parts
}

func removeCodeBlocks(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```json")
	trimmed = strings.TrimPrefix(trimmed, "```")
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[:limit] + "..."
}
