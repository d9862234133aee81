package builtin

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// KnowledgeSearchTool queries an external knowledge-base search backend.
// The backend's response payload is returned opaquely as the tool result;
// a failed lookup is reported as an error and the caller decides how to
// proceed with the round.
type KnowledgeSearchTool struct {
	Enabled    bool
	Endpoint   string
	APIKey     string
	Timeout    time.Duration
	MaxBytes   int64
	UserAgent  string
	HTTPClient *http.Client
}

func NewKnowledgeSearchTool(enabled bool, endpoint, apiKey string, timeout time.Duration, maxBytes int64) *KnowledgeSearchTool {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	if maxBytes <= 0 {
		maxBytes = 512 * 1024
	}
	return &KnowledgeSearchTool{
		Enabled:   enabled,
		Endpoint:  strings.TrimSpace(endpoint),
		APIKey:    strings.TrimSpace(apiKey),
		Timeout:   timeout,
		MaxBytes:  maxBytes,
		UserAgent: "kbmorph/1.0 (+https://github.com/quailyquaily)",
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (t *KnowledgeSearchTool) Name() string { return "kb_search" }

func (t *KnowledgeSearchTool) Description() string {
	return "Search the knowledge base for an answer to the user's question."
}

func (t *KnowledgeSearchTool) ParameterSchema() string {
	s := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"question": map[string]any{
				"type":        "string",
				"description": "The question to search for in the knowledge base.",
			},
		},
		"required": []string{"question"},
	}
	b, _ := json.MarshalIndent(s, "", "  ")
	return string(b)
}

type kbSearchRequest struct {
	Query string `json:"query"`
}

func (t *KnowledgeSearchTool) Execute(ctx context.Context, params map[string]any) (string, error) {
	if !t.Enabled {
		return "", fmt.Errorf("kb_search tool is disabled (enable via config: kb.enabled=true)")
	}
	if t.Endpoint == "" {
		return "", fmt.Errorf("kb_search endpoint is not configured (set kb.endpoint)")
	}

	question, _ := params["question"].(string)
	question = strings.TrimSpace(question)
	if question == "" {
		return "", fmt.Errorf("missing required param: question")
	}

	raw, err := json.Marshal(kbSearchRequest{Query: question})
	if err != nil {
		return "", err
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, t.Endpoint, bytes.NewReader(raw))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", t.UserAgent)
	if t.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.APIKey)
	}

	resp, err := t.HTTPClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, t.MaxBytes))
	if err != nil {
		return "", err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("kb_search non-2xx status=%d body=%s", resp.StatusCode, string(bytes.ToValidUTF8(body, []byte("[non-utf8]"))))
	}

	return string(body), nil
}
