package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// DefaultOllamaModel is used when no model is configured.
const DefaultOllamaModel = "llama3.1"

// Ollama calls a local Ollama server's /api/chat endpoint without streaming.
type Ollama struct {
	baseURL string
	model   string
	client  *http.Client
}

// NewOllama creates an Ollama chat client. A nil client uses
// http.DefaultClient; deadlines come from the request context.
func NewOllama(baseURL, model string, client *http.Client) *Ollama {
	if model == "" {
		model = DefaultOllamaModel
	}
	if client == nil {
		client = http.DefaultClient
	}
	return &Ollama{baseURL: strings.TrimRight(baseURL, "/"), model: model, client: client}
}

type ollamaMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatReq struct {
	Model    string          `json:"model"`
	Messages []ollamaMessage `json:"messages"`
	Stream   bool            `json:"stream"`
	Format   string          `json:"format"`
	Options  map[string]any  `json:"options,omitempty"`
}

type ollamaChatResp struct {
	Message ollamaMessage `json:"message"`
	Done    bool          `json:"done"`
	Error   string        `json:"error"`
}

func (o *Ollama) Name() string { return "ollama" }

// Generate implements Generator.
func (o *Ollama) Generate(ctx context.Context, p Prompt) (string, error) {
	var msgs []ollamaMessage
	if p.System != "" {
		msgs = append(msgs, ollamaMessage{Role: "system", Content: p.System})
	}
	msgs = append(msgs, ollamaMessage{Role: "user", Content: p.User})

	body, err := json.Marshal(ollamaChatReq{
		Model:    o.model,
		Messages: msgs,
		Format:   "json",
		Options:  map[string]any{"temperature": 0.4},
	})
	if err != nil {
		return "", err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := o.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: ollama chat: %w", err)
	}
	defer resp.Body.Close()

	var out ollamaChatResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("llm: ollama chat: status %d", resp.StatusCode)
		}
		return "", fmt.Errorf("llm: ollama decode: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("llm: ollama chat: status %d: %s", resp.StatusCode, out.Error)
	}
	text := strings.TrimSpace(out.Message.Content)
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}
