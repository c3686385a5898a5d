// Package ollama implements llm.Provider against Ollama's native
// /api/chat endpoint: request shape and option knobs (temperature,
// num_predict) map directly onto Ollama's JSON body, with a
// hand-rolled NDJSON streaming decoder since this system's dialogue
// context (internal/state.DialogueContext) is already flat role/content
// turns and needs no message-conversion layer in front of it.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/motern88/allen/internal/llm"
	"github.com/motern88/allen/internal/state"
)

const (
	defaultBaseURL = "http://localhost:11434"
	defaultTimeout = 300 * time.Second
)

// Config configures the Ollama client.
type Config struct {
	BaseURL     string
	Model       string
	Temperature *float64
	NumPredict  *int
	Timeout     time.Duration
}

// Client is an Ollama LLM implementation of llm.Provider.
type Client struct {
	http    *http.Client
	baseURL string
	model   string
	temp    *float64
	predict *int
}

// NewClient creates an Ollama client from cfg, filling in a default
// base URL and timeout when cfg leaves them zero.
func NewClient(cfg Config) *Client {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = defaultTimeout
	}
	return &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: baseURL,
		model:   cfg.Model,
		temp:    cfg.Temperature,
		predict: cfg.NumPredict,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message    chatMessage `json:"message"`
	Done       bool        `json:"done"`
	DoneReason string      `json:"done_reason,omitempty"`
}

func (c *Client) buildRequest(messages []llm.Message, stream bool) chatRequest {
	req := chatRequest{Model: c.model, Stream: stream}
	req.Messages = make([]chatMessage, len(messages))
	for i, m := range messages {
		req.Messages[i] = chatMessage{Role: m.Role, Content: m.Content}
	}
	options := make(map[string]any)
	if c.temp != nil {
		options["temperature"] = *c.temp
	}
	if c.predict != nil {
		options["num_predict"] = *c.predict
	}
	if len(options) > 0 {
		req.Options = options
	}
	return req
}

// CallLLM implements llm.Provider.
func (c *Client) CallLLM(ctx context.Context, messages []llm.Message) (llm.Message, error) {
	if len(messages) == 0 {
		return llm.Message{}, fmt.Errorf("no messages to send")
	}

	body, err := json.Marshal(c.buildRequest(messages, false))
	if err != nil {
		return llm.Message{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return llm.Message{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return llm.Message{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return llm.Message{}, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(b))
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return llm.Message{}, fmt.Errorf("decode response: %w", err)
	}

	return llm.Message{Role: llm.RoleAssistant, Content: apiResp.Message.Content}, nil
}

// CallLLMStream implements llm.Provider. Ollama's streaming NDJSON
// format is parsed line-by-line and each content delta is forwarded to
// onChunk.
func (c *Client) CallLLMStream(ctx context.Context, messages []llm.Message, onChunk llm.StreamCallback) (llm.Message, error) {
	if onChunk == nil {
		return c.CallLLM(ctx, messages)
	}
	if len(messages) == 0 {
		return llm.Message{}, fmt.Errorf("no messages to send")
	}

	body, err := json.Marshal(c.buildRequest(messages, true))
	if err != nil {
		return llm.Message{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/chat", bytes.NewReader(body))
	if err != nil {
		return llm.Message{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return llm.Message{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return llm.Message{}, fmt.Errorf("ollama API error (status %d): %s", resp.StatusCode, string(b))
	}

	decoder := json.NewDecoder(resp.Body)
	var sb strings.Builder
	for {
		var chunk chatResponse
		if err := decoder.Decode(&chunk); err != nil {
			if err == io.EOF {
				break
			}
			return llm.Message{}, fmt.Errorf("stream decode error: %w", err)
		}
		if chunk.Message.Content != "" {
			sb.WriteString(chunk.Message.Content)
			onChunk(chunk.Message.Content)
		}
		if chunk.Done {
			break
		}
	}

	return llm.Message{Role: llm.RoleAssistant, Content: sb.String()}, nil
}

// Name implements llm.Provider.
func (c *Client) Name() string {
	return fmt.Sprintf("ollama (%s)", c.model)
}

var _ llm.Provider = (*Client)(nil)

// Adapter wraps a Client to satisfy state.LLMClient.
type Adapter struct {
	client *Client
}

// NewAdapter wraps client as a state.LLMClient.
func NewAdapter(client *Client) *Adapter {
	return &Adapter{client: client}
}

// CallLLM implements state.LLMClient.
func (a *Adapter) CallLLM(ctx context.Context, turns []state.DialogueTurn) (state.DialogueTurn, error) {
	messages := make([]llm.Message, len(turns))
	for i, t := range turns {
		messages[i] = llm.Message{Role: t.Role, Content: t.Content}
	}
	reply, err := a.client.CallLLM(ctx, messages)
	if err != nil {
		return state.DialogueTurn{}, err
	}
	return state.DialogueTurn{Role: reply.Role, Content: reply.Content}, nil
}

// Name implements state.LLMClient.
func (a *Adapter) Name() string {
	return a.client.Name()
}

var _ state.LLMClient = (*Adapter)(nil)
