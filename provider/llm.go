package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rchasman/dominion-maker-sub001/consensus"
	"github.com/rchasman/dominion-maker-sub001/move"
)

const systemPrompt = `You are a five-card draw poker player sitting at seat %d.
You are given the decision you face, the table as you see it, and the list of
legal moves. Answer with a single JSON object and nothing else:
{"kind": "<kind>", "amount": <chips for bet or raise>, "item": "<card>", "index": <position>, "sub": "<keep|discard>", "rationale": "<one sentence>"}
Only the fields the chosen kind needs are required. The move must be one of
the legal moves; bet and raise amounts must lie within the given range.`

// LLM asks an OpenAI-compatible chat completions endpoint for a move.
type LLM struct {
	id          string
	baseURL     string
	apiKey      string
	model       string
	temperature float64
	client      *http.Client
}

type llmOption func(*LLM)

// WithBaseURL points the proposer at another compatible endpoint.
func WithBaseURL(u string) llmOption {
	return func(l *LLM) { l.baseURL = strings.TrimRight(u, "/") }
}

// WithModel selects the model.
func WithModel(model string) llmOption {
	return func(l *LLM) { l.model = model }
}

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) llmOption {
	return func(l *LLM) { l.temperature = t }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) llmOption {
	return func(l *LLM) { l.client = c }
}

// NewLLM returns a proposer authenticating with apiKey.
func NewLLM(id, apiKey string, opts ...llmOption) *LLM {
	l := &LLM{
		id:      id,
		baseURL: "https://api.openai.com/v1",
		apiKey:  apiKey,
		model:   "gpt-4o-mini",
		client:  &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LLM) ID() string { return l.id }

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string            `json:"model"`
	Messages       []chatMessage     `json:"messages"`
	Temperature    float64           `json:"temperature,omitempty"`
	ResponseFormat map[string]string `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// prompt is the user message: the request without its round bookkeeping.
type prompt struct {
	Decision any          `json:"decision"`
	View     any          `json:"table"`
	Legal    []move.Legal `json:"legal_moves"`
}

func (l *LLM) Propose(ctx context.Context, req consensus.Request) (move.Action, error) {
	user, err := json.Marshal(prompt{Decision: req.Decision, View: req.View, Legal: req.Legal})
	if err != nil {
		return move.Action{}, fmt.Errorf("llm: marshal prompt: %w", err)
	}
	body, err := json.Marshal(chatRequest{
		Model: l.model,
		Messages: []chatMessage{
			{Role: "system", Content: fmt.Sprintf(systemPrompt, req.Actor)},
			{Role: "user", Content: string(user)},
		},
		Temperature:    l.temperature,
		ResponseFormat: map[string]string{"type": "json_object"},
	})
	if err != nil {
		return move.Action{}, fmt.Errorf("llm: marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return move.Action{}, fmt.Errorf("llm: create request: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+l.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := l.client.Do(httpReq)
	if err != nil {
		return move.Action{}, fmt.Errorf("llm: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return move.Action{}, fmt.Errorf("llm: status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	}
	var cr chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return move.Action{}, fmt.Errorf("llm: decode response: %w", err)
	}
	if cr.Error != nil {
		return move.Action{}, fmt.Errorf("llm: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return move.Action{}, fmt.Errorf("llm: empty choices in response")
	}
	return parseReply(cr.Choices[0].Message.Content)
}

// parseReply decodes the move from the model's reply, tolerating a fenced
// code block around the JSON object.
func parseReply(content string) (move.Action, error) {
	s := strings.TrimSpace(content)
	if start, end := strings.IndexByte(s, '{'), strings.LastIndexByte(s, '}'); start >= 0 && end > start {
		s = s[start : end+1]
	}
	var w move.Wire
	if err := json.Unmarshal([]byte(s), &w); err != nil {
		return move.Action{}, fmt.Errorf("llm: reply is not a move: %w", err)
	}
	a, err := move.FromWire(w)
	if err != nil {
		return move.Action{}, fmt.Errorf("llm: %w", err)
	}
	return a, nil
}
