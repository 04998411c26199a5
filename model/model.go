package model

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tathagata1/Pipegent/core"
)

// Request captures the normalized model input: ordered role-tagged messages.
type Request struct {
	Messages []core.Message `json:"messages"`
	// Temperature overrides the provider default when non-nil.
	Temperature *float64 `json:"temperature,omitempty"`
}

// Temperature is a helper returning a pointer suitable for Request.Temperature.
func Temperature(v float64) *float64 { return &v }

// TokenUsage captures token usage statistics for a response.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Response is a (partial or final) chunk emitted by a model.
type Response struct {
	ID           string      `json:"id"`
	Partial      bool        `json:"partial"` // Indicates if this is a partial response
	Content      string      `json:"content"`
	FinishReason string      `json:"finish_reason"` // "stop", "length", etc.
	Usage        *TokenUsage `json:"usage,omitempty"`
}

// TotalTokens returns the reported token total, or 0 when the provider did
// not report usage.
func (r Response) TotalTokens() int {
	if r.Usage == nil {
		return 0
	}
	return r.Usage.TotalTokens
}

// Info contains metadata about a model implementation.
type Info struct {
	Name     string `json:"name"`
	Provider string `json:"provider"` // "openai", "anthropic", "mock"
}

// Model is the minimal interface required to drive generation.
type Model interface {
	Generate(ctx context.Context, req Request) (<-chan Response, <-chan error)

	// Info returns information about the model implementation.
	Info() Info
}

// ErrEmptyResponse is returned by Complete when the model produced no output.
var ErrEmptyResponse = errors.New("model returned no response")

// Complete drives m to completion and returns the final text.
func Complete(ctx context.Context, m Model, req Request) (string, error) {
	resp, err := CompleteResponse(ctx, m, req)
	if err != nil {
		return "", err
	}
	return resp.Content, nil
}

// CompleteResponse drives m to completion and returns the final response,
// usage included. When a model only emits partial chunks, the chunks are
// concatenated into the returned content.
func CompleteResponse(ctx context.Context, m Model, req Request) (Response, error) {
	respCh, errCh := m.Generate(ctx, req)

	var (
		final    *Response
		partials strings.Builder
	)

	for respCh != nil || errCh != nil {
		select {
		case r, ok := <-respCh:
			if !ok {
				respCh = nil
				continue
			}
			if r.Partial {
				partials.WriteString(r.Content)
				continue
			}
			final = &r
		case err, ok := <-errCh:
			if !ok {
				errCh = nil
				continue
			}
			if err != nil {
				return Response{}, err
			}
		case <-ctx.Done():
			return Response{}, ctx.Err()
		}
	}

	if final != nil {
		return *final, nil
	}
	if partials.Len() > 0 {
		return Response{Content: partials.String()}, nil
	}
	return Response{}, ErrEmptyResponse
}

// MockModel is a lightweight in-memory Model useful for tests.
//
// Responses are served from a FIFO script first (Enqueue / EnqueueError);
// when the script is empty, canned responses keyed by the last message text
// (AddResponse) are used, and finally an echo of that text.
type MockModel struct {
	info Info

	mu        sync.Mutex
	responses map[string]string
	script    []scripted
	requests  []Request
	usage     *TokenUsage
}

type scripted struct {
	text string
	err  error
}

// NewMockModel constructs a MockModel.
func NewMockModel(name, provider string) *MockModel {
	return &MockModel{
		info: Info{
			Name:     name,
			Provider: provider,
		},
		responses: make(map[string]string),
	}
}

// AddResponse registers a deterministic canned completion for an input prompt.
func (m *MockModel) AddResponse(prompt, response string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.responses[prompt] = response
}

// Enqueue appends completions served in order, one per Generate call.
func (m *MockModel) Enqueue(responses ...string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range responses {
		m.script = append(m.script, scripted{text: r})
	}
}

// EnqueueError makes the next scripted Generate call fail with err.
func (m *MockModel) EnqueueError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.script = append(m.script, scripted{err: err})
}

// SetUsage makes every later response report u as its token usage.
func (m *MockModel) SetUsage(u TokenUsage) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.usage = &u
}

// Requests returns copies of every request received so far.
func (m *MockModel) Requests() []Request {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Request, len(m.requests))
	for i, r := range m.requests {
		r.Messages = core.CloneMessages(r.Messages)
		out[i] = r
	}
	return out
}

// Calls returns the number of Generate calls received so far.
func (m *MockModel) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Generate implements Model by emitting one final response.
func (m *MockModel) Generate(_ context.Context, req Request) (<-chan Response, <-chan error) {
	respCh := make(chan Response, 16)
	errCh := make(chan error, 1)

	m.mu.Lock()
	req.Messages = core.CloneMessages(req.Messages)
	m.requests = append(m.requests, req)
	var next *scripted
	if len(m.script) > 0 {
		s := m.script[0]
		m.script = m.script[1:]
		next = &s
	}
	usage := m.usage
	m.mu.Unlock()

	go func() {
		defer close(respCh)
		defer close(errCh)

		if next != nil && next.err != nil {
			errCh <- next.err
			return
		}
		if len(req.Messages) == 0 {
			errCh <- fmt.Errorf("no messages provided")
			return
		}

		var full string
		if next != nil {
			full = next.text
		} else {
			inputText := req.Messages[len(req.Messages)-1].Content
			m.mu.Lock()
			canned, ok := m.responses[inputText]
			m.mu.Unlock()
			if ok {
				full = canned
			} else {
				full = fmt.Sprintf("Mock response to: %s", inputText)
			}
		}

		respCh <- Response{
			Partial:      false,
			Content:      full,
			FinishReason: "stop",
			Usage:        usage,
		}
	}()
	return respCh, errCh
}

// Info implements Model interface.
func (m *MockModel) Info() Info { return m.info }
