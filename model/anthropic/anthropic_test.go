package anthropic

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tathagata1/Pipegent/core"
	"github.com/tathagata1/Pipegent/model"
)

type fakeTransport struct {
	status   int
	body     string
	captured []byte
	calls    int
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.calls++
	b, _ := io.ReadAll(req.Body)
	_ = req.Body.Close()
	f.captured = b
	resp := &http.Response{
		StatusCode: f.status,
		Body:       io.NopCloser(bytes.NewReader([]byte(f.body))),
		Header:     make(http.Header),
		Request:    req,
	}
	resp.Header.Set("Content-Type", "application/json")
	return resp, nil
}

func newTestModel(rt http.RoundTripper) *Model {
	return NewModel(func(o *Options) {
		o.Model = "claude-test"
		o.APIKey = "test-key"
		o.RequestOptions = []option.RequestOption{option.WithHTTPClient(&http.Client{Transport: rt})}
	})
}

type sentBody struct {
	Model  string `json:"model"`
	System []struct {
		Text string `json:"text"`
	} `json:"system"`
	Messages []struct {
		Role    string `json:"role"`
		Content []struct {
			Type string `json:"type"`
			Text string `json:"text"`
		} `json:"content"`
	} `json:"messages"`
}

func TestGenerate(t *testing.T) {
	rt := &fakeTransport{status: 200, body: `{
		"id": "msg_1",
		"type": "message",
		"role": "assistant",
		"model": "claude-test",
		"content": [{"type": "text", "text": "{\"tool\": "}, {"type": "text", "text": "\"speech\"}"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 4, "output_tokens": 6}
	}`}
	m := newTestModel(rt)

	resp, err := model.CompleteResponse(context.Background(), m, model.Request{Messages: []core.Message{
		core.SystemMessage("be terse"),
		core.UserMessage("first"),
		core.UserMessage("second"),
		core.AssistantMessage("reply"),
	}})
	require.NoError(t, err)
	assert.Equal(t, `{"tool": "speech"}`, resp.Content)
	assert.Equal(t, 10, resp.TotalTokens())

	var sent sentBody
	require.NoError(t, json.Unmarshal(rt.captured, &sent))
	assert.Equal(t, "claude-test", sent.Model)
	require.Len(t, sent.System, 1)
	assert.Equal(t, "be terse", sent.System[0].Text)
	require.Len(t, sent.Messages, 2)
	assert.Equal(t, "user", sent.Messages[0].Role)
	require.Len(t, sent.Messages[0].Content, 2)
	assert.Equal(t, "second", sent.Messages[0].Content[1].Text)
	assert.Equal(t, "assistant", sent.Messages[1].Role)
}

func TestGenerate_APIError(t *testing.T) {
	rt := &fakeTransport{status: 400, body: `{"type":"error","error":{"type":"invalid_request_error","message":"bad"}}`}
	m := newTestModel(rt)

	_, err := model.Complete(context.Background(), m, model.Request{Messages: []core.Message{core.UserMessage("hi")}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic api error")
	assert.Equal(t, 1, rt.calls)
}

func TestInfo(t *testing.T) {
	m := newTestModel(&fakeTransport{})
	assert.Equal(t, model.Info{Name: "claude-test", Provider: "anthropic"}, m.Info())
}
