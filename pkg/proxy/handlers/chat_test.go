package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"toolgate/pkg/config"
	"toolgate/pkg/proxy/middleware"
	"toolgate/pkg/proxy/types"
	"toolgate/pkg/telemetry/metrics"
	"toolgate/pkg/upstream"
)

func testDefaults() config.GenerationDefaults {
	return config.GenerationDefaults{Temperature: 0.7, MaxTokens: 2000}
}

func newTestHandler(upstreamURL string) *ChatHandler {
	client := upstream.New(config.UpstreamConfig{
		BaseURL: upstreamURL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
	return NewChatHandler(client, testDefaults(), nil)
}

// upstreamStub records the body it received and replies with the given
// completion content.
func upstreamStub(t *testing.T, content string, received *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		if received != nil {
			var decoded map[string]interface{}
			if err := json.Unmarshal(body, &decoded); err != nil {
				t.Errorf("upstream body not decodable: %v", err)
			}
			*received = decoded
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(types.ChatCompletionResponse{
			ID:      "chatcmpl-1",
			Object:  "chat.completion",
			Created: 1700000000,
			Model:   "deepseek-chat",
			Choices: []types.Choice{
				{Message: types.Message{Role: types.RoleAssistant, Content: content}, FinishReason: "stop"},
			},
			Usage: &types.Usage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
		})
	}))
}

func doChat(h *ChatHandler, body string) *httptest.ResponseRecorder {
	r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, r)
	return rec
}

func TestChatHandler_PlainCompletion(t *testing.T) {
	var received map[string]interface{}
	srv := upstreamStub(t, "Hello there!", &received)
	defer srv.Close()

	rec := doChat(newTestHandler(srv.URL), `{
		"model": "deepseek-chat",
		"messages": [{"role": "user", "content": "hello"}]
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not decodable: %v", err)
	}
	if resp.Choices[0].Message.Content != "Hello there!" {
		t.Errorf("unexpected content %q", resp.Choices[0].Message.Content)
	}
	if resp.Choices[0].FinishReason != "stop" {
		t.Errorf("unexpected finish_reason %q", resp.Choices[0].FinishReason)
	}

	// Sampling defaults fill in for omitted fields.
	if received["temperature"] != 0.7 {
		t.Errorf("expected default temperature forwarded, got %v", received["temperature"])
	}
	if received["max_tokens"] != float64(2000) {
		t.Errorf("expected default max_tokens forwarded, got %v", received["max_tokens"])
	}
}

func TestChatHandler_ToolCallExtraction(t *testing.T) {
	var received map[string]interface{}
	srv := upstreamStub(t, `<function_call>
{"name": "get_weather", "arguments": {"city": "Beijing"}}
</function_call>`, &received)
	defer srv.Close()

	rec := doChat(newTestHandler(srv.URL), `{
		"model": "deepseek-chat",
		"messages": [{"role": "user", "content": "What's the weather in Beijing?"}],
		"tools": [{"type": "function", "function": {"name": "get_weather", "description": "Get weather", "parameters": {"type": "object"}}}]
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not decodable: %v", err)
	}

	choice := resp.Choices[0]
	if choice.FinishReason != types.FinishReasonToolCalls {
		t.Errorf("expected finish_reason tool_calls, got %q", choice.FinishReason)
	}
	if choice.Message.Content != "" {
		t.Errorf("expected content cleared, got %q", choice.Message.Content)
	}
	if len(choice.Message.ToolCalls) != 1 {
		t.Fatalf("expected 1 tool call, got %d", len(choice.Message.ToolCalls))
	}
	if choice.Message.ToolCalls[0].Function.Name != "get_weather" {
		t.Errorf("unexpected call name %q", choice.Message.ToolCalls[0].Function.Name)
	}

	// The tool catalog is compiled into the system prompt, never forwarded.
	if _, ok := received["tools"]; ok {
		t.Error("tools field must not reach the upstream")
	}
	messages := received["messages"].([]interface{})
	first := messages[0].(map[string]interface{})
	if first["role"] != "system" {
		t.Fatalf("expected injected system message first, got %v", first["role"])
	}
	if !strings.Contains(first["content"].(string), "get_weather") {
		t.Error("system prompt missing tool catalog")
	}
	if !strings.Contains(first["content"].(string), "CRITICAL RULES") {
		t.Error("system prompt missing call contract")
	}
}

func TestChatHandler_ToolsForceBufferedOnFirstTurn(t *testing.T) {
	srv := upstreamStub(t, "plain text answer", nil)
	defer srv.Close()

	rec := doChat(newTestHandler(srv.URL), `{
		"model": "deepseek-chat",
		"messages": [{"role": "user", "content": "hi"}],
		"tools": [{"type": "function", "function": {"name": "f", "parameters": {}}}],
		"stream": true
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("expected buffered JSON response, got Content-Type %q", ct)
	}

	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("expected complete JSON body, got: %v", err)
	}
	if resp.Choices[0].Message.Content != "plain text answer" {
		t.Errorf("unexpected content %q", resp.Choices[0].Message.Content)
	}
}

func TestChatHandler_StreamRelay(t *testing.T) {
	chunks := "data: {\"id\":\"chatcmpl-1\"}\n\ndata: [DONE]\n\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)
		if body["stream"] != true {
			t.Errorf("expected stream true upstream, got %v", body["stream"])
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, chunks)
	}))
	defer srv.Close()

	rec := doChat(newTestHandler(srv.URL), `{
		"model": "deepseek-chat",
		"messages": [{"role": "user", "content": "hi"}],
		"stream": true
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("expected SSE Content-Type, got %q", ct)
	}
	if rec.Body.String() != chunks {
		t.Errorf("stream altered:\nwant %q\ngot  %q", chunks, rec.Body.String())
	}
}

func TestChatHandler_FollowUpTurnStreams(t *testing.T) {
	chunks := "data: [DONE]\n\n"
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		json.NewDecoder(r.Body).Decode(&body)

		// The tool result must arrive rewritten as a user message.
		messages := body["messages"].([]interface{})
		var sawToolRole bool
		var sawRewritten bool
		for _, m := range messages {
			msg := m.(map[string]interface{})
			if msg["role"] == "tool" {
				sawToolRole = true
			}
			if content, ok := msg["content"].(string); ok && strings.HasPrefix(content, "Function get_weather returned:") {
				sawRewritten = true
			}
		}
		if sawToolRole {
			t.Error("tool role must not reach the upstream")
		}
		if !sawRewritten {
			t.Error("expected rewritten tool result in upstream history")
		}

		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, chunks)
	}))
	defer srv.Close()

	rec := doChat(newTestHandler(srv.URL), `{
		"model": "deepseek-chat",
		"messages": [
			{"role": "user", "content": "What's the weather in Beijing?"},
			{"role": "assistant", "tool_calls": [{"id": "call_1", "type": "function", "function": {"name": "get_weather", "arguments": "{\"city\":\"Beijing\"}"}}]},
			{"role": "tool", "name": "get_weather", "content": "{\"temp\": 25}", "tool_call_id": "call_1"}
		],
		"tools": [{"type": "function", "function": {"name": "get_weather", "parameters": {}}}],
		"stream": true
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("follow-up turn should stream, got Content-Type %q", ct)
	}
}

func TestChatHandler_MidStreamFailureAbortsClient(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			t.Error("response writer not flushable")
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		io.WriteString(w, "data: first\n\n")
		flusher.Flush()

		// Kill the connection without a terminating chunk.
		hj, ok := w.(http.Hijacker)
		if !ok {
			t.Error("response writer not hijackable")
			return
		}
		conn, _, err := hj.Hijack()
		if err != nil {
			t.Errorf("hijack failed: %v", err)
			return
		}
		conn.Close()
	}))
	defer up.Close()

	front := httptest.NewServer(middleware.Recovery(newTestHandler(up.URL)))
	defer front.Close()

	resp, err := http.Post(front.URL+"/v1/chat/completions", "application/json", strings.NewReader(`{
		"model": "deepseek-chat",
		"messages": [{"role": "user", "content": "hi"}],
		"stream": true
	}`))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	got, readErr := io.ReadAll(resp.Body)
	if !strings.Contains(string(got), "data: first") {
		t.Errorf("expected the chunk relayed before the failure, got %q", got)
	}
	// A truncated upstream must not look like a complete stream.
	if readErr == nil {
		t.Error("expected the client read to fail, got a clean end of stream")
	}
}

func TestChatHandler_RecordsStreamFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	client := upstream.New(config.UpstreamConfig{
		BaseURL: srv.URL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
	collector := metrics.NewCollector("toolgate_test")
	h := NewChatHandler(client, testDefaults(), collector)

	rec := doChat(h, `{
		"model": "deepseek-chat",
		"messages": [{"role": "user", "content": "hi"}],
		"stream": true
	}`)
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	metricsRec := httptest.NewRecorder()
	collector.Handler().ServeHTTP(metricsRec, httptest.NewRequest("GET", "/metrics", nil))
	exposition := metricsRec.Body.String()
	if !strings.Contains(exposition, `status="502"`) {
		t.Error("expected the failed relay recorded under its real status")
	}
	if strings.Contains(exposition, `status="200"`) {
		t.Error("failed relay must not be recorded as a success")
	}
}

func TestChatHandler_NoMarkupPassesThrough(t *testing.T) {
	srv := upstreamStub(t, "I don't need a function for that.", nil)
	defer srv.Close()

	rec := doChat(newTestHandler(srv.URL), `{
		"model": "deepseek-chat",
		"messages": [{"role": "user", "content": "hi"}],
		"tools": [{"type": "function", "function": {"name": "f", "parameters": {}}}]
	}`)

	var resp types.ChatCompletionResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("response not decodable: %v", err)
	}

	choice := resp.Choices[0]
	if choice.Message.Content != "I don't need a function for that." {
		t.Errorf("content should pass through, got %q", choice.Message.Content)
	}
	if len(choice.Message.ToolCalls) != 0 {
		t.Errorf("expected no tool calls, got %d", len(choice.Message.ToolCalls))
	}
	if choice.FinishReason != types.FinishReasonStop {
		t.Errorf("expected finish_reason stop, got %q", choice.FinishReason)
	}
}

func TestChatHandler_UpstreamFailureMapsTo502(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		w.Write([]byte("upstream down"))
	}))
	defer srv.Close()

	rec := doChat(newTestHandler(srv.URL), `{
		"model": "deepseek-chat",
		"messages": [{"role": "user", "content": "hi"}]
	}`)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("expected 502, got %d", rec.Code)
	}

	var errResp types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("expected error envelope: %v", err)
	}
	if errResp.Error.Type != types.ErrorTypeBadGateway {
		t.Errorf("expected bad_gateway, got %q", errResp.Error.Type)
	}
}

func TestChatHandler_InvalidRequestMapsTo400(t *testing.T) {
	srv := upstreamStub(t, "never called", nil)
	defer srv.Close()

	rec := doChat(newTestHandler(srv.URL), `{"model": "", "messages": []}`)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}

	var errResp types.ErrorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &errResp); err != nil {
		t.Fatalf("expected error envelope: %v", err)
	}
	if errResp.Error.Type != types.ErrorTypeInvalidRequest {
		t.Errorf("expected invalid_request_error, got %q", errResp.Error.Type)
	}
}

func TestChatHandler_MethodNotAllowed(t *testing.T) {
	srv := upstreamStub(t, "never called", nil)
	defer srv.Close()

	r := httptest.NewRequest("GET", "/v1/chat/completions", nil)
	rec := httptest.NewRecorder()
	newTestHandler(srv.URL).ServeHTTP(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestChatHandler_ClientSamplingOverridesDefaults(t *testing.T) {
	var received map[string]interface{}
	srv := upstreamStub(t, "ok", &received)
	defer srv.Close()

	rec := doChat(newTestHandler(srv.URL), `{
		"model": "deepseek-chat",
		"messages": [{"role": "user", "content": "hi"}],
		"temperature": 0.1,
		"max_tokens": 50
	}`)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if received["temperature"] != 0.1 {
		t.Errorf("expected client temperature forwarded, got %v", received["temperature"])
	}
	if received["max_tokens"] != float64(50) {
		t.Errorf("expected client max_tokens forwarded, got %v", received["max_tokens"])
	}
}
