package proxy

import (
	"bytes"
	"net/http/httptest"
	"strings"
	"testing"

	"toolgate/pkg/proxy/types"
)

func TestParseChatCompletionRequest_Valid(t *testing.T) {
	body := `{
		"model": "deepseek-chat",
		"messages": [{"role": "user", "content": "hello"}],
		"temperature": 0.5,
		"stream": true
	}`
	r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(body))

	req, err := ParseChatCompletionRequest(r)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if req.Model != "deepseek-chat" {
		t.Errorf("expected model deepseek-chat, got %q", req.Model)
	}
	if len(req.Messages) != 1 {
		t.Errorf("expected 1 message, got %d", len(req.Messages))
	}
	if req.Temperature == nil || *req.Temperature != 0.5 {
		t.Errorf("expected temperature 0.5, got %v", req.Temperature)
	}
	if !req.Stream {
		t.Error("expected stream true")
	}
}

func TestParseChatCompletionRequest_EmptyContentAllowed(t *testing.T) {
	// Content may be empty or null for every role except tool; only tool
	// messages must carry a result.
	body := `{
		"model": "deepseek-chat",
		"messages": [
			{"role": "system", "content": ""},
			{"role": "user", "content": null},
			{"role": "assistant", "content": ""},
			{"role": "user", "content": "hi"}
		]
	}`
	r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(body))

	if _, err := ParseChatCompletionRequest(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestParseChatCompletionRequest_InvalidJSON(t *testing.T) {
	r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader("{not json"))

	_, err := ParseChatCompletionRequest(r)
	if err == nil {
		t.Fatal("expected error")
	}

	reqErr, ok := err.(*RequestError)
	if !ok {
		t.Fatalf("expected *RequestError, got %T", err)
	}
	if reqErr.Code != types.CodeInvalidJSON {
		t.Errorf("expected code %q, got %q", types.CodeInvalidJSON, reqErr.Code)
	}
}

func TestParseChatCompletionRequest_ValidationFailures(t *testing.T) {
	tests := []struct {
		name      string
		body      string
		wantParam string
	}{
		{
			name:      "missing model",
			body:      `{"messages": [{"role": "user", "content": "hi"}]}`,
			wantParam: "model",
		},
		{
			name:      "empty messages",
			body:      `{"model": "m", "messages": []}`,
			wantParam: "messages",
		},
		{
			name:      "temperature out of range",
			body:      `{"model": "m", "messages": [{"role": "user", "content": "hi"}], "temperature": 3.0}`,
			wantParam: "temperature",
		},
		{
			name:      "unknown role",
			body:      `{"model": "m", "messages": [{"role": "wizard", "content": "hi"}]}`,
			wantParam: "messages[0].role",
		},
		{
			name:      "tool message without name",
			body:      `{"model": "m", "messages": [{"role": "tool", "content": "42"}]}`,
			wantParam: "messages[0].name",
		},
		{
			name:      "tool without function name",
			body:      `{"model": "m", "messages": [{"role": "user", "content": "hi"}], "tools": [{"type": "function", "function": {}}]}`,
			wantParam: "tools[0].function.name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("POST", "/v1/chat/completions", strings.NewReader(tt.body))

			_, err := ParseChatCompletionRequest(r)
			if err == nil {
				t.Fatal("expected validation error")
			}

			reqErr, ok := err.(*RequestError)
			if !ok {
				t.Fatalf("expected *RequestError, got %T", err)
			}
			if reqErr.Code != types.CodeInvalidValue {
				t.Errorf("expected code %q, got %q", types.CodeInvalidValue, reqErr.Code)
			}
			if reqErr.Param != tt.wantParam {
				t.Errorf("expected param %q, got %q", tt.wantParam, reqErr.Param)
			}
		})
	}
}

func TestParseChatCompletionRequest_BodyTooLarge(t *testing.T) {
	big := bytes.Repeat([]byte("a"), MaxRequestBodySize+1)
	r := httptest.NewRequest("POST", "/v1/chat/completions", bytes.NewReader(big))

	_, err := ParseChatCompletionRequest(r)
	if err == nil {
		t.Fatal("expected error")
	}

	reqErr, ok := err.(*RequestError)
	if !ok {
		t.Fatalf("expected *RequestError, got %T", err)
	}
	if reqErr.Code != types.CodeRequestTooLarge {
		t.Errorf("expected code %q, got %q", types.CodeRequestTooLarge, reqErr.Code)
	}
}

func TestRequestError_ToErrorResponse(t *testing.T) {
	reqErr := &RequestError{Message: "bad field", Code: types.CodeInvalidValue, Param: "model"}

	errResp := reqErr.ToErrorResponse()

	if errResp.Error.Type != types.ErrorTypeInvalidRequest {
		t.Errorf("expected invalid_request_error, got %q", errResp.Error.Type)
	}
	if errResp.Error.HTTPStatusCode() != 400 {
		t.Errorf("expected 400, got %d", errResp.Error.HTTPStatusCode())
	}
}
