package proxy

import (
	"strings"
	"testing"

	"toolgate/pkg/proxy/types"
)

func sampleTools() []types.Tool {
	return []types.Tool{
		{
			Type: "function",
			Function: types.FunctionDefinition{
				Name:        "get_weather",
				Description: "Get the current weather for a city",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"city": map[string]interface{}{"type": "string"},
					},
					"required": []interface{}{"city"},
				},
			},
		},
		{
			Type: "function",
			Function: types.FunctionDefinition{
				Name:        "myecho",
				Description: "Echo the given text",
				Parameters: map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"text": map[string]interface{}{"type": "string"},
					},
				},
			},
		},
	}
}

func TestBuildToolPrompt_ContainsCatalog(t *testing.T) {
	prompt := BuildToolPrompt(sampleTools())

	for _, want := range []string{
		"## get_weather",
		"Description: Get the current weather for a city",
		"## myecho",
		"Description: Echo the given text",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
}

func TestBuildToolPrompt_ContainsContract(t *testing.T) {
	prompt := BuildToolPrompt(sampleTools())

	for _, want := range []string{
		"CRITICAL RULES FOR CALLING FUNCTIONS",
		"<function_call>",
		"</function_call>",
		"DO NOT call the function again",
	} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing contract text %q", want)
		}
	}
}

func TestBuildToolPrompt_CatalogBeforeContract(t *testing.T) {
	prompt := BuildToolPrompt(sampleTools())

	catalog := strings.Index(prompt, "## get_weather")
	contract := strings.Index(prompt, "CRITICAL RULES")
	if catalog < 0 || contract < 0 || catalog > contract {
		t.Errorf("catalog (at %d) should precede contract (at %d)", catalog, contract)
	}
}

func TestInjectToolPrompt_ReplacesFirstSystemMessage(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleSystem, Content: "original system"},
		{Role: types.RoleUser, Content: "hi"},
		{Role: types.RoleSystem, Content: "second system"},
	}

	got := InjectToolPrompt(messages, "tool prompt")

	if len(got) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(got))
	}
	if got[0].Content != "tool prompt" {
		t.Errorf("first system message not replaced: %q", got[0].Content)
	}
	if got[2].Content != "second system" {
		t.Errorf("later system message should be untouched: %q", got[2].Content)
	}
}

func TestInjectToolPrompt_InsertsWhenNoSystemMessage(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleUser, Content: "hi"},
	}

	got := InjectToolPrompt(messages, "tool prompt")

	if len(got) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(got))
	}
	if got[0].Role != types.RoleSystem || got[0].Content != "tool prompt" {
		t.Errorf("expected injected system message first, got %+v", got[0])
	}
	if got[1].Content != "hi" {
		t.Errorf("user message displaced: %+v", got[1])
	}
}

func TestInjectToolPrompt_DoesNotMutateInput(t *testing.T) {
	messages := []types.Message{
		{Role: types.RoleSystem, Content: "original"},
	}

	InjectToolPrompt(messages, "replacement")

	if messages[0].Content != "original" {
		t.Error("input slice was mutated")
	}
}
