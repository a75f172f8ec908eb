package generate

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/quilldocs/quill/internal/providers"
	"github.com/quilldocs/quill/internal/types"
)

func TestClientPlaceholderMode(t *testing.T) {
	client := NewClient(nil, nil)

	if !client.PlaceholderMode() {
		t.Fatal("expected placeholder mode with nil backend")
	}

	t.Run("stub content echoes a source snippet", func(t *testing.T) {
		resp := client.Complete(context.Background(), types.RoleSection, "Scope", "do the thing", "line one\nline two")
		want := "⚠️ Placeholder for Scope: line one line two"
		if resp.Content != want {
			t.Errorf("content = %q, want %q", resp.Content, want)
		}
		if resp.PromptUsed != "do the thing" || resp.GeneratedPrompt != "do the thing" {
			t.Errorf("prompt provenance not echoed: used=%q generated=%q", resp.PromptUsed, resp.GeneratedPrompt)
		}
	})

	t.Run("snippet is capped at 120 characters", func(t *testing.T) {
		long := strings.Repeat("a", 500)
		resp := client.Complete(context.Background(), types.RoleSection, "Scope", "p", long)
		wantSuffix := strings.Repeat("a", placeholderSnippetLen)
		if !strings.HasSuffix(resp.Content, wantSuffix) {
			t.Errorf("snippet not truncated: %q", resp.Content)
		}
		if strings.Contains(resp.Content, strings.Repeat("a", placeholderSnippetLen+1)) {
			t.Errorf("snippet longer than %d chars", placeholderSnippetLen)
		}
	})

	t.Run("snippet truncation never splits a multibyte rune", func(t *testing.T) {
		long := strings.Repeat("ü", 500)
		resp := client.Complete(context.Background(), types.RoleSection, "Scope", "p", long)
		if !utf8.ValidString(resp.Content) {
			t.Fatalf("content is not valid UTF-8: %q", resp.Content)
		}
		if !strings.HasSuffix(resp.Content, strings.Repeat("ü", placeholderSnippetLen)) {
			t.Errorf("snippet not %d characters: %q", placeholderSnippetLen, resp.Content)
		}
	})
}

func TestClientComplete(t *testing.T) {
	t.Run("success returns backend content", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "generated html"
		client := NewClient(mock, nil)

		resp := client.Complete(context.Background(), types.RoleSection, "Scope", "the prompt", "raw")
		if resp.Content != "generated html" {
			t.Errorf("content = %q", resp.Content)
		}

		req := mock.LastRequest()
		if req == nil {
			t.Fatal("no request recorded")
		}
		if req.Temperature != contentTemperature {
			t.Errorf("temperature = %v, want %v", req.Temperature, contentTemperature)
		}
		if len(req.Messages) != 2 {
			t.Fatalf("got %d messages, want 2", len(req.Messages))
		}
		if !strings.Contains(req.Messages[0].Content, "section generator") {
			t.Errorf("system message = %q", req.Messages[0].Content)
		}

		var userMsg map[string]string
		if err := json.Unmarshal([]byte(req.Messages[1].Content), &userMsg); err != nil {
			t.Fatalf("user message is not JSON: %v", err)
		}
		if userMsg["name"] != "Scope" || userMsg["prompt"] != "the prompt" || userMsg["raw_text"] != "raw" {
			t.Errorf("user message = %v", userMsg)
		}
	})

	t.Run("page role selects page directive", func(t *testing.T) {
		mock := providers.NewMockClient()
		client := NewClient(mock, nil)

		client.Complete(context.Background(), types.RolePage, "Cover", "p", "raw")
		if !strings.Contains(mock.LastRequest().Messages[0].Content, "page generator") {
			t.Errorf("system message = %q", mock.LastRequest().Messages[0].Content)
		}
	})

	t.Run("backend failure degrades to warning content", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ShouldFail = true
		client := NewClient(mock, nil)

		resp := client.Complete(context.Background(), types.RoleSection, "Scope", "p", "raw")
		if resp.Content != "⚠️ AI generation failed for Scope" {
			t.Errorf("content = %q", resp.Content)
		}
		if resp.PromptUsed != "p" {
			t.Errorf("prompt provenance lost on failure: %q", resp.PromptUsed)
		}
	})
}

func TestClientCompleteRewrite(t *testing.T) {
	t.Run("no backend yields annotated fallback envelope", func(t *testing.T) {
		client := NewClient(nil, nil)

		raw := client.CompleteRewrite(context.Background(), types.RoleSection, "raw", "old text", "make it shorter", "base prompt")

		parsed, ok := ParseEnvelope(raw, "sections")
		if !ok {
			t.Fatalf("fallback is not valid JSON: %q", raw)
		}
		res := CoerceUnitResult(parsed, "sections", "")
		content, _ := res.ContentString()
		if content != "old text (modified with make it shorter)" {
			t.Errorf("content = %q", content)
		}
		if res.PromptUsed != "base prompt + make it shorter" {
			t.Errorf("prompt_used = %q", res.PromptUsed)
		}
		if res.GeneratedPrompt != "base prompt" {
			t.Errorf("generated_prompt = %q", res.GeneratedPrompt)
		}
	})

	t.Run("backend failure yields the same fallback", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ShouldFail = true
		client := NewClient(mock, nil)

		raw := client.CompleteRewrite(context.Background(), types.RolePage, "raw", "old", "tweak", "base")
		parsed, ok := ParseEnvelope(raw, "pages")
		if !ok {
			t.Fatalf("fallback is not valid JSON: %q", raw)
		}
		res := CoerceUnitResult(parsed, "pages", "")
		if content, _ := res.ContentString(); content != "old (modified with tweak)" {
			t.Errorf("content = %q", content)
		}
	})

	t.Run("request carries rewrite fields and temperature", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = `{"sections":[{"name":"S","content":"new"}]}`
		client := NewClient(mock, nil)

		client.CompleteRewrite(context.Background(), types.RoleSection, "raw", "old", "tweak", "base")

		req := mock.LastRequest()
		if req.Temperature != rewriteTemperature {
			t.Errorf("temperature = %v, want %v", req.Temperature, rewriteTemperature)
		}
		if !strings.Contains(req.Messages[0].Content, "'sections'") {
			t.Errorf("system message = %q", req.Messages[0].Content)
		}
		var userMsg map[string]string
		if err := json.Unmarshal([]byte(req.Messages[1].Content), &userMsg); err != nil {
			t.Fatalf("user message is not JSON: %v", err)
		}
		if userMsg["existing_content"] != "old" || userMsg["user_instruction"] != "tweak" || userMsg["base_prompt"] != "base" {
			t.Errorf("user message = %v", userMsg)
		}
	})

	t.Run("empty existing content never produces an empty fallback", func(t *testing.T) {
		client := NewClient(nil, nil)

		raw := client.CompleteRewrite(context.Background(), types.RoleSection, "raw", "", "tweak", "base")
		parsed, _ := ParseEnvelope(raw, "sections")
		res := CoerceUnitResult(parsed, "sections", "")
		content, _ := res.ContentString()
		if !strings.HasPrefix(content, "⚠️ AI error") {
			t.Errorf("content = %q", content)
		}
	})
}
