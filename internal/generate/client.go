// Package generate implements the prompt-construction and
// document-assembly pipeline: dispatching per-unit prompts to the
// generation backend, normalizing its heterogeneous responses, assembling
// sanitized documents, and coordinating partial regenerations against a
// persisted document.
package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/quilldocs/quill/internal/providers"
	"github.com/quilldocs/quill/internal/types"
)

const (
	contentTemperature = 0.25
	rewriteTemperature = 0.3

	// placeholderSnippetLen bounds how much source text the placeholder
	// stub echoes back.
	placeholderSnippetLen = 120
)

// Warning markers surfaced in user-visible content. Generation failures
// never blank a document; they produce one of these.
const (
	warnPlaceholderFmt  = "⚠️ Placeholder for %s: %s"
	warnGenFailedFmt    = "⚠️ AI generation failed for %s"
	warnNoContentFmt    = "⚠️ No content generated for %s."
	warnCouldNotGenFmt  = "⚠️ Content could not be generated for %s."
	warnNoContentPlain  = "⚠️ No content"
	warnRewriteErrPlain = "⚠️ AI error"
)

// RawResponse is the unnormalized outcome of one generation call: the
// backend's textual output plus the echoed prompt provenance.
type RawResponse struct {
	Name            string
	Content         string
	GeneratedPrompt string
	PromptUsed      string
}

// Client wraps the generation backend with the pipeline's degradation
// policy. With no backend configured it operates in placeholder mode;
// with one configured, any transport or backend failure is converted to
// fallback content and logged. Complete never fails, so callers need no
// error-handling branches for it.
type Client struct {
	llm    providers.LLMClient
	logger *slog.Logger
}

// NewClient creates a generation client. A nil backend selects
// placeholder mode.
func NewClient(llm providers.LLMClient, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{llm: llm, logger: logger}
}

// PlaceholderMode reports whether the client has no backend configured.
func (c *Client) PlaceholderMode() bool {
	return c.llm == nil
}

// Complete generates content for one unit. role selects the system
// directive; the user message carries the unit name, its prompt, and the
// raw source text.
func (c *Client) Complete(ctx context.Context, role types.UnitRole, unitName, promptText, sourceText string) RawResponse {
	resp := RawResponse{
		Name:            unitName,
		GeneratedPrompt: promptText,
		PromptUsed:      promptText,
	}

	if c.llm == nil {
		resp.Content = fmt.Sprintf(warnPlaceholderFmt, unitName, snippet(sourceText))
		return resp
	}

	systemMsg := "You are a section generator. Return only the section content."
	if role == types.RolePage {
		systemMsg = "You are a page generator. Return only the page content."
	}

	userMsg, err := json.Marshal(map[string]string{
		"name":     unitName,
		"prompt":   promptText,
		"raw_text": sourceText,
	})
	if err != nil {
		// Marshal of a string map cannot fail; kept for the no-throw
		// contract.
		c.logger.Error("failed to encode generation request", "unit", unitName, "error", err)
		resp.Content = fmt.Sprintf(warnGenFailedFmt, unitName)
		return resp
	}

	result, err := c.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: systemMsg},
			{Role: "user", Content: string(userMsg)},
		},
		Temperature: contentTemperature,
	})
	if err != nil || result == nil || !result.Success {
		c.logger.Warn("generation failed, substituting fallback content",
			"role", role, "unit", unitName, "error", err)
		resp.Content = fmt.Sprintf(warnGenFailedFmt, unitName)
		return resp
	}

	resp.Content = result.Content
	return resp
}

// CompleteRewrite asks the backend to rewrite existing unit content under
// a user instruction, returning the raw response text. Like Complete it
// never fails: with no backend or on any backend error it returns a
// synthetic envelope whose content is the existing content annotated with
// the instruction.
func (c *Client) CompleteRewrite(ctx context.Context, role types.UnitRole, rawText, existingContent, userInstruction, basePrompt string) string {
	if c.llm == nil {
		return c.rewriteFallback(role, existingContent, userInstruction, basePrompt)
	}

	key := role.EnvelopeKey()
	systemMsg := fmt.Sprintf(
		"You are an assistant that rewrites document %s.\n"+
			"Rewrite ONLY the provided existing_content using raw_text as context.\n"+
			"Strictly apply the user_instruction.\n"+
			"Return valid JSON with a top-level key '%s'.\n"+
			"Each %s must include: name, content, prompt_used, generated_prompt.",
		strings.ToUpper(key), key, strings.TrimSuffix(key, "s"))

	userMsg, err := json.Marshal(map[string]string{
		"raw_text":         rawText,
		"existing_content": existingContent,
		"user_instruction": userInstruction,
		"base_prompt":      basePrompt,
	})
	if err != nil {
		c.logger.Error("failed to encode rewrite request", "error", err)
		return c.rewriteFallback(role, existingContent, userInstruction, basePrompt)
	}

	result, err := c.llm.Chat(ctx, &providers.ChatRequest{
		Messages: []providers.Message{
			{Role: "system", Content: systemMsg},
			{Role: "user", Content: string(userMsg)},
		},
		Temperature: rewriteTemperature,
	})
	if err != nil || result == nil || !result.Success {
		c.logger.Warn("rewrite failed, substituting prior content",
			"role", role, "error", err)
		return c.rewriteFallback(role, existingContent, userInstruction, basePrompt)
	}

	return strings.TrimSpace(result.Content)
}

// rewriteFallback builds the degraded rewrite envelope: prior content
// annotated with the instruction, never empty.
func (c *Client) rewriteFallback(role types.UnitRole, existingContent, userInstruction, basePrompt string) string {
	content := existingContent
	if content == "" {
		content = warnRewriteErrPlain
	}
	name := "Regenerated Section"
	if role == types.RolePage {
		name = "Regenerated Page"
	}
	envelope := map[string]any{
		role.EnvelopeKey(): []map[string]any{{
			"name":             name,
			"content":          fmt.Sprintf("%s (modified with %s)", content, userInstruction),
			"prompt_used":      basePrompt + " + " + userInstruction,
			"generated_prompt": basePrompt,
		}},
	}
	data, _ := json.Marshal(envelope)
	return string(data)
}

func snippet(sourceText string) string {
	s := strings.ReplaceAll(sourceText, "\n", " ")
	// Truncate by rune so a multibyte character is never split.
	if runes := []rune(s); len(runes) > placeholderSnippetLen {
		s = string(runes[:placeholderSnippetLen])
	}
	return s
}
