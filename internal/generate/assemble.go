package generate

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/quilldocs/quill/internal/prompt"
	"github.com/quilldocs/quill/internal/types"
)

// DefaultTitle is used when neither the assembled response nor the
// template names the document.
const DefaultTitle = "Generated Document"

// Assembler orchestrates prompt building, generation, and normalization
// across an ordered unit configuration to produce a full document.
type Assembler struct {
	client *Client
	logger *slog.Logger
}

// NewAssembler creates an assembler over the given generation client.
func NewAssembler(client *Client, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Assembler{client: client, logger: logger}
}

// Assemble generates a document from the configured pages and sections,
// in caller order. The result always mirrors the input configuration:
// exactly one result per configured unit with non-empty content. Assemble
// never fails; if anything goes wrong past recovery it returns the
// minimal fallback document with placeholder content per unit.
func (a *Assembler) Assemble(ctx context.Context, templateTitle, sourceText string, pageConfigs, sectionConfigs []types.UnitConfig) (doc types.DocumentRecord) {
	defer func() {
		if r := recover(); r != nil {
			a.logger.Error("document assembly panicked, returning fallback document", "panic", r)
			doc = a.fallbackDocument(pageConfigs, sectionConfigs)
		}
	}()

	doc = types.DocumentRecord{
		Title:    templateTitle,
		Pages:    a.processUnits(ctx, types.RolePage, sourceText, pageConfigs),
		Sections: a.processUnits(ctx, types.RoleSection, sourceText, sectionConfigs),
	}
	a.sanitize(&doc, templateTitle, pageConfigs, sectionConfigs)
	return doc
}

// processUnits runs one generation round per configured unit, strictly in
// the caller's declared order.
func (a *Assembler) processUnits(ctx context.Context, role types.UnitRole, sourceText string, configs []types.UnitConfig) []types.UnitResult {
	out := make([]types.UnitResult, 0, len(configs))
	for _, cfg := range configs {
		cfg.Role = role

		promptToUse := cfg.EditablePrompt
		if promptToUse == "" {
			promptToUse = cfg.GeneratedPrompt
		}
		if promptToUse == "" {
			promptToUse = prompt.Build(cfg)
		}

		raw := a.client.Complete(ctx, role, cfg.Name, promptToUse, sourceText)
		result := normalizeRaw(raw, role)
		merged := mergeUnit(cfg, result)

		if role == types.RoleSection {
			if s, ok := merged.ContentString(); ok {
				merged.Content = strings.TrimSpace(StripLeadingHeading(s, false))
			}
		}

		merged.PromptLastUpdatedAt = nowISO()
		out = append(out, merged)
	}
	return out
}

// normalizeRaw coerces a raw backend response into a UnitResult. The
// prompt provenance always reflects what was actually sent, regardless of
// what the backend claims.
func normalizeRaw(raw RawResponse, role types.UnitRole) types.UnitResult {
	key := role.EnvelopeKey()

	var result types.UnitResult
	if parsed, ok := ParseEnvelope(raw.Content, key); ok {
		result = CoerceUnitResult(parsed, key, raw.PromptUsed)
	} else {
		result = types.UnitResult{Content: raw.Content}
	}

	result.Name = raw.Name
	result.GeneratedPrompt = raw.GeneratedPrompt
	result.PromptUsed = raw.PromptUsed
	return result
}

// mergeUnit overlays a generation result onto its configuration. The
// precedence is explicit: result content and provenance win when present,
// every descriptive field comes from the configuration.
func mergeUnit(cfg types.UnitConfig, res types.UnitResult) types.UnitResult {
	merged := types.UnitResult{
		Name:            cfg.Name,
		Sequence:        cfg.Sequence,
		Role:            cfg.Role,
		Kind:            cfg.Kind,
		Layout:          cfg.Layout,
		StyleTone:       cfg.StyleTone,
		FormattingRules: cfg.FormattingRules,
		LengthHint:      cfg.LengthHint,
		SampleOutput:    cfg.SampleOutput,
		AuthorRole:      cfg.AuthorRole,
		Instruction:     cfg.Instruction,
		Purpose:         cfg.Purpose,
		Notes:           cfg.Notes,

		Content: res.Content,

		GeneratedPrompt:     cfg.GeneratedPrompt,
		EditablePrompt:      cfg.EditablePrompt,
		PromptUsed:          cfg.PromptUsed,
		PromptLastUpdatedAt: cfg.PromptLastUpdatedAt,
		ManuallyEdited:      cfg.ManuallyEdited,
	}
	if res.Name != "" {
		merged.Name = res.Name
	}
	if res.GeneratedPrompt != "" {
		merged.GeneratedPrompt = res.GeneratedPrompt
	}
	if res.PromptUsed != "" {
		merged.PromptUsed = res.PromptUsed
	}
	if res.PromptLastUpdatedAt != "" {
		merged.PromptLastUpdatedAt = res.PromptLastUpdatedAt
	}
	return merged
}

// sanitize repairs the assembled document so its shape exactly mirrors
// the caller's configuration: strays filtered, gaps filled with
// placeholders, no empty content anywhere.
func (a *Assembler) sanitize(doc *types.DocumentRecord, templateTitle string, pageConfigs, sectionConfigs []types.UnitConfig) {
	if doc.Title == "" {
		if templateTitle != "" {
			doc.Title = templateTitle
		} else {
			doc.Title = DefaultTitle
		}
	}
	doc.Pages = sanitizeUnits(types.RolePage, doc.Pages, pageConfigs)
	doc.Sections = sanitizeUnits(types.RoleSection, doc.Sections, sectionConfigs)
}

func sanitizeUnits(role types.UnitRole, results []types.UnitResult, configs []types.UnitConfig) []types.UnitResult {
	valid := make(map[string]bool, len(configs))
	for _, cfg := range configs {
		valid[cfg.Name] = true
	}

	// Discard anything the generator invented that the caller never
	// configured.
	kept := results[:0]
	for _, r := range results {
		if valid[r.Name] {
			kept = append(kept, r)
		}
	}

	out := make([]types.UnitResult, 0, len(configs))
	for _, cfg := range configs {
		cfg.Role = role

		var match types.UnitResult
		found := false
		for _, r := range kept {
			if r.Name == cfg.Name {
				match = r
				found = true
				break
			}
		}

		merged := match
		if !found {
			merged = mergeUnit(cfg, types.UnitResult{})
		}

		if merged.GeneratedPrompt == "" {
			merged.GeneratedPrompt = prompt.Build(cfg)
		}
		if merged.PromptUsed == "" {
			merged.PromptUsed = merged.EditablePrompt
			if merged.PromptUsed == "" {
				merged.PromptUsed = merged.GeneratedPrompt
			}
		}

		merged.Content = sanitizeContent(role, cfg, merged.Content)
		merged.PromptLastUpdatedAt = nowISO()
		out = append(out, merged)
	}
	return out
}

// sanitizeContent guarantees non-empty, kind-appropriate content.
func sanitizeContent(role types.UnitRole, cfg types.UnitConfig, content any) any {
	if s, ok := content.(string); ok {
		if role == types.RoleSection {
			s = StripLeadingHeading(s, false)
		}
		s = strings.TrimSpace(s)
		if s == "" {
			return warnNoContent(cfg.Name, role)
		}
		return s
	}

	if !emptyContent(content) {
		return content
	}

	if role == types.RoleSection {
		switch cfg.Kind {
		case types.KindList:
			return []any{cfg.Name + " point 1", cfg.Name + " point 2"}
		case types.KindTable:
			return []any{map[string]any{"Column": "Example", "Value": "Sample"}}
		}
	}
	return warnNoContent(cfg.Name, role)
}

func warnNoContent(name string, role types.UnitRole) string {
	if name == "" {
		if role == types.RolePage {
			name = "Page"
		} else {
			name = "Section"
		}
	}
	return strings.ReplaceAll(warnNoContentFmt, "%s", name)
}

func emptyContent(content any) bool {
	switch v := content.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(v) == ""
	case []any:
		return len(v) == 0
	case map[string]any:
		return len(v) == 0
	default:
		return false
	}
}

// fallbackDocument is the last-resort shape: one placeholder-content
// result per configured unit with freshly built prompts.
func (a *Assembler) fallbackDocument(pageConfigs, sectionConfigs []types.UnitConfig) types.DocumentRecord {
	doc := types.DocumentRecord{
		Title:    DefaultTitle,
		Pages:    make([]types.UnitResult, 0, len(pageConfigs)),
		Sections: make([]types.UnitResult, 0, len(sectionConfigs)),
	}
	for _, cfg := range pageConfigs {
		cfg.Role = types.RolePage
		doc.Pages = append(doc.Pages, fallbackUnit(cfg))
	}
	for _, cfg := range sectionConfigs {
		cfg.Role = types.RoleSection
		doc.Sections = append(doc.Sections, fallbackUnit(cfg))
	}
	return doc
}

func fallbackUnit(cfg types.UnitConfig) types.UnitResult {
	built := prompt.Build(cfg)
	merged := mergeUnit(cfg, types.UnitResult{})
	merged.GeneratedPrompt = built
	merged.PromptUsed = built
	merged.Content = strings.ReplaceAll(warnCouldNotGenFmt, "%s", merged.Name)
	merged.PromptLastUpdatedAt = nowISO()
	return merged
}

func nowISO() string {
	return time.Now().UTC().Format(time.RFC3339)
}
