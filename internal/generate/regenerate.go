package generate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/quilldocs/quill/internal/prompt"
	"github.com/quilldocs/quill/internal/types"
)

// documentSchema is the structural contract a regenerated document must
// satisfy before it replaces the persisted one.
var documentSchema = jsonschema.MustCompileString("document.json", `{
	"type": "object",
	"required": ["title", "pages", "sections"],
	"properties": {
		"title": {"type": "string", "minLength": 1},
		"pages": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "content"],
				"properties": {"name": {"type": "string", "minLength": 1}}
			}
		},
		"sections": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["name", "content"],
				"properties": {"name": {"type": "string", "minLength": 1}}
			}
		}
	}
}`)

// ManualSave carries a user's manual edit to one unit. A nil Content
// leaves the stored content untouched; a non-empty EditablePrompt
// replaces the unit's prompt override.
type ManualSave struct {
	Content        any
	EditablePrompt string
}

// PromptOverrides maps unit names to replacement prompts for one
// whole-document regeneration. An override becomes the unit's editable
// prompt and is honored the same way a manual prompt edit is.
type PromptOverrides struct {
	Pages    map[string]string
	Sections map[string]string
}

// Coordinator applies partial and whole-document regenerations, and
// manual saves, against a persisted document. Per-unit regeneration is
// graceful and never fails past lookup; whole-document regeneration is
// strict and rejects a rebuilt document that fails validation.
type Coordinator struct {
	client    *Client
	assembler *Assembler
	logger    *slog.Logger
}

// NewCoordinator creates a regeneration coordinator over the given
// generation client.
func NewCoordinator(client *Client, logger *slog.Logger) *Coordinator {
	if logger == nil {
		logger = slog.Default()
	}
	return &Coordinator{
		client:    client,
		assembler: NewAssembler(client, logger),
		logger:    logger,
	}
}

// RegenerateUnit rewrites one unit under a user instruction and returns
// the updated result. It never fails: a backend error or unparseable
// response yields the prior content annotated with the instruction. The
// unit's identity (name, sequence, role, kind) is always preserved, and
// manually_edited is reset since the regenerated content supersedes any
// manual edit.
func (c *Coordinator) RegenerateUnit(ctx context.Context, role types.UnitRole, rawText string, existing types.UnitResult, userInstruction string) types.UnitResult {
	cfg := existing.Config()
	cfg.Role = role

	basePrompt := cfg.EditablePrompt
	if basePrompt == "" {
		basePrompt = cfg.GeneratedPrompt
	}
	if basePrompt == "" {
		basePrompt = prompt.Build(cfg)
	}

	existingContent := contentAsString(existing.Content)

	raw := c.client.CompleteRewrite(ctx, role, rawText, existingContent, userInstruction, basePrompt)

	key := role.EnvelopeKey()
	var res types.UnitResult
	if parsed, ok := ParseEnvelope(raw, key); ok {
		res = CoerceUnitResult(parsed, key, basePrompt)
	} else {
		// Plain text is a valid rewrite: the bare string becomes the
		// new content.
		res = CoerceUnitResult(raw, key, basePrompt)
	}
	if emptyContent(res.Content) {
		c.logger.Warn("unit regeneration yielded no usable content, annotating prior content",
			"role", role, "unit", existing.Name)
		res = types.UnitResult{
			Content:         fmt.Sprintf("%s (modified with %s)", nonEmpty(existingContent, warnNoContentPlain), userInstruction),
			PromptUsed:      basePrompt + " + " + userInstruction,
			GeneratedPrompt: basePrompt,
		}
	}

	merged := mergeUnit(cfg, res)
	merged.Name = existing.Name
	merged.Sequence = existing.Sequence
	merged.Role = role
	merged.Kind = existing.Kind

	if role == types.RoleSection {
		if s, ok := merged.ContentString(); ok {
			merged.Content = strings.TrimSpace(StripLeadingHeading(s, false))
		}
	}

	now := nowISO()
	merged.UserInstruction = userInstruction
	merged.LastRegeneratedAt = now
	merged.PromptLastUpdatedAt = now
	merged.ManuallyEdited = false
	return merged
}

// RegenerateUnitInDocument regenerates the named unit in place and bumps
// the document version. Only the lookup can fail.
func (c *Coordinator) RegenerateUnitInDocument(ctx context.Context, doc *types.DocumentRecord, role types.UnitRole, name, userInstruction string) error {
	unit := doc.FindUnit(role, name)
	if unit == nil {
		return fmt.Errorf("%w: %s %q", ErrUnitNotFound, role, name)
	}
	*unit = c.RegenerateUnit(ctx, role, doc.RawText, *unit, userInstruction)
	doc.Version++
	doc.UpdatedAt = nowISO()
	return nil
}

// RegenerateDocument rebuilds every unit of the document through a
// fresh assembly round. Each unit's prompt is recomputed first: a
// manually edited unit keeps its editable prompt as the one sent, every
// other unit gets a freshly built prompt. Content is regenerated for all
// units, edited or not; only prompt provenance is preserved. Unlike
// per-unit regeneration there is no graceful fallback: a rebuilt
// document that fails schema validation returns ErrMalformedDocument
// and leaves the document untouched.
func (c *Coordinator) RegenerateDocument(ctx context.Context, doc *types.DocumentRecord, overrides PromptOverrides) error {
	pageConfigs := regenConfigs(types.RolePage, doc.Pages, overrides.Pages)
	sectionConfigs := regenConfigs(types.RoleSection, doc.Sections, overrides.Sections)

	rebuilt := c.assembler.Assemble(ctx, doc.Title, doc.RawText, pageConfigs, sectionConfigs)

	candidate := *doc
	candidate.Title = rebuilt.Title
	candidate.Pages = rebuilt.Pages
	candidate.Sections = rebuilt.Sections
	if err := validateDocument(&candidate); err != nil {
		c.logger.Error("regenerated document failed validation", "document", doc.ID, "error", err)
		return fmt.Errorf("%w: %v", ErrMalformedDocument, err)
	}

	now := nowISO()
	stampRegenerated(candidate.Pages, now)
	stampRegenerated(candidate.Sections, now)

	doc.Title = candidate.Title
	doc.Pages = candidate.Pages
	doc.Sections = candidate.Sections
	doc.Version++
	doc.UpdatedAt = now
	return nil
}

// regenConfigs projects a persisted unit list back to configurations for
// a fresh assembly round, applying per-unit prompt overrides and then
// the prompt provenance rules.
func regenConfigs(role types.UnitRole, units []types.UnitResult, overrides map[string]string) []types.UnitConfig {
	cfgs := make([]types.UnitConfig, 0, len(units))
	for _, u := range units {
		cfg := u.Config()
		cfg.Role = role
		if override, ok := overrides[u.Name]; ok && strings.TrimSpace(override) != "" {
			cfg.EditablePrompt = override
			cfg.ManuallyEdited = true
		}
		cfgs = append(cfgs, cfg)
	}
	RefreshPromptProvenance(role, cfgs)
	return cfgs
}

// RefreshPromptProvenance applies the prompt rules ahead of an assembly
// round, in place. A manually edited unit keeps its editable prompt as
// the one to send; every other unit gets a freshly built prompt that
// also becomes its editable prompt and default prompt_used.
func RefreshPromptProvenance(role types.UnitRole, cfgs []types.UnitConfig) {
	now := nowISO()
	for i := range cfgs {
		cfgs[i].Role = role
		if cfgs[i].ManuallyEdited && cfgs[i].EditablePrompt != "" {
			cfgs[i].PromptUsed = cfgs[i].EditablePrompt
			cfgs[i].GeneratedPrompt = prompt.Build(cfgs[i])
			continue
		}
		built := prompt.Build(cfgs[i])
		cfgs[i].GeneratedPrompt = built
		cfgs[i].EditablePrompt = built
		cfgs[i].PromptUsed = built
		cfgs[i].ManuallyEdited = false
		cfgs[i].PromptLastUpdatedAt = now
	}
}

func stampRegenerated(units []types.UnitResult, now string) {
	for i := range units {
		units[i].LastRegeneratedAt = now
	}
}

// ApplyManualSave stores a user's manual edit to one unit, marking it
// manually edited so whole-document regeneration keeps its editable
// prompt authoritative.
func (c *Coordinator) ApplyManualSave(doc *types.DocumentRecord, role types.UnitRole, name string, save ManualSave) error {
	unit := doc.FindUnit(role, name)
	if unit == nil {
		return fmt.Errorf("%w: %s %q", ErrUnitNotFound, role, name)
	}

	now := nowISO()
	if save.Content != nil {
		unit.Content = normalizeSavedContent(save.Content)
	}
	if save.EditablePrompt != "" {
		unit.EditablePrompt = save.EditablePrompt
		unit.PromptUsed = save.EditablePrompt
		unit.PromptLastUpdatedAt = now
	}
	unit.ManuallyEdited = true
	unit.LastSavedAt = now

	doc.Version++
	doc.UpdatedAt = now
	return nil
}

// validateDocument checks the document against the structural schema.
// Nil unit lists validate as empty arrays.
func validateDocument(doc *types.DocumentRecord) error {
	d := *doc
	if d.Pages == nil {
		d.Pages = []types.UnitResult{}
	}
	if d.Sections == nil {
		d.Sections = []types.UnitResult{}
	}
	data, err := json.Marshal(&d)
	if err != nil {
		return err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	return documentSchema.Validate(v)
}

func contentAsString(content any) string {
	switch v := content.(type) {
	case nil:
		return ""
	case string:
		return v
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return ""
		}
		return string(data)
	}
}

func nonEmpty(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}
