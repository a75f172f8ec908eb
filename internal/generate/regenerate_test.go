package generate

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/quilldocs/quill/internal/providers"
	"github.com/quilldocs/quill/internal/types"
)

func testDocument() *types.DocumentRecord {
	return &types.DocumentRecord{
		ID:      "doc-1",
		Title:   "Proposal",
		RawText: "source text",
		Version: 1,
		Pages: []types.UnitResult{
			{Name: "Cover", Sequence: 1, Role: types.RolePage, Kind: types.KindCover,
				Content: "<p>cover</p>", GeneratedPrompt: "cover prompt", PromptUsed: "cover prompt"},
		},
		Sections: []types.UnitResult{
			{Name: "Scope", Sequence: 1, Role: types.RoleSection, Kind: types.KindText,
				Content: "<p>scope</p>", GeneratedPrompt: "scope prompt", PromptUsed: "scope prompt"},
			{Name: "Pricing", Sequence: 2, Role: types.RoleSection, Kind: types.KindText,
				Content: "<p>pricing</p>", GeneratedPrompt: "pricing prompt", PromptUsed: "pricing prompt"},
		},
	}
}

func TestRegenerateUnit(t *testing.T) {
	t.Run("no backend annotates prior content", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		existing := testDocument().Sections[0]

		got := coord.RegenerateUnit(context.Background(), types.RoleSection, "raw", existing, "make it formal")

		if content, _ := got.ContentString(); content != "<p>scope</p> (modified with make it formal)" {
			t.Errorf("content = %v", got.Content)
		}
		if got.PromptUsed != "scope prompt + make it formal" {
			t.Errorf("prompt_used = %q", got.PromptUsed)
		}
		if got.UserInstruction != "make it formal" {
			t.Errorf("user_instruction = %q", got.UserInstruction)
		}
		if got.LastRegeneratedAt == "" {
			t.Error("last_regenerated_at not stamped")
		}
	})

	t.Run("identity survives a renaming backend", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = `{"sections":[{"name":"Completely Different","content":"<p>new</p>"}]}`
		coord := NewCoordinator(NewClient(mock, nil), nil)
		existing := testDocument().Sections[0]

		got := coord.RegenerateUnit(context.Background(), types.RoleSection, "raw", existing, "tweak")
		if got.Name != "Scope" || got.Sequence != 1 {
			t.Errorf("identity changed: name=%q sequence=%d", got.Name, got.Sequence)
		}
		if content, _ := got.ContentString(); content != "<p>new</p>" {
			t.Errorf("content = %v", got.Content)
		}
	})

	t.Run("regeneration resets manual edit flag", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		existing := testDocument().Sections[0]
		existing.ManuallyEdited = true

		got := coord.RegenerateUnit(context.Background(), types.RoleSection, "raw", existing, "tweak")
		if got.ManuallyEdited {
			t.Error("manually_edited should reset on explicit regeneration")
		}
	})

	t.Run("edited prompt is the rewrite base", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = `{"sections":[{"name":"Scope","content":"<p>new</p>"}]}`
		coord := NewCoordinator(NewClient(mock, nil), nil)
		existing := testDocument().Sections[0]
		existing.EditablePrompt = "EDITED BASE"

		coord.RegenerateUnit(context.Background(), types.RoleSection, "raw", existing, "tweak")
		if !strings.Contains(mock.LastRequest().Messages[1].Content, "EDITED BASE") {
			t.Errorf("request did not carry edited prompt: %q", mock.LastRequest().Messages[1].Content)
		}
	})

	t.Run("plain text response becomes the content", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.ResponseText = "<p>Rewritten formally</p>"
		coord := NewCoordinator(NewClient(mock, nil), nil)
		existing := testDocument().Sections[0]

		got := coord.RegenerateUnit(context.Background(), types.RoleSection, "raw", existing, "tweak")
		if content, _ := got.ContentString(); content != "<p>Rewritten formally</p>" {
			t.Errorf("content = %v", got.Content)
		}
		if got.PromptUsed != "scope prompt" {
			t.Errorf("prompt_used = %q", got.PromptUsed)
		}
	})
}

func TestRegenerateUnitInDocument(t *testing.T) {
	t.Run("bumps version and updates in place", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()

		err := coord.RegenerateUnitInDocument(context.Background(), doc, types.RoleSection, "Scope", "shorter")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.Version != 2 {
			t.Errorf("version = %d, want 2", doc.Version)
		}
		if content, _ := doc.Sections[0].ContentString(); !strings.Contains(content, "modified with shorter") {
			t.Errorf("content = %v", doc.Sections[0].Content)
		}
		if content, _ := doc.Sections[1].ContentString(); content != "<p>pricing</p>" {
			t.Errorf("untargeted unit changed: %v", doc.Sections[1].Content)
		}
	})

	t.Run("unknown unit", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()

		err := coord.RegenerateUnitInDocument(context.Background(), doc, types.RoleSection, "Nope", "x")
		if !errors.Is(err, ErrUnitNotFound) {
			t.Fatalf("err = %v, want ErrUnitNotFound", err)
		}
		if doc.Version != 1 {
			t.Errorf("version changed on failed lookup: %d", doc.Version)
		}
	})

	t.Run("role scoping", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()

		// Scope exists only among sections.
		err := coord.RegenerateUnitInDocument(context.Background(), doc, types.RolePage, "Scope", "x")
		if !errors.Is(err, ErrUnitNotFound) {
			t.Fatalf("err = %v, want ErrUnitNotFound", err)
		}
	})
}

func TestRegenerateDocument(t *testing.T) {
	// Each generation request carries {"name", "prompt", "raw_text"};
	// answer from the requested unit's name or prompt.
	unitRequest := func(req *providers.ChatRequest) map[string]string {
		var m map[string]string
		_ = json.Unmarshal([]byte(req.Messages[1].Content), &m)
		return m
	}
	byName := func(req *providers.ChatRequest) string {
		return "<p>regenerated " + unitRequest(req)["name"] + "</p>"
	}
	byPrompt := func(req *providers.ChatRequest) string {
		return "<p>via " + unitRequest(req)["prompt"] + "</p>"
	}

	t.Run("regenerates every unit through a fresh assembly", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Respond = byName
		coord := NewCoordinator(NewClient(mock, nil), nil)
		doc := testDocument()

		if err := coord.RegenerateDocument(context.Background(), doc, PromptOverrides{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.Version != 2 {
			t.Errorf("version = %d, want 2", doc.Version)
		}
		if content, _ := doc.Pages[0].ContentString(); content != "<p>regenerated Cover</p>" {
			t.Errorf("page content = %v", doc.Pages[0].Content)
		}
		if content, _ := doc.Sections[0].ContentString(); content != "<p>regenerated Scope</p>" {
			t.Errorf("section content = %v", doc.Sections[0].Content)
		}
		if content, _ := doc.Sections[1].ContentString(); content != "<p>regenerated Pricing</p>" {
			t.Errorf("section content = %v", doc.Sections[1].Content)
		}
		if doc.Sections[0].GeneratedPrompt == "scope prompt" {
			t.Error("generated_prompt not rebuilt")
		}
		if doc.Sections[0].PromptUsed != doc.Sections[0].GeneratedPrompt {
			t.Errorf("prompt_used = %q, want the fresh generated prompt", doc.Sections[0].PromptUsed)
		}
		if doc.Sections[0].LastRegeneratedAt == "" {
			t.Error("last_regenerated_at not stamped")
		}
	})

	t.Run("placeholder mode regenerates placeholder content", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()

		if err := coord.RegenerateDocument(context.Background(), doc, PromptOverrides{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.Version != 2 {
			t.Errorf("version = %d, want 2", doc.Version)
		}
		content, _ := doc.Sections[0].ContentString()
		if !strings.Contains(content, "Placeholder for Scope") {
			t.Errorf("content = %q, want a fresh placeholder", content)
		}
	})

	t.Run("manually edited unit regenerates under its edited prompt", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Respond = byPrompt
		coord := NewCoordinator(NewClient(mock, nil), nil)
		doc := testDocument()
		doc.Sections[0].ManuallyEdited = true
		doc.Sections[0].Content = "<p>hand written</p>"
		doc.Sections[0].EditablePrompt = "hand prompt"

		if err := coord.RegenerateDocument(context.Background(), doc, PromptOverrides{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		edited := doc.Sections[0]
		if content, _ := edited.ContentString(); content != "<p>via hand prompt</p>" {
			t.Errorf("edited content = %v, want regeneration under the edited prompt", edited.Content)
		}
		if edited.PromptUsed != "hand prompt" || edited.EditablePrompt != "hand prompt" {
			t.Errorf("edited provenance = %q / %q", edited.PromptUsed, edited.EditablePrompt)
		}
		if !edited.ManuallyEdited {
			t.Error("manually_edited flag lost")
		}
		if doc.Sections[1].PromptUsed == "pricing prompt" {
			t.Error("unedited unit's prompt not rebuilt")
		}
	})

	t.Run("per-unit prompt overrides", func(t *testing.T) {
		mock := providers.NewMockClient()
		mock.Respond = byPrompt
		coord := NewCoordinator(NewClient(mock, nil), nil)
		doc := testDocument()

		overrides := PromptOverrides{Sections: map[string]string{"Pricing": "override prompt"}}
		if err := coord.RegenerateDocument(context.Background(), doc, overrides); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if content, _ := doc.Sections[1].ContentString(); content != "<p>via override prompt</p>" {
			t.Errorf("overridden content = %v", doc.Sections[1].Content)
		}
		if doc.Sections[1].PromptUsed != "override prompt" {
			t.Errorf("prompt_used = %q", doc.Sections[1].PromptUsed)
		}
		if doc.Sections[0].PromptUsed == "scope prompt" {
			t.Error("non-overridden unit's prompt not rebuilt")
		}
	})

	t.Run("title falls back to the default when empty", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()
		doc.Title = ""

		if err := coord.RegenerateDocument(context.Background(), doc, PromptOverrides{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.Title != DefaultTitle {
			t.Errorf("title = %q, want %q", doc.Title, DefaultTitle)
		}
	})

	t.Run("invalid rebuilt document is a hard failure", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()
		doc.Sections = append(doc.Sections, types.UnitResult{Sequence: 3, Content: "<p>unnamed</p>"})

		err := coord.RegenerateDocument(context.Background(), doc, PromptOverrides{})
		if !errors.Is(err, ErrMalformedDocument) {
			t.Fatalf("err = %v, want ErrMalformedDocument", err)
		}
		if doc.Version != 1 {
			t.Errorf("version changed on failure: %d", doc.Version)
		}
		if content, _ := doc.Sections[0].ContentString(); content != "<p>scope</p>" {
			t.Errorf("document mutated on failure: %v", doc.Sections[0].Content)
		}
	})

	t.Run("sections-only document regenerates", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()
		doc.Pages = nil

		if err := coord.RegenerateDocument(context.Background(), doc, PromptOverrides{}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if doc.Version != 2 {
			t.Errorf("version = %d, want 2", doc.Version)
		}
		if len(doc.Pages) != 0 {
			t.Errorf("pages = %v, want none", doc.Pages)
		}
	})
}

func TestValidateDocument(t *testing.T) {
	t.Run("nil unit lists validate as empty", func(t *testing.T) {
		doc := &types.DocumentRecord{
			Title: "Proposal",
			Sections: []types.UnitResult{
				{Name: "Scope", Content: "<p>scope</p>"},
			},
		}
		if err := validateDocument(doc); err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	})

	t.Run("unnamed unit fails", func(t *testing.T) {
		doc := &types.DocumentRecord{
			Title:    "Proposal",
			Pages:    []types.UnitResult{},
			Sections: []types.UnitResult{{Content: "<p>x</p>"}},
		}
		if err := validateDocument(doc); err == nil {
			t.Error("expected a validation error")
		}
	})
}

func TestRefreshPromptProvenance(t *testing.T) {
	t.Run("stale generated prompt is rebuilt", func(t *testing.T) {
		cfgs := []types.UnitConfig{
			{Name: "Scope", Sequence: 1, Kind: types.KindText, GeneratedPrompt: "stale prompt"},
		}
		RefreshPromptProvenance(types.RoleSection, cfgs)

		if cfgs[0].GeneratedPrompt == "stale prompt" {
			t.Error("generated_prompt not rebuilt")
		}
		if cfgs[0].EditablePrompt != cfgs[0].GeneratedPrompt || cfgs[0].PromptUsed != cfgs[0].GeneratedPrompt {
			t.Errorf("provenance defaults = %q / %q", cfgs[0].EditablePrompt, cfgs[0].PromptUsed)
		}
		if cfgs[0].PromptLastUpdatedAt == "" {
			t.Error("prompt_last_updated_at not stamped")
		}
	})

	t.Run("manually edited prompt is authoritative", func(t *testing.T) {
		cfgs := []types.UnitConfig{
			{Name: "Scope", Sequence: 1, Kind: types.KindText,
				GeneratedPrompt: "stale prompt", EditablePrompt: "my prompt", ManuallyEdited: true},
		}
		RefreshPromptProvenance(types.RoleSection, cfgs)

		if cfgs[0].PromptUsed != "my prompt" || cfgs[0].EditablePrompt != "my prompt" {
			t.Errorf("edited prompt changed: %q / %q", cfgs[0].PromptUsed, cfgs[0].EditablePrompt)
		}
		if !cfgs[0].ManuallyEdited {
			t.Error("manually_edited flag lost")
		}
		if cfgs[0].GeneratedPrompt == "stale prompt" {
			t.Error("generated_prompt may be refreshed, but was left stale")
		}
	})
}

func TestApplyManualSave(t *testing.T) {
	t.Run("saves content and marks the unit edited", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()

		err := coord.ApplyManualSave(doc, types.RoleSection, "Scope", ManualSave{Content: "<p>edited</p>"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		unit := doc.Sections[0]
		if content, _ := unit.ContentString(); content != "<p>edited</p>" {
			t.Errorf("content = %v", unit.Content)
		}
		if !unit.ManuallyEdited {
			t.Error("manually_edited not set")
		}
		if unit.LastSavedAt == "" {
			t.Error("last_saved_at not stamped")
		}
		if doc.Version != 2 {
			t.Errorf("version = %d, want 2", doc.Version)
		}
	})

	t.Run("json content is parsed, html preserved", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()

		if err := coord.ApplyManualSave(doc, types.RoleSection, "Scope", ManualSave{Content: `["a","b"]`}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if _, isString := doc.Sections[0].Content.(string); isString {
			t.Errorf("json array not parsed: %v", doc.Sections[0].Content)
		}
	})

	t.Run("prompt override updates provenance", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()

		err := coord.ApplyManualSave(doc, types.RoleSection, "Scope", ManualSave{EditablePrompt: "my prompt"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		unit := doc.Sections[0]
		if unit.EditablePrompt != "my prompt" || unit.PromptUsed != "my prompt" {
			t.Errorf("provenance = %q / %q", unit.EditablePrompt, unit.PromptUsed)
		}
		if content, _ := unit.ContentString(); content != "<p>scope</p>" {
			t.Errorf("content changed without a content save: %v", unit.Content)
		}
	})

	t.Run("unknown unit", func(t *testing.T) {
		coord := NewCoordinator(NewClient(nil, nil), nil)
		doc := testDocument()

		err := coord.ApplyManualSave(doc, types.RolePage, "Nope", ManualSave{Content: "x"})
		if !errors.Is(err, ErrUnitNotFound) {
			t.Fatalf("err = %v, want ErrUnitNotFound", err)
		}
	})
}
