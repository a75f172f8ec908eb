package generate

import (
	"context"
	"fmt"
	"reflect"
	"strings"
	"testing"

	"github.com/quilldocs/quill/internal/providers"
	"github.com/quilldocs/quill/internal/types"
)

func sectionConfigs(names ...string) []types.UnitConfig {
	out := make([]types.UnitConfig, 0, len(names))
	for i, n := range names {
		out = append(out, types.UnitConfig{Name: n, Sequence: i + 1, Kind: types.KindText})
	}
	return out
}

func TestAssembleShape(t *testing.T) {
	assembler := NewAssembler(NewClient(nil, nil), nil)

	pages := []types.UnitConfig{
		{Name: "Cover", Sequence: 1, Kind: types.KindCover},
		{Name: "Declaration", Sequence: 2, Kind: types.KindDeclaration},
	}
	sections := sectionConfigs("Scope", "Approach", "Pricing")

	doc := assembler.Assemble(context.Background(), "Proposal", "source text", pages, sections)

	t.Run("one result per configured unit in caller order", func(t *testing.T) {
		if len(doc.Pages) != len(pages) {
			t.Fatalf("got %d pages, want %d", len(doc.Pages), len(pages))
		}
		if len(doc.Sections) != len(sections) {
			t.Fatalf("got %d sections, want %d", len(doc.Sections), len(sections))
		}
		for i, cfg := range pages {
			if doc.Pages[i].Name != cfg.Name {
				t.Errorf("page[%d] = %q, want %q", i, doc.Pages[i].Name, cfg.Name)
			}
		}
		for i, cfg := range sections {
			if doc.Sections[i].Name != cfg.Name {
				t.Errorf("section[%d] = %q, want %q", i, doc.Sections[i].Name, cfg.Name)
			}
		}
	})

	t.Run("content is never empty", func(t *testing.T) {
		for _, u := range append(doc.Pages, doc.Sections...) {
			if emptyContent(u.Content) {
				t.Errorf("unit %q has empty content", u.Name)
			}
		}
	})

	t.Run("every unit carries prompt provenance", func(t *testing.T) {
		for _, u := range append(doc.Pages, doc.Sections...) {
			if u.GeneratedPrompt == "" {
				t.Errorf("unit %q has no generated prompt", u.Name)
			}
			if u.PromptUsed == "" {
				t.Errorf("unit %q has no prompt_used", u.Name)
			}
			if u.PromptLastUpdatedAt == "" {
				t.Errorf("unit %q has no prompt timestamp", u.Name)
			}
		}
	})

	t.Run("title falls back to template then default", func(t *testing.T) {
		if doc.Title != "Proposal" {
			t.Errorf("title = %q", doc.Title)
		}
		untitled := assembler.Assemble(context.Background(), "", "src", nil, sectionConfigs("Scope"))
		if untitled.Title != DefaultTitle {
			t.Errorf("title = %q, want %q", untitled.Title, DefaultTitle)
		}
	})
}

func TestAssemblePromptPrecedence(t *testing.T) {
	mock := providers.NewMockClient()
	mock.ResponseText = "content"
	assembler := NewAssembler(NewClient(mock, nil), nil)

	t.Run("editable prompt wins over generated", func(t *testing.T) {
		cfgs := []types.UnitConfig{{
			Name:            "Scope",
			EditablePrompt:  "EDITED",
			GeneratedPrompt: "GENERATED",
		}}
		doc := assembler.Assemble(context.Background(), "T", "src", nil, cfgs)
		if !strings.Contains(mock.LastRequest().Messages[1].Content, "EDITED") {
			t.Errorf("request did not use edited prompt: %q", mock.LastRequest().Messages[1].Content)
		}
		if doc.Sections[0].PromptUsed != "EDITED" {
			t.Errorf("prompt_used = %q", doc.Sections[0].PromptUsed)
		}
	})

	t.Run("generated prompt wins over a fresh build", func(t *testing.T) {
		cfgs := []types.UnitConfig{{Name: "Scope", GeneratedPrompt: "GENERATED"}}
		doc := assembler.Assemble(context.Background(), "T", "src", nil, cfgs)
		if doc.Sections[0].PromptUsed != "GENERATED" {
			t.Errorf("prompt_used = %q", doc.Sections[0].PromptUsed)
		}
	})

	t.Run("no stored prompt builds one", func(t *testing.T) {
		cfgs := []types.UnitConfig{{Name: "Scope"}}
		doc := assembler.Assemble(context.Background(), "T", "src", nil, cfgs)
		if doc.Sections[0].GeneratedPrompt == "" {
			t.Error("expected a freshly built prompt")
		}
		if !strings.Contains(doc.Sections[0].GeneratedPrompt, "Scope") {
			t.Errorf("built prompt does not mention the unit: %q", doc.Sections[0].GeneratedPrompt)
		}
	})
}

func TestAssembleDeterministicPrompts(t *testing.T) {
	assembler := NewAssembler(NewClient(nil, nil), nil)
	cfgs := sectionConfigs("Scope", "Approach")

	first := assembler.Assemble(context.Background(), "T", "src", nil, cfgs)
	second := assembler.Assemble(context.Background(), "T", "src", nil, cfgs)

	for i := range first.Sections {
		if first.Sections[i].GeneratedPrompt != second.Sections[i].GeneratedPrompt {
			t.Errorf("prompt for %q differs across runs", first.Sections[i].Name)
		}
		if !reflect.DeepEqual(first.Sections[i].Content, second.Sections[i].Content) {
			t.Errorf("content for %q differs across runs", first.Sections[i].Name)
		}
	}
}

func TestAssembleParsesEnvelopeResponses(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Respond = func(req *providers.ChatRequest) string {
		return `{"sections":[{"name":"Scope","content":"<p>parsed body</p>"}]}`
	}
	assembler := NewAssembler(NewClient(mock, nil), nil)

	doc := assembler.Assemble(context.Background(), "T", "src", nil, sectionConfigs("Scope"))
	if content, _ := doc.Sections[0].ContentString(); content != "<p>parsed body</p>" {
		t.Errorf("content = %v", doc.Sections[0].Content)
	}
}

func TestSanitizeUnits(t *testing.T) {
	t.Run("strays are filtered and gaps filled", func(t *testing.T) {
		configs := sectionConfigs("Scope", "Approach")
		results := []types.UnitResult{
			{Name: "Invented", Content: "stray"},
			{Name: "Scope", Content: "kept", GeneratedPrompt: "gp", PromptUsed: "pu"},
		}

		out := sanitizeUnits(types.RoleSection, results, configs)
		if len(out) != 2 {
			t.Fatalf("got %d units, want 2", len(out))
		}
		if out[0].Name != "Scope" || out[1].Name != "Approach" {
			t.Errorf("order = %q, %q", out[0].Name, out[1].Name)
		}
		if content, _ := out[0].ContentString(); content != "kept" {
			t.Errorf("content = %v", out[0].Content)
		}
		if content, _ := out[1].ContentString(); content != "⚠️ No content generated for Approach." {
			t.Errorf("missing unit content = %v", out[1].Content)
		}
	})

	t.Run("list kind synthesizes bullet placeholder", func(t *testing.T) {
		configs := []types.UnitConfig{{Name: "Deliverables", Kind: types.KindList}}
		out := sanitizeUnits(types.RoleSection, nil, configs)
		want := []any{"Deliverables point 1", "Deliverables point 2"}
		if !reflect.DeepEqual(out[0].Content, want) {
			t.Errorf("content = %v, want %v", out[0].Content, want)
		}
	})

	t.Run("table kind synthesizes one example row", func(t *testing.T) {
		configs := []types.UnitConfig{{Name: "Rates", Kind: types.KindTable}}
		out := sanitizeUnits(types.RoleSection, nil, configs)
		want := []any{map[string]any{"Column": "Example", "Value": "Sample"}}
		if !reflect.DeepEqual(out[0].Content, want) {
			t.Errorf("content = %v, want %v", out[0].Content, want)
		}
	})

	t.Run("pages never get structured placeholders", func(t *testing.T) {
		configs := []types.UnitConfig{{Name: "Cover", Kind: types.KindCover}}
		out := sanitizeUnits(types.RolePage, nil, configs)
		if content, _ := out[0].ContentString(); content != "⚠️ No content generated for Cover." {
			t.Errorf("content = %v", out[0].Content)
		}
	})

	t.Run("whitespace content counts as missing", func(t *testing.T) {
		configs := sectionConfigs("Scope")
		results := []types.UnitResult{{Name: "Scope", Content: "   \n  "}}
		out := sanitizeUnits(types.RoleSection, results, configs)
		if content, _ := out[0].ContentString(); !strings.HasPrefix(content, "⚠️") {
			t.Errorf("content = %v", out[0].Content)
		}
	})

	t.Run("prompts are backfilled", func(t *testing.T) {
		configs := sectionConfigs("Scope")
		out := sanitizeUnits(types.RoleSection, nil, configs)
		if out[0].GeneratedPrompt == "" || out[0].PromptUsed == "" {
			t.Errorf("prompts missing: %+v", out[0])
		}
	})
}

func TestFallbackDocument(t *testing.T) {
	assembler := NewAssembler(NewClient(nil, nil), nil)
	pages := []types.UnitConfig{{Name: "Cover", Sequence: 1}}
	sections := sectionConfigs("Scope")

	doc := assembler.fallbackDocument(pages, sections)

	if doc.Title != DefaultTitle {
		t.Errorf("title = %q", doc.Title)
	}
	if len(doc.Pages) != 1 || len(doc.Sections) != 1 {
		t.Fatalf("shape = %d pages, %d sections", len(doc.Pages), len(doc.Sections))
	}
	if content, _ := doc.Pages[0].ContentString(); content != "⚠️ Content could not be generated for Cover." {
		t.Errorf("content = %v", doc.Pages[0].Content)
	}
	if doc.Sections[0].GeneratedPrompt == "" || doc.Sections[0].PromptUsed == "" {
		t.Error("fallback units must carry built prompts")
	}
}

func TestAssembleWithManyUnits(t *testing.T) {
	mock := providers.NewMockClient()
	mock.Respond = func(req *providers.ChatRequest) string {
		return fmt.Sprintf("<p>unit %d</p>", mock.RequestCount())
	}
	assembler := NewAssembler(NewClient(mock, nil), nil)

	names := make([]string, 20)
	for i := range names {
		names[i] = fmt.Sprintf("Section %02d", i)
	}
	doc := assembler.Assemble(context.Background(), "T", "src", nil, sectionConfigs(names...))

	if len(doc.Sections) != 20 {
		t.Fatalf("got %d sections", len(doc.Sections))
	}
	for i, u := range doc.Sections {
		if u.Name != names[i] {
			t.Errorf("section[%d] = %q, want %q", i, u.Name, names[i])
		}
	}
	if mock.RequestCount() != 20 {
		t.Errorf("backend called %d times, want 20", mock.RequestCount())
	}
}
