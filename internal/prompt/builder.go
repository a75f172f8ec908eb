// Package prompt renders unit configurations into the natural-language
// instructions sent to the generation backend.
//
// Rendering is pure and deterministic: building the same UnitConfig twice
// with unchanged fields yields byte-identical output. The "rebuild the
// prompt only when fields changed" policy upstream depends on this.
package prompt

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/quilldocs/quill/internal/types"
)

//go:embed page.tmpl
var pageTmpl string

//go:embed section.tmpl
var sectionTmpl string

var (
	pageTemplate    = template.Must(template.New("page").Parse(pageTmpl))
	sectionTemplate = template.Must(template.New("section").Parse(sectionTmpl))
)

// DefaultAuthorRole frames the generation persona when the configuration
// does not name one.
const DefaultAuthorRole = "document specialist"

// nonCopyDisclaimer wraps any sample output so the generator treats it as
// layout guidance rather than source text.
const nonCopyDisclaimer = "This is ONLY a structural/layout hint. Do NOT copy text:"

// templateData is the fully-defaulted view of a UnitConfig that the
// templates render.
type templateData struct {
	Name           string
	Sequence       int
	Kind           string
	Layout         string
	StyleTone      string
	FormattingText string
	LengthHint     string
	SampleText     string
	AuthorRole     string
	DocumentTitle  string
	Instruction    string
	Purpose        string
	Notes          string
}

// Build renders the prompt for a unit, dispatching on its role.
func Build(u types.UnitConfig) string {
	if u.Role == types.RolePage {
		return BuildPagePrompt(u)
	}
	return BuildSectionPrompt(u)
}

// BuildSectionPrompt renders the instruction for a section unit.
func BuildSectionPrompt(u types.UnitConfig) string {
	data := newTemplateData(u)
	if data.StyleTone == "" {
		data.StyleTone = "Professional"
	}
	if data.Kind == "" {
		data.Kind = types.KindText
	}

	var buf bytes.Buffer
	// The only template error source is a missing field, which the
	// compiler rules out.
	_ = sectionTemplate.Execute(&buf, data)
	return strings.TrimSpace(buf.String())
}

// BuildPagePrompt renders the instruction for a page unit.
func BuildPagePrompt(u types.UnitConfig) string {
	data := newTemplateData(u)
	if data.Kind == "" {
		data.Kind = types.KindOther
	}
	if data.Layout == "" {
		data.Layout = types.KindText
	}
	if data.StyleTone == "" {
		data.StyleTone = "formal"
	}
	if data.Instruction == "" {
		data.Instruction = "To be defined"
	}

	var buf bytes.Buffer
	_ = pageTemplate.Execute(&buf, data)
	return strings.TrimSpace(buf.String())
}

func newTemplateData(u types.UnitConfig) templateData {
	data := templateData{
		Name:          u.Name,
		Sequence:      u.Sequence,
		Kind:          u.Kind,
		Layout:        u.Layout,
		StyleTone:     u.StyleTone,
		LengthHint:    u.LengthHint,
		AuthorRole:    strings.TrimSpace(u.AuthorRole),
		DocumentTitle: u.DocumentTitle,
		Instruction:   u.Instruction,
		Purpose:       u.Purpose,
		Notes:         u.Notes,
	}

	if data.Name == "" {
		if u.Role == types.RolePage {
			data.Name = "Page"
		} else {
			data.Name = "Section"
		}
	}
	if data.AuthorRole == "" {
		data.AuthorRole = DefaultAuthorRole
	}
	if data.DocumentTitle == "" {
		data.DocumentTitle = "Untitled Document"
	}
	if data.LengthHint == "" {
		data.LengthHint = "No specific limit"
	}

	data.FormattingText = formattingText(u.FormattingRules)
	data.SampleText = sampleText(u.SampleOutput)
	return data
}

// formattingText renders formatting rules as a bullet list, or the literal
// no-formatting sentence when none are configured.
func formattingText(rules []string) string {
	if len(rules) == 0 {
		return "• No special formatting"
	}
	bullets := make([]string, len(rules))
	for i, rule := range rules {
		bullets[i] = "• " + rule
	}
	return strings.Join(bullets, "\n")
}

func sampleText(sample string) string {
	if sample == "" {
		return "None provided"
	}
	return nonCopyDisclaimer + "\n" + sample
}
