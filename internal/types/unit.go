// Package types holds the shared value types for document generation:
// unit configurations, generated unit results, and the persisted document
// record. These are plain data structs; behavior lives in the packages
// that operate on them.
package types

// UnitRole discriminates the two structural unit variants.
type UnitRole string

const (
	RolePage    UnitRole = "page"
	RoleSection UnitRole = "section"
)

// EnvelopeKey returns the JSON envelope key a generation backend uses for
// this role ("pages" or "sections").
func (r UnitRole) EnvelopeKey() string {
	if r == RolePage {
		return "pages"
	}
	return "sections"
}

// Section kinds.
const (
	KindText  = "text"
	KindList  = "list"
	KindTable = "table"
)

// Page kinds.
const (
	KindCover       = "cover"
	KindDeclaration = "declaration"
	KindCertificate = "certificate"
	KindBill        = "bill"
	KindPolicy      = "policy"
	KindOther       = "other"
)

// UnitConfig identifies one structural unit of the target document as
// configured by the user. Name is unique within its list; Sequence is a
// stable ordering key across regenerations.
type UnitConfig struct {
	Name     string   `json:"name"`
	Sequence int      `json:"sequence"`
	Role     UnitRole `json:"role,omitempty"`

	// Kind is the section type (text|list|table) or page type
	// (cover|declaration|certificate|bill|policy|other).
	Kind string `json:"kind,omitempty"`

	// Descriptive fields feeding prompt generation. All free-form.
	Layout          string   `json:"layout,omitempty"`
	StyleTone       string   `json:"style_tone,omitempty"`
	FormattingRules []string `json:"formatting_rules,omitempty"`
	LengthHint      string   `json:"length_hint,omitempty"`
	SampleOutput    string   `json:"sample_output,omitempty"`
	AuthorRole      string   `json:"author_role,omitempty"`

	// Page-only fields.
	Instruction string `json:"instruction,omitempty"`
	Purpose     string `json:"purpose,omitempty"`
	Notes       string `json:"notes,omitempty"`

	// DocumentTitle is the enclosing document's title, carried so a unit
	// prompt can reference it.
	DocumentTitle string `json:"document_title,omitempty"`

	// Prompt provenance. EditablePrompt is authoritative when
	// ManuallyEdited is set; PromptUsed records the instruction actually
	// sent on the most recent generation.
	GeneratedPrompt     string `json:"generated_prompt,omitempty"`
	EditablePrompt      string `json:"editable_prompt,omitempty"`
	PromptUsed          string `json:"prompt_used,omitempty"`
	PromptLastUpdatedAt string `json:"prompt_last_updated_at,omitempty"`
	ManuallyEdited      bool   `json:"manually_edited"`
}

// UnitResult is a generated unit merged back onto its configuration.
// Content is normalized HTML, or a structured placeholder for list/table
// kinds when generation produced nothing. Content is never empty in a
// sanitized document.
type UnitResult struct {
	Name     string   `json:"name"`
	Sequence int      `json:"sequence"`
	Role     UnitRole `json:"role,omitempty"`
	Kind     string   `json:"kind,omitempty"`

	Layout          string   `json:"layout,omitempty"`
	StyleTone       string   `json:"style_tone,omitempty"`
	FormattingRules []string `json:"formatting_rules,omitempty"`
	LengthHint      string   `json:"length_hint,omitempty"`
	SampleOutput    string   `json:"sample_output,omitempty"`
	AuthorRole      string   `json:"author_role,omitempty"`
	Instruction     string   `json:"instruction,omitempty"`
	Purpose         string   `json:"purpose,omitempty"`
	Notes           string   `json:"notes,omitempty"`

	// Content is string HTML in the common case, []any for list
	// placeholders, []map or similar for table placeholders.
	Content any `json:"content"`

	GeneratedPrompt     string `json:"generated_prompt,omitempty"`
	EditablePrompt      string `json:"editable_prompt,omitempty"`
	PromptUsed          string `json:"prompt_used,omitempty"`
	PromptLastUpdatedAt string `json:"prompt_last_updated_at,omitempty"`
	ManuallyEdited      bool   `json:"manually_edited"`

	UserInstruction   string `json:"user_instruction,omitempty"`
	LastRegeneratedAt string `json:"last_regenerated_at,omitempty"`
	LastSavedAt       string `json:"last_saved_at,omitempty"`
}

// ContentString returns the content as a string when it is one.
func (u *UnitResult) ContentString() (string, bool) {
	s, ok := u.Content.(string)
	return s, ok
}

// Config projects the result back to a UnitConfig, used when a persisted
// unit feeds a fresh generation round.
func (u *UnitResult) Config() UnitConfig {
	return UnitConfig{
		Name:                u.Name,
		Sequence:            u.Sequence,
		Role:                u.Role,
		Kind:                u.Kind,
		Layout:              u.Layout,
		StyleTone:           u.StyleTone,
		FormattingRules:     u.FormattingRules,
		LengthHint:          u.LengthHint,
		SampleOutput:        u.SampleOutput,
		AuthorRole:          u.AuthorRole,
		Instruction:         u.Instruction,
		Purpose:             u.Purpose,
		Notes:               u.Notes,
		GeneratedPrompt:     u.GeneratedPrompt,
		EditablePrompt:      u.EditablePrompt,
		PromptUsed:          u.PromptUsed,
		PromptLastUpdatedAt: u.PromptLastUpdatedAt,
		ManuallyEdited:      u.ManuallyEdited,
	}
}
