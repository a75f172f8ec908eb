package types

// DocumentRecord is the persisted document shape. It is created once by
// assembly and subsequently mutated only by regeneration or manual save;
// Version increments on every such mutation. RawText is the immutable
// source text captured at creation.
type DocumentRecord struct {
	ID       string       `json:"id"`
	Title    string       `json:"title"`
	RawText  string       `json:"raw_text"`
	Pages    []UnitResult `json:"pages"`
	Sections []UnitResult `json:"sections"`

	Version   int    `json:"version"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`

	UserID    string `json:"user_id,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
}

// FindUnit returns a pointer to the named unit in the role's list, or nil.
func (d *DocumentRecord) FindUnit(role UnitRole, name string) *UnitResult {
	units := d.Sections
	if role == RolePage {
		units = d.Pages
	}
	for i := range units {
		if units[i].Name == name {
			return &units[i]
		}
	}
	return nil
}

// UserConfig stores a user's saved configuration of pages and sections.
// The ID is the owning user's id.
type UserConfig struct {
	ID           string       `json:"id"`
	UserID       string       `json:"user_id,omitempty"`
	Title        string       `json:"title,omitempty"`
	DocumentName string       `json:"document_name,omitempty"`
	AuthorRole   string       `json:"author_role,omitempty"`
	Pages        []UnitConfig `json:"pages"`
	Sections     []UnitConfig `json:"sections"`
	UpdatedAt    string       `json:"updated_at,omitempty"`
}

// Configured reports whether the config declares at least one unit.
func (c *UserConfig) Configured() bool {
	return c != nil && (len(c.Pages) > 0 || len(c.Sections) > 0)
}

// UploadRecord tracks an uploaded source file and its extracted text.
type UploadRecord struct {
	ID        string `json:"id"`
	Filename  string `json:"filename"`
	Path      string `json:"path"`
	RawText   string `json:"raw_text"`
	PageCount int    `json:"page_count,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	UpdatedAt string `json:"updated_at,omitempty"`
	UserID    string `json:"user_id,omitempty"`
	CompanyID string `json:"company_id,omitempty"`
}
