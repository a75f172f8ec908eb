package types

// Actor roles.
const (
	RoleUser       = "user"
	RoleAdmin      = "admin"
	RoleSuperadmin = "superadmin"
)

// Actor is an already-authenticated caller. The generation core performs
// no authentication itself; it only consumes this identity.
type Actor struct {
	ID        string `json:"id"`
	Role      string `json:"role"`
	CompanyID string `json:"company_id,omitempty"`
}

// CanAccessDocument applies the document visibility rules: superadmins see
// everything, admins see their company's documents plus their own, users
// see only their own.
func (a Actor) CanAccessDocument(doc *DocumentRecord) bool {
	switch a.Role {
	case RoleSuperadmin:
		return true
	case RoleAdmin:
		if a.CompanyID != "" && doc.CompanyID == a.CompanyID {
			return true
		}
		return doc.UserID == a.ID
	default:
		return doc.UserID == a.ID
	}
}
