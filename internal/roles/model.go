package roles

// Role is a named permission set.
type Role struct {
	ID          int64    `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Permissions []string `json:"permissions,omitempty"`
}

// SetPermissionsRequest replaces a role's permission set.
type SetPermissionsRequest struct {
	Permissions []string `json:"permissions" validate:"required,dive,min=3"`
}
