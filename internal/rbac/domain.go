package rbac

// Role names recognised by the authorization layer.
const (
	RoleAdmin    = "admin"
	RoleDirector = "director"
	RoleManager  = "manager"
	RoleStaff    = "staff"
)

// Permission names follow the "resource:action" convention, for example
// "quotations:create" or "delivery-notes:execute".
type Permission struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Role groups a permission set under a name.
type Role struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}
