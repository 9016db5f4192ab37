package users

import "time"

// User is the administrative view of an account. The password hash never
// leaves this package.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	Role      string    `json:"role"`
	BranchID  int64     `json:"branch_id"`
	IsHQ      bool      `json:"is_hq"`
	IsAdmin   bool      `json:"is_admin"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateUserRequest struct {
	Email    string `json:"email" validate:"required,email"`
	FullName string `json:"full_name" validate:"required,min=1"`
	Password string `json:"password" validate:"required,min=8"`
	Role     string `json:"role" validate:"required,oneof=admin director manager staff"`
	BranchID int64  `json:"branch_id" validate:"required,gt=0"`
	IsHQ     bool   `json:"is_hq"`
}

type UpdateUserRequest struct {
	FullName *string `json:"full_name,omitempty" validate:"omitempty,min=1"`
	Role     *string `json:"role,omitempty" validate:"omitempty,oneof=admin director manager staff"`
	BranchID *int64  `json:"branch_id,omitempty" validate:"omitempty,gt=0"`
	IsHQ     *bool   `json:"is_hq,omitempty"`
	IsActive *bool   `json:"is_active,omitempty"`
}

type ChangePasswordRequest struct {
	Password string `json:"password" validate:"required,min=8"`
}
