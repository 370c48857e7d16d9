package user

import (
	"fmt"
	"strings"
	"time"

	"github.com/frahmantamala/expense-workflow/internal"
	userDatamodel "github.com/frahmantamala/expense-workflow/internal/core/datamodel/user"
)

// Role decides who may act at each approval stage and where a submitter's report is routed.
type Role string

const (
	RoleEmployee Role = "EMPLOYEE"
	RoleManager  Role = "MANAGER"
	RoleCFO      Role = "CFO"
	RoleCEO      Role = "CEO"
)

var Roles = []Role{RoleEmployee, RoleManager, RoleCFO, RoleCEO}

// ParseRole accepts any letter case. Unknown roles are an invalid argument.
func ParseRole(s string) (Role, error) {
	candidate := Role(strings.ToUpper(strings.TrimSpace(s)))
	for _, r := range Roles {
		if r == candidate {
			return r, nil
		}
	}
	return "", internal.NewValidationError(fmt.Sprintf("unknown role %q", s), internal.ErrCodeInvalidRole)
}

func (r Role) String() string {
	return string(r)
}

type User struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Name       string    `json:"name"`
	Role       Role      `json:"role"`
	Department string    `json:"department"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (u *User) Is(role Role) bool {
	return u.Role == role
}

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       string(u.Role),
		Department: u.Department,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// FromDataModel fails on a stored role outside the known set.
func FromDataModel(u *userDatamodel.User) (*User, error) {
	role, err := ParseRole(u.Role)
	if err != nil {
		return nil, internal.NewInternalError(fmt.Sprintf("user %d has unrecognized role", u.ID), err)
	}
	return &User{
		ID:         u.ID,
		Email:      u.Email,
		Name:       u.Name,
		Role:       role,
		Department: u.Department,
		IsActive:   u.IsActive,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}, nil
}
