package valueobject

import "github.com/ignatzorin/research-review/internal/pkg/apperror"

type Role string

const (
	RoleProponent        Role = "proponent"
	RoleRnDStaff         Role = "rnd_staff"
	RoleEvaluator        Role = "evaluator"
	RoleCommittee        Role = "committee"
	RoleFundingAuthority Role = "funding_authority"
	RoleAdmin            Role = "admin"
	RoleSystem           Role = "system"
)

func (r Role) IsValid() bool {
	switch r {
	case RoleProponent, RoleRnDStaff, RoleEvaluator, RoleCommittee, RoleFundingAuthority, RoleAdmin, RoleSystem:
		return true
	}
	return false
}

// IsStaff: сотрудники, которым разрешено управлять назначениями экспертов.
func (r Role) IsStaff() bool {
	return r == RoleRnDStaff || r == RoleAdmin
}

func NewRole(role string) (Role, error) {
	r := Role(role)
	if !r.IsValid() {
		return "", apperror.New(apperror.ErrCodeValidation, "некорректная роль")
	}
	return r, nil
}
