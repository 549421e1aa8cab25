package model

import "github.com/google/uuid"

type Role string

const (
	RoleHomeowner  Role = "HOMEOWNER"
	RoleContractor Role = "CONTRACTOR"
	RoleAdmin      Role = "ADMIN"
)

// Principal is the authenticated caller extracted from the access token.
type Principal struct {
	UserID uuid.UUID
	Role   Role
}

func (p Principal) IsHomeowner() bool  { return p.Role == RoleHomeowner }
func (p Principal) IsContractor() bool { return p.Role == RoleContractor }
func (p Principal) IsAdmin() bool      { return p.Role == RoleAdmin }
