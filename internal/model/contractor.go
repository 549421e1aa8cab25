package model

import "github.com/google/uuid"

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "PENDING"
	VerificationVerified VerificationStatus = "VERIFIED"
	VerificationRejected VerificationStatus = "REJECTED"
)

// Contractor is the directory snapshot of a contractor account. Name, email
// and phone are PII and must never cross the homeowner projection.
type Contractor struct {
	ID                 uuid.UUID
	Name               string
	Email              string
	Phone              string
	VerificationStatus VerificationStatus
	Rating             float64
	TotalProjects      int
}

// ContractorStats are the aggregate reputation metrics safe to expose to
// homeowners. CompletedProjects comes from the ranking aggregate and
// defaults to 0 when absent.
type ContractorStats struct {
	Rating            float64
	TotalProjects     int
	CompletedProjects int
}
