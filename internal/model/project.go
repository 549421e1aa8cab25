package model

import (
	"time"

	"github.com/google/uuid"
)

type ProjectStatus string

const (
	ProjectStatusDraft         ProjectStatus = "DRAFT"
	ProjectStatusOpen          ProjectStatus = "OPEN"
	ProjectStatusBiddingClosed ProjectStatus = "BIDDING_CLOSED"
	ProjectStatusMatched       ProjectStatus = "MATCHED"
	ProjectStatusCompleted     ProjectStatus = "COMPLETED"
	ProjectStatusCancelled     ProjectStatus = "CANCELLED"
)

// Project is the read-only snapshot of the project aggregate consumed by the
// bid lifecycle. The bid service never mutates project state.
type Project struct {
	ID          uuid.UUID
	Code        string
	OwnerID     uuid.UUID
	Status      ProjectStatus
	BidDeadline *time.Time
	MaxBids     int
	PublishedAt *time.Time
}
