package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

type BidStatus string

const (
	BidStatusPending     BidStatus = "PENDING"
	BidStatusApproved    BidStatus = "APPROVED"
	BidStatusRejected    BidStatus = "REJECTED"
	BidStatusSelected    BidStatus = "SELECTED"
	BidStatusNotSelected BidStatus = "NOT_SELECTED"
	BidStatusWithdrawn   BidStatus = "WITHDRAWN"
)

func ValidBidStatus(s BidStatus) bool {
	switch s {
	case BidStatusPending, BidStatusApproved, BidStatusRejected,
		BidStatusSelected, BidStatusNotSelected, BidStatusWithdrawn:
		return true
	default:
		return false
	}
}

// Terminal reports whether no further transition may leave the status.
// APPROVED is not terminal: it awaits homeowner selection.
func (s BidStatus) Terminal() bool {
	switch s {
	case BidStatusRejected, BidStatusSelected, BidStatusNotSelected, BidStatusWithdrawn:
		return true
	default:
		return false
	}
}

// Active reports whether the bid still occupies the (project, contractor)
// uniqueness slot and counts against the project's bid cap.
func (s BidStatus) Active() bool {
	return s != BidStatusWithdrawn && s != BidStatusRejected
}

type Attachment struct {
	Name string `json:"name"`
	URL  string `json:"url"`
	Type string `json:"type"`
	Size int64  `json:"size"`
}

// AttachmentList is stored as a JSONB column.
type AttachmentList []Attachment

func (a AttachmentList) Value() (driver.Value, error) {
	if a == nil {
		return "[]", nil
	}
	raw, err := json.Marshal(a)
	if err != nil {
		return nil, err
	}
	return string(raw), nil
}

func (a *AttachmentList) Scan(src interface{}) error {
	if src == nil {
		*a = AttachmentList{}
		return nil
	}
	switch value := src.(type) {
	case []byte:
		return json.Unmarshal(value, a)
	case string:
		return json.Unmarshal([]byte(value), a)
	default:
		return fmt.Errorf("attachments: unsupported source type %T", src)
	}
}

type Bid struct {
	ID                uuid.UUID
	Code              string
	ProjectID         uuid.UUID
	ContractorID      uuid.UUID
	Price             float64
	Timeline          string
	Proposal          string
	Attachments       AttachmentList
	ResponseTimeHours *float64 // nil when the project was never published
	Status            BidStatus
	ReviewedBy        *uuid.UUID
	ReviewedAt        *time.Time
	ReviewNote        *string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BidTermsUpdate carries the contractor-editable fields; nil means untouched.
type BidTermsUpdate struct {
	Price       *float64
	Timeline    *string
	Proposal    *string
	Attachments *AttachmentList
}

func (u BidTermsUpdate) Empty() bool {
	return u.Price == nil && u.Timeline == nil && u.Proposal == nil && u.Attachments == nil
}

// BidTransition is a conditional status change: the update applies only while
// the bid is in one of the From statuses.
type BidTransition struct {
	From []BidStatus
	To   BidStatus

	ReviewedBy *uuid.UUID
	ReviewedAt *time.Time
	ReviewNote *string
}

// BidDetail is a bid joined with its contractor, for the admin tier only.
type BidDetail struct {
	Bid        Bid
	Contractor Contractor
}

// BidRegister is the input of the admin XLSX export.
type BidRegister struct {
	Project     Project
	Rows        []BidDetail
	GeneratedAt time.Time
}
