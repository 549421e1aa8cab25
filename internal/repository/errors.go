package repository

import "errors"

var (
	ErrNotFound        = errors.New("record not found")
	ErrProjectNotOpen  = errors.New("project is not open for bidding")
	ErrBidLimitReached = errors.New("project bid limit reached")
	ErrActiveBidExists = errors.New("contractor already has an active bid on project")
	ErrCodeConflict    = errors.New("bid code already taken")
)
