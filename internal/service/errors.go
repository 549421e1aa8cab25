package service

// Error is a rejected business operation carrying the machine-readable code
// exposed to API clients. Infrastructure failures are never wrapped in it.
type Error struct {
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

var (
	ErrBidNotFound        = &Error{Code: "BID_NOT_FOUND", Message: "bid not found"}
	ErrProjectNotFound    = &Error{Code: "PROJECT_NOT_FOUND", Message: "project not found"}
	ErrContractorNotFound = &Error{Code: "CONTRACTOR_NOT_FOUND", Message: "contractor not found"}

	ErrBidAccessDenied       = &Error{Code: "BID_ACCESS_DENIED", Message: "no access to this bid"}
	ErrProjectAccessDenied   = &Error{Code: "PROJECT_ACCESS_DENIED", Message: "no access to this project"}
	ErrContractorNotVerified = &Error{Code: "CONTRACTOR_NOT_VERIFIED", Message: "contractor is not verified"}

	ErrBidInvalidStatus  = &Error{Code: "BID_INVALID_STATUS", Message: "bid status does not allow this operation"}
	ErrBidProjectNotOpen = &Error{Code: "BID_PROJECT_NOT_OPEN", Message: "project is not open for bidding"}
	ErrBidDeadlinePassed = &Error{Code: "BID_DEADLINE_PASSED", Message: "bid deadline has passed"}
	ErrBidMaxReached     = &Error{Code: "BID_MAX_REACHED", Message: "project reached its maximum number of bids"}

	ErrBidAlreadyExists = &Error{Code: "BID_ALREADY_EXISTS", Message: "contractor already has an active bid on this project"}

	ErrReviewNoteRequired = &Error{Code: "REVIEW_NOTE_REQUIRED", Message: "a review note is required to reject a bid"}
)
