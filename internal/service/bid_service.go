package service

import (
	"context"
	"errors"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/renolink/bids-service/internal/config"
	"github.com/renolink/bids-service/internal/model"
	"github.com/renolink/bids-service/internal/repository"
)

// codeAttempts bounds regeneration when a bid code collides on the unique index.
const codeAttempts = 3

type BidStore interface {
	Create(ctx context.Context, bid *model.Bid) error
	GetByID(ctx context.Context, id uuid.UUID) (*model.Bid, error)
	UpdateTerms(ctx context.Context, id uuid.UUID, update model.BidTermsUpdate) (*model.Bid, error)
	Transition(ctx context.Context, id uuid.UUID, transition model.BidTransition) (*model.Bid, error)
	ListByProject(ctx context.Context, projectID uuid.UUID, statuses []model.BidStatus, q model.ListQuery) ([]model.Bid, error)
	ListByContractor(ctx context.Context, contractorID uuid.UUID, q model.ListQuery) ([]model.Bid, error)
	ListDetails(ctx context.Context, projectID uuid.UUID, statuses []model.BidStatus, q model.ListQuery) ([]model.BidDetail, error)
}

type ProjectStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Project, error)
}

type ContractorStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Contractor, error)
	Stats(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.ContractorStats, error)
}

// Notifier delivers best-effort. Dispatch must not block and its outcome
// never influences the lifecycle result.
type Notifier interface {
	Dispatch(n model.Notification)
}

type CodeGenerator interface {
	NewBidCode() string
}

type RegisterGenerator interface {
	Generate(register model.BidRegister) ([]byte, error)
}

type BidService struct {
	bids        BidStore
	projects    ProjectStore
	contractors ContractorStore
	codes       CodeGenerator
	notifier    Notifier
	register    RegisterGenerator
	pageSize    int
	log         zerolog.Logger
	now         func() time.Time
}

func NewBidService(
	bids BidStore,
	projects ProjectStore,
	contractors ContractorStore,
	codes CodeGenerator,
	notifier Notifier,
	register RegisterGenerator,
	cfg *config.Config,
	log zerolog.Logger,
) *BidService {
	pageSize := cfg.Bids.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	return &BidService{
		bids:        bids,
		projects:    projects,
		contractors: contractors,
		codes:       codes,
		notifier:    notifier,
		register:    register,
		pageSize:    pageSize,
		log:         log,
		now:         time.Now,
	}
}

type CreateBidInput struct {
	ContractorID uuid.UUID
	ProjectID    uuid.UUID
	Price        float64
	Timeline     string
	Proposal     string
	Attachments  model.AttachmentList
}

func (s *BidService) Create(ctx context.Context, input CreateBidInput) (*model.Bid, error) {
	contractor, err := s.contractors.GetByID(ctx, input.ContractorID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrContractorNotFound
		}
		return nil, err
	}
	if contractor.VerificationStatus != model.VerificationVerified {
		return nil, ErrContractorNotVerified
	}

	project, err := s.projects.GetByID(ctx, input.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if project.Status != model.ProjectStatusOpen {
		return nil, ErrBidProjectNotOpen
	}
	if project.BidDeadline == nil || !project.BidDeadline.After(s.now()) {
		return nil, ErrBidDeadlinePassed
	}

	bid := &model.Bid{
		ProjectID:         input.ProjectID,
		ContractorID:      input.ContractorID,
		Price:             input.Price,
		Timeline:          input.Timeline,
		Proposal:          input.Proposal,
		Attachments:       input.Attachments,
		ResponseTimeHours: responseTime(project.PublishedAt, s.now()),
		Status:            model.BidStatusPending,
	}
	if bid.Attachments == nil {
		bid.Attachments = model.AttachmentList{}
	}

	for attempt := 0; ; attempt++ {
		bid.Code = s.codes.NewBidCode()
		err = s.bids.Create(ctx, bid)
		if err == nil {
			break
		}
		if errors.Is(err, repository.ErrCodeConflict) && attempt < codeAttempts-1 {
			continue
		}
		return nil, mapCreateError(err)
	}

	s.notifier.Dispatch(model.Notification{
		UserID:  project.OwnerID,
		Type:    model.NotificationBidReceived,
		Title:   "New bid received",
		Content: "A new bid " + bid.Code + " was submitted on your project " + project.Code + ".",
		Data: map[string]string{
			"bidId":       bid.ID.String(),
			"bidCode":     bid.Code,
			"projectId":   project.ID.String(),
			"projectCode": project.Code,
		},
		Channels: []model.NotificationChannel{model.ChannelEmail, model.ChannelPush},
	})

	return bid, nil
}

func mapCreateError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return ErrProjectNotFound
	case errors.Is(err, repository.ErrProjectNotOpen):
		return ErrBidProjectNotOpen
	case errors.Is(err, repository.ErrBidLimitReached):
		return ErrBidMaxReached
	case errors.Is(err, repository.ErrActiveBidExists):
		return ErrBidAlreadyExists
	default:
		return err
	}
}

func (s *BidService) Update(ctx context.Context, bidID, contractorID uuid.UUID, update model.BidTermsUpdate) (*model.Bid, error) {
	bid, err := s.getOwnedBid(ctx, bidID, contractorID)
	if err != nil {
		return nil, err
	}
	if bid.Status != model.BidStatusPending {
		return nil, ErrBidInvalidStatus
	}

	project, err := s.projects.GetByID(ctx, bid.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if project.BidDeadline == nil || !project.BidDeadline.After(s.now()) {
		return nil, ErrBidDeadlinePassed
	}

	if update.Empty() {
		return bid, nil
	}

	updated, err := s.bids.UpdateTerms(ctx, bidID, update)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// The bid left PENDING between the check and the write.
			return nil, ErrBidInvalidStatus
		}
		return nil, err
	}
	return updated, nil
}

// Withdraw succeeds from PENDING or APPROVED. There is deliberately no
// deadline check: a contractor may pull out after bidding closed.
func (s *BidService) Withdraw(ctx context.Context, bidID, contractorID uuid.UUID) (*model.Bid, error) {
	bid, err := s.getOwnedBid(ctx, bidID, contractorID)
	if err != nil {
		return nil, err
	}
	if bid.Status != model.BidStatusPending && bid.Status != model.BidStatusApproved {
		return nil, ErrBidInvalidStatus
	}

	withdrawn, err := s.bids.Transition(ctx, bidID, model.BidTransition{
		From: []model.BidStatus{model.BidStatusPending, model.BidStatusApproved},
		To:   model.BidStatusWithdrawn,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBidInvalidStatus
		}
		return nil, err
	}
	return withdrawn, nil
}

func (s *BidService) Approve(ctx context.Context, bidID, adminID uuid.UUID, note string) (*model.Bid, error) {
	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBidNotFound
		}
		return nil, err
	}
	if bid.Status != model.BidStatusPending {
		return nil, ErrBidInvalidStatus
	}

	// Re-checked because the project may have closed since the bid arrived.
	project, err := s.projects.GetByID(ctx, bid.ProjectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if project.Status != model.ProjectStatusOpen {
		return nil, ErrBidProjectNotOpen
	}

	approved, err := s.review(ctx, bidID, adminID, model.BidStatusApproved, note)
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(model.Notification{
		UserID:  approved.ContractorID,
		Type:    model.NotificationBidApproved,
		Title:   "Your bid was approved",
		Content: "Your bid " + approved.Code + " passed review and is now visible for selection.",
		Data: map[string]string{
			"bidId":     approved.ID.String(),
			"bidCode":   approved.Code,
			"projectId": approved.ProjectID.String(),
		},
		Channels: []model.NotificationChannel{model.ChannelEmail, model.ChannelSMS},
	})

	return approved, nil
}

func (s *BidService) Reject(ctx context.Context, bidID, adminID uuid.UUID, note string) (*model.Bid, error) {
	if note == "" {
		return nil, ErrReviewNoteRequired
	}

	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBidNotFound
		}
		return nil, err
	}
	if bid.Status != model.BidStatusPending {
		return nil, ErrBidInvalidStatus
	}

	rejected, err := s.review(ctx, bidID, adminID, model.BidStatusRejected, note)
	if err != nil {
		return nil, err
	}

	s.notifier.Dispatch(model.Notification{
		UserID:  rejected.ContractorID,
		Type:    model.NotificationBidRejected,
		Title:   "Your bid was rejected",
		Content: "Your bid " + rejected.Code + " did not pass review.",
		Data: map[string]string{
			"bidId":     rejected.ID.String(),
			"bidCode":   rejected.Code,
			"projectId": rejected.ProjectID.String(),
		},
		Channels: []model.NotificationChannel{model.ChannelEmail},
	})

	return rejected, nil
}

// review stamps the review fields atomically with the PENDING exit. A lost
// race against another admin surfaces as BID_INVALID_STATUS.
func (s *BidService) review(ctx context.Context, bidID, adminID uuid.UUID, to model.BidStatus, note string) (*model.Bid, error) {
	reviewedAt := s.now().UTC()
	var reviewNote *string
	if note != "" {
		reviewNote = &note
	}

	reviewed, err := s.bids.Transition(ctx, bidID, model.BidTransition{
		From:       []model.BidStatus{model.BidStatusPending},
		To:         to,
		ReviewedBy: &adminID,
		ReviewedAt: &reviewedAt,
		ReviewNote: reviewNote,
	})
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBidInvalidStatus
		}
		return nil, err
	}
	return reviewed, nil
}

func (s *BidService) Get(ctx context.Context, bidID uuid.UUID, principal model.Principal) (*model.Bid, error) {
	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBidNotFound
		}
		return nil, err
	}
	if !principal.IsAdmin() && bid.ContractorID != principal.UserID {
		return nil, ErrBidAccessDenied
	}
	return bid, nil
}

func (s *BidService) ListForContractor(ctx context.Context, contractorID uuid.UUID, q model.ListQuery) ([]model.Bid, error) {
	return s.bids.ListByContractor(ctx, contractorID, s.normalize(q))
}

func (s *BidService) getOwnedBid(ctx context.Context, bidID, contractorID uuid.UUID) (*model.Bid, error) {
	bid, err := s.bids.GetByID(ctx, bidID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrBidNotFound
		}
		return nil, err
	}
	if bid.ContractorID != contractorID {
		return nil, ErrBidAccessDenied
	}
	return bid, nil
}

func (s *BidService) normalize(q model.ListQuery) model.ListQuery {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PageSize <= 0 {
		q.PageSize = s.pageSize
	}
	if q.Sort == "" {
		q.Sort = model.SortCreatedAt
	}
	if q.Order == "" {
		q.Order = model.OrderDesc
	}
	return q
}

// responseTime is hours between project publish and bid creation, rounded to
// one decimal. Nil when the project was never published.
func responseTime(publishedAt *time.Time, now time.Time) *float64 {
	if publishedAt == nil {
		return nil
	}
	hours := now.Sub(*publishedAt).Hours()
	if hours < 0 {
		hours = 0
	}
	rounded := math.Round(hours*10) / 10
	return &rounded
}
