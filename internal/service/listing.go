package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/renolink/bids-service/internal/model"
	"github.com/renolink/bids-service/internal/repository"
)

// AnonymousBid is the homeowner-safe projection of a pending bid. It carries
// no field that could identify the contractor: no name, no email, no phone,
// and no contractor id.
type AnonymousBid struct {
	BidID             uuid.UUID            `json:"bidId"`
	AnonymousName     string               `json:"anonymousName"`
	Price             float64              `json:"price"`
	Timeline          string               `json:"timeline"`
	Proposal          string               `json:"proposal"`
	Attachments       model.AttachmentList `json:"attachments"`
	Status            model.BidStatus      `json:"status"`
	CreatedAt         time.Time            `json:"createdAt"`
	Rating            float64              `json:"rating"`
	TotalProjects     int                  `json:"totalProjects"`
	CompletedProjects int                  `json:"completedProjects"`
}

// ListForHomeowner returns the anonymized PENDING bids of a project the
// caller owns. Labels are assigned by result position, so they are only
// stable within a single page of a single request.
func (s *BidService) ListForHomeowner(ctx context.Context, projectID, ownerID uuid.UUID, q model.ListQuery) ([]AnonymousBid, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	if project.OwnerID != ownerID {
		return nil, ErrProjectAccessDenied
	}

	bids, err := s.bids.ListByProject(ctx, projectID, []model.BidStatus{model.BidStatusPending}, s.normalize(q))
	if err != nil {
		return nil, err
	}

	contractorIDs := make([]uuid.UUID, 0, len(bids))
	for _, bid := range bids {
		contractorIDs = append(contractorIDs, bid.ContractorID)
	}
	stats, err := s.contractors.Stats(ctx, contractorIDs)
	if err != nil {
		return nil, err
	}

	result := make([]AnonymousBid, 0, len(bids))
	for i, bid := range bids {
		contractorStats := stats[bid.ContractorID]
		result = append(result, AnonymousBid{
			BidID:             bid.ID,
			AnonymousName:     anonymousLabel(i),
			Price:             bid.Price,
			Timeline:          bid.Timeline,
			Proposal:          bid.Proposal,
			Attachments:       bid.Attachments,
			Status:            bid.Status,
			CreatedAt:         bid.CreatedAt,
			Rating:            contractorStats.Rating,
			TotalProjects:     contractorStats.TotalProjects,
			CompletedProjects: contractorStats.CompletedProjects,
		})
	}
	return result, nil
}

// anonymousLabel maps result positions 0..19 to "Contractor A".."Contractor T"
// and falls back to the numeric form beyond that.
func anonymousLabel(index int) string {
	if index >= 0 && index < 20 {
		return fmt.Sprintf("Contractor %c", 'A'+rune(index))
	}
	return fmt.Sprintf("Contractor %d", index+1)
}

// ListForAdmin returns bids with full contractor detail, optionally filtered
// by status.
func (s *BidService) ListForAdmin(ctx context.Context, projectID uuid.UUID, status *model.BidStatus, q model.ListQuery) ([]model.BidDetail, error) {
	if _, err := s.projects.GetByID(ctx, projectID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	var statuses []model.BidStatus
	if status != nil {
		statuses = []model.BidStatus{*status}
	}
	return s.bids.ListDetails(ctx, projectID, statuses, s.normalize(q))
}

type ExportResult struct {
	FileName string
	Content  []byte
}

// ExportProjectBids builds the XLSX bid register of a project for the admin
// tier. All statuses are included.
func (s *BidService) ExportProjectBids(ctx context.Context, projectID uuid.UUID) (*ExportResult, error) {
	project, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	rows, err := s.bids.ListDetails(ctx, projectID, nil, model.ListQuery{
		Page:     1,
		PageSize: exportPageSize,
		Sort:     model.SortCreatedAt,
		Order:    model.OrderAsc,
	})
	if err != nil {
		return nil, err
	}

	generatedAt := s.now().UTC()
	content, err := s.register.Generate(model.BidRegister{
		Project:     *project,
		Rows:        rows,
		GeneratedAt: generatedAt,
	})
	if err != nil {
		return nil, err
	}

	name := project.Code
	if name == "" {
		name = project.ID.String()
	}
	return &ExportResult{
		FileName: fmt.Sprintf("bids-%s-%s.xlsx", name, generatedAt.Format("20060102")),
		Content:  content,
	}, nil
}

// exportPageSize caps the register at one page; maxBids keeps real projects
// far below it.
const exportPageSize = 1000
