package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/renolink/bids-service/internal/model"
	"github.com/renolink/bids-service/internal/repository"
)

type fakeProjectStore struct {
	items map[uuid.UUID]*model.Project
}

func (f *fakeProjectStore) GetByID(_ context.Context, id uuid.UUID) (*model.Project, error) {
	project, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *project
	return &copied, nil
}

type fakeContractorStore struct {
	items map[uuid.UUID]*model.Contractor
	stats map[uuid.UUID]model.ContractorStats
}

func (f *fakeContractorStore) GetByID(_ context.Context, id uuid.UUID) (*model.Contractor, error) {
	contractor, ok := f.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *contractor
	return &copied, nil
}

func (f *fakeContractorStore) Stats(_ context.Context, ids []uuid.UUID) (map[uuid.UUID]model.ContractorStats, error) {
	result := make(map[uuid.UUID]model.ContractorStats, len(ids))
	for _, id := range ids {
		if stats, ok := f.stats[id]; ok {
			result[id] = stats
		}
	}
	return result, nil
}

// fakeBidStore mirrors the repository contract, including the transactional
// create checks and the conditional transition semantics.
type fakeBidStore struct {
	bids        map[uuid.UUID]*model.Bid
	projects    *fakeProjectStore
	contractors *fakeContractorStore
	clock       *time.Time

	codeConflicts int
}

func (f *fakeBidStore) Create(_ context.Context, bid *model.Bid) error {
	if f.codeConflicts > 0 {
		f.codeConflicts--
		return repository.ErrCodeConflict
	}

	project, ok := f.projects.items[bid.ProjectID]
	if !ok {
		return repository.ErrNotFound
	}
	if project.Status != model.ProjectStatusOpen {
		return repository.ErrProjectNotOpen
	}

	active := 0
	for _, existing := range f.bids {
		if existing.ProjectID != bid.ProjectID || !existing.Status.Active() {
			continue
		}
		active++
		if existing.ContractorID == bid.ContractorID {
			return repository.ErrActiveBidExists
		}
	}
	if active >= project.MaxBids {
		return repository.ErrBidLimitReached
	}

	bid.ID = uuid.New()
	bid.CreatedAt = f.now()
	bid.UpdatedAt = bid.CreatedAt
	copied := *bid
	f.bids[bid.ID] = &copied
	return nil
}

func (f *fakeBidStore) GetByID(_ context.Context, id uuid.UUID) (*model.Bid, error) {
	bid, ok := f.bids[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *bid
	return &copied, nil
}

func (f *fakeBidStore) UpdateTerms(_ context.Context, id uuid.UUID, update model.BidTermsUpdate) (*model.Bid, error) {
	bid, ok := f.bids[id]
	if !ok || bid.Status != model.BidStatusPending {
		return nil, repository.ErrNotFound
	}
	if update.Price != nil {
		bid.Price = *update.Price
	}
	if update.Timeline != nil {
		bid.Timeline = *update.Timeline
	}
	if update.Proposal != nil {
		bid.Proposal = *update.Proposal
	}
	if update.Attachments != nil {
		bid.Attachments = *update.Attachments
	}
	bid.UpdatedAt = f.now()
	copied := *bid
	return &copied, nil
}

func (f *fakeBidStore) Transition(_ context.Context, id uuid.UUID, transition model.BidTransition) (*model.Bid, error) {
	bid, ok := f.bids[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	allowed := false
	for _, status := range transition.From {
		if bid.Status == status {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, repository.ErrNotFound
	}

	bid.Status = transition.To
	bid.UpdatedAt = f.now()
	if transition.ReviewedBy != nil {
		bid.ReviewedBy = transition.ReviewedBy
		bid.ReviewedAt = transition.ReviewedAt
		bid.ReviewNote = transition.ReviewNote
	}
	copied := *bid
	return &copied, nil
}

func (f *fakeBidStore) ListByProject(_ context.Context, projectID uuid.UUID, statuses []model.BidStatus, q model.ListQuery) ([]model.Bid, error) {
	var matched []model.Bid
	for _, bid := range f.bids {
		if bid.ProjectID != projectID {
			continue
		}
		if len(statuses) > 0 && !containsStatus(statuses, bid.Status) {
			continue
		}
		matched = append(matched, *bid)
	}
	return paginate(sortBids(matched, q), q), nil
}

func (f *fakeBidStore) ListByContractor(_ context.Context, contractorID uuid.UUID, q model.ListQuery) ([]model.Bid, error) {
	var matched []model.Bid
	for _, bid := range f.bids {
		if bid.ContractorID == contractorID {
			matched = append(matched, *bid)
		}
	}
	return paginate(sortBids(matched, q), q), nil
}

func (f *fakeBidStore) ListDetails(_ context.Context, projectID uuid.UUID, statuses []model.BidStatus, q model.ListQuery) ([]model.BidDetail, error) {
	bids, err := f.ListByProject(context.Background(), projectID, statuses, q)
	if err != nil {
		return nil, err
	}
	details := make([]model.BidDetail, 0, len(bids))
	for _, bid := range bids {
		detail := model.BidDetail{Bid: bid}
		if contractor, ok := f.contractors.items[bid.ContractorID]; ok {
			detail.Contractor = *contractor
		}
		details = append(details, detail)
	}
	return details, nil
}

func (f *fakeBidStore) now() time.Time {
	if f.clock != nil {
		return *f.clock
	}
	return time.Now()
}

func containsStatus(statuses []model.BidStatus, status model.BidStatus) bool {
	for _, s := range statuses {
		if s == status {
			return true
		}
	}
	return false
}

func sortBids(bids []model.Bid, q model.ListQuery) []model.Bid {
	asc := q.Order == model.OrderAsc
	sort.Slice(bids, func(i, j int) bool {
		a, b := bids[i], bids[j]
		if !asc {
			a, b = b, a
		}
		if q.Sort == model.SortPrice {
			return a.Price < b.Price
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	return bids
}

func paginate(bids []model.Bid, q model.ListQuery) []model.Bid {
	offset := q.Offset()
	if offset >= len(bids) {
		return nil
	}
	end := len(bids)
	if q.PageSize > 0 && offset+q.PageSize < end {
		end = offset + q.PageSize
	}
	return bids[offset:end]
}

type fakeNotifier struct {
	sent []model.Notification
}

func (f *fakeNotifier) Dispatch(n model.Notification) {
	f.sent = append(f.sent, n)
}

type fakeCodes struct {
	next int
}

func (f *fakeCodes) NewBidCode() string {
	f.next++
	return fmt.Sprintf("BID-TEST%04d", f.next)
}

type fakeRegister struct {
	generated *model.BidRegister
}

func (f *fakeRegister) Generate(register model.BidRegister) ([]byte, error) {
	f.generated = &register
	return []byte("xlsx"), nil
}
