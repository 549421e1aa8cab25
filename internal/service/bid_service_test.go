package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/renolink/bids-service/internal/config"
	"github.com/renolink/bids-service/internal/model"
)

type testEnv struct {
	svc         *BidService
	bids        *fakeBidStore
	projects    *fakeProjectStore
	contractors *fakeContractorStore
	notifier    *fakeNotifier
	register    *fakeRegister

	now time.Time

	ownerID      uuid.UUID
	contractorID uuid.UUID
	adminID      uuid.UUID
	projectID    uuid.UUID
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)
	deadline := now.Add(48 * time.Hour)
	published := now.Add(-24 * time.Hour)

	env := &testEnv{
		now:          now,
		ownerID:      uuid.New(),
		contractorID: uuid.New(),
		adminID:      uuid.New(),
		projectID:    uuid.New(),
	}

	env.projects = &fakeProjectStore{items: map[uuid.UUID]*model.Project{
		env.projectID: {
			ID:          env.projectID,
			Code:        "PRJ-1001",
			OwnerID:     env.ownerID,
			Status:      model.ProjectStatusOpen,
			BidDeadline: &deadline,
			MaxBids:     20,
			PublishedAt: &published,
		},
	}}
	env.contractors = &fakeContractorStore{
		items: map[uuid.UUID]*model.Contractor{
			env.contractorID: {
				ID:                 env.contractorID,
				Name:               "Acme Renovations",
				Email:              "acme@example.com",
				Phone:              "+15550001111",
				VerificationStatus: model.VerificationVerified,
				Rating:             4.5,
				TotalProjects:      12,
			},
		},
		stats: map[uuid.UUID]model.ContractorStats{},
	}
	env.bids = &fakeBidStore{
		bids:        map[uuid.UUID]*model.Bid{},
		projects:    env.projects,
		contractors: env.contractors,
		clock:       &env.now,
	}
	env.notifier = &fakeNotifier{}
	env.register = &fakeRegister{}

	cfg := &config.Config{Bids: config.BidsConfig{PageSize: 20}}
	env.svc = NewBidService(env.bids, env.projects, env.contractors, &fakeCodes{}, env.notifier, env.register, cfg, zerolog.Nop())
	env.svc.now = func() time.Time { return env.now }

	return env
}

func (env *testEnv) createInput() CreateBidInput {
	return CreateBidInput{
		ContractorID: env.contractorID,
		ProjectID:    env.projectID,
		Price:        1_000_000,
		Timeline:     "2 weeks",
		Proposal:     "Full kitchen remodel",
	}
}

func (env *testEnv) addContractor(verification model.VerificationStatus) uuid.UUID {
	id := uuid.New()
	env.contractors.items[id] = &model.Contractor{
		ID:                 id,
		Name:               "Contractor " + id.String()[:8],
		VerificationStatus: verification,
	}
	return id
}

func (env *testEnv) project() *model.Project {
	return env.projects.items[env.projectID]
}

func TestCreateBid(t *testing.T) {
	env := newTestEnv(t)

	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	assert.Equal(t, model.BidStatusPending, bid.Status)
	assert.Equal(t, "BID-TEST0001", bid.Code)
	assert.Equal(t, float64(1_000_000), bid.Price)
	require.NotNil(t, bid.ResponseTimeHours)
	assert.Equal(t, 24.0, *bid.ResponseTimeHours)
	assert.NotEqual(t, uuid.Nil, bid.ID)

	require.Len(t, env.notifier.sent, 1)
	received := env.notifier.sent[0]
	assert.Equal(t, model.NotificationBidReceived, received.Type)
	assert.Equal(t, env.ownerID, received.UserID)
	assert.Equal(t, bid.Code, received.Data["bidCode"])
}

func TestCreateBidResponseTimeRounding(t *testing.T) {
	env := newTestEnv(t)
	published := env.now.Add(-90 * time.Minute)
	env.project().PublishedAt = &published

	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)
	require.NotNil(t, bid.ResponseTimeHours)
	assert.Equal(t, 1.5, *bid.ResponseTimeHours)
}

func TestCreateBidUnpublishedProject(t *testing.T) {
	env := newTestEnv(t)
	env.project().PublishedAt = nil

	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)
	assert.Nil(t, bid.ResponseTimeHours)
}

func TestCreateBidContractorNotVerified(t *testing.T) {
	env := newTestEnv(t)

	for _, verification := range []model.VerificationStatus{model.VerificationPending, model.VerificationRejected} {
		t.Run(string(verification), func(t *testing.T) {
			input := env.createInput()
			input.ContractorID = env.addContractor(verification)

			_, err := env.svc.Create(context.Background(), input)
			assert.ErrorIs(t, err, ErrContractorNotVerified)
		})
	}
}

func TestCreateBidContractorNotFound(t *testing.T) {
	env := newTestEnv(t)
	input := env.createInput()
	input.ContractorID = uuid.New()

	_, err := env.svc.Create(context.Background(), input)
	assert.ErrorIs(t, err, ErrContractorNotFound)
}

func TestCreateBidProjectNotFound(t *testing.T) {
	env := newTestEnv(t)
	input := env.createInput()
	input.ProjectID = uuid.New()

	_, err := env.svc.Create(context.Background(), input)
	assert.ErrorIs(t, err, ErrProjectNotFound)
}

func TestCreateBidProjectNotOpen(t *testing.T) {
	env := newTestEnv(t)

	closed := []model.ProjectStatus{
		model.ProjectStatusDraft,
		model.ProjectStatusBiddingClosed,
		model.ProjectStatusMatched,
		model.ProjectStatusCompleted,
		model.ProjectStatusCancelled,
	}
	for _, status := range closed {
		t.Run(string(status), func(t *testing.T) {
			env.project().Status = status

			_, err := env.svc.Create(context.Background(), env.createInput())
			assert.ErrorIs(t, err, ErrBidProjectNotOpen)
		})
	}
}

func TestCreateBidDeadlinePassed(t *testing.T) {
	env := newTestEnv(t)

	passed := env.now.Add(-time.Hour)
	env.project().BidDeadline = &passed
	_, err := env.svc.Create(context.Background(), env.createInput())
	assert.ErrorIs(t, err, ErrBidDeadlinePassed)

	env.project().BidDeadline = nil
	_, err = env.svc.Create(context.Background(), env.createInput())
	assert.ErrorIs(t, err, ErrBidDeadlinePassed)
}

func TestCreateBidMaxReached(t *testing.T) {
	env := newTestEnv(t)
	env.project().MaxBids = 5

	for i := 0; i < 5; i++ {
		input := env.createInput()
		input.ContractorID = env.addContractor(model.VerificationVerified)
		_, err := env.svc.Create(context.Background(), input)
		require.NoError(t, err)
	}

	_, err := env.svc.Create(context.Background(), env.createInput())
	assert.ErrorIs(t, err, ErrBidMaxReached)
}

func TestCreateBidAlreadyExists(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	_, err = env.svc.Create(context.Background(), env.createInput())
	assert.ErrorIs(t, err, ErrBidAlreadyExists)

	// Withdrawing frees the slot for a fresh bid.
	_, err = env.svc.Withdraw(context.Background(), first.ID, env.contractorID)
	require.NoError(t, err)

	_, err = env.svc.Create(context.Background(), env.createInput())
	assert.NoError(t, err)
}

func TestCreateBidSlotFreedAfterRejection(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	_, err = env.svc.Reject(context.Background(), first.ID, env.adminID, "incomplete proposal")
	require.NoError(t, err)

	_, err = env.svc.Create(context.Background(), env.createInput())
	assert.NoError(t, err)
}

func TestCreateBidRetriesCodeConflict(t *testing.T) {
	env := newTestEnv(t)
	env.bids.codeConflicts = 2

	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)
	assert.Equal(t, "BID-TEST0003", bid.Code)
}

func TestUpdateBid(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	newPrice := 950_000.0
	updated, err := env.svc.Update(context.Background(), bid.ID, env.contractorID, model.BidTermsUpdate{
		Price: &newPrice,
	})
	require.NoError(t, err)

	assert.Equal(t, newPrice, updated.Price)
	assert.Equal(t, "2 weeks", updated.Timeline, "untouched fields must survive")
	assert.Equal(t, "Full kitchen remodel", updated.Proposal)
}

func TestUpdateBidNotOwner(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	timeline := "3 weeks"
	_, err = env.svc.Update(context.Background(), bid.ID, uuid.New(), model.BidTermsUpdate{Timeline: &timeline})
	assert.ErrorIs(t, err, ErrBidAccessDenied)
}

func TestUpdateBidNotFound(t *testing.T) {
	env := newTestEnv(t)

	timeline := "3 weeks"
	_, err := env.svc.Update(context.Background(), uuid.New(), env.contractorID, model.BidTermsUpdate{Timeline: &timeline})
	assert.ErrorIs(t, err, ErrBidNotFound)
}

func TestUpdateBidNotPending(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)
	_, err = env.svc.Approve(context.Background(), bid.ID, env.adminID, "")
	require.NoError(t, err)

	timeline := "3 weeks"
	_, err = env.svc.Update(context.Background(), bid.ID, env.contractorID, model.BidTermsUpdate{Timeline: &timeline})
	assert.ErrorIs(t, err, ErrBidInvalidStatus)
}

func TestUpdateBidDeadlinePassed(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	env.now = env.now.Add(72 * time.Hour)

	timeline := "3 weeks"
	_, err = env.svc.Update(context.Background(), bid.ID, env.contractorID, model.BidTermsUpdate{Timeline: &timeline})
	assert.ErrorIs(t, err, ErrBidDeadlinePassed)
}

func TestWithdraw(t *testing.T) {
	env := newTestEnv(t)

	t.Run("pending", func(t *testing.T) {
		bid, err := env.svc.Create(context.Background(), env.createInput())
		require.NoError(t, err)

		withdrawn, err := env.svc.Withdraw(context.Background(), bid.ID, env.contractorID)
		require.NoError(t, err)
		assert.Equal(t, model.BidStatusWithdrawn, withdrawn.Status)
	})

	t.Run("approved", func(t *testing.T) {
		bid, err := env.svc.Create(context.Background(), env.createInput())
		require.NoError(t, err)
		_, err = env.svc.Approve(context.Background(), bid.ID, env.adminID, "")
		require.NoError(t, err)

		withdrawn, err := env.svc.Withdraw(context.Background(), bid.ID, env.contractorID)
		require.NoError(t, err)
		assert.Equal(t, model.BidStatusWithdrawn, withdrawn.Status)
	})
}

func TestWithdrawAfterDeadline(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	env.now = env.now.Add(72 * time.Hour)

	withdrawn, err := env.svc.Withdraw(context.Background(), bid.ID, env.contractorID)
	require.NoError(t, err)
	assert.Equal(t, model.BidStatusWithdrawn, withdrawn.Status)
}

func TestWithdrawTerminalStatus(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)
	_, err = env.svc.Reject(context.Background(), bid.ID, env.adminID, "no")
	require.NoError(t, err)

	_, err = env.svc.Withdraw(context.Background(), bid.ID, env.contractorID)
	assert.ErrorIs(t, err, ErrBidInvalidStatus)
}

func TestApprove(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)
	env.notifier.sent = nil

	approved, err := env.svc.Approve(context.Background(), bid.ID, env.adminID, "ok")
	require.NoError(t, err)

	assert.Equal(t, model.BidStatusApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, env.adminID, *approved.ReviewedBy)
	require.NotNil(t, approved.ReviewedAt)
	require.NotNil(t, approved.ReviewNote)
	assert.Equal(t, "ok", *approved.ReviewNote)

	require.Len(t, env.notifier.sent, 1)
	notification := env.notifier.sent[0]
	assert.Equal(t, model.NotificationBidApproved, notification.Type)
	assert.Equal(t, env.contractorID, notification.UserID)
	assert.Equal(t, []model.NotificationChannel{model.ChannelEmail, model.ChannelSMS}, notification.Channels)
}

func TestApproveTwice(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	_, err = env.svc.Approve(context.Background(), bid.ID, env.adminID, "ok")
	require.NoError(t, err)

	_, err = env.svc.Approve(context.Background(), bid.ID, env.adminID, "ok")
	assert.ErrorIs(t, err, ErrBidInvalidStatus)
}

func TestApproveProjectNoLongerOpen(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	env.project().Status = model.ProjectStatusBiddingClosed

	_, err = env.svc.Approve(context.Background(), bid.ID, env.adminID, "")
	assert.ErrorIs(t, err, ErrBidProjectNotOpen)
}

func TestApproveNotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.svc.Approve(context.Background(), uuid.New(), env.adminID, "")
	assert.ErrorIs(t, err, ErrBidNotFound)
}

func TestReject(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	rejected, err := env.svc.Reject(context.Background(), bid.ID, env.adminID, "incomplete proposal")
	require.NoError(t, err)

	assert.Equal(t, model.BidStatusRejected, rejected.Status)
	require.NotNil(t, rejected.ReviewNote)
	assert.Equal(t, "incomplete proposal", *rejected.ReviewNote)
}

func TestRejectRequiresNote(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	_, err = env.svc.Reject(context.Background(), bid.ID, env.adminID, "")
	assert.ErrorIs(t, err, ErrReviewNoteRequired)
}

func TestRejectNotPending(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)
	_, err = env.svc.Withdraw(context.Background(), bid.ID, env.contractorID)
	require.NoError(t, err)

	_, err = env.svc.Reject(context.Background(), bid.ID, env.adminID, "late")
	assert.ErrorIs(t, err, ErrBidInvalidStatus)
}

func TestGetBidAccess(t *testing.T) {
	env := newTestEnv(t)
	bid, err := env.svc.Create(context.Background(), env.createInput())
	require.NoError(t, err)

	_, err = env.svc.Get(context.Background(), bid.ID, model.Principal{UserID: env.contractorID, Role: model.RoleContractor})
	assert.NoError(t, err)

	_, err = env.svc.Get(context.Background(), bid.ID, model.Principal{UserID: env.adminID, Role: model.RoleAdmin})
	assert.NoError(t, err)

	_, err = env.svc.Get(context.Background(), bid.ID, model.Principal{UserID: uuid.New(), Role: model.RoleContractor})
	assert.ErrorIs(t, err, ErrBidAccessDenied)
}

func TestResponseTime(t *testing.T) {
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	t.Run("nil when never published", func(t *testing.T) {
		assert.Nil(t, responseTime(nil, now))
	})

	t.Run("rounded to one decimal", func(t *testing.T) {
		published := now.Add(-100 * time.Minute)
		got := responseTime(&published, now)
		require.NotNil(t, got)
		assert.Equal(t, 1.7, *got)
	})

	t.Run("clamped at zero", func(t *testing.T) {
		published := now.Add(10 * time.Minute)
		got := responseTime(&published, now)
		require.NotNil(t, got)
		assert.Equal(t, 0.0, *got)
	})
}
