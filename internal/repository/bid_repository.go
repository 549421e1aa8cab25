package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"github.com/renolink/bids-service/internal/model"
)

const bidColumns = `
	id,
	code,
	project_id,
	contractor_id,
	price,
	timeline,
	proposal,
	attachments,
	response_time_hours,
	status,
	reviewed_by,
	reviewed_at,
	review_note,
	created_at,
	updated_at`

type BidRepository struct {
	db *gorm.DB
}

func NewBidRepository(db *gorm.DB) *BidRepository {
	return &BidRepository{db: db}
}

// Create inserts the bid while holding a lock on the project row, so the
// OPEN check, the bid cap and the active-bid uniqueness cannot be raced by a
// concurrent creation or by the project closing mid-request. The partial
// unique index on (project_id, contractor_id) is the backstop.
func (r *BidRepository) Create(ctx context.Context, bid *model.Bid) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var project struct {
			ID      uuid.UUID
			Status  string
			MaxBids int
		}
		err := tx.Raw(`
			SELECT id, status, max_bids
			FROM projects
			WHERE id = ?
			FOR UPDATE
		`, bid.ProjectID).Scan(&project).Error
		if err != nil {
			return err
		}
		if project.ID == uuid.Nil {
			return ErrNotFound
		}
		if project.Status != string(model.ProjectStatusOpen) {
			return ErrProjectNotOpen
		}

		var activeCount int64
		err = tx.Raw(`
			SELECT COUNT(*)
			FROM bids
			WHERE project_id = ?
				AND status NOT IN ('WITHDRAWN', 'REJECTED')
		`, bid.ProjectID).Scan(&activeCount).Error
		if err != nil {
			return err
		}
		if activeCount >= int64(project.MaxBids) {
			return ErrBidLimitReached
		}

		var duplicateCount int64
		err = tx.Raw(`
			SELECT COUNT(*)
			FROM bids
			WHERE project_id = ?
				AND contractor_id = ?
				AND status NOT IN ('WITHDRAWN', 'REJECTED')
		`, bid.ProjectID, bid.ContractorID).Scan(&duplicateCount).Error
		if err != nil {
			return err
		}
		if duplicateCount > 0 {
			return ErrActiveBidExists
		}

		var saved model.Bid
		err = tx.Raw(`
			INSERT INTO bids (
				code,
				project_id,
				contractor_id,
				price,
				timeline,
				proposal,
				attachments,
				response_time_hours,
				status
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			RETURNING `+bidColumns,
			bid.Code,
			bid.ProjectID,
			bid.ContractorID,
			bid.Price,
			bid.Timeline,
			bid.Proposal,
			bid.Attachments,
			bid.ResponseTimeHours,
			bid.Status,
		).Scan(&saved).Error
		if err != nil {
			return translateUniqueViolation(err)
		}

		*bid = saved
		return nil
	})
}

func (r *BidRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Bid, error) {
	var bid model.Bid
	err := r.db.WithContext(ctx).Raw(`
		SELECT `+bidColumns+`
		FROM bids
		WHERE id = ?
		LIMIT 1
	`, id).Scan(&bid).Error
	if err != nil {
		return nil, err
	}
	if bid.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &bid, nil
}

// UpdateTerms overwrites only the supplied fields and only while the bid is
// still PENDING; a bid that moved on returns ErrNotFound so the caller can
// tell a missing bid from a lost race.
func (r *BidRepository) UpdateTerms(ctx context.Context, id uuid.UUID, update model.BidTermsUpdate) (*model.Bid, error) {
	sets := []string{"updated_at = NOW()"}
	args := []interface{}{}

	if update.Price != nil {
		sets = append(sets, "price = ?")
		args = append(args, *update.Price)
	}
	if update.Timeline != nil {
		sets = append(sets, "timeline = ?")
		args = append(args, *update.Timeline)
	}
	if update.Proposal != nil {
		sets = append(sets, "proposal = ?")
		args = append(args, *update.Proposal)
	}
	if update.Attachments != nil {
		sets = append(sets, "attachments = ?")
		args = append(args, *update.Attachments)
	}
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE bids
		SET %s
		WHERE id = ? AND status = 'PENDING'
		RETURNING %s
	`, strings.Join(sets, ", "), bidColumns)

	var bid model.Bid
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&bid).Error; err != nil {
		return nil, err
	}
	if bid.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &bid, nil
}

// Transition applies a conditional single-statement status change. When no
// row matches (bid missing or already out of the From set) it returns
// ErrNotFound; two racing admins cannot both win.
func (r *BidRepository) Transition(ctx context.Context, id uuid.UUID, transition model.BidTransition) (*model.Bid, error) {
	if len(transition.From) == 0 {
		return nil, fmt.Errorf("bid transition: empty source status set")
	}

	sets := []string{"status = ?", "updated_at = NOW()"}
	args := []interface{}{transition.To}

	if transition.ReviewedBy != nil {
		sets = append(sets, "reviewed_by = ?", "reviewed_at = ?", "review_note = ?")
		args = append(args, *transition.ReviewedBy, transition.ReviewedAt, transition.ReviewNote)
	}

	placeholders := make([]string, len(transition.From))
	for i, status := range transition.From {
		placeholders[i] = "?"
		args = append(args, status)
	}
	args = append(args, id)

	query := fmt.Sprintf(`
		UPDATE bids
		SET %s
		WHERE status IN (%s) AND id = ?
		RETURNING %s
	`, strings.Join(sets, ", "), strings.Join(placeholders, ","), bidColumns)

	var bid model.Bid
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&bid).Error; err != nil {
		return nil, err
	}
	if bid.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &bid, nil
}

func (r *BidRepository) ListByProject(ctx context.Context, projectID uuid.UUID, statuses []model.BidStatus, q model.ListQuery) ([]model.Bid, error) {
	query := `
		SELECT ` + bidColumns + `
		FROM bids
		WHERE project_id = ?`
	args := []interface{}{projectID}

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += fmt.Sprintf(" AND status IN (%s)", strings.Join(placeholders, ","))
	}

	query += fmt.Sprintf(" ORDER BY %s LIMIT ? OFFSET ?", orderClause(q))
	args = append(args, q.PageSize, q.Offset())

	var bids []model.Bid
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&bids).Error; err != nil {
		return nil, err
	}
	return bids, nil
}

func (r *BidRepository) ListByContractor(ctx context.Context, contractorID uuid.UUID, q model.ListQuery) ([]model.Bid, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM bids
		WHERE contractor_id = ?
		ORDER BY %s
		LIMIT ? OFFSET ?
	`, bidColumns, orderClause(q))

	var bids []model.Bid
	err := r.db.WithContext(ctx).Raw(query, contractorID, q.PageSize, q.Offset()).Scan(&bids).Error
	if err != nil {
		return nil, err
	}
	return bids, nil
}

// ListDetails joins contractor directory fields for the admin tier.
func (r *BidRepository) ListDetails(ctx context.Context, projectID uuid.UUID, statuses []model.BidStatus, q model.ListQuery) ([]model.BidDetail, error) {
	query := `
		SELECT
			b.id,
			b.code,
			b.project_id,
			b.contractor_id,
			b.price,
			b.timeline,
			b.proposal,
			b.attachments,
			b.response_time_hours,
			b.status,
			b.reviewed_by,
			b.reviewed_at,
			b.review_note,
			b.created_at,
			b.updated_at,
			u.name AS contractor_name,
			u.email AS contractor_email,
			u.phone AS contractor_phone,
			u.verification_status AS contractor_verification,
			COALESCE(u.rating, 0) AS contractor_rating,
			COALESCE(u.total_projects, 0) AS contractor_total_projects
		FROM bids b
		JOIN users u ON u.id = b.contractor_id
		WHERE b.project_id = ?`
	args := []interface{}{projectID}

	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, status)
		}
		query += fmt.Sprintf(" AND b.status IN (%s)", strings.Join(placeholders, ","))
	}

	query += fmt.Sprintf(" ORDER BY b.%s LIMIT ? OFFSET ?", orderClause(q))
	args = append(args, q.PageSize, q.Offset())

	var rows []bidDetailRow
	if err := r.db.WithContext(ctx).Raw(query, args...).Scan(&rows).Error; err != nil {
		return nil, err
	}

	details := make([]model.BidDetail, 0, len(rows))
	for _, row := range rows {
		details = append(details, row.toDetail())
	}
	return details, nil
}

type bidDetailRow struct {
	ID                uuid.UUID
	Code              string
	ProjectID         uuid.UUID
	ContractorID      uuid.UUID
	Price             float64
	Timeline          string
	Proposal          string
	Attachments       model.AttachmentList
	ResponseTimeHours *float64
	Status            string
	ReviewedBy        *uuid.UUID
	ReviewedAt        *time.Time
	ReviewNote        *string
	CreatedAt         time.Time
	UpdatedAt         time.Time

	ContractorName          string
	ContractorEmail         string
	ContractorPhone         string
	ContractorVerification  string
	ContractorRating        float64
	ContractorTotalProjects int
}

func (row bidDetailRow) toDetail() model.BidDetail {
	return model.BidDetail{
		Bid: model.Bid{
			ID:                row.ID,
			Code:              row.Code,
			ProjectID:         row.ProjectID,
			ContractorID:      row.ContractorID,
			Price:             row.Price,
			Timeline:          row.Timeline,
			Proposal:          row.Proposal,
			Attachments:       row.Attachments,
			ResponseTimeHours: row.ResponseTimeHours,
			Status:            model.BidStatus(row.Status),
			ReviewedBy:        row.ReviewedBy,
			ReviewedAt:        row.ReviewedAt,
			ReviewNote:        row.ReviewNote,
			CreatedAt:         row.CreatedAt,
			UpdatedAt:         row.UpdatedAt,
		},
		Contractor: model.Contractor{
			ID:                 row.ContractorID,
			Name:               row.ContractorName,
			Email:              row.ContractorEmail,
			Phone:              row.ContractorPhone,
			VerificationStatus: model.VerificationStatus(row.ContractorVerification),
			Rating:             row.ContractorRating,
			TotalProjects:      row.ContractorTotalProjects,
		},
	}
}

func orderClause(q model.ListQuery) string {
	column := "created_at"
	if q.Sort == model.SortPrice {
		column = "price"
	}
	direction := "DESC"
	if q.Order == model.OrderAsc {
		direction = "ASC"
	}
	return column + " " + direction
}

func translateUniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		switch pgErr.ConstraintName {
		case "uq_bids_code":
			return ErrCodeConflict
		case "uq_bids_active":
			return ErrActiveBidExists
		}
	}
	return err
}
