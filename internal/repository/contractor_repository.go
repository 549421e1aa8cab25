package repository

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/renolink/bids-service/internal/model"
)

type ContractorRepository struct {
	db *gorm.DB
}

func NewContractorRepository(db *gorm.DB) *ContractorRepository {
	return &ContractorRepository{db: db}
}

func (r *ContractorRepository) GetByID(ctx context.Context, id uuid.UUID) (*model.Contractor, error) {
	var contractor model.Contractor
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			id,
			name,
			email,
			phone,
			verification_status,
			COALESCE(rating, 0) AS rating,
			COALESCE(total_projects, 0) AS total_projects
		FROM users
		WHERE id = ? AND role = 'CONTRACTOR'
		LIMIT 1
	`, id).Scan(&contractor).Error
	if err != nil {
		return nil, err
	}
	if contractor.ID == uuid.Nil {
		return nil, ErrNotFound
	}
	return &contractor, nil
}

// Stats merges directory metrics with the ranking aggregate. Contractors
// without a ranking row get completed_projects = 0.
func (r *ContractorRepository) Stats(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]model.ContractorStats, error) {
	if len(ids) == 0 {
		return map[uuid.UUID]model.ContractorStats{}, nil
	}

	var rows []struct {
		ContractorID      uuid.UUID
		Rating            float64
		TotalProjects     int
		CompletedProjects int
	}
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			u.id AS contractor_id,
			COALESCE(u.rating, 0) AS rating,
			COALESCE(u.total_projects, 0) AS total_projects,
			COALESCE(cr.completed_projects, 0) AS completed_projects
		FROM users u
		LEFT JOIN contractor_rankings cr ON cr.contractor_id = u.id
		WHERE u.id IN ?
	`, ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	stats := make(map[uuid.UUID]model.ContractorStats, len(rows))
	for _, row := range rows {
		stats[row.ContractorID] = model.ContractorStats{
			Rating:            row.Rating,
			TotalProjects:     row.TotalProjects,
			CompletedProjects: row.CompletedProjects,
		}
	}
	return stats, nil
}
