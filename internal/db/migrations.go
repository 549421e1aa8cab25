package db

import (
	"fmt"

	"gorm.io/gorm"
)

// Projects, users and contractor_rankings are owned by other services; the
// bid service only references them.
var migrationStatements = []string{
	`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`,
	`DO $$
	BEGIN
		IF NOT EXISTS (SELECT 1 FROM pg_type WHERE typname = 'bid_status') THEN
			CREATE TYPE bid_status AS ENUM ('PENDING', 'APPROVED', 'REJECTED', 'SELECTED', 'NOT_SELECTED', 'WITHDRAWN');
		END IF;
	END
	$$;`,
	`CREATE TABLE IF NOT EXISTS bids (
		id UUID PRIMARY KEY DEFAULT uuid_generate_v4(),
		code VARCHAR(32) NOT NULL,
		project_id UUID NOT NULL REFERENCES projects(id),
		contractor_id UUID NOT NULL REFERENCES users(id),
		price NUMERIC(14,2) NOT NULL CHECK (price > 0),
		timeline TEXT NOT NULL DEFAULT '',
		proposal TEXT NOT NULL DEFAULT '',
		attachments JSONB NOT NULL DEFAULT '[]'::jsonb,
		response_time_hours NUMERIC(10,1),
		status bid_status NOT NULL DEFAULT 'PENDING',
		reviewed_by UUID REFERENCES users(id),
		reviewed_at TIMESTAMPTZ,
		review_note TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bids_code ON bids (code);`,
	`CREATE UNIQUE INDEX IF NOT EXISTS uq_bids_active ON bids (project_id, contractor_id) WHERE status NOT IN ('WITHDRAWN', 'REJECTED');`,
	`CREATE INDEX IF NOT EXISTS idx_bids_project_id ON bids (project_id);`,
	`CREATE INDEX IF NOT EXISTS idx_bids_contractor_id ON bids (contractor_id);`,
	`CREATE INDEX IF NOT EXISTS idx_bids_status ON bids (status);`,
}

func runMigrations(db *gorm.DB) error {
	for i, stmt := range migrationStatements {
		if err := db.Exec(stmt).Error; err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}
	return nil
}
