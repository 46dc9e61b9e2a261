package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/kesbangpol-dev/perizinan-api/internal/models"
)

// SubmissionRepository appends submission records to the per-service
// collections. Records are immutable once written.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// Append writes exactly one record. The ID and creation timestamp are
// assigned here, at write time, never taken from the client.
func (r *SubmissionRepository) Append(ctx context.Context, submission *models.Submission) error {
	if submission.ID == "" {
		submission.ID = uuid.NewString()
	}
	submission.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO submissions (id, collection, payload, created_at)
	VALUES (:id, :collection, :payload, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, submission); err != nil {
		return fmt.Errorf("append submission to %s: %w", submission.Collection, err)
	}
	return nil
}
