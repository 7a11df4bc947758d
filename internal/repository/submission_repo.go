package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/prompt-arena/internal/models"
)

// ErrNilSubmission is returned when Append receives no record.
var ErrNilSubmission = errors.New("submission must not be nil")

// SubmissionRepository stores scored submissions and serves them ranked.
type SubmissionRepository interface {
	// Append assigns an id to submission and stores it.
	Append(ctx context.Context, submission *models.Submission) error
	// TopByScore returns at most n submissions ordered by score descending,
	// earlier submissions first on ties. n <= 0 returns every submission.
	TopByScore(ctx context.Context, n int) ([]models.Submission, error)
	Count(ctx context.Context) (int64, error)
}

type submissionRepository struct {
	db *gorm.DB
}

// NewSubmissionRepository instantiates the GORM backed repository.
func NewSubmissionRepository(db *gorm.DB) SubmissionRepository {
	return &submissionRepository{db: db}
}

func (r *submissionRepository) Append(ctx context.Context, submission *models.Submission) error {
	if submission == nil {
		return ErrNilSubmission
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Create(submission).Error
	})
}

func (r *submissionRepository) TopByScore(ctx context.Context, n int) ([]models.Submission, error) {
	query := r.db.WithContext(ctx).Model(&models.Submission{}).Order("score DESC").Order("id ASC")
	if n > 0 {
		query = query.Limit(n)
	}

	var submissions []models.Submission
	if err := query.Find(&submissions).Error; err != nil {
		return nil, err
	}

	return submissions, nil
}

func (r *submissionRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Submission{}).Count(&total).Error; err != nil {
		return 0, err
	}
	return total, nil
}
