package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/noah-isme/prompt-arena/internal/models"
)

// MemorySubmissionRepository keeps submissions in process memory, sorted by
// rank. A positive capacity bounds the collection by evicting the lowest
// ranked entries.
type MemorySubmissionRepository struct {
	mu       sync.RWMutex
	items    []models.Submission
	nextID   uint
	capacity int
}

// NewMemorySubmissionRepository builds an empty in-memory store.
func NewMemorySubmissionRepository(capacity int) *MemorySubmissionRepository {
	return &MemorySubmissionRepository{capacity: capacity}
}

func (r *MemorySubmissionRepository) Append(_ context.Context, submission *models.Submission) error {
	if submission == nil {
		return ErrNilSubmission
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	submission.ID = r.nextID
	if submission.CreatedAt.IsZero() {
		submission.CreatedAt = time.Now().UTC()
	}

	r.items = append(r.items, *submission)
	sort.SliceStable(r.items, func(i, j int) bool {
		return ranksBefore(r.items[i], r.items[j])
	})

	if r.capacity > 0 && len(r.items) > r.capacity {
		r.items = r.items[:r.capacity]
	}

	return nil
}

func (r *MemorySubmissionRepository) TopByScore(_ context.Context, n int) ([]models.Submission, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	size := len(r.items)
	if n > 0 && n < size {
		size = n
	}

	out := make([]models.Submission, size)
	copy(out, r.items[:size])
	return out, nil
}

func (r *MemorySubmissionRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func ranksBefore(a, b models.Submission) bool {
	if a.Score != b.Score {
		return a.Score > b.Score
	}
	return a.ID < b.ID
}
