package repository

import (
	"context"
	"time"

	"github.com/mansoorceksport/cohab/internal/domain"
)

const (
	studentByIDKeyPrefix = "student:id:"
	studentCacheTTL      = 5 * time.Minute
)

// CachedStudentRepository wraps MongoStudentRepository with Redis caching.
// Only records are cached; statuses depend on the current day and are always computed.
type CachedStudentRepository struct {
	mongo domain.StudentRepository
	cache *RedisCacheRepository
}

// NewCachedStudentRepository creates a new cached student repository
func NewCachedStudentRepository(mongo domain.StudentRepository, cache *RedisCacheRepository) *CachedStudentRepository {
	return &CachedStudentRepository{
		mongo: mongo,
		cache: cache,
	}
}

// GetByID retrieves a student with caching
func (r *CachedStudentRepository) GetByID(ctx context.Context, id string) (*domain.Student, error) {
	key := studentByIDKeyPrefix + id

	// Try cache first
	var student domain.Student
	if err := r.cache.Get(ctx, key, &student); err == nil {
		return &student, nil
	}

	// Cache miss - fetch from MongoDB
	result, err := r.mongo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	// Store in cache (ignore cache errors)
	_ = r.cache.Set(ctx, key, result, studentCacheTTL)

	return result, nil
}

func (r *CachedStudentRepository) Create(ctx context.Context, student *domain.Student) error {
	if err := r.mongo.Create(ctx, student); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, studentByIDKeyPrefix+student.ID)
	return nil
}

func (r *CachedStudentRepository) Upsert(ctx context.Context, student *domain.Student) (bool, error) {
	inserted, err := r.mongo.Upsert(ctx, student)
	if err != nil {
		return false, err
	}
	_ = r.cache.Delete(ctx, studentByIDKeyPrefix+student.ID)
	return inserted, nil
}

func (r *CachedStudentRepository) Delete(ctx context.Context, id string) error {
	if err := r.mongo.Delete(ctx, id); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, studentByIDKeyPrefix+id)
	return nil
}

func (r *CachedStudentRepository) RecordPayment(ctx context.Context, id string, paidOn time.Time) error {
	if err := r.mongo.RecordPayment(ctx, id, paidOn); err != nil {
		return err
	}
	_ = r.cache.Delete(ctx, studentByIDKeyPrefix+id)
	return nil
}

// === Pass-through methods (no caching) ===

func (r *CachedStudentRepository) Exists(ctx context.Context, id string) (bool, error) {
	return r.mongo.Exists(ctx, id)
}

func (r *CachedStudentRepository) List(ctx context.Context) ([]*domain.Student, error) {
	return r.mongo.List(ctx)
}
