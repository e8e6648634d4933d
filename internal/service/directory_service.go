package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/govdesk/internal/domain"
	"github.com/spec-kit/govdesk/internal/persistence"
	"github.com/spec-kit/govdesk/internal/repository"
	apperrors "github.com/spec-kit/govdesk/pkg/util/errorutil"
)

const departmentCachePrefix = "dept:"

// DirectoryService is the read-only department directory. Lookups go through
// a Redis cache; departments are effectively immutable during a booking, so a
// short TTL is plenty.
type DirectoryService struct {
	departments repository.DepartmentRepository
	cache       *persistence.Redis
	logger      *zap.Logger
	ttl         time.Duration
}

// NewDirectoryService constructs the directory. cache may be nil, in which
// case every lookup hits the repository.
func NewDirectoryService(departments repository.DepartmentRepository, cache *persistence.Redis, logger *zap.Logger, ttl time.Duration) *DirectoryService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &DirectoryService{
		departments: departments,
		cache:       cache,
		logger:      logger,
		ttl:         ttl,
	}
}

// GetDepartment resolves a department by id.
func (s *DirectoryService) GetDepartment(ctx context.Context, id string) (*domain.Department, error) {
	if dept := s.cached(ctx, id); dept != nil {
		return dept, nil
	}

	dept, err := s.departments.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("department", map[string]any{"id": id})
		}
		return nil, apperrors.MapError(err)
	}

	s.store(ctx, dept)
	return dept, nil
}

// ListActive returns all departments currently accepting appointments.
func (s *DirectoryService) ListActive(ctx context.Context) ([]domain.Department, error) {
	depts, err := s.departments.ListActive(ctx)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return depts, nil
}

func (s *DirectoryService) cached(ctx context.Context, id string) *domain.Department {
	if s.cache == nil || s.cache.Client == nil {
		return nil
	}
	raw, err := s.cache.Client.Get(ctx, departmentCachePrefix+id).Bytes()
	if err != nil {
		return nil
	}
	var dept domain.Department
	if err := json.Unmarshal(raw, &dept); err != nil {
		s.logger.Warn("corrupt department cache entry", zap.String("id", id), zap.Error(err))
		return nil
	}
	return &dept
}

func (s *DirectoryService) store(ctx context.Context, dept *domain.Department) {
	if s.cache == nil || s.cache.Client == nil {
		return
	}
	raw, err := json.Marshal(dept)
	if err != nil {
		return
	}
	if err := s.cache.Client.Set(ctx, departmentCachePrefix+dept.ID, raw, s.ttl).Err(); err != nil {
		s.logger.Warn("failed to cache department", zap.String("id", dept.ID), zap.Error(err))
	}
}
