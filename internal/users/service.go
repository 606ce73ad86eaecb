package users

import (
	"context"

	"github.com/cineverse/cineverse/backend/go-services/internal/models"
)

// Service encapsulates read-side user lookups for the API handlers. All
// writes go through the webhook synchronizer, never through this service.
type Service struct {
	repo Repository
}

func NewService(r Repository) *Service {
	return &Service{repo: r}
}

func (s *Service) GetBySubject(ctx context.Context, subjectID string) (*models.User, error) {
	return s.repo.FindBySubject(ctx, subjectID)
}
