package services

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/arborhq/arbor/modules/notes/domain/entities/project"
)

// ProjectService manages the ownership scopes notes live in. Every tree
// mutation is pre-checked against project ownership before it reaches the
// ordering engine.
type ProjectService struct {
	repo project.Repository
}

func NewProjectService(repo project.Repository) *ProjectService {
	return &ProjectService{repo: repo}
}

func (s *ProjectService) Create(ctx context.Context, ownerID uuid.UUID, name string) (*project.Project, error) {
	if name == "" {
		return nil, newServiceError(http.StatusBadRequest, "PROJECT_INVALID_NAME", "name is required", nil)
	}
	p := project.New(ownerID, name)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, asServiceError(err)
	}
	return p, nil
}

func (s *ProjectService) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*project.Project, error) {
	projects, err := s.repo.GetByOwner(ctx, ownerID)
	if err != nil {
		return nil, asServiceError(err)
	}
	return projects, nil
}

// GetOwned loads a project and verifies the caller may mutate it.
func (s *ProjectService) GetOwned(ctx context.Context, id, userID uuid.UUID) (*project.Project, error) {
	p, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, asServiceError(err)
	}
	if !p.IsOwnedBy(userID) {
		return nil, newServiceError(http.StatusForbidden, "PROJECT_FORBIDDEN", "caller does not own this project", nil)
	}
	return p, nil
}

func (s *ProjectService) Rename(ctx context.Context, id, userID uuid.UUID, name string) (*project.Project, error) {
	p, err := s.GetOwned(ctx, id, userID)
	if err != nil {
		return nil, err
	}
	p.Rename(name)
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, asServiceError(err)
	}
	return p, nil
}

func (s *ProjectService) Delete(ctx context.Context, id, userID uuid.UUID) error {
	if _, err := s.GetOwned(ctx, id, userID); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return asServiceError(err)
	}
	return nil
}
