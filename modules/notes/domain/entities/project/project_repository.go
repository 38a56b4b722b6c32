package project

import (
	"context"

	"github.com/google/uuid"

	"github.com/arborhq/arbor/pkg/serrors"
)

var ErrProjectNotFound = serrors.NewError("PROJECT_NOT_FOUND", "project not found", "")

type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Project, error)
	GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*Project, error)
	Create(ctx context.Context, p *Project) error
	Update(ctx context.Context, p *Project) error
	Delete(ctx context.Context, id uuid.UUID) error
}
