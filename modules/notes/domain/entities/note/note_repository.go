package note

import (
	"context"

	"github.com/google/uuid"

	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
	"github.com/arborhq/arbor/pkg/serrors"
)

var (
	ErrNoteNotFound  = serrors.NewError("NOTE_NOT_FOUND", "note not found", "")
	ErrInvalidParent = serrors.NewError("NOTE_INVALID_PARENT", "parent missing or in another project", "")
	ErrCycle         = serrors.NewError("NOTE_CYCLE", "reparent would create a cycle", "")
)

// Repository is the persistence collaborator of the ordering engine. Sibling
// groups are identified by (projectID, parentID); a nil parentID addresses
// the project roots.
type Repository interface {
	GetByID(ctx context.Context, id uuid.UUID) (*Note, error)
	// GetSiblings returns the sibling group ordered by current sort key.
	GetSiblings(ctx context.Context, projectID uuid.UUID, parentID *uuid.UUID) ([]*Note, error)
	// GetByProject returns every note of the project, parents before
	// children, siblings in display order.
	GetByProject(ctx context.Context, projectID uuid.UUID) ([]*Note, error)
	Create(ctx context.Context, n *Note) error
	Update(ctx context.Context, n *Note) error
	// UpdatePlacement writes parentID and sort key in one statement.
	UpdatePlacement(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, sortOrder order.Key) error
	// UpdateOrders writes new sort keys for a sibling group atomically:
	// either every row is updated or none.
	UpdateOrders(ctx context.Context, notes []*Note) error
	DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error)
	// DescendantIDs returns the transitive children of id, excluding id
	// itself.
	DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error)
	CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
}
