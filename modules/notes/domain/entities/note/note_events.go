package note

import (
	"github.com/google/uuid"
)

func NewCreatedEvent(result *Note) *CreatedEvent {
	return &CreatedEvent{Result: result}
}

func NewMovedEvent(result *Note, oldParentID *uuid.UUID) *MovedEvent {
	return &MovedEvent{Result: result, OldParentID: oldParentID}
}

func NewDeletedEvent(id uuid.UUID, projectID uuid.UUID, removed int64) *DeletedEvent {
	return &DeletedEvent{ID: id, ProjectID: projectID, Removed: removed}
}

type CreatedEvent struct {
	Result *Note
}

type MovedEvent struct {
	Result      *Note
	OldParentID *uuid.UUID
}

type DeletedEvent struct {
	ID        uuid.UUID
	ProjectID uuid.UUID
	// Removed counts the node itself plus deleted descendants; promotions
	// always report 1.
	Removed int64
}
