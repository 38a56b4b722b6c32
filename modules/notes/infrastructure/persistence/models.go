package persistence

import (
	"time"

	"github.com/google/uuid"
)

type NoteModel struct {
	ID         uuid.UUID
	ProjectID  uuid.UUID
	ParentID   *uuid.UUID
	SortOrder  float64
	Content    string
	Link       string
	MediaRef   string
	TimeMarker string
	Discussion bool
	Images     []string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

type ProjectModel struct {
	ID        uuid.UUID
	OwnerID   uuid.UUID
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}
