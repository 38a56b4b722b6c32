package controllers

import (
	"time"

	"github.com/google/uuid"

	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/domain/entities/project"
	"github.com/arborhq/arbor/modules/notes/services"
)

type NoteResponse struct {
	ID         uuid.UUID  `json:"id"`
	ProjectID  uuid.UUID  `json:"project_id"`
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Order      float64    `json:"order"`
	Content    string     `json:"content"`
	Link       string     `json:"link,omitempty"`
	MediaRef   string     `json:"media_ref,omitempty"`
	TimeMarker string     `json:"time_marker,omitempty"`
	Discussion bool       `json:"discussion,omitempty"`
	Images     []string   `json:"images,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

func toNoteResponse(n *note.Note) NoteResponse {
	return NoteResponse{
		ID:         n.ID(),
		ProjectID:  n.ProjectID(),
		ParentID:   n.ParentID(),
		Order:      n.SortOrder().Float64(),
		Content:    n.Content(),
		Link:       n.Link(),
		MediaRef:   n.MediaRef(),
		TimeMarker: n.TimeMarker(),
		Discussion: n.Discussion(),
		Images:     n.Images(),
		CreatedAt:  n.CreatedAt(),
		UpdatedAt:  n.UpdatedAt(),
	}
}

type ProjectResponse struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProjectResponse(p *project.Project) ProjectResponse {
	return ProjectResponse{
		ID:        p.ID(),
		OwnerID:   p.OwnerID(),
		Name:      p.Name(),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
}

type CreateProjectRequest struct {
	Name string `json:"name"`
}

type CreateNoteRequest struct {
	ParentID   *uuid.UUID `json:"parent_id,omitempty"`
	Content    string     `json:"content"`
	Link       string     `json:"link,omitempty"`
	MediaRef   string     `json:"media_ref,omitempty"`
	TimeMarker string     `json:"time_marker,omitempty"`
	Discussion bool       `json:"discussion,omitempty"`
	Images     []string   `json:"images,omitempty"`
	// Order pins the note at an explicit position instead of the tail.
	Order *float64 `json:"order,omitempty"`
}

type UpdateNoteRequest struct {
	Content string `json:"content"`
}

type RectDTO struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// GeometryDTO carries a raw drag gesture: the hovered note's bounding box
// and the pointer position, classified server-side.
type GeometryDTO struct {
	TargetID uuid.UUID `json:"target_id"`
	Rect     RectDTO   `json:"rect"`
	PointerX float64   `json:"pointer_x"`
	PointerY float64   `json:"pointer_y"`
}

// MoveNoteRequest accepts either an explicit placement intent or a drag
// gesture geometry (exactly one of the two).
type MoveNoteRequest struct {
	Intent    string       `json:"intent,omitempty"`
	SiblingID *uuid.UUID   `json:"sibling_id,omitempty"`
	ParentID  *uuid.UUID   `json:"parent_id,omitempty"`
	Geometry  *GeometryDTO `json:"geometry,omitempty"`
}

type ImportRequest struct {
	Records []services.ImportRecord `json:"records"`
}

type ImportStartedResponse struct {
	Handle string `json:"handle"`
}

type DeleteNoteResponse struct {
	Removed  int64 `json:"removed,omitempty"`
	Promoted int64 `json:"promoted,omitempty"`
}
