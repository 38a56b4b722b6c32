package persistence

import (
	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/domain/entities/project"
	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
)

func toDomainNote(m *NoteModel) *note.Note {
	return note.New(
		m.ProjectID,
		note.WithID(m.ID),
		note.WithParentID(m.ParentID),
		note.WithSortOrder(order.FromFloat64(m.SortOrder)),
		note.WithContent(m.Content),
		note.WithLink(m.Link),
		note.WithMediaRef(m.MediaRef),
		note.WithTimeMarker(m.TimeMarker),
		note.WithDiscussion(m.Discussion),
		note.WithImages(m.Images),
		note.WithCreatedAt(m.CreatedAt),
		note.WithUpdatedAt(m.UpdatedAt),
	)
}

func toDBNote(n *note.Note) *NoteModel {
	return &NoteModel{
		ID:         n.ID(),
		ProjectID:  n.ProjectID(),
		ParentID:   n.ParentID(),
		SortOrder:  n.SortOrder().Float64(),
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

func toDomainProject(m *ProjectModel) *project.Project {
	p := project.New(
		m.OwnerID,
		m.Name,
		project.WithID(m.ID),
		project.WithCreatedAt(m.CreatedAt),
		project.WithUpdatedAt(m.UpdatedAt),
	)
	return p
}

func toDBProject(p *project.Project) *ProjectModel {
	return &ProjectModel{
		ID:        p.ID(),
		OwnerID:   p.OwnerID(),
		Name:      p.Name(),
		CreatedAt: p.CreatedAt(),
		UpdatedAt: p.UpdatedAt(),
	}
}
