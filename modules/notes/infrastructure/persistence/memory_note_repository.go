package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
)

// MemoryNoteRepository keeps notes in process memory. It backs the service
// unit tests and mirrors the SQL repository's semantics: returned notes are
// copies, and UpdateOrders applies all-or-nothing.
type MemoryNoteRepository struct {
	mu    sync.RWMutex
	notes map[uuid.UUID]*note.Note

	// Failure hooks for tests; a non-nil return aborts the operation
	// before any state changes.
	FailCreate       func(n *note.Note) error
	FailUpdateOrders func(notes []*note.Note) error
	FailPlacement    func(id uuid.UUID) error
}

func NewMemoryNoteRepository() *MemoryNoteRepository {
	return &MemoryNoteRepository{notes: make(map[uuid.UUID]*note.Note)}
}

func cloneNote(n *note.Note) *note.Note {
	var parentID *uuid.UUID
	if p := n.ParentID(); p != nil {
		v := *p
		parentID = &v
	}
	images := make([]string, len(n.Images()))
	copy(images, n.Images())
	return note.New(
		n.ProjectID(),
		note.WithID(n.ID()),
		note.WithParentID(parentID),
		note.WithSortOrder(n.SortOrder()),
		note.WithContent(n.Content()),
		note.WithLink(n.Link()),
		note.WithMediaRef(n.MediaRef()),
		note.WithTimeMarker(n.TimeMarker()),
		note.WithDiscussion(n.Discussion()),
		note.WithImages(images),
		note.WithCreatedAt(n.CreatedAt()),
		note.WithUpdatedAt(n.UpdatedAt()),
	)
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func (r *MemoryNoteRepository) GetByID(ctx context.Context, id uuid.UUID) (*note.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	n, ok := r.notes[id]
	if !ok {
		return nil, note.ErrNoteNotFound
	}
	return cloneNote(n), nil
}

func (r *MemoryNoteRepository) GetSiblings(ctx context.Context, projectID uuid.UUID, parentID *uuid.UUID) ([]*note.Note, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var siblings []*note.Note
	for _, n := range r.notes {
		if n.ProjectID() == projectID && sameParent(n.ParentID(), parentID) {
			siblings = append(siblings, cloneNote(n))
		}
	}
	sort.SliceStable(siblings, func(i, j int) bool {
		if c := siblings[i].SortOrder().Cmp(siblings[j].SortOrder()); c != 0 {
			return c < 0
		}
		return siblings[i].CreatedAt().Before(siblings[j].CreatedAt())
	})
	return siblings, nil
}

func (r *MemoryNoteRepository) GetByProject(ctx context.Context, projectID uuid.UUID) ([]*note.Note, error) {
	roots, err := r.GetSiblings(ctx, projectID, nil)
	if err != nil {
		return nil, err
	}
	// Breadth-first: parents before children, siblings in display order.
	var out []*note.Note
	queue := roots
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		id := n.ID()
		children, err := r.GetSiblings(ctx, projectID, &id)
		if err != nil {
			return nil, err
		}
		queue = append(queue, children...)
	}
	return out, nil
}

func (r *MemoryNoteRepository) Create(ctx context.Context, n *note.Note) error {
	if r.FailCreate != nil {
		if err := r.FailCreate(n); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes[n.ID()] = cloneNote(n)
	return nil
}

func (r *MemoryNoteRepository) Update(ctx context.Context, n *note.Note) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.notes[n.ID()]
	if !ok {
		return note.ErrNoteNotFound
	}
	stored.SetContent(n.Content())
	return nil
}

func (r *MemoryNoteRepository) UpdatePlacement(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, sortOrder order.Key) error {
	if r.FailPlacement != nil {
		if err := r.FailPlacement(id); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.notes[id]
	if !ok {
		return note.ErrNoteNotFound
	}
	stored.SetPlacement(parentID, sortOrder)
	return nil
}

func (r *MemoryNoteRepository) UpdateOrders(ctx context.Context, notes []*note.Note) error {
	if r.FailUpdateOrders != nil {
		if err := r.FailUpdateOrders(notes); err != nil {
			return err
		}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	// All-or-nothing: verify every target exists before touching any.
	for _, n := range notes {
		if _, ok := r.notes[n.ID()]; !ok {
			return note.ErrNoteNotFound
		}
	}
	for _, n := range notes {
		r.notes[n.ID()].SetSortOrder(n.SortOrder())
	}
	return nil
}

func (r *MemoryNoteRepository) DeleteMany(ctx context.Context, ids []uuid.UUID) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var removed int64
	for _, id := range ids {
		if _, ok := r.notes[id]; ok {
			delete(r.notes, id)
			removed++
		}
	}
	return removed, nil
}

func (r *MemoryNoteRepository) DescendantIDs(ctx context.Context, id uuid.UUID) ([]uuid.UUID, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	children := make(map[uuid.UUID][]uuid.UUID)
	for _, n := range r.notes {
		if p := n.ParentID(); p != nil {
			children[*p] = append(children[*p], n.ID())
		}
	}

	var out []uuid.UUID
	queue := append([]uuid.UUID(nil), children[id]...)
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		out = append(out, cur)
		queue = append(queue, children[cur]...)
	}
	return out, nil
}

func (r *MemoryNoteRepository) CountByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var count int64
	for _, n := range r.notes {
		if n.ProjectID() == projectID {
			count++
		}
	}
	return count, nil
}
