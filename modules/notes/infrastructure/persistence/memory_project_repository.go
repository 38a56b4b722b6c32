package persistence

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/arborhq/arbor/modules/notes/domain/entities/project"
)

type MemoryProjectRepository struct {
	mu       sync.RWMutex
	projects map[uuid.UUID]*project.Project
}

func NewMemoryProjectRepository() *MemoryProjectRepository {
	return &MemoryProjectRepository{projects: make(map[uuid.UUID]*project.Project)}
}

func (r *MemoryProjectRepository) GetByID(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.projects[id]
	if !ok {
		return nil, project.ErrProjectNotFound
	}
	return p, nil
}

func (r *MemoryProjectRepository) GetByOwner(ctx context.Context, ownerID uuid.UUID) ([]*project.Project, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*project.Project
	for _, p := range r.projects {
		if p.OwnerID() == ownerID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt().Before(out[j].CreatedAt()) })
	return out, nil
}

func (r *MemoryProjectRepository) Create(ctx context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.projects[p.ID()] = p
	return nil
}

func (r *MemoryProjectRepository) Update(ctx context.Context, p *project.Project) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[p.ID()]; !ok {
		return project.ErrProjectNotFound
	}
	r.projects[p.ID()] = p
	return nil
}

func (r *MemoryProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.projects[id]; !ok {
		return project.ErrProjectNotFound
	}
	delete(r.projects, id)
	return nil
}
