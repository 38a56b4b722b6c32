package project

import (
	"time"

	"github.com/google/uuid"
)

// Project is the scope within which a tree of notes is ordered and
// validated. Ownership gates every mutation.
type Project struct {
	id        uuid.UUID
	ownerID   uuid.UUID
	name      string
	createdAt time.Time
	updatedAt time.Time
}

type Option func(*Project)

func WithID(id uuid.UUID) Option {
	return func(p *Project) {
		p.id = id
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(p *Project) {
		p.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(p *Project) {
		p.updatedAt = updatedAt
	}
}

func New(ownerID uuid.UUID, name string, opts ...Option) *Project {
	p := &Project{
		id:        uuid.New(),
		ownerID:   ownerID,
		name:      name,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Project) ID() uuid.UUID {
	return p.id
}

func (p *Project) OwnerID() uuid.UUID {
	return p.ownerID
}

func (p *Project) Name() string {
	return p.name
}

func (p *Project) CreatedAt() time.Time {
	return p.createdAt
}

func (p *Project) UpdatedAt() time.Time {
	return p.updatedAt
}

func (p *Project) Rename(name string) {
	p.name = name
	p.updatedAt = time.Now()
}

// IsOwnedBy reports whether userID may mutate the project's tree.
func (p *Project) IsOwnedBy(userID uuid.UUID) bool {
	return p.ownerID == userID
}
