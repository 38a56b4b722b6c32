package note

import (
	"time"

	"github.com/google/uuid"

	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
)

// Note is a node of a project's outline tree. The ordering engine only cares
// about id, projectID, parentID and sortOrder; content and the auxiliary
// attributes are carried through untouched.
type Note struct {
	id         uuid.UUID
	projectID  uuid.UUID
	parentID   *uuid.UUID
	sortOrder  order.Key
	content    string
	link       string
	mediaRef   string
	timeMarker string
	discussion bool
	images     []string
	createdAt  time.Time
	updatedAt  time.Time
}

type Option func(*Note)

func WithID(id uuid.UUID) Option {
	return func(n *Note) {
		n.id = id
	}
}

func WithParentID(parentID *uuid.UUID) Option {
	return func(n *Note) {
		n.parentID = parentID
	}
}

func WithSortOrder(key order.Key) Option {
	return func(n *Note) {
		n.sortOrder = key
	}
}

func WithContent(content string) Option {
	return func(n *Note) {
		n.content = content
	}
}

func WithLink(link string) Option {
	return func(n *Note) {
		n.link = link
	}
}

func WithMediaRef(mediaRef string) Option {
	return func(n *Note) {
		n.mediaRef = mediaRef
	}
}

func WithTimeMarker(timeMarker string) Option {
	return func(n *Note) {
		n.timeMarker = timeMarker
	}
}

func WithDiscussion(discussion bool) Option {
	return func(n *Note) {
		n.discussion = discussion
	}
}

func WithImages(images []string) Option {
	return func(n *Note) {
		n.images = images
	}
}

func WithCreatedAt(createdAt time.Time) Option {
	return func(n *Note) {
		n.createdAt = createdAt
	}
}

func WithUpdatedAt(updatedAt time.Time) Option {
	return func(n *Note) {
		n.updatedAt = updatedAt
	}
}

func New(projectID uuid.UUID, opts ...Option) *Note {
	n := &Note{
		id:        uuid.New(),
		projectID: projectID,
		sortOrder: order.Zero,
		createdAt: time.Now(),
		updatedAt: time.Now(),
	}
	for _, opt := range opts {
		opt(n)
	}
	return n
}

func (n *Note) ID() uuid.UUID {
	return n.id
}

func (n *Note) ProjectID() uuid.UUID {
	return n.projectID
}

// ParentID is nil for roots of the project.
func (n *Note) ParentID() *uuid.UUID {
	return n.parentID
}

func (n *Note) SortOrder() order.Key {
	return n.sortOrder
}

func (n *Note) Content() string {
	return n.content
}

func (n *Note) Link() string {
	return n.link
}

func (n *Note) MediaRef() string {
	return n.mediaRef
}

func (n *Note) TimeMarker() string {
	return n.timeMarker
}

func (n *Note) Discussion() bool {
	return n.discussion
}

func (n *Note) Images() []string {
	return n.images
}

func (n *Note) CreatedAt() time.Time {
	return n.createdAt
}

func (n *Note) UpdatedAt() time.Time {
	return n.updatedAt
}

// SetPlacement moves the note under a (possibly new) parent with the given
// sibling key.
func (n *Note) SetPlacement(parentID *uuid.UUID, key order.Key) {
	n.parentID = parentID
	n.sortOrder = key
	n.updatedAt = time.Now()
}

func (n *Note) SetSortOrder(key order.Key) {
	n.sortOrder = key
	n.updatedAt = time.Now()
}

func (n *Note) SetContent(content string) {
	n.content = content
	n.updatedAt = time.Now()
}

// IsRoot reports whether the note sits at the top level of its project.
func (n *Note) IsRoot() bool {
	return n.parentID == nil
}
