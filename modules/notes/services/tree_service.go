package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/domain/placement"
	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
	"github.com/arborhq/arbor/pkg/composables"
	"github.com/arborhq/arbor/pkg/eventbus"
	"github.com/arborhq/arbor/pkg/metrics"
)

// TreeService orchestrates structural mutations of a project's note tree:
// create, delete (cascading or promoting), reparent/reorder and sibling
// normalization. It assumes a single logical writer per project; it does not
// implement its own locking. Tree shape is never cached: every operation
// re-reads the sibling groups it touches.
type TreeService struct {
	repo      note.Repository
	publisher eventbus.EventBus
}

func NewTreeService(repo note.Repository, publisher eventbus.EventBus) *TreeService {
	return &TreeService{repo: repo, publisher: publisher}
}

// inTx wraps fn in a database transaction when a pool is present. Stores
// that manage their own atomicity (the in-memory repository) run fn as-is.
func (s *TreeService) inTx(ctx context.Context, fn func(context.Context) error) error {
	if _, err := composables.UsePool(ctx); err != nil {
		return fn(ctx)
	}
	return composables.InTx(ctx, fn)
}

type CreateNoteInput struct {
	ProjectID  uuid.UUID
	ParentID   *uuid.UUID
	Content    string
	Link       string
	MediaRef   string
	TimeMarker string
	Discussion bool
	Images     []string
	// ExplicitOrder overrides the default tail position.
	ExplicitOrder *order.Key
}

// Create inserts a note at the tail of its sibling group unless an explicit
// order is requested, then normalizes the group.
func (s *TreeService) Create(ctx context.Context, input CreateNoteInput) (*note.Note, error) {
	var created *note.Note
	err := s.inTx(ctx, func(txCtx context.Context) error {
		if input.ParentID != nil {
			parent, err := s.repo.GetByID(txCtx, *input.ParentID)
			if err != nil {
				if errors.Is(err, note.ErrNoteNotFound) {
					return note.ErrInvalidParent
				}
				return err
			}
			if parent.ProjectID() != input.ProjectID {
				return note.ErrInvalidParent
			}
		}

		siblings, err := s.repo.GetSiblings(txCtx, input.ProjectID, input.ParentID)
		if err != nil {
			return err
		}

		key := order.Zero
		if input.ExplicitOrder != nil {
			key = *input.ExplicitOrder
		} else if len(siblings) > 0 {
			key = order.After(siblings[len(siblings)-1].SortOrder())
		}

		created = note.New(
			input.ProjectID,
			note.WithParentID(input.ParentID),
			note.WithSortOrder(key),
			note.WithContent(input.Content),
			note.WithLink(input.Link),
			note.WithMediaRef(input.MediaRef),
			note.WithTimeMarker(input.TimeMarker),
			note.WithDiscussion(input.Discussion),
			note.WithImages(input.Images),
		)
		return s.repo.Create(txCtx, created)
	})
	if err != nil {
		metrics.TreeOps.WithLabelValues("create", "error").Inc()
		return nil, asServiceError(err)
	}

	// Normalization runs after the structural write commits: a failed
	// renumbering must not undo the insert.
	s.normalizeGroup(ctx, input.ProjectID, input.ParentID, "create")

	metrics.TreeOps.WithLabelValues("create", "ok").Inc()
	s.publisher.Publish(note.NewCreatedEvent(created))
	return created, nil
}

// Get loads a single note.
func (s *TreeService) Get(ctx context.Context, id uuid.UUID) (*note.Note, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, asServiceError(err)
	}
	return n, nil
}

// UpdateContent rewrites a note's content and carried attributes without
// touching its position.
func (s *TreeService) UpdateContent(ctx context.Context, id uuid.UUID, content string) (*note.Note, error) {
	n, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, asServiceError(err)
	}
	n.SetContent(content)
	if err := s.repo.Update(ctx, n); err != nil {
		return nil, asServiceError(err)
	}
	return n, nil
}

// DeleteSubtree removes the note and every descendant; returns how many
// notes were removed. The former sibling group is renumbered afterwards.
func (s *TreeService) DeleteSubtree(ctx context.Context, id uuid.UUID) (int64, error) {
	var removed int64
	var target *note.Note
	err := s.inTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		target = n

		descendants, err := s.repo.DescendantIDs(txCtx, id)
		if err != nil {
			return err
		}

		removed, err = s.repo.DeleteMany(txCtx, append(descendants, id))
		return err
	})
	if err != nil {
		metrics.TreeOps.WithLabelValues("delete_subtree", "error").Inc()
		return 0, asServiceError(err)
	}

	s.normalizeGroup(ctx, target.ProjectID(), target.ParentID(), "delete")

	metrics.TreeOps.WithLabelValues("delete_subtree", "ok").Inc()
	s.publisher.Publish(note.NewDeletedEvent(id, target.ProjectID(), removed))
	return removed, nil
}

// DeleteAndPromote reassigns the note's direct children to its own parent,
// appended after the existing siblings there in their current relative
// order, then deletes the note. Returns the number of promoted children.
func (s *TreeService) DeleteAndPromote(ctx context.Context, id uuid.UUID) (int64, error) {
	var promoted int64
	var target *note.Note
	err := s.inTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		target = n

		noteID := n.ID()
		children, err := s.repo.GetSiblings(txCtx, n.ProjectID(), &noteID)
		if err != nil {
			return err
		}

		siblings, err := s.repo.GetSiblings(txCtx, n.ProjectID(), n.ParentID())
		if err != nil {
			return err
		}
		tail := order.Zero
		if len(siblings) > 0 {
			tail = order.After(siblings[len(siblings)-1].SortOrder())
		}

		for i, child := range children {
			key := order.FromInt(tail.Int() + int64(i))
			if err := s.repo.UpdatePlacement(txCtx, child.ID(), n.ParentID(), key); err != nil {
				return err
			}
		}
		promoted = int64(len(children))

		_, err = s.repo.DeleteMany(txCtx, []uuid.UUID{id})
		return err
	})
	if err != nil {
		metrics.TreeOps.WithLabelValues("delete_promoting", "error").Inc()
		return 0, asServiceError(err)
	}

	// Former sibling group and promotion target are the same group.
	s.normalizeGroup(ctx, target.ProjectID(), target.ParentID(), "promote")

	metrics.TreeOps.WithLabelValues("delete_promoting", "ok").Inc()
	s.publisher.Publish(note.NewDeletedEvent(id, target.ProjectID(), 1))
	return promoted, nil
}

// Placement addresses the destination of a Move: a sibling to land next to,
// or a parent to append/prepend under (nil ParentID means project root).
type Placement struct {
	Intent    placement.Intent
	SiblingID uuid.UUID
	ParentID  *uuid.UUID
}

// Move validates and applies a reparent/reorder. The destination group is
// renumbered afterwards; on cross-parent moves, the origin group too.
func (s *TreeService) Move(ctx context.Context, id uuid.UUID, p Placement) (*note.Note, error) {
	var moved *note.Note
	var oldParentID *uuid.UUID
	err := s.inTx(ctx, func(txCtx context.Context) error {
		n, err := s.repo.GetByID(txCtx, id)
		if err != nil {
			return err
		}
		oldParentID = n.ParentID()

		newParentID, anchor, err := s.resolveDestination(txCtx, n, p)
		if err != nil {
			return err
		}

		if err := s.validateParent(txCtx, n, newParentID); err != nil {
			return err
		}

		key, err := s.destinationKey(txCtx, n, newParentID, anchor, p.Intent)
		if err != nil {
			return err
		}

		if err := s.repo.UpdatePlacement(txCtx, id, newParentID, key); err != nil {
			return err
		}
		n.SetPlacement(newParentID, key)
		moved = n
		return nil
	})
	if err != nil {
		metrics.TreeOps.WithLabelValues("move", "error").Inc()
		return nil, asServiceError(err)
	}

	s.normalizeGroup(ctx, moved.ProjectID(), moved.ParentID(), "move")
	if !sameParent(oldParentID, moved.ParentID()) {
		s.normalizeGroup(ctx, moved.ProjectID(), oldParentID, "move")
	}

	metrics.TreeOps.WithLabelValues("move", "ok").Inc()
	s.publisher.Publish(note.NewMovedEvent(moved, oldParentID))
	return moved, nil
}

// resolveDestination turns a Placement into the destination parent and, for
// sibling-relative intents, the anchor sibling.
func (s *TreeService) resolveDestination(ctx context.Context, n *note.Note, p Placement) (*uuid.UUID, *note.Note, error) {
	switch p.Intent {
	case placement.Before, placement.After:
		anchor, err := s.repo.GetByID(ctx, p.SiblingID)
		if err != nil {
			return nil, nil, err
		}
		if anchor.ProjectID() != n.ProjectID() {
			return nil, nil, note.ErrInvalidParent
		}
		return anchor.ParentID(), anchor, nil
	case placement.AppendChild, placement.PrependChild:
		return p.ParentID, nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown placement intent %q", p.Intent)
	}
}

func (s *TreeService) validateParent(ctx context.Context, n *note.Note, parentID *uuid.UUID) error {
	if parentID == nil {
		return nil
	}
	parent, err := s.repo.GetByID(ctx, *parentID)
	if err != nil {
		if errors.Is(err, note.ErrNoteNotFound) {
			return note.ErrInvalidParent
		}
		return err
	}
	return note.ValidateParent(n, parent, func(id uuid.UUID) *note.Note {
		ancestor, err := s.repo.GetByID(ctx, id)
		if err != nil {
			return nil
		}
		return ancestor
	})
}

// destinationKey computes the interim bisected key for the move. Head
// insertions bisect against a virtual lower bound of min-1, so moving before
// the first sibling of a normalized group yields -0.5.
func (s *TreeService) destinationKey(ctx context.Context, n *note.Note, parentID *uuid.UUID, anchor *note.Note, intent placement.Intent) (order.Key, error) {
	siblings, err := s.repo.GetSiblings(ctx, n.ProjectID(), parentID)
	if err != nil {
		return order.Zero, err
	}
	// The moving note must not anchor against itself.
	group := siblings[:0:0]
	for _, sib := range siblings {
		if sib.ID() != n.ID() {
			group = append(group, sib)
		}
	}

	switch intent {
	case placement.AppendChild:
		if len(group) == 0 {
			return order.Zero, nil
		}
		return order.After(group[len(group)-1].SortOrder()), nil
	case placement.PrependChild:
		if len(group) == 0 {
			return order.Zero, nil
		}
		first := group[0].SortOrder()
		return order.Between(order.Before(first), first), nil
	case placement.Before, placement.After:
		idx := -1
		for i, sib := range group {
			if sib.ID() == anchor.ID() {
				idx = i
				break
			}
		}
		if idx == -1 {
			return order.Zero, note.ErrNoteNotFound
		}
		if intent == placement.Before {
			if idx == 0 {
				first := group[0].SortOrder()
				return order.Between(order.Before(first), first), nil
			}
			return order.Between(group[idx-1].SortOrder(), group[idx].SortOrder()), nil
		}
		if idx == len(group)-1 {
			return order.After(group[idx].SortOrder()), nil
		}
		return order.Between(group[idx].SortOrder(), group[idx+1].SortOrder()), nil
	default:
		return order.Zero, fmt.Errorf("unknown placement intent %q", intent)
	}
}

// Normalize renumbers one sibling group to 0..n-1. Idempotent: an
// already-normalized group issues zero writes. Returns how many notes were
// rewritten.
func (s *TreeService) Normalize(ctx context.Context, projectID uuid.UUID, parentID *uuid.UUID) (int, error) {
	siblings, err := s.repo.GetSiblings(ctx, projectID, parentID)
	if err != nil {
		return 0, asServiceError(err)
	}
	changed := note.NormalizeOrders(siblings)
	if len(changed) == 0 {
		return 0, nil
	}
	if err := s.repo.UpdateOrders(ctx, changed); err != nil {
		return 0, asServiceError(err)
	}
	return len(changed), nil
}

// normalizeGroup renumbers after a structural mutation. Failure here is
// non-fatal: the structure already changed and stays valid, keys are merely
// fractional until the next normalize pass, which is idempotent.
func (s *TreeService) normalizeGroup(ctx context.Context, projectID uuid.UUID, parentID *uuid.UUID, trigger string) {
	siblings, err := s.repo.GetSiblings(ctx, projectID, parentID)
	if err != nil {
		composables.UseLogger(ctx).WithError(err).Warn("normalization read failed, keys left fractional")
		return
	}
	changed := note.NormalizeOrders(siblings)
	if len(changed) == 0 {
		return
	}
	if err := s.repo.UpdateOrders(ctx, changed); err != nil {
		composables.UseLogger(ctx).WithError(err).Warn("normalization write failed, keys left fractional")
		return
	}
	metrics.Normalizations.WithLabelValues(trigger).Inc()
}

// Tree returns the project's notes, parents before children, siblings in
// display order.
func (s *TreeService) Tree(ctx context.Context, projectID uuid.UUID) ([]*note.Note, error) {
	notes, err := s.repo.GetByProject(ctx, projectID)
	if err != nil {
		return nil, asServiceError(err)
	}
	return notes, nil
}

func sameParent(a, b *uuid.UUID) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
