package services_test

import (
	"context"
	"io"
	"testing"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/domain/placement"
	"github.com/arborhq/arbor/modules/notes/infrastructure/persistence"
	"github.com/arborhq/arbor/modules/notes/services"
	"github.com/arborhq/arbor/pkg/composables"
	"github.com/arborhq/arbor/pkg/eventbus"
)

func testContext() context.Context {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return composables.WithLogger(context.Background(), logrus.NewEntry(logger))
}

func silentBus() eventbus.EventBus {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return eventbus.NewEventPublisher(logger)
}

func newTreeFixture(t *testing.T) (context.Context, *persistence.MemoryNoteRepository, *services.TreeService, uuid.UUID) {
	t.Helper()
	repo := persistence.NewMemoryNoteRepository()
	svc := services.NewTreeService(repo, silentBus())
	return testContext(), repo, svc, uuid.New()
}

func mustCreate(t *testing.T, ctx context.Context, svc *services.TreeService, projectID uuid.UUID, parentID *uuid.UUID, content string) *note.Note {
	t.Helper()
	n, err := svc.Create(ctx, services.CreateNoteInput{
		ProjectID: projectID,
		ParentID:  parentID,
		Content:   content,
	})
	require.NoError(t, err)
	return n
}

func orderOf(t *testing.T, ctx context.Context, repo note.Repository, id uuid.UUID) float64 {
	t.Helper()
	n, err := repo.GetByID(ctx, id)
	require.NoError(t, err)
	return n.SortOrder().Float64()
}

func TestTreeService_Create(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newTreeFixture(t)

	t.Run("roots are appended at the tail", func(t *testing.T) {
		first := mustCreate(t, ctx, svc, projectID, nil, "first")
		second := mustCreate(t, ctx, svc, projectID, nil, "second")
		third := mustCreate(t, ctx, svc, projectID, nil, "third")

		require.Equal(t, 0.0, orderOf(t, ctx, repo, first.ID()))
		require.Equal(t, 1.0, orderOf(t, ctx, repo, second.ID()))
		require.Equal(t, 2.0, orderOf(t, ctx, repo, third.ID()))
	})

	t.Run("missing parent is rejected as invalid parent", func(t *testing.T) {
		missing := uuid.New()
		_, err := svc.Create(ctx, services.CreateNoteInput{
			ProjectID: projectID,
			ParentID:  &missing,
			Content:   "orphan",
		})
		require.ErrorIs(t, err, note.ErrInvalidParent)

		var svcErr *services.ServiceError
		require.ErrorAs(t, err, &svcErr)
		require.Equal(t, 422, svcErr.Status)
	})

	t.Run("cross-project parent is rejected", func(t *testing.T) {
		foreign := mustCreate(t, ctx, svc, uuid.New(), nil, "foreign root")
		foreignID := foreign.ID()
		_, err := svc.Create(ctx, services.CreateNoteInput{
			ProjectID: projectID,
			ParentID:  &foreignID,
			Content:   "stray",
		})
		require.ErrorIs(t, err, note.ErrInvalidParent)
	})
}

func TestTreeService_Normalize(t *testing.T) {
	t.Parallel()
	ctx, _, svc, projectID := newTreeFixture(t)

	mustCreate(t, ctx, svc, projectID, nil, "a")
	mustCreate(t, ctx, svc, projectID, nil, "b")
	mustCreate(t, ctx, svc, projectID, nil, "c")

	// Create already normalized the group; another pass writes nothing.
	changed, err := svc.Normalize(ctx, projectID, nil)
	require.NoError(t, err)
	require.Zero(t, changed)
}

func TestTreeService_MoveBeforeHead(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newTreeFixture(t)

	root := mustCreate(t, ctx, svc, projectID, nil, "A")
	rootID := root.ID()
	b := mustCreate(t, ctx, svc, projectID, &rootID, "B")
	c := mustCreate(t, ctx, svc, projectID, &rootID, "C")
	d := mustCreate(t, ctx, svc, projectID, &rootID, "D")

	require.Equal(t, 0.0, orderOf(t, ctx, repo, b.ID()))
	require.Equal(t, 1.0, orderOf(t, ctx, repo, c.ID()))
	require.Equal(t, 2.0, orderOf(t, ctx, repo, d.ID()))

	// Let the structural write land but fail the renumbering, exposing the
	// interim bisected key.
	normFailures := 0
	repo.FailUpdateOrders = func([]*note.Note) error {
		normFailures++
		return persistence.ErrTransientStore
	}

	_, err := svc.Move(ctx, d.ID(), services.Placement{
		Intent:    placement.Before,
		SiblingID: b.ID(),
	})
	require.NoError(t, err)
	require.Positive(t, normFailures)
	require.Equal(t, -0.5, orderOf(t, ctx, repo, d.ID()))

	// Normalization is idempotent and retries cleanly once the store
	// recovers.
	repo.FailUpdateOrders = nil
	changed, err := svc.Normalize(ctx, projectID, &rootID)
	require.NoError(t, err)
	require.Equal(t, 3, changed)

	require.Equal(t, 0.0, orderOf(t, ctx, repo, d.ID()))
	require.Equal(t, 1.0, orderOf(t, ctx, repo, b.ID()))
	require.Equal(t, 2.0, orderOf(t, ctx, repo, c.ID()))
}

func TestTreeService_MoveNormalizesBothGroups(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newTreeFixture(t)

	left := mustCreate(t, ctx, svc, projectID, nil, "left")
	leftID := left.ID()
	right := mustCreate(t, ctx, svc, projectID, nil, "right")
	rightID := right.ID()

	l1 := mustCreate(t, ctx, svc, projectID, &leftID, "l1")
	l2 := mustCreate(t, ctx, svc, projectID, &leftID, "l2")
	l3 := mustCreate(t, ctx, svc, projectID, &leftID, "l3")
	r1 := mustCreate(t, ctx, svc, projectID, &rightID, "r1")

	moved, err := svc.Move(ctx, l2.ID(), services.Placement{
		Intent:   placement.AppendChild,
		ParentID: &rightID,
	})
	require.NoError(t, err)
	require.Equal(t, rightID, *moved.ParentID())

	// Origin group closed the gap.
	require.Equal(t, 0.0, orderOf(t, ctx, repo, l1.ID()))
	require.Equal(t, 1.0, orderOf(t, ctx, repo, l3.ID()))

	// Destination group folded the newcomer in at the tail.
	require.Equal(t, 0.0, orderOf(t, ctx, repo, r1.ID()))
	require.Equal(t, 1.0, orderOf(t, ctx, repo, l2.ID()))
}

func TestTreeService_MoveCycleRejected(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newTreeFixture(t)

	a := mustCreate(t, ctx, svc, projectID, nil, "A")
	aID := a.ID()
	b := mustCreate(t, ctx, svc, projectID, &aID, "B")
	bID := b.ID()
	c := mustCreate(t, ctx, svc, projectID, &bID, "C")
	cID := c.ID()

	_, err := svc.Move(ctx, a.ID(), services.Placement{
		Intent:   placement.AppendChild,
		ParentID: &cID,
	})
	require.ErrorIs(t, err, note.ErrCycle)

	var svcErr *services.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, 409, svcErr.Status)

	// No mutation happened.
	got, getErr := repo.GetByID(ctx, a.ID())
	require.NoError(t, getErr)
	require.Nil(t, got.ParentID())
}

func TestTreeService_MoveSelfRejected(t *testing.T) {
	t.Parallel()
	ctx, _, svc, projectID := newTreeFixture(t)

	a := mustCreate(t, ctx, svc, projectID, nil, "A")
	aID := a.ID()
	_, err := svc.Move(ctx, a.ID(), services.Placement{
		Intent:   placement.AppendChild,
		ParentID: &aID,
	})
	require.ErrorIs(t, err, note.ErrCycle)
}

func TestTreeService_MoveNotFound(t *testing.T) {
	t.Parallel()
	ctx, _, svc, _ := newTreeFixture(t)

	_, err := svc.Move(ctx, uuid.New(), services.Placement{Intent: placement.AppendChild})
	require.ErrorIs(t, err, note.ErrNoteNotFound)

	var svcErr *services.ServiceError
	require.ErrorAs(t, err, &svcErr)
	require.Equal(t, 404, svcErr.Status)
}

func TestTreeService_DeleteSubtree(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newTreeFixture(t)

	keep := mustCreate(t, ctx, svc, projectID, nil, "keep")
	doomed := mustCreate(t, ctx, svc, projectID, nil, "doomed")
	doomedID := doomed.ID()
	child := mustCreate(t, ctx, svc, projectID, &doomedID, "child")
	childID := child.ID()
	mustCreate(t, ctx, svc, projectID, &childID, "grandchild")
	tail := mustCreate(t, ctx, svc, projectID, nil, "tail")

	before, err := repo.CountByProject(ctx, projectID)
	require.NoError(t, err)

	removed, err := svc.DeleteSubtree(ctx, doomed.ID())
	require.NoError(t, err)
	require.Equal(t, int64(3), removed)

	after, err := repo.CountByProject(ctx, projectID)
	require.NoError(t, err)
	require.Equal(t, before-3, after)

	// Surviving roots were renumbered to close the gap.
	require.Equal(t, 0.0, orderOf(t, ctx, repo, keep.ID()))
	require.Equal(t, 1.0, orderOf(t, ctx, repo, tail.ID()))
}

func TestTreeService_DeleteAndPromote(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newTreeFixture(t)

	sibling := mustCreate(t, ctx, svc, projectID, nil, "sibling")
	parent := mustCreate(t, ctx, svc, projectID, nil, "parent")
	parentID := parent.ID()
	c1 := mustCreate(t, ctx, svc, projectID, &parentID, "c1")
	c2 := mustCreate(t, ctx, svc, projectID, &parentID, "c2")
	c3 := mustCreate(t, ctx, svc, projectID, &parentID, "c3")

	before, err := repo.CountByProject(ctx, projectID)
	require.NoError(t, err)

	promoted, err := svc.DeleteAndPromote(ctx, parent.ID())
	require.NoError(t, err)
	require.Equal(t, int64(3), promoted)

	after, err := repo.CountByProject(ctx, projectID)
	require.NoError(t, err)
	require.Equal(t, before-1, after)

	// Children landed at the root, appended after the surviving sibling,
	// in their prior relative order, renumbered.
	roots, err := repo.GetSiblings(ctx, projectID, nil)
	require.NoError(t, err)
	require.Len(t, roots, 4)
	require.Equal(t, sibling.ID(), roots[0].ID())
	require.Equal(t, c1.ID(), roots[1].ID())
	require.Equal(t, c2.ID(), roots[2].ID())
	require.Equal(t, c3.ID(), roots[3].ID())
	for i, n := range roots {
		require.Equal(t, float64(i), n.SortOrder().Float64())
	}
}

func TestTreeService_Tree(t *testing.T) {
	t.Parallel()
	ctx, _, svc, projectID := newTreeFixture(t)

	root := mustCreate(t, ctx, svc, projectID, nil, "root")
	rootID := root.ID()
	child := mustCreate(t, ctx, svc, projectID, &rootID, "child")
	childID := child.ID()
	mustCreate(t, ctx, svc, projectID, &childID, "grandchild")

	notes, err := svc.Tree(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, notes, 3)
	require.Equal(t, "root", notes[0].Content())
	require.Equal(t, "child", notes[1].Content())
	require.Equal(t, "grandchild", notes[2].Content())
}
