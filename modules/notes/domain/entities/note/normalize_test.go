package note_test

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
)

func buildGroup(projectID uuid.UUID, keys ...float64) []*note.Note {
	group := make([]*note.Note, 0, len(keys))
	for _, k := range keys {
		group = append(group, note.New(projectID, note.WithSortOrder(order.FromFloat64(k))))
	}
	return group
}

func TestNormalizeOrders(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()

	t.Run("empty group is a no-op", func(t *testing.T) {
		require.Nil(t, note.NormalizeOrders(nil))
	})

	t.Run("already normalized group issues no writes", func(t *testing.T) {
		group := buildGroup(projectID, 0, 1, 2)
		require.Nil(t, note.NormalizeOrders(group))
	})

	t.Run("fractional keys collapse to 0..n-1", func(t *testing.T) {
		group := buildGroup(projectID, -0.5, 0, 1)
		changed := note.NormalizeOrders(group)
		require.Len(t, changed, 3)
		for i, n := range group {
			require.Equal(t, int64(i), n.SortOrder().Int())
			require.True(t, n.SortOrder().IsInt())
		}
	})

	t.Run("relative order is preserved", func(t *testing.T) {
		group := buildGroup(projectID, 10, 2.5, 7)
		note.NormalizeOrders(group)
		require.Equal(t, int64(2), group[0].SortOrder().Int())
		require.Equal(t, int64(0), group[1].SortOrder().Int())
		require.Equal(t, int64(1), group[2].SortOrder().Int())
	})

	t.Run("only changed notes are reported", func(t *testing.T) {
		group := buildGroup(projectID, 0, 1, 2.5)
		changed := note.NormalizeOrders(group)
		require.Len(t, changed, 1)
		require.Equal(t, group[2].ID(), changed[0].ID())
		require.Equal(t, int64(2), changed[0].SortOrder().Int())
	})

	t.Run("idempotent", func(t *testing.T) {
		group := buildGroup(projectID, 3.25, -1, 0.5)
		require.NotEmpty(t, note.NormalizeOrders(group))
		require.Nil(t, note.NormalizeOrders(group))
	})
}

func TestValidateParent(t *testing.T) {
	t.Parallel()

	projectID := uuid.New()
	a := note.New(projectID)
	b := note.New(projectID, note.WithParentID(ptr(a.ID())))
	c := note.New(projectID, note.WithParentID(ptr(b.ID())))

	index := map[uuid.UUID]*note.Note{a.ID(): a, b.ID(): b, c.ID(): c}
	lookup := func(id uuid.UUID) *note.Note { return index[id] }

	t.Run("nil parent is always legal", func(t *testing.T) {
		require.NoError(t, note.ValidateParent(c, nil, lookup))
	})

	t.Run("reparent to unrelated ancestor is legal", func(t *testing.T) {
		require.NoError(t, note.ValidateParent(c, a, lookup))
	})

	t.Run("self parent is a cycle", func(t *testing.T) {
		require.ErrorIs(t, note.ValidateParent(a, a, lookup), note.ErrCycle)
	})

	t.Run("descendant parent is a cycle", func(t *testing.T) {
		require.ErrorIs(t, note.ValidateParent(a, c, lookup), note.ErrCycle)
	})

	t.Run("cross-project parent is invalid", func(t *testing.T) {
		other := note.New(uuid.New())
		require.ErrorIs(t, note.ValidateParent(a, other, lookup), note.ErrInvalidParent)
	})

	t.Run("missing ancestor ends the walk", func(t *testing.T) {
		orphan := note.New(projectID, note.WithParentID(ptr(uuid.New())))
		require.NoError(t, note.ValidateParent(a, orphan, lookup))
	})

	t.Run("corrupted store with ancestor cycle terminates", func(t *testing.T) {
		x := note.New(projectID)
		y := note.New(projectID, note.WithParentID(ptr(x.ID())))
		x.SetPlacement(ptr(y.ID()), order.Zero)
		corrupt := map[uuid.UUID]*note.Note{x.ID(): x, y.ID(): y}
		err := note.ValidateParent(a, x, func(id uuid.UUID) *note.Note { return corrupt[id] })
		require.NoError(t, err)
	})
}

func ptr(id uuid.UUID) *uuid.UUID {
	return &id
}
