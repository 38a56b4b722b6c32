package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/modules/notes/services"
)

func TestMemoryImportStatusStore(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("set then get round-trips", func(t *testing.T) {
		store := services.NewMemoryImportStatusStore(time.Minute)
		defer store.Close()

		status := &services.ImportStatus{
			Handle:    "h1",
			Phase:     services.PhaseCreating,
			Processed: 3,
			Total:     10,
		}
		require.NoError(t, store.Set(ctx, status))

		got, err := store.Get(ctx, "h1")
		require.NoError(t, err)
		require.Equal(t, services.PhaseCreating, got.Phase)
		require.Equal(t, 3, got.Processed)
	})

	t.Run("unknown handle", func(t *testing.T) {
		store := services.NewMemoryImportStatusStore(time.Minute)
		defer store.Close()

		_, err := store.Get(ctx, "nope")
		require.ErrorIs(t, err, services.ErrImportNotFound)
	})

	t.Run("entries expire after retention", func(t *testing.T) {
		store := services.NewMemoryImportStatusStore(30 * time.Millisecond)
		defer store.Close()

		require.NoError(t, store.Set(ctx, &services.ImportStatus{Handle: "h2", Phase: services.PhaseDone}))
		time.Sleep(60 * time.Millisecond)

		_, err := store.Get(ctx, "h2")
		require.ErrorIs(t, err, services.ErrImportNotFound)
	})

	t.Run("stored status is a copy", func(t *testing.T) {
		store := services.NewMemoryImportStatusStore(time.Minute)
		defer store.Close()

		status := &services.ImportStatus{Handle: "h3", Phase: services.PhaseCreating}
		require.NoError(t, store.Set(ctx, status))
		status.Phase = services.PhaseFailed

		got, err := store.Get(ctx, "h3")
		require.NoError(t, err)
		require.Equal(t, services.PhaseCreating, got.Phase)
	})
}
