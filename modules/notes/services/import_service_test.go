package services_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/infrastructure/persistence"
	"github.com/arborhq/arbor/modules/notes/services"
)

func newImportFixture(t *testing.T) (context.Context, *persistence.MemoryNoteRepository, *services.ImportService, uuid.UUID) {
	t.Helper()
	repo := persistence.NewMemoryNoteRepository()
	tree := services.NewTreeService(repo, silentBus())
	status := services.NewMemoryImportStatusStore(time.Minute)
	t.Cleanup(status.Close)
	svc := services.NewImportService(tree, repo, status, services.ImportConfig{
		BatchSize:    10,
		Concurrency:  4,
		MaxRetries:   3,
		RetryBackoff: time.Millisecond,
	})
	return testContext(), repo, svc, uuid.New()
}

func strptr(s string) *string { return &s }

func findByContent(t *testing.T, notes []*note.Note, content string) *note.Note {
	t.Helper()
	for _, n := range notes {
		if n.Content() == content {
			return n
		}
	}
	t.Fatalf("no note with content %q", content)
	return nil
}

func TestImportService_ReconstructsAncestorChain(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newImportFixture(t)

	report, err := svc.Run(ctx, "h-chain", projectID, []services.ImportRecord{
		{ExternalID: "1", Content: "root"},
		{ExternalID: "2", ExternalParentID: strptr("1"), Content: "middle"},
		{ExternalID: "3", ExternalParentID: strptr("2"), Content: "leaf"},
	})
	require.NoError(t, err)
	require.Equal(t, 3, report.Total)
	require.Equal(t, 3, report.Succeeded)
	require.Zero(t, report.Failed)
	require.Empty(t, report.Failures)

	all, err := repo.GetByProject(ctx, projectID)
	require.NoError(t, err)
	require.Len(t, all, 3)

	root := findByContent(t, all, "root")
	middle := findByContent(t, all, "middle")
	leaf := findByContent(t, all, "leaf")

	require.Nil(t, root.ParentID())
	require.Equal(t, root.ID(), *middle.ParentID())
	require.Equal(t, middle.ID(), *leaf.ParentID())
}

func TestImportService_PartialFailure(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newImportFixture(t)

	records := make([]services.ImportRecord, 0, 100)
	for i := 0; i < 100; i++ {
		content := fmt.Sprintf("note-%d", i)
		if i%20 == 19 {
			content = "" // malformed: 5 of 100
		}
		records = append(records, services.ImportRecord{
			ExternalID: fmt.Sprintf("ext-%d", i),
			Content:    content,
		})
	}

	report, err := svc.Run(ctx, "h-partial", projectID, records)
	require.NoError(t, err)
	require.Equal(t, 100, report.Total)
	require.Equal(t, 95, report.Succeeded)
	require.Equal(t, 5, report.Failed)
	require.Len(t, report.Failures, 5)

	count, err := repo.CountByProject(ctx, projectID)
	require.NoError(t, err)
	require.Equal(t, int64(95), count)

	// The survivors form a normalized root group.
	roots, err := repo.GetSiblings(ctx, projectID, nil)
	require.NoError(t, err)
	require.Len(t, roots, 95)
	for i, n := range roots {
		require.Equal(t, float64(i), n.SortOrder().Float64())
	}
}

func TestImportService_UnresolvableParentStaysAtRoot(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newImportFixture(t)

	report, err := svc.Run(ctx, "h-orphan", projectID, []services.ImportRecord{
		{ExternalID: "1", Content: "root"},
		{ExternalID: "2", ExternalParentID: strptr("missing"), Content: "orphan"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.Succeeded)
	require.Len(t, report.Failures, 1)
	require.Contains(t, report.Failures[0], "not in import set")

	orphan := findByContent(t, mustProject(t, ctx, repo, projectID), "orphan")
	require.Nil(t, orphan.ParentID())
}

func TestImportService_OrderHintOrdersSiblings(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newImportFixture(t)

	hint := func(f float64) *float64 { return &f }
	_, err := svc.Run(ctx, "h-hint", projectID, []services.ImportRecord{
		{ExternalID: "p", Content: "parent"},
		{ExternalID: "a", ExternalParentID: strptr("p"), Content: "third", OrderHint: hint(30)},
		{ExternalID: "b", ExternalParentID: strptr("p"), Content: "first", OrderHint: hint(10)},
		{ExternalID: "c", ExternalParentID: strptr("p"), Content: "second", OrderHint: hint(20)},
	})
	require.NoError(t, err)

	all := mustProject(t, ctx, repo, projectID)
	parent := findByContent(t, all, "parent")
	parentID := parent.ID()

	children, err := repo.GetSiblings(ctx, projectID, &parentID)
	require.NoError(t, err)
	require.Len(t, children, 3)
	require.Equal(t, "first", children[0].Content())
	require.Equal(t, "second", children[1].Content())
	require.Equal(t, "third", children[2].Content())
	for i, n := range children {
		require.Equal(t, float64(i), n.SortOrder().Float64())
	}
}

func TestImportService_DuplicateExternalIDFails(t *testing.T) {
	t.Parallel()
	ctx, _, svc, projectID := newImportFixture(t)

	report, err := svc.Run(ctx, "h-dup", projectID, []services.ImportRecord{
		{ExternalID: "1", Content: "one"},
		{ExternalID: "1", Content: "clone"},
	})
	require.NoError(t, err)
	require.Equal(t, 1, report.Succeeded)
	require.Equal(t, 1, report.Failed)
	require.Contains(t, report.Failures[0], "duplicate external id")
}

func TestImportService_TransientRelinkRetries(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newImportFixture(t)

	failures := 0
	repo.FailPlacement = func(id uuid.UUID) error {
		if failures < 2 {
			failures++
			return persistence.ErrTransientStore
		}
		return nil
	}

	report, err := svc.Run(ctx, "h-retry", projectID, []services.ImportRecord{
		{ExternalID: "1", Content: "root"},
		{ExternalID: "2", ExternalParentID: strptr("1"), Content: "child"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.Succeeded)
	require.Empty(t, report.Failures)
	require.Equal(t, 2, failures)

	all := mustProject(t, ctx, repo, projectID)
	child := findByContent(t, all, "child")
	require.NotNil(t, child.ParentID())
}

func TestImportService_ExhaustedRetriesReported(t *testing.T) {
	t.Parallel()
	ctx, repo, svc, projectID := newImportFixture(t)

	repo.FailPlacement = func(id uuid.UUID) error {
		return persistence.ErrTransientStore
	}

	report, err := svc.Run(ctx, "h-exhaust", projectID, []services.ImportRecord{
		{ExternalID: "1", Content: "root"},
		{ExternalID: "2", ExternalParentID: strptr("1"), Content: "child"},
	})
	require.NoError(t, err)
	require.Equal(t, 2, report.Succeeded) // both rows exist, link failed
	require.NotEmpty(t, report.Failures)
	require.Contains(t, report.Failures[0], "relink failed")

	child := findByContent(t, mustProject(t, ctx, repo, projectID), "child")
	require.Nil(t, child.ParentID())
}

func TestImportService_Cancellation(t *testing.T) {
	t.Parallel()
	baseCtx, _, svc, projectID := newImportFixture(t)

	ctx, cancel := context.WithCancel(baseCtx)
	cancel()

	_, err := svc.Run(ctx, "h-cancel", projectID, []services.ImportRecord{
		{ExternalID: "1", Content: "root"},
	})
	require.ErrorIs(t, err, context.Canceled)

	status, statusErr := svc.Status(baseCtx, "h-cancel")
	require.NoError(t, statusErr)
	require.Equal(t, services.PhaseCancelled, status.Phase)
}

func TestImportService_StatusProgress(t *testing.T) {
	t.Parallel()
	ctx, _, svc, projectID := newImportFixture(t)

	records := make([]services.ImportRecord, 0, 25)
	for i := 0; i < 25; i++ {
		records = append(records, services.ImportRecord{
			ExternalID: fmt.Sprintf("ext-%d", i),
			Content:    fmt.Sprintf("note-%d", i),
		})
	}

	_, err := svc.Run(ctx, "h-progress", projectID, records)
	require.NoError(t, err)

	status, err := svc.Status(ctx, "h-progress")
	require.NoError(t, err)
	require.Equal(t, services.PhaseDone, status.Phase)
	require.Equal(t, 25, status.Processed)
	require.Equal(t, 25, status.Total)
	require.Equal(t, 25, status.Succeeded)
	require.Zero(t, status.Failed)
}

func mustProject(t *testing.T, ctx context.Context, repo note.Repository, projectID uuid.UUID) []*note.Note {
	t.Helper()
	all, err := repo.GetByProject(ctx, projectID)
	require.NoError(t, err)
	return all
}
