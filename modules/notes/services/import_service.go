package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/arborhq/arbor/modules/notes/domain/entities/note"
	"github.com/arborhq/arbor/modules/notes/domain/value_objects/order"
	"github.com/arborhq/arbor/modules/notes/infrastructure/persistence"
	"github.com/arborhq/arbor/pkg/composables"
	"github.com/arborhq/arbor/pkg/metrics"
)

// ImportRecord is one row of an externally produced flat list. ExternalID
// and ExternalParentID live in the source's id space; the pipeline mints
// fresh ids and remaps the links.
type ImportRecord struct {
	ExternalID       string   `json:"external_id"`
	ExternalParentID *string  `json:"external_parent_id,omitempty"`
	Content          string   `json:"content"`
	Link             string   `json:"link,omitempty"`
	MediaRef         string   `json:"media_ref,omitempty"`
	TimeMarker       string   `json:"time_marker,omitempty"`
	Discussion       bool     `json:"discussion,omitempty"`
	Images           []string `json:"images,omitempty"`
	OrderHint        *float64 `json:"order_hint,omitempty"`
}

type ImportConfig struct {
	BatchSize    int
	Concurrency  int
	MaxRetries   uint64
	RetryBackoff time.Duration
}

func (c ImportConfig) withDefaults() ImportConfig {
	if c.BatchSize < 1 {
		c.BatchSize = 50
	}
	if c.Concurrency < 1 {
		c.Concurrency = 8
	}
	if c.RetryBackoff <= 0 {
		c.RetryBackoff = 100 * time.Millisecond
	}
	return c
}

// ImportReport is the final outcome of a pipeline run.
type ImportReport struct {
	Handle    string   `json:"handle"`
	Total     int      `json:"total"`
	Succeeded int      `json:"succeeded"`
	Failed    int      `json:"failed"`
	Failures  []string `json:"failures,omitempty"`
}

// ImportService reconstructs a tree from a flat list of externally
// identified records in three phases: parentless creation with an id remap,
// relinking grouped by new parent, and one normalization pass per touched
// group. Individual record failures never abort the run; only failing to
// reach storage at all does.
type ImportService struct {
	tree   *TreeService
	repo   note.Repository
	status ImportStatusStore
	config ImportConfig
}

func NewImportService(tree *TreeService, repo note.Repository, status ImportStatusStore, config ImportConfig) *ImportService {
	return &ImportService{
		tree:   tree,
		repo:   repo,
		status: status,
		config: config.withDefaults(),
	}
}

// Start launches an asynchronous run and returns its polling handle.
func (s *ImportService) Start(ctx context.Context, projectID uuid.UUID, records []ImportRecord) (string, error) {
	handle := uuid.New().String()
	runCtx := context.WithoutCancel(ctx)
	go func() {
		if _, err := s.Run(runCtx, handle, projectID, records); err != nil {
			composables.UseLogger(runCtx).WithError(err).Error("bulk import aborted")
		}
	}()
	return handle, nil
}

func (s *ImportService) Status(ctx context.Context, handle string) (*ImportStatus, error) {
	return s.status.Get(ctx, handle)
}

type importRun struct {
	mu        sync.Mutex
	idMap     map[string]uuid.UUID
	failures  []string
	succeeded int
	processed int
}

func (r *importRun) recordSuccess(externalID string, id uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.idMap[externalID] = id
	r.succeeded++
	r.processed++
}

func (r *importRun) recordFailure(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
	r.processed++
}

func (r *importRun) noteFailure(format string, args ...interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, fmt.Sprintf(format, args...))
}

func (r *importRun) resolve(externalID string) (uuid.UUID, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.idMap[externalID]
	return id, ok
}

// Run executes the pipeline synchronously. Cancellation is honored at batch
// and group boundaries; groups already relinked are still normalized so a
// partial import leaves a valid tree.
func (s *ImportService) Run(ctx context.Context, handle string, projectID uuid.UUID, records []ImportRecord) (*ImportReport, error) {
	run := &importRun{idMap: make(map[string]uuid.UUID, len(records))}
	startedAt := time.Now()

	publish := func(phase ImportPhase) {
		run.mu.Lock()
		status := &ImportStatus{
			Handle:    handle,
			Phase:     phase,
			Processed: run.processed,
			Total:     len(records),
			Succeeded: run.succeeded,
			Failed:    len(records) - run.succeeded,
			Failures:  append([]string(nil), run.failures...),
			StartedAt: startedAt,
			UpdatedAt: time.Now(),
		}
		run.mu.Unlock()
		// Status must land even after cancellation so pollers see the
		// final state.
		if err := s.status.Set(context.WithoutCancel(ctx), status); err != nil {
			composables.UseLogger(ctx).WithError(err).Warn("failed to publish import status")
		}
	}

	publish(PhaseCreating)

	touched, err := s.phaseCreate(ctx, projectID, records, run, publish)
	if err == nil {
		touched, err = s.phaseRelink(ctx, records, run, publish, touched)
	}

	// Normalize whatever was touched even on cancellation, so the records
	// already processed form a valid, renumbered tree.
	normCtx := ctx
	if ctx.Err() != nil {
		normCtx = context.WithoutCancel(ctx)
	}
	s.phaseNormalize(normCtx, projectID, touched, publish)

	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			publish(PhaseCancelled)
		} else {
			publish(PhaseFailed)
		}
		return nil, err
	}
	publish(PhaseDone)

	run.mu.Lock()
	defer run.mu.Unlock()
	return &ImportReport{
		Handle:    handle,
		Total:     len(records),
		Succeeded: run.succeeded,
		Failed:    len(records) - run.succeeded,
		Failures:  append([]string(nil), run.failures...),
	}, nil
}

// phaseCreate inserts every record as a parentless root in bounded-
// concurrency batches, building the external-to-new id map. Returns the set
// of touched parent groups (here: just the root group).
func (s *ImportService) phaseCreate(ctx context.Context, projectID uuid.UUID, records []ImportRecord, run *importRun, publish func(ImportPhase)) (map[uuid.UUID]bool, error) {
	defer observePhase("create")()
	touched := map[uuid.UUID]bool{uuid.Nil: true}

	seen := make(map[string]bool, len(records))

	for start := 0; start < len(records); start += s.config.BatchSize {
		if err := ctx.Err(); err != nil {
			return touched, err
		}

		end := start + s.config.BatchSize
		if end > len(records) {
			end = len(records)
		}

		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.Concurrency)
		for i := start; i < end; i++ {
			rec := records[i]
			idx := i

			if rec.ExternalID == "" || rec.Content == "" {
				run.recordFailure("record %d: malformed (missing external id or content)", idx)
				metrics.ImportRecords.WithLabelValues("malformed").Inc()
				continue
			}
			if seen[rec.ExternalID] {
				run.recordFailure("record %d: duplicate external id %q", idx, rec.ExternalID)
				metrics.ImportRecords.WithLabelValues("malformed").Inc()
				continue
			}
			seen[rec.ExternalID] = true

			g.Go(func() error {
				// Parent links are deferred to phase 2; the interim key
				// reflects list position and is renumbered in phase 3.
				n := note.New(
					projectID,
					note.WithSortOrder(order.FromInt(int64(idx))),
					note.WithContent(rec.Content),
					note.WithLink(rec.Link),
					note.WithMediaRef(rec.MediaRef),
					note.WithTimeMarker(rec.TimeMarker),
					note.WithDiscussion(rec.Discussion),
					note.WithImages(rec.Images),
				)
				if err := s.createWithRetry(gctx, n); err != nil {
					run.recordFailure("record %d (%s): create failed: %v", idx, rec.ExternalID, err)
					metrics.ImportRecords.WithLabelValues("failed").Inc()
					return nil // independent records, keep going
				}
				run.recordSuccess(rec.ExternalID, n.ID())
				metrics.ImportRecords.WithLabelValues("created").Inc()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return touched, err
		}
		publish(PhaseCreating)
	}
	return touched, nil
}

// phaseRelink re-parents records whose external parent resolved, grouped by
// new parent. Groups run in parallel; writes within a group stay serial and
// in hint-then-list order.
func (s *ImportService) phaseRelink(ctx context.Context, records []ImportRecord, run *importRun, publish func(ImportPhase), touched map[uuid.UUID]bool) (map[uuid.UUID]bool, error) {
	defer observePhase("relink")()
	publish(PhaseRelinking)

	type relink struct {
		id   uuid.UUID
		rec  ImportRecord
		idx  int
		dest uuid.UUID
	}

	groups := make(map[uuid.UUID][]relink)
	for i, rec := range records {
		if rec.ExternalParentID == nil {
			continue
		}
		id, ok := run.resolve(rec.ExternalID)
		if !ok {
			continue // record itself failed in phase 1
		}
		parentID, ok := run.resolve(*rec.ExternalParentID)
		if !ok {
			// Unresolvable parent: the record stays at the root.
			run.noteFailure("record %d (%s): external parent %q not in import set, left at root", i, rec.ExternalID, *rec.ExternalParentID)
			continue
		}
		groups[parentID] = append(groups[parentID], relink{id: id, rec: rec, idx: i, dest: parentID})
	}

	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.config.Concurrency)
	for parentID, pending := range groups {
		if err := ctx.Err(); err != nil {
			_ = g.Wait()
			return touched, err
		}
		parentID := parentID
		pending := pending

		g.Go(func() error {
			sort.SliceStable(pending, func(a, b int) bool {
				ha, hb := pending[a].rec.OrderHint, pending[b].rec.OrderHint
				if ha != nil && hb != nil && *ha != *hb {
					return *ha < *hb
				}
				return pending[a].idx < pending[b].idx
			})

			relinked := false
			for pos, item := range pending {
				dest := item.dest
				key := order.FromInt(int64(pos))
				if err := s.placeWithRetry(gctx, item.id, &dest, key); err != nil {
					run.noteFailure("record %d (%s): relink failed after retries: %v", item.idx, item.rec.ExternalID, err)
					metrics.ImportRecords.WithLabelValues("relink_failed").Inc()
					continue
				}
				relinked = true
				metrics.ImportRecords.WithLabelValues("relinked").Inc()
			}
			if relinked {
				mu.Lock()
				touched[parentID] = true
				mu.Unlock()
			}
			publish(PhaseRelinking)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return touched, err
	}
	return touched, ctx.Err()
}

// phaseNormalize renumbers each parent group touched by the run.
func (s *ImportService) phaseNormalize(ctx context.Context, projectID uuid.UUID, touched map[uuid.UUID]bool, publish func(ImportPhase)) {
	defer observePhase("normalize")()
	publish(PhaseNormalizing)

	for parentID := range touched {
		var parent *uuid.UUID
		if parentID != uuid.Nil {
			p := parentID
			parent = &p
		}
		if _, err := s.tree.Normalize(ctx, projectID, parent); err != nil {
			composables.UseLogger(ctx).WithError(err).Warn("import normalization failed, keys left fractional")
		}
	}
}

func (s *ImportService) createWithRetry(ctx context.Context, n *note.Note) error {
	return s.retry(ctx, func() error { return s.repo.Create(ctx, n) })
}

func (s *ImportService) placeWithRetry(ctx context.Context, id uuid.UUID, parentID *uuid.UUID, key order.Key) error {
	return s.retry(ctx, func() error { return s.repo.UpdatePlacement(ctx, id, parentID, key) })
}

// retry runs op with exponential backoff on transient storage failures.
// Permanent errors fail immediately.
func (s *ImportService) retry(ctx context.Context, op func() error) error {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.config.RetryBackoff
	return backoff.Retry(func() error {
		err := op()
		if err == nil {
			return nil
		}
		if persistence.IsTransient(err) {
			return err
		}
		return backoff.Permanent(err)
	}, backoff.WithContext(backoff.WithMaxRetries(policy, s.config.MaxRetries), ctx))
}

func observePhase(phase string) func() {
	start := time.Now()
	return func() {
		metrics.ImportDuration.WithLabelValues(phase).Observe(time.Since(start).Seconds())
	}
}
