package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/go-faster/errors"
	"github.com/redis/go-redis/v9"

	"github.com/arborhq/arbor/pkg/serrors"
)

type ImportPhase string

const (
	PhaseCreating    ImportPhase = "creating"
	PhaseRelinking   ImportPhase = "relinking"
	PhaseNormalizing ImportPhase = "normalizing"
	PhaseDone        ImportPhase = "done"
	PhaseCancelled   ImportPhase = "cancelled"
	PhaseFailed      ImportPhase = "failed"
)

// ImportStatus is the pollable progress of one import run, keyed by an
// opaque handle.
type ImportStatus struct {
	Handle    string      `json:"handle"`
	Phase     ImportPhase `json:"phase"`
	Processed int         `json:"processed"`
	Total     int         `json:"total"`
	Succeeded int         `json:"succeeded"`
	Failed    int         `json:"failed"`
	Failures  []string    `json:"failures,omitempty"`
	StartedAt time.Time   `json:"started_at"`
	UpdatedAt time.Time   `json:"updated_at"`
}

var ErrImportNotFound = serrors.NewError("IMPORT_NOT_FOUND", "import handle unknown or expired", "")

// ImportStatusStore holds import progress for polling callers. Entries
// expire after the configured retention window.
type ImportStatusStore interface {
	Set(ctx context.Context, status *ImportStatus) error
	Get(ctx context.Context, handle string) (*ImportStatus, error)
}

// ---- in-memory backend ----

type memoryStatusEntry struct {
	status    ImportStatus
	expiresAt time.Time
}

type MemoryImportStatusStore struct {
	mu        sync.RWMutex
	entries   map[string]memoryStatusEntry
	retention time.Duration
	stop      chan struct{}
	stopOnce  sync.Once
}

func NewMemoryImportStatusStore(retention time.Duration) *MemoryImportStatusStore {
	s := &MemoryImportStatusStore{
		entries:   make(map[string]memoryStatusEntry),
		retention: retention,
		stop:      make(chan struct{}),
	}
	go s.janitor()
	return s
}

func (s *MemoryImportStatusStore) janitor() {
	interval := s.retention / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-s.stop:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			for handle, entry := range s.entries {
				if now.After(entry.expiresAt) {
					delete(s.entries, handle)
				}
			}
			s.mu.Unlock()
		}
	}
}

func (s *MemoryImportStatusStore) Close() {
	s.stopOnce.Do(func() { close(s.stop) })
}

func (s *MemoryImportStatusStore) Set(ctx context.Context, status *ImportStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[status.Handle] = memoryStatusEntry{
		status:    *status,
		expiresAt: time.Now().Add(s.retention),
	}
	return nil
}

func (s *MemoryImportStatusStore) Get(ctx context.Context, handle string) (*ImportStatus, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.entries[handle]
	if !ok || time.Now().After(entry.expiresAt) {
		return nil, ErrImportNotFound
	}
	status := entry.status
	return &status, nil
}

// ---- redis backend ----

type RedisImportStatusStore struct {
	client    *redis.Client
	retention time.Duration
}

func NewRedisImportStatusStore(client *redis.Client, retention time.Duration) *RedisImportStatusStore {
	return &RedisImportStatusStore{client: client, retention: retention}
}

func statusKey(handle string) string {
	return "arbor:import:" + handle
}

func (s *RedisImportStatusStore) Set(ctx context.Context, status *ImportStatus) error {
	payload, err := json.Marshal(status)
	if err != nil {
		return errors.Wrap(err, "failed to marshal import status")
	}
	if err := s.client.Set(ctx, statusKey(status.Handle), payload, s.retention).Err(); err != nil {
		return errors.Wrap(err, "failed to store import status")
	}
	return nil
}

func (s *RedisImportStatusStore) Get(ctx context.Context, handle string) (*ImportStatus, error) {
	payload, err := s.client.Get(ctx, statusKey(handle)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrImportNotFound
		}
		return nil, errors.Wrap(err, "failed to read import status")
	}
	var status ImportStatus
	if err := json.Unmarshal(payload, &status); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal import status")
	}
	return &status, nil
}
