package controlplane

import (
	"sync"
	"time"

	"github.com/cuemby/muster/internal/errs"
	"github.com/cuemby/muster/internal/types"
	"github.com/google/uuid"
)

// TaskStore is the sole owner of operator task annotations. Tasks are pure
// bookkeeping over the fleet: starting, stopping, or failing one never
// touches the ring, a barrier, or a checkpoint.
type TaskStore struct {
	mu    sync.RWMutex
	tasks map[string]*types.Task
}

// NewTaskStore creates an empty task store.
func NewTaskStore() *TaskStore {
	return &TaskStore{tasks: make(map[string]*types.Task)}
}

// Create records a new task in TaskPending and returns it.
func (s *TaskStore) Create(name, kind, datasetID string, workerIDs []string) *types.Task {
	t := &types.Task{
		ID:        uuid.New().String(),
		Name:      name,
		Kind:      kind,
		Status:    types.TaskPending,
		WorkerIDs: workerIDs,
		DatasetID: datasetID,
		StartedAt: time.Now(),
	}

	s.mu.Lock()
	s.tasks[t.ID] = t
	s.mu.Unlock()
	return t
}

// Get returns the task by id.
func (s *TaskStore) Get(id string) (*types.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	return t, ok
}

// List returns all tasks, unordered.
func (s *TaskStore) List() []*types.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*types.Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		out = append(out, t)
	}
	return out
}

// Stop transitions a task to TaskCompleted. Stopping an already-terminal
// task is a no-op success, not an error — operators retry stop requests
// freely.
func (s *TaskStore) Stop(id string) (*types.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, errs.New(errs.NotFound, "task not found: "+id)
	}
	if t.Status == types.TaskPending || t.Status == types.TaskRunning {
		t.Status = types.TaskCompleted
		t.CompletedAt = time.Now()
		t.ProgressPercent = 100
	}
	return t, nil
}
