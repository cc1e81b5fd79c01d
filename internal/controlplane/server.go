package controlplane

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/cuemby/muster/internal/errs"
	"github.com/cuemby/muster/internal/logging"
	"github.com/cuemby/muster/internal/metrics"
	"github.com/cuemby/muster/internal/types"
)

// WorkerSource is the read surface this package needs from the worker
// registry.
type WorkerSource interface {
	ListWorkers() []*types.Worker
	Get(id types.WorkerID) (*types.Worker, bool)
}

// DatasetSource is the read surface this package needs from the dataset
// registry.
type DatasetSource interface {
	ListDatasets() []*types.Dataset
	Get(id string) (*types.Dataset, bool)
}

// CheckpointSource is the read surface this package needs from the
// checkpoint index.
type CheckpointSource interface {
	List(namespace string, limit int) []*types.Checkpoint
	Latest(namespace string) (*types.Checkpoint, bool)
}

// BarrierSource is the read surface this package needs from the barrier
// registry.
type BarrierSource interface {
	List() []types.BarrierSnapshot
	Snapshot(name string) (types.BarrierSnapshot, bool)
}

// RingSource is the read surface this package needs from the shard ring.
type RingSource interface {
	Size() int
	Epoch() uint64
}

// LogTailer serves /api/logs. internal/logging.RingWriter satisfies this.
type LogTailer interface {
	Tail(limit int) []string
}

// Server serves the control-plane read API plus the task annotation
// routes it owns outright.
type Server struct {
	workers     WorkerSource
	datasets    DatasetSource
	checkpoints CheckpointSource
	barriers    BarrierSource
	ring        RingSource
	tasks       *TaskStore
	logTail     LogTailer
	startedAt   time.Time

	mux *http.ServeMux
	srv *http.Server
}

// NewServer wires every read-only data source into a ready-to-serve mux.
func NewServer(workers WorkerSource, datasets DatasetSource, checkpoints CheckpointSource, barriers BarrierSource, ring RingSource, tasks *TaskStore, logTail LogTailer) *Server {
	s := &Server{
		workers:     workers,
		datasets:    datasets,
		checkpoints: checkpoints,
		barriers:    barriers,
		ring:        ring,
		tasks:       tasks,
		logTail:     logTail,
		startedAt:   time.Now(),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/api/health", metrics.HealthHandler())
	mux.Handle("/ready", metrics.ReadyHandler())
	mux.Handle("/live", metrics.LivenessHandler())
	mux.HandleFunc("/api/status", s.track("status", s.handleStatus))
	mux.HandleFunc("/api/workers", s.track("workers", s.handleWorkers))
	mux.HandleFunc("/api/datasets", s.track("datasets", s.handleDatasets))
	mux.HandleFunc("/api/checkpoints", s.track("checkpoints", s.handleCheckpoints))
	mux.HandleFunc("/api/barriers", s.track("barriers", s.handleBarriers))
	mux.Handle("/api/metrics", metrics.Handler())
	mux.HandleFunc("/api/dashboard", s.track("dashboard", s.handleDashboard))
	mux.HandleFunc("/api/tasks", s.track("tasks", s.handleTasksCollection))
	mux.HandleFunc("/api/tasks/", s.track("tasks_item", s.handleTaskItem))
	mux.HandleFunc("/api/logs", s.track("logs", s.handleLogs))
	s.mux = mux

	return s
}

// Start listens on addr and serves until Stop is called or the listener
// fails, mirroring the timeouts the teacher's health server sets.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:         addr,
		Handler:      s.mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	logging.WithComponent("controlplane").Info().Str("addr", addr).Msg("control-plane API listening")
	return s.srv.ListenAndServe()
}

// Stop shuts the HTTP server down without interrupting in-flight requests
// past their own deadlines.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}
	return s.srv.Shutdown(context.Background())
}

// statusRecorder captures the status code a handler wrote, defaulting to
// 200 for handlers that never call WriteHeader explicitly (e.g. via
// writeJSON's own WriteHeader call, which still triggers this).
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (sr *statusRecorder) WriteHeader(code int) {
	sr.status = code
	sr.ResponseWriter.WriteHeader(code)
}

// track wraps h so every request against route is counted by outcome status,
// feeding muster_control_plane_requests_total.
func (s *Server) track(route string, h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		h(rec, r)
		metrics.ControlPlaneRequestsTotal.WithLabelValues(route, strconv.Itoa(rec.status)).Inc()
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, httpStatus(errs.KindOf(err)), map[string]string{"error": err.Error()})
}

type statusResponse struct {
	WorkerCount   int    `json:"worker_count"`
	DatasetCount  int    `json:"dataset_count"`
	RingSize      int    `json:"ring_size"`
	RingEpoch     uint64 `json:"ring_epoch"`
	UptimeSeconds int64  `json:"uptime_seconds"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		WorkerCount:   len(s.workers.ListWorkers()),
		DatasetCount:  len(s.datasets.ListDatasets()),
		RingSize:      s.ring.Size(),
		RingEpoch:     s.ring.Epoch(),
		UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
	})
}

func (s *Server) handleWorkers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	workers := s.workers.ListWorkers()
	out := make([]workerView, 0, len(workers))
	for _, wk := range workers {
		out = append(out, newWorkerView(wk))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleDatasets(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	datasets := s.datasets.ListDatasets()
	out := make([]datasetView, 0, len(datasets))
	for _, d := range datasets {
		out = append(out, newDatasetView(d))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	namespace := r.URL.Query().Get("namespace")
	if namespace == "" {
		writeError(w, errs.New(errs.Invalid, "namespace query parameter is required"))
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errs.New(errs.Invalid, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	checkpoints := s.checkpoints.List(namespace, limit)
	out := make([]checkpointView, 0, len(checkpoints))
	for _, c := range checkpoints {
		out = append(out, newCheckpointView(c))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleBarriers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	snapshots := s.barriers.List()
	out := make([]barrierView, 0, len(snapshots))
	for _, b := range snapshots {
		out = append(out, newBarrierView(b))
	}
	writeJSON(w, http.StatusOK, out)
}

type dashboardResponse struct {
	Status   statusResponse `json:"status"`
	Workers  []workerView   `json:"workers"`
	Barriers []barrierView  `json:"barriers"`
	Tasks    []taskView     `json:"tasks"`
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	workers := s.workers.ListWorkers()
	workerViews := make([]workerView, 0, len(workers))
	for _, wk := range workers {
		workerViews = append(workerViews, newWorkerView(wk))
	}

	snapshots := s.barriers.List()
	barrierViews := make([]barrierView, 0, len(snapshots))
	for _, b := range snapshots {
		barrierViews = append(barrierViews, newBarrierView(b))
	}

	tasks := s.tasks.List()
	taskViews := make([]taskView, 0, len(tasks))
	for _, t := range tasks {
		taskViews = append(taskViews, newTaskView(t))
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		Status: statusResponse{
			WorkerCount:   len(workers),
			DatasetCount:  len(s.datasets.ListDatasets()),
			RingSize:      s.ring.Size(),
			RingEpoch:     s.ring.Epoch(),
			UptimeSeconds: int64(time.Since(s.startedAt).Seconds()),
		},
		Workers:  workerViews,
		Barriers: barrierViews,
		Tasks:    taskViews,
	})
}

type createTaskRequest struct {
	Name      string   `json:"name"`
	Kind      string   `json:"kind"`
	DatasetID string   `json:"dataset_id,omitempty"`
	WorkerIDs []string `json:"worker_ids,omitempty"`
}

func (s *Server) handleTasksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		tasks := s.tasks.List()
		out := make([]taskView, 0, len(tasks))
		for _, t := range tasks {
			out = append(out, newTaskView(t))
		}
		writeJSON(w, http.StatusOK, out)
	case http.MethodPost:
		var req createTaskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, errs.Wrap(errs.Invalid, "malformed request body", err))
			return
		}
		if req.Name == "" || req.Kind == "" {
			writeError(w, errs.New(errs.Invalid, "name and kind are required"))
			return
		}
		t := s.tasks.Create(req.Name, req.Kind, req.DatasetID, req.WorkerIDs)
		writeJSON(w, http.StatusCreated, newTaskView(t))
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// handleTaskItem serves POST /api/tasks/{id}/stop.
func (s *Server) handleTaskItem(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	path := r.URL.Path[len("/api/tasks/"):]
	const stopSuffix = "/stop"
	if len(path) <= len(stopSuffix) || path[len(path)-len(stopSuffix):] != stopSuffix {
		http.NotFound(w, r)
		return
	}
	id := path[:len(path)-len(stopSuffix)]

	t, err := s.tasks.Stop(id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newTaskView(t))
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, errs.New(errs.Invalid, "limit must be a non-negative integer"))
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, map[string][]string{"lines": s.logTail.Tail(limit)})
}
