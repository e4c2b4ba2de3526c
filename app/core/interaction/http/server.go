package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"lumen/app/core/auth"
	"lumen/app/core/scheduler"
	"lumen/app/core/task"
	"lumen/app/core/voice"
	"lumen/app/pkg/logger"
)

// Server is the single HTTP surface: task management, the voice
// endpoint, and the sign-in flow, all behind the auth gateway.
type Server struct {
	port            int
	server          *http.Server
	tasks           *task.Store
	assistant       *voice.Assistant
	gateway         *auth.Gateway
	jobs            *scheduler.Scheduler
	shutdownTimeout time.Duration
	startedUnix     atomic.Int64
}

func NewServer(port int, tasks *task.Store, assistant *voice.Assistant, gateway *auth.Gateway) *Server {
	return &Server{
		port:            port,
		tasks:           tasks,
		assistant:       assistant,
		gateway:         gateway,
		shutdownTimeout: 5 * time.Second,
	}
}

func (s *Server) SetShutdownTimeout(timeout time.Duration) {
	if timeout <= 0 {
		return
	}
	s.shutdownTimeout = timeout
}

// SetScheduler wires the maintenance scheduler into the status endpoint.
func (s *Server) SetScheduler(jobs *scheduler.Scheduler) {
	s.jobs = jobs
}

func (s *Server) Start(ctx context.Context) error {
	s.startedUnix.Store(time.Now().Unix())

	handler := s.Handler()
	s.server = &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: handler,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.shutdownTimeout)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			logger.Error("[HTTP] Shutdown error: %v", err)
		}
	}()

	logger.Info("[HTTP] Listening on port %d...", s.port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Handler builds the full route table wrapped in the auth gateway.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/tasks", s.handleTasks)
	mux.HandleFunc("/tasks/", s.handleTask)
	mux.HandleFunc("/voice", s.handleVoice)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	s.gateway.Routes(mux)
	return s.gateway.Middleware(mux)
}

type statusResponse struct {
	Status    string      `json:"status"`
	StartedAt string      `json:"started_at,omitempty"`
	UptimeSec int64       `json:"uptime_sec"`
	Jobs      []jobStatus `json:"jobs,omitempty"`
}

type jobStatus struct {
	Name      string `json:"name"`
	Runs      int64  `json:"runs"`
	LastError string `json:"last_error,omitempty"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	resp := statusResponse{Status: "ok"}
	if started := s.startedUnix.Load(); started > 0 {
		startAt := time.Unix(started, 0).UTC()
		resp.StartedAt = startAt.Format(time.RFC3339)
		resp.UptimeSec = int64(time.Since(startAt).Seconds())
		if resp.UptimeSec < 0 {
			resp.UptimeSec = 0
		}
	}
	if s.jobs != nil {
		for _, st := range s.jobs.Snapshot() {
			resp.Jobs = append(resp.Jobs, jobStatus{
				Name:      st.Name,
				Runs:      st.Runs,
				LastError: st.LastError,
			})
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
