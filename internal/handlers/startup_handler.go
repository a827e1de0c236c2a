package handlers

import (
	"net/http"
	"sync"
)

// Startup tracks the initialization progress reported by the health endpoint
type Startup struct {
	mu      sync.RWMutex
	ready   bool
	current string
	steps   []StartupStep
}

type StartupStep struct {
	Name      string `json:"name"`
	Completed bool   `json:"completed"`
}

type healthResponse struct {
	Status   string        `json:"status"`
	Ready    bool          `json:"ready"`
	Current  string        `json:"current"`
	Progress int           `json:"progress"`
	Steps    []StartupStep `json:"steps"`
}

// NewStartup creates a tracker with the named steps, none completed
func NewStartup(steps ...string) *Startup {
	s := &Startup{current: "Initializing..."}
	for _, name := range steps {
		s.steps = append(s.steps, StartupStep{Name: name})
	}
	return s
}

// SetCurrentStep updates the current initialization step
func (s *Startup) SetCurrentStep(step string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = step
}

// CompleteStep marks a step as completed
func (s *Startup) CompleteStep(stepName string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.steps {
		if s.steps[i].Name == stepName {
			s.steps[i].Completed = true
			break
		}
	}
}

// MarkReady marks the server as fully initialized
func (s *Startup) MarkReady() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = true
	s.current = "Server ready"
}

// IsReady returns whether the server is fully initialized
func (s *Startup) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Health reports readiness. It answers 503 until MarkReady is called.
func (s *Startup) Health(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	resp := healthResponse{
		Status:  "starting",
		Ready:   s.ready,
		Current: s.current,
		Steps:   append([]StartupStep(nil), s.steps...),
	}
	s.mu.RUnlock()

	completed := 0
	for _, step := range resp.Steps {
		if step.Completed {
			completed++
		}
	}
	switch {
	case resp.Ready:
		resp.Progress = 100
	case len(resp.Steps) > 0:
		resp.Progress = (completed * 100) / len(resp.Steps)
	}

	status := http.StatusServiceUnavailable
	if resp.Ready {
		resp.Status = "ok"
		status = http.StatusOK
	}
	writeJSON(w, status, resp)
}

// RequireReady answers 503 for API calls made before initialization finished
func (s *Startup) RequireReady(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !s.IsReady() {
			w.Header().Set("Retry-After", "2")
			respondWithError(w, http.StatusServiceUnavailable, ErrServerNotReady, "", nil)
			return
		}
		next.ServeHTTP(w, r)
	})
}
