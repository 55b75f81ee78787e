package session

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ziadkadry99/auto-improve/internal/config"
)

var validate = validator.New()

// StartRequest is the POST /api/sessions body.
type StartRequest struct {
	Mode          string `json:"mode" validate:"required,oneof=conservative balanced aggressive exploratory"`
	MaxIterations int    `json:"max_iterations" validate:"required,min=1,max=1000"`
	SessionID     string `json:"session_id" validate:"omitempty,max=128"`
}

// RegisterRoutes mounts the session control endpoints on the given router.
func RegisterRoutes(r chi.Router, m *Manager) {
	r.Post("/api/sessions", startSessionHandler(m))
	r.Get("/api/sessions", listSessionsHandler(m))
	r.Get("/api/sessions/{id}", getSessionHandler(m))
	r.Post("/api/sessions/{id}/stop", stopSessionHandler(m))
	r.Get("/api/sessions/{id}/iterations", iterationsHandler(m))
	r.Get("/api/sessions/{id}/improvements", improvementsHandler(m))
	r.Get("/api/stats", statsHandler(m))
}

func startSessionHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		summary, err := m.StartSession(config.Mode(req.Mode), req.MaxIterations, req.SessionID)
		if err != nil {
			http.Error(w, err.Error(), http.StatusConflict)
			return
		}
		writeJSON(w, http.StatusCreated, summary)
	}
}

func listSessionsHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		sessions := m.ListSessions()
		if sessions == nil {
			sessions = []Summary{}
		}
		writeJSON(w, http.StatusOK, sessions)
	}
}

func getSessionHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		summary, ok := m.GetSession(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, summary)
	}
}

func stopSessionHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if !m.StopSession(id) {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "stopping", "id": id})
	}
}

func iterationsHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		iterations, ok := m.Iterations(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if iterations == nil {
			iterations = []IterationDetail{}
		}
		writeJSON(w, http.StatusOK, iterations)
	}
}

func improvementsHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		improvements, ok := m.Improvements(chi.URLParam(r, "id"))
		if !ok {
			http.Error(w, "session not found", http.StatusNotFound)
			return
		}
		if improvements == nil {
			improvements = []ImprovementRecord{}
		}
		writeJSON(w, http.StatusOK, improvements)
	}
}

func statsHandler(m *Manager) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, m.GlobalStats())
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
