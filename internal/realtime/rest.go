package realtime

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"focusdeck/internal/protocol"
	"focusdeck/internal/store"
)

type startTimerRequest struct {
	TaskID string `json:"taskId"`
}

type entryResponse struct {
	ID        string `json:"id"`
	TaskID    string `json:"taskId"`
	StartedAt int64  `json:"startedAt"`
	EndedAt   int64  `json:"endedAt"`
	Duration  int64  `json:"duration"`
}

type timeResponse struct {
	ID    string `json:"id"`
	Total int64  `json:"total"` // milliseconds
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func (s *Server) timerPayload() protocol.TimerProgressPayload {
	sig := s.engine.Progress()
	return protocol.TimerProgressPayload{
		Phase:                  string(sig.Phase),
		TargetID:               sig.Target,
		Elapsed:                sig.Elapsed.Milliseconds(),
		Remaining:              sig.Remaining.Milliseconds(),
		Paused:                 sig.Paused,
		SessionsCompletedToday: sig.SessionsCompletedToday,
	}
}

func (s *Server) handleGetTimer(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.timerPayload())
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request) {
	var req startTimerRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
			return
		}
	}

	s.engine.Start(req.TaskID)
	writeJSON(w, http.StatusOK, s.timerPayload())
}

func (s *Server) handlePauseTimer(w http.ResponseWriter, r *http.Request) {
	s.engine.PauseResume()
	writeJSON(w, http.StatusOK, s.timerPayload())
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request) {
	s.engine.Stop()
	writeJSON(w, http.StatusOK, s.timerPayload())
}

func (s *Server) handleSkipBreak(w http.ResponseWriter, r *http.Request) {
	s.engine.SkipBreak()
	writeJSON(w, http.StatusOK, s.timerPayload())
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	entries := s.engine.Entries()
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, entryResponse{
			ID:        e.ID,
			TaskID:    e.TaskID,
			StartedAt: e.StartedAt.UnixMilli(),
			EndedAt:   e.EndedAt.UnixMilli(),
			Duration:  e.Duration.Milliseconds(),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Tasks())
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var task store.Task
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if task.Title == "" {
		http.Error(w, `{"error":"title is required"}`, http.StatusBadRequest)
		return
	}
	if task.ID == "" {
		task.ID = uuid.New().String()
	}

	s.bridge.AddTask(task)
	writeJSON(w, http.StatusCreated, task)
}

func (s *Server) handleTaskTime(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, timeResponse{
		ID:    id,
		Total: s.engine.TimeForTask(id).Milliseconds(),
	})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.bridge.CompleteTask(id); err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"completed"}`))
}

func (s *Server) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.bridge.DeleteTask(id); err != nil {
		http.Error(w, `{"error":"task not found"}`, http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"deleted"}`))
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.bridge.Projects())
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var project store.Project
	if err := json.NewDecoder(r.Body).Decode(&project); err != nil {
		http.Error(w, `{"error":"invalid request body"}`, http.StatusBadRequest)
		return
	}
	if project.Name == "" {
		http.Error(w, `{"error":"name is required"}`, http.StatusBadRequest)
		return
	}
	if project.ID == "" {
		project.ID = uuid.New().String()
	}

	s.bridge.AddProject(project)
	writeJSON(w, http.StatusCreated, project)
}

func (s *Server) handleProjectTime(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	writeJSON(w, http.StatusOK, timeResponse{
		ID:    id,
		Total: s.bridge.TimeForProject(id).Milliseconds(),
	})
}
