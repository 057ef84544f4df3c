package api

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"legal-timer/internal/model"
	"legal-timer/internal/service"
)

// taskJSON is the wire shape of a task, with or without aggregates.
type taskJSON struct {
	ID            uint       `json:"id"`
	Title         string     `json:"title"`
	Description   string     `json:"description,omitempty"`
	CategoryID    *uint      `json:"category_id,omitempty"`
	Matter        string     `json:"matter,omitempty"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	TotalDuration int64      `json:"total_duration"`
	IsRunning     bool       `json:"is_running"`
}

func toTaskJSON(t model.Task) taskJSON {
	return taskJSON{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		CategoryID:  t.CategoryID,
		Matter:      t.Matter,
		Status:      string(t.Status),
		CreatedAt:   t.CreatedAt,
		CompletedAt: t.CompletedAt,
	}
}

func toTaskViewJSON(v model.TaskView) taskJSON {
	out := toTaskJSON(v.Task)
	out.TotalDuration = v.TotalDuration
	out.IsRunning = v.IsRunning
	return out
}

type sessionJSON struct {
	ID              uint       `json:"id"`
	TaskID          uint       `json:"task_id"`
	StartTime       time.Time  `json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	DurationSeconds int64      `json:"duration_seconds"`
}

func toSessionJSON(s model.Session) sessionJSON {
	return sessionJSON{
		ID:              s.ID,
		TaskID:          s.TaskID,
		StartTime:       s.StartTime,
		EndTime:         s.EndTime,
		DurationSeconds: s.DurationSeconds,
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"message": "Legal Task Timer API",
		"version": "1.0.0",
	})
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		FullName string `json:"full_name"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	user, err := s.auth.Register(r.Context(), req.Email, req.Password, req.FullName)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"id": user.ID, "email": user.Email})
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	token, err := s.auth.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request, user *model.User) {
	writeJSON(w, http.StatusOK, map[string]any{
		"id":        user.ID,
		"email":     user.Email,
		"full_name": user.FullName,
	})
}

func (s *Server) handleLinkTelegram(w http.ResponseWriter, r *http.Request, user *model.User) {
	var req struct {
		ChatID *int64 `json:"chat_id"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if err := s.users.SetTelegramChat(r.Context(), user.ID, req.ChatID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "Telegram chat updated"})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := s.catRepo.List(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	type categoryJSON struct {
		ID    uint   `json:"id"`
		Name  string `json:"name"`
		Color string `json:"color"`
	}
	out := make([]categoryJSON, 0, len(categories))
	for _, c := range categories {
		out = append(out, categoryJSON{ID: c.ID, Name: c.Name, Color: c.Color})
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleCreateTask(w http.ResponseWriter, r *http.Request, user *model.User) {
	var req struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		CategoryID  *uint  `json:"category_id"`
		Matter      string `json:"matter"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	task, err := s.tasks.Create(r.Context(), user.ID, service.TaskInput{
		Title:       req.Title,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		Matter:      req.Matter,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTaskJSON(*task))
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request, user *model.User) {
	var status *model.TaskStatus
	if raw := r.URL.Query().Get("status"); raw != "" {
		st := model.TaskStatus(raw)
		status = &st
	}
	views, err := s.timer.ListTasks(r.Context(), user.ID, status)
	if err != nil {
		writeError(w, err)
		return
	}
	out := make([]taskJSON, 0, len(views))
	for _, v := range views {
		out = append(out, toTaskViewJSON(v))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleActiveTask(w http.ResponseWriter, r *http.Request, user *model.User) {
	view, err := s.timer.ActiveTask(r.Context(), user.ID)
	if err != nil {
		writeError(w, err)
		return
	}
	if view == nil {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	writeJSON(w, http.StatusOK, toTaskViewJSON(*view))
}

func (s *Server) handleStartTimer(w http.ResponseWriter, r *http.Request, user *model.User) {
	taskID, err := pathTaskID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.timer.Start(r.Context(), user.ID, taskID)
	if err != nil {
		writeError(w, err)
		return
	}

	resp := map[string]any{
		"message": "Timer started",
		"session": toSessionJSON(*result.Session),
	}
	if result.StoppedTask != nil {
		resp["stopped_task"] = map[string]any{
			"id":    result.StoppedTask.ID,
			"title": result.StoppedTask.Title,
		}
		// Notification must not hold up the response.
		started := result.Session.TaskID
		go func(stopped model.Task) {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			startedTask, err := s.tasks.Get(ctx, user.ID, started)
			if err != nil {
				return
			}
			s.notifier.AutoStopped(ctx, user.ID, &stopped, startedTask)
		}(*result.StoppedTask)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleStopTimer(w http.ResponseWriter, r *http.Request, user *model.User) {
	taskID, err := pathTaskID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	session, err := s.timer.Stop(r.Context(), user.ID, taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Timer stopped",
		"session": toSessionJSON(*session),
	})
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request, user *model.User) {
	taskID, err := pathTaskID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	task, err := s.tasks.Complete(r.Context(), user.ID, taskID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTaskJSON(*task))
}

func (s *Server) handleExportCSV(w http.ResponseWriter, r *http.Request, user *model.User) {
	query := r.URL.Query()
	from, to, err := s.reports.ExportWindow(query.Get("from"), query.Get("to"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="timesheet.csv"`)
	if err := s.reports.WriteCSV(r.Context(), w, *user, from, to); err != nil {
		// Headers are already out; nothing useful to send the client.
		log.Printf("[warn] csv export for user %d: %v", user.ID, err)
	}
}

func pathTaskID(r *http.Request) (uint, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("%w: bad task id %q", service.ErrInvalidInput, raw)
	}
	return uint(id), nil
}
