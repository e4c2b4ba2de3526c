package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"lumen/app/core/task"
	"lumen/app/pkg/logger"
)

type taskListResponse struct {
	Tasks []task.Task `json:"tasks"`
}

type taskResponse struct {
	Task task.Task `json:"task"`
}

type createTaskRequest struct {
	Title       string     `json:"title"`
	Description *string    `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	DueDate     *time.Time `json:"due_date"`
	AssignedTo  string     `json:"assigned_to"`
	CreatedBy   string     `json:"created_by"`
	Notes       *string    `json:"notes"`
	Overnight   bool       `json:"overnight"`
}

func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleTaskList(w, r)
	case http.MethodPost:
		s.handleTaskCreate(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTaskList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTaskFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	items, err := s.tasks.List(r.Context(), filter)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskListResponse{Tasks: items})
}

func parseTaskFilter(r *http.Request) (task.Filter, error) {
	var filter task.Filter
	query := r.URL.Query()

	if raw := query.Get("status"); raw != "" {
		status := task.Status(raw)
		filter.Status = &status
	}
	if raw := query.Get("priority"); raw != "" {
		priority := task.Priority(raw)
		filter.Priority = &priority
	}
	if raw := query.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return task.Filter{}, fmt.Errorf("invalid since timestamp: %q", raw)
		}
		filter.Since = &since
	}
	if raw := query.Get("overnight"); raw != "" {
		overnight, err := strconv.ParseBool(raw)
		if err != nil {
			return task.Filter{}, fmt.Errorf("invalid overnight flag: %q", raw)
		}
		filter.Overnight = &overnight
	}
	return filter, nil
}

func (s *Server) handleTaskCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	var req createTaskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	created, err := s.tasks.Create(r.Context(), task.Draft{
		Title:       req.Title,
		Description: req.Description,
		Status:      task.Status(req.Status),
		Priority:    task.Priority(req.Priority),
		DueDate:     req.DueDate,
		AssignedTo:  req.AssignedTo,
		CreatedBy:   req.CreatedBy,
		Notes:       req.Notes,
		Overnight:   req.Overnight,
	})
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, taskResponse{Task: created})
}

func (s *Server) handleTask(w http.ResponseWriter, r *http.Request) {
	id, ok := parseTaskPath(r.URL.Path)
	if !ok {
		http.NotFound(w, r)
		return
	}

	switch r.Method {
	case http.MethodGet:
		item, err := s.tasks.Get(r.Context(), id)
		if err != nil {
			writeTaskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, taskResponse{Task: item})
	case http.MethodPatch:
		s.handleTaskPatch(w, r, id)
	case http.MethodDelete:
		if err := s.tasks.Delete(r.Context(), id); err != nil {
			writeTaskError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (s *Server) handleTaskPatch(w http.ResponseWriter, r *http.Request, id string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	defer r.Body.Close()

	patch, err := parseTaskPatch(body)
	if err != nil {
		writeTaskError(w, err)
		return
	}

	updated, err := s.tasks.Update(r.Context(), id, patch)
	if err != nil {
		writeTaskError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, taskResponse{Task: updated})
}

// parseTaskPatch builds the merge-patch record from the raw body so an
// explicitly-null field stays distinguishable from an omitted one.
func parseTaskPatch(body []byte) (task.Patch, error) {
	var patch task.Patch
	if !gjson.ValidBytes(body) {
		return patch, &task.ValidationError{Message: "Invalid request body"}
	}
	root := gjson.ParseBytes(body)
	if !root.IsObject() {
		return patch, &task.ValidationError{Message: "Invalid request body"}
	}

	if v := root.Get("title"); v.Exists() {
		if v.Type != gjson.String {
			return patch, &task.ValidationError{Message: "Title is required"}
		}
		title := v.String()
		patch.Title = &title
	}
	if v := root.Get("description"); v.Exists() {
		patch.Description = optionalString(v)
	}
	if v := root.Get("status"); v.Exists() {
		if v.Type != gjson.String {
			return patch, &task.ValidationError{Message: fmt.Sprintf("invalid status: %s", v.Raw)}
		}
		status := task.Status(v.String())
		patch.Status = &status
	}
	if v := root.Get("priority"); v.Exists() {
		if v.Type != gjson.String {
			return patch, &task.ValidationError{Message: fmt.Sprintf("invalid priority: %s", v.Raw)}
		}
		priority := task.Priority(v.String())
		patch.Priority = &priority
	}
	if v := root.Get("due_date"); v.Exists() {
		if v.Type == gjson.Null {
			patch.DueDate = task.OptionalTime{Set: true}
		} else {
			due, err := time.Parse(time.RFC3339, v.String())
			if err != nil {
				return patch, &task.ValidationError{Message: fmt.Sprintf("invalid due_date: %s", v.Raw)}
			}
			patch.DueDate = task.OptionalTime{Set: true, Value: &due}
		}
	}
	if v := root.Get("assigned_to"); v.Exists() {
		if v.Type != gjson.String {
			return patch, &task.ValidationError{Message: "assigned_to cannot be empty"}
		}
		assignee := v.String()
		patch.AssignedTo = &assignee
	}
	if v := root.Get("notes"); v.Exists() {
		patch.Notes = optionalString(v)
	}
	if v := root.Get("overnight"); v.Exists() {
		if v.Type != gjson.True && v.Type != gjson.False {
			return patch, &task.ValidationError{Message: fmt.Sprintf("invalid overnight flag: %s", v.Raw)}
		}
		overnight := v.Bool()
		patch.Overnight = &overnight
	}
	return patch, nil
}

func optionalString(v gjson.Result) task.OptionalString {
	if v.Type == gjson.Null {
		return task.OptionalString{Set: true}
	}
	value := v.String()
	return task.OptionalString{Set: true, Value: &value}
}

func parseTaskPath(path string) (string, bool) {
	if !strings.HasPrefix(path, "/tasks/") {
		return "", false
	}
	id := strings.Trim(strings.TrimPrefix(path, "/tasks/"), "/")
	if id == "" || strings.Contains(id, "/") {
		return "", false
	}
	return id, true
}

func writeTaskError(w http.ResponseWriter, err error) {
	switch {
	case task.IsValidation(err):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, task.ErrNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	default:
		logger.Error("[HTTP] Task store error: %v", err)
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}
