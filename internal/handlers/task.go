package handlers

import (
	"encoding/json"
	"net/http"

	"tasktrack/internal/models"
)

type taskPayload struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	DueDate     string `json:"due_date,omitempty"`
	Completed   bool   `json:"completed"`
}

// TaskState returns the coordinator's current published snapshot.
func (h *Handlers) TaskState(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.coord.State())
}

// LoadTasks re-derives all three views from the store.
func (h *Handlers) LoadTasks(w http.ResponseWriter, r *http.Request) {
	if err := h.coord.LoadTasks(r.Context()); err != nil {
		h.respondFault(w, err)
		return
	}
	respondJSON(w, http.StatusOK, h.coord.State())
}

// CreateTask adds a new task.
func (h *Handlers) CreateTask(w http.ResponseWriter, r *http.Request) {
	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	err := h.coord.AddTask(r.Context(), payload.Title, payload.Description, parseDate(payload.DueDate))
	if err != nil {
		h.respondFault(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.coord.State())
}

// UpdateTask replaces all fields of an existing task.
func (h *Handlers) UpdateTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	var payload taskPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	task := models.Task{
		ID:          id,
		Title:       payload.Title,
		Description: payload.Description,
		DueDate:     parseDate(payload.DueDate),
		Completed:   payload.Completed,
	}
	if err := h.coord.UpdateTask(r.Context(), task); err != nil {
		h.respondFault(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.coord.State())
}

// DeleteTask removes a task. Deleting a task that is already gone succeeds.
func (h *Handlers) DeleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := h.coord.DeleteTask(r.Context(), models.Task{ID: id}); err != nil {
		h.respondFault(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.coord.State())
}

// ToggleTask flips the completion status of a task.
func (h *Handlers) ToggleTask(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return
	}

	if err := h.coord.ToggleTaskCompletion(r.Context(), models.Task{ID: id}); err != nil {
		h.respondFault(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.coord.State())
}

// SearchTasks republishes the Tasks view filtered by title substring.
func (h *Handlers) SearchTasks(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")

	if err := h.coord.SearchTasksByTitle(r.Context(), query); err != nil {
		h.respondFault(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.coord.State())
}

// SortedTasks republishes the Tasks view ordered by due date.
func (h *Handlers) SortedTasks(w http.ResponseWriter, r *http.Request) {
	order := r.URL.Query().Get("order")
	if order != "" && order != "asc" && order != "desc" {
		respondError(w, http.StatusBadRequest, "order must be 'asc' or 'desc'")
		return
	}

	if err := h.coord.SortTasksByDueDate(r.Context(), order != "desc"); err != nil {
		h.respondFault(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.coord.State())
}

// ClearError clears the coordinator's last error signal.
func (h *Handlers) ClearError(w http.ResponseWriter, r *http.Request) {
	h.coord.ClearErrorMessage()
	respondJSON(w, http.StatusOK, h.coord.State())
}
