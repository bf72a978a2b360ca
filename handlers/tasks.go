package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/buildwise/backend/access"
	"github.com/buildwise/backend/middleware"
	"github.com/buildwise/backend/models"
	"github.com/buildwise/backend/store"
	"github.com/go-chi/chi/v5"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const maxCommentLen = 500

// TaskStore is the persistence surface the task routes need.
// *store.DB satisfies it; tests substitute an in-memory fake.
type TaskStore interface {
	TaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error)
	ProjectByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	AccessibleProjectIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	ListTasks(ctx context.Context, opts store.TaskListOptions) ([]models.Task, int64, error)
	InsertTask(ctx context.Context, t *models.Task) (primitive.ObjectID, error)
	UpdateTask(ctx context.Context, id primitive.ObjectID, set bson.M) error
	SoftDeleteTask(ctx context.Context, id primitive.ObjectID) error
	AddTaskComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error
	SetTaskProgress(ctx context.Context, t *models.Task) error
	UsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
	ProjectRefsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Project, error)
}

type TasksHandler struct {
	DB TaskStore
}

// scopeProjectIDs resolves the accessible-project set for list queries.
// Returns nil for admins, meaning unrestricted.
func (h *TasksHandler) scopeProjectIDs(r *http.Request, user *models.User) ([]primitive.ObjectID, error) {
	if access.IsAdmin(user) {
		return nil, nil
	}
	ids, err := h.DB.AccessibleProjectIDs(r.Context(), user.ID)
	if err != nil {
		return nil, err
	}
	if ids == nil {
		ids = []primitive.ObjectID{}
	}
	return ids, nil
}

func (h *TasksHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, limit := parsePagination(r)
	q := r.URL.Query()
	opts := store.TaskListOptions{
		Status:   q.Get("status"),
		Priority: q.Get("priority"),
		Category: q.Get("category"),
		Search:   q.Get("search"),
		Page:     page,
		Limit:    limit,
	}
	if v := q.Get("project"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid project id")
			return
		}
		opts.Project = &id
	}
	if v := q.Get("assignedTo"); v != "" {
		id, err := primitive.ObjectIDFromHex(v)
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid assignedTo id")
			return
		}
		opts.AssignedTo = &id
	}
	ids, err := h.scopeProjectIDs(r, user)
	if err != nil {
		respondServerError(w, "list tasks: resolve scope", err)
		return
	}
	opts.ProjectIDs = ids

	tasks, total, err := h.DB.ListTasks(r.Context(), opts)
	if err != nil {
		respondServerError(w, "list tasks", err)
		return
	}
	views, err := h.shapeMany(r, tasks)
	if err != nil {
		respondServerError(w, "list tasks: populate", err)
		return
	}
	respondPage(w, views, len(views), total, page, limit)
}

func (h *TasksHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	task, project, done := h.loadTaskWithProject(w, r)
	if done {
		return
	}
	if !access.CanAccessProject(user, project) {
		respondForbidden(w, "Not authorized to access this task")
		return
	}
	views, err := h.shapeMany(r, []models.Task{*task})
	if err != nil {
		respondServerError(w, "get task: populate", err)
		return
	}
	respondOK(w, "", views[0])
}

type CreateTaskRequest struct {
	Title          string            `json:"title"`
	Description    string            `json:"description"`
	Project        string            `json:"project"`
	AssignedTo     string            `json:"assignedTo"`
	Status         string            `json:"status"`
	Priority       string            `json:"priority"`
	Category       string            `json:"category"`
	StartDate      string            `json:"startDate"`
	DueDate        string            `json:"dueDate"`
	EstimatedHours float64           `json:"estimatedHours"`
	Progress       int               `json:"progress"`
	Location       string            `json:"location"`
	Materials      []models.Material `json:"materials"`
	Dependencies   []string          `json:"dependencies"`
	Tags           []string          `json:"tags"`
}

func (req *CreateTaskRequest) validate() (*models.Task, primitive.ObjectID, fieldErrors) {
	var errs fieldErrors
	errs.require("title", req.Title, "Task title is required")
	projectID := errs.objectID("project", req.Project, "Valid project ID is required")
	assignee := errs.objectID("assignedTo", req.AssignedTo, "Valid assigned user ID is required")
	start := errs.date("startDate", req.StartDate, "Valid start date is required")
	due := errs.date("dueDate", req.DueDate, "Valid due date is required")
	status := req.Status
	if status == "" {
		status = models.TaskPending
	}
	errs.oneOf("status", status, models.ValidTaskStatuses)
	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	errs.oneOf("priority", priority, models.ValidTaskPriorities)
	category := req.Category
	if category == "" {
		category = "other"
	}
	errs.oneOf("category", category, models.ValidTaskCategories)
	errs.progress("progress", req.Progress)
	errs.nonNegative("estimatedHours", req.EstimatedHours, "Estimated hours cannot be negative")
	for _, m := range req.Materials {
		errs.require("materials.name", m.Name, "Material name is required")
		errs.require("materials.unit", m.Unit, "Material unit is required")
		errs.nonNegative("materials.quantity", m.Quantity, "Quantity cannot be negative")
		errs.nonNegative("materials.cost", m.Cost, "Cost cannot be negative")
	}
	deps := make([]primitive.ObjectID, 0, len(req.Dependencies))
	for _, d := range req.Dependencies {
		deps = append(deps, errs.objectID("dependencies", d, "Valid task ID is required"))
	}
	if len(errs) > 0 {
		return nil, primitive.NilObjectID, errs
	}
	now := time.Now()
	return &models.Task{
		Title:          strings.TrimSpace(req.Title),
		Description:    strings.TrimSpace(req.Description),
		Project:        projectID,
		AssignedTo:     assignee,
		Status:         status,
		Priority:       priority,
		Category:       category,
		StartDate:      start,
		DueDate:        due,
		EstimatedHours: req.EstimatedHours,
		Progress:       req.Progress,
		Location:       strings.TrimSpace(req.Location),
		Materials:      req.Materials,
		Comments:       []models.Comment{},
		Dependencies:   deps,
		Tags:           req.Tags,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, projectID, nil
}

func (h *TasksHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	task, projectID, errs := req.validate()
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	// Existence before authorization: a dangling project reference is
	// 404, an inaccessible one 403.
	project, err := h.DB.ProjectByID(r.Context(), projectID)
	if err != nil {
		respondServerError(w, "create task: lookup project", err)
		return
	}
	if project == nil {
		respondNotFound(w, "Project not found")
		return
	}
	if !access.CanAccessProject(user, project) {
		respondForbidden(w, "Not authorized to create tasks for this project")
		return
	}
	task.CreatedBy = user.ID
	if task.Status == models.TaskCompleted && task.CompletedDate == nil {
		now := time.Now()
		task.CompletedDate = &now
	}
	id, err := h.DB.InsertTask(r.Context(), task)
	if err != nil {
		respondServerError(w, "create task", err)
		return
	}
	task.ID = id
	views, err := h.shapeMany(r, []models.Task{*task})
	if err != nil {
		respondServerError(w, "create task: populate", err)
		return
	}
	respondCreated(w, "Task created successfully", views[0])
}

type UpdateTaskRequest struct {
	Title          *string           `json:"title"`
	Description    *string           `json:"description"`
	AssignedTo     *string           `json:"assignedTo"`
	Status         *string           `json:"status"`
	Priority       *string           `json:"priority"`
	Category       *string           `json:"category"`
	StartDate      *string           `json:"startDate"`
	DueDate        *string           `json:"dueDate"`
	EstimatedHours *float64          `json:"estimatedHours"`
	ActualHours    *float64          `json:"actualHours"`
	Progress       *int              `json:"progress"`
	Location       *string           `json:"location"`
	Materials      []models.Material `json:"materials"`
	Tags           []string          `json:"tags"`
}

func (h *TasksHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	task, project, done := h.loadTaskWithProject(w, r)
	if done {
		return
	}
	if !access.CanUpdateTask(user, task, project) {
		respondForbidden(w, "Not authorized to update this task")
		return
	}
	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	set := bson.M{}
	var errs fieldErrors
	if req.Title != nil {
		errs.require("title", *req.Title, "Task title cannot be empty")
		set["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		set["description"] = strings.TrimSpace(*req.Description)
	}
	if req.AssignedTo != nil {
		set["assignedTo"] = errs.objectID("assignedTo", *req.AssignedTo, "Valid assigned user ID is required")
	}
	if req.Status != nil {
		errs.oneOf("status", *req.Status, models.ValidTaskStatuses)
	}
	if req.Priority != nil {
		errs.oneOf("priority", *req.Priority, models.ValidTaskPriorities)
		set["priority"] = *req.Priority
	}
	if req.Category != nil {
		errs.oneOf("category", *req.Category, models.ValidTaskCategories)
		set["category"] = *req.Category
	}
	if req.StartDate != nil {
		set["startDate"] = errs.date("startDate", *req.StartDate, "Valid start date is required")
	}
	if req.DueDate != nil {
		set["dueDate"] = errs.date("dueDate", *req.DueDate, "Valid due date is required")
	}
	if req.EstimatedHours != nil {
		errs.nonNegative("estimatedHours", *req.EstimatedHours, "Estimated hours cannot be negative")
		set["estimatedHours"] = *req.EstimatedHours
	}
	if req.ActualHours != nil {
		errs.nonNegative("actualHours", *req.ActualHours, "Actual hours cannot be negative")
		set["actualHours"] = *req.ActualHours
	}
	if req.Progress != nil {
		errs.progress("progress", *req.Progress)
	}
	if req.Location != nil {
		set["location"] = strings.TrimSpace(*req.Location)
	}
	if req.Materials != nil {
		set["materials"] = req.Materials
	}
	if req.Tags != nil {
		set["tags"] = req.Tags
	}
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	now := time.Now()
	if req.Status != nil {
		task.SetStatus(*req.Status, now)
		set["status"] = task.Status
		if task.CompletedDate != nil {
			set["completedDate"] = *task.CompletedDate
		}
	}
	if req.Progress != nil {
		task.SetProgress(*req.Progress, now)
		set["progress"] = task.Progress
		set["status"] = task.Status
		if task.CompletedDate != nil {
			set["completedDate"] = *task.CompletedDate
		}
	}
	if err := h.DB.UpdateTask(r.Context(), task.ID, set); err != nil {
		respondServerError(w, "update task", err)
		return
	}
	updated, err := h.DB.TaskByID(r.Context(), task.ID)
	if err != nil || updated == nil {
		respondServerError(w, "update task: reload", err)
		return
	}
	views, err := h.shapeMany(r, []models.Task{*updated})
	if err != nil {
		respondServerError(w, "update task: populate", err)
		return
	}
	respondOK(w, "Task updated successfully", views[0])
}

func (h *TasksHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	task, project, done := h.loadTaskWithProject(w, r)
	if done {
		return
	}
	if !access.CanDeleteTask(user, task, project) {
		respondForbidden(w, "Not authorized to delete this task")
		return
	}
	if err := h.DB.SoftDeleteTask(r.Context(), task.ID); err != nil {
		respondServerError(w, "delete task", err)
		return
	}
	respondOK(w, "Task deleted successfully", nil)
}

type AddCommentRequest struct {
	Text string `json:"text"`
}

func (h *TasksHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	var errs fieldErrors
	errs.require("text", req.Text, "Comment text is required")
	if len(req.Text) > maxCommentLen {
		errs.add("text", "Comment cannot be more than 500 characters")
	}
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	task, project, done := h.loadTaskWithProject(w, r)
	if done {
		return
	}
	if !access.CanCommentTask(user, task, project) {
		respondForbidden(w, "Not authorized to comment on this task")
		return
	}
	comment := models.Comment{User: user.ID, Text: strings.TrimSpace(req.Text), CreatedAt: time.Now()}
	if err := h.DB.AddTaskComment(r.Context(), task.ID, comment); err != nil {
		respondServerError(w, "add comment", err)
		return
	}
	updated, err := h.DB.TaskByID(r.Context(), task.ID)
	if err != nil || updated == nil {
		respondServerError(w, "add comment: reload", err)
		return
	}
	views, err := h.shapeMany(r, []models.Task{*updated})
	if err != nil {
		respondServerError(w, "add comment: populate", err)
		return
	}
	respondOK(w, "Comment added successfully", views[0].Comments)
}

type SetProgressRequest struct {
	Progress int `json:"progress"`
}

// SetProgress applies the progress sub-operation: only the assignee
// (or an admin) may call it, and reaching 100 completes the task.
func (h *TasksHandler) SetProgress(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req SetProgressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	var errs fieldErrors
	errs.progress("progress", req.Progress)
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	task, _, done := h.loadTaskWithProject(w, r)
	if done {
		return
	}
	if !access.CanSetTaskProgress(user, task) {
		respondForbidden(w, "Not authorized to update this task progress")
		return
	}
	task.SetProgress(req.Progress, time.Now())
	if err := h.DB.SetTaskProgress(r.Context(), task); err != nil {
		respondServerError(w, "set task progress", err)
		return
	}
	views, err := h.shapeMany(r, []models.Task{*task})
	if err != nil {
		respondServerError(w, "set task progress: populate", err)
		return
	}
	respondOK(w, "Task progress updated successfully", views[0])
}

// loadTaskWithProject resolves the task and its parent project in the
// order the API guarantees: missing task or dangling project is 404,
// before any authorization check runs. Returns done=true when a
// response has already been written.
func (h *TasksHandler) loadTaskWithProject(w http.ResponseWriter, r *http.Request) (*models.Task, *models.Project, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid task id")
		return nil, nil, true
	}
	task, err := h.DB.TaskByID(r.Context(), id)
	if err != nil {
		respondServerError(w, "load task", err)
		return nil, nil, true
	}
	if task == nil {
		respondNotFound(w, "Task not found")
		return nil, nil, true
	}
	project, err := h.DB.ProjectByID(r.Context(), task.Project)
	if err != nil {
		respondServerError(w, "load task: parent project", err)
		return nil, nil, true
	}
	if project == nil {
		respondNotFound(w, "Project not found")
		return nil, nil, true
	}
	return task, project, false
}

func (h *TasksHandler) shapeMany(r *http.Request, tasks []models.Task) ([]TaskView, error) {
	var userIDs, projectIDs []primitive.ObjectID
	for _, t := range tasks {
		userIDs = append(userIDs, t.AssignedTo, t.CreatedBy)
		for _, c := range t.Comments {
			userIDs = append(userIDs, c.User)
		}
		projectIDs = append(projectIDs, t.Project)
	}
	users, err := h.DB.UsersByIDs(r.Context(), dedupe(userIDs))
	if err != nil {
		return nil, err
	}
	projects, err := h.DB.ProjectRefsByIDs(r.Context(), dedupe(projectIDs))
	if err != nil {
		return nil, err
	}
	now := time.Now()
	views := make([]TaskView, len(tasks))
	for i, t := range tasks {
		views[i] = shapeTask(t, users, projects, now)
	}
	return views, nil
}
