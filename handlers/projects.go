package handlers

import (
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

type ProjectsHandler struct {
	DB *store.DB
}

// List returns the caller's visible projects. The access scope is part
// of the query itself, so pagination and totals never see foreign
// projects.
func (h *ProjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, limit := parsePagination(r)
	opts := store.ProjectListOptions{
		Status: r.URL.Query().Get("status"),
		Search: r.URL.Query().Get("search"),
		Scope:  access.ProjectScope(user),
		Page:   page,
		Limit:  limit,
	}
	projects, total, err := h.DB.ListProjects(r.Context(), opts)
	if err != nil {
		respondServerError(w, "list projects", err)
		return
	}
	var userIDs []primitive.ObjectID
	for _, p := range projects {
		userIDs = append(userIDs, p.ProjectManager, p.CreatedBy)
		for _, m := range p.Team {
			userIDs = append(userIDs, m.User)
		}
	}
	users, err := h.DB.UsersByIDs(r.Context(), dedupe(userIDs))
	if err != nil {
		respondServerError(w, "list projects: populate", err)
		return
	}
	views := make([]ProjectView, len(projects))
	for i, p := range projects {
		views[i] = shapeProject(p, users)
	}
	respondPage(w, views, len(views), total, page, limit)
}

func (h *ProjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	project, err := h.DB.ProjectByID(r.Context(), id)
	if err != nil {
		respondServerError(w, "get project", err)
		return
	}
	if project == nil {
		respondNotFound(w, "Project not found")
		return
	}
	if !access.CanAccessProject(user, project) {
		respondForbidden(w, "Not authorized to access this project")
		return
	}
	view, err := h.shapeOne(r, *project)
	if err != nil {
		respondServerError(w, "get project: populate", err)
		return
	}
	respondOK(w, "", view)
}

type PhaseRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	StartDate   string `json:"startDate"`
	EndDate     string `json:"endDate"`
	Status      string `json:"status"`
	Progress    int    `json:"progress"`
}

type CreateProjectRequest struct {
	Name           string              `json:"name"`
	Description    string              `json:"description"`
	Address        models.Address      `json:"address"`
	Coordinates    *models.Coordinates `json:"coordinates"`
	Status         string              `json:"status"`
	StartDate      string              `json:"startDate"`
	EndDate        string              `json:"endDate"`
	Budget         float64             `json:"budget"`
	Currency       string              `json:"currency"`
	ProjectManager string              `json:"projectManager"`
	Client         models.Client       `json:"client"`
	Progress       int                 `json:"progress"`
	Phases         []PhaseRequest      `json:"phases"`
}

func (req *CreateProjectRequest) validate() (*models.Project, fieldErrors) {
	var errs fieldErrors
	errs.require("name", req.Name, "Project name is required")
	errs.require("address.street", req.Address.Street, "Street address is required")
	errs.require("address.city", req.Address.City, "City is required")
	errs.require("address.postalCode", req.Address.PostalCode, "Postal code is required")
	errs.require("client.name", req.Client.Name, "Client name is required")
	start := errs.date("startDate", req.StartDate, "Valid start date is required")
	end := errs.date("endDate", req.EndDate, "Valid end date is required")
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs.add("endDate", "End date must not be before start date")
	}
	manager := errs.objectID("projectManager", req.ProjectManager, "Valid project manager is required")
	status := req.Status
	if status == "" {
		status = models.ProjectPlanning
	}
	errs.oneOf("status", status, models.ValidProjectStatuses)
	errs.progress("progress", req.Progress)
	errs.nonNegative("budget", req.Budget, "Budget cannot be negative")

	phases := make([]models.Phase, 0, len(req.Phases))
	for _, ph := range req.Phases {
		errs.require("phases.name", ph.Name, "Phase name is required")
		ps := errs.date("phases.startDate", ph.StartDate, "Valid phase start date is required")
		pe := errs.date("phases.endDate", ph.EndDate, "Valid phase end date is required")
		phStatus := ph.Status
		if phStatus == "" {
			phStatus = models.PhaseNotStarted
		}
		errs.oneOf("phases.status", phStatus, models.ValidPhaseStatuses)
		errs.progress("phases.progress", ph.Progress)
		phases = append(phases, models.Phase{
			Name:        strings.TrimSpace(ph.Name),
			Description: strings.TrimSpace(ph.Description),
			StartDate:   ps,
			EndDate:     pe,
			Status:      phStatus,
			Progress:    ph.Progress,
		})
	}
	if len(errs) > 0 {
		return nil, errs
	}

	country := req.Address.Country
	if country == "" {
		country = "Poland"
	}
	currency := req.Currency
	if currency == "" {
		currency = "PLN"
	}
	now := time.Now()
	return &models.Project{
		Name:        strings.TrimSpace(req.Name),
		Description: strings.TrimSpace(req.Description),
		Address: models.Address{
			Street:     strings.TrimSpace(req.Address.Street),
			City:       strings.TrimSpace(req.Address.City),
			PostalCode: strings.TrimSpace(req.Address.PostalCode),
			Country:    country,
		},
		Coordinates:    req.Coordinates,
		Status:         status,
		StartDate:      start,
		EndDate:        end,
		Budget:         req.Budget,
		Currency:       currency,
		ProjectManager: manager,
		Team:           []models.TeamMember{},
		Client:         req.Client,
		Progress:       req.Progress,
		Phases:         phases,
		IsActive:       true,
		CreatedAt:      now,
		UpdatedAt:      now,
	}, nil
}

func (h *ProjectsHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req CreateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	project, errs := req.validate()
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	project.CreatedBy = user.ID
	id, err := h.DB.InsertProject(r.Context(), project)
	if err != nil {
		respondServerError(w, "create project", err)
		return
	}
	project.ID = id
	view, err := h.shapeOne(r, *project)
	if err != nil {
		respondServerError(w, "create project: populate", err)
		return
	}
	respondCreated(w, "Project created successfully", view)
}

type UpdateProjectRequest struct {
	Name        *string             `json:"name"`
	Description *string             `json:"description"`
	Address     *models.Address     `json:"address"`
	Coordinates *models.Coordinates `json:"coordinates"`
	Status      *string             `json:"status"`
	StartDate   *string             `json:"startDate"`
	EndDate     *string             `json:"endDate"`
	Budget      *float64            `json:"budget"`
	Currency    *string             `json:"currency"`
	Client      *models.Client      `json:"client"`
	Progress    *int                `json:"progress"`
	Phases      []PhaseRequest      `json:"phases"`
}

// Update applies a partial-field update. The end>=start invariant is
// checked against the merged dates, not just the incoming ones.
func (h *ProjectsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	project, err := h.DB.ProjectByID(r.Context(), id)
	if err != nil {
		respondServerError(w, "update project: lookup", err)
		return
	}
	if project == nil {
		respondNotFound(w, "Project not found")
		return
	}
	if !access.CanManageProject(user, project) {
		respondForbidden(w, "Not authorized to update this project")
		return
	}
	var req UpdateProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	set := bson.M{}
	var errs fieldErrors
	start, end := project.StartDate, project.EndDate
	if req.Name != nil {
		errs.require("name", *req.Name, "Project name cannot be empty")
		set["name"] = strings.TrimSpace(*req.Name)
	}
	if req.Description != nil {
		set["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Address != nil {
		errs.require("address.street", req.Address.Street, "Street address is required")
		errs.require("address.city", req.Address.City, "City is required")
		errs.require("address.postalCode", req.Address.PostalCode, "Postal code is required")
		addr := *req.Address
		if addr.Country == "" {
			addr.Country = "Poland"
		}
		set["address"] = addr
	}
	if req.Coordinates != nil {
		set["coordinates"] = *req.Coordinates
	}
	if req.Status != nil {
		errs.oneOf("status", *req.Status, models.ValidProjectStatuses)
		set["status"] = *req.Status
	}
	if req.StartDate != nil {
		start = errs.date("startDate", *req.StartDate, "Valid start date is required")
		set["startDate"] = start
	}
	if req.EndDate != nil {
		end = errs.date("endDate", *req.EndDate, "Valid end date is required")
		set["endDate"] = end
	}
	if !start.IsZero() && !end.IsZero() && end.Before(start) {
		errs.add("endDate", "End date must not be before start date")
	}
	if req.Budget != nil {
		errs.nonNegative("budget", *req.Budget, "Budget cannot be negative")
		set["budget"] = *req.Budget
	}
	if req.Currency != nil {
		set["currency"] = *req.Currency
	}
	if req.Client != nil {
		errs.require("client.name", req.Client.Name, "Client name is required")
		set["client"] = *req.Client
	}
	if req.Progress != nil {
		errs.progress("progress", *req.Progress)
		set["progress"] = *req.Progress
	}
	if req.Phases != nil {
		phases := make([]models.Phase, 0, len(req.Phases))
		for _, ph := range req.Phases {
			errs.require("phases.name", ph.Name, "Phase name is required")
			ps := errs.date("phases.startDate", ph.StartDate, "Valid phase start date is required")
			pe := errs.date("phases.endDate", ph.EndDate, "Valid phase end date is required")
			phStatus := ph.Status
			if phStatus == "" {
				phStatus = models.PhaseNotStarted
			}
			errs.oneOf("phases.status", phStatus, models.ValidPhaseStatuses)
			errs.progress("phases.progress", ph.Progress)
			phases = append(phases, models.Phase{
				Name:        strings.TrimSpace(ph.Name),
				Description: strings.TrimSpace(ph.Description),
				StartDate:   ps,
				EndDate:     pe,
				Status:      phStatus,
				Progress:    ph.Progress,
			})
		}
		set["phases"] = phases
	}
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	if err := h.DB.UpdateProject(r.Context(), id, set); err != nil {
		respondServerError(w, "update project", err)
		return
	}
	updated, err := h.DB.ProjectByID(r.Context(), id)
	if err != nil || updated == nil {
		respondServerError(w, "update project: reload", err)
		return
	}
	view, err := h.shapeOne(r, *updated)
	if err != nil {
		respondServerError(w, "update project: populate", err)
		return
	}
	respondOK(w, "Project updated successfully", view)
}

func (h *ProjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	project, err := h.DB.ProjectByID(r.Context(), id)
	if err != nil {
		respondServerError(w, "delete project: lookup", err)
		return
	}
	if project == nil {
		respondNotFound(w, "Project not found")
		return
	}
	if !access.CanManageProject(user, project) {
		respondForbidden(w, "Not authorized to delete this project")
		return
	}
	if err := h.DB.SoftDeleteProject(r.Context(), id); err != nil {
		respondServerError(w, "delete project", err)
		return
	}
	respondOK(w, "Project deleted successfully", nil)
}

type AddTeamMemberRequest struct {
	User string `json:"user"`
	Role string `json:"role"`
}

func (h *ProjectsHandler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	var req AddTeamMemberRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	var errs fieldErrors
	memberID := errs.objectID("user", req.User, "Valid user ID is required")
	errs.oneOf("role", req.Role, models.ValidTeamRoles)
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	project, err := h.DB.ProjectByID(r.Context(), id)
	if err != nil {
		respondServerError(w, "add team member: lookup", err)
		return
	}
	if project == nil {
		respondNotFound(w, "Project not found")
		return
	}
	if !access.CanManageTeam(user, project) {
		respondForbidden(w, "Not authorized to modify team")
		return
	}
	for _, m := range project.Team {
		if m.User == memberID {
			respondError(w, http.StatusBadRequest, "User is already in the team")
			return
		}
	}
	member := models.TeamMember{User: memberID, Role: req.Role, JoinedAt: time.Now()}
	if err := h.DB.AddTeamMember(r.Context(), id, member); err != nil {
		respondServerError(w, "add team member", err)
		return
	}
	updated, err := h.DB.ProjectByID(r.Context(), id)
	if err != nil || updated == nil {
		respondServerError(w, "add team member: reload", err)
		return
	}
	view, err := h.shapeOne(r, *updated)
	if err != nil {
		respondServerError(w, "add team member: populate", err)
		return
	}
	respondOK(w, "Team member added successfully", view.Team)
}

func (h *ProjectsHandler) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid project id")
		return
	}
	memberID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "userId"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	project, err := h.DB.ProjectByID(r.Context(), id)
	if err != nil {
		respondServerError(w, "remove team member: lookup", err)
		return
	}
	if project == nil {
		respondNotFound(w, "Project not found")
		return
	}
	if !access.CanManageTeam(user, project) {
		respondForbidden(w, "Not authorized to modify team")
		return
	}
	if err := h.DB.RemoveTeamMember(r.Context(), id, memberID); err != nil {
		respondServerError(w, "remove team member", err)
		return
	}
	updated, err := h.DB.ProjectByID(r.Context(), id)
	if err != nil || updated == nil {
		respondServerError(w, "remove team member: reload", err)
		return
	}
	view, err := h.shapeOne(r, *updated)
	if err != nil {
		respondServerError(w, "remove team member: populate", err)
		return
	}
	respondOK(w, "Team member removed successfully", view.Team)
}

func (h *ProjectsHandler) shapeOne(r *http.Request, p models.Project) (ProjectView, error) {
	ids := []primitive.ObjectID{p.ProjectManager, p.CreatedBy}
	for _, m := range p.Team {
		ids = append(ids, m.User)
	}
	users, err := h.DB.UsersByIDs(r.Context(), dedupe(ids))
	if err != nil {
		return ProjectView{}, err
	}
	return shapeProject(p, users), nil
}
