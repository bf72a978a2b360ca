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

// UsersHandler exposes the admin-only account management routes.
type UsersHandler struct {
	DB *store.DB
}

func (h *UsersHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok || !access.IsAdmin(user) {
		respondForbidden(w, "Not authorized to manage users")
		return
	}
	users, err := h.DB.ListUsers(r.Context())
	if err != nil {
		respondServerError(w, "list users", err)
		return
	}
	respondOK(w, "", users)
}

type UpdateUserRequest struct {
	Role     *string `json:"role"`
	IsActive *bool   `json:"isActive"`
}

func (h *UsersHandler) Update(w http.ResponseWriter, r *http.Request) {
	admin, ok := middleware.UserFromContext(r.Context())
	if !ok || !access.IsAdmin(admin) {
		respondForbidden(w, "Not authorized to manage users")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	set := bson.M{}
	if req.Role != nil {
		role := strings.TrimSpace(strings.ToLower(*req.Role))
		if !models.ValidRole(role) {
			respondValidation(w, []FieldError{{Field: "role", Message: "invalid role " + role}})
			return
		}
		set["role"] = role
	}
	if req.IsActive != nil {
		set["isActive"] = *req.IsActive
	}
	target, err := h.DB.UserByID(r.Context(), id)
	if err != nil {
		respondServerError(w, "update user: lookup", err)
		return
	}
	if target == nil {
		respondNotFound(w, "User not found")
		return
	}
	set["updatedAt"] = time.Now()
	if err := h.DB.UpdateUser(r.Context(), id, set); err != nil {
		respondServerError(w, "update user", err)
		return
	}
	updated, err := h.DB.UserByID(r.Context(), id)
	if err != nil {
		respondServerError(w, "update user: reload", err)
		return
	}
	respondOK(w, "User updated successfully", updated)
}

// Delete deactivates an account. Accounts are never physically removed.
func (h *UsersHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, ok := middleware.UserFromContext(r.Context())
	if !ok || !access.IsAdmin(admin) {
		respondForbidden(w, "Not authorized to manage users")
		return
	}
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid user id")
		return
	}
	target, err := h.DB.UserByID(r.Context(), id)
	if err != nil {
		respondServerError(w, "delete user: lookup", err)
		return
	}
	if target == nil {
		respondNotFound(w, "User not found")
		return
	}
	if err := h.DB.SoftDeleteUser(r.Context(), id); err != nil {
		respondServerError(w, "delete user", err)
		return
	}
	respondOK(w, "User deleted successfully", nil)
}
