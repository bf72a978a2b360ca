package handlers

import (
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/buildwise/backend/middleware"
	"github.com/buildwise/backend/models"
	"github.com/buildwise/backend/store"
	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/bson"
	"golang.org/x/crypto/bcrypt"
)

const tokenLifetime = 24 * time.Hour * 7

type AuthHandler struct {
	DB        *store.DB
	JWTSecret string
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
	Company   string `json:"company"`
	Phone     string `json:"phone"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type AuthResponse struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	var errs fieldErrors
	errs.require("firstName", req.FirstName, "first name is required")
	errs.require("lastName", req.LastName, "last name is required")
	errs.require("email", req.Email, "email is required")
	if len(req.Password) < 8 {
		errs.add("password", "password must be at least 8 characters")
	}
	role := strings.TrimSpace(strings.ToLower(req.Role))
	if role == "" {
		role = models.RoleUser
	}
	if role == models.RoleAdmin {
		errs.add("role", "cannot register an admin account")
	} else {
		errs.oneOf("role", role, models.ValidRoles)
	}
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}

	existing, err := h.DB.UserByEmail(r.Context(), req.Email)
	if err != nil {
		respondServerError(w, "register: lookup user", err)
		return
	}
	if existing != nil {
		respondError(w, http.StatusBadRequest, "email already registered")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		respondServerError(w, "register: hash password", err)
		return
	}
	now := time.Now()
	user := &models.User{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     req.Email,
		Password:  string(hash),
		Role:      role,
		Company:   strings.TrimSpace(req.Company),
		Phone:     strings.TrimSpace(req.Phone),
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := h.DB.CreateUser(r.Context(), user)
	if err != nil {
		respondServerError(w, "register: create user", err)
		return
	}
	user.ID = id
	token, err := h.createToken(user)
	if err != nil {
		respondServerError(w, "register: sign token", err)
		return
	}
	respondCreated(w, "Registered successfully", AuthResponse{Token: token, User: user})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	req.Email = strings.TrimSpace(strings.ToLower(req.Email))
	if req.Email == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "email and password required")
		return
	}
	user, err := h.DB.UserByEmail(r.Context(), req.Email)
	if err != nil {
		respondServerError(w, "login: lookup user", err)
		return
	}
	if user == nil || !user.IsActive {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
		respondError(w, http.StatusUnauthorized, "invalid email or password")
		return
	}
	token, err := h.createToken(user)
	if err != nil {
		respondServerError(w, "login: sign token", err)
		return
	}
	respondOK(w, "", AuthResponse{Token: token, User: user})
}

// Me returns the authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	respondOK(w, "", user)
}

type UpdateProfileRequest struct {
	FirstName *string `json:"firstName"`
	LastName  *string `json:"lastName"`
	Company   *string `json:"company"`
	Phone     *string `json:"phone"`
}

// UpdateProfile replaces the caller's profile fields. Email, role, and
// authentication state are untouched.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	set := bson.M{}
	var errs fieldErrors
	if req.FirstName != nil {
		errs.require("firstName", *req.FirstName, "first name cannot be empty")
		set["firstName"] = strings.TrimSpace(*req.FirstName)
	}
	if req.LastName != nil {
		errs.require("lastName", *req.LastName, "last name cannot be empty")
		set["lastName"] = strings.TrimSpace(*req.LastName)
	}
	if req.Company != nil {
		set["company"] = strings.TrimSpace(*req.Company)
	}
	if req.Phone != nil {
		set["phone"] = strings.TrimSpace(*req.Phone)
	}
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	set["updatedAt"] = time.Now()
	if err := h.DB.UpdateUser(r.Context(), user.ID, set); err != nil {
		respondServerError(w, "update profile", err)
		return
	}
	updated, err := h.DB.UserByID(r.Context(), user.ID)
	if err != nil {
		respondServerError(w, "update profile: reload", err)
		return
	}
	respondOK(w, "Profile updated successfully", updated)
}

type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req ChangePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if len(req.NewPassword) < 8 {
		respondValidation(w, []FieldError{{Field: "newPassword", Message: "password must be at least 8 characters"}})
		return
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.CurrentPassword)); err != nil {
		respondError(w, http.StatusUnauthorized, "current password is incorrect")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.NewPassword), bcrypt.DefaultCost)
	if err != nil {
		respondServerError(w, "change password: hash", err)
		return
	}
	if err := h.DB.UpdateUser(r.Context(), user.ID, bson.M{"password": string(hash), "updatedAt": time.Now()}); err != nil {
		respondServerError(w, "change password", err)
		return
	}
	respondOK(w, "Password changed successfully", nil)
}

func (h *AuthHandler) createToken(user *models.User) (string, error) {
	claims := &middleware.Claims{
		UserID: user.ID.Hex(),
		Email:  user.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(tokenLifetime)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.JWTSecret))
}
