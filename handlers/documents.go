package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log"
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

var allowedUploadTypes = map[string]bool{
	"application/pdf":    true,
	"application/msword": true,
	"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
	"application/vnd.ms-excel": true,
	"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet": true,
	"image/jpeg":      true,
	"image/jpg":       true,
	"image/png":       true,
	"image/gif":       true,
	"text/plain":      true,
	"application/zip": true,
}

// DocumentStore is the persistence surface the document routes need.
// *store.DB satisfies it; tests substitute an in-memory fake.
type DocumentStore interface {
	DocumentByID(ctx context.Context, id primitive.ObjectID) (*models.Document, error)
	ProjectByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error)
	AccessibleProjectIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error)
	ListDocuments(ctx context.Context, opts store.DocumentListOptions) ([]models.Document, int64, error)
	InsertDocument(ctx context.Context, d *models.Document) (primitive.ObjectID, error)
	UpdateDocument(ctx context.Context, id primitive.ObjectID, set bson.M) error
	SoftDeleteDocument(ctx context.Context, id primitive.ObjectID) error
	IncrementDownload(ctx context.Context, id primitive.ObjectID) error
	UsersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error)
	ProjectRefsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Project, error)
}

// ObjectStore is the file storage behind document uploads and
// downloads. *service.S3Service satisfies it.
type ObjectStore interface {
	Upload(ctx context.Context, prefix, originalFilename string, body io.Reader, contentType string) (string, error)
	Delete(ctx context.Context, key string) error
	ObjectURL(key string) string
	PresignedGetURL(ctx context.Context, key string, expiry time.Duration, responseFilename string) (string, error)
}

type DocumentsHandler struct {
	DB       DocumentStore
	S3       ObjectStore
	MaxBytes int64
}

func (h *DocumentsHandler) scopeProjectIDs(r *http.Request, user *models.User) ([]primitive.ObjectID, error) {
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

func (h *DocumentsHandler) List(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	page, limit := parsePagination(r)
	q := r.URL.Query()
	opts := store.DocumentListOptions{
		Category: q.Get("category"),
		MimeType: q.Get("type"),
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
	ids, err := h.scopeProjectIDs(r, user)
	if err != nil {
		respondServerError(w, "list documents: resolve scope", err)
		return
	}
	opts.ProjectIDs = ids

	docs, total, err := h.DB.ListDocuments(r.Context(), opts)
	if err != nil {
		respondServerError(w, "list documents", err)
		return
	}
	views, err := h.shapeMany(r, docs)
	if err != nil {
		respondServerError(w, "list documents: populate", err)
		return
	}
	respondPage(w, views, len(views), total, page, limit)
}

func (h *DocumentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	doc, project, done := h.loadDocumentWithProject(w, r)
	if done {
		return
	}
	if !access.CanAccessProject(user, project) {
		respondForbidden(w, "Not authorized to access this document")
		return
	}
	views, err := h.shapeMany(r, []models.Document{*doc})
	if err != nil {
		respondServerError(w, "get document: populate", err)
		return
	}
	respondOK(w, "", views[0])
}

// Upload accepts a multipart form: file plus title/project/category and
// optional description, tags (comma-separated), version.
func (h *DocumentsHandler) Upload(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if h.MaxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxBytes)
	}
	if err := r.ParseMultipartForm(h.MaxBytes); err != nil {
		respondError(w, http.StatusBadRequest, "failed to parse multipart form")
		return
	}
	var errs fieldErrors
	title := r.FormValue("title")
	errs.require("title", title, "Document title is required")
	projectID := errs.objectID("project", r.FormValue("project"), "Valid project ID is required")
	category := r.FormValue("category")
	errs.oneOf("category", category, models.ValidDocumentCategories)
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()
	mimeType := header.Header.Get("Content-Type")
	if !allowedUploadTypes[mimeType] {
		respondError(w, http.StatusBadRequest, "Invalid file type")
		return
	}

	project, err := h.DB.ProjectByID(r.Context(), projectID)
	if err != nil {
		respondServerError(w, "upload document: lookup project", err)
		return
	}
	if project == nil {
		respondNotFound(w, "Project not found")
		return
	}
	if !access.CanAccessProject(user, project) {
		respondForbidden(w, "Not authorized to upload documents to this project")
		return
	}

	if h.S3 == nil {
		respondError(w, http.StatusServiceUnavailable, "upload not configured")
		return
	}
	prefix := "documents/" + projectID.Hex() + "/"
	key, err := h.S3.Upload(r.Context(), prefix, header.Filename, file, mimeType)
	if err != nil {
		respondServerError(w, "upload document: store file", err)
		return
	}

	docType := "other"
	if i := strings.Index(mimeType, "/"); i >= 0 && i+1 < len(mimeType) {
		docType = mimeType[i+1:]
	}
	now := time.Now()
	doc := &models.Document{
		Title:       strings.TrimSpace(title),
		Description: strings.TrimSpace(r.FormValue("description")),
		Project:     projectID,
		UploadedBy:  user.ID,
		Category:    category,
		Type:        docType,
		File: models.FileInfo{
			Filename:     key,
			OriginalName: header.Filename,
			URL:          h.S3.ObjectURL(key),
			Size:         header.Size,
			MimeType:     mimeType,
		},
		Version:  "1.0",
		IsLatest: true,
		Tags:     splitTags(r.FormValue("tags")),
		Metadata: models.DocumentMeta{Language: "pl"},
		Access: models.DocumentAccess{
			IsPublic: false,
		},
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	id, err := h.DB.InsertDocument(r.Context(), doc)
	if err != nil {
		respondServerError(w, "upload document", err)
		return
	}
	doc.ID = id
	views, err := h.shapeMany(r, []models.Document{*doc})
	if err != nil {
		respondServerError(w, "upload document: populate", err)
		return
	}
	respondCreated(w, "Document uploaded successfully", views[0])
}

type UpdateDocumentRequest struct {
	Title       *string                `json:"title"`
	Description *string                `json:"description"`
	Category    *string                `json:"category"`
	Version     *string                `json:"version"`
	Tags        []string               `json:"tags"`
	Access      *models.DocumentAccess `json:"access"`
}

func (h *DocumentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	doc, project, done := h.loadDocumentWithProject(w, r)
	if done {
		return
	}
	if !access.CanModifyDocument(user, doc, project) {
		respondForbidden(w, "Not authorized to update this document")
		return
	}
	var req UpdateDocumentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}
	set := bson.M{}
	var errs fieldErrors
	if req.Title != nil {
		errs.require("title", *req.Title, "Title cannot be empty")
		set["title"] = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		set["description"] = strings.TrimSpace(*req.Description)
	}
	if req.Category != nil {
		errs.oneOf("category", *req.Category, models.ValidDocumentCategories)
		set["category"] = *req.Category
	}
	if req.Version != nil {
		set["version"] = *req.Version
	}
	if req.Tags != nil {
		set["tags"] = req.Tags
	}
	if req.Access != nil {
		for _, role := range req.Access.AllowedRoles {
			errs.oneOf("access.allowedRoles", role, models.ValidRoles)
		}
		set["access"] = *req.Access
	}
	if len(errs) > 0 {
		respondValidation(w, errs)
		return
	}
	if err := h.DB.UpdateDocument(r.Context(), doc.ID, set); err != nil {
		respondServerError(w, "update document", err)
		return
	}
	updated, err := h.DB.DocumentByID(r.Context(), doc.ID)
	if err != nil || updated == nil {
		respondServerError(w, "update document: reload", err)
		return
	}
	views, err := h.shapeMany(r, []models.Document{*updated})
	if err != nil {
		respondServerError(w, "update document: populate", err)
		return
	}
	respondOK(w, "Document updated successfully", views[0])
}

// Delete soft-deletes the record and removes the stored object. A
// failed object removal is logged, not surfaced; the record is already
// gone from every listing.
func (h *DocumentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	doc, project, done := h.loadDocumentWithProject(w, r)
	if done {
		return
	}
	if !access.CanModifyDocument(user, doc, project) {
		respondForbidden(w, "Not authorized to delete this document")
		return
	}
	if err := h.DB.SoftDeleteDocument(r.Context(), doc.ID); err != nil {
		respondServerError(w, "delete document", err)
		return
	}
	if h.S3 != nil && doc.File.Filename != "" {
		if err := h.S3.Delete(r.Context(), doc.File.Filename); err != nil {
			log.Printf("delete document: remove object %s: %v", doc.File.Filename, err)
		}
	}
	respondOK(w, "Document deleted successfully", nil)
}

type DownloadResponse struct {
	DownloadURL string `json:"downloadUrl"`
	Filename    string `json:"filename"`
}

// Download returns a presigned URL and bumps the download counter on
// every call.
func (h *DocumentsHandler) Download(w http.ResponseWriter, r *http.Request) {
	user, ok := middleware.UserFromContext(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	doc, project, done := h.loadDocumentWithProject(w, r)
	if done {
		return
	}
	if !access.CanAccessProject(user, project) {
		respondForbidden(w, "Not authorized to download this document")
		return
	}
	if h.S3 == nil {
		respondError(w, http.StatusServiceUnavailable, "download not configured")
		return
	}
	url, err := h.S3.PresignedGetURL(r.Context(), doc.File.Filename, 15*time.Minute, doc.File.OriginalName)
	if err != nil {
		respondServerError(w, "download document: presign", err)
		return
	}
	if err := h.DB.IncrementDownload(r.Context(), doc.ID); err != nil {
		respondServerError(w, "download document: count", err)
		return
	}
	respondOK(w, "", DownloadResponse{DownloadURL: url, Filename: doc.File.OriginalName})
}

func (h *DocumentsHandler) loadDocumentWithProject(w http.ResponseWriter, r *http.Request) (*models.Document, *models.Project, bool) {
	id, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid document id")
		return nil, nil, true
	}
	doc, err := h.DB.DocumentByID(r.Context(), id)
	if err != nil {
		respondServerError(w, "load document", err)
		return nil, nil, true
	}
	if doc == nil {
		respondNotFound(w, "Document not found")
		return nil, nil, true
	}
	project, err := h.DB.ProjectByID(r.Context(), doc.Project)
	if err != nil {
		respondServerError(w, "load document: parent project", err)
		return nil, nil, true
	}
	if project == nil {
		respondNotFound(w, "Project not found")
		return nil, nil, true
	}
	return doc, project, false
}

func (h *DocumentsHandler) shapeMany(r *http.Request, docs []models.Document) ([]DocumentView, error) {
	var userIDs, projectIDs []primitive.ObjectID
	for _, d := range docs {
		userIDs = append(userIDs, d.UploadedBy)
		projectIDs = append(projectIDs, d.Project)
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
	views := make([]DocumentView, len(docs))
	for i, d := range docs {
		views[i] = shapeDocument(d, users, projects, now)
	}
	return views, nil
}
