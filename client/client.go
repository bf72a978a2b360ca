package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/buildwise/backend/models"
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Fields     []FieldError
}

type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: %s (status %d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("api: status %d", e.StatusCode)
}

type apiResponse struct {
	Success     bool            `json:"success"`
	Message     string          `json:"message,omitempty"`
	Data        json.RawMessage `json:"data,omitempty"`
	Errors      []FieldError    `json:"errors,omitempty"`
	Count       *int            `json:"count,omitempty"`
	Total       *int64          `json:"total,omitempty"`
	Pages       *int64          `json:"pages,omitempty"`
	CurrentPage *int64          `json:"currentPage,omitempty"`
}

// Page carries list pagination metadata alongside decoded items.
type Page struct {
	Count       int
	Total       int64
	Pages       int64
	CurrentPage int64
}

type authPayload struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Client talks to a BuildWise server on behalf of one session.
type Client struct {
	baseURL string
	http    *http.Client
	session *Session
}

func New(baseURL string, session *Session) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
		session: session,
	}
}

func (c *Client) Session() *Session { return c.session }

// do runs one request and decodes the envelope. Any 401 or 403 clears
// the session before the error is returned: a credential the server no
// longer accepts is never kept around.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any) (*apiResponse, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var envelope apiResponse
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if len(raw) > 0 {
		_ = json.Unmarshal(raw, &envelope)
	}

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		c.session.Clear()
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: envelope.Message, Fields: envelope.Errors}
	}
	return &envelope, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) (*apiResponse, error) {
	env, err := c.do(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	if out != nil && env.Data != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return nil, err
		}
	}
	return env, nil
}

func (c *Client) send(ctx context.Context, method, path string, body, out any) error {
	env, err := c.do(ctx, method, path, nil, body)
	if err != nil {
		return err
	}
	if out != nil && env.Data != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

func page(env *apiResponse) Page {
	var p Page
	if env.Count != nil {
		p.Count = *env.Count
	}
	if env.Total != nil {
		p.Total = *env.Total
	}
	if env.Pages != nil {
		p.Pages = *env.Pages
	}
	if env.CurrentPage != nil {
		p.CurrentPage = *env.CurrentPage
	}
	return p
}

type RegisterRequest struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role,omitempty"`
	Company   string `json:"company,omitempty"`
	Phone     string `json:"phone,omitempty"`
}

// Register creates an account and establishes the session.
func (c *Client) Register(ctx context.Context, req RegisterRequest) (*models.User, error) {
	return c.authenticate(ctx, "/api/auth/register", req)
}

// Login authenticates and establishes the session.
func (c *Client) Login(ctx context.Context, email, password string) (*models.User, error) {
	body := map[string]string{"email": email, "password": password}
	return c.authenticate(ctx, "/api/auth/login", body)
}

func (c *Client) authenticate(ctx context.Context, path string, body any) (*models.User, error) {
	c.session.beginAuth()
	var payload authPayload
	if err := c.send(ctx, http.MethodPost, path, body, &payload); err != nil {
		c.session.Clear()
		return nil, err
	}
	if payload.Token == "" || payload.User == nil {
		c.session.Clear()
		return nil, fmt.Errorf("api: malformed auth response")
	}
	if err := c.session.establish(payload.Token, payload.User); err != nil {
		return nil, err
	}
	return payload.User, nil
}

// Logout clears the session. Purely local, there is no server call.
func (c *Client) Logout() {
	c.session.Clear()
}

// Me fetches the current user and refreshes the stored snapshot.
func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var user models.User
	if _, err := c.get(ctx, "/api/auth/me", nil, &user); err != nil {
		return nil, err
	}
	if err := c.session.setUser(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

type ProfileUpdate struct {
	FirstName *string `json:"firstName,omitempty"`
	LastName  *string `json:"lastName,omitempty"`
	Company   *string `json:"company,omitempty"`
	Phone     *string `json:"phone,omitempty"`
}

// UpdateProfile patches the profile and refreshes the stored snapshot.
func (c *Client) UpdateProfile(ctx context.Context, req ProfileUpdate) (*models.User, error) {
	var user models.User
	if err := c.send(ctx, http.MethodPut, "/api/auth/profile", req, &user); err != nil {
		return nil, err
	}
	if err := c.session.setUser(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) ChangePassword(ctx context.Context, current, next string) error {
	body := map[string]string{"currentPassword": current, "newPassword": next}
	return c.send(ctx, http.MethodPut, "/api/auth/password", body, nil)
}

// ListOptions are the common list query parameters.
type ListOptions struct {
	Page     int
	Limit    int
	Status   string
	Search   string
	Project  string
	Category string
	Type     string
	Priority string
}

func (o ListOptions) values() url.Values {
	q := url.Values{}
	if o.Page > 0 {
		q.Set("page", strconv.Itoa(o.Page))
	}
	if o.Limit > 0 {
		q.Set("limit", strconv.Itoa(o.Limit))
	}
	for key, val := range map[string]string{
		"status": o.Status, "search": o.Search, "project": o.Project,
		"category": o.Category, "type": o.Type, "priority": o.Priority,
	} {
		if val != "" {
			q.Set(key, val)
		}
	}
	return q
}

func (c *Client) ListProjects(ctx context.Context, opts ListOptions) ([]json.RawMessage, Page, error) {
	return c.list(ctx, "/api/projects", opts)
}

func (c *Client) ListTasks(ctx context.Context, opts ListOptions) ([]json.RawMessage, Page, error) {
	return c.list(ctx, "/api/tasks", opts)
}

func (c *Client) ListDocuments(ctx context.Context, opts ListOptions) ([]json.RawMessage, Page, error) {
	return c.list(ctx, "/api/documents", opts)
}

func (c *Client) list(ctx context.Context, path string, opts ListOptions) ([]json.RawMessage, Page, error) {
	var items []json.RawMessage
	env, err := c.get(ctx, path, opts.values(), &items)
	if err != nil {
		return nil, Page{}, err
	}
	return items, page(env), nil
}

func (c *Client) GetProject(ctx context.Context, id string, out any) error {
	_, err := c.get(ctx, "/api/projects/"+url.PathEscape(id), nil, out)
	return err
}

func (c *Client) GetTask(ctx context.Context, id string, out any) error {
	_, err := c.get(ctx, "/api/tasks/"+url.PathEscape(id), nil, out)
	return err
}

func (c *Client) GetDocument(ctx context.Context, id string, out any) error {
	_, err := c.get(ctx, "/api/documents/"+url.PathEscape(id), nil, out)
	return err
}

type DownloadLink struct {
	DownloadURL string `json:"downloadUrl"`
	Filename    string `json:"filename"`
}

// DocumentDownloadLink asks the server for a short-lived download URL.
func (c *Client) DocumentDownloadLink(ctx context.Context, id string) (*DownloadLink, error) {
	var link DownloadLink
	if _, err := c.get(ctx, "/api/documents/"+url.PathEscape(id)+"/download", nil, &link); err != nil {
		return nil, err
	}
	return &link, nil
}

func (c *Client) SetTaskProgress(ctx context.Context, id string, progress int, out any) error {
	body := map[string]int{"progress": progress}
	return c.send(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(id)+"/progress", body, out)
}

func (c *Client) AddTaskComment(ctx context.Context, id, text string, out any) error {
	body := map[string]string{"text": text}
	return c.send(ctx, http.MethodPost, "/api/tasks/"+url.PathEscape(id)+"/comments", body, out)
}
