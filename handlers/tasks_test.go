package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/buildwise/backend/access"
	"github.com/buildwise/backend/middleware"
	"github.com/buildwise/backend/models"
	"github.com/buildwise/backend/store"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeTaskStore struct {
	tasks    map[primitive.ObjectID]*models.Task
	projects map[primitive.ObjectID]*models.Project
	users    map[primitive.ObjectID]models.User

	updates    []bson.M
	deleted    []primitive.ObjectID
	progressed []models.Task
}

func (f *fakeTaskStore) TaskByID(_ context.Context, id primitive.ObjectID) (*models.Task, error) {
	t, ok := f.tasks[id]
	if !ok {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

func (f *fakeTaskStore) ProjectByID(_ context.Context, id primitive.ObjectID) (*models.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (f *fakeTaskStore) AccessibleProjectIDs(_ context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	ids := []primitive.ObjectID{}
	for id, p := range f.projects {
		if access.IsProjectMember(userID, p) {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

func (f *fakeTaskStore) ListTasks(_ context.Context, opts store.TaskListOptions) ([]models.Task, int64, error) {
	var out []models.Task
	for _, t := range f.tasks {
		if opts.ProjectIDs != nil {
			found := false
			for _, id := range opts.ProjectIDs {
				if id == t.Project {
					found = true
				}
			}
			if !found {
				continue
			}
		}
		out = append(out, *t)
	}
	return out, int64(len(out)), nil
}

func (f *fakeTaskStore) InsertTask(_ context.Context, t *models.Task) (primitive.ObjectID, error) {
	id := primitive.NewObjectID()
	cp := *t
	cp.ID = id
	f.tasks[id] = &cp
	return id, nil
}

func (f *fakeTaskStore) UpdateTask(_ context.Context, _ primitive.ObjectID, set bson.M) error {
	f.updates = append(f.updates, set)
	return nil
}

func (f *fakeTaskStore) SoftDeleteTask(_ context.Context, id primitive.ObjectID) error {
	f.deleted = append(f.deleted, id)
	delete(f.tasks, id)
	return nil
}

func (f *fakeTaskStore) AddTaskComment(_ context.Context, id primitive.ObjectID, c models.Comment) error {
	t := f.tasks[id]
	t.Comments = append(t.Comments, c)
	return nil
}

func (f *fakeTaskStore) SetTaskProgress(_ context.Context, t *models.Task) error {
	f.progressed = append(f.progressed, *t)
	return nil
}

func (f *fakeTaskStore) UsersByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User)
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			out[id] = u
		}
	}
	return out, nil
}

func (f *fakeTaskStore) ProjectRefsByIDs(_ context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Project, error) {
	out := make(map[primitive.ObjectID]models.Project)
	for _, id := range ids {
		if p, ok := f.projects[id]; ok {
			out[id] = *p
		}
	}
	return out, nil
}

// taskFixture is the cast of one project: a manager, a team member, a
// creator who holds no other role, plus a task with its own assignee
// and creator, both off the team.
type taskFixture struct {
	store *fakeTaskStore

	manager        *models.User
	member         *models.User
	projectCreator *models.User
	assignee       *models.User
	taskCreator    *models.User
	outsider       *models.User

	project *models.Project
	task    *models.Task
}

func newTaskFixture() *taskFixture {
	mkUser := func(role string) *models.User {
		return &models.User{ID: primitive.NewObjectID(), Role: role, IsActive: true}
	}
	fx := &taskFixture{
		manager:        mkUser(models.RoleManager),
		member:         mkUser(models.RoleUser),
		projectCreator: mkUser(models.RoleUser),
		assignee:       mkUser(models.RoleUser),
		taskCreator:    mkUser(models.RoleUser),
		outsider:       mkUser(models.RoleUser),
	}
	now := time.Now()
	fx.project = &models.Project{
		ID:             primitive.NewObjectID(),
		Name:           "Hala magazynowa",
		Status:         models.ProjectActive,
		ProjectManager: fx.manager.ID,
		CreatedBy:      fx.projectCreator.ID,
		Team:           []models.TeamMember{{User: fx.member.ID, Role: "engineer", JoinedAt: now}},
		IsActive:       true,
	}
	fx.task = &models.Task{
		ID:         primitive.NewObjectID(),
		Title:      "Install wiring",
		Project:    fx.project.ID,
		AssignedTo: fx.assignee.ID,
		CreatedBy:  fx.taskCreator.ID,
		Status:     models.TaskInProgress,
		Priority:   models.PriorityMedium,
		Category:   "electrical",
		StartDate:  now,
		DueDate:    now.Add(72 * time.Hour),
		IsActive:   true,
	}
	fx.store = &fakeTaskStore{
		tasks:    map[primitive.ObjectID]*models.Task{fx.task.ID: fx.task},
		projects: map[primitive.ObjectID]*models.Project{fx.project.ID: fx.project},
		users:    map[primitive.ObjectID]models.User{},
	}
	for _, u := range []*models.User{fx.manager, fx.member, fx.projectCreator, fx.assignee, fx.taskCreator, fx.outsider} {
		fx.store.users[u.ID] = *u
	}
	return fx
}

func (fx *taskFixture) router() http.Handler {
	h := &TasksHandler{DB: fx.store}
	r := chi.NewRouter()
	r.Get("/tasks/{id}", h.Get)
	r.Put("/tasks/{id}", h.Update)
	r.Delete("/tasks/{id}", h.Delete)
	r.Post("/tasks/{id}/comments", h.AddComment)
	r.Put("/tasks/{id}/progress", h.SetProgress)
	return r
}

func doRequest(t *testing.T, router http.Handler, user *models.User, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(middleware.WithUser(req.Context(), user))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func envelope(t *testing.T, w *httptest.ResponseRecorder) Response {
	t.Helper()
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp
}

func TestTaskGet(t *testing.T) {
	fx := newTaskFixture()
	router := fx.router()

	t.Run("team member can read", func(t *testing.T) {
		w := doRequest(t, router, fx.member, http.MethodGet, "/tasks/"+fx.task.ID.Hex(), "")
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("missing task is 404 regardless of caller", func(t *testing.T) {
		w := doRequest(t, router, fx.outsider, http.MethodGet, "/tasks/"+primitive.NewObjectID().Hex(), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Task not found", envelope(t, w).Message)
	})

	t.Run("dangling parent project is 404", func(t *testing.T) {
		orphan := &models.Task{
			ID:       primitive.NewObjectID(),
			Project:  primitive.NewObjectID(),
			IsActive: true,
		}
		fx.store.tasks[orphan.ID] = orphan
		w := doRequest(t, router, fx.member, http.MethodGet, "/tasks/"+orphan.ID.Hex(), "")
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, "Project not found", envelope(t, w).Message)
	})

	t.Run("deep link by an outsider is 403", func(t *testing.T) {
		w := doRequest(t, router, fx.outsider, http.MethodGet, "/tasks/"+fx.task.ID.Hex(), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
	})
}

func TestTaskUpdateAuthorization(t *testing.T) {
	fx := newTaskFixture()
	router := fx.router()
	path := "/tasks/" + fx.task.ID.Hex()
	body := `{"description":"updated"}`

	t.Run("project creator alone is 403", func(t *testing.T) {
		w := doRequest(t, router, fx.projectCreator, http.MethodPut, path, body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("assignee may update", func(t *testing.T) {
		w := doRequest(t, router, fx.assignee, http.MethodPut, path, body)
		assert.Equal(t, http.StatusOK, w.Code)
		require.NotEmpty(t, fx.store.updates)
		assert.Equal(t, "updated", fx.store.updates[len(fx.store.updates)-1]["description"])
	})

	t.Run("outsider is 403", func(t *testing.T) {
		w := doRequest(t, router, fx.outsider, http.MethodPut, path, body)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("missing task is 404 before authorization", func(t *testing.T) {
		w := doRequest(t, router, fx.outsider, http.MethodPut, "/tasks/"+primitive.NewObjectID().Hex(), body)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestTaskDeleteAuthorization(t *testing.T) {
	t.Run("assignee alone is 403", func(t *testing.T) {
		fx := newTaskFixture()
		w := doRequest(t, fx.router(), fx.assignee, http.MethodDelete, "/tasks/"+fx.task.ID.Hex(), "")
		assert.Equal(t, http.StatusForbidden, w.Code)
		assert.Empty(t, fx.store.deleted)
	})

	t.Run("task creator may delete", func(t *testing.T) {
		fx := newTaskFixture()
		w := doRequest(t, fx.router(), fx.taskCreator, http.MethodDelete, "/tasks/"+fx.task.ID.Hex(), "")
		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, fx.store.deleted, 1)
		assert.Equal(t, fx.task.ID, fx.store.deleted[0])
	})
}

func TestTaskSetProgressAuthorization(t *testing.T) {
	fx := newTaskFixture()
	router := fx.router()
	path := "/tasks/" + fx.task.ID.Hex() + "/progress"

	t.Run("manager is 403", func(t *testing.T) {
		w := doRequest(t, router, fx.manager, http.MethodPut, path, `{"progress":50}`)
		assert.Equal(t, http.StatusForbidden, w.Code)
	})

	t.Run("assignee reaching 100 completes the task", func(t *testing.T) {
		w := doRequest(t, router, fx.assignee, http.MethodPut, path, `{"progress":100}`)
		assert.Equal(t, http.StatusOK, w.Code)
		require.Len(t, fx.store.progressed, 1)
		got := fx.store.progressed[0]
		assert.Equal(t, 100, got.Progress)
		assert.Equal(t, models.TaskCompleted, got.Status)
		assert.NotNil(t, got.CompletedDate)
	})
}
