package handlers

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/buildwise/backend/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestShapeTask(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	assignee := models.User{ID: primitive.NewObjectID(), FirstName: "Jan", LastName: "Kowalski", Email: "jan@example.com", Role: models.RoleUser}
	project := models.Project{ID: primitive.NewObjectID(), Name: "Osiedle Zielone", Status: models.ProjectActive}

	task := models.Task{
		ID:         primitive.NewObjectID(),
		Title:      "Pour foundation",
		Status:     models.TaskInProgress,
		Project:    project.ID,
		AssignedTo: assignee.ID,
		CreatedBy:  assignee.ID,
		StartDate:  now.Add(-10 * 24 * time.Hour),
		DueDate:    now.Add(-24 * time.Hour),
	}

	users := map[primitive.ObjectID]models.User{assignee.ID: assignee}
	projects := map[primitive.ObjectID]models.Project{project.ID: project}

	view := shapeTask(task, users, projects, now)

	assert.Equal(t, 9, view.Duration)
	assert.Equal(t, 1, view.DaysOverdue)
	assert.Equal(t, "Osiedle Zielone", view.Project.Name)
	assert.Equal(t, "Jan", view.AssignedTo.FirstName)

	// Populated projections shadow the raw ids in the JSON output.
	raw, err := json.Marshal(view)
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	proj, ok := out["project"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "Osiedle Zielone", proj["name"])
	assigned, ok := out["assignedTo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "jan@example.com", assigned["email"])
}

func TestShapeFallbacks(t *testing.T) {
	goneUser := primitive.NewObjectID()
	goneProject := primitive.NewObjectID()

	ref := userRef(map[primitive.ObjectID]models.User{}, goneUser)
	assert.Equal(t, goneUser, ref.ID)
	assert.Empty(t, ref.Email)

	pref := projectRef(map[primitive.ObjectID]models.Project{}, goneProject)
	assert.Equal(t, goneProject, pref.ID)
	assert.Empty(t, pref.Name)
}

func TestShapeDocument(t *testing.T) {
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	doc := models.Document{
		ID:        primitive.NewObjectID(),
		Title:     "Site plan",
		File:      models.FileInfo{Size: 1572864, OriginalName: "plan.pdf"},
		CreatedAt: now.Add(-49 * time.Hour),
	}

	view := shapeDocument(doc, nil, nil, now)
	assert.Equal(t, "1.50 MB", view.FileSizeFormatted)
	assert.Equal(t, 2, view.DaysSinceUpload)
}

func TestDedupe(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	got := dedupe([]primitive.ObjectID{a, b, a, a, b})
	assert.Equal(t, []primitive.ObjectID{a, b}, got)
	assert.Empty(t, dedupe(nil))
}
