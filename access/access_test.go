package access

import (
	"testing"

	"github.com/buildwise/backend/models"
	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func newUser(role string) *models.User {
	return &models.User{ID: primitive.NewObjectID(), Role: role, IsActive: true}
}

func TestIsAdmin(t *testing.T) {
	assert.True(t, IsAdmin(newUser(models.RoleAdmin)))
	assert.False(t, IsAdmin(newUser(models.RoleManager)))
	assert.False(t, IsAdmin(newUser(models.RoleUser)))
	assert.False(t, IsAdmin(nil))
}

func TestProjectAccess(t *testing.T) {
	manager := newUser(models.RoleManager)
	creator := newUser(models.RoleUser)
	member := newUser(models.RoleUser)
	outsider := newUser(models.RoleUser)
	admin := newUser(models.RoleAdmin)

	project := &models.Project{
		ID:             primitive.NewObjectID(),
		ProjectManager: manager.ID,
		CreatedBy:      creator.ID,
		Team:           []models.TeamMember{{User: member.ID, Role: "engineer"}},
	}

	t.Run("read access is manager, team, creator, admin", func(t *testing.T) {
		assert.True(t, CanAccessProject(manager, project))
		assert.True(t, CanAccessProject(member, project))
		assert.True(t, CanAccessProject(creator, project))
		assert.True(t, CanAccessProject(admin, project))
		assert.False(t, CanAccessProject(outsider, project))
	})

	t.Run("manage excludes the wider team", func(t *testing.T) {
		assert.True(t, CanManageProject(manager, project))
		assert.True(t, CanManageProject(creator, project))
		assert.True(t, CanManageProject(admin, project))
		assert.False(t, CanManageProject(member, project))
		assert.False(t, CanManageProject(outsider, project))
	})

	t.Run("team mutation is manager only", func(t *testing.T) {
		assert.True(t, CanManageTeam(manager, project))
		assert.True(t, CanManageTeam(admin, project))
		assert.False(t, CanManageTeam(creator, project))
		assert.False(t, CanManageTeam(member, project))
	})
}

func TestTaskAccess(t *testing.T) {
	manager := newUser(models.RoleManager)
	projectCreator := newUser(models.RoleUser)
	member := newUser(models.RoleUser)
	assignee := newUser(models.RoleUser)
	taskCreator := newUser(models.RoleUser)
	outsider := newUser(models.RoleUser)
	admin := newUser(models.RoleAdmin)

	project := &models.Project{
		ID:             primitive.NewObjectID(),
		ProjectManager: manager.ID,
		CreatedBy:      projectCreator.ID,
		Team:           []models.TeamMember{{User: member.ID, Role: "worker"}},
	}
	task := &models.Task{
		ID:         primitive.NewObjectID(),
		Project:    project.ID,
		AssignedTo: assignee.ID,
		CreatedBy:  taskCreator.ID,
	}

	t.Run("update", func(t *testing.T) {
		assert.True(t, CanUpdateTask(manager, task, project))
		assert.True(t, CanUpdateTask(member, task, project))
		assert.True(t, CanUpdateTask(assignee, task, project))
		assert.True(t, CanUpdateTask(taskCreator, task, project))
		assert.True(t, CanUpdateTask(admin, task, project))
		assert.False(t, CanUpdateTask(outsider, task, project))
	})

	t.Run("project creator alone cannot update a task", func(t *testing.T) {
		assert.False(t, CanUpdateTask(projectCreator, task, project))
	})

	t.Run("delete excludes the bare assignee", func(t *testing.T) {
		assert.True(t, CanDeleteTask(manager, task, project))
		assert.True(t, CanDeleteTask(member, task, project))
		assert.True(t, CanDeleteTask(taskCreator, task, project))
		assert.False(t, CanDeleteTask(assignee, task, project))
		assert.False(t, CanDeleteTask(projectCreator, task, project))
	})

	t.Run("comment includes the assignee", func(t *testing.T) {
		assert.True(t, CanCommentTask(member, task, project))
		assert.True(t, CanCommentTask(assignee, task, project))
		assert.False(t, CanCommentTask(taskCreator, task, project))
		assert.False(t, CanCommentTask(outsider, task, project))
	})

	t.Run("progress is assignee only", func(t *testing.T) {
		assert.True(t, CanSetTaskProgress(assignee, task))
		assert.True(t, CanSetTaskProgress(admin, task))
		assert.False(t, CanSetTaskProgress(manager, task))
		assert.False(t, CanSetTaskProgress(taskCreator, task))
	})
}

func TestDocumentAccess(t *testing.T) {
	manager := newUser(models.RoleManager)
	projectCreator := newUser(models.RoleUser)
	member := newUser(models.RoleUser)
	uploader := newUser(models.RoleUser)
	outsider := newUser(models.RoleUser)

	project := &models.Project{
		ID:             primitive.NewObjectID(),
		ProjectManager: manager.ID,
		CreatedBy:      projectCreator.ID,
		Team:           []models.TeamMember{{User: member.ID, Role: "architect"}},
	}
	doc := &models.Document{
		ID:         primitive.NewObjectID(),
		Project:    project.ID,
		UploadedBy: uploader.ID,
	}

	assert.True(t, CanModifyDocument(manager, doc, project))
	assert.True(t, CanModifyDocument(member, doc, project))
	assert.True(t, CanModifyDocument(uploader, doc, project))
	assert.False(t, CanModifyDocument(projectCreator, doc, project))
	assert.False(t, CanModifyDocument(outsider, doc, project))
}

func TestProjectScope(t *testing.T) {
	t.Run("admin is unrestricted", func(t *testing.T) {
		assert.Nil(t, ProjectScope(newUser(models.RoleAdmin)))
	})

	t.Run("everyone else gets the membership clauses", func(t *testing.T) {
		u := newUser(models.RoleUser)
		scope := ProjectScope(u)
		assert.Equal(t, bson.M{"$or": []bson.M{
			{"projectManager": u.ID},
			{"team.user": u.ID},
			{"createdBy": u.ID},
		}}, scope)
	})
}
