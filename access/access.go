// Package access implements the authorization rules shared by the
// project, task, and document routes. A user's access set for a project
// is the union of its manager, its team members, and its creator; the
// admin role bypasses every ownership check. The set is re-derived from
// the stored entities on each request, never cached.
package access

import (
	"github.com/buildwise/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// IsAdmin is the single bypass point consulted by every predicate.
func IsAdmin(u *models.User) bool {
	return u != nil && u.Role == models.RoleAdmin
}

// IsProjectMember reports whether the user is in the project's access
// set: manager, team member, or creator.
func IsProjectMember(userID primitive.ObjectID, p *models.Project) bool {
	if p.ProjectManager == userID || p.CreatedBy == userID {
		return true
	}
	for _, m := range p.Team {
		if m.User == userID {
			return true
		}
	}
	return false
}

// CanAccessProject gates reads of a project and, transitively, reads of
// its tasks and documents and creation of children under it.
func CanAccessProject(u *models.User, p *models.Project) bool {
	return IsAdmin(u) || IsProjectMember(u.ID, p)
}

// CanManageProject gates project update and delete: manager or creator,
// not the wider team.
func CanManageProject(u *models.User, p *models.Project) bool {
	return IsAdmin(u) || p.ProjectManager == u.ID || p.CreatedBy == u.ID
}

// CanManageTeam gates team membership mutation: manager only.
func CanManageTeam(u *models.User, p *models.Project) bool {
	return IsAdmin(u) || p.ProjectManager == u.ID
}

// onTeam reports manager-or-team membership, the narrower set used by
// the task and document mutation rules (project creator excluded).
func onTeam(userID primitive.ObjectID, p *models.Project) bool {
	if p.ProjectManager == userID {
		return true
	}
	for _, m := range p.Team {
		if m.User == userID {
			return true
		}
	}
	return false
}

// CanUpdateTask gates task updates. The task's assignee and creator are
// granted access even when they hold no project-level role; the
// project's creator alone is not.
func CanUpdateTask(u *models.User, t *models.Task, p *models.Project) bool {
	return IsAdmin(u) || onTeam(u.ID, p) || t.AssignedTo == u.ID || t.CreatedBy == u.ID
}

// CanDeleteTask gates task deletion: team plus the task's creator, but
// not the bare assignee.
func CanDeleteTask(u *models.User, t *models.Task, p *models.Project) bool {
	return IsAdmin(u) || onTeam(u.ID, p) || t.CreatedBy == u.ID
}

// CanCommentTask gates commenting: team plus the assignee.
func CanCommentTask(u *models.User, t *models.Task, p *models.Project) bool {
	return IsAdmin(u) || onTeam(u.ID, p) || t.AssignedTo == u.ID
}

// CanSetTaskProgress gates the progress sub-operation: the assignee only.
func CanSetTaskProgress(u *models.User, t *models.Task) bool {
	return IsAdmin(u) || t.AssignedTo == u.ID
}

// CanModifyDocument gates document update and delete. The uploader is
// granted access to that specific document regardless of project role.
func CanModifyDocument(u *models.User, d *models.Document, p *models.Project) bool {
	return IsAdmin(u) || onTeam(u.ID, p) || d.UploadedBy == u.ID
}

// ProjectScope returns the query fragment restricting a projects query
// to the user's access set, or nil for admins (unrestricted). Callers
// must apply it before pagination so counts and page boundaries reflect
// only visible entities.
func ProjectScope(u *models.User) bson.M {
	if IsAdmin(u) {
		return nil
	}
	return bson.M{"$or": []bson.M{
		{"projectManager": u.ID},
		{"team.user": u.ID},
		{"createdBy": u.ID},
	}}
}
