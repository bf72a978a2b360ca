package handlers

import (
	"time"

	"github.com/buildwise/backend/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Response shaping: derived fields are computed here, at the boundary,
// from persisted fields, never stored. Reference fields are replaced
// with slim populated projections the way the API documents them.

// ProjectRef is the slim projection embedded when a task or document
// populates its parent project.
type ProjectRef struct {
	ID     primitive.ObjectID `json:"id"`
	Name   string             `json:"name"`
	Status string             `json:"status"`
}

type TeamMemberView struct {
	User     models.UserRef `json:"user"`
	Role     string         `json:"role"`
	JoinedAt time.Time      `json:"joinedAt"`
}

type ProjectView struct {
	models.Project
	Duration       int              `json:"duration"`
	ProjectManager models.UserRef   `json:"projectManager"`
	CreatedBy      models.UserRef   `json:"createdBy"`
	Team           []TeamMemberView `json:"team"`
}

type CommentView struct {
	User      models.UserRef `json:"user"`
	Text      string         `json:"text"`
	CreatedAt time.Time      `json:"createdAt"`
}

type TaskView struct {
	models.Task
	Duration    int            `json:"duration"`
	DaysOverdue int            `json:"daysOverdue"`
	Project     ProjectRef     `json:"project"`
	AssignedTo  models.UserRef `json:"assignedTo"`
	CreatedBy   models.UserRef `json:"createdBy"`
	Comments    []CommentView  `json:"comments"`
}

type DocumentView struct {
	models.Document
	FileSizeFormatted string         `json:"fileSizeFormatted"`
	DaysSinceUpload   int            `json:"daysSinceUpload"`
	Project           ProjectRef     `json:"project"`
	UploadedBy        models.UserRef `json:"uploadedBy"`
}

// userRef resolves a populated user projection, falling back to a
// bare-id ref when the account is gone (deactivated references remain
// renderable).
func userRef(users map[primitive.ObjectID]models.User, id primitive.ObjectID) models.UserRef {
	if u, ok := users[id]; ok {
		return u.Ref()
	}
	return models.UserRef{ID: id}
}

func projectRef(projects map[primitive.ObjectID]models.Project, id primitive.ObjectID) ProjectRef {
	if p, ok := projects[id]; ok {
		return ProjectRef{ID: p.ID, Name: p.Name, Status: p.Status}
	}
	return ProjectRef{ID: id}
}

func shapeProject(p models.Project, users map[primitive.ObjectID]models.User) ProjectView {
	team := make([]TeamMemberView, len(p.Team))
	for i, m := range p.Team {
		team[i] = TeamMemberView{User: userRef(users, m.User), Role: m.Role, JoinedAt: m.JoinedAt}
	}
	return ProjectView{
		Project:        p,
		Duration:       p.Duration(),
		ProjectManager: userRef(users, p.ProjectManager),
		CreatedBy:      userRef(users, p.CreatedBy),
		Team:           team,
	}
}

func shapeTask(t models.Task, users map[primitive.ObjectID]models.User, projects map[primitive.ObjectID]models.Project, now time.Time) TaskView {
	comments := make([]CommentView, len(t.Comments))
	for i, c := range t.Comments {
		comments[i] = CommentView{User: userRef(users, c.User), Text: c.Text, CreatedAt: c.CreatedAt}
	}
	return TaskView{
		Task:        t,
		Duration:    t.Duration(),
		DaysOverdue: t.DaysOverdue(now),
		Project:     projectRef(projects, t.Project),
		AssignedTo:  userRef(users, t.AssignedTo),
		CreatedBy:   userRef(users, t.CreatedBy),
		Comments:    comments,
	}
}

func shapeDocument(d models.Document, users map[primitive.ObjectID]models.User, projects map[primitive.ObjectID]models.Project, now time.Time) DocumentView {
	return DocumentView{
		Document:          d,
		FileSizeFormatted: d.FileSizeFormatted(),
		DaysSinceUpload:   d.DaysSinceUpload(now),
		Project:           projectRef(projects, d.Project),
		UploadedBy:        userRef(users, d.UploadedBy),
	}
}

// dedupe collects the unique ids referenced by a page of entities so
// population costs one query per collection.
func dedupe(ids []primitive.ObjectID) []primitive.ObjectID {
	seen := make(map[primitive.ObjectID]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
