package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Task status values.
const (
	TaskPending    = "pending"
	TaskInProgress = "in-progress"
	TaskCompleted  = "completed"
	TaskCancelled  = "cancelled"
	TaskOnHold     = "on-hold"
)

var ValidTaskStatuses = []string{TaskPending, TaskInProgress, TaskCompleted, TaskCancelled, TaskOnHold}

// Task priority values.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
	PriorityUrgent = "urgent"
)

var ValidTaskPriorities = []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent}

var ValidTaskCategories = []string{
	"foundation", "structure", "electrical", "plumbing",
	"hvac", "finishing", "inspection", "safety", "other",
}

type Comment struct {
	User      primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
}

type Material struct {
	Name     string  `bson:"name" json:"name"`
	Quantity float64 `bson:"quantity" json:"quantity"`
	Unit     string  `bson:"unit" json:"unit"`
	Cost     float64 `bson:"cost,omitempty" json:"cost,omitempty"`
}

type Task struct {
	ID             primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Title          string               `bson:"title" json:"title"`
	Description    string               `bson:"description,omitempty" json:"description,omitempty"`
	Project        primitive.ObjectID   `bson:"project" json:"project"`
	AssignedTo     primitive.ObjectID   `bson:"assignedTo" json:"assignedTo"`
	CreatedBy      primitive.ObjectID   `bson:"createdBy" json:"createdBy"`
	Status         string               `bson:"status" json:"status"`
	Priority       string               `bson:"priority" json:"priority"`
	Category       string               `bson:"category" json:"category"`
	StartDate      time.Time            `bson:"startDate" json:"startDate"`
	DueDate        time.Time            `bson:"dueDate" json:"dueDate"`
	CompletedDate  *time.Time           `bson:"completedDate,omitempty" json:"completedDate,omitempty"`
	EstimatedHours float64              `bson:"estimatedHours,omitempty" json:"estimatedHours,omitempty"`
	ActualHours    float64              `bson:"actualHours" json:"actualHours"`
	Progress       int                  `bson:"progress" json:"progress"`
	Location       string               `bson:"location,omitempty" json:"location,omitempty"`
	Materials      []Material           `bson:"materials,omitempty" json:"materials,omitempty"`
	Comments       []Comment            `bson:"comments" json:"comments"`
	Dependencies   []primitive.ObjectID `bson:"dependencies,omitempty" json:"dependencies,omitempty"`
	Tags           []string             `bson:"tags,omitempty" json:"tags,omitempty"`
	IsActive       bool                 `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time            `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time            `bson:"updatedAt" json:"updatedAt"`
}

// Duration is the scheduled task length in whole days (ceiling).
func (t *Task) Duration() int {
	return ceilDays(t.StartDate, t.DueDate)
}

// DaysOverdue is the number of whole days (ceiling) the task is past its
// due date at the given instant. Completed tasks are never overdue.
func (t *Task) DaysOverdue(now time.Time) int {
	if t.Status == TaskCompleted || !t.DueDate.Before(now) {
		return 0
	}
	return ceilDays(t.DueDate, now)
}

// SetProgress applies a progress value and the completion invariant:
// reaching 100 forces status to completed and stamps CompletedDate.
// Already-completed tasks keep their original completion stamp.
func (t *Task) SetProgress(progress int, now time.Time) {
	t.Progress = progress
	if progress == 100 && t.Status != TaskCompleted {
		t.Status = TaskCompleted
		t.CompletedDate = &now
	}
}

// SetStatus applies a status change, stamping CompletedDate when the
// task enters completed without one.
func (t *Task) SetStatus(status string, now time.Time) {
	t.Status = status
	if status == TaskCompleted && t.CompletedDate == nil {
		t.CompletedDate = &now
	}
}
