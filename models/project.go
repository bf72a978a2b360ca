package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Project status values.
const (
	ProjectPlanning  = "planning"
	ProjectActive    = "active"
	ProjectOnHold    = "on-hold"
	ProjectCompleted = "completed"
	ProjectCancelled = "cancelled"
)

var ValidProjectStatuses = []string{ProjectPlanning, ProjectActive, ProjectOnHold, ProjectCompleted, ProjectCancelled}

// Roles a team member can hold on a project. Distinct from User.Role,
// which is the account-level authorization tier.
const (
	TeamArchitect  = "architect"
	TeamEngineer   = "engineer"
	TeamContractor = "contractor"
	TeamSupervisor = "supervisor"
	TeamWorker     = "worker"
)

var ValidTeamRoles = []string{TeamArchitect, TeamEngineer, TeamContractor, TeamSupervisor, TeamWorker}

// Phase status values.
const (
	PhaseNotStarted = "not-started"
	PhaseInProgress = "in-progress"
	PhaseCompleted  = "completed"
	PhaseDelayed    = "delayed"
)

var ValidPhaseStatuses = []string{PhaseNotStarted, PhaseInProgress, PhaseCompleted, PhaseDelayed}

type Address struct {
	Street     string `bson:"street" json:"street"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postalCode" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

type Coordinates struct {
	Latitude  float64 `bson:"latitude,omitempty" json:"latitude,omitempty"`
	Longitude float64 `bson:"longitude,omitempty" json:"longitude,omitempty"`
}

type Client struct {
	Name    string `bson:"name" json:"name"`
	Email   string `bson:"email,omitempty" json:"email,omitempty"`
	Phone   string `bson:"phone,omitempty" json:"phone,omitempty"`
	Company string `bson:"company,omitempty" json:"company,omitempty"`
}

type TeamMember struct {
	User     primitive.ObjectID `bson:"user" json:"user"`
	Role     string             `bson:"role" json:"role"` // architect, engineer, contractor, supervisor, worker
	JoinedAt time.Time          `bson:"joinedAt" json:"joinedAt"`
}

type Phase struct {
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	StartDate   time.Time `bson:"startDate" json:"startDate"`
	EndDate     time.Time `bson:"endDate" json:"endDate"`
	Status      string    `bson:"status" json:"status"`
	Progress    int       `bson:"progress" json:"progress"`
}

type Project struct {
	ID             primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name           string             `bson:"name" json:"name"`
	Description    string             `bson:"description,omitempty" json:"description,omitempty"`
	Address        Address            `bson:"address" json:"address"`
	Coordinates    *Coordinates       `bson:"coordinates,omitempty" json:"coordinates,omitempty"`
	Status         string             `bson:"status" json:"status"`
	StartDate      time.Time          `bson:"startDate" json:"startDate"`
	EndDate        time.Time          `bson:"endDate" json:"endDate"`
	Budget         float64            `bson:"budget,omitempty" json:"budget,omitempty"`
	Currency       string             `bson:"currency" json:"currency"`
	ProjectManager primitive.ObjectID `bson:"projectManager" json:"projectManager"`
	Team           []TeamMember       `bson:"team" json:"team"`
	Client         Client             `bson:"client" json:"client"`
	Progress       int                `bson:"progress" json:"progress"`
	Phases         []Phase            `bson:"phases,omitempty" json:"phases,omitempty"`
	CreatedBy      primitive.ObjectID `bson:"createdBy" json:"createdBy"`
	IsActive       bool               `bson:"isActive" json:"isActive"`
	CreatedAt      time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt      time.Time          `bson:"updatedAt" json:"updatedAt"`
}

// Duration is the project length in whole days (ceiling), derived at
// read time from the stored dates.
func (p *Project) Duration() int {
	return ceilDays(p.StartDate, p.EndDate)
}
