package store

import (
	"context"
	"time"

	"github.com/buildwise/backend/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// TaskListOptions narrows and pages a tasks query. ProjectIDs is the
// caller's accessible-project set; nil means unrestricted (admin).
type TaskListOptions struct {
	Project    *primitive.ObjectID
	Status     string
	Priority   string
	Category   string
	AssignedTo *primitive.ObjectID
	Search     string
	ProjectIDs []primitive.ObjectID
	Page       int64
	Limit      int64
}

func (db *DB) InsertTask(ctx context.Context, t *models.Task) (primitive.ObjectID, error) {
	res, err := db.Tasks().InsertOne(ctx, t, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) TaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	var t models.Task
	err := db.Tasks().FindOne(ctx, bson.M{"_id": id, "isActive": true}).Decode(&t)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func (db *DB) ListTasks(ctx context.Context, opts TaskListOptions) ([]models.Task, int64, error) {
	filter := bson.M{"isActive": true}
	if opts.Status != "" {
		filter["status"] = opts.Status
	}
	if opts.Priority != "" {
		filter["priority"] = opts.Priority
	}
	if opts.Category != "" {
		filter["category"] = opts.Category
	}
	if opts.AssignedTo != nil {
		filter["assignedTo"] = *opts.AssignedTo
	}
	// The scope wins over an explicit project filter: a requested
	// project outside the access set yields an empty page, not a leak.
	if opts.ProjectIDs != nil {
		if opts.Project != nil {
			filter["project"] = bson.M{"$in": intersect(opts.ProjectIDs, *opts.Project)}
		} else {
			filter["project"] = bson.M{"$in": opts.ProjectIDs}
		}
	} else if opts.Project != nil {
		filter["project"] = *opts.Project
	}
	var search bson.M
	if opts.Search != "" {
		search = searchClause(opts.Search, "title", "description", "location")
	}
	andClauses(filter, search)

	total, err := db.Tasks().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := db.Tasks().Find(ctx, filter, options.Find().
		SetSort(bson.M{"dueDate": 1}).
		SetSkip(skipFor(opts.Page, opts.Limit)).
		SetLimit(opts.Limit))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var tasks []models.Task
	if err := cur.All(ctx, &tasks); err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

func intersect(ids []primitive.ObjectID, want primitive.ObjectID) []primitive.ObjectID {
	for _, id := range ids {
		if id == want {
			return []primitive.ObjectID{want}
		}
	}
	return []primitive.ObjectID{}
}

func (db *DB) UpdateTask(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	if len(set) == 0 {
		return nil
	}
	set["updatedAt"] = time.Now()
	_, err := db.Tasks().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (db *DB) SoftDeleteTask(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Tasks().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}})
	return err
}

func (db *DB) AddTaskComment(ctx context.Context, id primitive.ObjectID, c models.Comment) error {
	_, err := db.Tasks().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"comments": c},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	return err
}

// SetTaskProgress persists a progress change together with any status
// transition and completion stamp in a single update, relying on the
// document store's per-document atomicity.
func (db *DB) SetTaskProgress(ctx context.Context, t *models.Task) error {
	set := bson.M{
		"progress":  t.Progress,
		"status":    t.Status,
		"updatedAt": time.Now(),
	}
	if t.CompletedDate != nil {
		set["completedDate"] = *t.CompletedDate
	}
	_, err := db.Tasks().UpdateOne(ctx, bson.M{"_id": t.ID}, bson.M{"$set": set})
	return err
}
