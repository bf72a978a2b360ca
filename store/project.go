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

// ProjectListOptions narrows and pages a projects query. Scope is the
// access-set fragment from access.ProjectScope; nil means unrestricted.
type ProjectListOptions struct {
	Status string
	Search string
	Scope  bson.M
	Page   int64
	Limit  int64
}

func (db *DB) InsertProject(ctx context.Context, p *models.Project) (primitive.ObjectID, error) {
	res, err := db.Projects().InsertOne(ctx, p, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) ProjectByID(ctx context.Context, id primitive.ObjectID) (*models.Project, error) {
	var p models.Project
	err := db.Projects().FindOne(ctx, bson.M{"_id": id, "isActive": true}).Decode(&p)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProjects applies status filter, search, and the access scope
// before counting and paging, so totals reflect only visible projects.
func (db *DB) ListProjects(ctx context.Context, opts ProjectListOptions) ([]models.Project, int64, error) {
	filter := bson.M{"isActive": true}
	if opts.Status != "" {
		filter["status"] = opts.Status
	}
	var search bson.M
	if opts.Search != "" {
		search = searchClause(opts.Search, "name", "description", "client.name")
	}
	andClauses(filter, search, opts.Scope)

	total, err := db.Projects().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := db.Projects().Find(ctx, filter, options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(skipFor(opts.Page, opts.Limit)).
		SetLimit(opts.Limit))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var projects []models.Project
	if err := cur.All(ctx, &projects); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// AccessibleProjectIDs resolves the ids of every active project in the
// user's access set. Used to scope task and document queries, which do
// not carry membership fields of their own.
func (db *DB) AccessibleProjectIDs(ctx context.Context, userID primitive.ObjectID) ([]primitive.ObjectID, error) {
	filter := bson.M{
		"isActive": true,
		"$or": []bson.M{
			{"projectManager": userID},
			{"team.user": userID},
			{"createdBy": userID},
		},
	}
	cur, err := db.Projects().Find(ctx, filter, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var rows []struct {
		ID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &rows); err != nil {
		return nil, err
	}
	ids := make([]primitive.ObjectID, len(rows))
	for i, r := range rows {
		ids[i] = r.ID
	}
	return ids, nil
}

func (db *DB) UpdateProject(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	if len(set) == 0 {
		return nil
	}
	set["updatedAt"] = time.Now()
	_, err := db.Projects().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

// SoftDeleteProject flips the active flag; project documents are never
// physically removed.
func (db *DB) SoftDeleteProject(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Projects().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}})
	return err
}

func (db *DB) AddTeamMember(ctx context.Context, id primitive.ObjectID, m models.TeamMember) error {
	_, err := db.Projects().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$push": bson.M{"team": m},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	return err
}

func (db *DB) RemoveTeamMember(ctx context.Context, id, userID primitive.ObjectID) error {
	_, err := db.Projects().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$pull": bson.M{"team": bson.M{"user": userID}},
		"$set":  bson.M{"updatedAt": time.Now()},
	})
	return err
}

// ProjectRefsByIDs fetches slim name/status projections for response
// population of task and document lists.
func (db *DB) ProjectRefsByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.Project, error) {
	out := make(map[primitive.ObjectID]models.Project, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cur, err := db.Projects().Find(ctx, bson.M{"_id": bson.M{"$in": ids}},
		options.Find().SetProjection(bson.M{"name": 1, "status": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	var projects []models.Project
	if err := cur.All(ctx, &projects); err != nil {
		return nil, err
	}
	for _, p := range projects {
		out[p.ID] = p
	}
	return out, nil
}
