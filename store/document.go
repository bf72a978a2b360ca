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

// DocumentListOptions narrows and pages a documents query. ProjectIDs
// is the caller's accessible-project set; nil means unrestricted.
type DocumentListOptions struct {
	Project    *primitive.ObjectID
	Category   string
	MimeType   string
	Search     string
	ProjectIDs []primitive.ObjectID
	Page       int64
	Limit      int64
}

func (db *DB) InsertDocument(ctx context.Context, d *models.Document) (primitive.ObjectID, error) {
	res, err := db.Documents().InsertOne(ctx, d, options.InsertOne())
	if err != nil {
		return primitive.NilObjectID, err
	}
	return res.InsertedID.(primitive.ObjectID), nil
}

func (db *DB) DocumentByID(ctx context.Context, id primitive.ObjectID) (*models.Document, error) {
	var d models.Document
	err := db.Documents().FindOne(ctx, bson.M{"_id": id, "isActive": true}).Decode(&d)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (db *DB) ListDocuments(ctx context.Context, opts DocumentListOptions) ([]models.Document, int64, error) {
	filter := bson.M{"isActive": true}
	if opts.Category != "" {
		filter["category"] = opts.Category
	}
	if opts.MimeType != "" {
		filter["file.mimeType"] = primitive.Regex{Pattern: opts.MimeType, Options: "i"}
	}
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
		search = searchClause(opts.Search, "title", "description", "tags")
	}
	andClauses(filter, search)

	total, err := db.Documents().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	cur, err := db.Documents().Find(ctx, filter, options.Find().
		SetSort(bson.M{"createdAt": -1}).
		SetSkip(skipFor(opts.Page, opts.Limit)).
		SetLimit(opts.Limit))
	if err != nil {
		return nil, 0, err
	}
	defer cur.Close(ctx)
	var docs []models.Document
	if err := cur.All(ctx, &docs); err != nil {
		return nil, 0, err
	}
	return docs, total, nil
}

func (db *DB) UpdateDocument(ctx context.Context, id primitive.ObjectID, set bson.M) error {
	if len(set) == 0 {
		return nil
	}
	set["updatedAt"] = time.Now()
	_, err := db.Documents().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	return err
}

func (db *DB) SoftDeleteDocument(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Documents().UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"isActive": false, "updatedAt": time.Now()}})
	return err
}

// IncrementDownload bumps the counter and stamps the download time on
// every successful download call, with no per-user deduplication.
func (db *DB) IncrementDownload(ctx context.Context, id primitive.ObjectID) error {
	_, err := db.Documents().UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"downloadCount": 1},
		"$set": bson.M{"lastDownloaded": time.Now()},
	})
	return err
}
