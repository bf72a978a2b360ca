package store

import (
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// searchClause builds a case-insensitive substring match across the
// given fields. The term is quoted so user input is never interpreted
// as a pattern.
func searchClause(term string, fields ...string) bson.M {
	re := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	or := make([]bson.M, 0, len(fields))
	for _, f := range fields {
		or = append(or, bson.M{f: re})
	}
	return bson.M{"$or": or}
}

// andClauses attaches extra $or-bearing clauses to a filter without
// clobbering each other: scope and search must both hold.
func andClauses(filter bson.M, clauses ...bson.M) bson.M {
	var and []bson.M
	for _, c := range clauses {
		if c != nil {
			and = append(and, c)
		}
	}
	if len(and) > 0 {
		filter["$and"] = and
	}
	return filter
}

func skipFor(page, limit int64) int64 {
	if page < 1 {
		page = 1
	}
	return (page - 1) * limit
}
