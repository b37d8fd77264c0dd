package store

import (
	"context"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ggs134/meeting-transcript-analyzer/pkg/logging"
	"github.com/ggs134/meeting-transcript-analyzer/pkg/transcript"
)

// MongoOptions configures NewMongoStore.
type MongoOptions struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// MongoStore reads and writes one MongoDB database.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	logger logging.Logger
}

// NewMongoStore connects and pings the server.
func NewMongoStore(ctx context.Context, opts MongoOptions, logger logging.Logger) (*MongoStore, error) {
	timeout := opts.ConnectTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	clientOpts := options.Client().
		ApplyURI(opts.URI).
		SetConnectTimeout(timeout).
		SetServerSelectionTimeout(timeout)

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connecting to MongoDB: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("pinging MongoDB: %w", err)
	}

	return &MongoStore{
		client: client,
		db:     client.Database(opts.Database),
		logger: logger.With(logging.F("component", "mongo_store"), logging.F("database", opts.Database)),
	}, nil
}

// Find runs the translated filter and converts BSON values to plain Go values.
func (s *MongoStore) Find(ctx context.Context, f Filter) ([]Document, error) {
	query := MongoFilter(f)

	findOpts := options.Find()
	if f.Limit > 0 {
		findOpts.SetLimit(int64(f.Limit))
	}

	cur, err := s.db.Collection(f.Collection).Find(ctx, query, findOpts)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", f.Collection, err)
	}
	defer cur.Close(ctx)

	var docs []Document
	for cur.Next(ctx) {
		var raw bson.M
		if err := cur.Decode(&raw); err != nil {
			return nil, fmt.Errorf("decoding document: %w", err)
		}
		docs = append(docs, fromBSON(raw).(map[string]any))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", f.Collection, err)
	}

	s.logger.Debug("Fetched documents",
		logging.F("collection", f.Collection),
		logging.F("count", len(docs)))
	return docs, nil
}

// Insert writes docs with InsertMany. Assigned ids are written back.
func (s *MongoStore) Insert(ctx context.Context, collection string, docs []Document) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}

	batch := make([]any, len(docs))
	for i, doc := range docs {
		batch[i] = doc
	}

	res, err := s.db.Collection(collection).InsertMany(ctx, batch)
	if err != nil {
		return 0, fmt.Errorf("inserting into %s: %w", collection, err)
	}
	for i, id := range res.InsertedIDs {
		if i < len(docs) && docs[i][transcript.FieldID] == nil {
			docs[i][transcript.FieldID] = id
		}
	}
	return len(res.InsertedIDs), nil
}

// Delete removes documents whose _id is in ids.
func (s *MongoStore) Delete(ctx context.Context, collection string, ids []any) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.db.Collection(collection).DeleteMany(ctx, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: ids}}}})
	if err != nil {
		return 0, fmt.Errorf("deleting from %s: %w", collection, err)
	}
	return int(res.DeletedCount), nil
}

// All returns every document in collection.
func (s *MongoStore) All(ctx context.Context, collection string) ([]Document, error) {
	return s.Find(ctx, Filter{Collection: collection})
}

func (s *MongoStore) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// MongoFilter translates f into a query document. A date range matches the
// date field or the createdTime string of Drive exports.
func MongoFilter(f Filter) bson.D {
	var parts []bson.D

	if len(f.IDs) > 0 {
		parts = append(parts, bson.D{{Key: "_id", Value: bson.D{{Key: "$in", Value: f.IDs}}}})
	}

	if f.TitleContains != "" {
		re := primitive.Regex{Pattern: regexp.QuoteMeta(f.TitleContains), Options: "i"}
		parts = append(parts, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: transcript.FieldTitle, Value: re}},
			bson.D{{Key: transcript.FieldName, Value: re}},
		}}})
	}

	if !f.Date.IsZero() {
		dateOps, createdOps := dateOperators(f.Date)
		parts = append(parts, bson.D{{Key: "$or", Value: bson.A{
			bson.D{{Key: transcript.FieldDate, Value: dateOps}},
			bson.D{{Key: transcript.FieldCreatedTime, Value: createdOps}},
		}}})
	}

	switch len(parts) {
	case 0:
		return bson.D{}
	case 1:
		return parts[0]
	}
	and := make(bson.A, len(parts))
	for i, p := range parts {
		and[i] = p
	}
	return bson.D{{Key: "$and", Value: and}}
}

func dateOperators(r *transcript.DateRange) (bson.D, bson.D) {
	var dateOps, createdOps bson.D
	add := func(op string, t *time.Time) {
		if t == nil {
			return
		}
		dateOps = append(dateOps, bson.E{Key: op, Value: *t})
		createdOps = append(createdOps, bson.E{Key: op, Value: isoUTC(*t)})
	}
	add("$gte", r.Gte)
	add("$gt", r.Gt)
	add("$lte", r.Lte)
	add("$lt", r.Lt)
	return dateOps, createdOps
}

// fromBSON converts driver types into the plain values the core expects.
func fromBSON(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = fromBSON(item)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = fromBSON(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = fromBSON(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = fromBSON(item)
		}
		return out
	case primitive.DateTime:
		return val.Time().UTC()
	default:
		return v
	}
}
