package dbclient

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoClient writes and reads dataset documents. Each dataset gets its own
// collection (dataset_<id>), so concurrent ingests never contend.
type MongoClient struct {
	client *mongo.Client
	dbName string
}

// NewMongoClient connects to the document store.
func NewMongoClient(ctx context.Context, uri, dbName string) (*MongoClient, error) {
	if dbName == "" {
		dbName = "datalake"
	}
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	return &MongoClient{client: client, dbName: dbName}, nil
}

// Ping verifies connectivity.
func (m *MongoClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return m.client.Ping(ctx, nil)
}

// InsertMany stores all records in the named collection. No schema is
// enforced; nested structure is preserved natively.
func (m *MongoClient) InsertMany(ctx context.Context, collection string, docs []map[string]any) (int, error) {
	if len(docs) == 0 {
		return 0, nil
	}
	payload := make([]any, len(docs))
	for i, d := range docs {
		payload[i] = d
	}
	res, err := m.client.Database(m.dbName).Collection(collection).InsertMany(ctx, payload)
	if err != nil {
		return 0, fmt.Errorf("insert many: %w", err)
	}
	return len(res.InsertedIDs), nil
}

// DocQuery is the document half of the backend-transparent query shape.
type DocQuery struct {
	Collection string
	Filter     map[string]any
	Fields     []string
	OrderBy    string
	Sort       []SortSpec
	Limit      int
	Offset     int
}

// Find runs a filtered, paginated read and returns documents as maps.
// ObjectIDs are rendered as hex strings so results serialize cleanly.
func (m *MongoClient) Find(ctx context.Context, q DocQuery) ([]map[string]any, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	opts := options.Find()
	if len(q.Fields) > 0 {
		projection := bson.M{}
		for _, f := range q.Fields {
			projection[f] = 1
		}
		opts.SetProjection(projection)
	}
	if sortDoc := buildSortDoc(q); len(sortDoc) > 0 {
		opts.SetSort(sortDoc)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 10
	}
	opts.SetLimit(int64(limit))
	opts.SetSkip(int64(q.Offset))

	filter := bson.M{}
	for k, v := range q.Filter {
		filter[k] = v
	}

	coll := m.client.Database(m.dbName).Collection(q.Collection)
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find: %w", err)
	}
	defer cursor.Close(ctx)

	var out []map[string]any
	for cursor.Next(ctx) {
		var doc bson.M
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("decode: %w", err)
		}
		out = append(out, normalizeDoc(doc))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor: %w", err)
	}
	return out, nil
}

func buildSortDoc(q DocQuery) bson.D {
	var sortDoc bson.D
	for _, s := range q.Sort {
		dir := 1
		if s.Desc {
			dir = -1
		}
		sortDoc = append(sortDoc, bson.E{Key: s.Field, Value: dir})
	}
	if len(sortDoc) == 0 && q.OrderBy != "" {
		sortDoc = bson.D{{Key: q.OrderBy, Value: 1}}
	}
	return sortDoc
}

// normalizeDoc converts BSON-specific values for JSON output.
func normalizeDoc(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case bson.ObjectID:
			out[k] = val.Hex()
		case bson.M:
			out[k] = normalizeDoc(val)
		case bson.A:
			arr := make([]any, len(val))
			for i, item := range val {
				if m, ok := item.(bson.M); ok {
					arr[i] = normalizeDoc(m)
				} else {
					arr[i] = item
				}
			}
			out[k] = arr
		default:
			out[k] = v
		}
	}
	return out
}

// Count returns the number of documents in a dataset collection.
func (m *MongoClient) Count(ctx context.Context, collection string) (int64, error) {
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	n, err := m.client.Database(m.dbName).Collection(collection).CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, fmt.Errorf("count documents: %w", err)
	}
	return n, nil
}

// DropCollection removes a dataset collection. Used on dataset deletion.
func (m *MongoClient) DropCollection(ctx context.Context, collection string) error {
	if err := m.client.Database(m.dbName).Collection(collection).Drop(ctx); err != nil {
		return fmt.Errorf("drop collection: %w", err)
	}
	return nil
}

// Close disconnects from the document store.
func (m *MongoClient) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return m.client.Disconnect(ctx)
}
