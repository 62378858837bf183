package catalog

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSource searches a wells collection
type MongoSource struct {
	client *mongo.Client
	coll   *mongo.Collection
	cfg    Config
}

// NewMongo creates a MongoDB source. Config.Table names the collection.
func NewMongo() Source {
	return &MongoSource{}
}

// Driver returns the backend identifier
func (m *MongoSource) Driver() string {
	return "mongo"
}

// Connect opens the client and selects the collection
func (m *MongoSource) Connect(ctx context.Context, cfg Config) error {
	cfg = cfg.withDefaults()
	if cfg.DSN == "" {
		return fmt.Errorf("mongo catalog uri is required")
	}
	if cfg.Database == "" {
		return fmt.Errorf("mongo catalog database is required")
	}

	clientOpts := options.Client().ApplyURI(cfg.DSN)
	if cfg.Timeout > 0 {
		clientOpts.SetConnectTimeout(cfg.Timeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return fmt.Errorf("failed to ping: %w", err)
	}

	m.client = client
	m.coll = client.Database(cfg.Database).Collection(cfg.Table)
	m.cfg = cfg
	return nil
}

// Close disconnects the client
func (m *MongoSource) Close() error {
	if m.client != nil {
		err := m.client.Disconnect(context.Background())
		m.client = nil
		return err
	}
	return nil
}

// HealthCheck verifies the connection is alive
func (m *MongoSource) HealthCheck(ctx context.Context) error {
	if m.client == nil {
		return fmt.Errorf("not connected")
	}
	return m.client.Ping(ctx, nil)
}

// Search returns wells matching the filter
func (m *MongoSource) Search(ctx context.Context, f Filter) ([]Well, error) {
	if m.coll == nil {
		return nil, fmt.Errorf("not connected")
	}

	if m.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.cfg.Timeout)
		defer cancel()
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "name", Value: 1}}).
		SetLimit(int64(m.cfg.limit(f.Limit)))

	cursor, err := m.coll.Find(ctx, MongoFilter(f), opts)
	if err != nil {
		return nil, fmt.Errorf("catalog search failed: %w", err)
	}
	defer cursor.Close(ctx)

	wells := []Well{}
	if err := cursor.All(ctx, &wells); err != nil {
		return nil, fmt.Errorf("failed to decode wells: %w", err)
	}
	return wells, nil
}

// MongoFilter translates a Filter into a case-insensitive query document
func MongoFilter(f Filter) bson.D {
	filter := bson.D{}
	if f.NamePrefix != "" {
		filter = append(filter, bson.E{Key: "name", Value: bson.M{
			"$regex": "^" + regexp.QuoteMeta(f.NamePrefix), "$options": "i",
		}})
	}
	if f.Operator != "" {
		filter = append(filter, bson.E{Key: "operator", Value: bson.M{
			"$regex": "^" + regexp.QuoteMeta(f.Operator) + "$", "$options": "i",
		}})
	}
	if f.Field != "" {
		filter = append(filter, bson.E{Key: "field", Value: bson.M{
			"$regex": "^" + regexp.QuoteMeta(f.Field) + "$", "$options": "i",
		}})
	}
	return filter
}
