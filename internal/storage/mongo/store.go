// Package mongo is an object store backed by a MongoDB collection.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/Rrens/energy-agent/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// document is the stored form of an object
type document struct {
	Key          string    `bson:"_id"`
	Data         []byte    `bson:"data,omitempty"`
	ContentType  string    `bson:"contentType"`
	Size         int64     `bson:"size"`
	LastModified time.Time `bson:"lastModified"`
}

func (d document) info() domain.ObjectInfo {
	return domain.ObjectInfo{
		Key:          d.Key,
		Size:         d.Size,
		ContentType:  d.ContentType,
		LastModified: d.LastModified.UTC(),
	}
}

// Store implements domain.ObjectStore on MongoDB
type Store struct {
	client *mongo.Client
	coll   *mongo.Collection
	now    func() time.Time
}

// Connect opens a client and selects database.collection
func Connect(ctx context.Context, uri, database, collection string, timeout time.Duration) (*Store, error) {
	clientOpts := options.Client().ApplyURI(uri)
	if timeout > 0 {
		clientOpts.SetConnectTimeout(timeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}

	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping: %w", err)
	}

	return &Store{
		client: client,
		coll:   client.Database(database).Collection(collection),
		now:    time.Now,
	}, nil
}

// List returns objects whose key starts with prefix, in key order
func (s *Store) List(ctx context.Context, prefix string, limit int) ([]domain.ObjectInfo, error) {
	if limit <= 0 {
		limit = 1000
	}

	opts := options.Find().
		SetProjection(bson.M{"data": 0}).
		SetSort(bson.D{{Key: "_id", Value: 1}}).
		SetLimit(int64(limit))

	cursor, err := s.coll.Find(ctx, prefixFilter(prefix), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	defer cursor.Close(ctx)

	objects := []domain.ObjectInfo{}
	for cursor.Next(ctx) {
		var doc document
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode object: %w", err)
		}
		objects = append(objects, doc.info())
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to list objects: %w", err)
	}
	return objects, nil
}

// Get returns the object at key
func (s *Store) Get(ctx context.Context, key string) (*domain.Object, error) {
	var doc document
	err := s.coll.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("object %s: %w", key, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get object: %w", err)
	}
	return &domain.Object{ObjectInfo: doc.info(), Data: doc.Data}, nil
}

// Put creates or replaces the object at key
func (s *Store) Put(ctx context.Context, key string, data []byte, contentType string) error {
	if key == "" {
		return fmt.Errorf("object key is required: %w", domain.ErrValidation)
	}

	doc := document{
		Key:          key,
		Data:         data,
		ContentType:  contentType,
		Size:         int64(len(data)),
		LastModified: s.now().UTC(),
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": key}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to put object: %w", err)
	}
	return nil
}

// Delete removes the given keys and reports how many existed
func (s *Store) Delete(ctx context.Context, keys ...string) (int64, error) {
	if len(keys) == 0 {
		return 0, nil
	}
	res, err := s.coll.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": keys}})
	if err != nil {
		return 0, fmt.Errorf("failed to delete objects: %w", err)
	}
	return res.DeletedCount, nil
}

// Close disconnects the client
func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// Ping verifies the connection is alive
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx, nil)
}

func prefixFilter(prefix string) bson.M {
	if prefix == "" {
		return bson.M{}
	}
	return bson.M{"_id": bson.M{"$regex": "^" + regexp.QuoteMeta(prefix)}}
}
