// Package mongostore adapts MongoDB into a cachingpolicy.CacheStore via
// go.mongodb.org/mongo-driver, using a TTL index on an explicit expiresAt
// field so each Put's ttl (rather than one fixed collection-wide TTL) is
// honored per document.
package mongostore

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/gatewaycore/cachingpolicy"
)

// farFuture stands in for "never expires" in a TTL-indexed collection,
// since MongoDB's TTL monitor needs an actual date to compare against.
var farFuture = time.Now().AddDate(100, 0, 0)

// Config holds the connection settings for a Store.
type Config struct {
	URI        string
	Database   string
	Collection string // defaults to "cachingpolicy"
	Timeout    time.Duration // defaults to 5s
}

type document struct {
	Key       string    `bson:"_id"`
	Data      []byte    `bson:"data"`
	ExpiresAt time.Time `bson:"expiresAt"`
}

// Store is a CacheStore backed by a MongoDB collection.
type Store struct {
	client     *mongo.Client
	collection *mongo.Collection
	timeout    time.Duration
	ownsClient bool
}

// New connects to MongoDB and ensures the TTL index exists.
func New(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.URI == "" {
		return nil, fmt.Errorf("mongostore: URI is required")
	}
	if cfg.Database == "" {
		return nil, fmt.Errorf("mongostore: database name is required")
	}
	if cfg.Collection == "" {
		cfg.Collection = "cachingpolicy"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("mongostore: connect failed: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("mongostore: ping failed: %w", err)
	}

	s := &Store{
		client:     client,
		collection: client.Database(cfg.Database).Collection(cfg.Collection),
		timeout:    cfg.Timeout,
		ownsClient: true,
	}
	if err := s.ensureTTLIndex(ctx); err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	return s, nil
}

// NewWithClient wraps an already-connected *mongo.Client; Close will not
// disconnect a client passed in this way.
func NewWithClient(client *mongo.Client, database, collection string) *Store {
	if collection == "" {
		collection = "cachingpolicy"
	}
	return &Store{
		client:     client,
		collection: client.Database(database).Collection(collection),
		timeout:    5 * time.Second,
	}
}

func (s *Store) ensureTTLIndex(ctx context.Context) error {
	model := mongo.IndexModel{
		Keys:    bson.D{{Key: "expiresAt", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0).SetName("cachingpolicy_ttl"),
	}
	_, err := s.collection.Indexes().CreateOne(ctx, model)
	return err
}

func (s *Store) Get(ctx context.Context, key string, hint string) (cachingpolicy.ReadStream, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var doc document
	err := s.collection.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, fmt.Errorf("mongostore: get failed for key %q: %w", key, err)
	}

	head, body, err := cachingpolicy.DecodeEntry(doc.Data)
	if err != nil {
		return nil, err
	}
	return cachingpolicy.NewMemoryReadStream(head, body), nil
}

func (s *Store) Put(ctx context.Context, key string, head cachingpolicy.ResponseHead, ttl time.Duration) (cachingpolicy.WriteStream, error) {
	expiresAt := farFuture
	if ttl > 0 {
		expiresAt = time.Now().Add(ttl)
	}
	return cachingpolicy.NewMemoryWriteStream(func(body []byte) error {
		blob, err := cachingpolicy.EncodeEntry(head, body)
		if err != nil {
			return err
		}
		doc := document{Key: key, Data: blob, ExpiresAt: expiresAt}

		putCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		opts := options.Replace().SetUpsert(true)
		_, err = s.collection.ReplaceOne(putCtx, bson.M{"_id": key}, doc, opts)
		if err != nil {
			return fmt.Errorf("mongostore: put failed for key %q: %w", key, err)
		}
		return nil
	}), nil
}

// Close disconnects the client, if this Store owns it.
func (s *Store) Close(ctx context.Context) error {
	if s.ownsClient && s.client != nil {
		return s.client.Disconnect(ctx)
	}
	return nil
}

var _ cachingpolicy.CacheStore = (*Store)(nil)
