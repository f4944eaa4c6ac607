package audit

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoLedger is a durable Ledger backed by a MongoDB append-only
// collection: every Append is a plain insert, topic becomes a
// document field rather than a separate collection, since oracled
// audit volume doesn't warrant per-topic collections.
type MongoLedger struct {
	client     *mongo.Client
	collection *mongo.Collection
}

type ledgerDocument struct {
	Topic     string    `bson:"topic"`
	Payload   []byte    `bson:"payload"`
	CreatedAt time.Time `bson:"created_at"`
}

// MongoLedgerConfig configures the MongoDB-backed ledger.
type MongoLedgerConfig struct {
	URI        string
	Database   string
	Collection string
}

// NewMongoLedger dials MongoDB and returns a ready Ledger.
func NewMongoLedger(ctx context.Context, cfg MongoLedgerConfig) (*MongoLedger, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("connect mongo ledger: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		return nil, fmt.Errorf("ping mongo ledger: %w", err)
	}

	collection := client.Database(cfg.Database).Collection(cfg.Collection)
	return &MongoLedger{client: client, collection: collection}, nil
}

// Append inserts entry as a new document tagged with topic, returning
// its generated ObjectID hex as the ledger transaction id.
func (l *MongoLedger) Append(ctx context.Context, topic string, entry []byte) (string, error) {
	doc := ledgerDocument{Topic: topic, Payload: entry, CreatedAt: time.Now()}

	result, err := l.collection.InsertOne(ctx, doc)
	if err != nil {
		return "", fmt.Errorf("append to mongo ledger: %w", err)
	}

	oid, ok := result.InsertedID.(bson.ObjectID)
	if !ok {
		return "", fmt.Errorf("unexpected inserted id type %T", result.InsertedID)
	}
	return oid.Hex(), nil
}

// Close disconnects the underlying MongoDB client.
func (l *MongoLedger) Close(ctx context.Context) error {
	return l.client.Disconnect(ctx)
}
