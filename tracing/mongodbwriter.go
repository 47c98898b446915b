package tracing

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/rs/xid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoDBWriter stores events into a fresh MongoDB database.
type MongoDBWriter struct {
	client     *mongo.Client
	collection *mongo.Collection
	events     []any
	batchSize  int
}

// NewMongoDBWriter connects to the server at uri.
func NewMongoDBWriter(uri string) (*MongoDBWriter, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to %s: %w", uri, err)
	}

	err = client.Ping(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("pinging %s: %w", uri, err)
	}

	dbName := "ftlsim_trace_" + xid.New().String()
	log.Printf("Trace is Collected in Database: %s\n", dbName)

	t := &MongoDBWriter{
		client:     client,
		collection: client.Database(dbName).Collection("event"),
		batchSize:  10000,
	}

	t.createIndexes()

	return t, nil
}

func (t *MongoDBWriter) createIndexes() {
	t.createIndex("id", true)
	t.createIndex("device", true)
	t.createIndex("kind", true)
	t.createIndex("block_id", false)
}

func (t *MongoDBWriter) createIndex(key string, useHash bool) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var value any
	if useHash {
		value = "hashed"
	} else {
		value = 1
	}

	_, err := t.collection.Indexes().CreateOne(ctx,
		mongo.IndexModel{
			Keys: bson.D{bson.E{Key: key, Value: value}},
		},
	)
	if err != nil {
		log.Panic(err)
	}
}

// Write buffers an event.
func (t *MongoDBWriter) Write(e Event) {
	t.events = append(t.events, e)
	if len(t.events) >= t.batchSize {
		t.Flush()
	}
}

// Flush inserts the buffered events.
func (t *MongoDBWriter) Flush() {
	if len(t.events) == 0 {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := t.collection.InsertMany(ctx, t.events)
	if err != nil {
		log.Panic(err)
	}

	t.events = nil
}

// Close flushes the events and disconnects.
func (t *MongoDBWriter) Close() error {
	t.Flush()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return t.client.Disconnect(ctx)
}
