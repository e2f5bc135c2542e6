package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

const (
	EventsCollection   = "production_events"
	EpisodesCollection = "downtime_episodes"
	TicketsCollection  = "maintenance_tickets"
	CatalogCollection  = "reference_catalog"
)

// ConnectMongo connects to MongoDB. Multi-document transactions need a
// replica set, so the default URI points at a single-node one.
func ConnectMongo(uri string) (*mongo.Client, error) {
	if uri == "" {
		uri = "mongodb://mongo:27017/?replicaSet=rs0"
	}
	client, err := mongo.Connect(context.Background(), options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo.Connect error: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("mongo.Ping error: %w", err)
	}
	return client, nil
}

// MongoStore keeps production events, downtime episodes, tickets and the
// reference catalog in one MongoDB database.
type MongoStore struct {
	client   *mongo.Client
	events   *mongo.Collection
	episodes *mongo.Collection
	tickets  *mongo.Collection
	catalog  *mongo.Collection
}

// NewMongoStore wires the collections of database dbName.
func NewMongoStore(client *mongo.Client, dbName string) *MongoStore {
	database := client.Database(dbName)
	return &MongoStore{
		client:   client,
		events:   database.Collection(EventsCollection),
		episodes: database.Collection(EpisodesCollection),
		tickets:  database.Collection(TicketsCollection),
		catalog:  database.Collection(CatalogCollection),
	}
}

// EnsureIndexes creates the indexes the queries rely on.
func (s *MongoStore) EnsureIndexes(ctx context.Context) error {
	specs := []struct {
		coll  *mongo.Collection
		model mongo.IndexModel
	}{
		{s.catalog, mongo.IndexModel{
			Keys:    bson.D{{Key: "kind", Value: 1}, {Key: "key", Value: 1}},
			Options: options.Index().SetUnique(true),
		}},
		{s.episodes, mongo.IndexModel{Keys: bson.D{{Key: "production_event_id", Value: 1}}}},
		{s.events, mongo.IndexModel{Keys: bson.D{{Key: "occurred_on", Value: 1}, {Key: "department", Value: 1}}}},
		{s.tickets, mongo.IndexModel{Keys: bson.D{{Key: "status", Value: 1}, {Key: "created_at", Value: -1}}}},
	}
	for _, spec := range specs {
		if _, err := spec.coll.Indexes().CreateOne(ctx, spec.model); err != nil {
			return fmt.Errorf("create index on %s: %w", spec.coll.Name(), err)
		}
	}
	return nil
}

// WithTransaction runs fn inside one MongoDB transaction. Transient errors are
// not retried; the caller sees the failure and nothing is committed.
func (s *MongoStore) WithTransaction(ctx context.Context, fn func(ctx context.Context, tx ProductionTx) error) error {
	if s.client == nil {
		return fmt.Errorf("mongo client is nil")
	}
	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(context.Background())

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	return mongo.WithSession(ctx, session, func(sc mongo.SessionContext) error {
		if err := session.StartTransaction(txOpts); err != nil {
			return fmt.Errorf("start transaction: %w", err)
		}
		if err := fn(sc, &mongoProductionTx{store: s}); err != nil {
			_ = session.AbortTransaction(context.Background())
			return err
		}
		if err := session.CommitTransaction(sc); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		return nil
	})
}

// FindEventByID finds a production event by its ID.
func (s *MongoStore) FindEventByID(ctx context.Context, id primitive.ObjectID) (*models.ProductionEvent, error) {
	return findEvent(ctx, s.events, id)
}

// FindEvents queries production events ordered by date.
func (s *MongoStore) FindEvents(ctx context.Context, filter EventFilter) ([]models.ProductionEvent, error) {
	opts := options.Find().SetSort(bson.D{{Key: "occurred_on", Value: 1}, {Key: "created_at", Value: 1}})
	cursor, err := s.events.Find(ctx, eventQuery(filter), opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	events := []models.ProductionEvent{}
	if err := cursor.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}

// FindEpisodes returns the downtime episodes of the given events.
func (s *MongoStore) FindEpisodes(ctx context.Context, eventIDs []primitive.ObjectID) ([]models.DowntimeEpisode, error) {
	episodes := []models.DowntimeEpisode{}
	if len(eventIDs) == 0 {
		return episodes, nil
	}
	cursor, err := s.episodes.Find(ctx, bson.M{"production_event_id": bson.M{"$in": eventIDs}})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	if err := cursor.All(ctx, &episodes); err != nil {
		return nil, err
	}
	return episodes, nil
}

func eventQuery(f EventFilter) bson.M {
	query := bson.M{}
	dateRange := bson.M{}
	if !f.From.IsZero() {
		dateRange["$gte"] = models.DateOnly(f.From)
	}
	if !f.To.IsZero() {
		dateRange["$lte"] = models.DateOnly(f.To)
	}
	if len(dateRange) > 0 {
		query["occurred_on"] = dateRange
	}
	if f.Department != "" {
		query["department"] = f.Department
	}
	if f.Shift != "" {
		query["shift"] = f.Shift
	}
	if f.MachineCode != "" {
		query["machine_code"] = f.MachineCode
	}
	if f.PartNo != "" {
		query["part_no"] = f.PartNo
	}
	return query
}

func findEvent(ctx context.Context, coll *mongo.Collection, id primitive.ObjectID) (*models.ProductionEvent, error) {
	var event models.ProductionEvent
	err := coll.FindOne(ctx, bson.M{"_id": id}).Decode(&event)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &event, nil
}

// mongoProductionTx issues its operations with the session context handed to
// it, which binds them to the open transaction.
type mongoProductionTx struct {
	store *MongoStore
}

func (t *mongoProductionTx) InsertEvent(ctx context.Context, event *models.ProductionEvent) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	_, err := t.store.events.InsertOne(ctx, event)
	return err
}

func (t *mongoProductionTx) InsertEpisode(ctx context.Context, episode *models.DowntimeEpisode) error {
	if episode.ID.IsZero() {
		episode.ID = primitive.NewObjectID()
	}
	_, err := t.store.episodes.InsertOne(ctx, episode)
	return err
}

func (t *mongoProductionTx) FindEvent(ctx context.Context, id primitive.ObjectID) (*models.ProductionEvent, error) {
	return findEvent(ctx, t.store.events, id)
}

func (t *mongoProductionTx) SumEpisodeMinutes(ctx context.Context, eventID primitive.ObjectID) (int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.D{{Key: "production_event_id", Value: eventID}}}},
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total", Value: bson.D{{Key: "$sum", Value: "$duration_minutes"}}},
		}}},
	}
	cursor, err := t.store.episodes.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int `bson:"total"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].Total, nil
}

func (t *mongoProductionTx) SetDowntimeTotal(ctx context.Context, eventID primitive.ObjectID, minutes int) error {
	result, err := t.store.events.UpdateOne(ctx,
		bson.M{"_id": eventID},
		bson.M{"$set": bson.M{"downtime_minutes_total": minutes}},
	)
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return apperr.ErrNotFound
	}
	return nil
}

// Ping checks the server is reachable.
func (s *MongoStore) Ping(ctx context.Context) error {
	if s.client == nil {
		return fmt.Errorf("mongo client is nil")
	}
	return s.client.Ping(ctx, nil)
}
