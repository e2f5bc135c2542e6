package db

import (
	"context"
	"errors"

	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// FindCatalogEntry finds a catalog entry by kind and key, active or not.
func (s *MongoStore) FindCatalogEntry(ctx context.Context, kind models.CatalogKind, key string) (*models.CatalogEntry, error) {
	var entry models.CatalogEntry
	err := s.catalog.FindOne(ctx, bson.M{"kind": kind, "key": key}).Decode(&entry)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &entry, nil
}

// UpsertCatalogEntry inserts or replaces the entry with the same kind and key.
// The entry's ID is filled in with the stored document's ID.
func (s *MongoStore) UpsertCatalogEntry(ctx context.Context, entry *models.CatalogEntry) error {
	filter := bson.M{"kind": entry.Kind, "key": entry.Key}
	update := bson.M{"$set": bson.M{
		"label":              entry.Label,
		"department":         entry.Department,
		"category":           entry.Category,
		"std_cycle_time_sec": entry.StdCycleTimeSec,
		"active":             entry.Active,
	}}

	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	var stored models.CatalogEntry
	if err := s.catalog.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return err
	}
	entry.ID = stored.ID
	return nil
}
