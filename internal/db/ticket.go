package db

import (
	"context"
	"errors"

	"github.com/ukydev/factory-log/internal/apperr"
	"github.com/ukydev/factory-log/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertTicket inserts a new maintenance ticket into the database
func (s *MongoStore) InsertTicket(ctx context.Context, ticket *models.MaintenanceTicket) error {
	if ticket.ID.IsZero() {
		ticket.ID = primitive.NewObjectID()
	}
	_, err := s.tickets.InsertOne(ctx, ticket)
	return err
}

// FindTicketByID finds a ticket by its ID
func (s *MongoStore) FindTicketByID(ctx context.Context, id primitive.ObjectID) (*models.MaintenanceTicket, error) {
	var ticket models.MaintenanceTicket
	err := s.tickets.FindOne(ctx, bson.M{"_id": id}).Decode(&ticket)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, apperr.ErrNotFound
		}
		return nil, err
	}
	return &ticket, nil
}

// FindTickets lists tickets newest first
func (s *MongoStore) FindTickets(ctx context.Context, filter models.TicketFilter) ([]models.MaintenanceTicket, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.Department != "" {
		query["department"] = filter.Department
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.tickets.Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	tickets := []models.MaintenanceTicket{}
	if err := cursor.All(ctx, &tickets); err != nil {
		return nil, err
	}
	return tickets, nil
}

// TransitionTicket updates the ticket only while its status is still from.
// The status match in the filter makes the write a compare-and-set.
func (s *MongoStore) TransitionTicket(ctx context.Context, id primitive.ObjectID, from models.TicketStatus, t models.TicketTransition) (bool, error) {
	result, err := s.tickets.UpdateOne(ctx,
		bson.M{"_id": id, "status": from},
		bson.M{"$set": transitionFields(t)},
	)
	if err != nil {
		return false, err
	}
	return result.MatchedCount == 1, nil
}

// CountTicketsByStatus counts tickets per status
func (s *MongoStore) CountTicketsByStatus(ctx context.Context) (map[models.TicketStatus]int, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}
	cursor, err := s.tickets.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status models.TicketStatus `bson:"_id"`
		Count  int                 `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[models.TicketStatus]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func transitionFields(t models.TicketTransition) bson.M {
	fields := bson.M{"status": t.To}
	if t.Assignee != "" {
		fields["assignee"] = t.Assignee
	}
	if t.AssignedBy != "" {
		fields["assigned_by"] = t.AssignedBy
	}
	if t.AssignedAt != nil {
		fields["assigned_at"] = *t.AssignedAt
	}
	if t.SparePartUsed != "" {
		fields["spare_part_used"] = t.SparePartUsed
	}
	if t.CompletedBy != "" {
		fields["completed_by"] = t.CompletedBy
	}
	if t.CompletedAt != nil {
		fields["completed_at"] = *t.CompletedAt
	}
	return fields
}
