package db

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertFuelCard inserts a fuel card.
func (c *mongoCollections) InsertFuelCard(ctx context.Context, card models.FuelCard) error {
	card.CreatedAt = time.Now()
	card.UpdatedAt = card.CreatedAt
	_, err := c.coll(fuelCardsCollection).InsertOne(ctx, card)
	return mapMongoError(err, "fuel card")
}

// FindFuelCardByID finds a fuel card by ID.
func (c *mongoCollections) FindFuelCardByID(ctx context.Context, id string) (*models.FuelCard, error) {
	var card models.FuelCard
	if err := c.findByID(ctx, fuelCardsCollection, "fuel card", id, &card); err != nil {
		return nil, err
	}
	return &card, nil
}

// ListFuelCards returns all cards ordered by number.
func (c *mongoCollections) ListFuelCards(ctx context.Context) ([]models.FuelCard, error) {
	cursor, err := c.coll(fuelCardsCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "number", Value: 1}}))
	if err != nil {
		return nil, err
	}
	cards := []models.FuelCard{}
	if err := cursor.All(ctx, &cards); err != nil {
		return nil, err
	}
	return cards, nil
}

// UpdateFuelCard updates a fuel card.
func (c *mongoCollections) UpdateFuelCard(ctx context.Context, id string, card models.FuelCard) error {
	existing, err := c.FindFuelCardByID(ctx, id)
	if err != nil {
		return err
	}
	card.ID = id
	card.CreatedAt = existing.CreatedAt
	card.UpdatedAt = time.Now()
	return c.replaceByID(ctx, fuelCardsCollection, "fuel card", id, card)
}

// DeleteFuelCard deletes a card without operations.
func (c *mongoCollections) DeleteFuelCard(ctx context.Context, id string) error {
	if err := c.referenced(ctx, fuelOperationsCollection, "fuel card", bson.M{"fuel_card_id": id}); err != nil {
		return err
	}
	return c.deleteByID(ctx, fuelCardsCollection, "fuel card", id)
}

// InsertFuelOperation inserts an operation. Distributions are written separately.
func (c *mongoCollections) InsertFuelOperation(ctx context.Context, op models.FuelOperation) error {
	if err := c.exists(ctx, fuelCardsCollection, "fuel operation", op.FuelCardID); err != nil {
		return err
	}
	op.CreatedAt = time.Now()
	op.UpdatedAt = op.CreatedAt
	_, err := c.coll(fuelOperationsCollection).InsertOne(ctx, op)
	return mapMongoError(err, "fuel operation")
}

// FindFuelOperationByID finds an operation by ID, without its distributions.
func (c *mongoCollections) FindFuelOperationByID(ctx context.Context, id string) (*models.FuelOperation, error) {
	var op models.FuelOperation
	if err := c.findByID(ctx, fuelOperationsCollection, "fuel operation", id, &op); err != nil {
		return nil, err
	}
	return &op, nil
}

// ListCardOperations returns the whole chain of a card.
func (c *mongoCollections) ListCardOperations(ctx context.Context, cardID string) ([]models.FuelOperation, error) {
	return c.findOperations(ctx, bson.M{"fuel_card_id": cardID},
		bson.D{{Key: "date", Value: 1}, {Key: "seq", Value: 1}})
}

// ListFuelOperations lists operations matching filter, ordered by date.
func (c *mongoCollections) ListFuelOperations(ctx context.Context, filter models.FuelOperationFilter) ([]models.FuelOperation, error) {
	query := bson.M{}
	if filter.FuelCardID != "" {
		query["fuel_card_id"] = filter.FuelCardID
	}
	if filter.Type != "" {
		query["type"] = filter.Type
	}
	if filter.VehicleID != "" {
		ids, err := c.coll(distributionsCollection).Distinct(ctx, "operation_id", bson.M{"vehicle_id": filter.VehicleID})
		if err != nil {
			return nil, err
		}
		query["_id"] = bson.M{"$in": ids}
	}
	dateRange := bson.M{}
	if filter.From != nil {
		dateRange["$gte"] = *filter.From
	}
	if filter.To != nil {
		dateRange["$lte"] = *filter.To
	}
	if len(dateRange) > 0 {
		query["date"] = dateRange
	}
	return c.findOperations(ctx, query,
		bson.D{{Key: "date", Value: 1}, {Key: "fuel_card_id", Value: 1}, {Key: "seq", Value: 1}})
}

func (c *mongoCollections) findOperations(ctx context.Context, query bson.M, sort bson.D) ([]models.FuelOperation, error) {
	cursor, err := c.coll(fuelOperationsCollection).Find(ctx, query, options.Find().SetSort(sort))
	if err != nil {
		return nil, err
	}
	ops := []models.FuelOperation{}
	if err := cursor.All(ctx, &ops); err != nil {
		return nil, err
	}
	return ops, nil
}

// UpdateFuelOperation rewrites the stored fields of an operation.
func (c *mongoCollections) UpdateFuelOperation(ctx context.Context, id string, op models.FuelOperation) error {
	if err := c.exists(ctx, fuelCardsCollection, "fuel operation", op.FuelCardID); err != nil {
		return err
	}
	res, err := c.coll(fuelOperationsCollection).UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"fuel_card_id":           op.FuelCardID,
		"type":                   op.Type,
		"date":                   op.Date,
		"seq":                    op.Seq,
		"unit_price":             op.UnitPrice,
		"opening_balance":        op.OpeningBalance,
		"amount":                 op.Amount,
		"amount_liters":          op.AmountLiters,
		"closing_balance":        op.ClosingBalance,
		"closing_balance_liters": op.ClosingBalanceLiters,
		"updated_at":             time.Now(),
	}})
	if err != nil {
		return mapMongoError(err, "fuel operation")
	}
	if res.MatchedCount == 0 {
		return models.NotFound("fuel operation", id)
	}
	return nil
}

// DeleteFuelOperation deletes an operation and its distributions.
func (c *mongoCollections) DeleteFuelOperation(ctx context.Context, id string) error {
	if err := c.deleteByID(ctx, fuelOperationsCollection, "fuel operation", id); err != nil {
		return err
	}
	_, err := c.coll(distributionsCollection).DeleteMany(ctx, bson.M{"operation_id": id})
	return err
}

// ReplaceDistributions swaps the distribution set of an operation.
func (c *mongoCollections) ReplaceDistributions(ctx context.Context, operationID string, dists []models.FuelDistribution) error {
	coll := c.coll(distributionsCollection)
	if _, err := coll.DeleteMany(ctx, bson.M{"operation_id": operationID}); err != nil {
		return err
	}
	if len(dists) == 0 {
		return nil
	}
	now := time.Now()
	docs := make([]any, 0, len(dists))
	for _, d := range dists {
		switch {
		case d.VehicleID != "":
			if err := c.exists(ctx, vehiclesCollection, "fuel distribution", d.VehicleID); err != nil {
				return err
			}
		case d.ReservoirID != "":
			if err := c.exists(ctx, reservoirsCollection, "fuel distribution", d.ReservoirID); err != nil {
				return err
			}
		}
		d.OperationID = operationID
		d.CreatedAt = now
		docs = append(docs, d)
	}
	_, err := coll.InsertMany(ctx, docs)
	return mapMongoError(err, "fuel distribution")
}

// ListDistributions returns the distributions of an operation.
func (c *mongoCollections) ListDistributions(ctx context.Context, operationID string) ([]models.FuelDistribution, error) {
	cursor, err := c.coll(distributionsCollection).Find(ctx, bson.M{"operation_id": operationID},
		options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}))
	if err != nil {
		return nil, err
	}
	dists := []models.FuelDistribution{}
	if err := cursor.All(ctx, &dists); err != nil {
		return nil, err
	}
	return dists, nil
}

// ReservoirStock sums every liter distributed into a reservoir.
func (c *mongoCollections) ReservoirStock(ctx context.Context, reservoirID string) (decimal.Decimal, error) {
	cursor, err := c.coll(distributionsCollection).Aggregate(ctx, mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"reservoir_id": reservoirID}}},
		{{Key: "$group", Value: bson.M{"_id": nil, "total": bson.M{"$sum": "$liters"}}}},
	})
	if err != nil {
		return decimal.Zero, err
	}
	var result []struct {
		Total decimal.Decimal `bson:"total"`
	}
	if err := cursor.All(ctx, &result); err != nil {
		return decimal.Zero, err
	}
	if len(result) == 0 {
		return decimal.Zero, nil
	}
	return result[0].Total, nil
}
