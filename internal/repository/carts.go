package repository

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"podreseller_back_end/internal/models"
)

type CartRepository struct {
	coll *mongo.Collection
}

func NewCartRepository(coll *mongo.Collection) *CartRepository {
	return &CartRepository{coll: coll}
}

func (r *CartRepository) Insert(ctx context.Context, item *models.CartItem) (models.InsertResult, error) {
	item.ID = primitive.NilObjectID
	res, err := r.coll.InsertOne(ctx, item)
	if err != nil {
		return models.InsertResult{}, fmt.Errorf("insert cart item: %w", err)
	}
	return insertResult(res), nil
}

func (r *CartRepository) ByEmail(ctx context.Context, email string) ([]models.CartItem, error) {
	cursor, err := r.coll.Find(ctx, bson.M{"email": email})
	if err != nil {
		return nil, fmt.Errorf("find cart items: %w", err)
	}
	defer cursor.Close(ctx)

	items := []models.CartItem{}
	if err := cursor.All(ctx, &items); err != nil {
		return nil, fmt.Errorf("decode cart items: %w", err)
	}
	return items, nil
}

// Delete removes the item and returns its owner's email, empty when nothing matched.
func (r *CartRepository) Delete(ctx context.Context, id primitive.ObjectID) (models.DeleteResult, string, error) {
	var removed models.CartItem
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&removed)
	if isNoDocuments(err) {
		return models.DeleteResult{Acknowledged: true}, "", nil
	}
	if err != nil {
		return models.DeleteResult{}, "", fmt.Errorf("delete cart item %s: %w", id.Hex(), err)
	}
	return models.DeleteResult{Acknowledged: true, DeletedCount: 1}, removed.Email, nil
}
