package repository

import (
	"context"
	"fmt"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"podreseller_back_end/internal/models"
)

type ProductRepository struct {
	coll *mongo.Collection
}

func NewProductRepository(coll *mongo.Collection) *ProductRepository {
	return &ProductRepository{coll: coll}
}

func (r *ProductRepository) All(ctx context.Context) ([]models.Product, error) {
	return r.find(ctx, bson.M{})
}

func (r *ProductRepository) ByCategory(ctx context.Context, category string) ([]models.Product, error) {
	return r.find(ctx, bson.M{"category": category})
}

func (r *ProductRepository) BySeller(ctx context.Context, sellerName string) ([]models.Product, error) {
	return r.find(ctx, bson.M{"sellerName": sellerName})
}

// ByID returns zero or one product.
func (r *ProductRepository) ByID(ctx context.Context, id primitive.ObjectID) ([]models.Product, error) {
	return r.find(ctx, bson.M{"_id": id})
}

// Search is the case-insensitive fallback used when no search index is available.
func (r *ProductRepository) Search(ctx context.Context, query string) ([]models.Product, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(query), Options: "i"}
	return r.find(ctx, bson.M{"$or": []bson.M{
		{"name": pattern},
		{"description": pattern},
		{"category": pattern},
		{"sellerName": pattern},
	}})
}

func (r *ProductRepository) Insert(ctx context.Context, p *models.Product) (models.InsertResult, error) {
	p.ID = primitive.NilObjectID
	res, err := r.coll.InsertOne(ctx, p)
	if err != nil {
		return models.InsertResult{}, fmt.Errorf("insert product: %w", err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return insertResult(res), nil
}

func (r *ProductRepository) Update(ctx context.Context, id primitive.ObjectID, fields map[string]any) (models.UpdateResult, error) {
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": fields})
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("update product %s: %w", id.Hex(), err)
	}
	return updateResult(res), nil
}

func (r *ProductRepository) Delete(ctx context.Context, id primitive.ObjectID) (models.DeleteResult, error) {
	res, err := r.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return models.DeleteResult{}, fmt.Errorf("delete product %s: %w", id.Hex(), err)
	}
	return deleteResult(res), nil
}

func (r *ProductRepository) find(ctx context.Context, filter bson.M) ([]models.Product, error) {
	cursor, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := []models.Product{}
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("decode products: %w", err)
	}
	return products, nil
}
