package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"podreseller_back_end/internal/models"
)

// ErrUserExists is returned by Insert when the email is already registered.
var ErrUserExists = errors.New("user already exists")

type UserRepository struct {
	coll *mongo.Collection
}

func NewUserRepository(coll *mongo.Collection) *UserRepository {
	return &UserRepository{coll: coll}
}

func (r *UserRepository) All(ctx context.Context) ([]models.User, error) {
	cursor, err := r.coll.Find(ctx, bson.M{})
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("decode users: %w", err)
	}
	return users, nil
}

// FindByEmail returns nil without error when no user has that email.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := r.coll.FindOne(ctx, bson.M{"email": email}).Decode(&u)
	if isNoDocuments(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

// Insert relies on the unique email index: a duplicate key is reported as
// ErrUserExists, so two concurrent sign-ins cannot both create the user.
func (r *UserRepository) Insert(ctx context.Context, u *models.User) (models.InsertResult, error) {
	u.ID = primitive.NilObjectID
	res, err := r.coll.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return models.InsertResult{}, ErrUserExists
	}
	if err != nil {
		return models.InsertResult{}, fmt.Errorf("insert user: %w", err)
	}
	return insertResult(res), nil
}

// Delete removes the user and returns the email it had, empty when nothing matched.
func (r *UserRepository) Delete(ctx context.Context, id primitive.ObjectID) (models.DeleteResult, string, error) {
	var removed models.User
	err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&removed)
	if isNoDocuments(err) {
		return models.DeleteResult{Acknowledged: true}, "", nil
	}
	if err != nil {
		return models.DeleteResult{}, "", fmt.Errorf("delete user %s: %w", id.Hex(), err)
	}
	return models.DeleteResult{Acknowledged: true, DeletedCount: 1}, removed.Email, nil
}

// PromoteAdmin sets role=admin and returns the promoted user's email.
func (r *UserRepository) PromoteAdmin(ctx context.Context, id primitive.ObjectID) (models.UpdateResult, string, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var before models.User
	err := r.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": bson.M{"role": models.RoleAdmin}},
		opts,
	).Decode(&before)
	if isNoDocuments(err) {
		return models.UpdateResult{Acknowledged: true}, "", nil
	}
	if err != nil {
		return models.UpdateResult{}, "", fmt.Errorf("promote user %s: %w", id.Hex(), err)
	}

	res := models.UpdateResult{Acknowledged: true, MatchedCount: 1}
	if !before.IsAdmin() {
		res.ModifiedCount = 1
	}
	return res, before.Email, nil
}
