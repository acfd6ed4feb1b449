package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"podreseller_back_end/internal/database"
	"podreseller_back_end/internal/logger"
	"podreseller_back_end/internal/models"
)

const cleanupBatchSize = 100

// PaymentRepository records payments and consumes the paid cart items.
type PaymentRepository struct {
	client       *mongo.Client
	payments     *mongo.Collection
	carts        *mongo.Collection
	cleanups     *mongo.Collection
	transactions bool
	now          func() time.Time
}

// NewPaymentRepository uses multi-document transactions for checkout when
// transactions is true; the deployment must then be a replica set.
func NewPaymentRepository(m *database.Mongo, transactions bool) *PaymentRepository {
	return &PaymentRepository{
		client:       m.Client,
		payments:     m.Collection(database.PaymentsCollection),
		carts:        m.Collection(database.CartsCollection),
		cleanups:     m.Collection(database.CleanupsCollection),
		transactions: transactions,
		now:          time.Now,
	}
}

func (r *PaymentRepository) ByEmail(ctx context.Context, email string) ([]models.Payment, error) {
	cursor, err := r.payments.Find(ctx, bson.M{"email": email})
	if err != nil {
		return nil, fmt.Errorf("find payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []models.Payment{}
	if err := cursor.All(ctx, &payments); err != nil {
		return nil, fmt.Errorf("decode payments: %w", err)
	}
	return payments, nil
}

// Checkout stores the payment and removes its cart items.
func (r *PaymentRepository) Checkout(ctx context.Context, p *models.Payment) (models.CheckoutResult, error) {
	ids, err := ParseIDs(p.CartIDs)
	if err != nil {
		return models.CheckoutResult{}, err
	}

	p.ID = primitive.NilObjectID
	if p.Date == nil {
		now := r.now().UTC()
		p.Date = &now
	}

	if r.transactions {
		return r.checkoutInTransaction(ctx, p, ids)
	}
	return r.checkoutWithCleanup(ctx, p, ids)
}

func (r *PaymentRepository) checkoutInTransaction(ctx context.Context, p *models.Payment, ids []primitive.ObjectID) (models.CheckoutResult, error) {
	session, err := r.client.StartSession()
	if err != nil {
		return models.CheckoutResult{}, fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	out, err := session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		ins, err := r.payments.InsertOne(sc, p)
		if err != nil {
			return nil, fmt.Errorf("insert payment: %w", err)
		}
		del, err := r.carts.DeleteMany(sc, bson.M{"_id": bson.M{"$in": ids}})
		if err != nil {
			return nil, fmt.Errorf("delete paid cart items: %w", err)
		}
		return models.CheckoutResult{
			PaymentResult: insertResult(ins),
			DeleteResult:  deleteResult(del),
		}, nil
	})
	if err != nil {
		return models.CheckoutResult{}, fmt.Errorf("checkout transaction: %w", err)
	}

	res := out.(models.CheckoutResult)
	if oid, ok := res.PaymentResult.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	return res, nil
}

// checkoutWithCleanup runs both writes in sequence. If the cart delete fails
// after the payment is stored, a cleanup job is queued for the worker.
func (r *PaymentRepository) checkoutWithCleanup(ctx context.Context, p *models.Payment, ids []primitive.ObjectID) (models.CheckoutResult, error) {
	ins, err := r.payments.InsertOne(ctx, p)
	if err != nil {
		return models.CheckoutResult{}, fmt.Errorf("insert payment: %w", err)
	}
	if oid, ok := ins.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid
	}
	res := models.CheckoutResult{PaymentResult: insertResult(ins)}

	del, delErr := r.carts.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if delErr == nil {
		res.DeleteResult = deleteResult(del)
		return res, nil
	}

	log := logger.WithCtx(ctx)
	log.Warn("cart cleanup deferred", "payment_id", p.ID.Hex(), "cart_ids", p.CartIDs, "error", delErr)

	res.DeleteResult = models.DeleteResult{Acknowledged: false}
	res.CleanupPending = true

	job := models.CleanupJob{
		PaymentID: p.ID,
		CartIDs:   p.CartIDs,
		LastError: delErr.Error(),
		CreatedAt: r.now().UTC(),
		UpdatedAt: r.now().UTC(),
	}
	if _, err := r.cleanups.InsertOne(ctx, job); err != nil {
		log.Error("orphaned cart items need manual reconciliation",
			"payment_id", p.ID.Hex(), "cart_ids", p.CartIDs, "error", err)
	}
	return res, nil
}

// SetStatusByTransaction updates the payment recorded for a gateway transaction.
func (r *PaymentRepository) SetStatusByTransaction(ctx context.Context, transactionID, status string) (models.UpdateResult, error) {
	if transactionID == "" {
		return models.UpdateResult{}, errors.New("empty transaction id")
	}
	res, err := r.payments.UpdateOne(ctx,
		bson.M{"transactionId": transactionID},
		bson.M{"$set": bson.M{"status": status}},
	)
	if err != nil {
		return models.UpdateResult{}, fmt.Errorf("update payment status: %w", err)
	}
	return updateResult(res), nil
}

// =============================================
// CLEANUP JOBS
// =============================================

// PendingCleanups returns the oldest queued cleanup jobs first.
func (r *PaymentRepository) PendingCleanups(ctx context.Context) ([]models.CleanupJob, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(cleanupBatchSize)

	cursor, err := r.cleanups.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find cleanup jobs: %w", err)
	}
	defer cursor.Close(ctx)

	jobs := []models.CleanupJob{}
	if err := cursor.All(ctx, &jobs); err != nil {
		return nil, fmt.Errorf("decode cleanup jobs: %w", err)
	}
	return jobs, nil
}

func (r *PaymentRepository) DeleteCarts(ctx context.Context, cartIDs []string) (models.DeleteResult, error) {
	ids, err := ParseIDs(cartIDs)
	if err != nil {
		return models.DeleteResult{}, err
	}
	res, err := r.carts.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return models.DeleteResult{}, fmt.Errorf("delete cart items: %w", err)
	}
	return deleteResult(res), nil
}

func (r *PaymentRepository) CompleteCleanup(ctx context.Context, jobID primitive.ObjectID) error {
	if _, err := r.cleanups.DeleteOne(ctx, bson.M{"_id": jobID}); err != nil {
		return fmt.Errorf("complete cleanup %s: %w", jobID.Hex(), err)
	}
	return nil
}

func (r *PaymentRepository) FailCleanup(ctx context.Context, jobID primitive.ObjectID, cause error) error {
	_, err := r.cleanups.UpdateOne(ctx,
		bson.M{"_id": jobID},
		bson.M{
			"$inc": bson.M{"attempts": 1},
			"$set": bson.M{"lastError": cause.Error(), "updatedAt": r.now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("record cleanup failure %s: %w", jobID.Hex(), err)
	}
	return nil
}
