package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	PaymentSucceeded = "succeeded"
	PaymentFailed    = "failed"
)

type Payment struct {
	ID            primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email         string             `bson:"email" json:"email"`
	Amount        float64            `bson:"amount" json:"amount"`
	CartIDs       []string           `bson:"cartIds" json:"cartIds"`
	TransactionID string             `bson:"transactionId,omitempty" json:"transactionId,omitempty"`
	Date          *time.Time         `bson:"date,omitempty" json:"date,omitempty"`
	Status        string             `bson:"status,omitempty" json:"status,omitempty"`
}

// CheckoutResult is what recording a payment returns to the client.
type CheckoutResult struct {
	PaymentResult  InsertResult `json:"paymentResult"`
	DeleteResult   DeleteResult `json:"deleteResult"`
	CleanupPending bool         `json:"cleanupPending,omitempty"`
}

// CleanupJob records cart items that still have to be removed after their
// payment was stored.
type CleanupJob struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	PaymentID primitive.ObjectID `bson:"paymentId" json:"paymentId"`
	CartIDs   []string           `bson:"cartIds" json:"cartIds"`
	Attempts  int                `bson:"attempts" json:"attempts"`
	LastError string             `bson:"lastError,omitempty" json:"lastError,omitempty"`
	CreatedAt time.Time          `bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updatedAt" json:"updatedAt"`
}
