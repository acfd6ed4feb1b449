package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// CartItem is one product placed in a shopper's cart. The product fields are
// copied at add time.
type CartItem struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email      string             `bson:"email" json:"email"`
	ProductID  string             `bson:"productId,omitempty" json:"productId,omitempty"`
	Name       string             `bson:"name,omitempty" json:"name,omitempty"`
	Category   string             `bson:"category,omitempty" json:"category,omitempty"`
	SellerName string             `bson:"sellerName,omitempty" json:"sellerName,omitempty"`
	Price      float64            `bson:"price,omitempty" json:"price,omitempty"`
	Image      string             `bson:"image,omitempty" json:"image,omitempty"`
}
