package models

import "go.mongodb.org/mongo-driver/bson/primitive"

const RoleAdmin = "admin"

type User struct {
	ID     primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Email  string             `bson:"email" json:"email"`
	Name   string             `bson:"name,omitempty" json:"name,omitempty"`
	Photo  string             `bson:"photo,omitempty" json:"photo,omitempty"`
	Role   string             `bson:"role,omitempty" json:"role,omitempty"`
	Seller bool               `bson:"seller" json:"seller"`
}

func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
