package repository

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"podreseller_back_end/internal/apperr"
)

func TestParseID(t *testing.T) {
	oid := primitive.NewObjectID()

	got, err := ParseID(oid.Hex())
	require.NoError(t, err)
	assert.Equal(t, oid, got)

	_, err = ParseID("boxed-pods")
	assert.ErrorIs(t, err, apperr.ErrBadRequest)
}

func TestParseIDsStopsOnFirstInvalid(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()

	ids, err := ParseIDs([]string{a.Hex(), b.Hex()})
	require.NoError(t, err)
	assert.Equal(t, []primitive.ObjectID{a, b}, ids)

	_, err = ParseIDs([]string{a.Hex(), "nope"})
	assert.True(t, errors.Is(err, ErrInvalidID))
}

func TestResultConversions(t *testing.T) {
	oid := primitive.NewObjectID()

	ins := insertResult(&mongo.InsertOneResult{InsertedID: oid})
	assert.True(t, ins.Acknowledged)
	assert.Equal(t, oid, ins.InsertedID)

	upd := updateResult(&mongo.UpdateResult{MatchedCount: 1, ModifiedCount: 1})
	assert.Equal(t, int64(1), upd.MatchedCount)
	assert.Equal(t, int64(1), upd.ModifiedCount)

	del := deleteResult(&mongo.DeleteResult{DeletedCount: 3})
	assert.Equal(t, int64(3), del.DeletedCount)
}
