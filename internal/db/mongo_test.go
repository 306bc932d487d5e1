package db

import (
	"bytes"
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsonrw"
)

func TestConnectMongo_BadURI(t *testing.T) {
	client, err := ConnectMongo(context.Background(), "mongodb://bad:uri")
	if err == nil {
		t.Error("expected error for bad URI, got nil")
	}
	if client != nil {
		t.Error("expected nil client on error")
	}
}

func TestDecimalCodec_RoundTrip(t *testing.T) {
	reg := NewRegistry()
	in := models.FuelOperation{
		ID:             "op1",
		UnitPrice:      decimal.RequireFromString("25.175"),
		Amount:         decimal.RequireFromString("100.10"),
		ClosingBalance: decimal.RequireFromString("-3.5"),
	}

	buf := new(bytes.Buffer)
	vw, err := bsonrw.NewBSONValueWriter(buf)
	require.NoError(t, err)
	enc, err := bson.NewEncoder(vw)
	require.NoError(t, err)
	require.NoError(t, enc.SetRegistry(reg))
	require.NoError(t, enc.Encode(in))

	raw := bson.Raw(buf.Bytes())
	assert.Equal(t, bson.TypeDecimal128, raw.Lookup("unit_price").Type)

	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(buf.Bytes()))
	require.NoError(t, err)
	require.NoError(t, dec.SetRegistry(reg))
	var out models.FuelOperation
	require.NoError(t, dec.Decode(&out))

	assert.True(t, out.UnitPrice.Equal(in.UnitPrice), out.UnitPrice.String())
	assert.True(t, out.Amount.Equal(in.Amount), out.Amount.String())
	assert.True(t, out.ClosingBalance.Equal(in.ClosingBalance), out.ClosingBalance.String())
}

func TestDecimalCodec_LargestAcceptedOperation(t *testing.T) {
	reg := NewRegistry()
	op := models.FuelOperation{
		ID:        "op1",
		Type:      models.OperationCarga,
		UnitPrice: decimal.RequireFromString("0.000007"),
		Amount:    models.MaxAmount.Sub(decimal.RequireFromString("0.0001")),
	}
	op.AmountLiters = op.Amount.DivRound(op.UnitPrice, models.LitersScale)
	op.ClosingBalance = op.Amount
	op.ClosingBalanceLiters = op.AmountLiters

	buf := new(bytes.Buffer)
	vw, err := bsonrw.NewBSONValueWriter(buf)
	require.NoError(t, err)
	enc, err := bson.NewEncoder(vw)
	require.NoError(t, err)
	require.NoError(t, enc.SetRegistry(reg))
	require.NoError(t, enc.Encode(op))

	dec, err := bson.NewDecoder(bsonrw.NewBSONDocumentReader(buf.Bytes()))
	require.NoError(t, err)
	require.NoError(t, dec.SetRegistry(reg))
	var out models.FuelOperation
	require.NoError(t, dec.Decode(&out))

	assert.True(t, out.Amount.Equal(op.Amount), out.Amount.String())
	assert.True(t, out.AmountLiters.Equal(op.AmountLiters), out.AmountLiters.String())
}

func TestDuplicateIndex(t *testing.T) {
	msg := `E11000 duplicate key error collection: fleet.fuel_cards index: number dup key: { number: "1" }`
	assert.Equal(t, "number", duplicateIndex(msg))
	assert.Equal(t, "key", duplicateIndex("something else"))
}

// newIntegrationStore connects to MONGO_URI and returns a store on a throwaway
// database. The test is skipped when MongoDB is not reachable.
func newIntegrationStore(t *testing.T) *MongoStore {
	t.Helper()
	uri := os.Getenv("MONGO_URI")
	if uri == "" || uri == "uri" {
		t.Skip("MONGO_URI not set or invalid, skipping integration test")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	dbName := "test_fleet_" + uuid.NewString()[:8]
	s, err := NewMongoStore(ctx, uri, dbName)
	if err != nil {
		t.Skipf("failed to connect: %v, skipping integration test", err)
	}
	t.Cleanup(func() {
		s.db.Drop(context.Background())
		s.Close(context.Background())
	})
	return s
}

func TestMongoStore_FuelCardConflictAndRestrict_Integration(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	card := models.FuelCard{ID: uuid.NewString(), Number: "9200-0001", UnitPrice: decimal.NewFromInt(2), Currency: "CUP"}
	require.NoError(t, s.InsertFuelCard(ctx, card))

	dup := card
	dup.ID = uuid.NewString()
	var conflict *models.ConflictError
	require.ErrorAs(t, s.InsertFuelCard(ctx, dup), &conflict)
	assert.Equal(t, "number", conflict.Field)

	found, err := s.FindFuelCardByID(ctx, card.ID)
	require.NoError(t, err)
	assert.True(t, found.UnitPrice.Equal(decimal.NewFromInt(2)))

	require.NoError(t, s.InsertFuelOperation(ctx, models.FuelOperation{
		ID: uuid.NewString(), FuelCardID: card.ID, Type: models.OperationCarga, Date: time.Now(), Seq: 1,
		UnitPrice: decimal.NewFromInt(2), Amount: decimal.NewFromInt(100),
	}))
	assert.ErrorIs(t, s.DeleteFuelCard(ctx, card.ID), models.ErrConflict)
}

func TestMongoStore_ReservoirStock_Integration(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	card := models.FuelCard{ID: uuid.NewString(), Number: "1", UnitPrice: decimal.NewFromInt(2), Currency: "CUP"}
	require.NoError(t, s.InsertFuelCard(ctx, card))
	reservoir := models.Reservoir{ID: uuid.NewString(), Name: "Tank A"}
	require.NoError(t, s.InsertReservoir(ctx, reservoir))
	opID := uuid.NewString()
	require.NoError(t, s.InsertFuelOperation(ctx, models.FuelOperation{
		ID: opID, FuelCardID: card.ID, Type: models.OperationConsumo, Date: time.Now(), Seq: 1,
		UnitPrice: decimal.NewFromInt(2),
	}))
	require.NoError(t, s.ReplaceDistributions(ctx, opID, []models.FuelDistribution{
		{ID: uuid.NewString(), ReservoirID: reservoir.ID, Liters: decimal.RequireFromString("12.5")},
		{ID: uuid.NewString(), ReservoirID: reservoir.ID, Liters: decimal.RequireFromString("7.25")},
	}))

	stock, err := s.ReservoirStock(ctx, reservoir.ID)
	require.NoError(t, err)
	assert.True(t, stock.Equal(decimal.RequireFromString("19.75")), stock.String())

	require.NoError(t, s.DeleteFuelOperation(ctx, opID))
	dists, err := s.ListDistributions(ctx, opID)
	require.NoError(t, err)
	assert.Empty(t, dists)
}

func TestMongoStore_Notifications_Integration(t *testing.T) {
	s := newIntegrationStore(t)
	ctx := context.Background()

	n := models.Notification{ID: uuid.NewString(), UserID: "u1", Type: models.NotificationWarning, Link: "/fleet/drivers/d1"}
	require.NoError(t, s.InsertNotification(ctx, n))
	dup := n
	dup.ID = uuid.NewString()
	assert.ErrorIs(t, s.InsertNotification(ctx, dup), models.ErrConflict)

	assert.ErrorIs(t, s.MarkNotificationRead(ctx, "u2", n.ID), models.ErrNotFound)
	require.NoError(t, s.MarkNotificationRead(ctx, "u1", n.ID))
	count, err := s.CountUnread(ctx, "u1")
	require.NoError(t, err)
	assert.Zero(t, count)
}
