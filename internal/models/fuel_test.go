package models

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOperationType(t *testing.T) {
	typ, err := ParseOperationType("Carga")
	require.NoError(t, err)
	assert.Equal(t, OperationCarga, typ)

	typ, err = ParseOperationType(" Consumo ")
	require.NoError(t, err)
	assert.Equal(t, OperationConsumo, typ)

	for _, bad := range []string{"", "carga", "Transfer"} {
		_, err := ParseOperationType(bad)
		assert.ErrorIs(t, err, ErrInvalidOperationType, bad)
	}
}

func TestFuelOperation_Before(t *testing.T) {
	day := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	a := &FuelOperation{Date: day, Seq: 1}
	b := &FuelOperation{Date: day, Seq: 2}
	c := &FuelOperation{Date: day.AddDate(0, 0, -1), Seq: 9}

	assert.True(t, a.Before(b))
	assert.False(t, b.Before(a))
	assert.True(t, c.Before(a))
}

func TestFuelCard_Validate(t *testing.T) {
	card := FuelCard{Number: " 9200-0001 ", UnitPrice: decimal.NewFromInt(2)}
	require.NoError(t, card.Validate())
	assert.Equal(t, "9200-0001", card.Number)
	assert.Equal(t, "CUP", card.Currency)

	card = FuelCard{Number: "x", UnitPrice: decimal.Zero}
	var fe *FieldError
	require.ErrorAs(t, card.Validate(), &fe)
	assert.Equal(t, "unit_price", fe.Field)

	for _, price := range []string{"0.0000001", "1000000000001"} {
		card = FuelCard{Number: "x", UnitPrice: decimal.RequireFromString(price)}
		require.ErrorAs(t, card.Validate(), &fe, price)
		assert.Equal(t, "unit_price", fe.Field)
	}
	card = FuelCard{Number: "x", UnitPrice: decimal.RequireFromString("25.175")}
	assert.NoError(t, card.Validate())
}

func TestFuelOperationFilter(t *testing.T) {
	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 1, 0)

	assert.NoError(t, FuelOperationFilter{From: &from, To: &to}.Validate())
	assert.ErrorIs(t, FuelOperationFilter{From: &to, To: &from}.Validate(), ErrValidation)
	assert.ErrorIs(t, FuelOperationFilter{Type: "Other"}.Validate(), ErrInvalidOperationType)

}

func TestErrorTaxonomy(t *testing.T) {
	assert.True(t, errors.Is(ErrMissingDestination, ErrValidation))
	assert.True(t, errors.Is(ErrInvalidDestination, ErrValidation))
	assert.False(t, errors.Is(ErrMissingDestination, ErrInvalidDestination))

	err := NotFound("fuel card", "abc")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "fuel card")

	over := &OverAllocationError{Requested: decimal.NewFromInt(20), Available: decimal.NewFromInt(15)}
	assert.ErrorIs(t, over, ErrOverAllocation)
	assert.True(t, IsClientError(over))
	assert.False(t, IsClientError(errors.New("disk full")))

	assert.ErrorIs(t, &ConflictError{Entity: "fuel card", Field: "number"}, ErrConflict)
}

func TestVehicle_ValidateDefaultsStatus(t *testing.T) {
	v := Vehicle{Plate: " B123456 "}
	require.NoError(t, v.Validate())
	assert.Equal(t, VehicleStatusActive, v.Status)
	assert.Equal(t, "B123456", v.Plate)
	assert.Len(t, v.Documents(), 3)

	v.Status = "broken"
	assert.ErrorIs(t, v.Validate(), ErrValidation)
}
