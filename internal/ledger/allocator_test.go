package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

func consumo(liters string) *models.FuelOperation {
	return &models.FuelOperation{ID: "op1", Type: models.OperationConsumo, AmountLiters: dec(liters)}
}

func TestAllocate_OverAllocation(t *testing.T) {
	_, err := Allocate(consumo("15"), []models.Destination{
		{VehicleID: "v1", Liters: dec("12")},
		{ReservoirID: "r1", Liters: dec("8")},
	})

	var over *models.OverAllocationError
	require.ErrorAs(t, err, &over)
	assert.ErrorIs(t, err, models.ErrOverAllocation)
	assert.True(t, over.Requested.Equal(dec("20")))
	assert.True(t, over.Available.Equal(dec("15")))
}

func TestAllocate_SplitsAcrossDestinations(t *testing.T) {
	dists, err := Allocate(consumo("15"), []models.Destination{
		{VehicleID: "v1", Liters: dec("10")},
		{ReservoirID: "r1", Liters: dec("5")},
	})
	require.NoError(t, err)
	require.Len(t, dists, 2)

	assert.Equal(t, "op1", dists[0].OperationID)
	assert.Equal(t, "v1", dists[0].VehicleID)
	assert.Equal(t, "r1", dists[1].ReservoirID)
	assert.NotEqual(t, dists[0].ID, dists[1].ID)
	assert.True(t, dists[0].Liters.Add(dists[1].Liters).Equal(dec("15")))
}

func TestAllocate_UnderAllocationIsAllowed(t *testing.T) {
	dists, err := Allocate(consumo("15"), []models.Destination{{VehicleID: "v1", Liters: dec("3")}})
	require.NoError(t, err)
	assert.Len(t, dists, 1)
}

func TestAllocate_DestinationRules(t *testing.T) {
	tests := []struct {
		name  string
		op    *models.FuelOperation
		dests []models.Destination
		want  error
	}{
		{"consumo without destinations", consumo("15"), nil, models.ErrMissingDestination},
		{"carga with destination", &models.FuelOperation{Type: models.OperationCarga},
			[]models.Destination{{VehicleID: "v1", Liters: dec("1")}}, models.ErrInvalidDestination},
		{"both vehicle and reservoir", consumo("15"),
			[]models.Destination{{VehicleID: "v1", ReservoirID: "r1", Liters: dec("1")}}, models.ErrInvalidDestination},
		{"neither vehicle nor reservoir", consumo("15"),
			[]models.Destination{{Liters: dec("1")}}, models.ErrInvalidDestination},
		{"zero liters", consumo("15"),
			[]models.Destination{{VehicleID: "v1", Liters: dec("0")}}, models.ErrInvalidDestination},
		{"liters too precise", consumo("15"),
			[]models.Destination{{VehicleID: "v1", Liters: dec("1.0000001")}}, models.ErrInvalidDestination},
		{"duplicate vehicle", consumo("15"),
			[]models.Destination{{VehicleID: "v1", Liters: dec("1")}, {VehicleID: "v1", Liters: dec("2")}}, models.ErrInvalidDestination},
		{"unknown type", &models.FuelOperation{Type: "Transfer"}, nil, models.ErrInvalidOperationType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Allocate(tt.op, tt.dests)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestAllocate_DestinationErrorsAreValidationErrors(t *testing.T) {
	_, err := Allocate(consumo("15"), nil)
	assert.ErrorIs(t, err, models.ErrValidation)

	dists, err := Allocate(&models.FuelOperation{Type: models.OperationCarga}, nil)
	require.NoError(t, err)
	assert.Empty(t, dists)
}
