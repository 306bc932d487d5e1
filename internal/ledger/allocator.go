package ledger

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// Allocate splits op's liters across dests and returns one distribution per
// destination. Carga operations take no destinations. Consumo operations need at
// least one, each naming exactly one vehicle or reservoir with positive liters,
// and together they may not exceed op.AmountLiters.
func Allocate(op *models.FuelOperation, dests []models.Destination) ([]models.FuelDistribution, error) {
	switch op.Type {
	case models.OperationCarga:
		if len(dests) > 0 {
			return nil, fmt.Errorf("%w: carga operations take no destinations", models.ErrInvalidDestination)
		}
		return nil, nil
	case models.OperationConsumo:
		if len(dests) == 0 {
			return nil, models.ErrMissingDestination
		}
	default:
		return nil, models.ErrInvalidOperationType
	}

	seen := make(map[string]bool, len(dests))
	total := decimal.Zero
	dists := make([]models.FuelDistribution, 0, len(dests))
	for i, d := range dests {
		if (d.VehicleID == "") == (d.ReservoirID == "") {
			return nil, fmt.Errorf("%w: destination %d must name exactly one of vehicle_id or reservoir_id",
				models.ErrInvalidDestination, i)
		}
		if !d.Liters.IsPositive() {
			return nil, fmt.Errorf("%w: destination %d liters must be greater than zero", models.ErrInvalidDestination, i)
		}
		if !models.HasScale(d.Liters, models.LitersScale) {
			return nil, fmt.Errorf("%w: destination %d liters must have at most %d decimal places",
				models.ErrInvalidDestination, i, models.LitersScale)
		}
		if seen[d.Key()] {
			return nil, fmt.Errorf("%w: %s listed more than once", models.ErrInvalidDestination, d.Key())
		}
		seen[d.Key()] = true

		total = total.Add(d.Liters)
		dists = append(dists, models.FuelDistribution{
			ID:          uuid.NewString(),
			OperationID: op.ID,
			VehicleID:   d.VehicleID,
			ReservoirID: d.ReservoirID,
			Liters:      d.Liters,
		})
	}

	if total.GreaterThan(op.AmountLiters) {
		return nil, &models.OverAllocationError{Requested: total, Available: op.AmountLiters}
	}
	return dists, nil
}
