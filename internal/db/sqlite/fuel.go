package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// =============================================================================
// FUEL CARDS
// =============================================================================

const fuelCardColumns = `id, number, fuel_type, unit_price, currency, expires_at, is_reservoir,
	created_at, updated_at`

// InsertFuelCard inserts a fuel card.
func (c *collections) InsertFuelCard(ctx context.Context, card models.FuelCard) error {
	now := time.Now()
	card.CreatedAt, card.UpdatedAt = now, now
	_, err := c.q.ExecContext(ctx, `INSERT INTO fuel_cards (`+fuelCardColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		card.ID, card.Number, card.FuelType, card.UnitPrice, card.Currency, nullTime(card.ExpiresAt),
		card.IsReservoir, formatTime(card.CreatedAt), formatTime(card.UpdatedAt),
	)
	return mapError(err, "fuel card")
}

// FindFuelCardByID finds a fuel card by ID.
func (c *collections) FindFuelCardByID(ctx context.Context, id string) (*models.FuelCard, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+fuelCardColumns+` FROM fuel_cards WHERE id = ?`, id)
	card, err := scanFuelCard(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("fuel card", id)
	}
	return card, err
}

// ListFuelCards returns all cards ordered by number.
func (c *collections) ListFuelCards(ctx context.Context) ([]models.FuelCard, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT `+fuelCardColumns+` FROM fuel_cards ORDER BY number`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cards := []models.FuelCard{}
	for rows.Next() {
		card, err := scanFuelCard(rows)
		if err != nil {
			return nil, err
		}
		cards = append(cards, *card)
	}
	return cards, rows.Err()
}

// UpdateFuelCard updates a fuel card. Existing operations keep the price they were
// recorded with.
func (c *collections) UpdateFuelCard(ctx context.Context, id string, card models.FuelCard) error {
	res, err := c.q.ExecContext(ctx, `UPDATE fuel_cards SET number = ?, fuel_type = ?, unit_price = ?,
		currency = ?, expires_at = ?, is_reservoir = ?, updated_at = ? WHERE id = ?`,
		card.Number, card.FuelType, card.UnitPrice, card.Currency, nullTime(card.ExpiresAt),
		card.IsReservoir, formatTime(time.Now()), id,
	)
	if err != nil {
		return mapError(err, "fuel card")
	}
	return expectOne(res, "fuel card", id)
}

// DeleteFuelCard deletes a card without operations.
func (c *collections) DeleteFuelCard(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM fuel_cards WHERE id = ?`, id)
	if err != nil {
		return mapDeleteError(err, "fuel card")
	}
	return expectOne(res, "fuel card", id)
}

func scanFuelCard(row scanner) (*models.FuelCard, error) {
	var (
		card                 models.FuelCard
		expires              sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&card.ID, &card.Number, &card.FuelType, &card.UnitPrice, &card.Currency,
		&expires, &card.IsReservoir, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if card.ExpiresAt, err = parseNullTime(expires); err != nil {
		return nil, err
	}
	if card.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if card.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &card, nil
}

// =============================================================================
// FUEL OPERATIONS
// =============================================================================

const fuelOperationColumns = `id, fuel_card_id, type, date, seq, unit_price, opening_balance, amount,
	amount_liters, closing_balance, closing_balance_liters, created_at, updated_at`

// InsertFuelOperation inserts an operation. Distributions are written separately.
func (c *collections) InsertFuelOperation(ctx context.Context, op models.FuelOperation) error {
	now := time.Now()
	op.CreatedAt, op.UpdatedAt = now, now
	_, err := c.q.ExecContext(ctx, `INSERT INTO fuel_operations (`+fuelOperationColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		op.ID, op.FuelCardID, string(op.Type), formatTime(op.Date), op.Seq, op.UnitPrice,
		op.OpeningBalance, op.Amount, op.AmountLiters, op.ClosingBalance, op.ClosingBalanceLiters,
		formatTime(op.CreatedAt), formatTime(op.UpdatedAt),
	)
	return mapError(err, "fuel operation")
}

// FindFuelOperationByID finds an operation by ID, without its distributions.
func (c *collections) FindFuelOperationByID(ctx context.Context, id string) (*models.FuelOperation, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+fuelOperationColumns+` FROM fuel_operations WHERE id = ?`, id)
	op, err := scanFuelOperation(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("fuel operation", id)
	}
	return op, err
}

// ListCardOperations returns the whole chain of a card.
func (c *collections) ListCardOperations(ctx context.Context, cardID string) ([]models.FuelOperation, error) {
	return c.queryOperations(ctx, `SELECT `+fuelOperationColumns+` FROM fuel_operations
		WHERE fuel_card_id = ? ORDER BY date, seq`, cardID)
}

// ListFuelOperations lists operations matching filter, ordered by date.
func (c *collections) ListFuelOperations(ctx context.Context, filter models.FuelOperationFilter) ([]models.FuelOperation, error) {
	var (
		where []string
		args  []any
	)
	if filter.FuelCardID != "" {
		where = append(where, "fuel_card_id = ?")
		args = append(args, filter.FuelCardID)
	}
	if filter.Type != "" {
		where = append(where, "type = ?")
		args = append(args, string(filter.Type))
	}
	if filter.VehicleID != "" {
		where = append(where, "id IN (SELECT operation_id FROM fuel_distributions WHERE vehicle_id = ?)")
		args = append(args, filter.VehicleID)
	}
	if filter.From != nil {
		where = append(where, "date >= ?")
		args = append(args, formatTime(*filter.From))
	}
	if filter.To != nil {
		where = append(where, "date <= ?")
		args = append(args, formatTime(*filter.To))
	}
	query := `SELECT ` + fuelOperationColumns + ` FROM fuel_operations`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date, fuel_card_id, seq"
	return c.queryOperations(ctx, query, args...)
}

func (c *collections) queryOperations(ctx context.Context, query string, args ...any) ([]models.FuelOperation, error) {
	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ops := []models.FuelOperation{}
	for rows.Next() {
		op, err := scanFuelOperation(rows)
		if err != nil {
			return nil, err
		}
		ops = append(ops, *op)
	}
	return ops, rows.Err()
}

// UpdateFuelOperation rewrites the stored fields of an operation.
func (c *collections) UpdateFuelOperation(ctx context.Context, id string, op models.FuelOperation) error {
	res, err := c.q.ExecContext(ctx, `UPDATE fuel_operations SET fuel_card_id = ?, type = ?, date = ?,
		seq = ?, unit_price = ?, opening_balance = ?, amount = ?, amount_liters = ?, closing_balance = ?,
		closing_balance_liters = ?, updated_at = ? WHERE id = ?`,
		op.FuelCardID, string(op.Type), formatTime(op.Date), op.Seq, op.UnitPrice, op.OpeningBalance,
		op.Amount, op.AmountLiters, op.ClosingBalance, op.ClosingBalanceLiters, formatTime(time.Now()), id,
	)
	if err != nil {
		return mapError(err, "fuel operation")
	}
	return expectOne(res, "fuel operation", id)
}

// DeleteFuelOperation deletes an operation; its distributions cascade.
func (c *collections) DeleteFuelOperation(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM fuel_operations WHERE id = ?`, id)
	if err != nil {
		return mapDeleteError(err, "fuel operation")
	}
	return expectOne(res, "fuel operation", id)
}

func scanFuelOperation(row scanner) (*models.FuelOperation, error) {
	var (
		op                   models.FuelOperation
		typ, date            string
		createdAt, updatedAt string
	)
	if err := row.Scan(&op.ID, &op.FuelCardID, &typ, &date, &op.Seq, &op.UnitPrice, &op.OpeningBalance,
		&op.Amount, &op.AmountLiters, &op.ClosingBalance, &op.ClosingBalanceLiters,
		&createdAt, &updatedAt); err != nil {
		return nil, err
	}
	op.Type = models.OperationType(typ)

	var err error
	if op.Date, err = parseTime(date); err != nil {
		return nil, err
	}
	if op.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if op.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &op, nil
}

// =============================================================================
// DISTRIBUTIONS
// =============================================================================

// ReplaceDistributions swaps the distribution set of an operation.
func (c *collections) ReplaceDistributions(ctx context.Context, operationID string, dists []models.FuelDistribution) error {
	if _, err := c.q.ExecContext(ctx, `DELETE FROM fuel_distributions WHERE operation_id = ?`, operationID); err != nil {
		return err
	}
	now := formatTime(time.Now())
	for _, d := range dists {
		_, err := c.q.ExecContext(ctx, `INSERT INTO fuel_distributions
			(id, operation_id, vehicle_id, reservoir_id, liters, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			d.ID, operationID, nullString(d.VehicleID), nullString(d.ReservoirID), d.Liters, now,
		)
		if err != nil {
			return mapError(err, "fuel distribution")
		}
	}
	return nil
}

// ListDistributions returns the distributions of an operation.
func (c *collections) ListDistributions(ctx context.Context, operationID string) ([]models.FuelDistribution, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT id, operation_id, vehicle_id, reservoir_id, liters, created_at
		FROM fuel_distributions WHERE operation_id = ? ORDER BY created_at, id`, operationID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dists := []models.FuelDistribution{}
	for rows.Next() {
		var (
			d                      models.FuelDistribution
			vehicleID, reservoirID sql.NullString
			createdAt              string
		)
		if err := rows.Scan(&d.ID, &d.OperationID, &vehicleID, &reservoirID, &d.Liters, &createdAt); err != nil {
			return nil, err
		}
		d.VehicleID, d.ReservoirID = vehicleID.String, reservoirID.String
		if d.CreatedAt, err = parseTime(createdAt); err != nil {
			return nil, err
		}
		dists = append(dists, d)
	}
	return dists, rows.Err()
}

// ReservoirStock sums every liter distributed into a reservoir. Amounts are
// stored as text, so the sum is done in decimal rather than by SQLite.
func (c *collections) ReservoirStock(ctx context.Context, reservoirID string) (decimal.Decimal, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT liters FROM fuel_distributions WHERE reservoir_id = ?`, reservoirID)
	if err != nil {
		return decimal.Zero, err
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var liters decimal.Decimal
		if err := rows.Scan(&liters); err != nil {
			return decimal.Zero, err
		}
		total = total.Add(liters)
	}
	return total, rows.Err()
}
