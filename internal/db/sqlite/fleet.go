package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ukydev/fleet-backoffice/internal/models"
)

// =============================================================================
// DRIVERS
// =============================================================================

const driverColumns = `id, first_name, last_name, license_number, license_category,
	license_expires_at, phone, created_at, updated_at`

// InsertDriver inserts a driver.
func (c *collections) InsertDriver(ctx context.Context, d models.Driver) error {
	now := time.Now()
	d.CreatedAt, d.UpdatedAt = now, now
	_, err := c.q.ExecContext(ctx, `INSERT INTO drivers (`+driverColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.FirstName, d.LastName, d.LicenseNumber, d.LicenseCategory,
		formatTime(d.LicenseExpiresAt), d.Phone, formatTime(d.CreatedAt), formatTime(d.UpdatedAt),
	)
	return mapError(err, "driver")
}

// FindDriverByID finds a driver by ID.
func (c *collections) FindDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = ?`, id)
	d, err := scanDriver(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("driver", id)
	}
	return d, err
}

// ListDrivers returns all drivers ordered by name.
func (c *collections) ListDrivers(ctx context.Context) ([]models.Driver, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT `+driverColumns+` FROM drivers ORDER BY last_name, first_name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	drivers := []models.Driver{}
	for rows.Next() {
		d, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, *d)
	}
	return drivers, rows.Err()
}

// UpdateDriver updates a driver.
func (c *collections) UpdateDriver(ctx context.Context, id string, d models.Driver) error {
	res, err := c.q.ExecContext(ctx, `UPDATE drivers SET first_name = ?, last_name = ?,
		license_number = ?, license_category = ?, license_expires_at = ?, phone = ?, updated_at = ?
		WHERE id = ?`,
		d.FirstName, d.LastName, d.LicenseNumber, d.LicenseCategory,
		formatTime(d.LicenseExpiresAt), d.Phone, formatTime(time.Now()), id,
	)
	if err != nil {
		return mapError(err, "driver")
	}
	return expectOne(res, "driver", id)
}

// DeleteDriver deletes a driver. Assigned vehicles keep running without one.
func (c *collections) DeleteDriver(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM drivers WHERE id = ?`, id)
	if err != nil {
		return mapDeleteError(err, "driver")
	}
	return expectOne(res, "driver", id)
}

func scanDriver(row scanner) (*models.Driver, error) {
	var (
		d                             models.Driver
		expires, createdAt, updatedAt string
	)
	if err := row.Scan(&d.ID, &d.FirstName, &d.LastName, &d.LicenseNumber, &d.LicenseCategory,
		&expires, &d.Phone, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if d.LicenseExpiresAt, err = parseTime(expires); err != nil {
		return nil, err
	}
	if d.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if d.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &d, nil
}

// =============================================================================
// VEHICLES
// =============================================================================

const vehicleColumns = `id, plate, make, model, year, fuel_type, status, driver_id,
	circulation_expires_at, operational_license_expires_at, somaton_expires_at, created_at, updated_at`

// InsertVehicle inserts a vehicle record.
func (c *collections) InsertVehicle(ctx context.Context, v models.Vehicle) error {
	now := time.Now()
	v.CreatedAt, v.UpdatedAt = now, now
	_, err := c.q.ExecContext(ctx, `INSERT INTO vehicles (`+vehicleColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		v.ID, v.Plate, v.Make, v.Model, v.Year, v.FuelType, v.Status, nullString(v.DriverID),
		nullTime(v.CirculationExpiresAt), nullTime(v.OperationalLicenseExpiresAt), nullTime(v.SomatonExpiresAt),
		formatTime(v.CreatedAt), formatTime(v.UpdatedAt),
	)
	return mapError(err, "vehicle")
}

// FindVehicleByID finds a vehicle by its ID.
func (c *collections) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+vehicleColumns+` FROM vehicles WHERE id = ?`, id)
	v, err := scanVehicle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("vehicle", id)
	}
	return v, err
}

// ListVehicles queries vehicles matching filter.
func (c *collections) ListVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}
	if filter.DriverID != "" {
		where = append(where, "driver_id = ?")
		args = append(args, filter.DriverID)
	}
	query := `SELECT ` + vehicleColumns + ` FROM vehicles`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY plate"

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	vehicles := []models.Vehicle{}
	for rows.Next() {
		v, err := scanVehicle(rows)
		if err != nil {
			return nil, err
		}
		vehicles = append(vehicles, *v)
	}
	return vehicles, rows.Err()
}

// UpdateVehicle updates a vehicle by its ID.
func (c *collections) UpdateVehicle(ctx context.Context, id string, v models.Vehicle) error {
	res, err := c.q.ExecContext(ctx, `UPDATE vehicles SET plate = ?, make = ?, model = ?, year = ?,
		fuel_type = ?, status = ?, driver_id = ?, circulation_expires_at = ?,
		operational_license_expires_at = ?, somaton_expires_at = ?, updated_at = ?
		WHERE id = ?`,
		v.Plate, v.Make, v.Model, v.Year, v.FuelType, v.Status, nullString(v.DriverID),
		nullTime(v.CirculationExpiresAt), nullTime(v.OperationalLicenseExpiresAt), nullTime(v.SomatonExpiresAt),
		formatTime(time.Now()), id,
	)
	if err != nil {
		return mapError(err, "vehicle")
	}
	return expectOne(res, "vehicle", id)
}

// DeleteVehicle deletes a vehicle by its ID. Vehicles that received fuel cannot be deleted.
func (c *collections) DeleteVehicle(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM vehicles WHERE id = ?`, id)
	if err != nil {
		return mapDeleteError(err, "vehicle")
	}
	return expectOne(res, "vehicle", id)
}

func scanVehicle(row scanner) (*models.Vehicle, error) {
	var (
		v                                 models.Vehicle
		driverID                          sql.NullString
		circulation, operational, somaton sql.NullString
		createdAt, updatedAt              string
	)
	if err := row.Scan(&v.ID, &v.Plate, &v.Make, &v.Model, &v.Year, &v.FuelType, &v.Status, &driverID,
		&circulation, &operational, &somaton, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	v.DriverID = driverID.String

	var err error
	if v.CirculationExpiresAt, err = parseNullTime(circulation); err != nil {
		return nil, err
	}
	if v.OperationalLicenseExpiresAt, err = parseNullTime(operational); err != nil {
		return nil, err
	}
	if v.SomatonExpiresAt, err = parseNullTime(somaton); err != nil {
		return nil, err
	}
	if v.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if v.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &v, nil
}

// =============================================================================
// RESERVOIRS
// =============================================================================

const reservoirColumns = `id, name, fuel_type, capacity_liters, location, created_at, updated_at`

// InsertReservoir inserts a reservoir.
func (c *collections) InsertReservoir(ctx context.Context, r models.Reservoir) error {
	now := time.Now()
	r.CreatedAt, r.UpdatedAt = now, now
	_, err := c.q.ExecContext(ctx, `INSERT INTO reservoirs (`+reservoirColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Name, r.FuelType, r.CapacityLiters, r.Location, formatTime(r.CreatedAt), formatTime(r.UpdatedAt),
	)
	return mapError(err, "reservoir")
}

// FindReservoirByID finds a reservoir by ID.
func (c *collections) FindReservoirByID(ctx context.Context, id string) (*models.Reservoir, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+reservoirColumns+` FROM reservoirs WHERE id = ?`, id)
	r, err := scanReservoir(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("reservoir", id)
	}
	return r, err
}

// ListReservoirs returns all reservoirs ordered by name.
func (c *collections) ListReservoirs(ctx context.Context) ([]models.Reservoir, error) {
	rows, err := c.q.QueryContext(ctx, `SELECT `+reservoirColumns+` FROM reservoirs ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reservoirs := []models.Reservoir{}
	for rows.Next() {
		r, err := scanReservoir(rows)
		if err != nil {
			return nil, err
		}
		reservoirs = append(reservoirs, *r)
	}
	return reservoirs, rows.Err()
}

// UpdateReservoir updates a reservoir.
func (c *collections) UpdateReservoir(ctx context.Context, id string, r models.Reservoir) error {
	res, err := c.q.ExecContext(ctx, `UPDATE reservoirs SET name = ?, fuel_type = ?, capacity_liters = ?,
		location = ?, updated_at = ? WHERE id = ?`,
		r.Name, r.FuelType, r.CapacityLiters, r.Location, formatTime(time.Now()), id,
	)
	if err != nil {
		return mapError(err, "reservoir")
	}
	return expectOne(res, "reservoir", id)
}

// DeleteReservoir deletes a reservoir that never received fuel.
func (c *collections) DeleteReservoir(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM reservoirs WHERE id = ?`, id)
	if err != nil {
		return mapDeleteError(err, "reservoir")
	}
	return expectOne(res, "reservoir", id)
}

func scanReservoir(row scanner) (*models.Reservoir, error) {
	var (
		r                    models.Reservoir
		createdAt, updatedAt string
	)
	if err := row.Scan(&r.ID, &r.Name, &r.FuelType, &r.CapacityLiters, &r.Location, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

// =============================================================================
// MAINTENANCE
// =============================================================================

const maintenanceColumns = `id, vehicle_id, kind, description, service_date, next_service_date,
	mileage, cost, status, notes, created_at, updated_at`

// InsertMaintenance inserts a maintenance record into the collection.
func (c *collections) InsertMaintenance(ctx context.Context, m models.Maintenance) error {
	now := time.Now()
	m.CreatedAt, m.UpdatedAt = now, now
	_, err := c.q.ExecContext(ctx, `INSERT INTO maintenance (`+maintenanceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.VehicleID, m.Kind, m.Description, formatTime(m.ServiceDate), nullTime(m.NextServiceDate),
		m.Mileage, m.Cost, m.Status, m.Notes, formatTime(m.CreatedAt), formatTime(m.UpdatedAt),
	)
	return mapError(err, "maintenance")
}

// FindMaintenanceByID finds a maintenance record by its ID.
func (c *collections) FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error) {
	row := c.q.QueryRowContext(ctx, `SELECT `+maintenanceColumns+` FROM maintenance WHERE id = ?`, id)
	m, err := scanMaintenance(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, models.NotFound("maintenance", id)
	}
	return m, err
}

// ListMaintenance lists maintenance records, newest first.
func (c *collections) ListMaintenance(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, error) {
	var (
		where []string
		args  []any
	)
	if filter.VehicleID != "" {
		where = append(where, "vehicle_id = ?")
		args = append(args, filter.VehicleID)
	}
	if filter.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, filter.Kind)
	}
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY service_date DESC"

	rows, err := c.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	records := []models.Maintenance{}
	for rows.Next() {
		m, err := scanMaintenance(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, *m)
	}
	return records, rows.Err()
}

// UpdateMaintenance updates a maintenance record by its ID.
func (c *collections) UpdateMaintenance(ctx context.Context, id string, m models.Maintenance) error {
	res, err := c.q.ExecContext(ctx, `UPDATE maintenance SET vehicle_id = ?, kind = ?, description = ?,
		service_date = ?, next_service_date = ?, mileage = ?, cost = ?, status = ?, notes = ?, updated_at = ?
		WHERE id = ?`,
		m.VehicleID, m.Kind, m.Description, formatTime(m.ServiceDate), nullTime(m.NextServiceDate),
		m.Mileage, m.Cost, m.Status, m.Notes, formatTime(time.Now()), id,
	)
	if err != nil {
		return mapError(err, "maintenance")
	}
	return expectOne(res, "maintenance", id)
}

// DeleteMaintenance deletes a maintenance record by its ID.
func (c *collections) DeleteMaintenance(ctx context.Context, id string) error {
	res, err := c.q.ExecContext(ctx, `DELETE FROM maintenance WHERE id = ?`, id)
	if err != nil {
		return err
	}
	return expectOne(res, "maintenance", id)
}

func scanMaintenance(row scanner) (*models.Maintenance, error) {
	var (
		m                    models.Maintenance
		serviceDate          string
		nextService          sql.NullString
		createdAt, updatedAt string
	)
	if err := row.Scan(&m.ID, &m.VehicleID, &m.Kind, &m.Description, &serviceDate, &nextService,
		&m.Mileage, &m.Cost, &m.Status, &m.Notes, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	var err error
	if m.ServiceDate, err = parseTime(serviceDate); err != nil {
		return nil, err
	}
	if m.NextServiceDate, err = parseNullTime(nextService); err != nil {
		return nil, err
	}
	if m.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if m.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, err
	}
	return &m, nil
}
