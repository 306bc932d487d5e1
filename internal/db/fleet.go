package db

import (
	"context"
	"time"

	"github.com/ukydev/fleet-backoffice/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// InsertDriver inserts a driver.
func (c *mongoCollections) InsertDriver(ctx context.Context, driver models.Driver) error {
	driver.CreatedAt = time.Now()
	driver.UpdatedAt = driver.CreatedAt
	_, err := c.coll(driversCollection).InsertOne(ctx, driver)
	return mapMongoError(err, "driver")
}

// FindDriverByID finds a driver by ID.
func (c *mongoCollections) FindDriverByID(ctx context.Context, id string) (*models.Driver, error) {
	var driver models.Driver
	if err := c.findByID(ctx, driversCollection, "driver", id, &driver); err != nil {
		return nil, err
	}
	return &driver, nil
}

// ListDrivers returns all drivers ordered by name.
func (c *mongoCollections) ListDrivers(ctx context.Context) ([]models.Driver, error) {
	cursor, err := c.coll(driversCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "last_name", Value: 1}, {Key: "first_name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	drivers := []models.Driver{}
	if err := cursor.All(ctx, &drivers); err != nil {
		return nil, err
	}
	return drivers, nil
}

// UpdateDriver updates a driver.
func (c *mongoCollections) UpdateDriver(ctx context.Context, id string, driver models.Driver) error {
	existing, err := c.FindDriverByID(ctx, id)
	if err != nil {
		return err
	}
	driver.ID = id
	driver.CreatedAt = existing.CreatedAt
	driver.UpdatedAt = time.Now()
	return c.replaceByID(ctx, driversCollection, "driver", id, driver)
}

// DeleteDriver deletes a driver and unassigns it from its vehicle.
func (c *mongoCollections) DeleteDriver(ctx context.Context, id string) error {
	_, err := c.coll(vehiclesCollection).UpdateMany(ctx,
		bson.M{"driver_id": id},
		bson.M{"$unset": bson.M{"driver_id": ""}, "$set": bson.M{"updated_at": time.Now()}},
	)
	if err != nil {
		return err
	}
	return c.deleteByID(ctx, driversCollection, "driver", id)
}

// InsertVehicle inserts a vehicle record into the collection.
func (c *mongoCollections) InsertVehicle(ctx context.Context, vehicle models.Vehicle) error {
	if vehicle.DriverID != "" {
		if err := c.exists(ctx, driversCollection, "vehicle", vehicle.DriverID); err != nil {
			return err
		}
	}
	vehicle.CreatedAt = time.Now()
	vehicle.UpdatedAt = vehicle.CreatedAt
	_, err := c.coll(vehiclesCollection).InsertOne(ctx, vehicle)
	return mapMongoError(err, "vehicle")
}

// FindVehicleByID finds a vehicle by its ID.
func (c *mongoCollections) FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := c.findByID(ctx, vehiclesCollection, "vehicle", id, &vehicle); err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// ListVehicles queries vehicle records from the collection.
func (c *mongoCollections) ListVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error) {
	query := bson.M{}
	if filter.Status != "" {
		query["status"] = filter.Status
	}
	if filter.DriverID != "" {
		query["driver_id"] = filter.DriverID
	}
	cursor, err := c.coll(vehiclesCollection).Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "plate", Value: 1}}))
	if err != nil {
		return nil, err
	}
	vehicles := []models.Vehicle{}
	if err := cursor.All(ctx, &vehicles); err != nil {
		return nil, err
	}
	return vehicles, nil
}

// UpdateVehicle updates a vehicle by its ID.
func (c *mongoCollections) UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error {
	existing, err := c.FindVehicleByID(ctx, id)
	if err != nil {
		return err
	}
	if vehicle.DriverID != "" {
		if err := c.exists(ctx, driversCollection, "vehicle", vehicle.DriverID); err != nil {
			return err
		}
	}
	vehicle.ID = id
	vehicle.CreatedAt = existing.CreatedAt
	vehicle.UpdatedAt = time.Now()
	return c.replaceByID(ctx, vehiclesCollection, "vehicle", id, vehicle)
}

// DeleteVehicle deletes a vehicle and its maintenance records. Vehicles that
// received fuel cannot be deleted.
func (c *mongoCollections) DeleteVehicle(ctx context.Context, id string) error {
	if err := c.referenced(ctx, distributionsCollection, "vehicle", bson.M{"vehicle_id": id}); err != nil {
		return err
	}
	if err := c.deleteByID(ctx, vehiclesCollection, "vehicle", id); err != nil {
		return err
	}
	_, err := c.coll(maintenanceCollection).DeleteMany(ctx, bson.M{"vehicle_id": id})
	return err
}

// InsertReservoir inserts a reservoir.
func (c *mongoCollections) InsertReservoir(ctx context.Context, reservoir models.Reservoir) error {
	reservoir.CreatedAt = time.Now()
	reservoir.UpdatedAt = reservoir.CreatedAt
	_, err := c.coll(reservoirsCollection).InsertOne(ctx, reservoir)
	return mapMongoError(err, "reservoir")
}

// FindReservoirByID finds a reservoir by ID.
func (c *mongoCollections) FindReservoirByID(ctx context.Context, id string) (*models.Reservoir, error) {
	var reservoir models.Reservoir
	if err := c.findByID(ctx, reservoirsCollection, "reservoir", id, &reservoir); err != nil {
		return nil, err
	}
	return &reservoir, nil
}

// ListReservoirs returns all reservoirs ordered by name.
func (c *mongoCollections) ListReservoirs(ctx context.Context) ([]models.Reservoir, error) {
	cursor, err := c.coll(reservoirsCollection).Find(ctx, bson.M{},
		options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, err
	}
	reservoirs := []models.Reservoir{}
	if err := cursor.All(ctx, &reservoirs); err != nil {
		return nil, err
	}
	return reservoirs, nil
}

// UpdateReservoir updates a reservoir.
func (c *mongoCollections) UpdateReservoir(ctx context.Context, id string, reservoir models.Reservoir) error {
	existing, err := c.FindReservoirByID(ctx, id)
	if err != nil {
		return err
	}
	reservoir.ID = id
	reservoir.CreatedAt = existing.CreatedAt
	reservoir.UpdatedAt = time.Now()
	return c.replaceByID(ctx, reservoirsCollection, "reservoir", id, reservoir)
}

// DeleteReservoir deletes a reservoir that never received fuel.
func (c *mongoCollections) DeleteReservoir(ctx context.Context, id string) error {
	if err := c.referenced(ctx, distributionsCollection, "reservoir", bson.M{"reservoir_id": id}); err != nil {
		return err
	}
	return c.deleteByID(ctx, reservoirsCollection, "reservoir", id)
}

// InsertMaintenance inserts a maintenance record into the collection.
func (c *mongoCollections) InsertMaintenance(ctx context.Context, maintenance models.Maintenance) error {
	if err := c.exists(ctx, vehiclesCollection, "maintenance", maintenance.VehicleID); err != nil {
		return err
	}
	maintenance.CreatedAt = time.Now()
	maintenance.UpdatedAt = time.Now()
	_, err := c.coll(maintenanceCollection).InsertOne(ctx, maintenance)
	return mapMongoError(err, "maintenance")
}

// FindMaintenanceByID finds a maintenance record by its ID.
func (c *mongoCollections) FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error) {
	var maintenance models.Maintenance
	if err := c.findByID(ctx, maintenanceCollection, "maintenance", id, &maintenance); err != nil {
		return nil, err
	}
	return &maintenance, nil
}

// ListMaintenance queries maintenance records, newest first.
func (c *mongoCollections) ListMaintenance(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, error) {
	query := bson.M{}
	if filter.VehicleID != "" {
		query["vehicle_id"] = filter.VehicleID
	}
	if filter.Kind != "" {
		query["kind"] = filter.Kind
	}
	cursor, err := c.coll(maintenanceCollection).Find(ctx, query,
		options.Find().SetSort(bson.D{{Key: "service_date", Value: -1}}))
	if err != nil {
		return nil, err
	}
	records := []models.Maintenance{}
	if err := cursor.All(ctx, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// UpdateMaintenance updates a maintenance record by its ID.
func (c *mongoCollections) UpdateMaintenance(ctx context.Context, id string, maintenance models.Maintenance) error {
	existing, err := c.FindMaintenanceByID(ctx, id)
	if err != nil {
		return err
	}
	if err := c.exists(ctx, vehiclesCollection, "maintenance", maintenance.VehicleID); err != nil {
		return err
	}
	maintenance.ID = id
	maintenance.CreatedAt = existing.CreatedAt
	maintenance.UpdatedAt = time.Now()
	return c.replaceByID(ctx, maintenanceCollection, "maintenance", id, maintenance)
}

// DeleteMaintenance deletes a maintenance record by its ID.
func (c *mongoCollections) DeleteMaintenance(ctx context.Context, id string) error {
	return c.deleteByID(ctx, maintenanceCollection, "maintenance", id)
}
