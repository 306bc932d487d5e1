package db

import (
	"context"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// Store is the persistence handle shared by every component. It is built once in
// main and closed on shutdown.
type Store interface {
	Collections

	// WithTx runs fn inside a single transaction. fn must only use the ctx and
	// Collections it receives. Returning an error rolls everything back.
	WithTx(ctx context.Context, fn func(ctx context.Context, tx Collections) error) error

	Close(ctx context.Context) error
}

// Collections groups the per-entity collections.
type Collections interface {
	Users() UserCollection
	Drivers() DriverCollection
	Vehicles() VehicleCollection
	FuelCards() FuelCardCollection
	Reservoirs() ReservoirCollection
	Maintenance() MaintenanceCollection
	FuelOperations() FuelOperationCollection
	Distributions() DistributionCollection
	Notifications() NotificationCollection
}

// UserCollection defines the interface for user database operations
type UserCollection interface {
	InsertUser(ctx context.Context, user models.User) error
	FindUserByID(ctx context.Context, id string) (*models.User, error)
	FindUserByUsername(ctx context.Context, username string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	UpdateUser(ctx context.Context, id string, user models.User) error
	DeleteUser(ctx context.Context, id string) error
	UpdateLastLogin(ctx context.Context, id string) error
}

// DriverCollection defines driver operations.
type DriverCollection interface {
	InsertDriver(ctx context.Context, driver models.Driver) error
	FindDriverByID(ctx context.Context, id string) (*models.Driver, error)
	ListDrivers(ctx context.Context) ([]models.Driver, error)
	UpdateDriver(ctx context.Context, id string, driver models.Driver) error
	DeleteDriver(ctx context.Context, id string) error
}

// VehicleCollection defines the interface for vehicle data operations.
type VehicleCollection interface {
	InsertVehicle(ctx context.Context, vehicle models.Vehicle) error
	FindVehicleByID(ctx context.Context, id string) (*models.Vehicle, error)
	ListVehicles(ctx context.Context, filter models.VehicleFilter) ([]models.Vehicle, error)
	UpdateVehicle(ctx context.Context, id string, vehicle models.Vehicle) error
	DeleteVehicle(ctx context.Context, id string) error
}

// FuelCardCollection defines fuel card operations. Deleting a card that still has
// operations fails with a conflict.
type FuelCardCollection interface {
	InsertFuelCard(ctx context.Context, card models.FuelCard) error
	FindFuelCardByID(ctx context.Context, id string) (*models.FuelCard, error)
	ListFuelCards(ctx context.Context) ([]models.FuelCard, error)
	UpdateFuelCard(ctx context.Context, id string, card models.FuelCard) error
	DeleteFuelCard(ctx context.Context, id string) error
}

// ReservoirCollection defines reservoir operations.
type ReservoirCollection interface {
	InsertReservoir(ctx context.Context, reservoir models.Reservoir) error
	FindReservoirByID(ctx context.Context, id string) (*models.Reservoir, error)
	ListReservoirs(ctx context.Context) ([]models.Reservoir, error)
	UpdateReservoir(ctx context.Context, id string, reservoir models.Reservoir) error
	DeleteReservoir(ctx context.Context, id string) error
}

// MaintenanceCollection defines maintenance and service record operations.
type MaintenanceCollection interface {
	InsertMaintenance(ctx context.Context, maintenance models.Maintenance) error
	FindMaintenanceByID(ctx context.Context, id string) (*models.Maintenance, error)
	ListMaintenance(ctx context.Context, filter models.MaintenanceFilter) ([]models.Maintenance, error)
	UpdateMaintenance(ctx context.Context, id string, maintenance models.Maintenance) error
	DeleteMaintenance(ctx context.Context, id string) error
}

// FuelOperationCollection defines ledger persistence. Deleting an operation also
// deletes its distributions.
type FuelOperationCollection interface {
	InsertFuelOperation(ctx context.Context, op models.FuelOperation) error
	FindFuelOperationByID(ctx context.Context, id string) (*models.FuelOperation, error)
	// ListCardOperations returns every operation of a card ordered by (date, seq).
	ListCardOperations(ctx context.Context, cardID string) ([]models.FuelOperation, error)
	ListFuelOperations(ctx context.Context, filter models.FuelOperationFilter) ([]models.FuelOperation, error)
	UpdateFuelOperation(ctx context.Context, id string, op models.FuelOperation) error
	DeleteFuelOperation(ctx context.Context, id string) error
}

// DistributionCollection defines fuel distribution operations.
type DistributionCollection interface {
	ReplaceDistributions(ctx context.Context, operationID string, dists []models.FuelDistribution) error
	ListDistributions(ctx context.Context, operationID string) ([]models.FuelDistribution, error)
	ReservoirStock(ctx context.Context, reservoirID string) (decimal.Decimal, error)
}

// NotificationCollection defines notification operations, always scoped by user.
type NotificationCollection interface {
	ListNotifications(ctx context.Context, userID string) ([]models.Notification, error)
	InsertNotification(ctx context.Context, n models.Notification) error
	UpdateNotification(ctx context.Context, n models.Notification) error
	DeleteNotification(ctx context.Context, userID, id string) error
	MarkNotificationRead(ctx context.Context, userID, id string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}
