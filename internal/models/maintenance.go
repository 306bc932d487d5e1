package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Maintenance kinds.
const (
	MaintenanceKindMaintenance = "mantenimiento"
	MaintenanceKindService     = "servicio"
)

// Maintenance represents a vehicle maintenance or service record.
type Maintenance struct {
	ID              string          `json:"id" bson:"_id"`
	VehicleID       string          `json:"vehicle_id" bson:"vehicle_id"`
	Kind            string          `json:"kind" bson:"kind"` // "mantenimiento" or "servicio"
	Description     string          `json:"description" bson:"description"`
	ServiceDate     time.Time       `json:"service_date" bson:"service_date"`
	NextServiceDate *time.Time      `json:"next_service_date,omitempty" bson:"next_service_date,omitempty"`
	Mileage         float64         `json:"mileage" bson:"mileage"` // in kilometers
	Cost            decimal.Decimal `json:"cost" bson:"cost"`
	Status          string          `json:"status" bson:"status"` // "scheduled", "in_progress", "completed", "cancelled"
	Notes           string          `json:"notes" bson:"notes"`
	CreatedAt       time.Time       `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at" bson:"updated_at"`
}

// Validate checks required fields and defaults kind and status.
func (m *Maintenance) Validate() error {
	if m.VehicleID == "" {
		return Invalid("vehicle_id", "is required")
	}
	switch m.Kind {
	case "":
		m.Kind = MaintenanceKindMaintenance
	case MaintenanceKindMaintenance, MaintenanceKindService:
	default:
		return Invalid("kind", "must be %q or %q", MaintenanceKindMaintenance, MaintenanceKindService)
	}
	switch m.Status {
	case "":
		m.Status = "scheduled"
	case "scheduled", "in_progress", "completed", "cancelled":
	default:
		return Invalid("status", "unknown status %q", m.Status)
	}
	if m.ServiceDate.IsZero() {
		return Invalid("service_date", "is required")
	}
	if m.Cost.IsNegative() {
		return Invalid("cost", "must not be negative")
	}
	return nil
}

// MaintenanceFilter narrows maintenance listings.
type MaintenanceFilter struct {
	VehicleID string
	Kind      string
}
