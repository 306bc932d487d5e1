package models

import (
	"strings"
	"time"
)

// Vehicle status values.
const (
	VehicleStatusActive   = "Activo"
	VehicleStatusInactive = "Inactivo"
)

// Vehicle document kinds, used in notification links.
const (
	DocumentCirculation        = "circulacion"
	DocumentOperationalLicense = "licencia-operativa"
	DocumentSomaton            = "somaton"
)

// Vehicle represents a fleet vehicle.
type Vehicle struct {
	ID                          string     `bson:"_id" json:"id"`
	Plate                       string     `bson:"plate" json:"plate"`
	Make                        string     `bson:"make" json:"make"`
	Model                       string     `bson:"model" json:"model"`
	Year                        int        `bson:"year" json:"year"`
	FuelType                    string     `bson:"fuel_type" json:"fuel_type"`
	Status                      string     `bson:"status" json:"status"` // "Activo" or "Inactivo"
	DriverID                    string     `bson:"driver_id,omitempty" json:"driver_id,omitempty"`
	CirculationExpiresAt        *time.Time `bson:"circulation_expires_at,omitempty" json:"circulation_expires_at,omitempty"`
	OperationalLicenseExpiresAt *time.Time `bson:"operational_license_expires_at,omitempty" json:"operational_license_expires_at,omitempty"`
	SomatonExpiresAt            *time.Time `bson:"somaton_expires_at,omitempty" json:"somaton_expires_at,omitempty"`
	CreatedAt                   time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt                   time.Time  `bson:"updated_at" json:"updated_at"`
}

// VehicleDocument is one of the dated documents a vehicle must keep current.
type VehicleDocument struct {
	Kind      string
	Label     string
	ExpiresAt *time.Time
}

// Documents returns the circulation, operational license and somatón documents.
func (v *Vehicle) Documents() []VehicleDocument {
	return []VehicleDocument{
		{Kind: DocumentCirculation, Label: "circulation permit", ExpiresAt: v.CirculationExpiresAt},
		{Kind: DocumentOperationalLicense, Label: "operational license", ExpiresAt: v.OperationalLicenseExpiresAt},
		{Kind: DocumentSomaton, Label: "somatón certificate", ExpiresAt: v.SomatonExpiresAt},
	}
}

// Validate checks required fields and normalizes the status.
func (v *Vehicle) Validate() error {
	v.Plate = strings.TrimSpace(v.Plate)
	if v.Plate == "" {
		return Invalid("plate", "is required")
	}
	if v.Year < 0 {
		return Invalid("year", "must not be negative")
	}
	switch v.Status {
	case "":
		v.Status = VehicleStatusActive
	case VehicleStatusActive, VehicleStatusInactive:
	default:
		return Invalid("status", "must be %q or %q", VehicleStatusActive, VehicleStatusInactive)
	}
	return nil
}

// VehicleFilter narrows vehicle listings.
type VehicleFilter struct {
	Status   string
	DriverID string
}

// Validate rejects unknown status values.
func (f VehicleFilter) Validate() error {
	switch f.Status {
	case "", VehicleStatusActive, VehicleStatusInactive:
		return nil
	default:
		return Invalid("status", "unknown status %q", f.Status)
	}
}
