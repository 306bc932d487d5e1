package models

import (
	"strings"
	"time"
)

// Driver is a person licensed to drive fleet vehicles.
type Driver struct {
	ID               string    `bson:"_id" json:"id"`
	FirstName        string    `bson:"first_name" json:"first_name"`
	LastName         string    `bson:"last_name" json:"last_name"`
	LicenseNumber    string    `bson:"license_number" json:"license_number"`
	LicenseCategory  string    `bson:"license_category" json:"license_category"`
	LicenseExpiresAt time.Time `bson:"license_expires_at" json:"license_expires_at"`
	Phone            string    `bson:"phone" json:"phone"`
	CreatedAt        time.Time `bson:"created_at" json:"created_at"`
	UpdatedAt        time.Time `bson:"updated_at" json:"updated_at"`
}

// FullName joins first and last name.
func (d *Driver) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

// Validate checks required fields.
func (d *Driver) Validate() error {
	d.LicenseNumber = strings.TrimSpace(d.LicenseNumber)
	if strings.TrimSpace(d.FirstName) == "" {
		return Invalid("first_name", "is required")
	}
	if d.LicenseNumber == "" {
		return Invalid("license_number", "is required")
	}
	if d.LicenseExpiresAt.IsZero() {
		return Invalid("license_expires_at", "is required")
	}
	return nil
}
