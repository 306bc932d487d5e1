package notifications

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-backoffice/internal/db"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// Checker evaluates one family of subjects. A failure on one subject is
// reported through Reconciler.Fail; an error return means the whole family
// could not be read.
type Checker interface {
	Name() string
	Check(ctx context.Context, rec *Reconciler, today time.Time) error
}

// DriverLink is the link of a driver's license notifications.
func DriverLink(id string) string {
	return "/fleet/drivers/" + id
}

// VehicleDocumentLink is the link of one vehicle document's notifications.
func VehicleDocumentLink(id, kind string) string {
	return "/fleet/vehicles/" + id + "/documents/" + kind
}

// FuelCardLink is the link of a fuel card's expiry notifications.
func FuelCardLink(id string) string {
	return "/fleet/fuel-cards/" + id
}

// expiryAlert words an alert for a subject whose expiry date classified as state.
func expiryAlert(link, what string, expiresAt time.Time, state State, days int) Alert {
	a := Alert{Link: link, State: state}
	switch state {
	case StateCritical:
		a.Message = fmt.Sprintf("%s expired %d day(s) ago", what, -days)
		a.Details = fmt.Sprintf("Expired on %s", expiresAt.UTC().Format(time.DateOnly))
	case StateWarning:
		if days == 0 {
			a.Message = fmt.Sprintf("%s expires today", what)
		} else {
			a.Message = fmt.Sprintf("%s expires in %d day(s)", what, days)
		}
		a.Details = fmt.Sprintf("Expires on %s", expiresAt.UTC().Format(time.DateOnly))
	}
	return a
}

// DriverLicenseChecker raises alerts for driver licenses.
type DriverLicenseChecker struct {
	Drivers db.DriverCollection
}

// Name identifies the checker in logs.
func (c *DriverLicenseChecker) Name() string { return "driver_license" }

// Check reconciles the license alert of every driver.
func (c *DriverLicenseChecker) Check(ctx context.Context, rec *Reconciler, today time.Time) error {
	drivers, err := c.Drivers.ListDrivers(ctx)
	if err != nil {
		return fmt.Errorf("failed to list drivers: %w", err)
	}
	for _, d := range drivers {
		state, days := Classify(d.LicenseExpiresAt, today)
		what := fmt.Sprintf("Driver license of %s (%s)", d.FullName(), d.LicenseNumber)
		if _, err := rec.Reconcile(ctx, expiryAlert(DriverLink(d.ID), what, d.LicenseExpiresAt, state, days)); err != nil {
			rec.Fail("driver", d.ID, err)
		}
	}
	return nil
}

// VehicleDocumentChecker raises one alert per vehicle document and marks a
// vehicle inactive once any of its documents has expired.
type VehicleDocumentChecker struct {
	Vehicles db.VehicleCollection
	Log      *logrus.Entry
}

// Name identifies the checker in logs.
func (c *VehicleDocumentChecker) Name() string { return "vehicle_documents" }

// Check reconciles the alerts of every vehicle document and deactivates
// vehicles with an expired document.
func (c *VehicleDocumentChecker) Check(ctx context.Context, rec *Reconciler, today time.Time) error {
	vehicles, err := c.Vehicles.ListVehicles(ctx, models.VehicleFilter{})
	if err != nil {
		return fmt.Errorf("failed to list vehicles: %w", err)
	}
	for i := range vehicles {
		v := &vehicles[i]
		expired := false
		for _, doc := range v.Documents() {
			var expiresAt time.Time
			if doc.ExpiresAt != nil {
				expiresAt = *doc.ExpiresAt
			}
			state, days := Classify(expiresAt, today)
			if state == StateCritical {
				expired = true
			}
			what := fmt.Sprintf("The %s of vehicle %s", doc.Label, v.Plate)
			if _, err := rec.Reconcile(ctx, expiryAlert(VehicleDocumentLink(v.ID, doc.Kind), what, expiresAt, state, days)); err != nil {
				rec.Fail("vehicle", v.ID, err)
			}
		}
		if expired && v.Status != models.VehicleStatusInactive {
			if err := c.deactivate(ctx, v); err != nil {
				rec.Fail("vehicle", v.ID, err)
			}
		}
	}
	return nil
}

func (c *VehicleDocumentChecker) deactivate(ctx context.Context, v *models.Vehicle) error {
	v.Status = models.VehicleStatusInactive
	if err := c.Vehicles.UpdateVehicle(ctx, v.ID, *v); err != nil {
		return fmt.Errorf("failed to deactivate vehicle: %w", err)
	}
	if c.Log != nil {
		c.Log.WithFields(logrus.Fields{
			"vehicle_id": v.ID,
			"plate":      v.Plate,
		}).Info("Vehicle marked inactive: expired documents")
	}
	return nil
}

// FuelCardChecker raises alerts for fuel card expiry.
type FuelCardChecker struct {
	Cards db.FuelCardCollection
}

// Name identifies the checker in logs.
func (c *FuelCardChecker) Name() string { return "fuel_card" }

// Check reconciles the expiry alert of every fuel card.
func (c *FuelCardChecker) Check(ctx context.Context, rec *Reconciler, today time.Time) error {
	cards, err := c.Cards.ListFuelCards(ctx)
	if err != nil {
		return fmt.Errorf("failed to list fuel cards: %w", err)
	}
	for _, card := range cards {
		var expiresAt time.Time
		if card.ExpiresAt != nil {
			expiresAt = *card.ExpiresAt
		}
		state, days := Classify(expiresAt, today)
		what := fmt.Sprintf("Fuel card %s", card.Number)
		if _, err := rec.Reconcile(ctx, expiryAlert(FuelCardLink(card.ID), what, expiresAt, state, days)); err != nil {
			rec.Fail("fuel_card", card.ID, err)
		}
	}
	return nil
}
