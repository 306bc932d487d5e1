package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-backoffice/internal/db"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// FleetHandler serves drivers, vehicles, reservoirs and maintenance records.
type FleetHandler struct {
	store db.Collections
	log   *logrus.Entry
}

// NewFleetHandler creates a fleet handler.
func NewFleetHandler(store db.Collections, logger *logrus.Logger) *FleetHandler {
	return &FleetHandler{
		store: store,
		log:   logger.WithField("handler", "fleet"),
	}
}

// =============================================================================
// DRIVERS
// =============================================================================

type driverRequest struct {
	FirstName        string `json:"first_name"`
	LastName         string `json:"last_name"`
	LicenseNumber    string `json:"license_number"`
	LicenseCategory  string `json:"license_category"`
	LicenseExpiresAt string `json:"license_expires_at"`
	Phone            string `json:"phone"`
}

func (req *driverRequest) toDriver(id string) (*models.Driver, error) {
	expiresAt, err := parseDate("license_expires_at", req.LicenseExpiresAt)
	if err != nil {
		return nil, err
	}
	d := &models.Driver{
		ID:               id,
		FirstName:        req.FirstName,
		LastName:         req.LastName,
		LicenseNumber:    req.LicenseNumber,
		LicenseCategory:  req.LicenseCategory,
		LicenseExpiresAt: expiresAt,
		Phone:            req.Phone,
	}
	return d, d.Validate()
}

// ListDrivers returns every driver.
func (h *FleetHandler) ListDrivers(w http.ResponseWriter, r *http.Request) {
	drivers, err := h.store.Drivers().ListDrivers(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, drivers)
}

// CreateDriver registers a driver.
func (h *FleetHandler) CreateDriver(w http.ResponseWriter, r *http.Request) {
	var req driverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	d, err := req.toDriver(uuid.NewString())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.store.Drivers().InsertDriver(r.Context(), *d); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondDriver(w, r, d.ID, http.StatusCreated)
}

// GetDriver returns one driver.
func (h *FleetHandler) GetDriver(w http.ResponseWriter, r *http.Request) {
	h.respondDriver(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

// UpdateDriver replaces a driver.
func (h *FleetHandler) UpdateDriver(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req driverRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	d, err := req.toDriver(id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.store.Drivers().UpdateDriver(r.Context(), id, *d); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondDriver(w, r, id, http.StatusOK)
}

// DeleteDriver removes a driver.
func (h *FleetHandler) DeleteDriver(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Drivers().DeleteDriver(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FleetHandler) respondDriver(w http.ResponseWriter, r *http.Request, id string, status int) {
	d, err := h.store.Drivers().FindDriverByID(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, status, d)
}

// =============================================================================
// VEHICLES
// =============================================================================

type vehicleRequest struct {
	Plate                       string `json:"plate"`
	Make                        string `json:"make"`
	Model                       string `json:"model"`
	Year                        int    `json:"year"`
	FuelType                    string `json:"fuel_type"`
	Status                      string `json:"status"`
	DriverID                    string `json:"driver_id"`
	CirculationExpiresAt        string `json:"circulation_expires_at"`
	OperationalLicenseExpiresAt string `json:"operational_license_expires_at"`
	SomatonExpiresAt            string `json:"somaton_expires_at"`
}

func (req *vehicleRequest) toVehicle(id string) (*models.Vehicle, error) {
	v := &models.Vehicle{
		ID:       id,
		Plate:    req.Plate,
		Make:     req.Make,
		Model:    req.Model,
		Year:     req.Year,
		FuelType: req.FuelType,
		Status:   req.Status,
		DriverID: req.DriverID,
	}
	dates := []struct {
		field string
		value string
		dst   **time.Time
	}{
		{"circulation_expires_at", req.CirculationExpiresAt, &v.CirculationExpiresAt},
		{"operational_license_expires_at", req.OperationalLicenseExpiresAt, &v.OperationalLicenseExpiresAt},
		{"somaton_expires_at", req.SomatonExpiresAt, &v.SomatonExpiresAt},
	}
	for _, d := range dates {
		t, err := parseOptionalDate(d.field, d.value)
		if err != nil {
			return nil, err
		}
		*d.dst = t
	}
	return v, v.Validate()
}

// checkDriver makes sure an assigned driver exists.
func (h *FleetHandler) checkDriver(r *http.Request, driverID string) error {
	if driverID == "" {
		return nil
	}
	if _, err := h.store.Drivers().FindDriverByID(r.Context(), driverID); err != nil {
		return models.Invalid("driver_id", "unknown driver %q", driverID)
	}
	return nil
}

// ListVehicles returns vehicles, optionally filtered by status and driver_id.
func (h *FleetHandler) ListVehicles(w http.ResponseWriter, r *http.Request) {
	filter := models.VehicleFilter{
		Status:   r.URL.Query().Get("status"),
		DriverID: r.URL.Query().Get("driver_id"),
	}
	if err := filter.Validate(); err != nil {
		writeError(w, h.log, err)
		return
	}
	vehicles, err := h.store.Vehicles().ListVehicles(r.Context(), filter)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, vehicles)
}

// CreateVehicle registers a vehicle.
func (h *FleetHandler) CreateVehicle(w http.ResponseWriter, r *http.Request) {
	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	v, err := req.toVehicle(uuid.NewString())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.checkDriver(r, v.DriverID); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.store.Vehicles().InsertVehicle(r.Context(), *v); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondVehicle(w, r, v.ID, http.StatusCreated)
}

// GetVehicle returns one vehicle.
func (h *FleetHandler) GetVehicle(w http.ResponseWriter, r *http.Request) {
	h.respondVehicle(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

// UpdateVehicle replaces a vehicle.
func (h *FleetHandler) UpdateVehicle(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req vehicleRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	v, err := req.toVehicle(id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.checkDriver(r, v.DriverID); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.store.Vehicles().UpdateVehicle(r.Context(), id, *v); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondVehicle(w, r, id, http.StatusOK)
}

// DeleteVehicle removes a vehicle that has no fuel distributions.
func (h *FleetHandler) DeleteVehicle(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Vehicles().DeleteVehicle(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FleetHandler) respondVehicle(w http.ResponseWriter, r *http.Request, id string, status int) {
	v, err := h.store.Vehicles().FindVehicleByID(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, status, v)
}

// =============================================================================
// RESERVOIRS
// =============================================================================

type reservoirRequest struct {
	Name           string          `json:"name"`
	FuelType       string          `json:"fuel_type"`
	CapacityLiters decimal.Decimal `json:"capacity_liters"`
	Location       string          `json:"location"`
}

// ListReservoirs returns every reservoir with its current stock.
func (h *FleetHandler) ListReservoirs(w http.ResponseWriter, r *http.Request) {
	reservoirs, err := h.store.Reservoirs().ListReservoirs(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	for i := range reservoirs {
		if reservoirs[i].StockLiters, err = h.store.Distributions().ReservoirStock(r.Context(), reservoirs[i].ID); err != nil {
			writeError(w, h.log, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, reservoirs)
}

// CreateReservoir registers a reservoir.
func (h *FleetHandler) CreateReservoir(w http.ResponseWriter, r *http.Request) {
	var req reservoirRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	res := models.Reservoir{
		ID:             uuid.NewString(),
		Name:           req.Name,
		FuelType:       req.FuelType,
		CapacityLiters: req.CapacityLiters,
		Location:       req.Location,
	}
	if err := res.Validate(); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.store.Reservoirs().InsertReservoir(r.Context(), res); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondReservoir(w, r, res.ID, http.StatusCreated)
}

// GetReservoir returns one reservoir with its current stock.
func (h *FleetHandler) GetReservoir(w http.ResponseWriter, r *http.Request) {
	h.respondReservoir(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

// UpdateReservoir replaces a reservoir.
func (h *FleetHandler) UpdateReservoir(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req reservoirRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	res := models.Reservoir{
		ID:             id,
		Name:           req.Name,
		FuelType:       req.FuelType,
		CapacityLiters: req.CapacityLiters,
		Location:       req.Location,
	}
	if err := res.Validate(); err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.store.Reservoirs().UpdateReservoir(r.Context(), id, res); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondReservoir(w, r, id, http.StatusOK)
}

// DeleteReservoir removes a reservoir that has received no fuel.
func (h *FleetHandler) DeleteReservoir(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Reservoirs().DeleteReservoir(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FleetHandler) respondReservoir(w http.ResponseWriter, r *http.Request, id string, status int) {
	res, err := h.store.Reservoirs().FindReservoirByID(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if res.StockLiters, err = h.store.Distributions().ReservoirStock(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, status, res)
}

// =============================================================================
// MAINTENANCE
// =============================================================================

type maintenanceRequest struct {
	VehicleID       string          `json:"vehicle_id"`
	Kind            string          `json:"kind"`
	Description     string          `json:"description"`
	ServiceDate     string          `json:"service_date"`
	NextServiceDate string          `json:"next_service_date"`
	Mileage         float64         `json:"mileage"`
	Cost            decimal.Decimal `json:"cost"`
	Status          string          `json:"status"`
	Notes           string          `json:"notes"`
}

func (req *maintenanceRequest) toMaintenance(id string) (*models.Maintenance, error) {
	serviceDate, err := parseDate("service_date", req.ServiceDate)
	if err != nil {
		return nil, err
	}
	nextServiceDate, err := parseOptionalDate("next_service_date", req.NextServiceDate)
	if err != nil {
		return nil, err
	}
	m := &models.Maintenance{
		ID:              id,
		VehicleID:       req.VehicleID,
		Kind:            req.Kind,
		Description:     req.Description,
		ServiceDate:     serviceDate,
		NextServiceDate: nextServiceDate,
		Mileage:         req.Mileage,
		Cost:            req.Cost,
		Status:          req.Status,
		Notes:           req.Notes,
	}
	return m, m.Validate()
}

// ListMaintenance returns records, optionally filtered by vehicle_id and kind.
func (h *FleetHandler) ListMaintenance(w http.ResponseWriter, r *http.Request) {
	filter := models.MaintenanceFilter{
		VehicleID: r.URL.Query().Get("vehicle_id"),
		Kind:      r.URL.Query().Get("kind"),
	}
	records, err := h.store.Maintenance().ListMaintenance(r.Context(), filter)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, records)
}

// CreateMaintenance records a maintenance or service for a vehicle.
func (h *FleetHandler) CreateMaintenance(w http.ResponseWriter, r *http.Request) {
	var req maintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	m, err := req.toMaintenance(uuid.NewString())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if _, err := h.store.Vehicles().FindVehicleByID(r.Context(), m.VehicleID); err != nil {
		writeError(w, h.log, models.Invalid("vehicle_id", "unknown vehicle %q", m.VehicleID))
		return
	}
	if err := h.store.Maintenance().InsertMaintenance(r.Context(), *m); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondMaintenance(w, r, m.ID, http.StatusCreated)
}

// GetMaintenance returns one record.
func (h *FleetHandler) GetMaintenance(w http.ResponseWriter, r *http.Request) {
	h.respondMaintenance(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

// UpdateMaintenance replaces a record.
func (h *FleetHandler) UpdateMaintenance(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req maintenanceRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	m, err := req.toMaintenance(id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if _, err := h.store.Vehicles().FindVehicleByID(r.Context(), m.VehicleID); err != nil {
		writeError(w, h.log, models.Invalid("vehicle_id", "unknown vehicle %q", m.VehicleID))
		return
	}
	if err := h.store.Maintenance().UpdateMaintenance(r.Context(), id, *m); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondMaintenance(w, r, id, http.StatusOK)
}

// DeleteMaintenance removes a record.
func (h *FleetHandler) DeleteMaintenance(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Maintenance().DeleteMaintenance(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FleetHandler) respondMaintenance(w http.ResponseWriter, r *http.Request, id string, status int) {
	m, err := h.store.Maintenance().FindMaintenanceByID(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, status, m)
}
