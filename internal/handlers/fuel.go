package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-backoffice/internal/db"
	"github.com/ukydev/fleet-backoffice/internal/ledger"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// FuelHandler serves fuel cards and the fuel ledger.
type FuelHandler struct {
	ledger *ledger.Service
	cards  db.FuelCardCollection
	log    *logrus.Entry
}

// NewFuelHandler creates a fuel handler.
func NewFuelHandler(ledgerService *ledger.Service, cards db.FuelCardCollection, logger *logrus.Logger) *FuelHandler {
	return &FuelHandler{
		ledger: ledgerService,
		cards:  cards,
		log:    logger.WithField("handler", "fuel"),
	}
}

// fuelCardRequest is the writable part of a fuel card.
type fuelCardRequest struct {
	Number      string          `json:"number"`
	FuelType    string          `json:"fuel_type"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Currency    string          `json:"currency"`
	ExpiresAt   string          `json:"expires_at"`
	IsReservoir bool            `json:"is_reservoir"`
}

func (req *fuelCardRequest) toCard(id string) (*models.FuelCard, error) {
	expiresAt, err := parseOptionalDate("expires_at", req.ExpiresAt)
	if err != nil {
		return nil, err
	}
	card := &models.FuelCard{
		ID:          id,
		Number:      req.Number,
		FuelType:    req.FuelType,
		UnitPrice:   req.UnitPrice,
		Currency:    req.Currency,
		ExpiresAt:   expiresAt,
		IsReservoir: req.IsReservoir,
	}
	if err := card.Validate(); err != nil {
		return nil, err
	}
	return card, nil
}

// ListCards returns every fuel card.
func (h *FuelHandler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.cards.ListFuelCards(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, cards)
}

// CreateCard registers a fuel card.
func (h *FuelHandler) CreateCard(w http.ResponseWriter, r *http.Request) {
	var req fuelCardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	card, err := req.toCard(uuid.NewString())
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.cards.InsertFuelCard(r.Context(), *card); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondCard(w, r, card.ID, http.StatusCreated)
}

// GetCard returns one fuel card.
func (h *FuelHandler) GetCard(w http.ResponseWriter, r *http.Request) {
	h.respondCard(w, r, chi.URLParam(r, "id"), http.StatusOK)
}

// UpdateCard replaces a fuel card's attributes. Recorded operations keep the
// unit price they were created with.
func (h *FuelHandler) UpdateCard(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req fuelCardRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	card, err := req.toCard(id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	if err := h.cards.UpdateFuelCard(r.Context(), id, *card); err != nil {
		writeError(w, h.log, err)
		return
	}
	h.respondCard(w, r, id, http.StatusOK)
}

// DeleteCard removes a fuel card that has no operations.
func (h *FuelHandler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	if err := h.cards.DeleteFuelCard(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *FuelHandler) respondCard(w http.ResponseWriter, r *http.Request, id string, status int) {
	card, err := h.cards.FindFuelCardByID(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, status, card)
}

// CardBalance returns the card's current balance.
func (h *FuelHandler) CardBalance(w http.ResponseWriter, r *http.Request) {
	balance, err := h.ledger.CardBalance(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

// CardOperations returns the card's chain in order.
func (h *FuelHandler) CardOperations(w http.ResponseWriter, r *http.Request) {
	ops, err := h.ledger.CardOperations(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

// VerifyCard audits the card's chain.
func (h *FuelHandler) VerifyCard(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.VerifyCard(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// operationRequest is the body of create and update requests. Dates may be
// plain dates or RFC 3339 timestamps.
type operationRequest struct {
	Type         string               `json:"type"`
	Date         string               `json:"date"`
	Amount       decimal.Decimal      `json:"amount"`
	FuelCardID   string               `json:"fuel_card_id"`
	VehicleID    string               `json:"vehicle_id"`
	Destinations []models.Destination `json:"destinations"`
}

func (req *operationRequest) toInput() (ledger.OperationInput, error) {
	typ, err := models.ParseOperationType(req.Type)
	if err != nil {
		return ledger.OperationInput{}, err
	}
	date, err := parseDate("date", req.Date)
	if err != nil {
		return ledger.OperationInput{}, err
	}
	return ledger.OperationInput{
		Type:         typ,
		Date:         date,
		Amount:       req.Amount,
		FuelCardID:   req.FuelCardID,
		VehicleID:    req.VehicleID,
		Destinations: req.Destinations,
	}, nil
}

// ListOperations returns fuel operations matching the query filters
// fuel_card_id, type, vehicle_id, from and to.
func (h *FuelHandler) ListOperations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := models.FuelOperationFilter{
		FuelCardID: q.Get("fuel_card_id"),
		Type:       models.OperationType(q.Get("type")),
		VehicleID:  q.Get("vehicle_id"),
	}
	var err error
	if filter.From, err = parseOptionalDate("from", q.Get("from")); err != nil {
		writeError(w, h.log, err)
		return
	}
	if filter.To, err = parseOptionalDate("to", q.Get("to")); err != nil {
		writeError(w, h.log, err)
		return
	}

	ops, err := h.ledger.ListOperations(r.Context(), filter)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, ops)
}

// CreateOperation records a Carga or Consumo.
func (h *FuelHandler) CreateOperation(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	op, err := h.ledger.CreateOperation(r.Context(), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, op)
}

// GetOperation returns one operation with its distributions.
func (h *FuelHandler) GetOperation(w http.ResponseWriter, r *http.Request) {
	op, err := h.ledger.GetOperation(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// UpdateOperation replaces an operation and re-chains the affected cards.
func (h *FuelHandler) UpdateOperation(w http.ResponseWriter, r *http.Request) {
	var req operationRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, h.log, err)
		return
	}
	in, err := req.toInput()
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	op, err := h.ledger.UpdateOperation(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, op)
}

// DeleteOperation removes an operation and re-chains its card.
func (h *FuelHandler) DeleteOperation(w http.ResponseWriter, r *http.Request) {
	if err := h.ledger.DeleteOperation(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
