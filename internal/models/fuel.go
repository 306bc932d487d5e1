package models

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// OperationType is the kind of ledger event recorded on a fuel card.
type OperationType string

const (
	// OperationCarga credits the card (refill).
	OperationCarga OperationType = "Carga"
	// OperationConsumo debits the card and is attributed to destinations.
	OperationConsumo OperationType = "Consumo"
)

// ParseOperationType accepts only the two known operation types.
func ParseOperationType(s string) (OperationType, error) {
	switch t := OperationType(strings.TrimSpace(s)); t {
	case OperationCarga, OperationConsumo:
		return t, nil
	default:
		return "", ErrInvalidOperationType
	}
}

// Stored decimals stay within these bounds so every backend can hold them
// exactly (Mongo's Decimal128 keeps 34 significant digits).
const (
	AmountScale int32 = 4
	PriceScale  int32 = 6
	LitersScale int32 = 6
)

// MaxAmount caps operation amounts and unit prices.
var MaxAmount = decimal.New(1, 12)

// HasScale reports whether d has at most places decimal places.
func HasScale(d decimal.Decimal, places int32) bool {
	return d.Equal(d.Round(places))
}

// FuelCard is a prepaid card whose balance is tracked by the fuel ledger.
type FuelCard struct {
	ID          string          `bson:"_id" json:"id"`
	Number      string          `bson:"number" json:"number"`
	FuelType    string          `bson:"fuel_type" json:"fuel_type"`
	UnitPrice   decimal.Decimal `bson:"unit_price" json:"unit_price"`
	Currency    string          `bson:"currency" json:"currency"`
	ExpiresAt   *time.Time      `bson:"expires_at,omitempty" json:"expires_at,omitempty"`
	IsReservoir bool            `bson:"is_reservoir" json:"is_reservoir"`
	CreatedAt   time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time       `bson:"updated_at" json:"updated_at"`
}

// Validate checks required fields.
func (c *FuelCard) Validate() error {
	c.Number = strings.TrimSpace(c.Number)
	if c.Number == "" {
		return Invalid("number", "is required")
	}
	if !c.UnitPrice.IsPositive() {
		return Invalid("unit_price", "must be greater than zero")
	}
	if c.UnitPrice.GreaterThan(MaxAmount) || !HasScale(c.UnitPrice, PriceScale) {
		return Invalid("unit_price", "must be at most %s with %d decimal places", MaxAmount, PriceScale)
	}
	if c.Currency == "" {
		c.Currency = "CUP"
	}
	return nil
}

// FuelOperation is one ledger event on a card. Balances are in the card currency.
type FuelOperation struct {
	ID                   string             `bson:"_id" json:"id"`
	FuelCardID           string             `bson:"fuel_card_id" json:"fuel_card_id"`
	Type                 OperationType      `bson:"type" json:"type"`
	Date                 time.Time          `bson:"date" json:"date"`
	Seq                  int64              `bson:"seq" json:"seq"`
	UnitPrice            decimal.Decimal    `bson:"unit_price" json:"unit_price"`
	OpeningBalance       decimal.Decimal    `bson:"opening_balance" json:"opening_balance"`
	Amount               decimal.Decimal    `bson:"amount" json:"amount"`
	AmountLiters         decimal.Decimal    `bson:"amount_liters" json:"amount_liters"`
	ClosingBalance       decimal.Decimal    `bson:"closing_balance" json:"closing_balance"`
	ClosingBalanceLiters decimal.Decimal    `bson:"closing_balance_liters" json:"closing_balance_liters"`
	Distributions        []FuelDistribution `bson:"-" json:"distributions,omitempty"`
	CreatedAt            time.Time          `bson:"created_at" json:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at" json:"updated_at"`
}

// Before reports whether o sorts before other in the card's chain.
func (o *FuelOperation) Before(other *FuelOperation) bool {
	if !o.Date.Equal(other.Date) {
		return o.Date.Before(other.Date)
	}
	return o.Seq < other.Seq
}

// FuelDistribution assigns part of a consumo to one vehicle or reservoir.
type FuelDistribution struct {
	ID          string          `bson:"_id" json:"id"`
	OperationID string          `bson:"operation_id" json:"operation_id"`
	VehicleID   string          `bson:"vehicle_id,omitempty" json:"vehicle_id,omitempty"`
	ReservoirID string          `bson:"reservoir_id,omitempty" json:"reservoir_id,omitempty"`
	Liters      decimal.Decimal `bson:"liters" json:"liters"`
	CreatedAt   time.Time       `bson:"created_at" json:"created_at"`
}

// Destination is the requested target of a distribution.
type Destination struct {
	VehicleID   string          `json:"vehicle_id,omitempty"`
	ReservoirID string          `json:"reservoir_id,omitempty"`
	Liters      decimal.Decimal `json:"liters"`
}

// Key identifies the destination regardless of liters.
func (d Destination) Key() string {
	if d.VehicleID != "" {
		return "vehicle:" + d.VehicleID
	}
	return "reservoir:" + d.ReservoirID
}

// CardBalance is the current position of a fuel card.
type CardBalance struct {
	FuelCardID      string          `json:"fuel_card_id"`
	Balance         decimal.Decimal `json:"balance"`
	BalanceLiters   decimal.Decimal `json:"balance_liters"`
	Operations      int             `json:"operations"`
	LastOperationAt *time.Time      `json:"last_operation_at,omitempty"`
}

// FuelOperationFilter lists the recognized filters for fuel operation queries.
type FuelOperationFilter struct {
	FuelCardID string
	Type       OperationType
	VehicleID  string
	From       *time.Time
	To         *time.Time
}

// Validate rejects unknown types and inverted ranges.
func (f FuelOperationFilter) Validate() error {
	if f.Type != "" {
		if _, err := ParseOperationType(string(f.Type)); err != nil {
			return err
		}
	}
	if f.From != nil && f.To != nil && f.To.Before(*f.From) {
		return Invalid("to", "must not be before from")
	}
	return nil
}

// Reservoir is a fuel storage tank that can receive consumo distributions.
type Reservoir struct {
	ID             string          `bson:"_id" json:"id"`
	Name           string          `bson:"name" json:"name"`
	FuelType       string          `bson:"fuel_type" json:"fuel_type"`
	CapacityLiters decimal.Decimal `bson:"capacity_liters" json:"capacity_liters"`
	Location       string          `bson:"location" json:"location"`
	StockLiters    decimal.Decimal `bson:"-" json:"stock_liters"`
	CreatedAt      time.Time       `bson:"created_at" json:"created_at"`
	UpdatedAt      time.Time       `bson:"updated_at" json:"updated_at"`
}

// Validate checks required fields.
func (r *Reservoir) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return Invalid("name", "is required")
	}
	if r.CapacityLiters.IsNegative() {
		return Invalid("capacity_liters", "must not be negative")
	}
	return nil
}
