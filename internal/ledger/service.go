package ledger

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/fleet-backoffice/internal/db"
	"github.com/ukydev/fleet-backoffice/internal/keylock"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// OperationInput is the caller-supplied part of a fuel operation. VehicleID is
// shorthand for a single destination that receives all of the operation's
// liters; it cannot be combined with Destinations.
type OperationInput struct {
	Type         models.OperationType `json:"type"`
	Date         time.Time            `json:"date"`
	Amount       decimal.Decimal      `json:"amount"`
	FuelCardID   string               `json:"fuel_card_id"`
	VehicleID    string               `json:"vehicle_id,omitempty"`
	Destinations []models.Destination `json:"destinations,omitempty"`
}

// ChainReport is the result of auditing one card's chain.
type ChainReport struct {
	FuelCardID  string `json:"fuel_card_id"`
	Operations  int    `json:"operations"`
	Consistent  bool   `json:"consistent"`
	OperationID string `json:"operation_id,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

// Service records fuel operations. Every mutation runs in one store transaction
// while holding the lock of each card it touches, and leaves the whole chain of
// those cards recomputed.
type Service struct {
	store db.Store
	locks *keylock.Map
	log   *logrus.Entry
}

// NewService creates a ledger service on store.
func NewService(store db.Store, logger *logrus.Logger) *Service {
	return &Service{
		store: store,
		locks: keylock.New(),
		log:   logger.WithField("component", "ledger"),
	}
}

func validateInput(in *OperationInput) error {
	typ, err := models.ParseOperationType(string(in.Type))
	if err != nil {
		return err
	}
	in.Type = typ
	if in.FuelCardID == "" {
		return models.Invalid("fuel_card_id", "is required")
	}
	if in.Date.IsZero() {
		return models.Invalid("date", "is required")
	}
	if !in.Amount.IsPositive() {
		return models.Invalid("amount", "must be greater than zero")
	}
	if in.Amount.GreaterThan(models.MaxAmount) {
		return models.Invalid("amount", "must not exceed %s", models.MaxAmount)
	}
	if !models.HasScale(in.Amount, models.AmountScale) {
		return models.Invalid("amount", "must have at most %d decimal places", models.AmountScale)
	}
	if in.VehicleID != "" && len(in.Destinations) > 0 {
		return models.Invalid("vehicle_id", "cannot be combined with destinations")
	}
	in.Date = in.Date.UTC().Truncate(time.Millisecond)
	return nil
}

// CreateOperation records a new operation, seeding its opening balance from the
// latest prior operation on the card, and re-chains the card.
func (s *Service) CreateOperation(ctx context.Context, in OperationInput) (*models.FuelOperation, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}

	unlock := s.locks.Lock(in.FuelCardID)
	defer unlock()

	var created *models.FuelOperation
	err := s.store.WithTx(ctx, func(ctx context.Context, tx db.Collections) error {
		card, err := tx.FuelCards().FindFuelCardByID(ctx, in.FuelCardID)
		if err != nil {
			return err
		}
		ops, err := tx.FuelOperations().ListCardOperations(ctx, card.ID)
		if err != nil {
			return err
		}

		op := models.FuelOperation{
			ID:         uuid.NewString(),
			FuelCardID: card.ID,
			Type:       in.Type,
			Date:       in.Date,
			Seq:        NextSeq(ops),
			UnitPrice:  card.UnitPrice,
			Amount:     in.Amount,
		}
		if err := Apply(&op, OpeningBalance(PriorOperation(ops, op.Date, op.Seq, ""))); err != nil {
			return err
		}
		dists, err := s.allocate(ctx, tx, &op, in)
		if err != nil {
			return err
		}

		if err := tx.FuelOperations().InsertFuelOperation(ctx, op); err != nil {
			return err
		}
		if len(dists) > 0 {
			if err := tx.Distributions().ReplaceDistributions(ctx, op.ID, dists); err != nil {
				return err
			}
		}
		if err := s.rechain(ctx, tx, card.ID); err != nil {
			return err
		}
		created, err = loadOperation(ctx, tx, op.ID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"operation_id":    created.ID,
		"fuel_card_id":    created.FuelCardID,
		"type":            created.Type,
		"amount":          created.Amount.String(),
		"closing_balance": created.ClosingBalance.String(),
	}).Info("Fuel operation created")
	return created, nil
}

// UpdateOperation replaces the fields of an operation. The unit price is taken
// again from the (possibly new) card, the opening balance is searched excluding
// the operation itself, and every affected card is re-chained.
func (s *Service) UpdateOperation(ctx context.Context, id string, in OperationInput) (*models.FuelOperation, error) {
	if err := validateInput(&in); err != nil {
		return nil, err
	}
	current, err := s.store.FuelOperations().FindFuelOperationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	oldCardID := current.FuelCardID

	unlock := s.locks.Lock(oldCardID, in.FuelCardID)
	defer unlock()

	var updated *models.FuelOperation
	err = s.store.WithTx(ctx, func(ctx context.Context, tx db.Collections) error {
		existing, err := tx.FuelOperations().FindFuelOperationByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.FuelCardID != oldCardID {
			return &models.ConflictError{Entity: "fuel operation", Reason: "moved to another card concurrently, retry the update"}
		}
		card, err := tx.FuelCards().FindFuelCardByID(ctx, in.FuelCardID)
		if err != nil {
			return err
		}
		ops, err := tx.FuelOperations().ListCardOperations(ctx, card.ID)
		if err != nil {
			return err
		}

		op := *existing
		op.Type = in.Type
		op.Date = in.Date
		op.Amount = in.Amount
		op.UnitPrice = card.UnitPrice
		if card.ID != oldCardID {
			op.FuelCardID = card.ID
			op.Seq = NextSeq(ops)
		}
		if err := Apply(&op, OpeningBalance(PriorOperation(ops, op.Date, op.Seq, op.ID))); err != nil {
			return err
		}
		dists, err := s.allocate(ctx, tx, &op, in)
		if err != nil {
			return err
		}

		if err := tx.FuelOperations().UpdateFuelOperation(ctx, id, op); err != nil {
			return err
		}
		if err := tx.Distributions().ReplaceDistributions(ctx, id, dists); err != nil {
			return err
		}
		if err := s.rechain(ctx, tx, card.ID); err != nil {
			return err
		}
		if card.ID != oldCardID {
			if err := s.rechain(ctx, tx, oldCardID); err != nil {
				return err
			}
		}
		updated, err = loadOperation(ctx, tx, id)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"operation_id":    updated.ID,
		"fuel_card_id":    updated.FuelCardID,
		"previous_card":   oldCardID,
		"closing_balance": updated.ClosingBalance.String(),
	}).Info("Fuel operation updated")
	return updated, nil
}

// DeleteOperation removes an operation with its distributions and re-chains the
// remaining operations of its card.
func (s *Service) DeleteOperation(ctx context.Context, id string) error {
	current, err := s.store.FuelOperations().FindFuelOperationByID(ctx, id)
	if err != nil {
		return err
	}

	unlock := s.locks.Lock(current.FuelCardID)
	defer unlock()

	err = s.store.WithTx(ctx, func(ctx context.Context, tx db.Collections) error {
		existing, err := tx.FuelOperations().FindFuelOperationByID(ctx, id)
		if err != nil {
			return err
		}
		if existing.FuelCardID != current.FuelCardID {
			return &models.ConflictError{Entity: "fuel operation", Reason: "moved to another card concurrently, retry the delete"}
		}
		if err := tx.FuelOperations().DeleteFuelOperation(ctx, id); err != nil {
			return err
		}
		return s.rechain(ctx, tx, existing.FuelCardID)
	})
	if err != nil {
		return err
	}

	s.log.WithFields(logrus.Fields{
		"operation_id": id,
		"fuel_card_id": current.FuelCardID,
	}).Info("Fuel operation deleted")
	return nil
}

// GetOperation returns an operation with its distributions.
func (s *Service) GetOperation(ctx context.Context, id string) (*models.FuelOperation, error) {
	return loadOperation(ctx, s.store, id)
}

// ListOperations lists operations matching filter.
func (s *Service) ListOperations(ctx context.Context, filter models.FuelOperationFilter) ([]models.FuelOperation, error) {
	if err := filter.Validate(); err != nil {
		return nil, err
	}
	return s.store.FuelOperations().ListFuelOperations(ctx, filter)
}

// CardOperations returns the chain of a card in order.
func (s *Service) CardOperations(ctx context.Context, cardID string) ([]models.FuelOperation, error) {
	if _, err := s.store.FuelCards().FindFuelCardByID(ctx, cardID); err != nil {
		return nil, err
	}
	return s.store.FuelOperations().ListCardOperations(ctx, cardID)
}

// CardBalance returns the balance after the last operation of a card.
func (s *Service) CardBalance(ctx context.Context, cardID string) (*models.CardBalance, error) {
	ops, err := s.CardOperations(ctx, cardID)
	if err != nil {
		return nil, err
	}
	balance := &models.CardBalance{
		FuelCardID:    cardID,
		Balance:       decimal.Zero,
		BalanceLiters: decimal.Zero,
		Operations:    len(ops),
	}
	if len(ops) > 0 {
		last := ops[len(ops)-1]
		balance.Balance = last.ClosingBalance
		balance.BalanceLiters = last.ClosingBalanceLiters
		balance.LastOperationAt = &last.Date
	}
	return balance, nil
}

// VerifyCard audits the stored chain of a card without changing it.
func (s *Service) VerifyCard(ctx context.Context, cardID string) (*ChainReport, error) {
	ops, err := s.CardOperations(ctx, cardID)
	if err != nil {
		return nil, err
	}
	report := &ChainReport{FuelCardID: cardID, Operations: len(ops), Consistent: true}

	var chainErr *ChainError
	if err := VerifyChain(ops); errors.As(err, &chainErr) {
		report.Consistent = false
		report.OperationID = chainErr.OperationID
		report.Reason = chainErr.Reason
		s.log.WithFields(logrus.Fields{
			"fuel_card_id": cardID,
			"operation_id": chainErr.OperationID,
		}).Warn(chainErr.Reason)
	} else if err != nil {
		return nil, err
	}
	return report, nil
}

// allocate expands the vehicle shorthand, splits the operation and checks that
// every destination exists.
func (s *Service) allocate(ctx context.Context, tx db.Collections, op *models.FuelOperation, in OperationInput) ([]models.FuelDistribution, error) {
	dests := in.Destinations
	if in.VehicleID != "" {
		dests = []models.Destination{{VehicleID: in.VehicleID, Liters: op.AmountLiters}}
	}
	dists, err := Allocate(op, dests)
	if err != nil {
		return nil, err
	}
	for _, d := range dists {
		if d.VehicleID != "" {
			_, err = tx.Vehicles().FindVehicleByID(ctx, d.VehicleID)
		} else {
			_, err = tx.Reservoirs().FindReservoirByID(ctx, d.ReservoirID)
		}
		if err != nil {
			return nil, err
		}
	}
	return dists, nil
}

// rechain recomputes a card's chain inside tx and writes back what changed.
func (s *Service) rechain(ctx context.Context, tx db.Collections, cardID string) error {
	ops, err := tx.FuelOperations().ListCardOperations(ctx, cardID)
	if err != nil {
		return err
	}
	changed, err := Rechain(ops)
	if err != nil {
		return err
	}
	for _, op := range changed {
		if err := tx.FuelOperations().UpdateFuelOperation(ctx, op.ID, op); err != nil {
			return err
		}
	}
	if len(changed) > 0 {
		s.log.WithFields(logrus.Fields{
			"fuel_card_id": cardID,
			"rechained":    len(changed),
		}).Debug("Re-chained fuel card")
	}
	return nil
}

func loadOperation(ctx context.Context, c db.Collections, id string) (*models.FuelOperation, error) {
	op, err := c.FuelOperations().FindFuelOperationByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if op.Distributions, err = c.Distributions().ListDistributions(ctx, id); err != nil {
		return nil, err
	}
	return op, nil
}
