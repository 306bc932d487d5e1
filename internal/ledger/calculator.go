// Package ledger keeps the running balance chain of every fuel card consistent
// as operations are created, edited and deleted, and splits consumption across
// vehicles and reservoirs.
package ledger

import (
	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// BalanceInput is the part of an operation the calculator needs.
type BalanceInput struct {
	Type      models.OperationType
	Amount    decimal.Decimal
	UnitPrice decimal.Decimal
}

// Balance is the result of applying one operation to a prior balance.
type Balance struct {
	AmountLiters     decimal.Decimal
	NewBalance       decimal.Decimal
	NewBalanceLiters decimal.Decimal
}

// ComputeBalance applies op to prior. Balances are not clamped and may go
// negative. Liters are rounded to models.LitersScale places.
func ComputeBalance(prior decimal.Decimal, op BalanceInput) (Balance, error) {
	var next decimal.Decimal
	switch op.Type {
	case models.OperationCarga:
		next = prior.Add(op.Amount)
	case models.OperationConsumo:
		next = prior.Sub(op.Amount)
	default:
		return Balance{}, models.ErrInvalidOperationType
	}
	if !op.UnitPrice.IsPositive() {
		return Balance{}, models.ErrDivisionByZero
	}
	return Balance{
		AmountLiters:     op.Amount.DivRound(op.UnitPrice, models.LitersScale),
		NewBalance:       next,
		NewBalanceLiters: next.DivRound(op.UnitPrice, models.LitersScale),
	}, nil
}

// Apply computes op's balances from the given opening balance and stores them
// on op.
func Apply(op *models.FuelOperation, opening decimal.Decimal) error {
	b, err := ComputeBalance(opening, BalanceInput{Type: op.Type, Amount: op.Amount, UnitPrice: op.UnitPrice})
	if err != nil {
		return err
	}
	op.OpeningBalance = opening
	op.AmountLiters = b.AmountLiters
	op.ClosingBalance = b.NewBalance
	op.ClosingBalanceLiters = b.NewBalanceLiters
	return nil
}
