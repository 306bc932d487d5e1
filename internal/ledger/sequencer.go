package ledger

import (
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

// SortChain orders a card's operations by (date, seq).
func SortChain(ops []models.FuelOperation) {
	sort.SliceStable(ops, func(i, j int) bool {
		return ops[i].Before(&ops[j])
	})
}

// NextSeq returns the sequence number for a new operation on the card whose
// operations are ops.
func NextSeq(ops []models.FuelOperation) int64 {
	var last int64
	for i := range ops {
		if ops[i].Seq > last {
			last = ops[i].Seq
		}
	}
	return last + 1
}

// PriorOperation returns the latest operation in ops strictly before (date, seq),
// ignoring the operation with ID excludeID. It returns nil when there is none, in
// which case the opening balance is zero.
func PriorOperation(ops []models.FuelOperation, date time.Time, seq int64, excludeID string) *models.FuelOperation {
	probe := &models.FuelOperation{Date: date, Seq: seq}
	var prior *models.FuelOperation
	for i := range ops {
		op := &ops[i]
		if op.ID == excludeID || !op.Before(probe) {
			continue
		}
		if prior == nil || prior.Before(op) {
			prior = op
		}
	}
	return prior
}

// OpeningBalance is the closing balance of prior, or zero.
func OpeningBalance(prior *models.FuelOperation) decimal.Decimal {
	if prior == nil {
		return decimal.Zero
	}
	return prior.ClosingBalance
}

// Rechain sorts ops and recomputes every balance from zero using each
// operation's own unit price. It returns copies of the operations whose stored
// balances changed.
func Rechain(ops []models.FuelOperation) ([]models.FuelOperation, error) {
	SortChain(ops)

	var changed []models.FuelOperation
	opening := decimal.Zero
	for i := range ops {
		op := &ops[i]
		before := *op
		if err := Apply(op, opening); err != nil {
			return nil, fmt.Errorf("operation %s: %w", op.ID, err)
		}
		if !sameBalances(&before, op) {
			changed = append(changed, *op)
		}
		opening = op.ClosingBalance
	}
	return changed, nil
}

func sameBalances(a, b *models.FuelOperation) bool {
	return a.OpeningBalance.Equal(b.OpeningBalance) &&
		a.AmountLiters.Equal(b.AmountLiters) &&
		a.ClosingBalance.Equal(b.ClosingBalance) &&
		a.ClosingBalanceLiters.Equal(b.ClosingBalanceLiters)
}

// ChainError names the first operation that breaks a card's chain.
type ChainError struct {
	OperationID string
	Index       int
	Reason      string
}

func (e *ChainError) Error() string {
	return fmt.Sprintf("chain broken at operation %s (position %d): %s", e.OperationID, e.Index, e.Reason)
}

// VerifyChain checks ops, which must belong to one card, without modifying them:
// they are ordered by (date, seq), each opening balance equals the previous
// closing balance (zero for the first), closing minus opening is the signed
// amount, and liters match amount over unit price.
func VerifyChain(ops []models.FuelOperation) error {
	prev := decimal.Zero
	for i := range ops {
		op := &ops[i]
		fail := func(format string, args ...any) error {
			return &ChainError{OperationID: op.ID, Index: i, Reason: fmt.Sprintf(format, args...)}
		}
		if i > 0 && op.Before(&ops[i-1]) {
			return fail("out of order")
		}
		if !op.OpeningBalance.Equal(prev) {
			return fail("opening balance %s, previous closing balance %s", op.OpeningBalance, prev)
		}

		want, err := ComputeBalance(op.OpeningBalance, BalanceInput{Type: op.Type, Amount: op.Amount, UnitPrice: op.UnitPrice})
		if err != nil {
			return fail("%v", err)
		}
		if !op.ClosingBalance.Equal(want.NewBalance) {
			return fail("closing balance %s, expected %s", op.ClosingBalance, want.NewBalance)
		}
		if !op.AmountLiters.Equal(want.AmountLiters) {
			return fail("amount liters %s, expected %s", op.AmountLiters, want.AmountLiters)
		}
		if !op.ClosingBalanceLiters.Equal(want.NewBalanceLiters) {
			return fail("closing balance liters %s, expected %s", op.ClosingBalanceLiters, want.NewBalanceLiters)
		}
		prev = op.ClosingBalance
	}
	return nil
}
