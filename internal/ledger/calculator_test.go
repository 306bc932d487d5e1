package ledger

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ukydev/fleet-backoffice/internal/models"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestComputeBalance(t *testing.T) {
	tests := []struct {
		name         string
		prior        string
		op           BalanceInput
		wantLiters   string
		wantBalance  string
		wantBalanceL string
	}{
		{
			name:         "carga from empty card",
			prior:        "0",
			op:           BalanceInput{Type: models.OperationCarga, Amount: dec("100"), UnitPrice: dec("2")},
			wantLiters:   "50",
			wantBalance:  "100",
			wantBalanceL: "50",
		},
		{
			name:         "consumo after carga",
			prior:        "100",
			op:           BalanceInput{Type: models.OperationConsumo, Amount: dec("30"), UnitPrice: dec("2")},
			wantLiters:   "15",
			wantBalance:  "70",
			wantBalanceL: "35",
		},
		{
			name:         "consumo below zero is not clamped",
			prior:        "10",
			op:           BalanceInput{Type: models.OperationConsumo, Amount: dec("25"), UnitPrice: dec("2.5")},
			wantLiters:   "10",
			wantBalance:  "-15",
			wantBalanceL: "-6",
		},
		{
			name:         "fractional price",
			prior:        "0",
			op:           BalanceInput{Type: models.OperationCarga, Amount: dec("50.35"), UnitPrice: dec("25.175")},
			wantLiters:   "2",
			wantBalance:  "50.35",
			wantBalanceL: "2",
		},
		{
			name:         "repeating liters are rounded",
			prior:        "0",
			op:           BalanceInput{Type: models.OperationCarga, Amount: dec("10"), UnitPrice: dec("3")},
			wantLiters:   "3.333333",
			wantBalance:  "10",
			wantBalanceL: "3.333333",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ComputeBalance(dec(tt.prior), tt.op)
			require.NoError(t, err)
			assert.True(t, got.AmountLiters.Equal(dec(tt.wantLiters)), "liters %s", got.AmountLiters)
			assert.True(t, got.NewBalance.Equal(dec(tt.wantBalance)), "balance %s", got.NewBalance)
			assert.True(t, got.NewBalanceLiters.Equal(dec(tt.wantBalanceL)), "balance liters %s", got.NewBalanceLiters)
		})
	}
}

func TestComputeBalance_Errors(t *testing.T) {
	_, err := ComputeBalance(decimal.Zero, BalanceInput{Type: models.OperationCarga, Amount: dec("10"), UnitPrice: decimal.Zero})
	assert.ErrorIs(t, err, models.ErrDivisionByZero)

	_, err = ComputeBalance(decimal.Zero, BalanceInput{Type: models.OperationConsumo, Amount: dec("10"), UnitPrice: dec("-1")})
	assert.ErrorIs(t, err, models.ErrDivisionByZero)

	_, err = ComputeBalance(decimal.Zero, BalanceInput{Type: "Transfer", Amount: dec("10"), UnitPrice: dec("2")})
	assert.ErrorIs(t, err, models.ErrInvalidOperationType)
}

func TestApply(t *testing.T) {
	op := models.FuelOperation{Type: models.OperationConsumo, Amount: dec("30"), UnitPrice: dec("2")}
	require.NoError(t, Apply(&op, dec("100")))

	assert.True(t, op.OpeningBalance.Equal(dec("100")))
	assert.True(t, op.AmountLiters.Equal(dec("15")))
	assert.True(t, op.ClosingBalance.Equal(dec("70")))
	assert.True(t, op.ClosingBalanceLiters.Equal(dec("35")))
	assert.True(t, op.ClosingBalance.Sub(op.OpeningBalance).Equal(op.Amount.Neg()))
}
