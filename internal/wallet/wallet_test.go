package wallet

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDeduct(t *testing.T) {
	tests := []struct {
		name          string
		purchased     int
		bonus         int
		amount        int
		wantErr       error
		wantBreakdown DeductionBreakdown
		wantPurchased int
		wantBonus     int
	}{
		{
			name:          "purchased covers the whole amount",
			purchased:     50,
			bonus:         20,
			amount:        40,
			wantBreakdown: DeductionBreakdown{Purchased: 40, Bonus: 0},
			wantPurchased: 10,
			wantBonus:     20,
		},
		{
			name:          "spills into bonus after purchased is drained",
			purchased:     30,
			bonus:         20,
			amount:        40,
			wantBreakdown: DeductionBreakdown{Purchased: 30, Bonus: 10},
			wantPurchased: 0,
			wantBonus:     10,
		},
		{
			name:          "exact total drains both pools",
			purchased:     30,
			bonus:         20,
			amount:        50,
			wantBreakdown: DeductionBreakdown{Purchased: 30, Bonus: 20},
			wantPurchased: 0,
			wantBonus:     0,
		},
		{
			name:          "zero amount is a no-op",
			purchased:     30,
			bonus:         20,
			amount:        0,
			wantBreakdown: DeductionBreakdown{},
			wantPurchased: 30,
			wantBonus:     20,
		},
		{
			name:          "bonus only wallet",
			purchased:     0,
			bonus:         20,
			amount:        15,
			wantBreakdown: DeductionBreakdown{Purchased: 0, Bonus: 15},
			wantPurchased: 0,
			wantBonus:     5,
		},
		{
			name:      "insufficient funds leaves pools untouched",
			purchased: 30,
			bonus:     20,
			amount:    51,
			wantErr:   ErrInsufficientFunds,
		},
		{
			name:      "negative amount rejected",
			purchased: 30,
			bonus:     20,
			amount:    -1,
			wantErr:   ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, err := New("wal_1", "dealer_1")
			require.NoError(t, err)
			w.PurchasedCredits = tt.purchased
			w.BonusCredits = tt.bonus

			breakdown, err := w.Deduct(tt.amount)

			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.Equal(t, tt.purchased, w.PurchasedCredits)
				assert.Equal(t, tt.bonus, w.BonusCredits)
				return
			}

			require.NoError(t, err)
			assert.Equal(t, tt.wantBreakdown, breakdown)
			assert.Equal(t, tt.amount, breakdown.Total())
			assert.Equal(t, tt.wantPurchased, w.PurchasedCredits)
			assert.Equal(t, tt.wantBonus, w.BonusCredits)
		})
	}
}

func TestCanAfford(t *testing.T) {
	w, err := New("wal_1", "dealer_1")
	require.NoError(t, err)
	w.PurchasedCredits = 10
	w.BonusCredits = 5

	ok, err := w.CanAfford(15)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = w.CanAfford(16)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = w.CanAfford(-1)
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestCredit(t *testing.T) {
	w, err := New("wal_1", "dealer_1")
	require.NoError(t, err)

	require.NoError(t, w.Credit(50, 5))
	assert.Equal(t, 50, w.PurchasedCredits)
	assert.Equal(t, 5, w.BonusCredits)
	assert.Equal(t, 55, w.TotalCredits())

	assert.ErrorIs(t, w.Credit(-1, 0), ErrInvalidAmount)
	assert.ErrorIs(t, w.Credit(0, -1), ErrInvalidAmount)
	assert.Equal(t, 55, w.TotalCredits())
}

func TestNewWallet(t *testing.T) {
	_, err := New("", "dealer_1")
	assert.Error(t, err)

	_, err = New("wal_1", "")
	assert.Error(t, err)

	w, err := New("wal_1", "dealer_1")
	require.NoError(t, err)
	assert.Zero(t, w.TotalCredits())
	assert.Zero(t, w.Version)
}

func TestPackageTotalCredits(t *testing.T) {
	p := RechargePackage{BaseCredits: 50, BonusCredits: 5}
	assert.Equal(t, 55, p.TotalCredits())
}
