package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTransaction(t *testing.T) {
	txn, err := New("txn_1", "wal_1", "dealer_1", DirectionDebit, 30, 10, "Lead won: Swift", "")
	require.NoError(t, err)
	assert.Equal(t, 40, txn.Amount)
	assert.Equal(t, 30, txn.Purchased)
	assert.Equal(t, 10, txn.Bonus)

	tests := []struct {
		name      string
		direction Direction
		purchased int
		bonus     int
	}{
		{"zero amount", DirectionCredit, 0, 0},
		{"negative purchased", DirectionDebit, -1, 5},
		{"negative bonus", DirectionDebit, 5, -1},
		{"unknown direction", Direction("TRANSFER"), 5, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("txn_1", "wal_1", "dealer_1", tt.direction, tt.purchased, tt.bonus, "", "")
			assert.Error(t, err)
		})
	}

	_, err = New("", "wal_1", "dealer_1", DirectionCredit, 5, 0, "", "")
	assert.Error(t, err)
	_, err = New("txn_1", "", "dealer_1", DirectionCredit, 5, 0, "", "")
	assert.Error(t, err)
	_, err = New("txn_1", "wal_1", "", DirectionCredit, 5, 0, "", "")
	assert.Error(t, err)
}

func TestFold(t *testing.T) {
	mustNew := func(id string, d Direction, purchased, bonus int) *Transaction {
		txn, err := New(id, "wal_1", "dealer_1", d, purchased, bonus, "", "")
		require.NoError(t, err)
		return txn
	}

	txns := []*Transaction{
		mustNew("txn_1", DirectionCredit, 50, 5),
		mustNew("txn_2", DirectionDebit, 40, 0),
		mustNew("txn_3", DirectionCredit, 10, 2),
		mustNew("txn_4", DirectionDebit, 20, 7),
	}

	b := Fold(txns)
	assert.Equal(t, Balances{Purchased: 0, Bonus: 0}, b)

	b = Fold(txns[:3])
	assert.Equal(t, Balances{Purchased: 20, Bonus: 7}, b)
	assert.Equal(t, 27, b.Total())

	assert.Equal(t, Balances{}, Fold(nil))
}
