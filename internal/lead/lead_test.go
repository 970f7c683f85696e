package lead

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLead(t *testing.T) *Lead {
	t.Helper()
	l, err := New("lead_1", "cust_1", "9876543210")
	require.NoError(t, err)
	return l
}

func TestLifecycle(t *testing.T) {
	l := newTestLead(t)
	assert.Equal(t, StatusNew, l.Status)
	assert.False(t, l.Available())
	assert.False(t, l.AcceptingOffers())

	require.NoError(t, l.Verify())
	assert.Equal(t, StatusVerified, l.Status)
	require.NotNil(t, l.VerifiedAt)
	assert.True(t, l.Available())

	require.NoError(t, l.MarkOfferReceived())
	assert.Equal(t, StatusOfferReceived, l.Status)

	// Further offers keep the status.
	require.NoError(t, l.MarkOfferReceived())
	assert.Equal(t, StatusOfferReceived, l.Status)

	require.NoError(t, l.Award("dealer_1"))
	assert.Equal(t, StatusAwarded, l.Status)
	assert.Equal(t, "dealer_1", l.AwardedDealerID)
	require.NotNil(t, l.AwardedAt)
	assert.False(t, l.Available())

	require.NoError(t, l.Close())
	assert.Equal(t, StatusClosed, l.Status)
}

func TestInvalidTransitions(t *testing.T) {
	t.Run("verify twice", func(t *testing.T) {
		l := newTestLead(t)
		require.NoError(t, l.Verify())
		assert.ErrorIs(t, l.Verify(), ErrInvalidTransition)
	})

	t.Run("offer on new lead", func(t *testing.T) {
		l := newTestLead(t)
		assert.ErrorIs(t, l.MarkOfferReceived(), ErrInvalidTransition)
	})

	t.Run("award new lead", func(t *testing.T) {
		l := newTestLead(t)
		assert.ErrorIs(t, l.Award("dealer_1"), ErrInvalidTransition)
	})

	t.Run("award twice", func(t *testing.T) {
		l := newTestLead(t)
		require.NoError(t, l.Verify())
		require.NoError(t, l.Award("dealer_1"))

		err := l.Award("dealer_2")
		assert.ErrorIs(t, err, ErrInvalidTransition)
		assert.Equal(t, "dealer_1", l.AwardedDealerID)
	})

	t.Run("close unawarded lead", func(t *testing.T) {
		l := newTestLead(t)
		require.NoError(t, l.Verify())
		assert.ErrorIs(t, l.Close(), ErrInvalidTransition)
	})

	t.Run("closed is terminal", func(t *testing.T) {
		l := newTestLead(t)
		require.NoError(t, l.Verify())
		require.NoError(t, l.Award("dealer_1"))
		require.NoError(t, l.Close())

		assert.ErrorIs(t, l.Verify(), ErrInvalidTransition)
		assert.ErrorIs(t, l.MarkOfferReceived(), ErrInvalidTransition)
		assert.ErrorIs(t, l.Award("dealer_2"), ErrInvalidTransition)
		assert.ErrorIs(t, l.Close(), ErrInvalidTransition)
	})

	t.Run("award requires dealer", func(t *testing.T) {
		l := newTestLead(t)
		require.NoError(t, l.Verify())
		assert.Error(t, l.Award(""))
	})
}

func TestStatusValid(t *testing.T) {
	for _, s := range []Status{StatusNew, StatusVerified, StatusOfferReceived, StatusAwarded, StatusClosed} {
		assert.True(t, s.Valid(), string(s))
	}
	assert.False(t, Status("BOUGHT").Valid())
	assert.False(t, Status("").Valid())
}

func TestViewHidesCustomerMobile(t *testing.T) {
	l := newTestLead(t)
	l.VehicleModel = "Swift"
	require.NoError(t, l.Verify())

	// Browsing dealers never see the mobile number.
	v := l.ViewFor("dealer_1")
	assert.Empty(t, v.CustomerMobile)
	assert.Equal(t, "Swift", v.VehicleModel)

	require.NoError(t, l.Award("dealer_1"))

	// Only the awarded dealer sees it.
	assert.Equal(t, "9876543210", l.ViewFor("dealer_1").CustomerMobile)
	assert.Empty(t, l.ViewFor("dealer_2").CustomerMobile)
	assert.Empty(t, l.ViewFor("").CustomerMobile)
}

func TestOwnerView(t *testing.T) {
	l := newTestLead(t)
	v := l.OwnerView()
	assert.Equal(t, "9876543210", v.CustomerMobile)
}

func TestNewOffer(t *testing.T) {
	o, err := NewOffer("off_1", "lead_1", "dealer_1", 4500, "New", true, nil)
	require.NoError(t, err)
	assert.Equal(t, 4500, o.Price)

	_, err = NewOffer("off_1", "lead_1", "dealer_1", 0, "New", true, nil)
	assert.Error(t, err)

	_, err = NewOffer("off_1", "", "dealer_1", 4500, "New", true, nil)
	assert.Error(t, err)
}
