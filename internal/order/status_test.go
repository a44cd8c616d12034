package order

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidStatus(t *testing.T) {
	for _, s := range AllStatuses {
		assert.True(t, ValidStatus(s), string(s))
	}
	assert.False(t, ValidStatus("refunded"))
	assert.False(t, ValidStatus(""))
	assert.False(t, ValidStatus("PENDING"))
}

func TestStatusPolicy_Check(t *testing.T) {
	t.Run("UnlockedAllowsAnyEnumValue", func(t *testing.T) {
		p := StatusPolicy{}
		for _, from := range AllStatuses {
			for _, to := range AllStatuses {
				assert.NoError(t, p.Check(from, to))
			}
		}
	})

	t.Run("UnknownValueRejected", func(t *testing.T) {
		p := StatusPolicy{}
		err := p.Check(StatusPending, "refunded")
		var statusErr *InvalidStatusError
		assert.ErrorAs(t, err, &statusErr)
		assert.Equal(t, "refunded", statusErr.Status)
	})

	t.Run("LockedFinalStates", func(t *testing.T) {
		p := StatusPolicy{LockFinal: true}

		assert.ErrorIs(t, p.Check(StatusDelivered, StatusPending), ErrStatusLocked)
		assert.ErrorIs(t, p.Check(StatusCancelled, StatusShipped), ErrStatusLocked)

		// Re-asserting the same final value is a no-op, not a violation.
		assert.NoError(t, p.Check(StatusDelivered, StatusDelivered))

		// Non-final states stay freely assignable.
		assert.NoError(t, p.Check(StatusShipped, StatusPending))
	})
}
