package plans

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kariyerai/backend/internal/models"
)

func TestParse(t *testing.T) {
	id, err := Parse(" premium ")
	require.NoError(t, err)
	assert.Equal(t, models.PlanPremium, id)

	_, err = Parse("GOLD")
	assert.ErrorIs(t, err, ErrUnknownPlan)
}

func TestPurchasable(t *testing.T) {
	assert.False(t, Purchasable(models.PlanFree))
	assert.True(t, Purchasable(models.PlanBasic))
	assert.True(t, Purchasable(models.PlanPremium))
	assert.False(t, Purchasable("GOLD"))
}

func TestAll_ReturnsCopy(t *testing.T) {
	list := All()
	list[0].Price = 12345
	assert.Equal(t, 0, MustLookup(models.PlanFree).Price)
}

func TestMustLookup_FallsBackToFree(t *testing.T) {
	assert.Equal(t, models.PlanFree, MustLookup("UNKNOWN").ID)
}
