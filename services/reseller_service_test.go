package services

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loro-platform/models"
)

func TestResellers_CRUD(t *testing.T) {
	db := newTestDB(t)
	svc := NewResellerService(db)
	actor := Actor{UserID: "m", Role: models.RoleManager, OrganisationID: "org-1"}

	r, err := svc.Create(testCtx, actor, ResellerInput{
		Name: "Cape Tech", Email: "Sales@CapeTech.test",
		CommissionRate: decimal.RequireFromString("7.5"),
		Address:        models.Address{City: "Cape Town", Country: "ZA"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sales@capetech.test", r.Email)
	assert.Equal(t, models.ResellerActive, r.Status)

	_, err = svc.Create(testCtx, actor, ResellerInput{Name: "Dup", Email: "sales@capetech.test"})
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Create(testCtx, actor, ResellerInput{Name: "Greedy", Email: "g@x.test", CommissionRate: decimal.NewFromInt(150)})
	assert.ErrorIs(t, err, ErrValidation)

	updated, err := svc.Update(testCtx, actor, r.ID, ResellerInput{Name: "Cape Tech Ltd", Email: "sales@capetech.test", Status: "converted"})
	require.NoError(t, err)
	assert.Equal(t, models.ResellerConverted, updated.Status)

	list, total, err := svc.List(testCtx, actor, "converted", "ltd", 1, 10)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "Cape Town", list[0].Address.City)

	require.NoError(t, svc.Delete(testCtx, actor, r.ID))
	_, err = svc.Get(testCtx, actor, r.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.Restore(testCtx, actor, r.ID)
	require.NoError(t, err)
}
