package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/pagination"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func TestRepositoryCreateAndFind(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New())

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, found.Items, 1)
	assert.Equal(t, 2, found.Items[0].Quantity)
	assert.True(t, found.TotalPrice.Equal(decimal.RequireFromString("78.98")))
	assert.Equal(t, order.ShippingAddress, found.ShippingAddress)
	assert.False(t, found.IsPaid)
	assert.Nil(t, found.PaymentResult)

	_, err = repo.FindByID(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestRepositoryMarkPaidOnlyOnce(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New())
	paidAt := time.Now().UTC().Truncate(time.Second)

	first := types.PaymentResult{ID: "cap_1", Status: enums.PaymentStatusCompleted.String(), CapturedAmount: order.TotalPrice}
	ok, err := repo.MarkPaid(ctx, order.ID, first, paidAt)
	require.NoError(t, err)
	assert.True(t, ok)

	second := types.PaymentResult{ID: "cap_2", Status: enums.PaymentStatusCompleted.String()}
	ok, err = repo.MarkPaid(ctx, order.ID, second, paidAt.Add(time.Hour))
	require.NoError(t, err)
	assert.False(t, ok)

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, found.IsPaid)
	require.NotNil(t, found.PaidAt)
	assert.True(t, found.PaidAt.Equal(paidAt))
	require.NotNil(t, found.PaymentResult)
	assert.Equal(t, "cap_1", found.PaymentResult.ID)

	err = repo.SetPendingPayment(ctx, order.ID, types.PaymentResult{ID: "intent"})
	assert.Equal(t, ReasonAlreadyPaid, pkgerrors.Reason(err))
}

func TestRepositoryMarkDeliveredRequiresPaid(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New())

	err := repo.MarkDelivered(ctx, order.ID, time.Now().UTC())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, ReasonNotPaid, pkgerrors.Reason(err))
}

func TestRepositoryListByUserPaginates(t *testing.T) {
	repo := NewRepository(dbtest.Open(t))
	ctx := context.Background()
	userID := uuid.New()
	for i := 0; i < 3; i++ {
		seedOrder(t, repo, userID)
	}
	seedOrder(t, repo, uuid.New())

	page, next, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	require.NotEmpty(t, next)

	rest, next, err := repo.ListByUser(ctx, userID, pagination.Params{Limit: 2, Cursor: next})
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Empty(t, next)

	seen := map[uuid.UUID]bool{}
	for _, o := range append(page, rest...) {
		assert.Equal(t, userID, o.UserID)
		seen[o.ID] = true
	}
	assert.Len(t, seen, 3)

	_, _, err = repo.ListByUser(ctx, userID, pagination.Params{Cursor: "!!"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
