package orders

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/storefront-backend/pkg/db/dbtest"
	"github.com/angelmondragon/storefront-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storefront-backend/pkg/errors"
	"github.com/angelmondragon/storefront-backend/pkg/metrics"
	"github.com/angelmondragon/storefront-backend/pkg/types"
)

func newTestService(t *testing.T, notifier DeliveryNotifier) (Service, Repository) {
	t.Helper()
	conn, client := dbtest.Client(t)
	repo := NewRepository(conn)
	svc, err := NewService(repo, client, notifier, nil, nil)
	require.NoError(t, err)
	return svc, repo
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	_, err := NewService(nil, nil, nil, nil, nil)
	require.Error(t, err)
}

func TestGetIsOwnerScoped(t *testing.T) {
	svc, repo := newTestService(t, nil)
	ctx := context.Background()
	owner := uuid.New()
	order := seedOrder(t, repo, owner)

	dto, err := svc.Get(ctx, Viewer{UserID: owner}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, order.ID, dto.ID)
	require.Len(t, dto.Items, 1)

	_, err = svc.Get(ctx, Viewer{UserID: uuid.New()}, order.ID)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))

	dto, err = svc.Get(ctx, Viewer{UserID: uuid.New(), IsAdmin: true}, order.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, dto.UserID)
}

func TestDeliverUnpaidOrder(t *testing.T) {
	notifier := &recordingNotifier{}
	svc, repo := newTestService(t, notifier)
	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New())

	_, err := svc.Deliver(ctx, order.ID)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))
	assert.Equal(t, ReasonNotPaid, pkgerrors.Reason(err))

	found, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	assert.False(t, found.IsDelivered)
	assert.Nil(t, found.DeliveredAt)
	assert.Empty(t, notifier.delivered)

	_, err = svc.Deliver(ctx, uuid.New())
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeNotFound))
}

func TestDeliverNotifiesOnce(t *testing.T) {
	notifier := &recordingNotifier{err: errors.New("broker down")}
	conn, client := dbtest.Client(t)
	repo := NewRepository(conn)
	reg := prometheus.NewRegistry()
	m := metrics.NewOrderMetrics(reg)
	svc, err := NewService(repo, client, notifier, m, nil)
	require.NoError(t, err)

	ctx := context.Background()
	order := seedOrder(t, repo, uuid.New())
	ok, err := repo.MarkPaid(ctx, order.ID, types.PaymentResult{ID: "cash", Status: enums.PaymentStatusManual.String()}, time.Now().UTC())
	require.NoError(t, err)
	require.True(t, ok)

	first, err := svc.Deliver(ctx, order.ID)
	require.NoError(t, err, "notifier failures never fail the transition")
	assert.True(t, first.IsDelivered)
	require.NotNil(t, first.DeliveredAt)

	second, err := svc.Deliver(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, second.IsDelivered)

	assert.Equal(t, []uuid.UUID{order.ID}, notifier.delivered)
	expected := `
# HELP storefront_orders_delivered_total Orders marked delivered.
# TYPE storefront_orders_delivered_total counter
storefront_orders_delivered_total 1
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "storefront_orders_delivered_total"))
}
