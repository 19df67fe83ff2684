package redisstore_test

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/agencyhub/store/redisstore"
)

func setup(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestEventLedger(t *testing.T) {
	t.Parallel()

	mr, client := setup(t)
	ledger := redisstore.NewEventLedger(client, redisstore.WithPrefix("test:evt:"), redisstore.WithRetention(time.Hour))
	ctx := context.Background()

	seen, err := ledger.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen)

	require.NoError(t, ledger.Record(ctx, "evt_1", "customer.subscription.updated"))
	require.NoError(t, ledger.Record(ctx, "evt_1", "ignored.second.type"))

	seen, err = ledger.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.True(t, seen)

	val, err := mr.Get("test:evt:evt_1")
	require.NoError(t, err)
	assert.Equal(t, "customer.subscription.updated", val)
	assert.Equal(t, time.Hour, mr.TTL("test:evt:evt_1"))

	mr.FastForward(2 * time.Hour)
	seen, err = ledger.Seen(ctx, "evt_1")
	require.NoError(t, err)
	assert.False(t, seen, "ids expire after the retention")
}

func TestEventLedgerUnavailable(t *testing.T) {
	t.Parallel()

	mr, client := setup(t)
	ledger := redisstore.NewEventLedger(client)
	mr.Close()

	_, err := ledger.Seen(context.Background(), "evt_1")
	require.Error(t, err)
	require.Error(t, ledger.Record(context.Background(), "evt_1", "invoice.payment_failed"))
}
