package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
)

func newRecent(t *testing.T) (*Recent, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRecent(rdb, time.Hour), mr
}

func TestRecent_PrependAndReplace(t *testing.T) {
	t.Parallel()
	c, mr := newRecent(t)
	ctx := context.Background()

	list, err := c.List(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, list)

	require.NoError(t, c.Replace(ctx, 5, []requests.Request{{ID: 1, Status: requests.StatusApproved}}))
	opt := requests.NewOptimistic(0, []requests.Draft{{ToolID: 2, ToolName: "Saw", Quantity: 1}}, time.Now())
	require.NoError(t, c.Prepend(ctx, 5, opt))

	list, err = c.List(ctx, 5)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].Optimistic)
	assert.Equal(t, opt.LocalID, list[0].LocalID)
	assert.Nil(t, list[0].Lines[0].InStock)
	assert.Equal(t, int64(1), list[1].ID)
	assert.Greater(t, mr.TTL(recentKey(5)), time.Duration(0))

	require.NoError(t, c.Replace(ctx, 5, []requests.Request{{ID: 7}, {ID: 6}}))
	list, err = c.List(ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, []int64{7, 6}, []int64{list[0].ID, list[1].ID})

	require.NoError(t, c.Replace(ctx, 5, nil))
	list, err = c.List(ctx, 5)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestRecent_PerChat(t *testing.T) {
	t.Parallel()
	c, _ := newRecent(t)
	ctx := context.Background()

	require.NoError(t, c.Prepend(ctx, 1, requests.Request{ID: 10}))
	list, err := c.List(ctx, 2)
	require.NoError(t, err)
	assert.Empty(t, list)
}
