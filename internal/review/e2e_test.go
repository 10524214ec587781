package review

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/tool-requests-bot/internal/apiclient"
	"github.com/Spok95/tool-requests-bot/internal/cache"
	"github.com/Spok95/tool-requests-bot/internal/composer"
	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
	"github.com/Spok95/tool-requests-bot/internal/domain/users"
	"github.com/Spok95/tool-requests-bot/internal/session"
	"github.com/Spok95/tool-requests-bot/internal/testutil"
)

type world struct {
	be       *testutil.Backend
	api      *apiclient.Client
	composer *composer.Service
	review   *Service
	staff    session.Session
	admin    session.Session
	drill    int64
}

func newWorld(t *testing.T, stock int) *world {
	t.Helper()
	be := testutil.NewBackend(t)
	requester := be.AddUser(users.User{Name: "Tunde", Username: "tunde", Facility: "PHC Ikeja"}, "pw")
	admin := be.AddUser(users.User{Name: "Kemi", Username: "kemi", Role: users.RoleAdmin}, "pw")
	drill := be.AddTool("Drills", "Drill A", stock)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := apiclient.New(be.URL(), 2*time.Second, log)
	return &world{
		be:       be,
		api:      api,
		composer: composer.New(api, cache.NewRecent(rdb, time.Hour), log),
		review:   New(api, log),
		staff:    testutil.SessionFor(requester),
		admin:    testutil.SessionFor(admin),
		drill:    drill,
	}
}

func (w *world) submit(t *testing.T, qty string) requests.Request {
	t.Helper()
	ctx := context.Background()
	groups, err := w.api.Catalog(ctx, w.staff)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	assert.Equal(t, "Drills", groups[0].Category.String())

	d := composer.NewDraft()
	d.Set(w.drill, qty)
	req, err := w.composer.Submit(ctx, w.staff, 100, d, groups)
	require.NoError(t, err)
	w.composer.Wait()
	return req
}

func TestEndToEnd_ApproveWithinStock(t *testing.T) {
	t.Parallel()
	w := newWorld(t, 5)
	ctx := context.Background()

	submitted := w.submit(t, "3")
	require.Len(t, submitted.Lines, 1)
	assert.Equal(t, w.drill, submitted.Lines[0].ToolID)
	assert.Equal(t, 3, submitted.Lines[0].Quantity)
	assert.Equal(t, requests.StatusPending, submitted.Lines[0].Status)

	b := NewBoard()
	require.NoError(t, w.review.Load(ctx, w.admin, b))
	require.Len(t, b.Rows, 1)
	req := b.Find(submitted.ID)
	require.NotNil(t, req)
	assert.Equal(t, 5, req.Lines[0].Stock())
	assert.False(t, b.ApproveBlocked(req))

	require.NoError(t, w.review.Approve(ctx, w.admin, b, submitted.ID))
	assert.Equal(t, "Approved", w.be.RequestStatus(submitted.ID))
	assert.Equal(t, 2, w.be.Stock(w.drill))
	assert.Empty(t, b.Rows, "pending filter no longer lists it")

	b.Filter = requests.Filter(requests.StatusApproved)
	require.NoError(t, w.review.Load(ctx, w.admin, b))
	approved := b.Find(submitted.ID)
	require.NotNil(t, approved)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, "Kemi", approved.ApprovedBy.Name)
	assert.NotNil(t, approved.DateApproved)
	assert.Equal(t, requests.StatusApproved, approved.Lines[0].Status)
}

func TestEndToEnd_EditDownToStockUnblocksApprove(t *testing.T) {
	t.Parallel()
	w := newWorld(t, 2)
	ctx := context.Background()
	submitted := w.submit(t, "3")

	b := NewBoard()
	require.NoError(t, w.review.Load(ctx, w.admin, b))
	req := b.Find(submitted.ID)
	require.NotNil(t, req)
	assert.True(t, b.ApproveBlocked(req))
	require.Len(t, b.Violations(req), 1)

	assert.ErrorIs(t, w.review.Approve(ctx, w.admin, b, submitted.ID), ErrApproveBlocked)
	assert.Zero(t, w.be.Calls(http.MethodPost, "/api/admin/requests"))

	require.NoError(t, b.BeginEdit(submitted.ID))
	require.NoError(t, b.SetDraft(req.Lines[0].ID, "2"))
	assert.False(t, b.ApproveBlocked(req))

	require.NoError(t, w.review.SaveEdit(ctx, w.admin, b, submitted.ID))
	req = b.Find(submitted.ID)
	require.NotNil(t, req)
	assert.Equal(t, 2, req.Lines[0].Quantity)
	assert.False(t, b.ApproveBlocked(req))

	require.NoError(t, w.review.Approve(ctx, w.admin, b, submitted.ID))
	assert.Equal(t, "Approved", w.be.RequestStatus(submitted.ID))
	assert.Equal(t, 0, w.be.Stock(w.drill))
}

func TestEndToEnd_StockRaceSurfacesServerMessage(t *testing.T) {
	t.Parallel()
	w := newWorld(t, 5)
	ctx := context.Background()
	submitted := w.submit(t, "3")

	b := NewBoard()
	require.NoError(t, w.review.Load(ctx, w.admin, b))
	w.be.SetStock(w.drill, 1)

	err := w.review.Approve(ctx, w.admin, b, submitted.ID)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Contains(t, Message(err, ""), "Insufficient stock for 'Drill A'. Requested 3, in stock 1.")
	assert.Equal(t, "Pending", w.be.RequestStatus(submitted.ID))
}

func TestEndToEnd_UnconfirmedDeleteIssuesNoCall(t *testing.T) {
	t.Parallel()
	w := newWorld(t, 5)
	ctx := context.Background()
	submitted := w.submit(t, "1")

	b := NewBoard()
	require.NoError(t, w.review.Load(ctx, w.admin, b))
	require.Len(t, b.Rows, 1)

	assert.ErrorIs(t, w.review.Delete(ctx, w.admin, b, submitted.ID, false), ErrNotConfirmed)
	assert.Zero(t, w.be.Calls(http.MethodDelete, "/api/admin/requests"))
	assert.Len(t, b.Rows, 1)
	assert.Equal(t, "Pending", w.be.RequestStatus(submitted.ID))

	require.NoError(t, w.review.Delete(ctx, w.admin, b, submitted.ID, true))
	assert.Equal(t, 1, w.be.Calls(http.MethodDelete, "/api/admin/requests"))
	assert.Empty(t, b.Rows)
	assert.Empty(t, w.be.RequestStatus(submitted.ID))
}

func TestEndToEnd_RejectIsTerminal(t *testing.T) {
	t.Parallel()
	w := newWorld(t, 5)
	ctx := context.Background()
	submitted := w.submit(t, "1")

	b := NewBoard()
	b.Filter = requests.FilterAll
	require.NoError(t, w.review.Load(ctx, w.admin, b))
	require.NoError(t, w.review.Reject(ctx, w.admin, b, submitted.ID))

	req := b.Find(submitted.ID)
	require.NotNil(t, req)
	assert.Equal(t, requests.StatusRejected, req.Status)
	assert.NotNil(t, req.DateRejected)

	assert.ErrorIs(t, w.review.Approve(ctx, w.admin, b, submitted.ID), ErrNotPending)
	assert.ErrorIs(t, b.BeginEdit(submitted.ID), ErrNotPending)
}
