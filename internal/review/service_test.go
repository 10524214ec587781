package review

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/tool-requests-bot/internal/apiclient"
	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
	"github.com/Spok95/tool-requests-bot/internal/domain/users"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

type fakeAPI struct {
	mu      sync.Mutex
	calls   []string
	rows    []requests.Request
	loadErr error
	errs    map[string]error
	edits   [][]requests.LineUpdate
}

func (f *fakeAPI) record(name string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, name)
	return f.errs[name]
}

func (f *fakeAPI) AdminRequests(context.Context, session.Session, requests.Filter) ([]requests.Request, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, "list")
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	out := make([]requests.Request, len(f.rows))
	copy(out, f.rows)
	return out, nil
}

func (f *fakeAPI) ApproveRequest(context.Context, session.Session, int64) error { return f.record("approve") }
func (f *fakeAPI) RejectRequest(context.Context, session.Session, int64) error  { return f.record("reject") }
func (f *fakeAPI) DeleteRequest(context.Context, session.Session, int64) error  { return f.record("delete") }

func (f *fakeAPI) EditRequest(_ context.Context, _ session.Session, _ int64, lines []requests.LineUpdate) error {
	f.mu.Lock()
	f.edits = append(f.edits, lines)
	f.mu.Unlock()
	return f.record("edit")
}

func (f *fakeAPI) mutations() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.calls {
		if c != "list" {
			out = append(out, c)
		}
	}
	return out
}

func quietLog() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var adminSess = session.Session{User: users.User{ID: 9, Name: "Kemi", Role: users.RoleAdmin}}

func terminal(status requests.Status) requests.Request {
	r := overStock()
	r.Status = status
	for i := range r.Lines {
		r.Lines[i].Status = status
		r.Lines[i].InStock = stock(100)
	}
	return r
}

func TestService_TerminalRequestsNeverReachAPI(t *testing.T) {
	t.Parallel()
	for _, st := range []requests.Status{requests.StatusApproved, requests.StatusRejected} {
		api := &fakeAPI{}
		s := New(api, quietLog())
		b := boardWith(terminal(st))
		ctx := context.Background()

		assert.ErrorIs(t, s.Approve(ctx, adminSess, b, 1), ErrNotPending)
		assert.ErrorIs(t, s.Reject(ctx, adminSess, b, 1), ErrNotPending)
		assert.ErrorIs(t, s.Delete(ctx, adminSess, b, 1, true), ErrNotPending)
		assert.Empty(t, api.mutations(), string(st))
	}
}

func TestService_ApproveBlockedNoCall(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	s := New(api, quietLog())
	b := boardWith(overStock())

	err := s.Approve(context.Background(), adminSess, b, 1)
	assert.ErrorIs(t, err, ErrApproveBlocked)
	assert.Equal(t, StockHint, Message(err, ""))
	assert.Empty(t, api.mutations())
}

func TestService_DeleteNeedsConfirmation(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{}
	s := New(api, quietLog())
	b := boardWith(overStock())

	assert.ErrorIs(t, s.Delete(context.Background(), adminSess, b, 1, false), ErrNotConfirmed)
	assert.Empty(t, api.mutations())
	assert.Len(t, b.Rows, 1)
}

func TestService_ApproveInsufficientStockFromServer(t *testing.T) {
	t.Parallel()
	detail := "Insufficient stock for 'Drill A'. Requested 3, in stock 2. Edit quantity to match stock before approval."
	api := &fakeAPI{errs: map[string]error{"approve": &apiclient.Error{Status: 400, Detail: detail}}}
	s := New(api, quietLog())
	req := overStock()
	req.Lines[0].InStock = stock(10)
	b := boardWith(req)

	err := s.Approve(context.Background(), adminSess, b, 1)
	require.ErrorIs(t, err, ErrInsufficientStock)
	assert.Equal(t, 400, apiclient.Status(err))
	assert.Equal(t, detail, Message(err, ""))
	assert.Equal(t, requests.StatusPending, b.Find(1).Status)

	api.errs["approve"] = &apiclient.Error{Status: 400, Detail: "insufficient stock"}
	err = s.Approve(context.Background(), adminSess, b, 1)
	assert.Equal(t, "insufficient stock "+StockHint, Message(err, ""))
}

func TestService_ApproveRecordsApproverWhenReloadFails(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{loadErr: errors.New("down")}
	s := New(api, quietLog())
	req := overStock()
	req.Lines[0].InStock = stock(3)
	b := boardWith(req)

	require.NoError(t, s.Approve(context.Background(), adminSess, b, 1))
	got := b.Find(1)
	assert.Equal(t, requests.StatusApproved, got.Status)
	require.NotNil(t, got.ApprovedBy)
	assert.Equal(t, "Kemi", got.ApprovedBy.Name)
	assert.NotNil(t, got.DateApproved)
	for _, ln := range got.Lines {
		assert.Equal(t, requests.StatusApproved, ln.Status)
	}
}

func TestService_SaveEditFailureKeepsDraft(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{errs: map[string]error{"edit": &apiclient.Error{Status: 400, Detail: "quantity must be > 0"}}}
	s := New(api, quietLog())
	b := boardWith(overStock())

	require.NoError(t, b.BeginEdit(1))
	require.NoError(t, b.SetDraft(10, "0"))
	err := s.SaveEdit(context.Background(), adminSess, b, 1)
	require.Error(t, err)
	assert.Equal(t, "quantity must be > 0", Message(err, ""))
	assert.Equal(t, int64(1), b.Editing)
	assert.Equal(t, "0", b.Draft[10])

	require.Len(t, api.edits, 1)
	assert.Equal(t, []requests.LineUpdate{{ID: 10, Quantity: 0}, {ID: 11, Quantity: 1}}, api.edits[0])
}

func TestService_ApproveSavesDirtyDraftFirst(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{loadErr: errors.New("down")}
	s := New(api, quietLog())
	b := boardWith(overStock())

	require.NoError(t, b.BeginEdit(1))
	require.NoError(t, b.SetDraft(10, "2"))
	require.NoError(t, s.Approve(context.Background(), adminSess, b, 1))

	assert.Equal(t, []string{"edit", "approve"}, api.mutations())
	assert.Equal(t, 2, b.Find(1).Lines[0].Quantity)
	assert.Zero(t, b.Editing)
}

func TestService_LoadFailureKeepsRows(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{loadErr: &apiclient.Error{Status: 500, Detail: "Failed to load admin requests"}}
	s := New(api, quietLog())
	b := boardWith(overStock())

	err := s.Load(context.Background(), adminSess, b)
	require.Error(t, err)
	assert.Equal(t, "Failed to load admin requests", Message(err, "Failed to load requests"))
	assert.Len(t, b.Rows, 1)
}

func TestService_LoadDropsStaleEdit(t *testing.T) {
	t.Parallel()
	api := &fakeAPI{rows: []requests.Request{terminal(requests.StatusApproved)}}
	s := New(api, quietLog())
	b := boardWith(overStock())
	require.NoError(t, b.BeginEdit(1))
	b.OpenID = 77

	require.NoError(t, s.Load(context.Background(), adminSess, b))
	assert.Zero(t, b.Editing)
	assert.Nil(t, b.Draft)
	assert.Zero(t, b.OpenID)
}
