package bot

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Spok95/tool-requests-bot/internal/apiclient"
	"github.com/Spok95/tool-requests-bot/internal/cache"
	"github.com/Spok95/tool-requests-bot/internal/composer"
	"github.com/Spok95/tool-requests-bot/internal/dialog"
	"github.com/Spok95/tool-requests-bot/internal/domain/users"
	"github.com/Spok95/tool-requests-bot/internal/notify"
	"github.com/Spok95/tool-requests-bot/internal/review"
	"github.com/Spok95/tool-requests-bot/internal/session"
	"github.com/Spok95/tool-requests-bot/internal/staff"
	"github.com/Spok95/tool-requests-bot/internal/testutil"
	"github.com/Spok95/tool-requests-bot/internal/tooladmin"
)

// fakeTelegram records everything the bot sends.
type fakeTelegram struct {
	mu   sync.Mutex
	next int
	sent []tgbotapi.Chattable
	reqs []tgbotapi.Chattable
}

func (f *fakeTelegram) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.next++
	f.sent = append(f.sent, c)
	return tgbotapi.Message{MessageID: f.next}, nil
}

func (f *fakeTelegram) Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reqs = append(f.reqs, c)
	return &tgbotapi.APIResponse{Ok: true}, nil
}

func (f *fakeTelegram) GetUpdatesChan(tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel {
	return make(chan tgbotapi.Update)
}

// texts of sent and edited messages for chatID, in order
func (f *fakeTelegram) texts(chatID int64) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.sent {
		switch m := c.(type) {
		case tgbotapi.MessageConfig:
			if m.ChatID == chatID {
				out = append(out, m.Text)
			}
		case tgbotapi.EditMessageTextConfig:
			if m.ChatID == chatID {
				out = append(out, m.Text)
			}
		}
	}
	return out
}

func (f *fakeTelegram) said(chatID int64, substr string) bool {
	for _, s := range f.texts(chatID) {
		if strings.Contains(s, substr) {
			return true
		}
	}
	return false
}

func (f *fakeTelegram) alerts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, c := range f.reqs {
		if cb, ok := c.(tgbotapi.CallbackConfig); ok && cb.ShowAlert {
			out = append(out, cb.Text)
		}
	}
	return out
}

func (f *fakeTelegram) deleted(chatID int64, msgID int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, c := range f.reqs {
		if d, ok := c.(tgbotapi.DeleteMessageConfig); ok && d.ChatID == chatID && d.MessageID == msgID {
			return true
		}
	}
	return false
}

// memStates round-trips payloads through JSON like the postgres repo does.
type memStates struct {
	mu sync.Mutex
	m  map[int64][]byte
	st map[int64]dialog.State
}

func newMemStates() *memStates {
	return &memStates{m: map[int64][]byte{}, st: map[int64]dialog.State{}}
}

func (s *memStates) Get(_ context.Context, chatID int64) (*dialog.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it := &dialog.Item{ChatID: chatID, State: dialog.StateIdle}
	raw, ok := s.m[chatID]
	if !ok {
		return it, nil
	}
	it.State = s.st[chatID]
	if err := json.Unmarshal(raw, &it.Payload); err != nil {
		return nil, err
	}
	return it, nil
}

func (s *memStates) Set(_ context.Context, chatID int64, state dialog.State, p dialog.Payload) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.m[chatID] = raw
	s.st[chatID] = state
	return nil
}

func (s *memStates) Reset(_ context.Context, chatID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.m, chatID)
	delete(s.st, chatID)
	return nil
}

const (
	staffChat = 100
	adminChat = 200
	groupChat = 900
)

type harness struct {
	bot      *Bot
	tg       *fakeTelegram
	be       *testutil.Backend
	states   *memStates
	sessions *session.Store
	composer *composer.Service
	api      *apiclient.Client
	staff    users.User
	admin    users.User
	drill    int64
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	be := testutil.NewBackend(t)
	staffUser := be.AddUser(users.User{Name: "Tunde", Username: "tunde", Facility: "PHC Ikeja"}, "pw")
	adminUser := be.AddUser(users.User{Name: "Kemi", Username: "kemi", Role: users.RoleAdmin}, "pw")
	drill := be.AddTool("Drills", "Drill A", 5)

	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	api := apiclient.New(be.URL(), 2*time.Second, log)
	tg := &fakeTelegram{}
	toasts := notify.NewQueue(time.Hour, NewToastRenderer(tg), log)
	t.Cleanup(toasts.Close)
	tools := tooladmin.New(api, 10*time.Millisecond, log)
	t.Cleanup(tools.Close)

	h := &harness{
		tg:       tg,
		be:       be,
		states:   newMemStates(),
		sessions: session.NewStore(rdb, time.Hour),
		composer: composer.New(api, cache.NewRecent(rdb, time.Hour), log),
		api:      api,
		staff:    staffUser,
		admin:    adminUser,
		drill:    drill,
	}
	h.bot = New(Deps{
		API:       tg,
		Log:       log,
		States:    h.states,
		Sessions:  h.sessions,
		Backend:   api,
		Composer:  h.composer,
		Review:    review.New(api, log),
		Tools:     tools,
		Staff:     staff.New(api),
		Toasts:    toasts,
		AdminChat: groupChat,
	})
	return h
}

func (h *harness) signIn(t *testing.T, chatID int64, u users.User) {
	t.Helper()
	require.NoError(t, h.sessions.Save(context.Background(), chatID, testutil.SessionFor(u)))
}

func (h *harness) text(chatID int64, msgID int, s string) {
	h.bot.Handle(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: msgID,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: chatID},
		Text:      s,
	}})
}

func (h *harness) command(chatID int64, cmd string) {
	h.bot.Handle(context.Background(), tgbotapi.Update{Message: &tgbotapi.Message{
		MessageID: 1,
		Chat:      &tgbotapi.Chat{ID: chatID},
		From:      &tgbotapi.User{ID: chatID},
		Text:      "/" + cmd,
		Entities:  []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: len(cmd) + 1}},
	}})
}

func (h *harness) press(chatID int64, data string) {
	h.bot.Handle(context.Background(), tgbotapi.Update{CallbackQuery: &tgbotapi.CallbackQuery{
		ID:      "cb",
		From:    &tgbotapi.User{ID: chatID},
		Data:    data,
		Message: &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: chatID}},
	}})
}

func (h *harness) state(t *testing.T, chatID int64) *dialog.Item {
	t.Helper()
	st, err := h.states.Get(context.Background(), chatID)
	require.NoError(t, err)
	return st
}

func TestLogin_SavesSessionAndDeletesPassword(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.command(staffChat, "login")
	assert.True(t, h.tg.said(staffChat, "Enter your username:"))
	assert.Equal(t, dialog.StateLoginUsername, h.state(t, staffChat).State)

	h.text(staffChat, 10, "tunde")
	assert.Equal(t, dialog.StateLoginPassword, h.state(t, staffChat).State)

	h.text(staffChat, 11, "pw")
	assert.True(t, h.tg.deleted(staffChat, 11))
	assert.True(t, h.tg.said(staffChat, "Hi, Tunde!"))

	sess, err := h.sessions.Get(context.Background(), staffChat)
	require.NoError(t, err)
	assert.Equal(t, "tunde", sess.User.Username)
	assert.NotEmpty(t, sess.Cookies)
	assert.Equal(t, dialog.StateIdle, h.state(t, staffChat).State)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.command(staffChat, "login")
	h.text(staffChat, 10, "tunde")
	h.text(staffChat, 11, "nope")

	assert.True(t, h.tg.said(staffChat, "invalid credentials"))
	_, err := h.sessions.Get(context.Background(), staffChat)
	assert.ErrorIs(t, err, session.ErrNoSession)
}

func TestScreens_RequireSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)

	h.text(staffChat, 10, btnCatalog)
	assert.True(t, h.tg.said(staffChat, "/login"))
	assert.Zero(t, h.be.Calls(http.MethodGet, "/api/catalog"))
}

func TestCompose_SubmitAndNotify(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, staffChat, h.staff)
	drill := strconv.FormatInt(h.drill, 10)

	h.text(staffChat, 10, btnCompose)
	h.press(staffChat, "cmp:open:0")
	h.press(staffChat, "cmp:inc:"+drill)
	h.press(staffChat, "cmp:inc:"+drill)
	h.press(staffChat, "cmp:qty:"+drill)
	require.Equal(t, dialog.StateComposeQty, h.state(t, staffChat).State)
	h.text(staffChat, 11, "3 pcs")

	st := h.state(t, staffChat)
	require.Equal(t, dialog.StateCompose, st.State)
	q, ok := st.Payload.Draft.Get(h.drill)
	require.True(t, ok)
	assert.Equal(t, 3, q)

	h.press(staffChat, "cmp:submit")
	h.composer.Wait()

	assert.Equal(t, 1, h.be.Calls(http.MethodPost, "/api/requests"))
	assert.Zero(t, h.state(t, staffChat).Payload.Draft.Count())
	assert.True(t, h.tg.said(staffChat, "submitted"))
	assert.True(t, h.tg.said(groupChat, "New request #"))
	assert.True(t, h.tg.said(groupChat, "Drill A × 3"))

	h.text(staffChat, 12, btnMine)
	assert.True(t, h.tg.said(staffChat, "Drill A × 3"))
}

func TestCompose_EmptySubmitMakesNoCall(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, staffChat, h.staff)

	h.text(staffChat, 10, btnCompose)
	h.press(staffChat, "cmp:submit")

	assert.Zero(t, h.be.Calls(http.MethodPost, "/api/requests"))
	assert.Contains(t, h.tg.alerts(), "Add at least one quantity.")
}

func TestCompose_CatalogFetchedOncePerScreen(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, staffChat, h.staff)
	drill := strconv.FormatInt(h.drill, 10)

	h.text(staffChat, 10, btnCompose)
	require.Equal(t, 1, h.be.Calls(http.MethodGet, "/api/catalog"))

	h.press(staffChat, "cmp:open:0")
	h.press(staffChat, "cmp:inc:"+drill)
	h.press(staffChat, "cmp:dec:"+drill)
	h.press(staffChat, "cmp:qty:"+drill)
	h.text(staffChat, 11, "2")
	assert.Equal(t, 1, h.be.Calls(http.MethodGet, "/api/catalog"))
	assert.True(t, h.tg.said(staffChat, "Drill A × 2"))

	h.press(staffChat, "cmp:submit")
	h.composer.Wait()
	assert.Equal(t, 2, h.be.Calls(http.MethodGet, "/api/catalog"))
	assert.Equal(t, 1, h.be.Calls(http.MethodPost, "/api/requests"))

	h.text(staffChat, 12, btnCatalog)
	h.press(staffChat, "cat:open:0")
	h.press(staffChat, "cat:open:0")
	assert.Equal(t, 3, h.be.Calls(http.MethodGet, "/api/catalog"))
}

func TestCompose_DraftSurvivesNavigation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, staffChat, h.staff)

	h.text(staffChat, 10, btnCompose)
	h.press(staffChat, "cmp:inc:"+strconv.FormatInt(h.drill, 10))
	h.text(staffChat, 11, btnCatalog)
	h.text(staffChat, 12, btnCompose)

	q, ok := h.state(t, staffChat).Payload.Draft.Get(h.drill)
	require.True(t, ok)
	assert.Equal(t, 1, q)
}

func TestReview_AdminsOnly(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, staffChat, h.staff)

	h.text(staffChat, 10, btnRequests)
	assert.True(t, h.tg.said(staffChat, "Admins only."))
	assert.Zero(t, h.be.Calls(http.MethodGet, "/api/admin/requests"))
}

func (h *harness) submitAsStaff(t *testing.T, qty string) int64 {
	t.Helper()
	ctx := context.Background()
	sess := testutil.SessionFor(h.staff)
	groups, err := h.api.Catalog(ctx, sess)
	require.NoError(t, err)
	d := composer.NewDraft()
	d.Set(h.drill, qty)
	req, err := h.composer.Submit(ctx, sess, staffChat, d, groups)
	require.NoError(t, err)
	h.composer.Wait()
	return req.ID
}

func TestReview_ApproveBlockedShowsHint(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, adminChat, h.admin)
	id := strconv.FormatInt(h.submitAsStaff(t, "3"), 10)
	h.be.SetStock(h.drill, 2)

	h.text(adminChat, 10, btnRequests)
	h.press(adminChat, "rv:open:"+id)
	h.press(adminChat, "rv:ok:"+id)

	require.NotEmpty(t, h.tg.alerts())
	assert.Contains(t, h.tg.alerts()[0], review.StockHint)
	assert.Zero(t, h.be.Calls(http.MethodPost, "/api/admin/requests/"+id+"/approve"))
	assert.Equal(t, "Pending", h.be.RequestStatus(parseID(id)))
}

func TestReview_EditThenApprove(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, adminChat, h.admin)
	reqID := h.submitAsStaff(t, "3")
	id := strconv.FormatInt(reqID, 10)
	h.be.SetStock(h.drill, 2)

	h.text(adminChat, 10, btnRequests)
	h.press(adminChat, "rv:edit:"+id)

	board := h.state(t, adminChat).Payload.Board
	require.NotNil(t, board)
	req := board.Find(reqID)
	require.NotNil(t, req)
	require.Len(t, req.Lines, 1)
	lineID := strconv.FormatInt(req.Lines[0].ID, 10)

	h.press(adminChat, "rv:line:"+lineID)
	require.Equal(t, dialog.StateReviewQty, h.state(t, adminChat).State)
	h.text(adminChat, 11, "2")
	h.press(adminChat, "rv:ok:"+id)

	assert.Equal(t, "Approved", h.be.RequestStatus(reqID))
	assert.Equal(t, 0, h.be.Stock(h.drill))
	assert.True(t, h.tg.said(adminChat, "approved"))
}

func TestReview_DeleteNeedsConfirmation(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, adminChat, h.admin)
	reqID := h.submitAsStaff(t, "1")
	id := strconv.FormatInt(reqID, 10)

	h.text(adminChat, 10, btnRequests)
	h.press(adminChat, "rv:del:"+id)
	assert.Equal(t, dialog.StateReviewConfirm, h.state(t, adminChat).State)
	h.press(adminChat, "rv:delno:"+id)
	assert.Zero(t, h.be.Calls(http.MethodDelete, "/api/admin/requests/"))

	h.press(adminChat, "rv:del:"+id)
	h.press(adminChat, "rv:delyes:"+id)
	assert.Equal(t, 1, h.be.Calls(http.MethodDelete, "/api/admin/requests/"))
}

func TestReview_Export(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, adminChat, h.admin)
	h.submitAsStaff(t, "1")

	h.text(adminChat, 10, btnRequests)
	h.press(adminChat, "rv:xlsx")

	h.tg.mu.Lock()
	defer h.tg.mu.Unlock()
	var doc *tgbotapi.DocumentConfig
	for _, c := range h.tg.sent {
		if d, ok := c.(tgbotapi.DocumentConfig); ok {
			doc = &d
		}
	}
	require.NotNil(t, doc)
	assert.Contains(t, doc.Caption, "Pending (1)")
}

func TestTools_WrongPasswordKeepsSession(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, adminChat, h.admin)
	drill := strconv.FormatInt(h.drill, 10)

	h.text(adminChat, 10, btnTools)
	h.press(adminChat, "tl:open:"+drill)
	require.Equal(t, dialog.StateToolCard, h.state(t, adminChat).State)

	h.press(adminChat, "tl:del:"+drill)
	h.text(adminChat, 11, "nope")
	assert.True(t, h.tg.deleted(adminChat, 11))
	assert.True(t, h.tg.said(adminChat, "Invalid admin password"))
	_, err := h.sessions.Get(context.Background(), adminChat)
	require.NoError(t, err)

	h.press(adminChat, "tl:del:"+drill)
	h.text(adminChat, 12, testutil.DeletePassword)
	assert.True(t, h.tg.said(adminChat, "Tool deleted."))
}

func TestTools_EditSendsFullRecord(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, adminChat, h.admin)
	drill := strconv.FormatInt(h.drill, 10)

	h.text(adminChat, 10, btnTools)
	h.press(adminChat, "tl:open:"+drill)
	h.press(adminChat, "tl:field:quantity")
	require.Equal(t, dialog.StateToolField, h.state(t, adminChat).State)
	h.text(adminChat, 11, "12abc")
	assert.Equal(t, 12, h.state(t, adminChat).Payload.Form.Quantity)

	h.press(adminChat, "tl:save")
	assert.Equal(t, 12, h.be.Stock(h.drill))
	assert.True(t, h.tg.said(adminChat, "Tool saved."))
}

func TestStaff_Directory(t *testing.T) {
	t.Parallel()
	h := newHarness(t)
	h.signIn(t, adminChat, h.admin)

	h.text(adminChat, 10, btnStaff)
	texts := h.tg.texts(adminChat)
	require.NotEmpty(t, texts)
	last := texts[len(texts)-1]
	assert.Contains(t, last, "Staff (2)")
	assert.Less(t, strings.Index(last, "Kemi"), strings.Index(last, "Tunde"))
}
