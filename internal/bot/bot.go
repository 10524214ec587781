package bot

import (
	"context"
	"errors"
	"log/slog"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/tool-requests-bot/internal/apiclient"
	"github.com/Spok95/tool-requests-bot/internal/composer"
	"github.com/Spok95/tool-requests-bot/internal/dialog"
	"github.com/Spok95/tool-requests-bot/internal/domain/catalog"
	"github.com/Spok95/tool-requests-bot/internal/infra/metrics"
	"github.com/Spok95/tool-requests-bot/internal/notify"
	"github.com/Spok95/tool-requests-bot/internal/review"
	"github.com/Spok95/tool-requests-bot/internal/session"
	"github.com/Spok95/tool-requests-bot/internal/staff"
	"github.com/Spok95/tool-requests-bot/internal/tooladmin"
)

// Sender is the part of the Telegram API used to talk to chats.
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
}

type TelegramAPI interface {
	Sender
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
}

type States interface {
	Get(ctx context.Context, chatID int64) (*dialog.Item, error)
	Set(ctx context.Context, chatID int64, state dialog.State, payload dialog.Payload) error
	Reset(ctx context.Context, chatID int64) error
}

type Sessions interface {
	Get(ctx context.Context, chatID int64) (session.Session, error)
	Save(ctx context.Context, chatID int64, sess session.Session) error
	Delete(ctx context.Context, chatID int64) error
}

// Backend covers the calls the bot makes without a service in between.
type Backend interface {
	Login(ctx context.Context, username, password string) (session.Session, error)
	Logout(ctx context.Context, sess session.Session) error
	Catalog(ctx context.Context, sess session.Session) ([]catalog.Group, error)
}

type Deps struct {
	API       TelegramAPI
	Log       *slog.Logger
	States    States
	Sessions  Sessions
	Backend   Backend
	Composer  *composer.Service
	Review    *review.Service
	Tools     *tooladmin.Service
	Staff     *staff.Service
	Toasts    *notify.Queue
	AdminChat int64
}

type Bot struct {
	api       TelegramAPI
	log       *slog.Logger
	states    States
	sessions  Sessions
	backend   Backend
	composer  *composer.Service
	review    *review.Service
	tools     *tooladmin.Service
	staff     *staff.Service
	toasts    *notify.Queue
	adminChat int64
	now       func() time.Time
}

func New(d Deps) *Bot {
	return &Bot{
		api: d.API, log: d.Log, states: d.States, sessions: d.Sessions,
		backend: d.Backend, composer: d.Composer, review: d.Review,
		tools: d.Tools, staff: d.Staff, toasts: d.Toasts,
		adminChat: d.AdminChat, now: time.Now,
	}
}

func (b *Bot) Run(ctx context.Context, timeoutSec int) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = timeoutSec
	updates := b.api.GetUpdatesChan(u)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case upd, ok := <-updates:
			if !ok {
				return nil
			}
			b.Handle(ctx, upd)
		}
	}
}

// Handle processes one update on the caller's goroutine.
func (b *Bot) Handle(ctx context.Context, upd tgbotapi.Update) {
	switch {
	case upd.Message != nil:
		metrics.BotUpdates.WithLabelValues("message").Inc()
		b.onMessage(ctx, upd)
	case upd.CallbackQuery != nil:
		metrics.BotUpdates.WithLabelValues("callback").Inc()
		b.onCallback(ctx, upd)
	default:
		metrics.BotUpdates.WithLabelValues("other").Inc()
	}
}

func (b *Bot) onMessage(ctx context.Context, upd tgbotapi.Update) {
	msg := upd.Message

	if msg.IsCommand() {
		b.handleCommand(ctx, msg)
		return
	}
	b.handleStateMessage(ctx, msg)
}

func (b *Bot) onCallback(ctx context.Context, upd tgbotapi.Update) {
	if upd.CallbackQuery.Message == nil {
		_ = b.answerCallback(upd.CallbackQuery, "", false)
		return
	}
	b.handleCallback(ctx, upd.CallbackQuery)
}

// state never fails: a storage error is logged and the chat starts idle.
func (b *Bot) state(ctx context.Context, chatID int64) *dialog.Item {
	st, err := b.states.Get(ctx, chatID)
	if err != nil {
		b.log.Error("dialog state load failed", "chat_id", chatID, "err", err)
		return &dialog.Item{ChatID: chatID, State: dialog.StateIdle}
	}
	return st
}

func (b *Bot) setState(ctx context.Context, chatID int64, state dialog.State, p dialog.Payload) {
	if err := b.states.Set(ctx, chatID, state, p); err != nil {
		b.log.Error("dialog state save failed", "chat_id", chatID, "state", state, "err", err)
	}
}

// carry keeps the request draft alive while the user moves between screens.
func carry(p dialog.Payload) dialog.Payload {
	return dialog.Payload{Draft: p.Draft}
}

func (b *Bot) session(ctx context.Context, chatID int64) (session.Session, bool) {
	sess, err := b.sessions.Get(ctx, chatID)
	if err != nil {
		if !errors.Is(err, session.ErrNoSession) {
			b.log.Error("session load failed", "chat_id", chatID, "err", err)
		}
		b.send(tgbotapi.NewMessage(chatID, "Please sign in first: /login"))
		return session.Session{}, false
	}
	return sess, true
}

func (b *Bot) adminSession(ctx context.Context, chatID int64) (session.Session, bool) {
	sess, ok := b.session(ctx, chatID)
	if !ok {
		return sess, false
	}
	if !sess.IsAdmin() {
		b.toasts.Error(ctx, chatID, "Admins only.")
		return sess, false
	}
	return sess, true
}

// apiFailed toasts the server detail or fallback. An expired cookie drops the
// stored session.
func (b *Bot) apiFailed(ctx context.Context, chatID int64, err error, fallback string) {
	b.log.Warn("backend call failed", "chat_id", chatID, "err", err)
	if apiclient.IsUnauthorized(err) {
		if derr := b.sessions.Delete(ctx, chatID); derr != nil {
			b.log.Error("session delete failed", "chat_id", chatID, "err", derr)
		}
		b.toasts.Error(ctx, chatID, "Session expired, sign in again: /login")
		return
	}
	b.toasts.Error(ctx, chatID, apiclient.Message(err, fallback))
}
