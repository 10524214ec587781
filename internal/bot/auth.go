package bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/tool-requests-bot/internal/apiclient"
	"github.com/Spok95/tool-requests-bot/internal/dialog"
)

func (b *Bot) welcome(chatID int64, name string, admin bool) {
	text := fmt.Sprintf("Hi, %s! Browse the catalog or put together a new request with the buttons below.", name)
	if admin {
		text += "\nAs an admin you can also review requests, manage tools and see the staff list."
	}
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = replyKeyboard(admin)
	b.send(m)
}

func (b *Bot) onLoginUsername(ctx context.Context, chatID int64, text string, st *dialog.Item) {
	if text == "" {
		b.send(tgbotapi.NewMessage(chatID, "Username cannot be empty. Enter your username:"))
		return
	}
	p := st.Payload
	p.Username = text
	b.editTextAndClear(chatID, p.MsgID, "Username: "+text)
	p.MsgID = b.prompt(chatID, "Enter your password:")
	b.setState(ctx, chatID, dialog.StateLoginPassword, p)
}

func (b *Bot) onLoginPassword(ctx context.Context, chatID int64, password string, st *dialog.Item) {
	p := st.Payload
	sess, err := b.backend.Login(ctx, p.Username, strings.TrimSpace(password))
	if err != nil {
		b.log.Info("login failed", "chat_id", chatID, "username", p.Username, "err", err)
		b.editTextAndClear(chatID, p.MsgID, "Sign in failed. Try again with /login")
		b.setState(ctx, chatID, dialog.StateIdle, carry(p))
		b.toasts.Error(ctx, chatID, apiclient.Message(err, "Login failed"))
		return
	}
	if err := b.sessions.Save(ctx, chatID, sess); err != nil {
		b.log.Error("session save failed", "chat_id", chatID, "err", err)
		b.toasts.Error(ctx, chatID, "Could not keep you signed in, try again.")
		return
	}
	b.editTextAndClear(chatID, p.MsgID, "Signed in.")
	b.setState(ctx, chatID, dialog.StateIdle, carry(p))
	b.welcome(chatID, sess.User.DisplayName(), sess.IsAdmin())
}

func (b *Bot) logout(ctx context.Context, chatID int64) {
	sess, err := b.sessions.Get(ctx, chatID)
	if err == nil {
		if err := b.backend.Logout(ctx, sess); err != nil {
			b.log.Debug("backend logout failed", "chat_id", chatID, "err", err)
		}
	}
	if err := b.sessions.Delete(ctx, chatID); err != nil {
		b.log.Error("session delete failed", "chat_id", chatID, "err", err)
	}
	if err := b.states.Reset(ctx, chatID); err != nil {
		b.log.Error("dialog reset failed", "chat_id", chatID, "err", err)
	}
	m := tgbotapi.NewMessage(chatID, "Signed out. Use /login to sign in again.")
	m.ReplyMarkup = tgbotapi.NewRemoveKeyboard(true)
	b.send(m)
}
