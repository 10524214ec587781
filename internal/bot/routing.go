package bot

import (
	"context"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/tool-requests-bot/internal/dialog"
)

const helpText = "Commands:\n" +
	"/start — main menu\n" +
	"/login — sign in\n" +
	"/logout — sign out\n" +
	"/cancel — abort the current step\n" +
	"/help — this help"

func (b *Bot) handleCommand(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	switch msg.Command() {
	case "start":
		sess, err := b.sessions.Get(ctx, chatID)
		if err != nil {
			b.send(tgbotapi.NewMessage(chatID, "Welcome! Sign in with /login to request tools."))
			return
		}
		b.welcome(chatID, sess.User.DisplayName(), sess.IsAdmin())
		return

	case "login":
		st := b.state(ctx, chatID)
		mid := b.prompt(chatID, "Enter your username:")
		p := carry(st.Payload)
		p.MsgID = mid
		b.setState(ctx, chatID, dialog.StateLoginUsername, p)
		return

	case "logout":
		b.logout(ctx, chatID)
		return

	case "cancel":
		st := b.state(ctx, chatID)
		b.setState(ctx, chatID, dialog.StateIdle, carry(st.Payload))
		b.send(tgbotapi.NewMessage(chatID, "Cancelled."))
		return

	case "help":
		b.send(tgbotapi.NewMessage(chatID, helpText))
		return

	default:
		b.send(tgbotapi.NewMessage(chatID, "Unknown command. Type /help"))
		return
	}
}

func (b *Bot) handleStateMessage(ctx context.Context, msg *tgbotapi.Message) {
	chatID := msg.Chat.ID
	text := strings.TrimSpace(msg.Text)

	// bottom panel
	switch text {
	case btnCatalog:
		b.showCatalog(ctx, chatID, nil)
		return
	case btnCompose:
		b.showComposer(ctx, chatID, nil)
		return
	case btnMine:
		b.showMyRequests(ctx, chatID, nil)
		return
	case btnRequests:
		b.showReview(ctx, chatID, nil, nil)
		return
	case btnTools:
		b.showTools(ctx, chatID, nil, "")
		return
	case btnStaff:
		b.showStaff(ctx, chatID, nil)
		return
	}

	st := b.state(ctx, chatID)
	switch st.State {
	case dialog.StateLoginUsername:
		b.onLoginUsername(ctx, chatID, text, st)
	case dialog.StateLoginPassword:
		// the password never stays in the chat history
		b.deleteMessage(chatID, msg.MessageID)
		b.onLoginPassword(ctx, chatID, msg.Text, st)
	case dialog.StateComposeQty:
		b.onComposeQty(ctx, chatID, text, st)
	case dialog.StateReviewQty:
		b.onReviewQty(ctx, chatID, text, st)
	case dialog.StateToolSearch:
		b.onToolSearch(ctx, chatID, text, st)
	case dialog.StateToolField:
		b.onToolField(ctx, chatID, text, st)
	case dialog.StateToolPassword:
		b.deleteMessage(chatID, msg.MessageID)
		b.onToolPassword(ctx, chatID, msg.Text, st)
	default:
		b.send(tgbotapi.NewMessage(chatID, "Use the menu buttons below or type /help"))
	}
}

func (b *Bot) handleCallback(ctx context.Context, cb *tgbotapi.CallbackQuery) {
	data := cb.Data
	chatID := cb.Message.Chat.ID

	if data == "nav:cancel" {
		st := b.state(ctx, chatID)
		b.setState(ctx, chatID, dialog.StateIdle, carry(st.Payload))
		b.editTextAndClear(chatID, cb.Message.MessageID, "Cancelled.")
		_ = b.answerCallback(cb, "Cancelled", false)
		return
	}

	prefix, rest, _ := strings.Cut(data, ":")
	switch prefix {
	case "cat":
		b.onCatalogCallback(ctx, cb, rest)
	case "cmp":
		b.onComposerCallback(ctx, cb, rest)
	case "my":
		b.onMyRequestsCallback(ctx, cb, rest)
	case "rv":
		b.onReviewCallback(ctx, cb, rest)
	case "tl":
		b.onToolsCallback(ctx, cb, rest)
	case "st":
		b.showStaff(ctx, chatID, &cb.Message.MessageID)
		_ = b.answerCallback(cb, "", false)
	default:
		b.editTextAndClear(chatID, cb.Message.MessageID, "This action is no longer available.")
		_ = b.answerCallback(cb, "", false)
	}
}
