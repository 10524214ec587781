package bot

import (
	"strconv"
	"strings"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

/*** HELPERS ***/

const maxMessageRunes = 4000

func (b *Bot) answerCallback(cb *tgbotapi.CallbackQuery, text string, alert bool) error {
	resp := tgbotapi.NewCallback(cb.ID, text)
	resp.ShowAlert = alert
	_, err := b.api.Request(resp)
	return err
}

func (b *Bot) send(msg tgbotapi.Chattable) {
	if _, err := b.api.Send(msg); err != nil {
		b.log.Error("send failed", "err", err)
	}
}

// screen sends a new message, or edits editMsgID in place, and returns the
// message id that now shows the screen.
func (b *Bot) screen(chatID int64, editMsgID *int, text string, kb tgbotapi.InlineKeyboardMarkup) int {
	text = clip(text)
	if editMsgID != nil && *editMsgID != 0 {
		b.send(tgbotapi.NewEditMessageTextAndMarkup(chatID, *editMsgID, text, kb))
		return *editMsgID
	}
	m := tgbotapi.NewMessage(chatID, text)
	m.ReplyMarkup = kb
	sent, err := b.api.Send(m)
	if err != nil {
		b.log.Error("send failed", "chat_id", chatID, "err", err)
		return 0
	}
	return sent.MessageID
}

func (b *Bot) editTextAndClear(chatID int64, messageID int, text string) {
	if messageID == 0 {
		return
	}
	edit := tgbotapi.NewEditMessageTextAndMarkup(
		chatID, messageID, clip(text),
		tgbotapi.InlineKeyboardMarkup{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}},
	)
	b.send(edit)
}

// prompt asks for a typed value and returns the prompt message id.
func (b *Bot) prompt(chatID int64, text string) int {
	return b.screen(chatID, nil, text, markup(cancelRow()))
}

func (b *Bot) deleteMessage(chatID int64, messageID int) {
	if _, err := b.api.Request(tgbotapi.NewDeleteMessage(chatID, messageID)); err != nil {
		b.log.Debug("delete message failed", "chat_id", chatID, "err", err)
	}
}

// clip keeps text under the Telegram message limit.
func clip(text string) string {
	if utf8.RuneCountInString(text) <= maxMessageRunes {
		return text
	}
	r := []rune(text)
	return string(r[:maxMessageRunes-1]) + "…"
}

// parseData splits "prefix:action:arg" after the prefix was stripped.
func parseData(data string) (action, arg string) {
	action, arg, _ = strings.Cut(data, ":")
	return action, arg
}

func parseID(s string) int64 {
	id, _ := strconv.ParseInt(s, 10, 64)
	return id
}
