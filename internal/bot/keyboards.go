package bot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// reply keyboard buttons
const (
	btnCatalog  = "📦 Catalog"
	btnCompose  = "📝 New request"
	btnMine     = "📋 My requests"
	btnRequests = "🗂 Requests"
	btnTools    = "🛠 Tools"
	btnStaff    = "👥 Staff"
)

// cancelRow aborts the current step.
func cancelRow() []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✖️ Cancel", "nav:cancel"))
}

func userReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButton(btnCatalog)},
			{tgbotapi.NewKeyboardButton(btnCompose), tgbotapi.NewKeyboardButton(btnMine)},
		},
	}
}

// adminReplyKeyboard bottom panel for admins
func adminReplyKeyboard() tgbotapi.ReplyKeyboardMarkup {
	return tgbotapi.ReplyKeyboardMarkup{
		ResizeKeyboard: true,
		Keyboard: [][]tgbotapi.KeyboardButton{
			{tgbotapi.NewKeyboardButton(btnCatalog)},
			{tgbotapi.NewKeyboardButton(btnCompose), tgbotapi.NewKeyboardButton(btnMine)},
			{tgbotapi.NewKeyboardButton(btnRequests), tgbotapi.NewKeyboardButton(btnTools)},
			{tgbotapi.NewKeyboardButton(btnStaff)},
		},
	}
}

func replyKeyboard(admin bool) tgbotapi.ReplyKeyboardMarkup {
	if admin {
		return adminReplyKeyboard()
	}
	return userReplyKeyboard()
}

func button(text, data string) tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardButtonData(text, data)
}

func row(buttons ...tgbotapi.InlineKeyboardButton) []tgbotapi.InlineKeyboardButton {
	return tgbotapi.NewInlineKeyboardRow(buttons...)
}

// markup builds an inline keyboard, skipping empty rows.
func markup(rows ...[]tgbotapi.InlineKeyboardButton) tgbotapi.InlineKeyboardMarkup {
	out := make([][]tgbotapi.InlineKeyboardButton, 0, len(rows))
	for _, r := range rows {
		if len(r) > 0 {
			out = append(out, r)
		}
	}
	return tgbotapi.InlineKeyboardMarkup{InlineKeyboard: out}
}
