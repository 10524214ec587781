package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/tool-requests-bot/internal/apiclient"
	"github.com/Spok95/tool-requests-bot/internal/dialog"
	"github.com/Spok95/tool-requests-bot/internal/domain/tools"
	"github.com/Spok95/tool-requests-bot/internal/session"
	"github.com/Spok95/tool-requests-bot/internal/tooladmin"
)

// showTools lists tools for q; typing in the chat afterwards searches.
func (b *Bot) showTools(ctx context.Context, chatID int64, editMsgID *int, q string) {
	sess, ok := b.adminSession(ctx, chatID)
	if !ok {
		return
	}
	list, err := b.tools.List(ctx, sess, q)
	if err != nil {
		b.apiFailed(ctx, chatID, err, "Failed to load tools")
		return
	}
	st := b.state(ctx, chatID)
	p := carry(st.Payload)
	p.Query = q
	text, kb := toolsView(q, list)
	p.MsgID = b.screen(chatID, editMsgID, text, kb)
	b.setState(ctx, chatID, dialog.StateToolSearch, p)
}

// onToolSearch is debounced per chat; the list message is redrawn once the
// typing settles.
func (b *Bot) onToolSearch(ctx context.Context, chatID int64, text string, st *dialog.Item) {
	sess, ok := b.adminSession(ctx, chatID)
	if !ok {
		return
	}
	p := st.Payload
	p.Query = text
	b.setState(ctx, chatID, dialog.StateToolSearch, p)

	msgID := p.MsgID
	b.tools.Search(strconv.FormatInt(chatID, 10), sess, text, func(q string, list []tools.Record, err error) {
		if err != nil {
			b.toasts.Error(context.Background(), chatID, apiclient.Message(err, "Search failed"))
			return
		}
		view, kb := toolsView(q, list)
		b.screen(chatID, &msgID, view, kb)
	})
}

// findTool looks the record up in the current search first, then in the full list.
func (b *Bot) findTool(ctx context.Context, sess session.Session, q string, id int64) (tools.Record, error) {
	for _, query := range []string{q, ""} {
		list, err := b.tools.List(ctx, sess, query)
		if err != nil {
			return tools.Record{}, err
		}
		for _, t := range list {
			if t.ID == id {
				return t, nil
			}
		}
		if query == "" {
			break
		}
	}
	return tools.Record{}, fmt.Errorf("tool #%d not found", id)
}

func (b *Bot) renderToolCard(ctx context.Context, chatID int64, editMsgID *int, p dialog.Payload) {
	state := dialog.StateToolCard
	if p.ToolID == 0 {
		state = dialog.StateToolCreate
	}
	text, kb := toolCardView(p.ToolID, *p.Form)
	p.MsgID = b.screen(chatID, editMsgID, text, kb)
	p.Field = ""
	b.setState(ctx, chatID, state, p)
}

func (b *Bot) onToolsCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data string) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	sess, ok := b.adminSession(ctx, chatID)
	if !ok {
		_ = b.answerCallback(cb, "", false)
		return
	}
	st := b.state(ctx, chatID)
	action, arg := parseData(data)

	switch action {
	case "list":
		b.showTools(ctx, chatID, &msgID, st.Payload.Query)

	case "open":
		id := parseID(arg)
		rec, err := b.findTool(ctx, sess, st.Payload.Query, id)
		if err != nil {
			b.apiFailed(ctx, chatID, err, "Tool not found")
			break
		}
		p := carry(st.Payload)
		p.Query = st.Payload.Query
		p.ToolID = id
		f := tools.FormFrom(rec)
		p.Form = &f
		b.renderToolCard(ctx, chatID, &msgID, p)

	case "new":
		p := carry(st.Payload)
		p.Query = st.Payload.Query
		p.Form = &tools.Form{}
		b.renderToolCard(ctx, chatID, &msgID, p)

	case "field":
		if st.Payload.Form == nil {
			b.editTextAndClear(chatID, msgID, "This action is no longer available.")
			break
		}
		p := st.Payload
		p.Field = arg
		b.setState(ctx, chatID, dialog.StateToolField, p)
		if arg == tools.FieldCategory {
			cats, err := b.tools.Categories(ctx, sess)
			if err != nil {
				b.log.Warn("categories load failed", "chat_id", chatID, "err", err)
			}
			text, kb := categoryPickView(arg, cats)
			b.screen(chatID, nil, text, kb)
			break
		}
		b.prompt(chatID, fmt.Sprintf("Enter the %s:", arg))

	case "setcat":
		if st.State != dialog.StateToolField || st.Payload.Form == nil {
			b.editTextAndClear(chatID, msgID, "This action is no longer available.")
			break
		}
		cats, err := b.tools.Categories(ctx, sess)
		if err != nil {
			b.apiFailed(ctx, chatID, err, "Failed to load categories")
			break
		}
		id := parseID(arg)
		for _, c := range cats {
			if c.ID == id {
				st.Payload.Form.Category = c.Name
			}
		}
		b.editTextAndClear(chatID, msgID, "Category: "+dash(st.Payload.Form.Category))
		cardID := st.Payload.MsgID
		b.renderToolCard(ctx, chatID, &cardID, st.Payload)

	case "save":
		b.saveTool(ctx, chatID, msgID, sess, st)

	case "logs":
		id := parseID(arg)
		logs, err := b.tools.Logs(ctx, sess, id)
		if err != nil {
			b.apiFailed(ctx, chatID, err, "Failed to load logs")
			break
		}
		name := ""
		if st.Payload.Form != nil {
			name = st.Payload.Form.Name
		}
		text, kb := logsView(id, name, logs)
		b.screen(chatID, &msgID, text, kb)

	case "del":
		p := st.Payload
		p.ToolID = parseID(arg)
		p.MsgID = msgID
		b.setState(ctx, chatID, dialog.StateToolPassword, p)
		b.prompt(chatID, "Enter the admin password to delete this tool:")
	}
	_ = b.answerCallback(cb, "", false)
}

func (b *Bot) onToolField(ctx context.Context, chatID int64, text string, st *dialog.Item) {
	p := st.Payload
	if p.Form == nil || !p.Form.Set(p.Field, text) {
		b.setState(ctx, chatID, dialog.StateIdle, carry(p))
		b.send(tgbotapi.NewMessage(chatID, "This action is no longer available."))
		return
	}
	msgID := p.MsgID
	b.renderToolCard(ctx, chatID, &msgID, p)
}

// saveTool always sends the full record; on failure the form is kept.
func (b *Bot) saveTool(ctx context.Context, chatID int64, msgID int, sess session.Session, st *dialog.Item) {
	p := st.Payload
	if p.Form == nil {
		b.editTextAndClear(chatID, msgID, "This action is no longer available.")
		return
	}
	var err error
	if p.ToolID == 0 {
		_, err = b.tools.Create(ctx, sess, *p.Form)
	} else {
		_, err = b.tools.Update(ctx, sess, p.ToolID, *p.Form)
	}
	if err != nil {
		b.apiFailed(ctx, chatID, err, "Failed to save tool")
		return
	}
	b.toasts.Success(ctx, chatID, "Tool saved.")
	b.showTools(ctx, chatID, &msgID, p.Query)
}

func (b *Bot) onToolPassword(ctx context.Context, chatID int64, password string, st *dialog.Item) {
	sess, ok := b.adminSession(ctx, chatID)
	if !ok {
		return
	}
	p := st.Payload
	err := b.tools.Delete(ctx, sess, p.ToolID, password)
	msgID := p.MsgID
	switch {
	case errors.Is(err, tooladmin.ErrPasswordRequired):
		b.toasts.Error(ctx, chatID, "Enter the admin password to delete.")
		return
	case err != nil:
		// wrong password comes back as 403 with the server message
		b.log.Info("tool delete failed", "chat_id", chatID, "tool_id", p.ToolID, "err", err)
		b.toasts.Error(ctx, chatID, apiclient.Message(err, "Failed to delete tool"))
		if p.Form != nil {
			b.renderToolCard(ctx, chatID, &msgID, p)
		}
		return
	}
	b.toasts.Success(ctx, chatID, "Tool deleted.")
	b.showTools(ctx, chatID, &msgID, p.Query)
}
