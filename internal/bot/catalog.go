package bot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/Spok95/tool-requests-bot/internal/composer"
	"github.com/Spok95/tool-requests-bot/internal/dialog"
	"github.com/Spok95/tool-requests-bot/internal/domain/catalog"
	"github.com/Spok95/tool-requests-bot/internal/domain/requests"
	"github.com/Spok95/tool-requests-bot/internal/session"
)

func (b *Bot) loadCatalog(ctx context.Context, chatID int64) (session.Session, []catalog.Group, bool) {
	sess, ok := b.session(ctx, chatID)
	if !ok {
		return sess, nil, false
	}
	groups, err := b.backend.Catalog(ctx, sess)
	if err != nil {
		b.apiFailed(ctx, chatID, err, "Failed to load catalog")
		return sess, nil, false
	}
	return sess, groups, true
}

// screenCatalog returns the catalog fetched when the screen opened, loading
// it only when the chat is on another screen.
func (b *Bot) screenCatalog(ctx context.Context, chatID int64, st *dialog.Item, screens ...dialog.State) (session.Session, []catalog.Group, bool) {
	for _, s := range screens {
		if st.State == s && st.Payload.Groups != nil {
			sess, ok := b.session(ctx, chatID)
			return sess, st.Payload.Groups, ok
		}
	}
	return b.loadCatalog(ctx, chatID)
}

// toggleRow opens row i, or closes it when it is the open one.
func toggleRow(rows []catalog.Row, open string, i int) string {
	if i < 0 || i >= len(rows) {
		return open
	}
	if rows[i].Key == open {
		return ""
	}
	return rows[i].Key
}

/*** dashboard catalog ***/

func (b *Bot) showCatalog(ctx context.Context, chatID int64, editMsgID *int) {
	_, groups, ok := b.loadCatalog(ctx, chatID)
	if !ok {
		return
	}
	st := b.state(ctx, chatID)
	p := carry(st.Payload)
	if st.State == dialog.StateCatalog {
		p.OpenRow = st.Payload.OpenRow
	}
	p.Groups = groups
	text, kb := catalogView(catalog.Project(groups), p.OpenRow)
	p.MsgID = b.screen(chatID, editMsgID, text, kb)
	b.setState(ctx, chatID, dialog.StateCatalog, p)
}

func (b *Bot) onCatalogCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data string) {
	chatID := cb.Message.Chat.ID
	action, arg := parseData(data)
	switch action {
	case "open":
		st := b.state(ctx, chatID)
		_, groups, ok := b.screenCatalog(ctx, chatID, st, dialog.StateCatalog)
		if !ok {
			break
		}
		rows := catalog.Project(groups)
		i, _ := strconv.Atoi(arg)
		p := carry(st.Payload)
		p.Groups = groups
		p.OpenRow = toggleRow(rows, st.Payload.OpenRow, i)
		text, kb := catalogView(rows, p.OpenRow)
		p.MsgID = b.screen(chatID, &cb.Message.MessageID, text, kb)
		b.setState(ctx, chatID, dialog.StateCatalog, p)
	case "reload":
		b.showCatalog(ctx, chatID, &cb.Message.MessageID)
	}
	_ = b.answerCallback(cb, "", false)
}

/*** composer ***/

func draftOf(p dialog.Payload) *composer.Draft {
	if p.Draft == nil {
		return composer.NewDraft()
	}
	return p.Draft
}

func (b *Bot) renderComposer(ctx context.Context, chatID int64, editMsgID *int, groups []catalog.Group, p dialog.Payload) {
	p.Groups = groups
	text, kb := composerView(groups, p.OpenRow, draftOf(p))
	p.MsgID = b.screen(chatID, editMsgID, text, kb)
	b.setState(ctx, chatID, dialog.StateCompose, p)
}

func (b *Bot) showComposer(ctx context.Context, chatID int64, editMsgID *int) {
	_, groups, ok := b.loadCatalog(ctx, chatID)
	if !ok {
		return
	}
	st := b.state(ctx, chatID)
	p := carry(st.Payload)
	p.Draft = draftOf(p)
	if st.State == dialog.StateCompose || st.State == dialog.StateComposeQty {
		p.OpenRow = st.Payload.OpenRow
	}
	b.renderComposer(ctx, chatID, editMsgID, groups, p)
}

func (b *Bot) onComposerCallback(ctx context.Context, cb *tgbotapi.CallbackQuery, data string) {
	chatID := cb.Message.Chat.ID
	msgID := cb.Message.MessageID
	action, arg := parseData(data)

	st := b.state(ctx, chatID)
	if action == "submit" {
		// submit always reads a fresh catalog
		st.Payload.Groups = nil
	}
	sess, groups, ok := b.screenCatalog(ctx, chatID, st, dialog.StateCompose, dialog.StateComposeQty)
	if !ok {
		_ = b.answerCallback(cb, "", false)
		return
	}
	p := carry(st.Payload)
	p.OpenRow = st.Payload.OpenRow
	p.Groups = groups
	d := draftOf(p)
	p.Draft = d

	switch action {
	case "open":
		i, _ := strconv.Atoi(arg)
		p.OpenRow = toggleRow(catalog.Project(groups), p.OpenRow, i)
	case "inc":
		d.Inc(parseID(arg))
	case "dec":
		d.Dec(parseID(arg))
	case "clear":
		d.Clear()
	case "qty":
		toolID := parseID(arg)
		p.ToolID = toolID
		p.MsgID = msgID
		b.setState(ctx, chatID, dialog.StateComposeQty, p)
		b.send(tgbotapi.NewMessage(chatID,
			fmt.Sprintf("Enter the quantity for %s (0 removes it):", toolNameByID(groups, toolID))))
		_ = b.answerCallback(cb, "", false)
		return
	case "submit":
		b.submit(ctx, cb, sess, groups, p)
		return
	}
	b.renderComposer(ctx, chatID, &msgID, groups, p)
	_ = b.answerCallback(cb, "", false)
}

func toolNameByID(groups []catalog.Group, id int64) string {
	for _, t := range catalog.Tools(groups) {
		if t.ID == id {
			return toolName(t)
		}
	}
	return fmt.Sprintf("tool #%d", id)
}

// onComposeQty takes a typed quantity; non-digits are dropped.
func (b *Bot) onComposeQty(ctx context.Context, chatID int64, text string, st *dialog.Item) {
	_, groups, ok := b.screenCatalog(ctx, chatID, st, dialog.StateComposeQty)
	if !ok {
		return
	}
	p := st.Payload
	d := draftOf(p)
	d.Set(p.ToolID, text)
	p.Draft = d
	p.ToolID = 0
	b.renderComposer(ctx, chatID, &p.MsgID, groups, p)
}

func (b *Bot) submit(ctx context.Context, cb *tgbotapi.CallbackQuery, sess session.Session, groups []catalog.Group, p dialog.Payload) {
	chatID := cb.Message.Chat.ID
	req, err := b.composer.Submit(ctx, sess, chatID, p.Draft, groups)
	if err != nil {
		// the draft stays as it was
		if errors.Is(err, composer.ErrEmptySubmission) {
			_ = b.answerCallback(cb, "Add at least one quantity.", true)
			return
		}
		b.apiFailed(ctx, chatID, err, "Failed to submit request")
		_ = b.answerCallback(cb, "", false)
		return
	}
	b.renderComposer(ctx, chatID, &cb.Message.MessageID, groups, p)
	b.toasts.Success(ctx, chatID, fmt.Sprintf("Request %s submitted.", req.Ref()))
	_ = b.answerCallback(cb, "Submitted", false)
	b.notifyAdmins(sess, req)
}

// notifyAdmins posts new requests to the admin chat when one is configured.
func (b *Bot) notifyAdmins(sess session.Session, req requests.Request) {
	if b.adminChat == 0 {
		return
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "New request %s from %s", req.Ref(), sess.User.DisplayName())
	if sess.User.Facility != "" {
		fmt.Fprintf(&sb, " (%s)", sess.User.Facility)
	}
	for _, ln := range req.Lines {
		fmt.Fprintf(&sb, "\n   – %s × %d", ln.ToolName, ln.Quantity)
	}
	b.send(tgbotapi.NewMessage(b.adminChat, sb.String()))
}
